package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/xpayn3/cyclinghub-server/pkg/config"
	"github.com/xpayn3/cyclinghub-server/pkg/export"
	"github.com/xpayn3/cyclinghub-server/pkg/fit"
	"github.com/xpayn3/cyclinghub-server/pkg/routegraph"
	"github.com/xpayn3/cyclinghub-server/pkg/types"
	"github.com/xpayn3/cyclinghub-server/pkg/workout"
)

func main() {
	inputFile := flag.String("input", "", "Path to input JSON file (workout plan or route snapshot)")
	outputFile := flag.String("output", "", "Path to output FIT file (default derived from the input)")
	kind := flag.String("kind", "workout", "What the input holds: workout or course")
	name := flag.String("name", "", "Course name (courses only)")
	ftp := flag.Float64("ftp", 0, "FTP in watts for workout power targets (default FTP_WATTS)")
	flag.Parse()

	if *inputFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	// 1. Read JSON
	data, err := os.ReadFile(*inputFile)
	if err != nil {
		log.Fatalf("Failed to read input file: %v", err)
	}

	// 2. Generate FIT
	var (
		fitData []byte
		outName string
	)
	switch *kind {
	case "workout":
		fitData, outName, err = generateWorkout(data, *ftp)
	case "course":
		fitData, outName, err = generateCourse(data, *name, time.Now())
	default:
		log.Fatalf("Unknown -kind %q (want workout or course)", *kind)
	}
	if err != nil {
		log.Fatalf("Failed to generate FIT file: %v", err)
	}

	// 3. Write Output
	if *outputFile != "" {
		outName = *outputFile
	}
	if err := os.WriteFile(outName, fitData, 0644); err != nil {
		log.Fatalf("Failed to write output file: %v", err)
	}

	fmt.Printf("Successfully wrote FIT file to %s (%d bytes)\n", outName, len(fitData))
}

func generateWorkout(data []byte, ftp float64) ([]byte, string, error) {
	var plan workout.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, "", fmt.Errorf("parse workout plan: %w", err)
	}
	if ftp <= 0 {
		cfg, err := config.Load()
		if err != nil {
			return nil, "", err
		}
		ftp = cfg.FTPWatts
	}
	out, err := workout.Encode(plan, ftp)
	if err != nil {
		return nil, "", err
	}
	return out, workout.FileName(plan.Name, ".fit"), nil
}

func generateCourse(data []byte, name string, now time.Time) ([]byte, string, error) {
	var snapshot routegraph.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, "", fmt.Errorf("parse route snapshot: %w", err)
	}
	if err := snapshot.Validate(); err != nil {
		return nil, "", err
	}
	enc := fit.NewEncoder()
	enc.Now = func() time.Time { return now }
	out, err := export.CourseFromGraph(enc, snapshot, name)
	if err != nil {
		return nil, "", err
	}
	return out, export.FileName(now, types.FormatFITCourse), nil
}
