package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/muktihari/fit/profile/typedef"

	"github.com/xpayn3/cyclinghub-server/pkg/fit"
)

// recordFields are the record fields summarised in the stats table.
var recordFields = []string{
	"position_lat", "position_long", "altitude", "distance",
	"speed", "power", "heart_rate", "cadence",
}

func main() {
	inputPath := flag.String("input", "", "Path to FIT file")
	verbose := flag.Bool("detailed-dump", false, "Print every record field")
	flag.Parse()

	if *inputPath == "" {
		fmt.Println("Please provide input file with -input")
		os.Exit(1)
	}

	data, err := os.ReadFile(*inputPath)
	if err != nil {
		fmt.Printf("Failed to read file: %v\n", err)
		os.Exit(1)
	}

	if err := inspect(os.Stdout, data, *verbose); err != nil {
		fmt.Printf("Failed to decode FIT file: %v\n", err)
		os.Exit(1)
	}
}

func inspect(out io.Writer, data []byte, verbose bool) error {
	fitData, err := fit.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Messages:")
	counts := fit.MessageCounts(fitData)
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%d\n", name, counts[name])
	}
	w.Flush()

	stats := make(map[string]*FieldStats, len(recordFields))
	for _, name := range recordFields {
		stats[name] = NewFieldStats(name)
	}

	recordCount := 0
	for _, msg := range fitData.Messages {
		if msg.Num != typedef.MesgNumRecord {
			continue
		}
		recordCount++
		for _, field := range msg.Fields {
			if verbose {
				fmt.Fprintf(out, "Record %d: %q (Num: %d) = %v\n", recordCount, field.Name, field.Num, field.Value)
			}
			if s, ok := stats[field.Name]; ok {
				s.Update(field.Value)
			}
		}
	}

	if recordCount > 0 {
		fmt.Fprintf(out, "\nTotal Records: %d\n", recordCount)
		fmt.Fprintln(out, "\nField Statistics:")
		w = tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "Field\tCount\tCoverage\tMin\tMax\tAvg")
		fmt.Fprintln(w, "-----\t-----\t--------\t---\t---\t---")
		for _, name := range recordFields {
			s := stats[name]
			if s.Count == 0 {
				continue
			}
			coverage := float64(s.Count) / float64(recordCount) * 100
			fmt.Fprintf(w, "%s\t%d\t%.1f%%\t%.2f\t%.2f\t%.2f\n", name, s.Count, coverage, s.Min, s.Max, s.Avg())
		}
		w.Flush()
	}

	if wkt, err := fit.DecodeWorkout(bytes.NewReader(data)); err == nil {
		printWorkout(out, wkt)
	}
	return nil
}

func printWorkout(out io.Writer, wkt *fit.DecodedWorkout) {
	fmt.Fprintf(out, "\nWorkout %q (%d steps)\n", wkt.Name, wkt.NumValidSteps)
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "#\tStep\tDuration\tTarget")
	for _, s := range wkt.Steps {
		target := "open"
		if s.LowWatts != nil && s.HighWatts != nil {
			target = fmt.Sprintf("%.0f-%.0f W", *s.LowWatts, *s.HighWatts)
		}
		fmt.Fprintf(w, "%d\t%s\t%.0fs\t%s\n", s.Index, s.Label, s.DurationSeconds, target)
	}
	w.Flush()
}
