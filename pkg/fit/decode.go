package fit

import (
	"fmt"
	"io"
	"math"

	"github.com/muktihari/fit/decoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
)

const invalidSint32 = math.MaxInt32

// Decode parses any FIT file with CRC checking.
func Decode(r io.Reader) (*proto.FIT, error) {
	fit, err := decoder.New(r).Decode()
	if err != nil {
		return nil, hubErrors.ErrInvalidFormat.WithMessage("decode FIT").WithCause(err)
	}
	return fit, nil
}

// DecodeTrack extracts positioned records from a FIT activity or course.
func DecodeTrack(r io.Reader) ([]TrackPoint, error) {
	fit, err := Decode(r)
	if err != nil {
		return nil, err
	}

	var out []TrackPoint
	for i := range fit.Messages {
		msg := &fit.Messages[i]
		if msg.Num != typedef.MesgNumRecord {
			continue
		}
		rec := mesgdef.NewRecord(msg)
		if rec.PositionLat == invalidSint32 || rec.PositionLong == invalidSint32 {
			continue
		}
		p := TrackPoint{Lat: Degrees(rec.PositionLat), Lng: Degrees(rec.PositionLong)}
		switch {
		case rec.Altitude != InvalidUint16:
			ele := AltitudeMeters(rec.Altitude)
			p.Elevation = &ele
		case rec.EnhancedAltitude != InvalidUint32:
			ele := float64(rec.EnhancedAltitude)/5 - 500
			p.Elevation = &ele
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, hubErrors.ErrEmptyExportInput.WithMessage("FIT file has no positioned records")
	}
	return out, nil
}

// DecodedStep is a workout step read back from a FIT file. Watts are nil
// for open steps.
type DecodedStep struct {
	Index           uint16
	Label           string
	DurationSeconds float64
	LowWatts        *float64
	HighWatts       *float64
	Intensity       Intensity
}

// DecodedWorkout is the workout header plus its steps.
type DecodedWorkout struct {
	Name          string
	NumValidSteps uint16
	Steps         []DecodedStep
}

// DecodeWorkout reads the workout and workout_step messages of a FIT file.
func DecodeWorkout(r io.Reader) (*DecodedWorkout, error) {
	fit, err := Decode(r)
	if err != nil {
		return nil, err
	}

	out := &DecodedWorkout{}
	seen := false
	for i := range fit.Messages {
		msg := &fit.Messages[i]
		switch msg.Num {
		case typedef.MesgNumWorkout:
			w := mesgdef.NewWorkout(msg)
			out.Name = w.WktName
			out.NumValidSteps = w.NumValidSteps
			seen = true
		case typedef.MesgNumWorkoutStep:
			s := mesgdef.NewWorkoutStep(msg)
			step := DecodedStep{
				Index:           uint16(s.MessageIndex),
				Label:           s.WktStepName,
				DurationSeconds: float64(s.DurationValue) / 1000,
				Intensity:       Intensity(s.Intensity),
			}
			if uint8(s.TargetType) == targetPower && s.CustomTargetValueLow != InvalidUint32 {
				low := float64(s.CustomTargetValueLow) - powerOffset
				high := float64(s.CustomTargetValueHigh) - powerOffset
				step.LowWatts, step.HighWatts = &low, &high
			}
			out.Steps = append(out.Steps, step)
		}
	}
	if !seen {
		return nil, hubErrors.ErrInvalidFormat.WithMessage("FIT file has no workout message")
	}
	return out, nil
}

// MessageCounts tallies messages by global number name, for inspection.
func MessageCounts(fit *proto.FIT) map[string]int {
	counts := make(map[string]int)
	for i := range fit.Messages {
		counts[fmt.Sprint(fit.Messages[i].Num)]++
	}
	return counts
}
