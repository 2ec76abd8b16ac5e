// Package workout holds the structured workout builder: authored segments,
// their expansion into FIT steps, load estimation and Zwift export.
package workout

import (
	"fmt"
	"math"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/fit"
)

// DefaultFTP is used when the athlete has no FTP on record.
const DefaultFTP = 250.0

// DefaultName is used for plans saved without a name.
const DefaultName = "CyclingHub Workout"

// Kind is the authored segment type.
type Kind string

const (
	KindWarmup   Kind = "warmup"
	KindSteady   Kind = "steady"
	KindInterval Kind = "interval"
	KindCooldown Kind = "cooldown"
	KindFree     Kind = "free"
)

// Segment is one authored block. Powers are percentages of FTP. Which
// fields apply depends on Kind.
type Segment struct {
	Kind        Kind    `json:"type"`
	Duration    float64 `json:"duration,omitempty"`
	PowerLow    float64 `json:"powerLow,omitempty"`
	PowerHigh   float64 `json:"powerHigh,omitempty"`
	Power       float64 `json:"power,omitempty"`
	Reps        int     `json:"reps,omitempty"`
	OnDuration  float64 `json:"onDuration,omitempty"`
	OnPower     float64 `json:"onPower,omitempty"`
	OffDuration float64 `json:"offDuration,omitempty"`
	OffPower    float64 `json:"offPower,omitempty"`
}

// Plan is a named list of segments.
type Plan struct {
	Name     string    `json:"name"`
	Segments []Segment `json:"segments"`
}

// NewSegment returns a segment of kind k with the builder defaults.
func NewSegment(k Kind) (Segment, error) {
	switch k {
	case KindWarmup:
		return Segment{Kind: k, Duration: 600, PowerLow: 50, PowerHigh: 75}, nil
	case KindSteady:
		return Segment{Kind: k, Duration: 1200, Power: 88}, nil
	case KindInterval:
		return Segment{Kind: k, Reps: 5, OnDuration: 180, OnPower: 120, OffDuration: 120, OffPower: 50}, nil
	case KindCooldown:
		return Segment{Kind: k, Duration: 600, PowerLow: 75, PowerHigh: 40}, nil
	case KindFree:
		return Segment{Kind: k, Duration: 600}, nil
	}
	return Segment{}, hubErrors.ErrValidation.WithMessagef("unknown segment type %q", k)
}

// Duration is the wall time of one segment in seconds.
func Duration(s Segment) float64 {
	if s.Kind == KindInterval {
		return float64(s.Reps) * (s.OnDuration + s.OffDuration)
	}
	return s.Duration
}

// TotalDuration sums Duration over segments.
func TotalDuration(segments []Segment) float64 {
	var total float64
	for _, s := range segments {
		total += Duration(s)
	}
	return total
}

// Validate checks every segment and reports the first offender by index.
func Validate(segments []Segment) error {
	for i, s := range segments {
		if err := validateSegment(s); err != nil {
			return err.WithMetadata("segment", fmt.Sprint(i))
		}
	}
	return nil
}

func validateSegment(s Segment) *hubErrors.HubError {
	nonNegative := func(field string, v float64) *hubErrors.HubError {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return hubErrors.ErrInvalidFieldValue.WithMessagef("%s is not a finite number", field)
		}
		if v < 0 {
			return hubErrors.ErrValidation.WithMessagef("%s must not be negative", field)
		}
		return nil
	}

	var checks []struct {
		field string
		v     float64
	}
	add := func(field string, v float64) {
		checks = append(checks, struct {
			field string
			v     float64
		}{field, v})
	}

	switch s.Kind {
	case KindWarmup, KindCooldown:
		add("duration", s.Duration)
		add("powerLow", s.PowerLow)
		add("powerHigh", s.PowerHigh)
	case KindSteady:
		add("duration", s.Duration)
		add("power", s.Power)
	case KindInterval:
		if s.Reps < 1 {
			return hubErrors.ErrValidation.WithMessagef("interval reps must be at least 1, got %d", s.Reps)
		}
		add("onDuration", s.OnDuration)
		add("onPower", s.OnPower)
		add("offDuration", s.OffDuration)
		add("offPower", s.OffPower)
	case KindFree:
		add("duration", s.Duration)
	default:
		return hubErrors.ErrValidation.WithMessagef("unknown segment type %q", s.Kind)
	}

	for _, c := range checks {
		if err := nonNegative(c.field, c.v); err != nil {
			return err
		}
	}
	return nil
}

// bandHalfWidth is the +/- percentage applied around single power targets.
const bandHalfWidth = 5

func band(pct float64) (low, high *float64) {
	return fit.Percent(math.Max(1, pct-bandHalfWidth)), fit.Percent(pct + bandHalfWidth)
}

// Flatten expands authored segments into encoder steps.
func Flatten(segments []Segment) []fit.WorkoutStep {
	var steps []fit.WorkoutStep
	for _, s := range segments {
		switch s.Kind {
		case KindWarmup:
			steps = append(steps, fit.WorkoutStep{
				Label:           "Warmup",
				DurationSeconds: s.Duration,
				TargetLow:       fit.Percent(math.Min(s.PowerLow, s.PowerHigh)),
				TargetHigh:      fit.Percent(math.Max(s.PowerLow, s.PowerHigh)),
				Intensity:       fit.IntensityWarmup,
			})
		case KindCooldown:
			steps = append(steps, fit.WorkoutStep{
				Label:           "Cooldown",
				DurationSeconds: s.Duration,
				TargetLow:       fit.Percent(math.Min(s.PowerLow, s.PowerHigh)),
				TargetHigh:      fit.Percent(math.Max(s.PowerLow, s.PowerHigh)),
				Intensity:       fit.IntensityCooldown,
			})
		case KindSteady:
			low, high := band(s.Power)
			steps = append(steps, fit.WorkoutStep{
				Label:           "Steady",
				DurationSeconds: s.Duration,
				TargetLow:       low,
				TargetHigh:      high,
				Intensity:       fit.IntensityActive,
			})
		case KindInterval:
			for r := 0; r < s.Reps; r++ {
				onLow, onHigh := band(s.OnPower)
				offLow, offHigh := band(s.OffPower)
				steps = append(steps,
					fit.WorkoutStep{Label: "Work", DurationSeconds: s.OnDuration, TargetLow: onLow, TargetHigh: onHigh, Intensity: fit.IntensityActive},
					fit.WorkoutStep{Label: "Rest", DurationSeconds: s.OffDuration, TargetLow: offLow, TargetHigh: offHigh, Intensity: fit.IntensityRest},
				)
			}
		case KindFree:
			steps = append(steps, fit.WorkoutStep{
				Label:           "Free Ride",
				DurationSeconds: s.Duration,
				Intensity:       fit.IntensityActive,
			})
		}
	}
	return steps
}

// freeRideFraction is the assumed effort for untargeted riding.
const freeRideFraction = 0.55

// EstimateTSS estimates training stress from average segment power. It
// returns 0 for an empty plan or a non-positive FTP.
func EstimateTSS(segments []Segment, ftp float64) int {
	if ftp <= 0 {
		return 0
	}
	var work, secs float64
	for _, s := range segments {
		d := Duration(s)
		secs += d
		switch s.Kind {
		case KindWarmup, KindCooldown:
			work += ftp * ((s.PowerLow + s.PowerHigh) / 2 / 100) * d
		case KindSteady:
			work += ftp * (s.Power / 100) * d
		case KindInterval:
			rep := s.OnDuration + s.OffDuration
			if rep > 0 {
				avg := (s.OnPower*s.OnDuration + s.OffPower*s.OffDuration) / rep / 100
				work += ftp * avg * d
			}
		case KindFree:
			work += ftp * freeRideFraction * d
		}
	}
	if secs == 0 {
		return 0
	}
	np := work / secs
	intensity := np / ftp
	return int(math.Round(secs * np * intensity / (ftp * 3600) * 100))
}

// Encode validates the plan and writes it as a FIT workout. A non-positive
// ftp falls back to DefaultFTP.
func Encode(plan Plan, ftp float64) ([]byte, error) {
	return EncodeWith(fit.NewEncoder(), plan, ftp)
}

// EncodeWith is Encode with a caller-supplied FIT encoder.
func EncodeWith(enc *fit.Encoder, plan Plan, ftp float64) ([]byte, error) {
	if len(plan.Segments) == 0 {
		return nil, hubErrors.ErrEmptyExportInput.WithMessage("workout has no segments")
	}
	if err := Validate(plan.Segments); err != nil {
		return nil, err
	}
	if ftp <= 0 {
		ftp = DefaultFTP
	}
	return enc.EncodeWorkout(Flatten(plan.Segments), planName(plan), ftp)
}

func planName(p Plan) string {
	if p.Name == "" {
		return DefaultName
	}
	return p.Name
}

// FormatClock renders seconds as h:mm:ss, or m:ss under an hour.
func FormatClock(secs float64) string {
	total := int(math.Round(secs))
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
