package workout

import (
	"encoding/xml"
	"math"
	"regexp"
	"strconv"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
)

type zwoFile struct {
	XMLName     xml.Name   `xml:"workout_file"`
	Author      string     `xml:"author"`
	Name        string     `xml:"name"`
	Description string     `xml:"description"`
	SportType   string     `xml:"sportType"`
	Tags        string     `xml:"tags"`
	Workout     zwoWorkout `xml:"workout"`
}

type zwoWorkout struct {
	Steps []zwoStep
}

// zwoStep covers every Zwift block; the element name comes from XMLName.
type zwoStep struct {
	XMLName     xml.Name
	Duration    string `xml:"Duration,attr,omitempty"`
	Repeat      string `xml:"Repeat,attr,omitempty"`
	OnDuration  string `xml:"OnDuration,attr,omitempty"`
	OffDuration string `xml:"OffDuration,attr,omitempty"`
	PowerLow    string `xml:"PowerLow,attr,omitempty"`
	PowerHigh   string `xml:"PowerHigh,attr,omitempty"`
	Power       string `xml:"Power,attr,omitempty"`
	OnPower     string `xml:"OnPower,attr,omitempty"`
	OffPower    string `xml:"OffPower,attr,omitempty"`
}

const zwoAuthor = "CyclingHub"

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fraction(pct float64) string {
	return strconv.FormatFloat(pct/100, 'f', 2, 64)
}

func toZwoStep(s Segment) zwoStep {
	switch s.Kind {
	case KindWarmup:
		return zwoStep{
			XMLName:   xml.Name{Local: "Warmup"},
			Duration:  seconds(s.Duration),
			PowerLow:  fraction(s.PowerLow),
			PowerHigh: fraction(s.PowerHigh),
		}
	case KindCooldown:
		return zwoStep{
			XMLName:   xml.Name{Local: "Cooldown"},
			Duration:  seconds(s.Duration),
			PowerLow:  fraction(math.Min(s.PowerLow, s.PowerHigh)),
			PowerHigh: fraction(math.Max(s.PowerLow, s.PowerHigh)),
		}
	case KindSteady:
		return zwoStep{
			XMLName:  xml.Name{Local: "SteadyState"},
			Duration: seconds(s.Duration),
			Power:    fraction(s.Power),
		}
	case KindInterval:
		return zwoStep{
			XMLName:     xml.Name{Local: "IntervalsT"},
			Repeat:      strconv.Itoa(s.Reps),
			OnDuration:  seconds(s.OnDuration),
			OffDuration: seconds(s.OffDuration),
			OnPower:     fraction(s.OnPower),
			OffPower:    fraction(s.OffPower),
		}
	default:
		return zwoStep{
			XMLName:  xml.Name{Local: "FreeRide"},
			Duration: seconds(s.Duration),
		}
	}
}

// EncodeZWO renders a plan as a Zwift workout file.
func EncodeZWO(plan Plan) ([]byte, error) {
	if len(plan.Segments) == 0 {
		return nil, hubErrors.ErrEmptyExportInput.WithMessage("workout has no segments")
	}
	if err := Validate(plan.Segments); err != nil {
		return nil, err
	}

	doc := zwoFile{
		Author:    zwoAuthor,
		Name:      planName(plan),
		SportType: "bike",
	}
	for _, s := range plan.Segments {
		doc.Workout.Steps = append(doc.Workout.Steps, toZwoStep(s))
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, hubErrors.ErrInternal.WithMessage("marshal zwo").WithCause(err)
	}
	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	return append(out, '\n'), nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9]`)

// FileName turns a plan name into a download file name with ext.
func FileName(name, ext string) string {
	if name == "" {
		name = DefaultName
	}
	return unsafeFileChars.ReplaceAllString(name, "_") + ext
}
