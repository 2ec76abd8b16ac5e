package fit

import (
	"fmt"
	"math"
	"strings"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
)

// Intensity is the FIT workout step intensity class.
type Intensity uint8

const (
	IntensityActive   Intensity = 0
	IntensityRest     Intensity = 1
	IntensityWarmup   Intensity = 2
	IntensityCooldown Intensity = 3
)

var intensityNames = map[Intensity]string{
	IntensityActive:   "active",
	IntensityRest:     "rest",
	IntensityWarmup:   "warmup",
	IntensityCooldown: "cooldown",
}

func (i Intensity) String() string {
	if s, ok := intensityNames[i]; ok {
		return s
	}
	return fmt.Sprintf("intensity(%d)", uint8(i))
}

func (i Intensity) MarshalText() ([]byte, error) {
	if _, ok := intensityNames[i]; !ok {
		return nil, hubErrors.ErrValidation.WithMessagef("unknown intensity %d", uint8(i))
	}
	return []byte(i.String()), nil
}

func (i *Intensity) UnmarshalText(b []byte) error {
	s := strings.ToLower(string(b))
	for k, v := range intensityNames {
		if v == s {
			*i = k
			return nil
		}
	}
	return hubErrors.ErrValidation.WithMessagef("unknown intensity %q", s)
}

// Workout step target types.
const (
	targetOpen  uint8 = 2
	targetPower uint8 = 4

	durationTime uint8 = 0
	sportCycling uint8 = 2

	// powerOffset marks custom power values as watts rather than % FTP.
	powerOffset = 1000

	workoutCapabilities uint32 = 0x20
	fileTypeWorkout     uint8  = 5
	fileTypeCourse      uint8  = 6
	nameFieldSize              = 16
)

// WorkoutStep is one encoder input step. A nil target means an open step.
type WorkoutStep struct {
	Label           string    `json:"label"`
	DurationSeconds float64   `json:"durationSeconds"`
	TargetLow       *float64  `json:"targetLowPercentFTP,omitempty"`
	TargetHigh      *float64  `json:"targetHighPercentFTP,omitempty"`
	Intensity       Intensity `json:"intensity"`
}

// Percent is a convenience for building targets inline.
func Percent(v float64) *float64 { return &v }

// Open reports whether the step carries no power target.
func (s WorkoutStep) Open() bool {
	return s.TargetLow == nil && s.TargetHigh == nil
}

var (
	workoutFileIDDef = MessageDef{Local: 0, Global: MesgFileID, Fields: []FieldDef{
		{Num: 0, Size: 1, Base: BaseEnum},   // type
		{Num: 1, Size: 2, Base: BaseUint16}, // manufacturer
		{Num: 2, Size: 2, Base: BaseUint16}, // product
		{Num: 4, Size: 4, Base: BaseUint32}, // time_created
		{Num: 5, Size: 2, Base: BaseUint16}, // number
	}}
	workoutDef = MessageDef{Local: 1, Global: MesgWorkout, Fields: []FieldDef{
		{Num: 4, Size: 1, Base: BaseEnum},               // sport
		{Num: 5, Size: 4, Base: BaseUint32},             // capabilities
		{Num: 6, Size: 2, Base: BaseUint16},             // num_valid_steps
		{Num: 8, Size: nameFieldSize, Base: BaseString}, // wkt_name
	}}
	workoutStepDef = MessageDef{Local: 2, Global: MesgWorkoutStep, Fields: []FieldDef{
		{Num: 254, Size: 2, Base: BaseUint16},           // message_index
		{Num: 0, Size: nameFieldSize, Base: BaseString}, // wkt_step_name
		{Num: 1, Size: 1, Base: BaseEnum},               // duration_type
		{Num: 2, Size: 4, Base: BaseUint32},             // duration_value
		{Num: 3, Size: 1, Base: BaseEnum},               // target_type
		{Num: 4, Size: 4, Base: BaseUint32},             // target_value
		{Num: 5, Size: 4, Base: BaseUint32},             // custom_target_value_low
		{Num: 6, Size: 4, Base: BaseUint32},             // custom_target_value_high
		{Num: 7, Size: 1, Base: BaseEnum},               // intensity
	}}
)

type encodedStep struct {
	durationMs uint32
	target     uint8
	low, high  uint32
}

func validateStep(i int, s WorkoutStep, ftp float64) (encodedStep, error) {
	field := func(name string) string { return fmt.Sprintf("steps[%d].%s", i, name) }

	ms, err := milliseconds(field("durationSeconds"), s.DurationSeconds)
	if err != nil {
		return encodedStep{}, err
	}
	if _, ok := intensityNames[s.Intensity]; !ok {
		return encodedStep{}, hubErrors.ErrValidation.WithMessagef("%s: unknown intensity %d", field("intensity"), uint8(s.Intensity))
	}
	out := encodedStep{durationMs: ms, target: targetOpen, low: InvalidUint32, high: InvalidUint32}
	if s.Open() {
		return out, nil
	}

	low, high := s.TargetLow, s.TargetHigh
	if low == nil {
		low = high
	}
	if high == nil {
		high = low
	}
	bounds := []struct {
		name string
		v    float64
	}{
		{"targetLowPercentFTP", *low},
		{"targetHighPercentFTP", *high},
	}
	for _, b := range bounds {
		if err := finite(field(b.name), b.v); err != nil {
			return encodedStep{}, err
		}
		if b.v < 0 {
			return encodedStep{}, hubErrors.ErrValidation.WithMessagef("%s must not be negative", field(b.name))
		}
	}
	if *low > *high {
		return encodedStep{}, hubErrors.ErrValidation.WithMessagef("%s: low target %.1f above high %.1f", field("target"), *low, *high)
	}
	lowW, highW := math.Round(ftp**low/100), math.Round(ftp**high/100)
	if highW+powerOffset >= float64(InvalidUint32) {
		return encodedStep{}, hubErrors.ErrInvalidFieldValue.WithMessagef("%s: %g W cannot be encoded", field("target"), highW)
	}
	out.target = targetPower
	out.low = uint32(lowW) + powerOffset
	out.high = uint32(highW) + powerOffset
	return out, nil
}

// EncodeWorkout serializes a structured power workout. Power targets are
// percentages of ftpWatts and are written as absolute watts.
func (e *Encoder) EncodeWorkout(steps []WorkoutStep, name string, ftpWatts float64) ([]byte, error) {
	if len(steps) == 0 {
		return nil, hubErrors.ErrEmptyExportInput.WithMessage("workout has no steps")
	}
	if len(steps) >= int(InvalidUint16) {
		return nil, hubErrors.ErrInvalidFieldValue.WithMessagef("too many steps: %d", len(steps))
	}
	if err := finite("ftp", ftpWatts); err != nil {
		return nil, err
	}
	if ftpWatts <= 0 {
		return nil, hubErrors.ErrValidation.WithMessage("ftp must be positive").WithMetadata("field", "ftp")
	}

	encoded := make([]encodedStep, len(steps))
	for i, s := range steps {
		es, err := validateStep(i, s, ftpWatts)
		if err != nil {
			return nil, err
		}
		encoded[i] = es
	}

	f := newFile()

	f.define(workoutFileIDDef)
	if err := f.write(workoutFileIDDef, fileTypeWorkout, e.Manufacturer, e.Product, Timestamp(e.now()), uint16(0)); err != nil {
		return nil, err
	}

	f.define(workoutDef)
	if err := f.write(workoutDef, sportCycling, workoutCapabilities, uint16(len(steps)), name); err != nil {
		return nil, err
	}

	f.define(workoutStepDef)
	for i, s := range steps {
		es := encoded[i]
		err := f.write(workoutStepDef,
			uint16(i),
			s.Label,
			durationTime,
			es.durationMs,
			es.target,
			uint32(0),
			es.low,
			es.high,
			uint8(s.Intensity),
		)
		if err != nil {
			return nil, err
		}
	}

	return f.finish(), nil
}
