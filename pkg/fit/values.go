package fit

import (
	"math"
	"time"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
)

// fitEpochOffset is the number of seconds between the Unix epoch and the
// FIT epoch (1989-12-31T00:00:00Z).
const fitEpochOffset = 631065600

const semicirclesPerDegree = (1 << 31) / 180.0

// Timestamp converts t to seconds since the FIT epoch.
func Timestamp(t time.Time) uint32 {
	return uint32(t.Unix() - fitEpochOffset)
}

// TimeFromTimestamp is the inverse of Timestamp.
func TimeFromTimestamp(ts uint32) time.Time {
	return time.Unix(int64(ts)+fitEpochOffset, 0).UTC()
}

func finite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return hubErrors.ErrInvalidFieldValue.WithMessagef("%s is not a finite number", field).WithMetadata("field", field)
	}
	return nil
}

// Semicircles converts degrees to FIT semicircles.
func Semicircles(deg float64) int32 {
	return int32(math.Round(deg * semicirclesPerDegree))
}

// Degrees converts FIT semicircles back to degrees.
func Degrees(sc int32) float64 {
	return float64(sc) / semicirclesPerDegree
}

func latitude(deg float64) (int32, error) {
	if err := finite("latitude", deg); err != nil {
		return 0, err
	}
	if deg < -90 || deg > 90 {
		return 0, hubErrors.ErrInvalidFieldValue.WithMessagef("latitude %f out of range", deg)
	}
	return Semicircles(deg), nil
}

func longitude(deg float64) (int32, error) {
	if err := finite("longitude", deg); err != nil {
		return 0, err
	}
	if deg < -180 || deg > 180 {
		return 0, hubErrors.ErrInvalidFieldValue.WithMessagef("longitude %f out of range", deg)
	}
	// +180 rounds to 2^31, one past MaxInt32.
	if deg == 180 {
		return math.MaxInt32, nil
	}
	return Semicircles(deg), nil
}

// Altitude encodes meters with the -500m offset and 1/5m resolution,
// clamped to the uint16 range below the invalid sentinel.
func Altitude(m float64) (uint16, error) {
	if err := finite("altitude", m); err != nil {
		return 0, err
	}
	v := math.Round((m + 500) * 5)
	if v < 0 {
		v = 0
	}
	if v > float64(InvalidUint16-1) {
		v = float64(InvalidUint16 - 1)
	}
	return uint16(v), nil
}

// AltitudeMeters decodes an altitude field.
func AltitudeMeters(v uint16) float64 {
	return float64(v)/5 - 500
}

// Centimeters encodes a distance in meters with 1/100 resolution.
func Centimeters(m float64) (uint32, error) {
	if err := finite("distance", m); err != nil {
		return 0, err
	}
	if m < 0 || m*100 >= float64(InvalidUint32) {
		return 0, hubErrors.ErrInvalidFieldValue.WithMessagef("distance %f out of range", m)
	}
	return uint32(math.Round(m * 100)), nil
}

// milliseconds encodes a duration field scaled by 1000.
func milliseconds(field string, secs float64) (uint32, error) {
	if err := finite(field, secs); err != nil {
		return 0, err
	}
	if secs < 0 {
		return 0, hubErrors.ErrValidation.WithMessagef("%s must not be negative", field).WithMetadata("field", field)
	}
	ms := math.Round(secs * 1000)
	if ms >= float64(InvalidUint32) {
		return 0, hubErrors.ErrInvalidFieldValue.WithMessagef("%s %f too large", field, secs)
	}
	return uint32(ms), nil
}
