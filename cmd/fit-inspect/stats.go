package main

import (
	"fmt"
	"math"
	"reflect"
)

type FieldStats struct {
	Name  string
	Count int
	Min   float64
	Max   float64
	Sum   float64
}

func NewFieldStats(name string) *FieldStats {
	return &FieldStats{
		Name: name,
		Min:  math.MaxFloat64,
		Max:  -math.MaxFloat64,
	}
}

// numeric converts a decoded field value to float64. proto.Value keeps its
// payload unexported, so struct values go through their String form.
func numeric(val interface{}) (float64, bool) {
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Struct:
		var f float64
		if n, err := fmt.Sscanf(fmt.Sprint(val), "%f", &f); err == nil && n == 1 {
			return f, true
		}
	}
	return 0, false
}

// Update records val, ignoring non-numeric values and the FIT invalid
// sentinels for the common unsigned widths.
func (fs *FieldStats) Update(val interface{}) {
	v, ok := numeric(val)
	if !ok || v == math.MaxUint8 || v == math.MaxUint16 || v == math.MaxUint32 {
		return
	}
	fs.Count++
	fs.Sum += v
	if v < fs.Min {
		fs.Min = v
	}
	if v > fs.Max {
		fs.Max = v
	}
}

func (fs *FieldStats) Avg() float64 {
	if fs.Count == 0 {
		return 0
	}
	return fs.Sum / float64(fs.Count)
}
