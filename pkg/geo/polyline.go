package geo

import (
	"fmt"

	"github.com/twpayne/go-polyline"
)

// polyline6 is the 1e-6 precision variant emitted by OSRM with
// geometries=polyline6.
var polyline6 = polyline.Codec{Dim: 2, Scale: 1e6}

// DecodePolyline6 decodes an encoded polyline with six decimal places.
func DecodePolyline6(encoded string) ([]LatLng, error) {
	coords, rest, err := polyline6.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("decode polyline: %d trailing bytes", len(rest))
	}
	out := make([]LatLng, len(coords))
	for i, c := range coords {
		out[i] = LatLng{Lat: c[0], Lng: c[1]}
	}
	return out, nil
}

// EncodePolyline6 is the inverse of DecodePolyline6.
func EncodePolyline6(points []LatLng) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lng}
	}
	return string(polyline6.EncodeCoords(nil, coords))
}
