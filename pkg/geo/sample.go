package geo

// Downsample keeps every step-th point, where step = max(1, n/max), and
// always keeps the final point.
func Downsample(points []LatLng, max int) []LatLng {
	return pick(len(points), DownsampleIndices(len(points), max), points)
}

// DownsampleIndices is Downsample over indices, so callers can carry
// parallel slices (elevations) along.
func DownsampleIndices(n, max int) []int {
	if n == 0 {
		return nil
	}
	step := 1
	if max > 0 && n/max > 1 {
		step = n / max
	}
	idx := make([]int, 0, n/step+1)
	for i := 0; i < n; i += step {
		idx = append(idx, i)
	}
	if idx[len(idx)-1] != n-1 {
		idx = append(idx, n-1)
	}
	return idx
}

func pick(n int, idx []int, points []LatLng) []LatLng {
	if n == 0 {
		return nil
	}
	out := make([]LatLng, len(idx))
	for i, j := range idx {
		out[i] = points[j]
	}
	return out
}

// SampleByDistance returns at most roughly max points spread evenly by
// distance along the path. The first and last points are always kept.
func SampleByDistance(points []LatLng, max int) []LatLng {
	if len(points) <= max || max < 2 {
		return append([]LatLng(nil), points...)
	}
	interval := PathLength(points) / float64(max-1)
	sampled := []LatLng{points[0]}
	cum, next := 0.0, interval
	for i := 1; i < len(points); i++ {
		cum += Haversine(points[i-1], points[i])
		if cum >= next {
			sampled = append(sampled, points[i])
			next += interval
		}
	}
	last := points[len(points)-1]
	if sampled[len(sampled)-1] != last {
		sampled = append(sampled, last)
	}
	return sampled
}

// SampleEvery emits a point each time the accumulated distance passes
// meters. The accumulator resets after each emitted point.
func SampleEvery(points []LatLng, meters float64) []LatLng {
	var out []LatLng
	accum := 0.0
	for i := 1; i < len(points); i++ {
		accum += Haversine(points[i-1], points[i])
		if accum >= meters {
			out = append(out, points[i])
			accum = 0
		}
	}
	return out
}
