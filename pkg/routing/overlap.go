package routing

import (
	"strconv"

	"github.com/xpayn3/cyclinghub-server/pkg/geo"
)

func overlapKey(p geo.LatLng) string {
	return strconv.FormatFloat(p.Lat, 'f', 4, 64) + "," + strconv.FormatFloat(p.Lng, 'f', 4, 64)
}

// SelectLeastOverlap picks the candidate sharing the fewest points with
// existing, comparing coordinates at four decimals. Ties keep the earlier
// candidate.
func SelectLeastOverlap(routes []Route, existing []geo.LatLng) (Route, bool) {
	if len(routes) == 0 {
		return Route{}, false
	}
	if len(routes) == 1 || len(existing) == 0 {
		return routes[0], true
	}
	seen := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		seen[overlapKey(p)] = struct{}{}
	}
	best, bestOverlap := 0, -1
	for i, r := range routes {
		overlap := 0
		for _, p := range r.Points {
			if _, ok := seen[overlapKey(p)]; ok {
				overlap++
			}
		}
		if bestOverlap < 0 || overlap < bestOverlap {
			best, bestOverlap = i, overlap
		}
	}
	return routes[best], true
}
