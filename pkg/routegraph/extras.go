package routegraph

import (
	"context"
	"math"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/geo"
	"github.com/xpayn3/cyclinghub-server/pkg/routing"
)

const (
	// loopTolerance is how close, in degrees, the ends must be for the route
	// to count as a loop already.
	loopTolerance = 0.0001
	// avoidSpacing is the distance between avoid points sampled from the
	// existing route when closing a loop.
	avoidSpacing = 400.0
)

// OutAndBack retraces the route to the start by appending the existing
// waypoints in reverse. It records one history entry.
func (g *Graph) OutAndBack(ctx context.Context) error {
	opCtx, done, err := g.begin(ctx, "")
	if err != nil {
		return err
	}
	defer done()

	s := g.edit()
	n := len(s.Waypoints)
	if n < 2 {
		return nil
	}
	for i := n - 2; i >= 0; i-- {
		wp := s.Waypoints[i]
		prev := s.Waypoints[len(s.Waypoints)-1]
		seg, err := g.fetchSegment(opCtx, prev.LatLng(), wp.LatLng())
		if err != nil {
			return err
		}
		s.Waypoints = append(s.Waypoints, wp)
		s.Segments = append(s.Segments, seg)
	}
	g.commit(s, true)
	return nil
}

// LoopBack closes the route by routing from the last waypoint back to the
// first, preferring the candidate that shares the least road with the way
// out. It does nothing when the ends already meet.
func (g *Graph) LoopBack(ctx context.Context) error {
	opCtx, done, err := g.begin(ctx, slotLoop)
	if err != nil {
		return err
	}
	defer done()

	s := g.edit()
	if len(s.Waypoints) < 2 {
		return hubErrors.ErrValidation.WithMessage("a loop needs at least 2 waypoints")
	}
	first, last := s.Waypoints[0], s.Waypoints[len(s.Waypoints)-1]
	if geo.SameSpot(first.LatLng(), last.LatLng(), loopTolerance) {
		return nil
	}

	var avoid []geo.LatLng
	for _, seg := range s.Segments {
		avoid = append(avoid, geo.SampleEvery(seg.Points, avoidSpacing)...)
	}
	req := routing.Request{From: last.LatLng(), To: first.LatLng(), Alternatives: true, Avoid: avoid}

	routes, rerr := g.candidates(opCtx, req)
	if stop := stopped(opCtx); stop != nil {
		return stop
	}
	if len(routes) == 0 && len(avoid) > 0 {
		g.emit(Notice{Kind: NoticeAvoidIgnored, From: req.From, To: req.To, Err: rerr})
		req.Avoid = nil
		routes, rerr = g.candidates(opCtx, req)
		if stop := stopped(opCtx); stop != nil {
			return stop
		}
	}

	var seg Segment
	if best, ok := routing.SelectLeastOverlap(routes, s.Points()); ok {
		seg = segmentFromRoute(best)
	} else {
		seg = g.fallback(req.From, req.To, rerr)
	}
	s.Waypoints = append(s.Waypoints, first)
	s.Segments = append(s.Segments, seg)
	g.commit(s, true)
	return nil
}

// RefetchAll re-routes every leg in order, typically after SetProvider. It
// does not record history.
func (g *Graph) RefetchAll(ctx context.Context) error {
	opCtx, done, err := g.begin(ctx, slotRefetch)
	if err != nil {
		return err
	}
	defer done()

	s := g.edit()
	for i := range s.Segments {
		seg, err := g.fetchSegment(opCtx, s.Waypoints[i].LatLng(), s.Waypoints[i+1].LatLng())
		if err != nil {
			return err
		}
		s.Segments[i] = seg
	}
	g.commit(s, false)
	return nil
}

// AddPOI inserts a named waypoint into the segment passing closest to the
// point of interest. It returns the new waypoint's index, or -1 when the
// route has no segments yet.
func (g *Graph) AddPOI(ctx context.Context, lat, lng float64, name string) (int, error) {
	wp, err := newWaypoint(lat, lng, name)
	if err != nil {
		return -1, err
	}

	opCtx, done, err := g.begin(ctx, "")
	if err != nil {
		return -1, err
	}
	defer done()

	s := g.edit()
	if len(s.Segments) == 0 {
		return -1, nil
	}
	best, bestDist := 0, math.Inf(1)
	for i, seg := range s.Segments {
		for _, p := range seg.Points {
			if d := geo.SquaredDegreeDistance(p, wp.LatLng()); d < bestDist {
				best, bestDist = i, d
			}
		}
	}
	if err := g.split(opCtx, &s, best, wp); err != nil {
		return -1, err
	}
	g.commit(s, true)
	return best + 1, nil
}
