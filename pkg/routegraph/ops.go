package routegraph

import (
	"context"
	"math"
	"slices"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
)

func newWaypoint(lat, lng float64, name string) (Waypoint, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Waypoint{}, hubErrors.ErrValidation.WithMessagef("invalid coordinate %v,%v", lat, lng)
	}
	return Waypoint{Lat: lat, Lng: lng, Name: name}, nil
}

// AppendWaypoint adds a waypoint at the end and routes the new last leg.
func (g *Graph) AppendWaypoint(ctx context.Context, lat, lng float64) error {
	wp, err := newWaypoint(lat, lng, "")
	if err != nil {
		return err
	}

	opCtx, done, err := g.begin(ctx, "")
	if err != nil {
		return err
	}
	defer done()

	s := g.edit()
	s.Waypoints = append(s.Waypoints, wp)
	if n := len(s.Waypoints); n >= 2 {
		seg, err := g.fetchSegment(opCtx, s.Waypoints[n-2].LatLng(), wp.LatLng())
		if err != nil {
			return err
		}
		s.Segments = append(s.Segments, seg)
	}
	g.commit(s, true)
	return nil
}

// InsertWaypoint splits segment afterIndex with a new waypoint. Both new
// legs are routed before either replaces the old segment.
func (g *Graph) InsertWaypoint(ctx context.Context, afterIndex int, lat, lng float64) error {
	wp, err := newWaypoint(lat, lng, "")
	if err != nil {
		return err
	}

	opCtx, done, err := g.begin(ctx, "")
	if err != nil {
		return err
	}
	defer done()

	s := g.edit()
	if err := g.split(opCtx, &s, afterIndex, wp); err != nil {
		return err
	}
	g.commit(s, true)
	return nil
}

// split inserts wp between waypoints afterIndex and afterIndex+1.
func (g *Graph) split(ctx context.Context, s *Snapshot, afterIndex int, wp Waypoint) error {
	if afterIndex < 0 || afterIndex >= len(s.Segments) {
		return hubErrors.ErrValidation.WithMessagef("no segment %d to insert into (have %d)", afterIndex, len(s.Segments))
	}
	prev, next := s.Waypoints[afterIndex], s.Waypoints[afterIndex+1]
	segs, err := g.fetchLegs(ctx, []leg{
		{prev.LatLng(), wp.LatLng()},
		{wp.LatLng(), next.LatLng()},
	})
	if err != nil {
		return err
	}
	s.Waypoints = slices.Insert(s.Waypoints, afterIndex+1, wp)
	s.Segments = slices.Replace(s.Segments, afterIndex, afterIndex+1, segs...)
	return nil
}

// RemoveWaypoint deletes the waypoint at index. Removing an endpoint drops
// its segment; removing an interior waypoint routes a fresh leg between its
// neighbours.
func (g *Graph) RemoveWaypoint(ctx context.Context, index int) error {
	opCtx, done, err := g.begin(ctx, "")
	if err != nil {
		return err
	}
	defer done()

	s := g.edit()
	if index < 0 || index >= len(s.Waypoints) {
		return hubErrors.ErrValidation.WithMessagef("no waypoint %d (have %d)", index, len(s.Waypoints))
	}
	s.Waypoints = slices.Delete(s.Waypoints, index, index+1)

	switch remaining := len(s.Waypoints); {
	case remaining < 2:
		s.Segments = nil
	case index == 0:
		s.Segments = slices.Delete(s.Segments, 0, 1)
	case index == remaining:
		s.Segments = slices.Delete(s.Segments, index-1, index)
	default:
		seg, err := g.fetchSegment(opCtx, s.Waypoints[index-1].LatLng(), s.Waypoints[index].LatLng())
		if err != nil {
			return err
		}
		s.Segments = slices.Replace(s.Segments, index-1, index+1, seg)
	}
	g.commit(s, true)
	return nil
}

// MoveWaypoint repositions a waypoint and re-routes the legs touching it.
// A newer move of the same waypoint supersedes this one, which then returns
// ErrSuperseded without committing.
func (g *Graph) MoveWaypoint(ctx context.Context, index int, lat, lng float64) error {
	wp, err := newWaypoint(lat, lng, "")
	if err != nil {
		return err
	}

	opCtx, done, err := g.begin(ctx, moveSlot(index))
	if err != nil {
		return err
	}
	defer done()

	s := g.edit()
	n := len(s.Waypoints)
	if index < 0 || index >= n {
		return hubErrors.ErrValidation.WithMessagef("no waypoint %d (have %d)", index, n)
	}
	s.Waypoints[index] = wp

	var (
		legs    []leg
		targets []int
	)
	if index > 0 {
		legs = append(legs, leg{s.Waypoints[index-1].LatLng(), wp.LatLng()})
		targets = append(targets, index-1)
	}
	if index < n-1 {
		legs = append(legs, leg{wp.LatLng(), s.Waypoints[index+1].LatLng()})
		targets = append(targets, index)
	}
	segs, err := g.fetchLegs(opCtx, legs)
	if err != nil {
		return err
	}
	for i, target := range targets {
		s.Segments[target] = segs[i]
	}
	g.commit(s, true)
	return nil
}

// Reverse flips the route direction, including each segment's points and
// the elevation profile. Routes with fewer than two waypoints are left
// alone.
func (g *Graph) Reverse() {
	g.opMu.Lock()
	defer g.opMu.Unlock()

	s := g.Snapshot()
	if len(s.Waypoints) < 2 {
		return
	}
	slices.Reverse(s.Waypoints)
	slices.Reverse(s.Segments)
	for i := range s.Segments {
		s.Segments[i] = s.Segments[i].reversed()
	}
	if !s.Elevation.Empty() {
		s.Elevation = s.Elevation.Reverse(s.Totals().DistanceMeters)
	}
	g.commit(s, true)
}

// Clear empties the graph and its history, superseding any in-flight edit.
func (g *Graph) Clear() {
	g.cancelInflight()
	g.opMu.Lock()
	defer g.opMu.Unlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = Snapshot{}
	g.history.reset()
}

// Load replaces the graph with s, for saved routes and imports. History is
// reset to the loaded state.
func (g *Graph) Load(s Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	g.cancelInflight()
	g.opMu.Lock()
	defer g.opMu.Unlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = s.Clone()
	g.history.reset()
	g.history.push(g.state)
	return nil
}
