// Package storage defines saved routes and the stores that persist them.
package storage

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xpayn3/cyclinghub-server/pkg/elevation"
	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/routegraph"
)

// DefaultRouteName is used when a route is saved without a name.
const DefaultRouteName = "My Route"

// SavedRoute is a persisted route with its stats at save time.
type SavedRoute struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	CreatedAt      time.Time             `json:"ts"`
	Profile        string                `json:"profile,omitempty"`
	Waypoints      []routegraph.Waypoint `json:"waypoints"`
	Segments       []routegraph.Segment  `json:"segments"`
	Elevation      elevation.Profile     `json:"elevationData"`
	DistanceMeters float64               `json:"distance"`
	ElevGain       float64               `json:"elevGain"`
	ElevLoss       float64               `json:"elevLoss"`
}

// NewRoute captures snapshot under a fresh id.
func NewRoute(name string, snapshot routegraph.Snapshot, profile string) (*SavedRoute, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	if len(snapshot.Waypoints) < 2 {
		return nil, hubErrors.ErrValidation.WithMessage("add at least 2 waypoints")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultRouteName
	}

	s := snapshot.Clone()
	gain, loss := s.Elevation.GainLoss()
	return &SavedRoute{
		ID:             uuid.NewString(),
		Name:           name,
		CreatedAt:      time.Now().UTC(),
		Profile:        profile,
		Waypoints:      s.Waypoints,
		Segments:       s.Segments,
		Elevation:      s.Elevation,
		DistanceMeters: s.Totals().DistanceMeters,
		ElevGain:       gain,
		ElevLoss:       loss,
	}, nil
}

// Snapshot returns the graph state to load back into an editor.
func (r *SavedRoute) Snapshot() routegraph.Snapshot {
	return routegraph.Snapshot{
		Waypoints: r.Waypoints,
		Segments:  r.Segments,
		Elevation: r.Elevation,
	}.Clone()
}

// RouteStore persists saved routes. Get and Delete return RouteNotFound for
// unknown ids.
type RouteStore interface {
	SaveRoute(ctx context.Context, r *SavedRoute) error
	GetRoute(ctx context.Context, id string) (*SavedRoute, error)
	ListRoutes(ctx context.Context) ([]*SavedRoute, error)
	DeleteRoute(ctx context.Context, id string) error
}

// SortNewestFirst orders routes by creation time, newest first.
func SortNewestFirst(routes []*SavedRoute) {
	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].CreatedAt.After(routes[j].CreatedAt)
	})
}

// NotFound builds the error stores return for a missing id.
func NotFound(id string) error {
	return hubErrors.ErrRouteNotFound.WithMetadata("route_id", id)
}
