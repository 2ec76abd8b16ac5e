// Package routegraph maintains an ordered list of waypoints and the routed
// segments between each adjacent pair, with linear undo/redo.
//
// Every mutation keeps len(segments) == max(0, len(waypoints)-1). Routing
// failures never surface as errors: the affected leg becomes a straight-line
// fallback segment and the injected Notifier is told about it.
package routegraph

import (
	"log/slog"
	"sync"

	"github.com/xpayn3/cyclinghub-server/pkg/elevation"
	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/geo"
	"github.com/xpayn3/cyclinghub-server/pkg/routing"
)

// Waypoint is a user-placed anchor. Identity is positional.
type Waypoint struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Name string  `json:"name,omitempty"`
}

func (w Waypoint) LatLng() geo.LatLng { return geo.LatLng{Lat: w.Lat, Lng: w.Lng} }

// Segment is the path between two adjacent waypoints.
type Segment struct {
	Points          []geo.LatLng         `json:"points"`
	DistanceMeters  float64              `json:"distance"`
	DurationSeconds float64              `json:"duration"`
	IsFallback      bool                 `json:"fallback,omitempty"`
	Annotations     *routing.Annotations `json:"annotations,omitempty"`
}

func (s Segment) clone() Segment {
	out := s
	out.Points = append([]geo.LatLng(nil), s.Points...)
	if s.Annotations != nil {
		out.Annotations = &routing.Annotations{Speed: append([]float64(nil), s.Annotations.Speed...)}
	}
	return out
}

func (s Segment) reversed() Segment {
	out := s.clone()
	out.Points = geo.Reversed(s.Points)
	if out.Annotations != nil {
		speeds := out.Annotations.Speed
		for i, j := 0, len(speeds)-1; i < j; i, j = i+1, j-1 {
			speeds[i], speeds[j] = speeds[j], speeds[i]
		}
	}
	return out
}

// FallbackSegment is the straight connector used when no route is available.
func FallbackSegment(from, to geo.LatLng) Segment {
	return Segment{
		Points:         []geo.LatLng{from, to},
		DistanceMeters: geo.Haversine(from, to),
		IsFallback:     true,
	}
}

func segmentFromRoute(r routing.Route) Segment {
	return Segment{
		Points:          append([]geo.LatLng(nil), r.Points...),
		DistanceMeters:  r.Distance,
		DurationSeconds: r.Duration,
		Annotations:     r.Annotations,
	}
}

// Snapshot is a full copy of the graph state. Elevation is optional and is
// dropped by any edit that changes the route geometry.
type Snapshot struct {
	Waypoints []Waypoint        `json:"waypoints"`
	Segments  []Segment         `json:"segments"`
	Elevation elevation.Profile `json:"elevation"`
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Waypoints: append([]Waypoint(nil), s.Waypoints...),
		Elevation: elevation.Profile{Samples: append([]elevation.Sample(nil), s.Elevation.Samples...)},
	}
	if len(s.Segments) > 0 {
		out.Segments = make([]Segment, len(s.Segments))
		for i, seg := range s.Segments {
			out.Segments[i] = seg.clone()
		}
	}
	return out
}

// Validate checks the adjacency invariant.
func (s Snapshot) Validate() error {
	want := len(s.Waypoints) - 1
	if want < 0 {
		want = 0
	}
	if len(s.Segments) != want {
		return hubErrors.ErrValidation.WithMessagef("%d waypoints need %d segments, got %d", len(s.Waypoints), want, len(s.Segments))
	}
	for i, seg := range s.Segments {
		if len(seg.Points) == 0 {
			return hubErrors.ErrValidation.WithMessagef("segment %d has no points", i)
		}
	}
	return nil
}

// NoticeKind classifies a Notice.
type NoticeKind string

const (
	// NoticeFallback means a leg was replaced by a straight line.
	NoticeFallback NoticeKind = "fallback"
	// NoticeAvoidIgnored means a loop could not avoid the existing route
	// and was routed without avoid points.
	NoticeAvoidIgnored NoticeKind = "avoid_ignored"
)

// Notice reports a recovered routing problem. Err is nil when the provider
// simply found no route.
type Notice struct {
	Kind NoticeKind
	From geo.LatLng
	To   geo.LatLng
	Err  error
}

// Notifier receives notices. Legs fetched in parallel may call it
// concurrently, and it must not call back into the graph.
type Notifier func(Notice)

// Option configures a Graph.
type Option func(*Graph)

func WithNotifier(n Notifier) Option {
	return func(g *Graph) { g.notify = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) { g.logger = logger }
}

// Graph is the route being edited. Mutations are serialized; reads never
// wait for an in-flight fetch.
type Graph struct {
	opMu sync.Mutex

	mu       sync.RWMutex
	provider routing.Provider
	state    Snapshot
	history  history

	slotMu   sync.Mutex
	nextOp   uint64
	inflight map[uint64]*operation
	slots    map[string]*operation

	notify Notifier
	logger *slog.Logger
}

// New creates an empty graph. A nil provider makes every leg a fallback.
func New(provider routing.Provider, opts ...Option) *Graph {
	g := &Graph{
		provider: provider,
		history:  newHistory(),
		inflight: make(map[uint64]*operation),
		slots:    make(map[string]*operation),
		logger:   slog.Default().With("component", "routegraph"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetProvider swaps the routing provider. Existing segments are kept; call
// RefetchAll to re-route them.
func (g *Graph) SetProvider(p routing.Provider) {
	g.mu.Lock()
	g.provider = p
	g.mu.Unlock()
}

func (g *Graph) currentProvider() routing.Provider {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.provider
}

// Snapshot returns a deep copy of the current state.
func (g *Graph) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.Clone()
}

// Waypoints returns a copy of the waypoint list.
func (g *Graph) Waypoints() []Waypoint {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Waypoint(nil), g.state.Waypoints...)
}

// Segments returns a deep copy of the segment list.
func (g *Graph) Segments() []Segment {
	return g.Snapshot().Segments
}

// Elevation returns the attached profile, which may be empty.
func (g *Graph) Elevation() elevation.Profile {
	return g.Snapshot().Elevation
}

// SetElevation attaches a profile to the current state and history entry, so
// undo and redo bring it back with the geometry it was built for.
func (g *Graph) SetElevation(p elevation.Profile) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.Elevation = elevation.Profile{Samples: append([]elevation.Sample(nil), p.Samples...)}
	g.history.replaceElevation(g.state.Elevation)
}

// commit installs next and records it. Callers hold opMu.
func (g *Graph) commit(next Snapshot, record bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = next
	if record {
		g.history.push(next)
	}
}

// edit returns a private copy of the state for an operation to mutate.
// Geometry edits drop the elevation profile.
func (g *Graph) edit() Snapshot {
	s := g.Snapshot()
	s.Elevation = elevation.Profile{}
	return s
}

func (g *Graph) emit(n Notice) {
	if g.notify != nil {
		g.notify(n)
	}
}
