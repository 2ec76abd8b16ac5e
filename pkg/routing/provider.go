// Package routing fetches cycling routes between two points from OSRM,
// BRouter and OpenRouteService, with optional caching and metrics.
package routing

import (
	"context"
	"fmt"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/geo"
)

// Engine names a routing backend.
type Engine string

const (
	EngineOSRM    Engine = "osrm"
	EngineBRouter Engine = "brouter"
	EngineORS     Engine = "ors"
)

// Request asks for a route from one point to another. Avoid carries points
// the route should stay away from; engines without avoid support ignore it.
type Request struct {
	From         geo.LatLng
	To           geo.LatLng
	Alternatives bool
	Avoid        []geo.LatLng
}

// Annotations carries per-edge data, currently only speeds in m/s.
type Annotations struct {
	Speed []float64 `json:"speed,omitempty"`
}

// Route is one candidate from a provider. Distance is metres and Duration
// seconds.
type Route struct {
	Points      []geo.LatLng `json:"points"`
	Distance    float64      `json:"distance"`
	Duration    float64      `json:"duration"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// Provider resolves routes. An empty result with a nil error means the
// engine found no route between the points.
type Provider interface {
	Name() string
	Route(ctx context.Context, req Request) ([]Route, error)
}

// Profile is a selectable engine/profile pair.
type Profile struct {
	Engine Engine `json:"engine"`
	Name   string `json:"profile"`
	Label  string `json:"label"`
}

func (p Profile) String() string { return fmt.Sprintf("%s/%s", p.Engine, p.Name) }

// Profiles lists every supported pair. The first entry per engine is its
// default.
var Profiles = []Profile{
	{EngineOSRM, "cycling", "Cycling"},
	{EngineBRouter, "fastbike", "Road"},
	{EngineBRouter, "trekking", "Trekking"},
	{EngineBRouter, "mtb", "MTB"},
	{EngineBRouter, "shortest", "Shortest"},
	{EngineBRouter, "safety", "Safety"},
	{EngineBRouter, "fastbike-lowtraffic", "Low Traffic"},
	{EngineBRouter, "fastbike-asia-pacific", "Asia-Pacific"},
	{EngineORS, "cycling-regular", "Regular"},
	{EngineORS, "cycling-road", "Road"},
	{EngineORS, "cycling-mountain", "Mountain"},
	{EngineORS, "cycling-electric", "E-Bike"},
}

// LookupProfile validates an engine/profile pair. An empty name selects
// the engine default.
func LookupProfile(engine Engine, name string) (Profile, error) {
	for _, p := range Profiles {
		if p.Engine != engine {
			continue
		}
		if name == "" || p.Name == name {
			return p, nil
		}
	}
	return Profile{}, hubErrors.ErrValidation.WithMessagef("unsupported routing profile %s/%s", engine, name)
}

// First returns the first candidate, if any.
func First(routes []Route) (Route, bool) {
	if len(routes) == 0 {
		return Route{}, false
	}
	return routes[0], true
}
