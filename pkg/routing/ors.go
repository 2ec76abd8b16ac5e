package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/geo"
)

const DefaultORSBaseURL = "https://api.openrouteservice.org"

const (
	// maxAvoidPolygons keeps ORS requests under its polygon complexity limit.
	maxAvoidPolygons = 50
	avoidBufferDeg   = 0.001
	orsTargetCount   = 2
)

// ORS queries the OpenRouteService v2 directions API. Plain requests use
// GET with the key in the query; avoid requests POST avoid_polygons.
type ORS struct {
	httpEngine
	apiKey string
}

func NewORS(baseURL, profile, apiKey string, client *http.Client) (*ORS, error) {
	p, err := LookupProfile(EngineORS, profile)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		return nil, hubErrors.ErrRoutingAuthFailed.WithMessage("OpenRouteService requires an API key")
	}
	if baseURL == "" {
		baseURL = DefaultORSBaseURL
	}
	return &ORS{httpEngine: newHTTPEngine(p, baseURL, client), apiKey: apiKey}, nil
}

type orsAlternatives struct {
	TargetCount int `json:"target_count"`
}

type orsOptions struct {
	AvoidPolygons *geojson.Geometry `json:"avoid_polygons,omitempty"`
}

type orsRequest struct {
	Coordinates       [][2]float64     `json:"coordinates"`
	AlternativeRoutes *orsAlternatives `json:"alternative_routes,omitempty"`
	Options           *orsOptions      `json:"options,omitempty"`
}

func (o *ORS) endpoint() string {
	return o.baseURL + "/v2/directions/" + o.profile.Name
}

func (o *ORS) Route(ctx context.Context, req Request) ([]Route, error) {
	var (
		httpReq *http.Request
		err     error
	)
	if len(req.Avoid) > 0 {
		httpReq, err = o.postRequest(ctx, req)
	} else {
		httpReq, err = o.getRequest(ctx, req)
	}
	if err != nil {
		return nil, hubErrors.ErrInternal.WithMessage("build ORS request").WithCause(err)
	}

	var fc geojson.FeatureCollection
	ok, err := o.fetchJSON(httpReq, &fc)
	if err != nil || !ok {
		return nil, err
	}
	routes := lineFeatures(fc, orsSummary)
	if len(routes) > 1 && !req.Alternatives {
		routes = routes[:1]
	}
	return routes, nil
}

func (o *ORS) getRequest(ctx context.Context, req Request) (*http.Request, error) {
	q := url.Values{}
	q.Set("api_key", o.apiKey)
	q.Set("start", lngLat(req.From))
	q.Set("end", lngLat(req.To))
	if req.Alternatives {
		alt, _ := json.Marshal(orsAlternatives{TargetCount: orsTargetCount})
		q.Set("alternative_routes", string(alt))
	}
	return http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint()+"?"+q.Encode(), nil)
}

func (o *ORS) postRequest(ctx context.Context, req Request) (*http.Request, error) {
	body := orsRequest{
		Coordinates: [][2]float64{{req.From.Lng, req.From.Lat}, {req.To.Lng, req.To.Lat}},
		Options:     &orsOptions{AvoidPolygons: geojson.NewGeometry(AvoidPolygons(req.Avoid, avoidBufferDeg, maxAvoidPolygons))},
	}
	if req.Alternatives {
		body.AlternativeRoutes = &orsAlternatives{TargetCount: orsTargetCount}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint()+"/geojson", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", o.apiKey)
	return httpReq, nil
}

func orsSummary(props geojson.Properties) (dist, dur float64) {
	summary, ok := props["summary"].(map[string]any)
	if !ok {
		return 0, 0
	}
	dist, _ = summary["distance"].(float64)
	dur, _ = summary["duration"].(float64)
	return dist, dur
}

// AvoidPolygons builds a square of +/- buffer degrees around each of the
// first max points.
func AvoidPolygons(points []geo.LatLng, buffer float64, max int) orb.MultiPolygon {
	if len(points) > max {
		points = points[:max]
	}
	mp := make(orb.MultiPolygon, 0, len(points))
	for _, p := range points {
		ring := orb.Ring{
			{p.Lng - buffer, p.Lat - buffer},
			{p.Lng + buffer, p.Lat - buffer},
			{p.Lng + buffer, p.Lat + buffer},
			{p.Lng - buffer, p.Lat + buffer},
			{p.Lng - buffer, p.Lat - buffer},
		}
		mp = append(mp, orb.Polygon{ring})
	}
	return mp
}
