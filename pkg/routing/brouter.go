package routing

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/geo"
)

const DefaultBRouterBaseURL = "https://brouter.de/brouter"

// nogoRadiusMeters is the radius of each BRouter nogo circle.
const nogoRadiusMeters = 100

// BRouter queries a BRouter server in GeoJSON mode. Alternatives are a
// second request with alternativeidx=1; avoid points become nogo circles.
type BRouter struct {
	httpEngine
}

func NewBRouter(baseURL, profile string, client *http.Client) (*BRouter, error) {
	p, err := LookupProfile(EngineBRouter, profile)
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = DefaultBRouterBaseURL
	}
	return &BRouter{httpEngine: newHTTPEngine(p, baseURL, client)}, nil
}

func (b *BRouter) Route(ctx context.Context, req Request) ([]Route, error) {
	main, err := b.fetch(ctx, req, 0)
	if err != nil || main == nil {
		return nil, err
	}
	out := []Route{*main}
	if !req.Alternatives {
		return out, nil
	}
	alt, err := b.fetch(ctx, req, 1)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		b.logger.Debug("Alternative route unavailable", "error", err)
	}
	if alt != nil {
		out = append(out, *alt)
	}
	return out, nil
}

func (b *BRouter) fetch(ctx context.Context, req Request, altIdx int) (*Route, error) {
	q := url.Values{}
	q.Set("lonlats", lngLat(req.From)+"|"+lngLat(req.To))
	q.Set("profile", b.profile.Name)
	q.Set("alternativeidx", strconv.Itoa(altIdx))
	q.Set("format", "geojson")
	if len(req.Avoid) > 0 {
		q.Set("nogos", Nogos(req.Avoid))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, hubErrors.ErrInternal.WithMessage("build BRouter request").WithCause(err)
	}

	var fc geojson.FeatureCollection
	ok, err := b.fetchJSON(httpReq, &fc)
	if err != nil || !ok {
		return nil, err
	}
	return firstLineFeature(fc, brouterSummary)
}

// Nogos renders avoid points as BRouter nogo circles.
func Nogos(points []geo.LatLng) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = lngLat(p) + "," + strconv.Itoa(nogoRadiusMeters)
	}
	return strings.Join(parts, "|")
}

// brouterSummary reads the string-typed track-length and total-time
// properties. A missing or malformed length returns -1 so lineFeatures
// measures the geometry instead.
func brouterSummary(props geojson.Properties) (dist, dur float64) {
	raw := props.MustString("track-length", "")
	dist, err := strconv.ParseFloat(raw, 64)
	if err != nil || dist < 0 {
		slog.Debug("BRouter track-length unusable, measuring geometry", "track_length", raw, "error", err)
		dist = -1
	}
	dur, _ = strconv.ParseFloat(props.MustString("total-time", "0"), 64)
	return dist, dur
}

// firstLineFeature converts the first LineString feature of fc to a Route.
// It reports nil when there is none.
func firstLineFeature(fc geojson.FeatureCollection, summary func(geojson.Properties) (float64, float64)) (*Route, error) {
	routes := lineFeatures(fc, summary)
	if len(routes) == 0 {
		return nil, nil
	}
	return &routes[0], nil
}

func lineFeatures(fc geojson.FeatureCollection, summary func(geojson.Properties) (float64, float64)) []Route {
	var out []Route
	for _, f := range fc.Features {
		ls, ok := f.Geometry.(orb.LineString)
		if !ok || len(ls) == 0 {
			continue
		}
		dist, dur := summary(f.Properties)
		points := geo.FromLineString(ls)
		if dist < 0 {
			dist = geo.PathLength(points)
		}
		out = append(out, Route{Points: points, Distance: dist, Duration: dur})
	}
	return out
}
