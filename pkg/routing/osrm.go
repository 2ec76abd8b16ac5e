package routing

import (
	"context"
	"fmt"
	"net/http"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/geo"
)

const DefaultOSRMBaseURL = "https://router.project-osrm.org"

// OSRM queries an OSRM /route/v1 service. It has no avoid support; callers
// wanting variety should request alternatives.
type OSRM struct {
	httpEngine
}

func NewOSRM(baseURL, profile string, client *http.Client) (*OSRM, error) {
	p, err := LookupProfile(EngineOSRM, profile)
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = DefaultOSRMBaseURL
	}
	return &OSRM{httpEngine: newHTTPEngine(p, baseURL, client)}, nil
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry string  `json:"geometry"`
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Legs     []struct {
			Annotation *struct {
				Speed []float64 `json:"speed"`
			} `json:"annotation"`
		} `json:"legs"`
	} `json:"routes"`
}

func (o *OSRM) Route(ctx context.Context, req Request) ([]Route, error) {
	url := fmt.Sprintf("%s/route/v1/%s/%s;%s?overview=full&geometries=polyline6&steps=true&annotations=true",
		o.baseURL, o.profile.Name, lngLat(req.From), lngLat(req.To))
	if req.Alternatives {
		url += "&alternatives=true"
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, hubErrors.ErrInternal.WithMessage("build OSRM request").WithCause(err)
	}

	var resp osrmResponse
	ok, err := o.fetchJSON(httpReq, &resp)
	if err != nil || !ok {
		return nil, err
	}
	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		o.logger.Debug("No route", "code", resp.Code, "message", resp.Message)
		return nil, nil
	}

	out := make([]Route, 0, len(resp.Routes))
	for _, r := range resp.Routes {
		points, err := geo.DecodePolyline6(r.Geometry)
		if err != nil {
			return nil, o.fail(hubErrors.ErrRoutingUnavailable).WithMessage("decode geometry").WithCause(err)
		}
		route := Route{Points: points, Distance: r.Distance, Duration: r.Duration}
		if len(r.Legs) > 0 && r.Legs[0].Annotation != nil {
			route.Annotations = &Annotations{Speed: r.Legs[0].Annotation.Speed}
		}
		out = append(out, route)
	}
	if !req.Alternatives {
		out = out[:1]
	}
	return out, nil
}
