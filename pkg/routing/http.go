package routing

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/geo"
)

// httpEngine holds what every HTTP-backed provider shares.
type httpEngine struct {
	profile Profile
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func newHTTPEngine(profile Profile, baseURL string, client *http.Client) httpEngine {
	if client == nil {
		client = http.DefaultClient
	}
	return httpEngine{
		profile: profile,
		baseURL: baseURL,
		client:  client,
		logger:  slog.Default().With("component", "routing", "engine", string(profile.Engine)),
	}
}

func (h *httpEngine) Name() string { return h.profile.String() }

func (h *httpEngine) fail(base *hubErrors.HubError) *hubErrors.HubError {
	return base.WithMetadata("engine", string(h.profile.Engine))
}

// fetchJSON executes req and decodes a JSON body into out. A 4xx other
// than auth and rate-limit responses means "no route" and reports false.
func (h *httpEngine) fetchJSON(req *http.Request, out any) (bool, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, h.fail(hubErrors.ErrRoutingUnavailable).WithCause(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return false, h.fail(hubErrors.ErrRoutingRateLimited)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, h.fail(hubErrors.ErrRoutingAuthFailed).WithMessagef("%s rejected the API key", h.profile.Engine)
	case resp.StatusCode >= 500:
		return false, h.fail(hubErrors.ErrRoutingUnavailable).WithMessagef("%s returned status %d", h.profile.Engine, resp.StatusCode)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		h.logger.Debug("No route", "status", resp.StatusCode, "body", string(body))
		return false, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, h.fail(hubErrors.ErrRoutingUnavailable).WithMessage("decode response").WithCause(err)
	}
	return true, nil
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// lngLat formats a point in the lng,lat order every engine expects.
func lngLat(p geo.LatLng) string {
	return coord(p.Lng) + "," + coord(p.Lat)
}
