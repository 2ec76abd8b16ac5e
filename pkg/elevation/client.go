package elevation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/geo"
)

const (
	DefaultBaseURL   = "https://api.open-elevation.com"
	defaultBatchSize = 100
	maxParallel      = 4
)

// Lookup resolves elevations for a list of points, in order.
type Lookup interface {
	Lookup(ctx context.Context, points []geo.LatLng) ([]float64, error)
}

// Client talks to an Open-Elevation compatible lookup endpoint.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	BatchSize  int
	Logger     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
		BatchSize:  defaultBatchSize,
		Logger:     slog.Default().With("component", "elevation"),
	}
}

type location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type lookupRequest struct {
	Locations []location `json:"locations"`
}

type lookupResponse struct {
	Results []struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Elevation float64 `json:"elevation"`
	} `json:"results"`
}

// Lookup splits points into batches and fetches them concurrently.
func (c *Client) Lookup(ctx context.Context, points []geo.LatLng) ([]float64, error) {
	if len(points) == 0 {
		return nil, nil
	}
	size := c.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}

	out := make([]float64, len(points))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for start := 0; start < len(points); start += size {
		end := min(start+size, len(points))
		g.Go(func() error {
			elevs, err := c.lookupBatch(ctx, points[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], elevs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) lookupBatch(ctx context.Context, points []geo.LatLng) ([]float64, error) {
	req := lookupRequest{Locations: make([]location, len(points))}
	for i, p := range points {
		req.Locations[i] = location{Latitude: p.Lat, Longitude: p.Lng}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, hubErrors.ErrInternal.WithMessage("marshal elevation request").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/lookup", bytes.NewReader(body))
	if err != nil {
		return nil, hubErrors.ErrInternal.WithMessage("build elevation request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, hubErrors.ErrElevationUnavailable.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if c.Logger != nil {
			c.Logger.Warn("Elevation lookup failed", "status", resp.StatusCode, "body", string(snippet))
		}
		return nil, hubErrors.ErrElevationUnavailable.WithMessagef("lookup returned status %d", resp.StatusCode)
	}

	var decoded lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, hubErrors.ErrElevationUnavailable.WithMessage("decode lookup response").WithCause(err)
	}
	if len(decoded.Results) != len(points) {
		return nil, hubErrors.ErrElevationUnavailable.WithMessage(
			fmt.Sprintf("expected %d results, got %d", len(points), len(decoded.Results)))
	}
	elevs := make([]float64, len(points))
	for i, r := range decoded.Results {
		elevs[i] = r.Elevation
	}
	return elevs, nil
}

// BuildProfile samples points, looks up their elevations and computes grades.
func BuildProfile(ctx context.Context, lookup Lookup, points []geo.LatLng) (Profile, error) {
	if len(points) == 0 {
		return Profile{}, nil
	}
	sampled := SamplePoints(points, DefaultSamples)
	elevs, err := lookup.Lookup(ctx, sampled)
	if err != nil {
		return Profile{}, err
	}
	return FromElevations(sampled, elevs), nil
}
