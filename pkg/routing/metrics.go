package routing

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
)

var (
	// RouteRequestsTotal counts provider calls by provider and outcome.
	RouteRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cyclinghub_route_requests_total",
		Help: "Total number of routing provider requests",
	}, []string{"provider", "outcome"})

	// RouteRequestDuration tracks provider latency.
	RouteRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cyclinghub_route_request_duration_seconds",
		Help:    "Time spent waiting on routing providers",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	}, []string{"provider"})

	// RouteCacheLookupsTotal counts cache lookups by result.
	RouteCacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cyclinghub_route_cache_lookups_total",
		Help: "Route cache lookups by result (hit, miss, error)",
	}, []string{"result"})
)

// Outcome labels.
const (
	OutcomeOK         = "ok"
	OutcomeNoRoute    = "no_route"
	OutcomeSuperseded = "superseded"
)

// InstrumentedProvider records request counts and latency for Next.
type InstrumentedProvider struct {
	Next Provider
}

func NewInstrumentedProvider(next Provider) *InstrumentedProvider {
	return &InstrumentedProvider{Next: next}
}

func (p *InstrumentedProvider) Name() string { return p.Next.Name() }

func (p *InstrumentedProvider) Route(ctx context.Context, req Request) ([]Route, error) {
	start := time.Now()
	routes, err := p.Next.Route(ctx, req)
	RouteRequestDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
	RouteRequestsTotal.WithLabelValues(p.Name(), outcome(routes, err)).Inc()
	return routes, err
}

func outcome(routes []Route, err error) string {
	switch {
	case err == nil && len(routes) == 0:
		return OutcomeNoRoute
	case err == nil:
		return OutcomeOK
	case stderrors.Is(err, context.Canceled):
		return OutcomeSuperseded
	default:
		return strings.ToLower(string(hubErrors.GetCode(err)))
	}
}
