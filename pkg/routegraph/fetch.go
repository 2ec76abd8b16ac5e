package routegraph

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/xpayn3/cyclinghub-server/pkg/geo"
	"github.com/xpayn3/cyclinghub-server/pkg/routing"
)

// candidates returns the provider's usable routes. An empty result means
// the leg has to fall back; the error, if any, is the provider failure.
// Callers check stopped(ctx) before trusting either.
func (g *Graph) candidates(ctx context.Context, req routing.Request) ([]routing.Route, error) {
	p := g.currentProvider()
	if p == nil {
		return nil, nil
	}

	routes, err := p.Route(ctx, req)
	if err != nil {
		if stopped(ctx) == nil {
			g.logger.Warn("Routing failed", "provider", p.Name(), "error", err)
		}
		return nil, err
	}

	usable := make([]routing.Route, 0, len(routes))
	for _, r := range routes {
		if len(r.Points) > 0 {
			usable = append(usable, r)
		}
	}
	if len(usable) == 0 {
		g.logger.Info("No route found", "provider", p.Name())
	}
	return usable, nil
}

func (g *Graph) fallback(from, to geo.LatLng, cause error) Segment {
	g.emit(Notice{Kind: NoticeFallback, From: from, To: to, Err: cause})
	return FallbackSegment(from, to)
}

// fetchSegment routes one leg, falling back to a straight line. The error is
// set only when ctx ended.
func (g *Graph) fetchSegment(ctx context.Context, from, to geo.LatLng) (Segment, error) {
	routes, err := g.candidates(ctx, routing.Request{From: from, To: to})
	if stop := stopped(ctx); stop != nil {
		return Segment{}, stop
	}
	if r, ok := routing.First(routes); ok && err == nil {
		return segmentFromRoute(r), nil
	}
	return g.fallback(from, to, err), nil
}

type leg struct {
	from, to geo.LatLng
}

// fetchLegs routes every leg concurrently and returns only once all of them
// have either routed or fallen back.
func (g *Graph) fetchLegs(ctx context.Context, legs []leg) ([]Segment, error) {
	out := make([]Segment, len(legs))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, l := range legs {
		eg.Go(func() error {
			seg, err := g.fetchSegment(egCtx, l.from, l.to)
			out[i] = seg
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
