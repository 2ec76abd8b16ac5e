package routeplanner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/xpayn3/cyclinghub-server/pkg/bootstrap"
	"github.com/xpayn3/cyclinghub-server/pkg/elevation"
	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/export"
	"github.com/xpayn3/cyclinghub-server/pkg/fit"
	"github.com/xpayn3/cyclinghub-server/pkg/framework"
	infrapubsub "github.com/xpayn3/cyclinghub-server/pkg/infrastructure/pubsub"
	"github.com/xpayn3/cyclinghub-server/pkg/routegraph"
	"github.com/xpayn3/cyclinghub-server/pkg/routing"
	"github.com/xpayn3/cyclinghub-server/pkg/storage"
	"github.com/xpayn3/cyclinghub-server/pkg/types"
)

const serviceName = "route-planner"

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.CloudEvent("PlanRoute", PlanRoute)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	if svc != nil {
		return svc, nil
	}
	svcOnce.Do(func() {
		baseSvc, err := bootstrap.NewService(ctx)
		if err != nil {
			slog.Error("Failed to initialize service", "error", err)
			svcErr = err
			return
		}
		svc = baseSvc
	})
	return svc, svcErr
}

// PlanRoute is the entry point
func PlanRoute(ctx context.Context, e event.Event) error {
	svc, err := initService(ctx)
	if err != nil {
		return fmt.Errorf("service init failed: %v", err)
	}
	return framework.WrapCloudEvent(serviceName, svc, planHandler(fit.NewEncoder()))(ctx, e)
}

// noticeLog collects graph notices from concurrent leg fetches.
type noticeLog struct {
	mu      sync.Mutex
	notices []routegraph.Notice
}

func (l *noticeLog) add(n routegraph.Notice) {
	l.mu.Lock()
	l.notices = append(l.notices, n)
	l.mu.Unlock()
}

func (l *noticeLog) count(kind routegraph.NoticeKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, notice := range l.notices {
		if notice.Kind == kind {
			n++
		}
	}
	return n
}

// planHandler routes the requested waypoints, saves the route and writes a
// FIT course for it.
func planHandler(enc *fit.Encoder) framework.HandlerFunc {
	return func(ctx context.Context, e event.Event, fwCtx *framework.FrameworkContext) (interface{}, error) {
		var req types.PlanRequestedEvent
		if err := e.DataAs(&req); err != nil {
			return nil, hubErrors.ErrValidation.WithMessage("invalid plan request").WithCause(err)
		}
		if len(req.Waypoints) < 2 {
			return nil, hubErrors.ErrValidation.WithMessagef("need at least 2 waypoints, got %d", len(req.Waypoints))
		}

		provider, err := providerFor(ctx, fwCtx.Service, req)
		if err != nil {
			return nil, err
		}
		logger := fwCtx.Logger.With("request_id", req.RequestID, "provider", provider.Name())
		logger.Info("Planning route", "waypoints", len(req.Waypoints), "loop", req.Loop)

		notices := &noticeLog{}
		g := routegraph.New(provider,
			routegraph.WithNotifier(notices.add),
			routegraph.WithLogger(logger.With("component", "routegraph")),
		)
		for _, wp := range req.Waypoints {
			if err := g.AppendWaypoint(ctx, wp.Lat, wp.Lng); err != nil {
				return nil, err
			}
		}
		if req.Loop {
			if err := g.LoopBack(ctx); err != nil {
				return nil, err
			}
		}

		attachElevation(ctx, fwCtx.Service.Elevation, g, logger)

		snapshot := g.Snapshot()
		saved, err := storage.NewRoute(req.Name, snapshot, provider.Name())
		if err != nil {
			return nil, err
		}
		if err := fwCtx.Service.Routes.SaveRoute(ctx, saved); err != nil {
			return nil, err
		}

		summary := snapshot.Summary()
		outputs := map[string]interface{}{
			"request_id": req.RequestID,
			"route_id":   saved.ID,
			"distance":   summary.DistanceMeters,
			"elev_gain":  summary.ElevationGain,
			"fallbacks":  notices.count(routegraph.NoticeFallback),
		}

		uri, err := writeCourse(ctx, fwCtx, enc, saved, snapshot)
		if err != nil {
			return outputs, err
		}
		if uri != "" {
			outputs["file_uri"] = uri
		}
		logger.Info("Route planned", "route_id", saved.ID, "distance_m", summary.DistanceMeters, "fallbacks", outputs["fallbacks"])
		return outputs, nil
	}
}

// providerFor uses the service provider unless the request overrides the
// engine or profile.
func providerFor(ctx context.Context, svc *bootstrap.Service, req types.PlanRequestedEvent) (routing.Provider, error) {
	if req.Engine == "" && req.Profile == "" {
		return svc.Router, nil
	}
	cfg := *svc.Config
	if req.Engine != "" {
		cfg.RouterEngine = req.Engine
		cfg.RouterProfile = ""
	}
	if req.Profile != "" {
		cfg.RouterProfile = req.Profile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return bootstrap.NewRouter(ctx, &cfg, svc.Secrets, bootstrap.NewRedis(&cfg))
}

// Elevation is best effort; a route without a profile is still saved.
func attachElevation(ctx context.Context, lookup elevation.Lookup, g *routegraph.Graph, logger *slog.Logger) {
	if lookup == nil {
		return
	}
	profile, err := elevation.BuildProfile(ctx, lookup, g.Points())
	if err != nil {
		logger.Warn("Elevation lookup failed", "error", err)
		return
	}
	g.SetElevation(profile)
}

func writeCourse(ctx context.Context, fwCtx *framework.FrameworkContext, enc *fit.Encoder, saved *storage.SavedRoute, snapshot routegraph.Snapshot) (string, error) {
	cfg := fwCtx.Service.Config
	if cfg == nil || cfg.GCSArtifactBucket == "" {
		return "", nil
	}

	data, err := export.CourseFromGraph(enc, snapshot, saved.Name)
	if err != nil {
		return "", err
	}
	object := fmt.Sprintf("routes/%s/%s", saved.ID, export.FileName(saved.CreatedAt, types.FormatFITCourse))
	if err := fwCtx.Service.Store.Write(ctx, cfg.GCSArtifactBucket, object, data); err != nil {
		return "", err
	}
	uri := fmt.Sprintf("gs://%s/%s", cfg.GCSArtifactBucket, object)

	payload := types.ExportCompletedEvent{
		ExportID:  saved.ID,
		RouteID:   saved.ID,
		Format:    types.FormatFITCourse,
		FileURI:   uri,
		SizeBytes: len(data),
		CreatedAt: time.Now().UTC(),
	}
	ce, err := infrapubsub.NewCloudEvent("/"+serviceName, types.EventTypeExportCompleted, payload)
	if err != nil {
		return uri, hubErrors.ErrPubSubError.WithMessage("build export event").WithCause(err)
	}
	if _, err := fwCtx.Service.Pub.PublishCloudEvent(ctx, types.TopicExportCompleted, ce); err != nil {
		return uri, hubErrors.ErrPubSubError.WithMessage("publish export event").WithCause(err)
	}
	return uri, nil
}
