package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/google/uuid"

	"github.com/xpayn3/cyclinghub-server/pkg/bootstrap"
	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/export"
	"github.com/xpayn3/cyclinghub-server/pkg/fit"
	"github.com/xpayn3/cyclinghub-server/pkg/framework"
	infrapubsub "github.com/xpayn3/cyclinghub-server/pkg/infrastructure/pubsub"
	"github.com/xpayn3/cyclinghub-server/pkg/routegraph"
	"github.com/xpayn3/cyclinghub-server/pkg/types"
	"github.com/xpayn3/cyclinghub-server/pkg/workout"
)

const (
	serviceName  = "exporter"
	maxBodyBytes = 10 << 20
)

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.HTTP("Export", Export)
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

// Export is the entry point
func Export(w http.ResponseWriter, r *http.Request) {
	svc, err := initService(r.Context())
	if err != nil {
		framework.WriteError(w, hubErrors.ErrInternal.WithMessage("service init failed").WithCause(err))
		return
	}
	framework.WrapHTTP(serviceName, svc, exportHandler(fit.NewEncoder()))(w, r)
}

// routeRequest carries either an inline graph snapshot or a saved route id.
type routeRequest struct {
	Name    string               `json:"name"`
	RouteID string               `json:"route_id,omitempty"`
	Route   *routegraph.Snapshot `json:"route,omitempty"`
}

type workoutRequest struct {
	Plan workout.Plan `json:"plan"`
	FTP  float64      `json:"ftp,omitempty"`
}

var formatsByPath = map[string]types.ExportFormat{
	"/course":  types.FormatFITCourse,
	"/gpx":     types.FormatGPX,
	"/geojson": types.FormatGeoJSON,
	"/workout": types.FormatFITWorkout,
	"/zwo":     types.FormatZWO,
}

// artifact is one rendered export.
type artifact struct {
	format  types.ExportFormat
	name    string
	routeID string
	data    []byte
}

// exportHandler contains the business logic
// enc is injectable so tests can pin timestamps
func exportHandler(enc *fit.Encoder) framework.HTTPHandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, fwCtx *framework.FrameworkContext) (interface{}, error) {
		if r.Method != http.MethodPost {
			return nil, hubErrors.ErrValidation.WithMessagef("method %s not allowed", r.Method)
		}
		format, ok := formatsByPath[strings.TrimSuffix(r.URL.Path, "/")]
		if !ok {
			return nil, hubErrors.ErrValidation.WithMessagef("unknown export %q", r.URL.Path)
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			return nil, hubErrors.ErrValidation.WithMessage("request body too large or unreadable").WithCause(err)
		}

		var art *artifact
		switch format {
		case types.FormatFITWorkout, types.FormatZWO:
			art, err = renderWorkout(format, body, enc, fwCtx)
		default:
			art, err = renderRoute(r.Context(), format, body, enc, fwCtx)
		}
		if err != nil {
			return nil, err
		}

		outputs := map[string]interface{}{
			"format":     string(art.format),
			"file_name":  art.name,
			"size_bytes": len(art.data),
		}
		if uri := storeArtifact(r.Context(), fwCtx, art); uri != "" {
			outputs["file_uri"] = uri
			w.Header().Set("X-Artifact-URI", uri)
		}

		w.Header().Set("Content-Type", art.format.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.name))
		w.Header().Set("Content-Length", strconv.Itoa(len(art.data)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(art.data); err != nil {
			fwCtx.Logger.Warn("Failed to write response", "error", err)
		}

		fwCtx.Logger.Info("Export rendered", "format", art.format, "size_bytes", len(art.data))
		return outputs, nil
	}
}

func renderRoute(ctx context.Context, format types.ExportFormat, body []byte, enc *fit.Encoder, fwCtx *framework.FrameworkContext) (*artifact, error) {
	var req routeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, hubErrors.ErrValidation.WithMessage("invalid route request").WithCause(err)
	}

	var snapshot routegraph.Snapshot
	switch {
	case req.Route != nil:
		snapshot = *req.Route
	case req.RouteID != "":
		saved, err := fwCtx.Service.Routes.GetRoute(ctx, req.RouteID)
		if err != nil {
			return nil, err
		}
		snapshot = saved.Snapshot()
		if req.Name == "" {
			req.Name = saved.Name
		}
	default:
		return nil, hubErrors.ErrEmptyExportInput.WithMessage("request has neither route nor route_id")
	}
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	data, err := export.Render(enc, format, snapshot, req.Name)
	if err != nil {
		return nil, err
	}
	return &artifact{
		format:  format,
		name:    export.FileName(encoderNow(enc), format),
		routeID: req.RouteID,
		data:    data,
	}, nil
}

func renderWorkout(format types.ExportFormat, body []byte, enc *fit.Encoder, fwCtx *framework.FrameworkContext) (*artifact, error) {
	var req workoutRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, hubErrors.ErrValidation.WithMessage("invalid workout request").WithCause(err)
	}

	var (
		data []byte
		err  error
	)
	if format == types.FormatZWO {
		data, err = workout.EncodeZWO(req.Plan)
	} else {
		ftp := req.FTP
		if ftp <= 0 && fwCtx.Service.Config != nil {
			ftp = fwCtx.Service.Config.FTPWatts
		}
		data, err = workout.EncodeWith(enc, req.Plan, ftp)
	}
	if err != nil {
		return nil, err
	}
	return &artifact{
		format: format,
		name:   workout.FileName(req.Plan.Name, "."+format.Extension()),
		data:   data,
	}, nil
}

func encoderNow(enc *fit.Encoder) time.Time {
	if enc.Now != nil {
		return enc.Now()
	}
	return time.Now()
}

// storeArtifact writes the export to the artifact bucket and announces it.
// Failures are logged; the caller still gets the file.
func storeArtifact(ctx context.Context, fwCtx *framework.FrameworkContext, art *artifact) string {
	cfg := fwCtx.Service.Config
	if cfg == nil || cfg.GCSArtifactBucket == "" || fwCtx.Service.Store == nil {
		return ""
	}

	exportID := uuid.NewString()
	object := fmt.Sprintf("exports/%s/%s", exportID, art.name)
	if err := fwCtx.Service.Store.Write(ctx, cfg.GCSArtifactBucket, object, art.data); err != nil {
		fwCtx.Logger.Warn("Failed to store artifact", "object", object, "error", err)
		return ""
	}
	uri := fmt.Sprintf("gs://%s/%s", cfg.GCSArtifactBucket, object)

	if fwCtx.Service.Pub == nil {
		return uri
	}
	payload := types.ExportCompletedEvent{
		ExportID:  exportID,
		RouteID:   art.routeID,
		Format:    art.format,
		FileURI:   uri,
		SizeBytes: len(art.data),
		CreatedAt: time.Now().UTC(),
	}
	e, err := infrapubsub.NewCloudEvent("/"+serviceName, types.EventTypeExportCompleted, payload)
	if err != nil {
		fwCtx.Logger.Warn("Failed to build export event", "error", err)
		return uri
	}
	if _, err := fwCtx.Service.Pub.PublishCloudEvent(ctx, types.TopicExportCompleted, e); err != nil {
		fwCtx.Logger.Warn("Failed to publish export event", "error", hubErrors.ErrPubSubError.WithCause(err))
	}
	return uri
}
