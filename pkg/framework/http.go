package framework

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/xpayn3/cyclinghub-server/pkg/bootstrap"
	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
)

// HTTPHandlerFunc writes its own success response. A returned error is
// rendered by WrapHTTP, so the handler must not have written anything.
type HTTPHandlerFunc func(w http.ResponseWriter, r *http.Request, fwCtx *FrameworkContext) (interface{}, error)

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Retryable bool              `json:"retryable"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// WrapHTTP is WrapCloudEvent for HTTP functions.
func WrapHTTP(serviceName string, svc *bootstrap.Service, handler HTTPHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		fwCtx := start(ctx, serviceName, svc, "http", map[string]string{
			"method": r.Method,
			"path":   r.URL.Path,
		})

		outputs, handlerErr := handler(w, r, fwCtx)
		if handlerErr != nil {
			WriteError(w, handlerErr)
		}
		_ = finish(ctx, fwCtx, outputs, handlerErr)
	}
}

// HTTPStatus maps an error code to a response status.
func HTTPStatus(err error) int {
	switch hubErrors.GetCode(err) {
	case hubErrors.CodeValidationError,
		hubErrors.CodeEmptyExportInput,
		hubErrors.CodeInvalidFieldValue,
		hubErrors.CodeInvalidFormat:
		return http.StatusBadRequest
	case hubErrors.CodeRouteNotFound:
		return http.StatusNotFound
	case hubErrors.CodeOperationSuperseded:
		return http.StatusConflict
	case hubErrors.CodeRoutingRateLimited:
		return http.StatusTooManyRequests
	case hubErrors.CodeRoutingUnavailable,
		hubErrors.CodeRoutingAuthFailed,
		hubErrors.CodeElevationUnavailable:
		return http.StatusBadGateway
	case hubErrors.CodeTimeoutError:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func WriteError(w http.ResponseWriter, err error) {
	body := ErrorResponse{
		Error:     err.Error(),
		Code:      string(hubErrors.GetCode(err)),
		Retryable: hubErrors.IsRetryable(err),
	}
	var hubErr *hubErrors.HubError
	if stderrors.As(err, &hubErr) {
		body.Metadata = hubErr.Metadata
	}
	WriteJSON(w, HTTPStatus(err), body)
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
