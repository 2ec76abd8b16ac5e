package routing

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
)

// Options selects and configures a provider stack.
type Options struct {
	Engine         Engine
	Profile        string
	OSRMBaseURL    string
	BRouterBaseURL string
	ORSBaseURL     string
	ORSAPIKey      string
	Timeout        time.Duration

	// Redis enables the result cache when non-nil.
	Redis    redis.Cmdable
	CacheTTL time.Duration
}

// NewFromConfig builds the engine named by opts, wrapped in metrics and,
// when configured, the Redis cache.
func NewFromConfig(opts Options) (Provider, error) {
	client := &http.Client{Timeout: opts.Timeout}

	var (
		base Provider
		err  error
	)
	switch opts.Engine {
	case EngineOSRM, "":
		base, err = NewOSRM(opts.OSRMBaseURL, opts.Profile, client)
	case EngineBRouter:
		base, err = NewBRouter(opts.BRouterBaseURL, opts.Profile, client)
	case EngineORS:
		base, err = NewORS(opts.ORSBaseURL, opts.Profile, opts.ORSAPIKey, client)
	default:
		return nil, hubErrors.ErrValidation.WithMessagef("unknown routing engine %q", opts.Engine)
	}
	if err != nil {
		return nil, err
	}

	var p Provider = NewInstrumentedProvider(base)
	if opts.Redis != nil {
		p = NewCachingProvider(p, opts.Redis, opts.CacheTTL)
	}
	return p, nil
}
