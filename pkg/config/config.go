// Package config loads service and CLI settings from the environment.
package config

import (
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/xpayn3/cyclinghub-server/pkg/elevation"
	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/routing"
)

// DefaultProjectID is used when GOOGLE_CLOUD_PROJECT is unset.
const DefaultProjectID = "cyclinghub-dev"

type Config struct {
	ProjectID         string `mapstructure:"GOOGLE_CLOUD_PROJECT"`
	EnablePublish     bool   `mapstructure:"ENABLE_PUBLISH"`
	GCSArtifactBucket string `mapstructure:"GCS_ARTIFACT_BUCKET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`

	RouterEngine   string `mapstructure:"ROUTER_ENGINE"`
	RouterProfile  string `mapstructure:"ROUTER_PROFILE"`
	OSRMBaseURL    string `mapstructure:"OSRM_BASE_URL"`
	BRouterBaseURL string `mapstructure:"BROUTER_BASE_URL"`
	ORSBaseURL     string `mapstructure:"ORS_BASE_URL"`
	// ORSAPIKeySecret names the secret (or env var) holding the ORS key.
	ORSAPIKeySecret string `mapstructure:"ORS_API_KEY_SECRET"`

	ElevationBaseURL string `mapstructure:"ELEVATION_BASE_URL"`

	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RouteCacheTTL time.Duration `mapstructure:"ROUTE_CACHE_TTL"`
	HTTPTimeout   time.Duration `mapstructure:"HTTP_TIMEOUT"`

	BoltPath string  `mapstructure:"BOLT_PATH"`
	FTPWatts float64 `mapstructure:"FTP_WATTS"`
}

var defaults = map[string]any{
	"GOOGLE_CLOUD_PROJECT": DefaultProjectID,
	"ENABLE_PUBLISH":       false,
	"GCS_ARTIFACT_BUCKET":  "",
	"LOG_LEVEL":            "info",
	"ROUTER_ENGINE":        string(routing.EngineOSRM),
	"ROUTER_PROFILE":       "",
	"OSRM_BASE_URL":        routing.DefaultOSRMBaseURL,
	"BROUTER_BASE_URL":     routing.DefaultBRouterBaseURL,
	"ORS_BASE_URL":         routing.DefaultORSBaseURL,
	"ORS_API_KEY_SECRET":   "ORS_API_KEY",
	"ELEVATION_BASE_URL":   elevation.DefaultBaseURL,
	"REDIS_ADDR":           "",
	"REDIS_PASSWORD":       "",
	"ROUTE_CACHE_TTL":      "24h",
	"HTTP_TIMEOUT":         "15s",
	"BOLT_PATH":            "cyclinghub.db",
	"FTP_WATTS":            200,
}

// Load reads the environment over the defaults and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, hubErrors.ErrValidation.WithMessage("invalid configuration").WithCause(err)
	}
	cfg.RouterEngine = strings.ToLower(strings.TrimSpace(cfg.RouterEngine))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := routing.LookupProfile(routing.Engine(c.RouterEngine), c.RouterProfile); err != nil {
		return err
	}
	if c.FTPWatts <= 0 {
		return hubErrors.ErrValidation.WithMessagef("FTP_WATTS must be positive, got %v", c.FTPWatts)
	}
	if c.HTTPTimeout <= 0 {
		return hubErrors.ErrValidation.WithMessage("HTTP_TIMEOUT must be positive")
	}
	return nil
}

// UsesORS reports whether the configured engine needs an API key.
func (c *Config) UsesORS() bool {
	return routing.Engine(c.RouterEngine) == routing.EngineORS
}

// RoutingOptions maps the config onto a provider stack. rdb may be nil.
func (c *Config) RoutingOptions(orsAPIKey string, rdb redis.Cmdable) routing.Options {
	return routing.Options{
		Engine:         routing.Engine(c.RouterEngine),
		Profile:        c.RouterProfile,
		OSRMBaseURL:    c.OSRMBaseURL,
		BRouterBaseURL: c.BRouterBaseURL,
		ORSBaseURL:     c.ORSBaseURL,
		ORSAPIKey:      orsAPIKey,
		Timeout:        c.HTTPTimeout,
		Redis:          rdb,
		CacheTTL:       c.RouteCacheTTL,
	}
}
