// Package bootstrap wires the shared dependencies every function needs.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"

	shared "github.com/xpayn3/cyclinghub-server/pkg"
	"github.com/xpayn3/cyclinghub-server/pkg/config"
	"github.com/xpayn3/cyclinghub-server/pkg/elevation"
	"github.com/xpayn3/cyclinghub-server/pkg/infrastructure/database"
	infrapubsub "github.com/xpayn3/cyclinghub-server/pkg/infrastructure/pubsub"
	"github.com/xpayn3/cyclinghub-server/pkg/infrastructure/secrets"
	infrastorage "github.com/xpayn3/cyclinghub-server/pkg/infrastructure/storage"
	"github.com/xpayn3/cyclinghub-server/pkg/routing"
	routestore "github.com/xpayn3/cyclinghub-server/pkg/storage"
)

// Service holds initialized dependencies
type Service struct {
	DB        shared.Database
	Routes    routestore.RouteStore
	Store     shared.BlobStore
	Pub       shared.Publisher
	Secrets   shared.SecretStore
	Router    routing.Provider
	Elevation elevation.Lookup
	Config    *config.Config
}

// NewService initializes all standard dependencies
func NewService(ctx context.Context) (*Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	InitLogger(cfg.LogLevel)

	slog.Info("Initializing service", "project_id", cfg.ProjectID, "router", cfg.RouterEngine)

	// Firestore
	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		slog.Error("Firestore init failed", "error", err)
		return nil, fmt.Errorf("firestore init: %w", err)
	}
	db := database.NewFirestoreAdapter(fsClient)

	// Pub/Sub
	var pubAdapter shared.Publisher
	if cfg.EnablePublish {
		psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			slog.Error("PubSub init failed", "error", err)
			return nil, fmt.Errorf("pubsub init: %w", err)
		}
		pubAdapter = &infrapubsub.PubSubAdapter{Client: psClient}
		slog.Info("Pub/Sub: REAL (ENABLE_PUBLISH=true)")
	} else {
		pubAdapter = &infrapubsub.LogPublisher{}
		slog.Info("Pub/Sub: MOCK (LogPublisher)")
	}

	// Storage
	gcsClient, err := storage.NewClient(ctx)
	if err != nil {
		slog.Error("Storage init failed", "error", err)
		return nil, fmt.Errorf("storage init: %w", err)
	}

	secretStore := &secrets.SecretsAdapter{}
	router, err := NewRouter(ctx, cfg, secretStore, NewRedis(cfg))
	if err != nil {
		slog.Error("Routing init failed", "error", err)
		return nil, fmt.Errorf("routing init: %w", err)
	}

	return &Service{
		DB:        db,
		Routes:    db.Routes(),
		Pub:       pubAdapter,
		Store:     &infrastorage.StorageAdapter{Client: gcsClient},
		Secrets:   secretStore,
		Router:    router,
		Elevation: elevation.NewClient(cfg.ElevationBaseURL, cfg.HTTPTimeout),
		Config:    cfg,
	}, nil
}

// NewRedis returns a client for the route cache, or nil when REDIS_ADDR is
// unset.
func NewRedis(cfg *config.Config) redis.Cmdable {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
}

// NewRouter builds the configured routing provider. The ORS key is only
// fetched when the ORS engine is selected.
func NewRouter(ctx context.Context, cfg *config.Config, secretStore shared.SecretStore, rdb redis.Cmdable) (routing.Provider, error) {
	var apiKey string
	if cfg.UsesORS() {
		key, err := secretStore.GetSecret(ctx, cfg.ProjectID, cfg.ORSAPIKeySecret)
		if err != nil {
			return nil, err
		}
		apiKey = key
	}
	return routing.NewFromConfig(cfg.RoutingOptions(apiKey, rdb))
}
