package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/terrafield/fieldsync/config"
	"github.com/terrafield/fieldsync/internal/adapters/redisstore"
	"github.com/terrafield/fieldsync/internal/adapters/sessionstore"
	domainauth "github.com/terrafield/fieldsync/internal/domain/auth"
	httpx "github.com/terrafield/fieldsync/internal/http"
	"github.com/terrafield/fieldsync/internal/ports"
	"github.com/terrafield/fieldsync/internal/service"
)

// Auth bundles the constructed auth subsystem.
type Auth struct {
	Authenticator *service.Authenticator
	Settings      *service.SettingsService
	Sessions      *sessionstore.Store
	Monitor       *httpx.Monitor
	Client        *httpx.Client

	// HTTPClient routes all API traffic through the authenticating
	// round-tripper; hand it to every collaborator that talks to the server.
	HTTPClient *http.Client
}

// BuildAuth wires the auth subsystem from configuration. redisClient may be
// nil; the agent then runs with in-memory session state only and the
// offline strategy reports itself unavailable.
func BuildAuth(ctx context.Context, cfg *config.AppConfig, redisClient redis.UniversalClient, logger *slog.Logger) (*Auth, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var persistence *redisstore.Store
	if redisClient != nil {
		persistence = redisstore.NewWithPrefix(redisClient, cfg.Redis.KeyPrefix)
	}

	var records ports.SessionRecordStore
	var vault ports.CredentialVault
	if persistence != nil {
		records = persistence
		if cfg.Auth.OfflineEnabled {
			vault = persistence
		}
	}

	sessions := sessionstore.New(records, logger)
	if err := sessions.Restore(ctx); err != nil {
		logger.WarnContext(ctx, "restore persisted session failed", "error", err)
	}

	monitor := httpx.NewMonitor(sessions, logger)
	httpClient := &http.Client{
		Transport: httpx.NewAuthTransport(nil, sessions, monitor),
		Timeout:   cfg.Server.Timeout,
	}

	client, err := httpx.NewClient(httpx.ClientConfig{
		BaseURL:    cfg.Server.URL,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build api client: %w", err)
	}

	deviceUID := cfg.Server.DeviceUID
	if deviceUID == "" {
		deviceUID = uuid.NewString()
		logger.InfoContext(ctx, "generated device uid", "uid", deviceUID)
	}

	registry := service.NewRegistry(service.RegistryDeps{
		Client:    client,
		DeviceUID: deviceUID,
		Vault:     vault,
		Records:   records,
		IdP: service.IdPSettings{
			Provider:     domainauth.ProviderType(cfg.Auth.IdP.Provider),
			ProviderName: cfg.Auth.IdP.ProviderName,
			ClientID:     cfg.Auth.IdP.ClientID,
			ClientSecret: cfg.Auth.IdP.ClientSecret,
			RedirectURL:  cfg.Auth.IdP.RedirectURL,
			Scope:        cfg.Auth.IdP.Scope,
			DiscoveryURL: cfg.Auth.IdP.DiscoveryURL,
		},
	})

	var cache service.SettingsCache
	if persistence != nil {
		cache = persistence
	}
	settings := service.NewSettingsService(service.SettingsServiceOptions{
		Client: client,
		Cache:  cache,
		Logger: logger,
	})

	authenticator := service.NewAuthenticator(service.AuthenticatorOptions{
		Registry: registry,
		Sessions: sessions,
		Client:   client,
		Settings: settings,
		Vault:    vault,
		Logger:   logger,
	})

	return &Auth{
		Authenticator: authenticator,
		Settings:      settings,
		Sessions:      sessions,
		Monitor:       monitor,
		Client:        client,
		HTTPClient:    httpClient,
	}, nil
}

// NewRedisClient builds the Redis client for local persistence, or nil when
// persistence is disabled.
func NewRedisClient(cfg config.RedisConfig) redis.UniversalClient {
	if !cfg.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
