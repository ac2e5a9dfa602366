package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/terrafield/fieldsync/config"
	"github.com/terrafield/fieldsync/internal/bootstrap"
	domainauth "github.com/terrafield/fieldsync/internal/domain/auth"
	"github.com/terrafield/fieldsync/internal/ports"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := bootstrap.NewRedisClient(cfg.Redis)
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	auth, err := bootstrap.BuildAuth(ctx, &cfg, redisClient, logger)
	if err != nil {
		return err
	}

	logStartupInfo(ctx, logger, &cfg)

	if offered, serr := auth.Settings.AuthenticationStrategies(ctx); serr != nil {
		logger.WarnContext(ctx, "unable to read server auth strategies", "error", serr)
	} else {
		names := make([]string, 0, len(offered))
		for _, k := range offered {
			names = append(names, k.String())
		}
		logger.InfoContext(ctx, "server auth strategies", "strategies", names)
	}

	if err := signIn(ctx, &cfg, auth, logger); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watchSessionEvents(ctx, auth, logger)
	})
	return g.Wait()
}

// signIn authenticates with the configured strategy unless a persisted
// session was restored.
func signIn(ctx context.Context, cfg *config.AppConfig, auth *bootstrap.Auth, logger *slog.Logger) error {
	if sess, ok := auth.Sessions.Current(ctx); ok {
		logger.InfoContext(ctx, "resuming persisted session", "user_id", sess.UserID)
		return nil
	}

	kind := strategyKind(cfg)
	creds := domainauth.Credentials{
		Username: cfg.Auth.Username,
		Password: cfg.Auth.Password,
	}

	status, err := auth.Authenticator.Authenticate(ctx, kind, creds)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "sign-in finished", "strategy", kind.String(), "status", status.String())
	return nil
}

// strategyKind maps the configured strategy preference onto a domain kind.
func strategyKind(cfg *config.AppConfig) domainauth.Kind {
	switch cfg.Auth.Strategy {
	case config.AuthStrategyLDAP:
		return domainauth.KindLDAP
	case config.AuthStrategyIdP:
		return domainauth.IdP(domainauth.ProviderType(cfg.Auth.IdP.Provider), cfg.Auth.IdP.ProviderName)
	case config.AuthStrategyOffline:
		return domainauth.KindOffline
	default:
		return domainauth.KindLocal
	}
}

// watchSessionEvents logs expiry notifications until shutdown.
func watchSessionEvents(ctx context.Context, auth *bootstrap.Auth, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-auth.Monitor.Events():
			switch ev.Kind {
			case ports.SessionExpired:
				logger.WarnContext(ctx, "session expired, sign in again")
			case ports.OfflineSessionQuestioned:
				logger.WarnContext(ctx, "offline session questioned by server, re-authentication recommended")
			}
		}
	}
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "fieldsync agent starting",
		"server", cfg.Server.URL,
		"strategy", string(cfg.Auth.Strategy),
		"offline_enabled", cfg.Auth.OfflineEnabled,
		"persistence", cfg.Redis.Enabled,
		"dev", cfg.IsDev,
	)
}
