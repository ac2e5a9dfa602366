package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	jmespath "github.com/jmespath-community/go-jmespath"
	domainauth "github.com/terrafield/fieldsync/internal/domain/auth"
	apperrors "github.com/terrafield/fieldsync/internal/errors"
	httpx "github.com/terrafield/fieldsync/internal/http"
)

// SettingsCache stores the last-known-good server settings blob so strategy
// resolution and policy evaluation keep working without connectivity.
type SettingsCache interface {
	SaveSettings(ctx context.Context, raw []byte) error
	LoadSettings(ctx context.Context) ([]byte, bool, error)
}

// SettingsService reads the server's authentication configuration: the
// offered strategy list and per-strategy password policies. The server
// settings document is heterogeneous; extraction uses JMESPath queries so
// the client stays tolerant of unrelated settings content.
type SettingsService struct {
	client *httpx.Client
	cache  SettingsCache
	logger *slog.Logger
}

// SettingsServiceOptions groups dependencies for SettingsService.
type SettingsServiceOptions struct {
	Client *httpx.Client
	Cache  SettingsCache // optional
	Logger *slog.Logger  // optional
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(opts SettingsServiceOptions) *SettingsService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsService{client: opts.Client, cache: opts.Cache, logger: logger}
}

// AuthenticationStrategies returns the strategy kinds the server offers,
// normalized through ParseKind. Strategy names the client does not
// recognize are skipped, never silently mapped.
func (s *SettingsService) AuthenticationStrategies(ctx context.Context) ([]domainauth.Kind, error) {
	doc, err := s.settingsDoc(ctx)
	if err != nil {
		return nil, err
	}

	names, err := jmespath.Search("keys(authentication.strategies || `{}`)", doc)
	if err != nil {
		return nil, apperrors.Decoding(fmt.Errorf("extract strategy names: %w", err))
	}
	rawNames, ok := names.([]any)
	if !ok {
		return nil, nil
	}

	var kinds []domainauth.Kind
	for _, rn := range rawNames {
		name, ok := rn.(string)
		if !ok {
			continue
		}
		enabled, err := jmespath.Search(fmt.Sprintf("authentication.strategies.%q.enabled", name), doc)
		if err != nil {
			continue
		}
		if on, ok := enabled.(bool); !ok || !on {
			continue
		}
		kind, ok := domainauth.ParseKind(name)
		if !ok {
			s.logger.Warn("server offers unrecognized auth strategy", "name", name)
			continue
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// PasswordPolicy returns the server-delivered policy for a strategy kind.
// ok is false when the configuration carries none; callers then fall back
// to the sanity policy.
func (s *SettingsService) PasswordPolicy(ctx context.Context, kind domainauth.Kind) (domainauth.PasswordPolicy, bool, error) {
	doc, err := s.settingsDoc(ctx)
	if err != nil {
		return domainauth.PasswordPolicy{}, false, err
	}

	node, err := jmespath.Search(fmt.Sprintf("authentication.strategies.%q.password_policy", string(kind.Family)), doc)
	if err != nil {
		return domainauth.PasswordPolicy{}, false, apperrors.Decoding(fmt.Errorf("extract password policy: %w", err))
	}
	if node == nil {
		return domainauth.PasswordPolicy{}, false, nil
	}

	// Round-trip the extracted node into the typed policy.
	raw, err := json.Marshal(node)
	if err != nil {
		return domainauth.PasswordPolicy{}, false, apperrors.Decoding(fmt.Errorf("encode password policy: %w", err))
	}
	var policy domainauth.PasswordPolicy
	if err := json.Unmarshal(raw, &policy); err != nil {
		return domainauth.PasswordPolicy{}, false, apperrors.Decoding(fmt.Errorf("decode password policy: %w", err))
	}
	return policy, true, nil
}

// settingsDoc fetches and decodes the server settings, falling back to the
// last-known-good cached blob when the server is unreachable.
func (s *SettingsService) settingsDoc(ctx context.Context) (any, error) {
	raw, err := s.client.FetchSettings(ctx)
	if err != nil {
		if !apperrors.IsNetwork(err) || s.cache == nil {
			return nil, err
		}
		cached, ok, cacheErr := s.cache.LoadSettings(ctx)
		if cacheErr != nil || !ok {
			return nil, err
		}
		s.logger.InfoContext(ctx, "server unreachable, using cached auth settings")
		raw = cached
	} else if s.cache != nil {
		if saveErr := s.cache.SaveSettings(ctx, raw); saveErr != nil {
			s.logger.WarnContext(ctx, "cache auth settings failed", "error", saveErr)
		}
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperrors.Decoding(fmt.Errorf("decode settings: %w", err))
	}
	return doc, nil
}
