package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/todd-reagan/nile-collector/internal/metrics"
	"github.com/todd-reagan/nile-collector/internal/models"
	"github.com/todd-reagan/nile-collector/internal/repository"
	"github.com/todd-reagan/nile-collector/internal/tokens"
)

// ErrInvalidUpdate means the config update body was not exactly
// {allow_anything, summary_mode}.
var ErrInvalidUpdate = errors.New("config update requires exactly allow_anything and summary_mode")

// ConfigService manages per-user ingestion configuration and HEC token
// rotation.
type ConfigService struct {
	repo repository.Repository
	gen  tokens.Generator
}

func NewConfigService(repo repository.Repository) *ConfigService {
	return &ConfigService{repo: repo, gen: tokens.NewUUID}
}

// Get returns the caller's config, creating and persisting restrictive
// defaults on first access. The raw HEC token is included: this is the
// user's own record.
func (s *ConfigService) Get(ctx context.Context, userID string) (*models.UserConfig, error) {
	cfg, err := s.repo.GetUserConfig(ctx, userID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, repository.ErrConfigNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	cfg = &models.UserConfig{
		UserID:        userID,
		AllowAnything: false,
		SummaryMode:   false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.PutUserConfig(ctx, cfg); err != nil {
		return nil, err
	}
	slog.Info("Created default configuration", slog.String("user_id", userID))
	return cfg, nil
}

// Update merges the two updatable settings into the stored record,
// preserving the token and identifiers. Both fields are required.
func (s *ConfigService) Update(ctx context.Context, userID string, req *models.UpdateConfigRequest) (*models.UserConfig, error) {
	if req == nil || req.AllowAnything == nil || req.SummaryMode == nil {
		return nil, ErrInvalidUpdate
	}

	cfg, err := s.repo.GetUserConfig(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrConfigNotFound) {
			return nil, err
		}
		cfg = &models.UserConfig{
			UserID:    userID,
			CreatedAt: time.Now().UTC(),
		}
	}

	cfg.AllowAnything = *req.AllowAnything
	cfg.SummaryMode = *req.SummaryMode
	cfg.UpdatedAt = time.Now().UTC()

	if err := s.repo.PutUserConfig(ctx, cfg); err != nil {
		return nil, err
	}

	slog.Info("Updated configuration",
		slog.String("user_id", userID),
		slog.Bool("allow_anything", cfg.AllowAnything),
		slog.Bool("summary_mode", cfg.SummaryMode),
	)
	return cfg, nil
}

// RotateToken generates a new unique HEC token for the user, persists it,
// and returns the raw value. Uniqueness is checked against the token index
// with a bounded retry; exhaustion surfaces tokens.ErrExhausted.
func (s *ConfigService) RotateToken(ctx context.Context, userID string) (string, error) {
	token, err := tokens.GenerateUnique(ctx, s.gen, s.repo.TokenExists, tokens.MaxAttempts)
	if err != nil {
		metrics.TokenRotations.WithLabelValues("failed").Inc()
		return "", err
	}

	cfg, err := s.repo.GetUserConfig(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrConfigNotFound) {
			return "", err
		}
		cfg = &models.UserConfig{
			UserID:        userID,
			AllowAnything: false,
			SummaryMode:   false,
			CreatedAt:     time.Now().UTC(),
		}
	}

	cfg.HECToken = token
	cfg.UpdatedAt = time.Now().UTC()

	if err := s.repo.PutUserConfig(ctx, cfg); err != nil {
		return "", err
	}

	metrics.TokenRotations.WithLabelValues("ok").Inc()
	slog.Info("Generated new HEC token", slog.String("user_id", userID))
	return token, nil
}
