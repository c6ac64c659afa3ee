// Package hecauth resolves a presented HEC credential to the owning user's
// configuration record.
package hecauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/todd-reagan/nile-collector/internal/models"
	"github.com/todd-reagan/nile-collector/internal/repository"
)

var (
	// ErrInvalidScheme means the Authorization header did not use the
	// "Splunk <token>" scheme.
	ErrInvalidScheme = errors.New("invalid authorization scheme, expected 'Splunk <token>'")
	// ErrEmptyToken means the header carried the scheme but no token.
	ErrEmptyToken = errors.New("empty HEC token")
	// ErrInvalidToken means the token matched no user configuration.
	ErrInvalidToken = errors.New("invalid HEC token")
	// ErrLookup wraps storage failures during token resolution. Distinct
	// from ErrInvalidToken: it maps to 500, not 401.
	ErrLookup = errors.New("HEC token lookup failed")
)

// Authenticator is stateless and read-only; it is shared by the event and
// health endpoints.
type Authenticator struct {
	repo repository.Repository
}

func New(repo repository.Repository) *Authenticator {
	return &Authenticator{repo: repo}
}

// Authenticate extracts the bearer credential from an Authorization header
// value and resolves it against the token index.
func (a *Authenticator) Authenticate(ctx context.Context, authHeader string) (*models.UserConfig, error) {
	token, err := ExtractToken(authHeader)
	if err != nil {
		return nil, err
	}

	cfg, err := a.repo.GetUserConfigByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrConfigNotFound) {
			slog.Warn("HEC token not found in any user configuration")
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("%w: %v", ErrLookup, err)
	}

	slog.Debug("Valid HEC token", slog.String("user_id", cfg.UserID))
	return cfg, nil
}

// ExtractToken pulls the token out of an Authorization header. The scheme
// keyword is case-sensitive per the Splunk HEC convention. A repeated
// "Splunk " prefix inside the token value is stripped once, guarding
// against client double-prefixing bugs.
func ExtractToken(authHeader string) (string, error) {
	if !strings.HasPrefix(authHeader, "Splunk ") {
		return "", ErrInvalidScheme
	}

	token := authHeader[len("Splunk "):]
	if strings.HasPrefix(strings.ToLower(token), "splunk ") {
		parts := strings.SplitN(token, " ", 2)
		if len(parts) == 2 {
			token = parts[1]
			slog.Info("Stripped a repeated 'Splunk ' prefix from the Authorization header token")
		} else {
			token = ""
		}
	}

	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}
