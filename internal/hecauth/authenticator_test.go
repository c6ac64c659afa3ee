package hecauth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todd-reagan/nile-collector/internal/hecauth"
	"github.com/todd-reagan/nile-collector/internal/models"
	"github.com/todd-reagan/nile-collector/internal/repository"
)

func TestExtractToken(t *testing.T) {
	t.Run("plain token", func(t *testing.T) {
		token, err := hecauth.ExtractToken("Splunk abc-123")
		require.NoError(t, err)
		assert.Equal(t, "abc-123", token)
	})

	t.Run("double prefix stripped", func(t *testing.T) {
		token, err := hecauth.ExtractToken("Splunk Splunk abc-123")
		require.NoError(t, err)
		assert.Equal(t, "abc-123", token)
	})

	t.Run("double prefix case-insensitive", func(t *testing.T) {
		token, err := hecauth.ExtractToken("Splunk splunk abc-123")
		require.NoError(t, err)
		assert.Equal(t, "abc-123", token)
	})

	t.Run("scheme keyword case-sensitive", func(t *testing.T) {
		_, err := hecauth.ExtractToken("splunk abc-123")
		assert.ErrorIs(t, err, hecauth.ErrInvalidScheme)
	})

	t.Run("bearer scheme rejected", func(t *testing.T) {
		_, err := hecauth.ExtractToken("Bearer abc-123")
		assert.ErrorIs(t, err, hecauth.ErrInvalidScheme)
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := hecauth.ExtractToken("")
		assert.ErrorIs(t, err, hecauth.ErrInvalidScheme)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := hecauth.ExtractToken("Splunk ")
		assert.ErrorIs(t, err, hecauth.ErrEmptyToken)
	})

	t.Run("bare repeated prefix", func(t *testing.T) {
		_, err := hecauth.ExtractToken("Splunk splunk ")
		assert.ErrorIs(t, err, hecauth.ErrEmptyToken)
	})
}

type failingRepo struct {
	repository.Repository
}

func (f *failingRepo) GetUserConfigByToken(ctx context.Context, token string) (*models.UserConfig, error) {
	return nil, errors.New("connection refused")
}

func TestAuthenticate(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	require.NoError(t, repo.PutUserConfig(context.Background(), &models.UserConfig{
		UserID:   "user-1",
		HECToken: "tok-1",
	}))

	auth := hecauth.New(repo)

	t.Run("valid token resolves owner", func(t *testing.T) {
		cfg, err := auth.Authenticate(context.Background(), "Splunk tok-1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", cfg.UserID)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := auth.Authenticate(context.Background(), "Splunk nope")
		assert.ErrorIs(t, err, hecauth.ErrInvalidToken)
	})

	t.Run("malformed header", func(t *testing.T) {
		_, err := auth.Authenticate(context.Background(), "Basic dXNlcg==")
		assert.ErrorIs(t, err, hecauth.ErrInvalidScheme)
	})

	t.Run("storage failure is a lookup error, not an auth failure", func(t *testing.T) {
		broken := hecauth.New(&failingRepo{})
		_, err := broken.Authenticate(context.Background(), "Splunk tok-1")
		assert.ErrorIs(t, err, hecauth.ErrLookup)
		assert.NotErrorIs(t, err, hecauth.ErrInvalidToken)
	})
}
