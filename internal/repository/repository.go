// Package repository is the storage collaborator boundary: a partition and
// sort-key indexed event store plus a token-indexed config store.
package repository

import (
	"context"
	"errors"

	"github.com/todd-reagan/nile-collector/internal/models"
)

var (
	ErrConfigNotFound = errors.New("user config not found")
	ErrEventNotFound  = errors.New("event not found")
)

type Repository interface {
	// GetUserConfig fetches a config by its partition key.
	GetUserConfig(ctx context.Context, userID string) (*models.UserConfig, error)
	// PutUserConfig upserts the full config record.
	PutUserConfig(ctx context.Context, cfg *models.UserConfig) error
	// GetUserConfigByToken resolves a config via the token index. The
	// token must be non-empty; the index never holds empty values.
	GetUserConfigByToken(ctx context.Context, token string) (*models.UserConfig, error)
	// TokenExists reports whether any config already holds the token.
	// Used as the uniqueness checker during rotation.
	TokenExists(ctx context.Context, token string) (bool, error)

	// BatchPutEvents writes all events or fails the batch as a whole.
	BatchPutEvents(ctx context.Context, events []*models.StoredEvent) error
	// QueryEvents lists a user's events in [start, end], newest first,
	// optionally filtered by event type. Returns events and the scanned
	// row count.
	QueryEvents(ctx context.Context, userID string, start, end int64, eventType string, limit int) ([]*models.StoredEvent, int, error)
	// GetEventByID scans the user's own events for a matching id
	// attribute and returns the first match.
	GetEventByID(ctx context.Context, userID, eventID string) (*models.StoredEvent, error)
}
