package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/todd-reagan/nile-collector/internal/models"
)

var errFailedWrite = errors.New("simulated write failure")

// InMemoryRepository backs tests and local development without Postgres.
type InMemoryRepository struct {
	configs        map[string]*models.UserConfig
	configsByToken map[string]*models.UserConfig
	events         map[string][]*models.StoredEvent
	mu             sync.RWMutex

	// FailWrites forces BatchPutEvents to fail, for storage-error paths.
	FailWrites bool
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		configs:        make(map[string]*models.UserConfig),
		configsByToken: make(map[string]*models.UserConfig),
		events:         make(map[string][]*models.StoredEvent),
	}
}

func (r *InMemoryRepository) GetUserConfig(ctx context.Context, userID string) (*models.UserConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[userID]
	if !ok {
		return nil, ErrConfigNotFound
	}
	copied := *cfg
	return &copied, nil
}

func (r *InMemoryRepository) PutUserConfig(ctx context.Context, cfg *models.UserConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.configs[cfg.UserID]; ok && old.HECToken != "" {
		delete(r.configsByToken, old.HECToken)
	}

	copied := *cfg
	r.configs[cfg.UserID] = &copied
	if copied.HECToken != "" {
		r.configsByToken[copied.HECToken] = &copied
	}
	return nil
}

func (r *InMemoryRepository) GetUserConfigByToken(ctx context.Context, token string) (*models.UserConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configsByToken[token]
	if !ok {
		return nil, ErrConfigNotFound
	}
	copied := *cfg
	return &copied, nil
}

func (r *InMemoryRepository) TokenExists(ctx context.Context, token string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.configsByToken[token]
	return ok, nil
}

func (r *InMemoryRepository) BatchPutEvents(ctx context.Context, events []*models.StoredEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailWrites {
		return errFailedWrite
	}

	for _, ev := range events {
		copied := *ev
		r.events[ev.UserID] = append(r.events[ev.UserID], &copied)
	}
	return nil
}

func (r *InMemoryRepository) QueryEvents(ctx context.Context, userID string, start, end int64, eventType string, limit int) ([]*models.StoredEvent, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.StoredEvent
	scanned := 0
	for _, ev := range r.events[userID] {
		if ev.Timestamp < start || ev.Timestamp > end {
			continue
		}
		scanned++
		if eventType != "" && ev.EventType != eventType {
			continue
		}
		copied := *ev
		matched = append(matched, &copied)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Timestamp > matched[j].Timestamp
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, scanned, nil
}

func (r *InMemoryRepository) GetEventByID(ctx context.Context, userID, eventID string) (*models.StoredEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ev := range r.events[userID] {
		if ev.ID == eventID {
			copied := *ev
			return &copied, nil
		}
	}
	return nil, ErrEventNotFound
}
