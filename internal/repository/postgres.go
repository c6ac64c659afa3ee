package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/todd-reagan/nile-collector/internal/models"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func (r *PostgresRepository) GetUserConfig(ctx context.Context, userID string) (*models.UserConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT user_id, COALESCE(hec_token, ''), allow_anything, summary_mode, created_at, updated_at
		FROM user_configs
		WHERE user_id = $1
	`

	var cfg models.UserConfig
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&cfg.UserID, &cfg.HECToken, &cfg.AllowAnything, &cfg.SummaryMode,
		&cfg.CreatedAt, &cfg.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to get user config: %w", err)
	}

	return &cfg, nil
}

func (r *PostgresRepository) PutUserConfig(ctx context.Context, cfg *models.UserConfig) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// NULL rather than empty string keeps the unique token index clean.
	var token *string
	if cfg.HECToken != "" {
		token = &cfg.HECToken
	}

	query := `
		INSERT INTO user_configs (user_id, hec_token, allow_anything, summary_mode, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET hec_token = EXCLUDED.hec_token,
		    allow_anything = EXCLUDED.allow_anything,
		    summary_mode = EXCLUDED.summary_mode,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		cfg.UserID, token, cfg.AllowAnything, cfg.SummaryMode,
		cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put user config: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetUserConfigByToken(ctx context.Context, token string) (*models.UserConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT user_id, COALESCE(hec_token, ''), allow_anything, summary_mode, created_at, updated_at
		FROM user_configs
		WHERE hec_token = $1
		LIMIT 1
	`

	var cfg models.UserConfig
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&cfg.UserID, &cfg.HECToken, &cfg.AllowAnything, &cfg.SummaryMode,
		&cfg.CreatedAt, &cfg.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to query token index: %w", err)
	}

	return &cfg, nil
}

func (r *PostgresRepository) TokenExists(ctx context.Context, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_configs WHERE hec_token = $1)`, token,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check token uniqueness: %w", err)
	}

	return exists, nil
}

func (r *PostgresRepository) BatchPutEvents(ctx context.Context, events []*models.StoredEvent) error {
	if len(events) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	batch := &pgx.Batch{}
	query := `
		INSERT INTO events (user_id, ts, id, event_type, event_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, ev := range events {
		batch.Queue(query, ev.UserID, ev.Timestamp, ev.ID, ev.EventType, ev.EventData, ev.CreatedAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to write event batch: %w", err)
		}
	}

	return nil
}

func (r *PostgresRepository) QueryEvents(ctx context.Context, userID string, start, end int64, eventType string, limit int) ([]*models.StoredEvent, int, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `
		SELECT user_id, ts, id, event_type, event_data, created_at
		FROM events
		WHERE user_id = $1 AND ts BETWEEN $2 AND $3
	`
	args := []interface{}{userID, start, end}
	if eventType != "" {
		query += ` AND event_type = $4`
		args = append(args, eventType)
	}
	query += fmt.Sprintf(` ORDER BY ts DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.StoredEvent
	for rows.Next() {
		var ev models.StoredEvent
		if err := rows.Scan(&ev.UserID, &ev.Timestamp, &ev.ID, &ev.EventType, &ev.EventData, &ev.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read event rows: %w", err)
	}

	// The filter runs server-side, so scanned equals returned.
	return events, len(events), nil
}

func (r *PostgresRepository) GetEventByID(ctx context.Context, userID, eventID string) (*models.StoredEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := `
		SELECT user_id, ts, id, event_type, event_data, created_at
		FROM events
		WHERE user_id = $1 AND id = $2
		LIMIT 1
	`

	var ev models.StoredEvent
	err := r.pool.QueryRow(ctx, query, userID, eventID).Scan(
		&ev.UserID, &ev.Timestamp, &ev.ID, &ev.EventType, &ev.EventData, &ev.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return &ev, nil
}
