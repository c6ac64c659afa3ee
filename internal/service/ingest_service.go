package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/todd-reagan/nile-collector/internal/metrics"
	"github.com/todd-reagan/nile-collector/internal/models"
	"github.com/todd-reagan/nile-collector/internal/normalizer"
	"github.com/todd-reagan/nile-collector/internal/parser"
	"github.com/todd-reagan/nile-collector/internal/repository"
	"github.com/todd-reagan/nile-collector/internal/schema"
)

var (
	// ErrNoData means the request body was empty or undecodable.
	ErrNoData = errors.New("no data")
	// ErrInvalidEncoding means a base64 transport-encoded body failed to
	// decode.
	ErrInvalidEncoding = errors.New("invalid base64 encoded payload")
)

// EventIndexer mirrors accepted events into a secondary search index.
type EventIndexer interface {
	IndexEvents(ctx context.Context, events []*models.StoredEvent) error
}

// Notifier announces completed ingest batches to downstream consumers.
type Notifier interface {
	PublishIngested(ctx context.Context, userID string, stored, failed int) error
}

// IngestResult summarizes one processed batch. Validation failures are
// part of a successful result, not an error.
type IngestResult struct {
	Stored int
	Failed []models.FailedEvent
}

// IngestService drives the batch: parse, normalize/validate per candidate,
// assign storage keys, bulk-write, and report per-event failures.
type IngestService struct {
	repo     repository.Repository
	norm     *normalizer.Normalizer
	indexer  EventIndexer
	notifier Notifier
}

func NewIngestService(repo repository.Repository, norm *normalizer.Normalizer) *IngestService {
	return &IngestService{repo: repo, norm: norm}
}

// SetIndexer enables the optional search-index mirror.
func (s *IngestService) SetIndexer(idx EventIndexer) {
	s.indexer = idx
}

// SetNotifier enables the optional ingest notifications.
func (s *IngestService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Ingest processes one HEC request body on behalf of the resolved caller
// configuration. Per-event validation failures never abort the batch; a
// failed bulk write fails the whole request.
func (s *IngestService) Ingest(ctx context.Context, body []byte, contentType string, base64Encoded bool, cfg *models.UserConfig) (*IngestResult, error) {
	if base64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(string(body))
		if err != nil {
			slog.Warn("Failed to decode base64 request body", slog.String("error", err.Error()))
			return nil, ErrInvalidEncoding
		}
		body = decoded
	}

	if len(body) == 0 {
		return nil, ErrNoData
	}
	metrics.EventBytesTotal.Add(float64(len(body)))

	candidates := parser.Parse(string(body), contentType)
	if len(candidates) == 0 {
		slog.Info("No processable events found in payload")
		return &IngestResult{}, nil
	}

	ingestionEpoch := time.Now().Unix()
	createdAt := time.Now().UTC().Format(time.RFC3339)

	var batch []*models.StoredEvent
	var failed []models.FailedEvent

	for i, candidate := range candidates {
		idx := i + 1

		result, err := s.norm.Normalize(candidate, idx, cfg.AllowAnything, ingestionEpoch)
		if err != nil {
			var verr *normalizer.ValidationError
			if errors.As(err, &verr) {
				slog.Warn("Event failed validation",
					slog.Int("index", idx),
					slog.String("reason", verr.Reason),
				)
				metrics.ValidationFailures.WithLabelValues(normalizer.ResolveEventType(candidate.Record)).Inc()
				failed = append(failed, models.FailedEvent{Reason: verr.Reason, EventSnippet: verr.Snippet})
				continue
			}
			return nil, err
		}

		s.logEvent(idx, result, cfg.SummaryMode)

		eventData, err := json.Marshal(result.Value())
		if err != nil {
			// Candidates come from json.Unmarshal, so this should not
			// happen; treat it as a per-event failure all the same.
			failed = append(failed, models.FailedEvent{
				Reason: fmt.Sprintf("Event %d could not be serialized: %v", idx, err),
			})
			continue
		}

		eventID := uuid.New().String()

		if cfg.UserID == "" {
			slog.Error("Event processed with valid HEC token but no user_id in config",
				slog.String("event_uuid", eventID),
			)
			failed = append(failed, models.FailedEvent{
				Reason:       "Missing user_id for primary key after HEC token validation.",
				EventUUID:    eventID,
				EventSnippet: normalizer.Snippet(result.Record, 100),
			})
			continue
		}

		batch = append(batch, &models.StoredEvent{
			UserID:    cfg.UserID,
			Timestamp: result.Timestamp,
			ID:        eventID,
			EventType: result.EventType,
			EventData: string(eventData),
			CreatedAt: createdAt,
		})
		metrics.EventsReceived.WithLabelValues(result.EventType, "accepted").Inc()
	}

	if len(batch) > 0 {
		start := time.Now()
		if err := s.repo.BatchPutEvents(ctx, batch); err != nil {
			metrics.StorageErrors.Inc()
			return nil, fmt.Errorf("failed to store event batch: %w", err)
		}
		metrics.StorageDuration.Observe(time.Since(start).Seconds())
		slog.Info("Stored event batch",
			slog.String("user_id", cfg.UserID),
			slog.Int("stored", len(batch)),
			slog.Int("failed", len(failed)),
		)

		if s.indexer != nil {
			if err := s.indexer.IndexEvents(ctx, batch); err != nil {
				// Mirror indexing is best-effort; the repository write
				// already succeeded.
				slog.Warn("Failed to mirror events to search index", slog.String("error", err.Error()))
			}
		}
	}

	if s.notifier != nil {
		if err := s.notifier.PublishIngested(ctx, cfg.UserID, len(batch), len(failed)); err != nil {
			slog.Warn("Failed to publish ingest notification", slog.String("error", err.Error()))
		}
	}

	return &IngestResult{Stored: len(batch), Failed: failed}, nil
}

func (s *IngestService) logEvent(idx int, result *normalizer.Result, summaryMode bool) {
	if summaryMode {
		if result.Record != nil {
			summary := schema.Summarize(result.Record, result.EventType)
			slog.Info("Summary event",
				slog.Int("index", idx),
				slog.String("event_type", result.EventType),
				slog.Any("summary", summary),
			)
		} else {
			slog.Info("Summary event",
				slog.Int("index", idx),
				slog.String("event_type", result.EventType),
				slog.String("value", normalizer.Snippet(map[string]interface{}{"raw": result.Raw}, 100)),
			)
		}
		return
	}
	slog.Debug("Detailed event",
		slog.Int("index", idx),
		slog.String("event_type", result.EventType),
		slog.Any("event", result.Value()),
	)
}
