package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/todd-reagan/nile-collector/internal/models"
	"github.com/todd-reagan/nile-collector/internal/repository"
)

// ListParams are the GET /events query knobs. Zero values select the
// defaults: the previous 24 hours through now, limit 50, no type filter.
type ListParams struct {
	StartTime int64
	EndTime   int64
	EventType string
	Limit     int
}

const defaultListLimit = 50

// QueryService is the read path over stored events, always scoped to the
// calling user.
type QueryService struct {
	repo repository.Repository
}

func NewQueryService(repo repository.Repository) *QueryService {
	return &QueryService{repo: repo}
}

// List returns the caller's events in the requested window, newest first.
// A per-item event_data deserialization failure logs a warning and returns
// the item with the raw string.
func (s *QueryService) List(ctx context.Context, userID string, params ListParams) (*models.EventListResponse, error) {
	now := time.Now().Unix()
	if params.EndTime == 0 {
		params.EndTime = now
	}
	if params.StartTime == 0 {
		params.StartTime = now - 24*60*60
	}
	if params.Limit <= 0 {
		params.Limit = defaultListLimit
	}

	events, scanned, err := s.repo.QueryEvents(ctx, userID, params.StartTime, params.EndTime, params.EventType, params.Limit)
	if err != nil {
		return nil, err
	}

	views := make([]models.EventView, 0, len(events))
	for _, ev := range events {
		views = append(views, toView(ev))
	}

	resp := &models.EventListResponse{
		Events:       views,
		Count:        len(views),
		ScannedCount: scanned,
	}
	// Pagination hint: when the page filled there may be older events
	// before the last returned timestamp.
	if len(events) == params.Limit {
		last := events[len(events)-1]
		resp.LastEvaluatedKey = map[string]interface{}{
			"user_id":   last.UserID,
			"timestamp": last.Timestamp,
		}
	}

	return resp, nil
}

// Get returns one of the caller's events by its id attribute.
// Returns repository.ErrEventNotFound on a miss.
func (s *QueryService) Get(ctx context.Context, userID, eventID string) (*models.EventView, error) {
	ev, err := s.repo.GetEventByID(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	view := toView(ev)
	return &view, nil
}

func toView(ev *models.StoredEvent) models.EventView {
	view := models.EventView{
		UserID:    ev.UserID,
		Timestamp: ev.Timestamp,
		ID:        ev.ID,
		EventType: ev.EventType,
		CreatedAt: ev.CreatedAt,
	}

	var data interface{}
	if err := json.Unmarshal([]byte(ev.EventData), &data); err != nil {
		slog.Warn("Failed to parse event_data", slog.String("id", ev.ID), slog.String("error", err.Error()))
		view.EventData = ev.EventData
	} else {
		view.EventData = data
	}
	return view
}
