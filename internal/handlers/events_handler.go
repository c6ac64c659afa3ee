package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/todd-reagan/nile-collector/internal/middleware"
	"github.com/todd-reagan/nile-collector/internal/repository"
	"github.com/todd-reagan/nile-collector/internal/service"
	"github.com/todd-reagan/nile-collector/pkg/httputil"
)

// EventsHandler serves the bearer-authenticated event read path.
type EventsHandler struct {
	query *service.QueryService
}

func NewEventsHandler(query *service.QueryService) *EventsHandler {
	return &EventsHandler{query: query}
}

// List is GET /events?limit&start_time&end_time&event_type.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "Authentication error: User identifier not found in token.")
		return
	}

	q := r.URL.Query()
	params := service.ListParams{
		StartTime: httputil.ParseInt64Param(q.Get("start_time"), 0),
		EndTime:   httputil.ParseInt64Param(q.Get("end_time"), 0),
		EventType: q.Get("event_type"),
		Limit:     httputil.ParseIntParam(q.Get("limit"), 0),
	}

	resp, err := h.query.List(r.Context(), userID, params)
	if err != nil {
		slog.Error("Error retrieving events", slog.String("error", err.Error()), slog.String("user_id", userID))
		httputil.WriteError(w, http.StatusInternalServerError, "Error retrieving events")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Get is GET /events/{id}.
func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "Authentication error: User identifier not found in token.")
		return
	}

	eventID := r.PathValue("id")
	if eventID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "Missing event id")
		return
	}

	view, err := h.query.Get(r.Context(), userID, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "Event not found")
			return
		}
		slog.Error("Error retrieving event", slog.String("error", err.Error()), slog.String("event_id", eventID))
		httputil.WriteError(w, http.StatusInternalServerError, "Error retrieving event")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, view)
}
