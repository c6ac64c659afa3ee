package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/todd-reagan/nile-collector/internal/middleware"
	"github.com/todd-reagan/nile-collector/internal/models"
	"github.com/todd-reagan/nile-collector/internal/service"
	"github.com/todd-reagan/nile-collector/internal/tokens"
	"github.com/todd-reagan/nile-collector/pkg/httputil"
)

// ConfigHandler serves the bearer-authenticated configuration surface.
type ConfigHandler struct {
	config *service.ConfigService
}

func NewConfigHandler(config *service.ConfigService) *ConfigHandler {
	return &ConfigHandler{config: config}
}

// Handle dispatches GET and PUT /config.
func (h *ConfigHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		httputil.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *ConfigHandler) get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "Authentication error: User identifier not found in token.")
		return
	}

	cfg, err := h.config.Get(r.Context(), userID)
	if err != nil {
		slog.Error("Error retrieving configuration", slog.String("error", err.Error()), slog.String("user_id", userID))
		httputil.WriteError(w, http.StatusInternalServerError, "Error retrieving configuration")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, cfg)
}

func (h *ConfigHandler) update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "Authentication error: User identifier not found in token.")
		return
	}

	var req models.UpdateConfigRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid config update payload")
		return
	}

	cfg, err := h.config.Update(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidUpdate) {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("Error updating configuration", slog.String("error", err.Error()), slog.String("user_id", userID))
		httputil.WriteError(w, http.StatusInternalServerError, "Error updating configuration")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, cfg)
}

// RotateToken is POST /config/splunk-hec-token/regenerate. Only the new
// raw token is returned; it is not re-derivable from storage in plain
// display afterward.
func (h *ConfigHandler) RotateToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "Authentication error: User identifier not found in token.")
		return
	}

	token, err := h.config.RotateToken(r.Context(), userID)
	if err != nil {
		if errors.Is(err, tokens.ErrExhausted) {
			httputil.WriteError(w, http.StatusInternalServerError, "Failed to generate a unique HEC token. Please try again later.")
			return
		}
		slog.Error("Error regenerating HEC token", slog.String("error", err.Error()), slog.String("user_id", userID))
		httputil.WriteError(w, http.StatusInternalServerError, "Error regenerating HEC token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"splunk_hec_token": token})
}
