package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/todd-reagan/nile-collector/internal/hecauth"
	"github.com/todd-reagan/nile-collector/internal/metrics"
	"github.com/todd-reagan/nile-collector/internal/models"
	"github.com/todd-reagan/nile-collector/internal/ratelimit"
	"github.com/todd-reagan/nile-collector/internal/service"
	"github.com/todd-reagan/nile-collector/pkg/httputil"
)

// Splunk HEC status codes.
const (
	hecCodeSuccess      = 0
	hecCodeBadAuth      = 2
	hecCodeInvalidToken = 3
	hecCodeNoData       = 5
	hecCodeBadEncoding  = 6
	hecCodeServerError  = 8
)

// maxReportedFailures caps the per-request failure list in responses.
const maxReportedFailures = 10

// HECHandler serves the Splunk HEC-compatible collector surface.
type HECHandler struct {
	auth    *hecauth.Authenticator
	ingest  *service.IngestService
	limiter ratelimit.RateLimiter
}

func NewHECHandler(auth *hecauth.Authenticator, ingest *service.IngestService, limiter ratelimit.RateLimiter) *HECHandler {
	if limiter == nil {
		limiter = &ratelimit.NoOpRateLimiter{}
	}
	return &HECHandler{auth: auth, ingest: ingest, limiter: limiter}
}

// HandleEvent is POST /services/collector/event.
func (h *HECHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, models.HECResponse{Text: "Method not allowed", Code: hecCodeServerError})
		return
	}

	cfg, err := h.auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		if errors.Is(err, hecauth.ErrLookup) {
			slog.Error("HEC token lookup failed", slog.String("error", err.Error()))
			httputil.WriteJSON(w, http.StatusInternalServerError, models.HECResponse{Text: "Error during HEC token validation.", Code: hecCodeServerError})
			return
		}
		metrics.AuthFailures.WithLabelValues(authFailureReason(err)).Inc()
		slog.Warn("HEC authentication failed",
			slog.String("reason", err.Error()),
			slog.String("source_ip", httputil.GetClientIP(r)),
		)
		httputil.WriteJSON(w, http.StatusUnauthorized, models.HECResponse{Text: err.Error(), Code: hecCodeBadAuth})
		return
	}

	allowed, err := h.limiter.Allow(r.Context(), cfg.HECToken)
	if err != nil {
		slog.Warn("Rate limit check failed, allowing request", slog.String("error", err.Error()))
	} else if !allowed {
		httputil.WriteJSON(w, http.StatusTooManyRequests, models.HECResponse{Text: "Server is busy", Code: hecCodeServerError})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, models.HECResponse{Text: "No data", Code: hecCodeNoData})
		return
	}
	defer r.Body.Close()

	base64Encoded := strings.EqualFold(r.Header.Get("Content-Transfer-Encoding"), "base64")

	result, err := h.ingest.Ingest(r.Context(), body, r.Header.Get("Content-Type"), base64Encoded, cfg)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoData):
			httputil.WriteJSON(w, http.StatusBadRequest, models.HECResponse{Text: "No data", Code: hecCodeNoData})
		case errors.Is(err, service.ErrInvalidEncoding):
			httputil.WriteJSON(w, http.StatusBadRequest, models.HECResponse{Text: "Invalid base64 encoded payload.", Code: hecCodeBadEncoding})
		default:
			slog.Error("Ingest failed", slog.String("error", err.Error()), slog.String("user_id", cfg.UserID))
			httputil.WriteJSON(w, http.StatusInternalServerError, models.HECResponse{Text: "Internal server error", Code: hecCodeServerError})
		}
		return
	}

	if len(result.Failed) > 0 {
		reported := result.Failed
		if len(reported) > maxReportedFailures {
			reported = reported[:maxReportedFailures]
		}
		httputil.WriteJSON(w, http.StatusOK, models.HECResponse{
			Text:    "Success with some errors",
			Code:    hecCodeSuccess,
			Details: fmt.Sprintf("%d stored, %d failed validation.", result.Stored, len(result.Failed)),
			Errors:  reported,
		})
		return
	}

	text := "Success"
	if result.Stored == 0 {
		text = "Success (No processable events)"
	}
	httputil.WriteJSON(w, http.StatusOK, models.HECResponse{Text: text, Code: hecCodeSuccess})
}

// HandleHealth is GET /services/collector/health. It runs the same token
// validation as the event endpoint and discards the resolved config.
func (h *HECHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.Authenticate(r.Context(), r.Header.Get("Authorization")); err != nil {
		if errors.Is(err, hecauth.ErrLookup) {
			httputil.WriteJSON(w, http.StatusInternalServerError, models.HECResponse{Text: "Error during HEC token validation.", Code: hecCodeServerError})
			return
		}
		httputil.WriteJSON(w, http.StatusUnauthorized, models.HECResponse{
			Text: fmt.Sprintf("Unauthorized: %s", err.Error()),
			Code: hecCodeInvalidToken,
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.HECResponse{Text: "HEC is healthy", Code: hecCodeSuccess})
}

// Healthz is the unauthenticated liveness probe.
func (h *HECHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func authFailureReason(err error) string {
	switch {
	case errors.Is(err, hecauth.ErrInvalidScheme):
		return "invalid_scheme"
	case errors.Is(err, hecauth.ErrEmptyToken):
		return "empty_token"
	case errors.Is(err, hecauth.ErrInvalidToken):
		return "invalid_token"
	default:
		return "other"
	}
}
