package handlers_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todd-reagan/nile-collector/internal/handlers"
	"github.com/todd-reagan/nile-collector/internal/hecauth"
	"github.com/todd-reagan/nile-collector/internal/models"
	"github.com/todd-reagan/nile-collector/internal/normalizer"
	"github.com/todd-reagan/nile-collector/internal/ratelimit"
	"github.com/todd-reagan/nile-collector/internal/repository"
	"github.com/todd-reagan/nile-collector/internal/schema"
	"github.com/todd-reagan/nile-collector/internal/service"
)

const testToken = "11111111-2222-3333-4444-555555555555"

func newHECHandler(t *testing.T) (*handlers.HECHandler, *repository.InMemoryRepository) {
	t.Helper()
	repo := repository.NewInMemoryRepository()
	require.NoError(t, repo.PutUserConfig(context.Background(), &models.UserConfig{
		UserID:   "user-1",
		HECToken: testToken,
	}))

	ingest := service.NewIngestService(repo, normalizer.New(schema.MustLoad()))
	return handlers.NewHECHandler(hecauth.New(repo), ingest, nil), repo
}

func postEvent(t *testing.T, h *handlers.HECHandler, body []byte, headers map[string]string) (*httptest.ResponseRecorder, models.HECResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/services/collector/event", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.HandleEvent(rr, req)

	var resp models.HECResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return rr, resp
}

func validAlert() map[string]interface{} {
	return map[string]interface{}{
		"eventType":                 "nile_alerts",
		"version":                   "1.0",
		"id":                        uuid.New().String(),
		"alertSubscriptionCategory": "Security Alerts",
		"alertType":                 "Security",
		"alertStatus":               "Open",
		"alertSubject":              "Rogue AP detected",
		"alertDescription":          "A rogue access point was observed",
		"alertTime":                 "2023-11-14T12:00:00Z",
		"alertSeverity":             "High",
	}
}

func TestHandleEvent_Success(t *testing.T) {
	h, repo := newHECHandler(t)

	body, _ := json.Marshal(map[string]interface{}{"event": validAlert(), "time": 1700000000})
	rr, resp := postEvent(t, h, body, map[string]string{"Authorization": "Splunk " + testToken})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "Success", resp.Text)

	events, _, err := repo.QueryEvents(context.Background(), "user-1", 0, 1<<62, "", 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestHandleEvent_MissingAuth(t *testing.T) {
	h, _ := newHECHandler(t)

	rr, resp := postEvent(t, h, []byte("{}"), nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, 2, resp.Code)
}

func TestHandleEvent_UnknownToken(t *testing.T) {
	h, _ := newHECHandler(t)

	rr, resp := postEvent(t, h, []byte("{}"), map[string]string{"Authorization": "Splunk wrong-token"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, 2, resp.Code)
}

func TestHandleEvent_DoublePrefixedTokenAccepted(t *testing.T) {
	h, _ := newHECHandler(t)

	body, _ := json.Marshal(map[string]interface{}{"event": validAlert(), "time": 1700000000})
	rr, resp := postEvent(t, h, body, map[string]string{"Authorization": "Splunk Splunk " + testToken})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, resp.Code)
}

func TestHandleEvent_EmptyBody(t *testing.T) {
	h, _ := newHECHandler(t)

	rr, resp := postEvent(t, h, nil, map[string]string{"Authorization": "Splunk " + testToken})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 5, resp.Code)
	assert.Equal(t, "No data", resp.Text)
}

func TestHandleEvent_BadBase64(t *testing.T) {
	h, _ := newHECHandler(t)

	rr, resp := postEvent(t, h, []byte("%%%"), map[string]string{
		"Authorization":             "Splunk " + testToken,
		"Content-Transfer-Encoding": "base64",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 6, resp.Code)
}

func TestHandleEvent_Base64Body(t *testing.T) {
	h, _ := newHECHandler(t)

	plain, _ := json.Marshal(map[string]interface{}{"event": validAlert(), "time": 1700000000})
	encoded := []byte(base64.StdEncoding.EncodeToString(plain))

	rr, resp := postEvent(t, h, encoded, map[string]string{
		"Authorization":             "Splunk " + testToken,
		"Content-Transfer-Encoding": "base64",
	})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Success", resp.Text)
}

func TestHandleEvent_PartialFailures(t *testing.T) {
	h, _ := newHECHandler(t)

	body, _ := json.Marshal([]interface{}{
		validAlert(),
		map[string]interface{}{"eventType": "nile_alerts"},
	})
	rr, resp := postEvent(t, h, body, map[string]string{"Authorization": "Splunk " + testToken})

	assert.Equal(t, http.StatusOK, rr.Code, "partial failure is still HTTP 200")
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "Success with some errors", resp.Text)
	assert.Equal(t, "1 stored, 1 failed validation.", resp.Details)
	assert.Len(t, resp.Errors, 1)
}

func TestHandleEvent_FailureListCapped(t *testing.T) {
	h, _ := newHECHandler(t)

	var events []interface{}
	for i := 0; i < 15; i++ {
		events = append(events, map[string]interface{}{"eventType": "nile_alerts", "n": i})
	}
	body, _ := json.Marshal(events)

	rr, resp := postEvent(t, h, body, map[string]string{"Authorization": "Splunk " + testToken})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "0 stored, 15 failed validation.", resp.Details, "details count all failures")
	assert.Len(t, resp.Errors, 10, "response lists at most 10")
}

func TestHandleEvent_NoProcessableEvents(t *testing.T) {
	h, _ := newHECHandler(t)

	rr, resp := postEvent(t, h, []byte("this is not json"), map[string]string{"Authorization": "Splunk " + testToken})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "Success (No processable events)", resp.Text)
}

func TestHandleEvent_MethodNotAllowed(t *testing.T) {
	h, _ := newHECHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/services/collector/event", nil)
	rr := httptest.NewRecorder()
	h.HandleEvent(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

type denyLimiter struct{}

func (denyLimiter) Allow(ctx context.Context, key string) (bool, error) { return false, nil }
func (denyLimiter) Close() error                                        { return nil }

type brokenLimiter struct{}

func (brokenLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return false, fmt.Errorf("redis down")
}
func (brokenLimiter) Close() error { return nil }

func TestHandleEvent_RateLimited(t *testing.T) {
	repo := repository.NewInMemoryRepository()
	require.NoError(t, repo.PutUserConfig(context.Background(), &models.UserConfig{UserID: "user-1", HECToken: testToken}))
	ingest := service.NewIngestService(repo, normalizer.New(schema.MustLoad()))

	t.Run("denied", func(t *testing.T) {
		h := handlers.NewHECHandler(hecauth.New(repo), ingest, denyLimiter{})
		rr, resp := postEvent(t, h, []byte("{}"), map[string]string{"Authorization": "Splunk " + testToken})
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, 8, resp.Code)
	})

	t.Run("limiter failure allows the request", func(t *testing.T) {
		h := handlers.NewHECHandler(hecauth.New(repo), ingest, brokenLimiter{})
		body, _ := json.Marshal(map[string]interface{}{"event": validAlert(), "time": 1700000000})
		rr, _ := postEvent(t, h, body, map[string]string{"Authorization": "Splunk " + testToken})
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestHandleHealth(t *testing.T) {
	h, _ := newHECHandler(t)

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/services/collector/health", nil)
		req.Header.Set("Authorization", "Splunk "+testToken)
		rr := httptest.NewRecorder()
		h.HandleHealth(rr, req)

		var resp models.HECResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "HEC is healthy", resp.Text)
		assert.Equal(t, 0, resp.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/services/collector/health", nil)
		req.Header.Set("Authorization", "Splunk wrong")
		rr := httptest.NewRecorder()
		h.HandleHealth(rr, req)

		var resp models.HECResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, 3, resp.Code)
		assert.Contains(t, resp.Text, "Unauthorized:")
	})
}

var _ ratelimit.RateLimiter = denyLimiter{}
