package seeder_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todd-reagan/nile-collector/internal/normalizer"
	"github.com/todd-reagan/nile-collector/internal/parser"
	"github.com/todd-reagan/nile-collector/internal/schema"
	"github.com/todd-reagan/nile-collector/internal/seeder"
)

func TestGenerator_EventsPassValidation(t *testing.T) {
	gen := seeder.NewGenerator(1)
	norm := normalizer.New(schema.MustLoad())
	at := time.Unix(1700000000, 0)

	for _, eventType := range []string{"audit_trail", "nile_alerts", "end_user_device_events"} {
		t.Run(eventType, func(t *testing.T) {
			for i := 0; i < 20; i++ {
				event := gen.Event(eventType, at)

				result, err := norm.Normalize(parser.Candidate{Record: event}, i, false, at.Unix())
				require.NoError(t, err, "seeded %s event must pass schema validation", eventType)
				assert.Equal(t, eventType, result.EventType)
			}
		})
	}
}

func TestGenerator_EnvelopeShape(t *testing.T) {
	gen := seeder.NewGenerator(1)
	at := time.Unix(1700000000, 0)

	env := gen.Envelope("nile_alerts", at)
	assert.Equal(t, at.Unix(), env["time"].(int64))
	assert.Equal(t, "nile_alerts", env["sourcetype"])
	assert.Contains(t, env, "event")
	assert.Contains(t, env, "host")
}

func TestRunner_PostsEvents(t *testing.T) {
	var received []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/collector/event", r.URL.Path)
		assert.Equal(t, "Splunk tok-1", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var envelope map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &envelope))
		received = append(received, envelope)

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	runner := seeder.NewRunner(seeder.NewGenerator(1), srv.URL, "tok-1")
	require.NoError(t, runner.Run(5, "audit_trail"))
	assert.Len(t, received, 5)
}

func TestRunner_StopsOnRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"text": "Invalid token", "code": 2}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	runner := seeder.NewRunner(seeder.NewGenerator(1), srv.URL, "bad-token")
	err := runner.Run(3, "")
	assert.Error(t, err)
}
