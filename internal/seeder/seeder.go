// Package seeder generates schema-valid sample events for local testing
// and demos, and posts them to a running collector over HEC.
package seeder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

var eventTypes = []string{"audit_trail", "nile_alerts", "end_user_device_events"}

// Generator produces fake HEC envelopes.
type Generator struct {
	faker *gofakeit.Faker
}

func NewGenerator(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Envelope wraps a generated event in the HEC convention.
func (g *Generator) Envelope(eventType string, at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"event":      g.Event(eventType, at),
		"time":       at.Unix(),
		"sourcetype": eventType,
		"host":       g.faker.DomainName(),
	}
}

// Event builds one event of the given type, or a random type when empty.
func (g *Generator) Event(eventType string, at time.Time) map[string]interface{} {
	if eventType == "" {
		eventType = eventTypes[rand.Intn(len(eventTypes))]
	}

	switch eventType {
	case "audit_trail":
		return g.auditTrail(at)
	case "nile_alerts":
		return g.alert(at)
	case "end_user_device_events":
		return g.deviceEvent(at)
	default:
		return map[string]interface{}{
			"eventType": eventType,
			"message":   g.faker.Sentence(8),
			"time":      at.Unix(),
		}
	}
}

func (g *Generator) auditTrail(at time.Time) map[string]interface{} {
	entity := g.faker.RandomString([]string{"SSID", "Segment", "Site", "User"})
	action := g.faker.RandomString([]string{"Create", "Update", "Delete"})
	return map[string]interface{}{
		"eventType":        "audit_trail",
		"version":          "1.0",
		"id":               uuid.New().String(),
		"auditTime":        at.UTC().Format(time.RFC3339),
		"user":             g.faker.Email(),
		"sourceIP":         g.faker.IPv4Address(),
		"agent":            g.faker.UserAgent(),
		"auditDescription": fmt.Sprintf("%sd %s '%s'", action, entity, g.faker.AppName()),
		"entity":           entity,
		"action":           action,
		"result":           g.faker.RandomString([]string{"Success", "Failure"}),
	}
}

func (g *Generator) alert(at time.Time) map[string]interface{} {
	severity := g.faker.RandomString([]string{"Low", "Medium", "High", "Critical"})
	return map[string]interface{}{
		"eventType":                 "nile_alerts",
		"version":                   "1.0",
		"id":                        uuid.New().String(),
		"alertSubscriptionCategory": "Security Alerts",
		"alertType":                 g.faker.RandomString([]string{"Security", "Availability", "Performance"}),
		"alertStatus":               g.faker.RandomString([]string{"Open", "Resolved"}),
		"alertSubject":              fmt.Sprintf("Nile Alert [%s]", severity),
		"alertDescription":          g.faker.Sentence(12),
		"alertTime":                 at.UTC().Format(time.RFC3339),
		"alertSeverity":             severity,
		"site":                      g.faker.City(),
	}
}

// deviceEvent uses the legacy exporter field names on purpose, so seeded
// traffic exercises the alias remapping path.
func (g *Generator) deviceEvent(at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"eventType":              "end_user_device_events",
		"version":                "1.0",
		"id":                     uuid.New().String(),
		"clientMac":              g.faker.MacAddress(),
		"clientEventSeverity":    g.faker.RandomString([]string{"INFO", "WARN", "ERROR"}),
		"clientEventTimestamp":   at.UTC().Format(time.RFC3339),
		"clientEventDescription": g.faker.RandomString([]string{"DHCP Renew Request Success", "Association Success", "Authentication Failure"}),
		"connectedSsid":          g.faker.AppName(),
		"connectedBssid":         g.faker.MacAddress(),
		"clientUsername":         g.faker.Username(),
	}
}

// Runner posts generated envelopes to a collector.
type Runner struct {
	gen      *Generator
	client   *http.Client
	url      string
	hecToken string
}

func NewRunner(gen *Generator, collectorURL, hecToken string) *Runner {
	return &Runner{
		gen:      gen,
		client:   &http.Client{Timeout: 10 * time.Second},
		url:      collectorURL + "/services/collector/event",
		hecToken: hecToken,
	}
}

// Run posts count events of the given type (random types when empty),
// spreading timestamps over the past hour.
func (r *Runner) Run(count int, eventType string) error {
	for i := 0; i < count; i++ {
		at := time.Now().Add(-time.Duration(rand.Intn(3600)) * time.Second)
		envelope := r.gen.Envelope(eventType, at)

		body, err := json.Marshal(envelope)
		if err != nil {
			return fmt.Errorf("failed to marshal envelope: %w", err)
		}

		req, err := http.NewRequest(http.MethodPost, r.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", "Splunk "+r.hecToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to post event %d: %w", i+1, err)
		}
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("collector rejected event %d: %s: %s", i+1, resp.Status, string(respBody))
		}
	}
	return nil
}
