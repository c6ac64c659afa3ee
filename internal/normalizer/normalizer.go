// Package normalizer remaps legacy field names to their canonical schema
// names, validates candidates against the schema registry, and resolves
// each event's semantic timestamp.
package normalizer

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/todd-reagan/nile-collector/internal/parser"
	"github.com/todd-reagan/nile-collector/internal/schema"
)

// EventTypeRawNonJSON marks scalar candidates that bypass normalization.
const EventTypeRawNonJSON = "raw_non_json_event"

// Result is a normalized, validated candidate ready for storage key
// assignment. Every surviving candidate has an event type and a timestamp.
type Result struct {
	EventType string
	Timestamp int64
	// Record is nil for scalar candidates; Raw then holds the value.
	Record map[string]interface{}
	Raw    interface{}
}

// Value returns the normalized payload regardless of variant.
func (r *Result) Value() interface{} {
	if r.Record != nil {
		return r.Record
	}
	return r.Raw
}

// ValidationError is a per-event failure. It never aborts the batch; the
// orchestrator collects it and moves on.
type ValidationError struct {
	Reason  string
	Snippet string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Normalizer drives the per-candidate pipeline against a schema registry.
type Normalizer struct {
	registry *schema.Registry
}

func New(registry *schema.Registry) *Normalizer {
	return &Normalizer{registry: registry}
}

// Normalize processes one candidate. Scalar candidates pass through with
// the raw_non_json_event type and the ingestion timestamp. Structured
// candidates are alias-remapped in place, schema-checked unless
// allowAnything is set, and timestamped.
//
// The returned error, when non-nil, is always a *ValidationError.
func (n *Normalizer) Normalize(candidate parser.Candidate, index int, allowAnything bool, ingestionEpoch int64) (*Result, error) {
	if !candidate.IsRecord() {
		slog.Debug("Candidate is not a structured record, storing as raw event", slog.Int("index", index))
		return &Result{
			EventType: EventTypeRawNonJSON,
			Timestamp: ingestionEpoch,
			Raw:       candidate.Scalar,
		}, nil
	}

	record := candidate.Record
	eventType := ResolveEventType(record)

	if eventType == "end_user_device_events" {
		applyDeviceEventAliases(record)
	}

	if !allowAnything {
		if ok, missing := n.registry.Validate(record, eventType); !ok {
			return nil, &ValidationError{
				Reason: fmt.Sprintf("Event %d failed schema validation for type '%s'. Missing fields: %v",
					index, eventType, missing),
				Snippet: Snippet(record, 100),
			}
		}

		if id, present := record["id"]; present {
			if _, err := uuid.Parse(fmt.Sprintf("%v", id)); err != nil {
				return nil, &ValidationError{
					Reason:  fmt.Sprintf("Event %d has invalid UUID in 'id' field: %v", index, id),
					Snippet: Snippet(record, 100),
				}
			}
		}
	}

	return &Result{
		EventType: eventType,
		Timestamp: ResolveTimestamp(record, eventType, index, ingestionEpoch),
		Record:    record,
	}, nil
}

// ResolveEventType reads the candidate's declared type: eventType, then
// sourcetype, then the literal "unknown".
func ResolveEventType(record map[string]interface{}) string {
	if v, ok := record["eventType"].(string); ok && v != "" {
		return v
	}
	if v, ok := record["sourcetype"].(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// applyDeviceEventAliases renames legacy end_user_device_events field names
// to their canonical schema names. Renames consume the source key, and the
// pass is idempotent: an already-canonical record is left unchanged.
func applyDeviceEventAliases(record map[string]interface{}) {
	rename := func(from, to string) {
		if v, ok := record[from]; ok {
			record[to] = v
			delete(record, from)
		}
	}
	rename("clientMac", "macAddress")
	rename("clientEventTimestamp", "clientEventTime")
	rename("clientEventAdditionalDetails", "additionalDetails")

	// ssid/bssid: take the connected* variant only when the canonical key
	// is absent, else keep the existing value; default to empty string.
	renameIfAbsent := func(from, to string) {
		if v, ok := record[from]; ok {
			if _, exists := record[to]; !exists {
				record[to] = v
			}
			delete(record, from)
		} else if _, exists := record[to]; !exists {
			record[to] = ""
		}
	}
	renameIfAbsent("connectedSsid", "ssid")
	renameIfAbsent("connectedBssid", "bssid")

	if _, ok := record["clientEventStatus"]; !ok {
		if sev, present := record["clientEventSeverity"]; present {
			record["clientEventStatus"] = sev
		}
	}
}

// Snippet serializes a record and truncates it for failure diagnostics,
// keeping log and response payloads bounded.
func Snippet(record map[string]interface{}, n int) string {
	data, err := json.Marshal(record)
	if err != nil {
		return ""
	}
	s := string(data)
	if len(s) > n {
		return s[:n]
	}
	return s
}
