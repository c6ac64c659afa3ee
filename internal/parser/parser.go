// Package parser turns a raw HEC request body into an ordered sequence of
// candidate events, unwrapping the Splunk HEC envelope conventions
// (single object, array, "events" wrapper, newline-delimited JSON).
package parser

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Candidate is one parsed-but-not-yet-validated event. It is either a
// structured record or an opaque scalar (e.g. a bare string sent to HEC);
// normalization and validation apply only to the structured variant.
type Candidate struct {
	Record map[string]interface{}
	Scalar interface{}
}

// IsRecord reports whether the candidate carries a structured record.
func (c Candidate) IsRecord() bool {
	return c.Record != nil
}

// Value returns the candidate payload regardless of variant.
func (c Candidate) Value() interface{} {
	if c.Record != nil {
		return c.Record
	}
	return c.Scalar
}

// hecMetadataKeys are envelope keys carried over into the event payload
// when the payload does not already define them.
var hecMetadataKeys = []string{"time", "sourcetype", "host", "index"}

// Parse extracts candidates from a request body. The result preserves
// input order and may be empty, which signals "no processable events"
// rather than an error. Unparseable NDJSON lines are skipped per line.
func Parse(body string, contentType string) []Candidate {
	envelopes := collectEnvelopes(body, contentType)

	candidates := make([]Candidate, 0, len(envelopes))
	for _, env := range envelopes {
		candidates = append(candidates, unwrap(env))
	}
	return candidates
}

// collectEnvelopes gathers raw HEC envelope values from the body. JSON
// bodies are parsed whole; if that yields nothing, or the content type
// declares NDJSON, the body is re-read line by line.
func collectEnvelopes(body, contentType string) []interface{} {
	var envelopes []interface{}

	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "application/json") {
		var payload interface{}
		if err := json.Unmarshal([]byte(body), &payload); err != nil {
			slog.Warn("Invalid JSON payload, will attempt NDJSON parsing", slog.String("error", err.Error()))
		} else {
			switch v := payload.(type) {
			case []interface{}:
				envelopes = append(envelopes, v...)
			case map[string]interface{}:
				envelopes = append(envelopes, classifyObject(v)...)
			default:
				slog.Warn("Unexpected top-level JSON payload type, skipping")
			}
		}
	}

	if len(envelopes) == 0 || strings.Contains(ct, "application/x-ndjson") {
		if len(envelopes) == 0 {
			slog.Debug("Attempting to parse payload as newline-delimited JSON")
		}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			var obj interface{}
			if err := json.Unmarshal([]byte(line), &obj); err != nil {
				slog.Warn("Skipping invalid JSON line", slog.String("line", truncate(line, 100)))
				continue
			}
			switch v := obj.(type) {
			case map[string]interface{}:
				envelopes = append(envelopes, classifyObject(v)...)
			case []interface{}:
				envelopes = append(envelopes, v...)
			default:
				slog.Warn("Skipping non-object, non-array NDJSON line")
			}
		}
	}

	return envelopes
}

// classifyObject applies the HEC object conventions: a single envelope
// (has "event" plus "time" or "sourcetype"), an {"events": [...]} wrapper,
// or a bare event object.
func classifyObject(obj map[string]interface{}) []interface{} {
	_, hasEvent := obj["event"]
	_, hasTime := obj["time"]
	_, hasSourcetype := obj["sourcetype"]
	if hasEvent && (hasTime || hasSourcetype) {
		return []interface{}{obj}
	}
	if events, ok := obj["events"].([]interface{}); ok {
		return events
	}
	return []interface{}{obj}
}

// unwrap extracts the actual event payload from an envelope value and, for
// structured payloads, copies absent envelope metadata and "fields" keys
// into the payload without overwriting anything already present.
func unwrap(envelope interface{}) Candidate {
	env, ok := envelope.(map[string]interface{})
	if !ok {
		// A bare scalar or array element that is not an object: pass
		// through for storage as a raw event.
		return Candidate{Scalar: envelope}
	}

	payload, hasEvent := env["event"]
	if !hasEvent {
		payload = envelope
	}

	record, structured := payload.(map[string]interface{})
	if !structured {
		return Candidate{Scalar: payload}
	}

	// When the payload is the envelope itself the metadata copy is a
	// no-op, but the "fields" sub-object is still flattened in.
	for _, key := range hecMetadataKeys {
		if v, present := env[key]; present {
			if _, exists := record[key]; !exists {
				record[key] = v
			}
		}
	}
	if fields, ok := env["fields"].(map[string]interface{}); ok {
		for k, v := range fields {
			if _, exists := record[k]; !exists {
				record[k] = v
			}
		}
	}

	return Candidate{Record: record}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
