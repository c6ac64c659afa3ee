package normalizer

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// typeTimestampField maps an event type to the payload field carrying its
// semantic time. clientEventTime is the post-alias name.
var typeTimestampField = map[string]string{
	"audit_trail":            "auditTime",
	"nile_alerts":            "alertTime",
	"end_user_device_events": "clientEventTime",
}

// dateLayouts are tried in order for free-form date strings.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.UnixDate,
}

// ResolveTimestamp extracts the event's semantic time as epoch seconds.
// Priority: the type-specific field, then the generic HEC "time" field,
// then the ingestion epoch. Parse failures are never fatal; they log and
// fall back to the ingestion epoch.
func ResolveTimestamp(record map[string]interface{}, eventType string, index int, ingestionEpoch int64) int64 {
	sourceKey := ""
	if key, ok := typeTimestampField[eventType]; ok {
		if _, present := record[key]; present {
			sourceKey = key
		}
	}
	if sourceKey == "" {
		if _, present := record["time"]; present {
			sourceKey = "time"
		}
	}
	if sourceKey == "" {
		return ingestionEpoch
	}

	val := record[sourceKey]
	ts, err := parseTimestampValue(val, sourceKey)
	if err != nil {
		slog.Warn("Event timestamp parsing error, using ingestion time",
			slog.Int("index", index),
			slog.String("key", sourceKey),
			slog.String("value", fmt.Sprintf("%v", val)),
			slog.String("error", err.Error()),
		)
		return ingestionEpoch
	}
	return ts
}

func parseTimestampValue(val interface{}, sourceKey string) (int64, error) {
	switch v := val.(type) {
	case float64:
		// json.Unmarshal yields float64 for all JSON numbers; truncate
		// sub-second precision to integer epoch seconds.
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case string:
		if isDigits(v) {
			return strconv.ParseInt(v, 10, 64)
		}
		// The HEC "time" field is conventionally float epoch seconds
		// (seconds.micros); try that before general date parsing.
		if sourceKey == "time" && strings.Contains(v, ".") {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return int64(f), nil
			}
		}
		return parseDateString(v)
	default:
		return 0, fmt.Errorf("unsupported timestamp type %T", val)
	}
}

func parseDateString(s string) (int64, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("unrecognized date format %q", s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
