package normalizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/todd-reagan/nile-collector/internal/normalizer"
)

func TestResolveTimestamp_TypeFieldWinsOverTime(t *testing.T) {
	record := map[string]interface{}{
		"auditTime": "2023-11-14T12:00:00Z",
		"time":      float64(1500000000),
	}
	got := normalizer.ResolveTimestamp(record, "audit_trail", 0, ingestionEpoch)
	assert.Equal(t, int64(1699963200), got)
}

func TestResolveTimestamp_FallsBackToTime(t *testing.T) {
	record := map[string]interface{}{"time": float64(1500000000.75)}
	got := normalizer.ResolveTimestamp(record, "audit_trail", 0, ingestionEpoch)
	assert.Equal(t, int64(1500000000), got, "fractional seconds truncated")
}

func TestResolveTimestamp_NoSourceUsesIngestionEpoch(t *testing.T) {
	got := normalizer.ResolveTimestamp(map[string]interface{}{}, "audit_trail", 0, ingestionEpoch)
	assert.Equal(t, ingestionEpoch, got)
}

func TestResolveTimestamp_NeverFails(t *testing.T) {
	// Unparseable values log and fall back; they must not reject the event.
	cases := []interface{}{
		"not a date",
		"14/11/2023",
		true,
		[]interface{}{1, 2},
		map[string]interface{}{"nested": 1},
	}
	for _, v := range cases {
		record := map[string]interface{}{"time": v}
		got := normalizer.ResolveTimestamp(record, "unknown", 0, ingestionEpoch)
		assert.Equal(t, ingestionEpoch, got, "value %v should fall back", v)
	}
}

func TestResolveTimestamp_StringForms(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  int64
	}{
		{"digit string", "1700000500", 1700000500},
		{"float string in time field", "1700000500.25", 1700000500},
		{"rfc3339", "2023-11-14T12:00:00Z", 1699963200},
		{"rfc3339 with offset", "2023-11-14T12:00:00+00:00", 1699963200},
		{"no zone", "2023-11-14T12:00:00", 1699963200},
		{"space separated", "2023-11-14 12:00:00", 1699963200},
		{"date only", "2023-11-14", 1699920000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := map[string]interface{}{"time": tc.value}
			got := normalizer.ResolveTimestamp(record, "unknown", 0, ingestionEpoch)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveTimestamp_DeviceEventsUseClientEventTime(t *testing.T) {
	record := map[string]interface{}{"clientEventTime": float64(1690000000)}
	got := normalizer.ResolveTimestamp(record, "end_user_device_events", 0, ingestionEpoch)
	assert.Equal(t, int64(1690000000), got)
}

func TestResolveTimestamp_AlertsUseAlertTime(t *testing.T) {
	record := map[string]interface{}{"alertTime": "1690000000"}
	got := normalizer.ResolveTimestamp(record, "nile_alerts", 0, ingestionEpoch)
	assert.Equal(t, int64(1690000000), got)
}
