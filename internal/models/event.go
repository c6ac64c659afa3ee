package models

// StoredEvent is one accepted, normalized event. The physical key is
// (user_id, ts, id) so two events for the same user in the same second
// coexist; ID is the logical per-event identifier.
type StoredEvent struct {
	UserID string `json:"user_id"`
	// Timestamp is the event's semantic time in epoch seconds when it
	// could be determined from the payload, else the ingestion time.
	Timestamp int64  `json:"timestamp"`
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	// EventData is the normalized payload, serialized as JSON.
	EventData string `json:"event_data"`
	// CreatedAt is the ingestion wall-clock time, ISO-8601.
	CreatedAt string `json:"created_at"`
}

// EventView is a StoredEvent prepared for API responses: event_data is
// deserialized back to structured form when possible, otherwise the raw
// string is passed through.
type EventView struct {
	UserID    string      `json:"user_id"`
	Timestamp int64       `json:"timestamp"`
	ID        string      `json:"id"`
	EventType string      `json:"event_type"`
	EventData interface{} `json:"event_data"`
	CreatedAt string      `json:"created_at"`
}

// FailedEvent records one candidate rejected during ingestion.
type FailedEvent struct {
	Reason       string `json:"reason"`
	EventSnippet string `json:"event_snippet,omitempty"`
	EventUUID    string `json:"event_uuid,omitempty"`
}

// HECResponse is the Splunk HEC wire response.
// Codes follow the HEC convention: 0 success, 2 bad/missing auth,
// 3 invalid token (health), 5 no data, 6 bad encoding, 8 internal error.
type HECResponse struct {
	Text    string        `json:"text"`
	Code    int           `json:"code"`
	Details string        `json:"details,omitempty"`
	Errors  []FailedEvent `json:"errors,omitempty"`
}

// EventListResponse is the GET /events response envelope.
type EventListResponse struct {
	Events           []EventView            `json:"events"`
	Count            int                    `json:"count"`
	ScannedCount     int                    `json:"scanned_count"`
	LastEvaluatedKey map[string]interface{} `json:"last_evaluated_key"`
}
