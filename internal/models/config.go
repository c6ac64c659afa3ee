package models

import "time"

// UserConfig is the per-user ingestion configuration record. Exactly one
// exists per user id; it is created lazily on first config read or first
// token rotation and never deleted.
type UserConfig struct {
	UserID string `json:"user_id"`
	// HECToken is the raw HEC token used for collector authentication.
	// Empty means no token has been issued yet; an empty string is never
	// written to the indexed column.
	HECToken      string    `json:"splunk_hec_token,omitempty"`
	AllowAnything bool      `json:"allow_anything"`
	SummaryMode   bool      `json:"summary_mode"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UpdateConfigRequest is the exact shape accepted by PUT /config. Both
// fields are required; pointers distinguish "absent" from "false".
type UpdateConfigRequest struct {
	AllowAnything *bool `json:"allow_anything"`
	SummaryMode   *bool `json:"summary_mode"`
}
