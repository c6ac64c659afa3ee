package schema

// Summarize builds a compact per-type view of an event for summary-mode
// logging. Unknown types get an empty summary.
func Summarize(event map[string]interface{}, eventType string) map[string]interface{} {
	summary := map[string]interface{}{}

	switch eventType {
	case "audit_trail":
		summary["id"] = event["id"]
		summary["user"] = event["user"]
		summary["action"] = event["action"]
		summary["description"] = event["auditDescription"]

	case "nile_alerts":
		summary["id"] = event["id"]
		summary["type"] = event["alertType"]
		summary["subject"] = event["alertSubject"]
		summary["severity"] = event["alertSeverity"]

	case "end_user_device_events":
		// Tolerate pre-normalization field names so summaries work even
		// when allow_anything skipped the alias pass.
		summary["mac"] = firstPresent(event, "macAddress", "clientMac")
		summary["desc"] = event["clientEventDescription"]
		summary["status"] = firstPresent(event, "clientEventStatus", "clientEventSeverity")
	}

	return summary
}

func firstPresent(event map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := event[k]; ok {
			return v
		}
	}
	return ""
}
