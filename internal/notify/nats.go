// Package notify publishes ingest batch notifications over NATS for
// downstream consumers (alerting, dashboards). Publishing is best-effort.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// IngestedMessage is the wire shape published after each stored batch.
type IngestedMessage struct {
	UserID     string    `json:"user_id"`
	Stored     int       `json:"stored"`
	Failed     int       `json:"failed"`
	IngestedAt time.Time `json:"ingested_at"`
}

type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

func NewNATSNotifier(url, subject string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSNotifier{conn: conn, subject: subject}, nil
}

// PublishIngested announces one completed batch.
func (n *NATSNotifier) PublishIngested(ctx context.Context, userID string, stored, failed int) error {
	msg := IngestedMessage{
		UserID:     userID,
		Stored:     stored,
		Failed:     failed,
		IngestedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal ingest notification: %w", err)
	}

	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish ingest notification: %w", err)
	}
	return nil
}

func (n *NATSNotifier) Close() {
	if n.conn != nil {
		n.conn.Drain()
	}
}
