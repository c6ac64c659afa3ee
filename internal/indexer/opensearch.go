// Package indexer mirrors accepted events into OpenSearch so they are
// searchable alongside the system of record in Postgres. Mirroring is
// best-effort: a failed bulk index never fails an ingest request.
package indexer

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchutil"

	"github.com/todd-reagan/nile-collector/internal/models"
)

type Config struct {
	URL           string
	Username      string
	Password      string
	TLSSkipVerify bool
	IndexPrefix   string
}

type Client struct {
	osClient *opensearch.Client
	config   Config
}

func NewClient(cfg Config) (*Client, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.TLSSkipVerify,
			},
		},
	}

	osCfg := opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	return &Client{osClient: client, config: cfg}, nil
}

// Ping verifies connectivity at startup.
func (c *Client) Ping(ctx context.Context) error {
	info, err := c.osClient.Info(c.osClient.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to opensearch: %w", err)
	}
	defer info.Body.Close()

	if info.IsError() {
		return fmt.Errorf("opensearch returned error: %s", info.Status())
	}
	return nil
}

// indexName buckets events into daily indices under the configured prefix.
func (c *Client) indexName(t time.Time) string {
	return fmt.Sprintf("%s-%s", c.config.IndexPrefix, t.UTC().Format("2006.01.02"))
}

type indexedEvent struct {
	UserID    string          `json:"user_id"`
	Timestamp int64           `json:"timestamp"`
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	EventData json.RawMessage `json:"event_data"`
	CreatedAt string          `json:"created_at"`
}

// IndexEvents bulk-indexes a batch of stored events.
func (c *Client) IndexEvents(ctx context.Context, events []*models.StoredEvent) error {
	if len(events) == 0 {
		return nil
	}

	bi, err := opensearchutil.NewBulkIndexer(opensearchutil.BulkIndexerConfig{
		Client: c.osClient,
		Index:  c.indexName(time.Now()),
	})
	if err != nil {
		return fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	for _, ev := range events {
		doc := indexedEvent{
			UserID:    ev.UserID,
			Timestamp: ev.Timestamp,
			EventID:   ev.ID,
			EventType: ev.EventType,
			EventData: json.RawMessage(ev.EventData),
			CreatedAt: ev.CreatedAt,
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", ev.ID, err)
		}

		err = bi.Add(ctx, opensearchutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: ev.ID,
			Body:       strings.NewReader(string(data)),
		})
		if err != nil {
			return fmt.Errorf("failed to enqueue event %s: %w", ev.ID, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("failed to flush bulk indexer: %w", err)
	}

	stats := bi.Stats()
	if stats.NumFailed > 0 {
		return fmt.Errorf("bulk index reported %d failed documents", stats.NumFailed)
	}
	return nil
}
