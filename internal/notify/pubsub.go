package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// PubSubProvider publishes run notifications to a GCP Pub/Sub topic using
// Application Default Credentials.
type PubSubProvider struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubProvider creates the client and verifies the topic exists, so a
// misconfigured topic fails at startup instead of at publish time.
func NewPubSubProvider(ctx context.Context, projectID, topicID string) (*PubSubProvider, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("notify: project id and topic id are required")
	}

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("check pubsub topic %q: %w", topicID, err)
	}
	if !exists {
		_ = client.Close()
		return nil, fmt.Errorf("notify: pubsub topic %q does not exist in project %q", topicID, projectID)
	}

	return &PubSubProvider{client: client, topic: topic}, nil
}

type runNotification struct {
	RunID       string `json:"run_id"`
	DatasetPath string `json:"dataset_path"`
}

// Publish sends the notification and waits for the server acknowledgement so
// failures surface to the caller.
func (p *PubSubProvider) Publish(ctx context.Context, runID, datasetPath string) error {
	payload, err := json.Marshal(runNotification{RunID: runID, DatasetPath: datasetPath})
	if err != nil {
		return fmt.Errorf("marshal run notification: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{Data: payload})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish run notification: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the client.
func (p *PubSubProvider) Close() error {
	p.topic.Stop()
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
