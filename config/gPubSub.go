package config

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// Env:
// - PUBSUB_PROJECT_ID (falls back to GOOGLE_CLOUD_PROJECT, then GCP_PROJECT)
// - PUBSUB_CREDENTIALS_JSON (optional; Application Default Credentials otherwise)
// - PUBSUB_CONNECT_ATTEMPTS (default 3)

var (
	pubsubMu     sync.Mutex
	pubsubClient *pubsub.Client
	pubsubTopics = map[string]*pubsub.Topic{}
)

func pubSubProjectID() string {
	for _, key := range []string{"PUBSUB_PROJECT_ID", "GOOGLE_CLOUD_PROJECT", "GCP_PROJECT"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func pubSubOptions() []option.ClientOption {
	if credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON"); credJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credJSON))}
	}
	return nil
}

// pubSubTopic returns the publisher for name, creating the shared client on
// first use. Topics are kept for the life of the process; ClosePubSub flushes them.
func pubSubTopic(ctx context.Context, name string) (*pubsub.Topic, error) {
	pubsubMu.Lock()
	defer pubsubMu.Unlock()

	if t, ok := pubsubTopics[name]; ok {
		return t, nil
	}
	if pubsubClient == nil {
		c, err := newPubSubClient(ctx)
		if err != nil {
			return nil, err
		}
		pubsubClient = c
	}
	t := pubsubClient.Topic(name)
	// events of one entity reach subscribers in commit order
	t.EnableMessageOrdering = true
	pubsubTopics[name] = t
	return t, nil
}

func newPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	projectID := pubSubProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}
	maxAttempts := intFromEnv("PUBSUB_CONNECT_ATTEMPTS", 3)

	for attempt := 1; ; attempt++ {
		c, err := pubsub.NewClient(ctx, projectID, pubSubOptions()...)
		if err == nil {
			log.Printf("pubsub client ready (project_id=%s attempt=%d)", projectID, attempt)
			return c, nil
		}
		if attempt >= maxAttempts {
			return nil, err
		}
		sleep := retryDelay(attempt)
		log.Printf("failed to init pubsub client (project_id=%s attempt=%d): %v; retrying in %s", projectID, attempt, err, sleep)
		if err := sleepCtx(ctx, sleep); err != nil {
			return nil, err
		}
	}
}

// PublishJSON publishes obj to topicName and returns the server-assigned message ID.
// Messages sharing orderingKey are delivered in publish order.
func PublishJSON(ctx context.Context, topicName, orderingKey string, attrs map[string]string, obj interface{}) (string, error) {
	if topicName == "" {
		return "", errors.New("topicName is required")
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	topic, err := pubSubTopic(ctx, topicName)
	if err != nil {
		return "", err
	}

	id, err := topic.Publish(ctx, &pubsub.Message{
		Data:        data,
		Attributes:  attrs,
		OrderingKey: orderingKey,
	}).Get(ctx)
	if err != nil && orderingKey != "" {
		// a failed ordered publish pauses the key until resumed
		topic.ResumePublish(orderingKey)
	}
	return id, err
}

func ClosePubSub() {
	pubsubMu.Lock()
	defer pubsubMu.Unlock()
	for name, t := range pubsubTopics {
		t.Stop()
		delete(pubsubTopics, name)
	}
	if pubsubClient != nil {
		_ = pubsubClient.Close()
		pubsubClient = nil
	}
}
