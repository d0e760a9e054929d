package syncengine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mmdatafocus/sync_backend/config"
)

const pushedEventName = "sync.pushed"

// PushedEvent is published after a push commits.
type PushedEvent struct {
	Entity         string    `json:"entity"`
	IdempotencyKey string    `json:"idempotency_key"`
	Received       int       `json:"received"`
	Inserted       int64     `json:"inserted"`
	Source         *string   `json:"source"`
	Cursor         *string   `json:"cursor"`
	ProcessedAt    time.Time `json:"processed_at"`
	Username       string    `json:"username"`
}

type Notifier interface {
	NotifyPushed(ctx context.Context, event PushedEvent) error
}

// PubSubNotifier publishes PushedEvent as JSON to a Pub/Sub topic.
type PubSubNotifier struct {
	Topic string
}

func (n PubSubNotifier) NotifyPushed(ctx context.Context, event PushedEvent) error {
	_, err := config.PublishJSON(ctx, n.Topic, event.Entity, map[string]string{
		"event":  pushedEventName,
		"entity": event.Entity,
	}, event)
	return err
}

// notifyPushed never fails the push: the batch is already committed.
func (e *Engine) notifyPushed(ctx context.Context, caller Caller, key string, res *PushResult, log logrus.FieldLogger) {
	if e.notifier == nil {
		return
	}
	err := e.notifier.NotifyPushed(ctx, PushedEvent{
		Entity:         res.Entity,
		IdempotencyKey: key,
		Received:       res.Received,
		Inserted:       res.Inserted,
		Source:         res.Source,
		Cursor:         res.Cursor,
		ProcessedAt:    res.ProcessedAt,
		Username:       caller.Username,
	})
	if err != nil {
		config.LogError(log, moduleName, "notifyPushed", "publish "+pushedEventName, nil, err)
	}
}
