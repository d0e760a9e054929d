// Package syncengine serves pull and push requests against the entity registry.
package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mmdatafocus/sync_backend/models"
	"github.com/mmdatafocus/sync_backend/store"
	"github.com/mmdatafocus/sync_backend/syncentity"
	"github.com/mmdatafocus/sync_backend/utils"
)

const moduleName = "syncengine"

// Caller is the authenticated identity behind a request.
type Caller struct {
	Subject  string
	Username string
	Role     models.Role
}

// Registry is the read side of *syncentity.Registry.
type Registry interface {
	Resolve(entityKey string) (*syncentity.Config, bool)
	Configs() []*syncentity.Config
}

type Engine struct {
	registry     Registry
	store        store.Client
	logger       logrus.FieldLogger
	notifier     Notifier
	Tracer       trace.Tracer
	now          func() time.Time
	defaultLimit int
}

type Option func(*Engine)

// WithNotifier publishes an event after every committed push.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithDefaultLimit(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.defaultLimit = limit
		}
	}
}

func New(registry Registry, client store.Client, logger logrus.FieldLogger, opts ...Option) *Engine {
	e := &Engine{
		registry:     registry,
		store:        client,
		logger:       logger,
		Tracer:       otel.Tracer("github.com/mmdatafocus/sync_backend/syncengine"),
		now:          time.Now,
		defaultLimit: 100,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// resolve looks up the entity and checks the caller may perform op on it.
func (e *Engine) resolve(op Operation, entityKey string, caller Caller, log logrus.FieldLogger) (*syncentity.Config, error) {
	cfg, ok := e.registry.Resolve(entityKey)
	if !ok {
		err := fmt.Errorf("%w: %s is not configured for synchronization", ErrNotFound, entityKey)
		log.WithError(err).Warn("unknown entity")
		return nil, err
	}
	if err := Authorize(allowedRoles(cfg, op), caller.Role); err != nil {
		err = fmt.Errorf("%w: role %s may not %s %s", err, caller.Role, op, cfg.Slug)
		log.WithField("entity", cfg.Slug).WithError(err).Warn("role not permitted")
		return nil, err
	}
	return cfg, nil
}

func (e *Engine) delegate(cfg *syncentity.Config, lookup func(string) (store.Delegate, bool), log logrus.FieldLogger) (store.Delegate, error) {
	d, ok := lookup(cfg.ModelName)
	if !ok {
		err := fmt.Errorf("%w: no storage delegate for model %s", ErrNotFound, cfg.ModelName)
		log.WithField("entity", cfg.Slug).WithError(err).Error("registry and store disagree")
		return nil, err
	}
	return d, nil
}

func (e *Engine) callerLog(ctx context.Context, op Operation, caller Caller) logrus.FieldLogger {
	fields := logrus.Fields{
		"module":    moduleName,
		"operation": string(op),
		"user":      caller.Username,
		"role":      string(caller.Role),
	}
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		fields["correlation_id"] = cid
	}
	return e.logger.WithFields(fields)
}

func (e *Engine) startSpan(ctx context.Context, op Operation, entityKey string, caller Caller) (context.Context, trace.Span) {
	return e.Tracer.Start(ctx, "sync."+string(op), trace.WithAttributes(
		attribute.String("sync.entity", entityKey),
		attribute.String("sync.role", string(caller.Role)),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
