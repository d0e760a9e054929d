package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mmdatafocus/sync_backend/store"
	"github.com/mmdatafocus/sync_backend/syncentity"
)

type PullRequest struct {
	Entity string
	// Since is an ISO-8601 timestamp; empty means no change filter.
	Since string
	// Limit <= 0 takes the engine default.
	Limit  int
	Offset int
}

type PullResult struct {
	Entity  string      `json:"entity"`
	Since   *string     `json:"since"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	Count   int         `json:"count"`
	Records []store.Row `json:"records"`
}

// sinceLayouts are tried in order; layouts without a zone are read as UTC.
// Fractional seconds are accepted after any seconds field.
var sinceLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseSince(raw string) (time.Time, error) {
	for _, layout := range sinceLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: since %q is not an ISO 8601 timestamp", ErrInvalidArgument, raw)
}

// Pull returns one page of live rows of an entity changed at or after Since,
// oldest change first when the entity tracks changes.
func (e *Engine) Pull(ctx context.Context, caller Caller, req PullRequest) (res *PullResult, err error) {
	ctx, span := e.startSpan(ctx, OperationPull, req.Entity, caller)
	defer func() { endSpan(span, err) }()

	log := e.callerLog(ctx, OperationPull, caller)

	cfg, err := e.resolve(OperationPull, req.Entity, caller, log)
	if err != nil {
		return nil, err
	}
	log = log.WithField("entity", cfg.Slug)

	var since *time.Time
	if req.Since != "" {
		t, err := parseSince(req.Since)
		if err != nil {
			log.WithField("since", req.Since).WithError(err).Warn("invalid since")
			return nil, err
		}
		since = &t
	}
	if req.Offset < 0 {
		err := fmt.Errorf("%w: offset must not be negative", ErrInvalidArgument)
		log.WithField("offset", req.Offset).WithError(err).Warn("invalid offset")
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = e.defaultLimit
	}

	d, err := e.delegate(cfg, e.store.Delegate, log)
	if err != nil {
		return nil, err
	}

	rows, err := d.FindMany(ctx, buildPullQuery(cfg, since, limit, req.Offset))
	if err != nil {
		log.WithError(err).Error("pull query failed")
		return nil, err
	}
	if rows == nil {
		rows = []store.Row{}
	}

	res = &PullResult{
		Entity:  cfg.Slug,
		Limit:   limit,
		Offset:  req.Offset,
		Count:   len(rows),
		Records: rows,
	}
	if req.Since != "" {
		raw := req.Since
		res.Since = &raw
	}

	log.WithFields(logrus.Fields{
		"since":  req.Since,
		"limit":  limit,
		"offset": req.Offset,
		"count":  res.Count,
	}).Info("pull")
	return res, nil
}

func buildPullQuery(cfg *syncentity.Config, since *time.Time, limit, offset int) store.Query {
	q := store.Query{Limit: limit, Offset: offset}
	if since != nil && cfg.UpdatedField != "" {
		q.Where = append(q.Where, store.Predicate{Field: cfg.UpdatedField, Op: store.OpGte, Value: *since})
	}
	if cfg.DeletedFlagField != "" {
		q.Where = append(q.Where, store.Predicate{Field: cfg.DeletedFlagField, Op: store.OpEq, Value: false})
	}
	if cfg.DeletedAtField != "" {
		q.Where = append(q.Where, store.Predicate{Field: cfg.DeletedAtField, Op: store.OpEq, Value: nil})
	}
	if cfg.UpdatedField != "" {
		q.OrderBy = []store.Order{{Field: cfg.UpdatedField}}
	}
	return q
}
