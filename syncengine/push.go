package syncengine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mmdatafocus/sync_backend/config"
	"github.com/mmdatafocus/sync_backend/store"
	"github.com/mmdatafocus/sync_backend/syncentity"
	"github.com/mmdatafocus/sync_backend/utils"
)

type PushRequest struct {
	Entity         string
	IdempotencyKey string
	// Records must each be a JSON object; anything else is rejected.
	Records []interface{}
	Source  *string
	Cursor  *string
}

type PushResult struct {
	Entity      string    `json:"entity"`
	Received    int       `json:"received"`
	Inserted    int64     `json:"inserted"`
	Source      *string   `json:"source"`
	Cursor      *string   `json:"cursor"`
	ProcessedAt time.Time `json:"processedAt"`
}

// Push inserts a batch of records exactly once per (entity, idempotency key).
// A repeated key fails with ErrConflict whatever its payload. Rows the target
// table already holds under its own unique constraints are skipped.
func (e *Engine) Push(ctx context.Context, caller Caller, req PushRequest) (res *PushResult, err error) {
	ctx, span := e.startSpan(ctx, OperationPush, req.Entity, caller)
	defer func() { endSpan(span, err) }()

	log := e.callerLog(ctx, OperationPush, caller)

	cfg, err := e.resolve(OperationPush, req.Entity, caller, log)
	if err != nil {
		return nil, err
	}
	log = log.WithField("entity", cfg.Slug)

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		err := fmt.Errorf("%w: idempotency_key is required", ErrInvalidArgument)
		log.WithError(err).Warn("missing idempotency key")
		return nil, err
	}
	log = log.WithField("idempotency_key", key)

	if len(req.Records) == 0 {
		err := fmt.Errorf("%w: no records to synchronize", ErrInvalidArgument)
		log.WithError(err).Warn("empty batch")
		return nil, err
	}

	now := e.now().UTC()
	prepared := make([]store.Row, 0, len(req.Records))
	for i, raw := range req.Records {
		row, err := prepareRecord(cfg, raw, now)
		if err != nil {
			err = fmt.Errorf("%w (record %d)", err, i)
			log.WithError(err).Warn("malformed record")
			return nil, err
		}
		prepared = append(prepared, row)
	}

	hash, err := utils.Fingerprint(req.Records)
	if err != nil {
		config.LogError(log, moduleName, "Push", "fingerprint payload", nil, err)
		return nil, err
	}

	if err := e.store.EnsureLedger(ctx); err != nil {
		config.LogError(log, moduleName, "Push", "ensure idempotency ledger", nil, err)
		return nil, err
	}

	var inserted int64
	err = e.store.Transaction(ctx, func(tx store.Tx) error {
		fresh, err := tx.InsertLedgerIfAbsent(ctx, store.LedgerEntry{
			Entity:         cfg.Slug,
			IdempotencyKey: key,
			PayloadHash:    hash,
		})
		if err != nil {
			return err
		}
		if !fresh {
			return fmt.Errorf("%w: idempotency_key %s was already processed for %s", ErrConflict, key, cfg.Slug)
		}

		d, err := e.delegate(cfg, tx.Delegate, log)
		if err != nil {
			return err
		}
		inserted, err = d.CreateMany(ctx, prepared, true)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			log.WithError(err).Warn("duplicate push")
			return nil, err
		}
		config.LogError(log, moduleName, "Push", "push transaction", logrus.Fields{
			"received": len(prepared),
		}, err)
		return nil, err
	}

	res = &PushResult{
		Entity:      cfg.Slug,
		Received:    len(prepared),
		Inserted:    inserted,
		Source:      req.Source,
		Cursor:      req.Cursor,
		ProcessedAt: e.now().UTC(),
	}
	log.WithFields(logrus.Fields{
		"received": res.Received,
		"inserted": res.Inserted,
	}).Info("push")

	e.notifyPushed(ctx, caller, key, res, log)
	return res, nil
}

// prepareRecord copies raw and fills change-tracking columns the caller left out.
// A value the caller sent, even null, is kept.
func prepareRecord(cfg *syncentity.Config, raw interface{}, now time.Time) (store.Row, error) {
	rec, ok := raw.(map[string]interface{})
	if !ok || rec == nil {
		return nil, fmt.Errorf("%w: each record must be a JSON object", ErrInvalidArgument)
	}

	row := make(store.Row, len(rec)+3)
	for k, v := range rec {
		if !cfg.HasField(k) {
			return nil, fmt.Errorf("%w: unknown field %s", ErrInvalidArgument, k)
		}
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			return nil, fmt.Errorf("%w: field %s must be a scalar value", ErrInvalidArgument, k)
		}
		row[k] = v
	}

	if cfg.UpdatedField != "" {
		if _, set := row[cfg.UpdatedField]; !set {
			row[cfg.UpdatedField] = now
		}
	}
	if cfg.DeletedFlagField != "" {
		if _, set := row[cfg.DeletedFlagField]; !set {
			row[cfg.DeletedFlagField] = false
		}
	}
	if cfg.DeletedAtField != "" {
		if _, set := row[cfg.DeletedAtField]; !set {
			row[cfg.DeletedAtField] = nil
		}
	}
	return row, nil
}
