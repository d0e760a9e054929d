package store

import (
	"context"
	"errors"
	"strings"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/mmdatafocus/sync_backend/models"
)

func (c *GormClient) EnsureLedger(ctx context.Context) error {
	if c.ledgerReady.Load() {
		return nil
	}
	db := c.db.WithContext(ctx)
	if db.Migrator().HasTable(&models.SyncIdempotency{}) {
		c.ledgerReady.Store(true)
		return nil
	}
	if err := models.MigrateTable(db); err != nil {
		// another process may have created it first
		if !db.Migrator().HasTable(&models.SyncIdempotency{}) {
			return err
		}
	}
	c.ledgerReady.Store(true)
	return nil
}

// InsertLedgerIfAbsent relies on the (entity, idempotency_key) unique index:
// a concurrent writer of the same pair blocks on it and then fails as a duplicate.
func (t *gormTx) InsertLedgerIfAbsent(ctx context.Context, entry LedgerEntry) (bool, error) {
	row := models.SyncIdempotency{
		Entity:         entry.Entity,
		IdempotencyKey: entry.IdempotencyKey,
		PayloadHash:    entry.PayloadHash,
	}
	err := t.db.WithContext(ctx).Create(&row).Error
	if err == nil {
		return true, nil
	}
	if isDuplicateKeyErr(err) {
		return false, nil
	}
	return false, err
}

func isDuplicateKeyErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
