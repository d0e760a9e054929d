package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/mmdatafocus/sync_backend/models"
)

const itemsDDL = `CREATE TABLE tb_itens (
	codigo     INTEGER PRIMARY KEY AUTOINCREMENT,
	sku        TEXT NOT NULL UNIQUE,
	descricao  TEXT,
	preco      NUMERIC,
	dtalt      DATETIME,
	deleted_at DATETIME,
	isdeleted  BOOLEAN NOT NULL DEFAULT 0
)`

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// one connection: transactions queue on the pool instead of failing with SQLITE_BUSY
	return openSQLite(t, filepath.Join(t.TempDir(), "sync.db"), 1)
}

// openWALTestDB allows overlapping transactions: readers never block and a
// second writer waits on the write lock for up to the busy timeout.
func openWALTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return openSQLite(t, filepath.Join(t.TempDir(), "sync.db")+"?_journal_mode=WAL&_busy_timeout=5000", 2)
}

func openSQLite(t *testing.T, dsn string, conns int) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Exec(itemsDDL).Error)
	return db
}

func newTestClient(t *testing.T) (*GormClient, *gorm.DB) {
	db := openTestDB(t)
	return NewGormClient(db, map[string]string{"t_itens": "tb_itens"}), db
}

func itemsDelegate(t *testing.T, c Client) Delegate {
	t.Helper()
	d, ok := c.Delegate("t_itens")
	require.True(t, ok)
	return d
}

func TestDelegate_UnknownModel(t *testing.T) {
	c, _ := newTestClient(t)
	_, ok := c.Delegate("tb_itens")
	require.False(t, ok, "delegates are keyed by model name, not table")
	_, ok = c.Delegate("t_vendas")
	require.False(t, ok)
}

func TestCreateMany_SkipsDuplicateRows(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	d := itemsDelegate(t, c)

	n, err := d.CreateMany(ctx, []Row{{"sku": "A"}, {"sku": "B"}}, true)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	n, err = d.CreateMany(ctx, []Row{{"sku": "B"}, {"sku": "C"}, {"sku": "A"}}, true)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = d.CreateMany(ctx, []Row{{"sku": "C"}}, false)
	require.Error(t, err)

	rows, err := d.FindMany(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

func TestCreateMany_KeepsColumnDefaults(t *testing.T) {
	c, db := newTestClient(t)
	ctx := context.Background()

	n, err := itemsDelegate(t, c).CreateMany(ctx, []Row{
		{"sku": "A", "isdeleted": true},
		{"sku": "B"},
		{"sku": "C", "isdeleted": true},
	}, true)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	var deleted int64
	require.NoError(t, db.Table("tb_itens").Where("isdeleted = ?", true).Count(&deleted).Error)
	require.EqualValues(t, 2, deleted)
}

func TestCreateMany_WritesJSONNumbersExactly(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	d := itemsDelegate(t, c)

	_, err := d.CreateMany(ctx, []Row{{"sku": "A", "preco": json.Number("12.50")}}, true)
	require.NoError(t, err)

	rows, err := d.FindMany(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.InDelta(t, 12.5, rows[0]["preco"], 0.0001)
	require.Equal(t, "A", rows[0]["sku"])
}

func TestFindMany_FiltersOrdersAndPages(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	d := itemsDelegate(t, c)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := d.CreateMany(ctx, []Row{
		{"sku": "D", "dtalt": base.Add(4 * time.Hour), "isdeleted": false},
		{"sku": "A", "dtalt": base.Add(-time.Hour), "isdeleted": false},
		{"sku": "C", "dtalt": base.Add(3 * time.Hour), "isdeleted": true},
		{"sku": "B", "dtalt": base.Add(2 * time.Hour), "isdeleted": false},
		{"sku": "E", "dtalt": base.Add(5 * time.Hour), "isdeleted": false, "deleted_at": base},
		{"sku": "F", "dtalt": base.Add(time.Hour), "isdeleted": false},
	}, true)
	require.NoError(t, err)

	q := Query{
		Where: []Predicate{
			{Field: "dtalt", Op: OpGte, Value: base},
			{Field: "isdeleted", Op: OpEq, Value: false},
			{Field: "deleted_at", Op: OpEq, Value: nil},
		},
		OrderBy: []Order{{Field: "dtalt"}},
	}

	rows, err := d.FindMany(ctx, q)
	require.NoError(t, err)
	require.Equal(t, []string{"F", "B", "D"}, skus(rows))

	q.Limit, q.Offset = 1, 1
	rows, err = d.FindMany(ctx, q)
	require.NoError(t, err)
	require.Equal(t, []string{"B"}, skus(rows))

	q.Limit, q.Offset = 10, 3
	rows, err = d.FindMany(ctx, q)
	require.NoError(t, err)
	require.Empty(t, rows)

	q = Query{Where: []Predicate{{Field: "dtalt", Op: OpGte, Value: base.Add(24 * time.Hour)}}}
	rows, err = d.FindMany(ctx, q)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestEnsureLedger_Idempotent(t *testing.T) {
	c, db := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.EnsureLedger(ctx))
	require.True(t, db.Migrator().HasTable(&models.SyncIdempotency{}))
	require.True(t, db.Migrator().HasIndex(&models.SyncIdempotency{}, "UX_sync_idempotency_entity_key"))

	fresh := NewGormClient(db, nil)
	require.NoError(t, fresh.EnsureLedger(ctx))
	require.NoError(t, fresh.EnsureLedger(ctx))
}

func TestInsertLedgerIfAbsent(t *testing.T) {
	c, db := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, c.EnsureLedger(ctx))

	insert := func(entity, key string) bool {
		var inserted bool
		err := c.Transaction(ctx, func(tx Tx) error {
			var err error
			inserted, err = tx.InsertLedgerIfAbsent(ctx, LedgerEntry{Entity: entity, IdempotencyKey: key, PayloadHash: "h"})
			return err
		})
		require.NoError(t, err)
		return inserted
	}

	require.True(t, insert("itens", "k1"))
	require.False(t, insert("itens", "k1"))
	require.True(t, insert("itens", "k2"))
	require.True(t, insert("vendas", "k1"))

	var count int64
	require.NoError(t, db.Model(&models.SyncIdempotency{}).Count(&count).Error)
	require.EqualValues(t, 3, count)
}

func TestTransaction_RollbackLeavesKeyUnseen(t *testing.T) {
	c, db := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, c.EnsureLedger(ctx))

	boom := errors.New("boom")
	err := c.Transaction(ctx, func(tx Tx) error {
		ok, err := tx.InsertLedgerIfAbsent(ctx, LedgerEntry{Entity: "itens", IdempotencyKey: "k1"})
		require.NoError(t, err)
		require.True(t, ok)
		d, _ := tx.Delegate("t_itens")
		_, err = d.CreateMany(ctx, []Row{{"sku": "A"}}, true)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var items int64
	require.NoError(t, db.Table("tb_itens").Count(&items).Error)
	require.Zero(t, items)

	err = c.Transaction(ctx, func(tx Tx) error {
		ok, err := tx.InsertLedgerIfAbsent(ctx, LedgerEntry{Entity: "itens", IdempotencyKey: "k1"})
		require.True(t, ok)
		return err
	})
	require.NoError(t, err)
}

// The pool holds one connection, so these transactions run one after another;
// only the ledger unique index keeps the later ones from inserting again.
// TestTransaction_OverlappingSameKeyBlocksOnLedgerIndex covers true overlap.
func TestTransaction_ConcurrentSameKeyOnlyOneCommits(t *testing.T) {
	c, db := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, c.EnsureLedger(ctx))

	errDuplicate := errors.New("duplicate")
	const workers = 8
	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Transaction(ctx, func(tx Tx) error {
				ok, err := tx.InsertLedgerIfAbsent(ctx, LedgerEntry{Entity: "itens", IdempotencyKey: "race"})
				if err != nil {
					return err
				}
				if !ok {
					return errDuplicate
				}
				d, _ := tx.Delegate("t_itens")
				_, err = d.CreateMany(ctx, []Row{{"sku": "X"}, {"sku": "Y"}}, true)
				return err
			})
		}(i)
	}
	wg.Wait()

	var committed int
	for _, err := range results {
		if err == nil {
			committed++
			continue
		}
		require.ErrorIs(t, err, errDuplicate)
	}
	require.Equal(t, 1, committed)

	var items int64
	require.NoError(t, db.Table("tb_itens").Count(&items).Error)
	require.EqualValues(t, 2, items)
}

func TestTransaction_OverlappingSameKeyBlocksOnLedgerIndex(t *testing.T) {
	db := openWALTestDB(t)
	c := NewGormClient(db, map[string]string{"t_itens": "tb_itens"})
	ctx := context.Background()
	require.NoError(t, c.EnsureLedger(ctx))

	errDuplicate := errors.New("duplicate")
	claim := func(tx Tx) error {
		ok, err := tx.InsertLedgerIfAbsent(ctx, LedgerEntry{Entity: "itens", IdempotencyKey: "race"})
		if err != nil {
			return err
		}
		if !ok {
			return errDuplicate
		}
		return nil
	}

	firstClaimed := make(chan struct{})
	secondBegan := make(chan struct{})
	first := make(chan error, 1)
	go func() {
		first <- c.Transaction(ctx, func(tx Tx) error {
			if err := claim(tx); err != nil {
				return err
			}
			close(firstClaimed)
			<-secondBegan
			// let the second insert reach the write lock held by this transaction
			time.Sleep(50 * time.Millisecond)
			d, _ := tx.Delegate("t_itens")
			_, err := d.CreateMany(ctx, []Row{{"sku": "X"}}, true)
			return err
		})
	}()
	<-firstClaimed

	second := c.Transaction(ctx, func(tx Tx) error {
		close(secondBegan)
		return claim(tx)
	})
	require.NoError(t, <-first)
	require.ErrorIs(t, second, errDuplicate)

	var entries int64
	require.NoError(t, db.Model(&models.SyncIdempotency{}).Count(&entries).Error)
	require.EqualValues(t, 1, entries)
}

func TestSkipDuplicatesClause(t *testing.T) {
	require.Equal(t, clause.OnConflict{DoNothing: true}, skipDuplicatesClause("sqlite", map[string]interface{}{"sku": "A"}))

	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "sync:sync@tcp(127.0.0.1:3306)/central",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	rows := []map[string]interface{}{{"sku": "A", "descricao": "a"}, {"sku": "B", "descricao": "b"}}
	stmt := db.Table("tb_itens").Clauses(skipDuplicatesClause("mysql", rows[0])).Create(&rows).Statement
	sql := stmt.SQL.String()
	require.Contains(t, sql, "INSERT INTO `tb_itens`")
	require.Contains(t, sql, "ON DUPLICATE KEY UPDATE `descricao`=`descricao`")
	require.NotContains(t, sql, "IGNORE")
}

func skus(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["sku"].(string))
	}
	return out
}
