// Package store is the storage side of synchronization: a closed set of
// per-model delegates, a transaction wrapper and the idempotency ledger.
package store

import "context"

// Row is one record as exchanged with callers: column name to value.
type Row = map[string]interface{}

type Op int

const (
	OpGte Op = iota
	OpEq
)

// Predicate compares a column with a value. OpEq with a nil value matches NULL.
type Predicate struct {
	Field string
	Op    Op
	Value interface{}
}

type Order struct {
	Field string
	Desc  bool
}

// Query is the AND of Where, sorted by OrderBy, paged by Offset/Limit.
// Limit <= 0 means unbounded.
type Query struct {
	Where   []Predicate
	OrderBy []Order
	Limit   int
	Offset  int
}

// Delegate reads and writes one model.
type Delegate interface {
	FindMany(ctx context.Context, q Query) ([]Row, error)
	// CreateMany inserts rows and returns how many were actually written.
	// With skipDuplicates, rows violating a uniqueness constraint are dropped.
	CreateMany(ctx context.Context, rows []Row, skipDuplicates bool) (int64, error)
}

type LedgerEntry struct {
	Entity         string
	IdempotencyKey string
	PayloadHash    string
}

type Tx interface {
	Delegate(model string) (Delegate, bool)
	// InsertLedgerIfAbsent records entry unless (Entity, IdempotencyKey) is
	// already present. It reports false when the pair exists.
	InsertLedgerIfAbsent(ctx context.Context, entry LedgerEntry) (bool, error)
}

type Client interface {
	Delegate(model string) (Delegate, bool)
	// EnsureLedger creates the idempotency ledger table if it does not exist.
	EnsureLedger(ctx context.Context) error
	// Transaction runs fn in one transaction, committing when fn returns nil.
	Transaction(ctx context.Context, fn func(tx Tx) error) error
}
