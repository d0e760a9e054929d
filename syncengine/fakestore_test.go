package syncengine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mmdatafocus/sync_backend/store"
)

// fakeStore behaves like a database with one unique column per table and a
// unique (entity, key) ledger. Transactions run concurrently; a ledger key
// inserted by an open transaction blocks other inserters of the same key until
// that transaction commits or rolls back, like a unique index row lock.
type fakeStore struct {
	mu   sync.Mutex
	cond *sync.Cond

	tables  map[string][]store.Row
	unique  map[string]string
	ledger  map[[2]string]string
	pending map[[2]string]*fakeTx
	waiting int

	calls     int
	failWrite error
	// onReserve runs after a transaction takes a ledger key; an error aborts it.
	onReserve func(key [2]string) error
}

func newFakeStore(tables ...string) *fakeStore {
	s := &fakeStore{
		tables:  map[string][]store.Row{},
		unique:  map[string]string{},
		ledger:  map[[2]string]string{},
		pending: map[[2]string]*fakeTx{},
	}
	s.cond = sync.NewCond(&s.mu)
	for _, t := range tables {
		s.tables[t] = nil
	}
	return s
}

func (s *fakeStore) ledgerWaiters() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting
}

func (s *fakeStore) storageCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *fakeStore) rows(model string) []store.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Row(nil), s.tables[model]...)
}

func (s *fakeStore) ledgerSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ledger)
}

func (s *fakeStore) touch() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *fakeStore) hasTable(model string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tables[model]
	return ok
}

func (s *fakeStore) Delegate(model string) (store.Delegate, bool) {
	if !s.hasTable(model) {
		return nil, false
	}
	return &fakeDelegate{store: s, model: model}, true
}

func (s *fakeStore) EnsureLedger(ctx context.Context) error {
	s.touch()
	return nil
}

func (s *fakeStore) Transaction(ctx context.Context, fn func(tx store.Tx) error) error {
	s.touch()

	tx := &fakeTx{store: s, staged: map[string][]store.Row{}, ledger: map[[2]string]string{}}
	err := fn(tx)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.cond.Broadcast()
	for k := range tx.ledger {
		delete(s.pending, k)
	}
	if err != nil {
		return err
	}
	for k, v := range tx.ledger {
		s.ledger[k] = v
	}
	for model, rows := range tx.staged {
		s.tables[model] = append(s.tables[model], rows...)
	}
	return nil
}

type fakeTx struct {
	store  *fakeStore
	staged map[string][]store.Row
	ledger map[[2]string]string
}

func (t *fakeTx) Delegate(model string) (store.Delegate, bool) {
	if !t.store.hasTable(model) {
		return nil, false
	}
	return &fakeDelegate{store: t.store, model: model, tx: t}, true
}

func (t *fakeTx) InsertLedgerIfAbsent(ctx context.Context, entry store.LedgerEntry) (bool, error) {
	key := [2]string{entry.Entity, entry.IdempotencyKey}
	s := t.store
	s.mu.Lock()
	for {
		owner, held := s.pending[key]
		if !held || owner == t {
			break
		}
		s.waiting++
		s.cond.Wait()
		s.waiting--
	}
	_, committed := s.ledger[key]
	_, staged := t.ledger[key]
	if committed || staged {
		s.mu.Unlock()
		return false, nil
	}
	s.pending[key] = t
	t.ledger[key] = entry.PayloadHash
	hook := s.onReserve
	s.mu.Unlock()

	if hook != nil {
		if err := hook(key); err != nil {
			return false, err
		}
	}
	return true, nil
}

type fakeDelegate struct {
	store *fakeStore
	model string
	tx    *fakeTx
}

func (d *fakeDelegate) FindMany(ctx context.Context, q store.Query) ([]store.Row, error) {
	d.store.touch()
	var out []store.Row
	for _, r := range d.store.rows(d.model) {
		if matches(r, q.Where) {
			out = append(out, r)
		}
	}
	for _, o := range q.OrderBy {
		field := o.Field
		sort.SliceStable(out, func(i, j int) bool {
			return out[i][field].(time.Time).Before(out[j][field].(time.Time))
		})
	}
	if q.Offset >= len(out) {
		return nil, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func matches(r store.Row, preds []store.Predicate) bool {
	for _, p := range preds {
		v, present := r[p.Field]
		switch p.Op {
		case store.OpGte:
			t, ok := v.(time.Time)
			if !ok || t.Before(p.Value.(time.Time)) {
				return false
			}
		case store.OpEq:
			if p.Value == nil {
				if present && v != nil {
					return false
				}
			} else if v != p.Value {
				return false
			}
		}
	}
	return true
}

func (d *fakeDelegate) CreateMany(ctx context.Context, rows []store.Row, skipDuplicates bool) (int64, error) {
	d.store.touch()
	if d.store.failWrite != nil {
		return 0, d.store.failWrite
	}
	uniq := d.store.unique[d.model]
	seen := map[interface{}]bool{}
	if uniq != "" {
		for _, r := range d.store.rows(d.model) {
			seen[r[uniq]] = true
		}
		for _, r := range d.tx.staged[d.model] {
			seen[r[uniq]] = true
		}
	}
	var inserted int64
	for _, r := range rows {
		if uniq != "" {
			if seen[r[uniq]] {
				if !skipDuplicates {
					return inserted, fmt.Errorf("duplicate %s", uniq)
				}
				continue
			}
			seen[r[uniq]] = true
		}
		d.tx.staged[d.model] = append(d.tx.staged[d.model], r)
		inserted++
	}
	return inserted, nil
}
