package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormClient serves the models it was built with and nothing else.
type GormClient struct {
	db          *gorm.DB
	tables      map[string]string
	ledgerReady atomic.Bool
}

// NewGormClient maps each model name to its table. An empty table name means
// the table is named after the model.
func NewGormClient(db *gorm.DB, tables map[string]string) *GormClient {
	t := make(map[string]string, len(tables))
	for model, table := range tables {
		if table == "" {
			table = model
		}
		t[model] = table
	}
	return &GormClient{db: db, tables: t}
}

func (c *GormClient) Delegate(model string) (Delegate, bool) {
	return delegateFor(c.db, c.tables, model)
}

func (c *GormClient) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx, tables: c.tables})
	})
}

type gormTx struct {
	db     *gorm.DB
	tables map[string]string
}

func (t *gormTx) Delegate(model string) (Delegate, bool) {
	return delegateFor(t.db, t.tables, model)
}

func delegateFor(db *gorm.DB, tables map[string]string, model string) (Delegate, bool) {
	table, ok := tables[model]
	if !ok {
		return nil, false
	}
	return &gormDelegate{db: db, table: table}, true
}

type gormDelegate struct {
	db    *gorm.DB
	table string
}

func (d *gormDelegate) FindMany(ctx context.Context, q Query) ([]Row, error) {
	tx := d.db.WithContext(ctx).Table(d.table)

	if len(q.Where) > 0 {
		exprs := make([]clause.Expression, 0, len(q.Where))
		for _, p := range q.Where {
			col := clause.Column{Name: p.Field}
			switch p.Op {
			case OpGte:
				exprs = append(exprs, clause.Gte{Column: col, Value: p.Value})
			case OpEq:
				exprs = append(exprs, clause.Eq{Column: col, Value: p.Value})
			default:
				return nil, fmt.Errorf("unsupported operator %d on %s", p.Op, p.Field)
			}
		}
		tx = tx.Clauses(clause.Where{Exprs: exprs})
	}
	for _, o := range q.OrderBy {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Field}, Desc: o.Desc})
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []map[string]interface{}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = normalizeRead(r)
	}
	return out, nil
}

func (d *gormDelegate) CreateMany(ctx context.Context, rows []Row, skipDuplicates bool) (int64, error) {
	var inserted int64
	for _, group := range groupByColumns(rows) {
		tx := d.db.WithContext(ctx).Table(d.table)
		if skipDuplicates {
			tx = tx.Clauses(skipDuplicatesClause(tx.Dialector.Name(), group[0]))
		}
		res := tx.Create(&group)
		if res.Error != nil {
			return inserted, res.Error
		}
		inserted += res.RowsAffected
	}
	return inserted, nil
}

// skipDuplicatesClause keeps the stored row when an insert hits a unique key.
// MySQL has no DO NOTHING, so the first column is assigned to itself; the
// no-op update counts as zero affected rows and, unlike INSERT IGNORE, leaves
// strict-mode errors for bad values in place.
func skipDuplicatesClause(dialect string, sample map[string]interface{}) clause.OnConflict {
	if dialect != "mysql" {
		return clause.OnConflict{DoNothing: true}
	}
	cols := make([]string, 0, len(sample))
	for k := range sample {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	col := clause.Column{Name: cols[0]}
	return clause.OnConflict{DoUpdates: []clause.Assignment{{Column: col, Value: col}}}
}

// groupByColumns splits rows into batches sharing the same column set, in order
// of first appearance, so a missing column is never written as NULL.
func groupByColumns(rows []Row) [][]map[string]interface{} {
	var order []string
	groups := map[string][]map[string]interface{}{}
	for _, r := range rows {
		cols := make([]string, 0, len(r))
		for k := range r {
			cols = append(cols, k)
		}
		sort.Strings(cols)
		sig := strings.Join(cols, "\x00")
		if _, seen := groups[sig]; !seen {
			order = append(order, sig)
		}
		groups[sig] = append(groups[sig], normalizeWrite(r))
	}
	out := make([][]map[string]interface{}, 0, len(order))
	for _, sig := range order {
		out = append(out, groups[sig])
	}
	return out
}
