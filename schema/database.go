package schema

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"
)

// FromDatabase introspects every table of the connected database. Table names
// double as model names.
func FromDatabase(ctx context.Context, db *gorm.DB) ([]Model, error) {
	m := db.WithContext(ctx).Migrator()
	tables, err := m.GetTables()
	if err != nil {
		return nil, fmt.Errorf("schema: list tables: %w", err)
	}
	sort.Strings(tables)

	models := make([]Model, 0, len(tables))
	for _, table := range tables {
		cols, err := m.ColumnTypes(table)
		if err != nil {
			return nil, fmt.Errorf("schema: columns of %s: %w", table, err)
		}
		fields := make([]string, 0, len(cols))
		for _, c := range cols {
			fields = append(fields, c.Name())
		}
		models = append(models, Model{Name: table, Table: table, Fields: fields})
	}
	if len(models) == 0 {
		return nil, ErrNoModels
	}
	return models, nil
}
