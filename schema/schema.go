// Package schema reads the model description the sync registry is built from.
//
// Three sources are supported: a Prisma-style schema file, a YAML catalog, and
// live introspection of the connected database. A missing or unreadable source
// is an error; callers treat it as fatal at start-up.
package schema

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/gorm"
)

// Model is one introspected storage model.
type Model struct {
	// Name is the model identifier the catalog refers to.
	Name string
	// Table is the storage table; equal to Name unless the description maps it.
	Table string
	// Fields are column names, in declaration order.
	Fields []string
}

const (
	SourceFile     = "file"
	SourceDatabase = "database"
)

var ErrNoModels = errors.New("schema declares no models")

// Load reads models from the configured source. db is only used for SourceDatabase.
func Load(ctx context.Context, source, path string, db *gorm.DB) ([]Model, error) {
	switch source {
	case SourceDatabase:
		if db == nil {
			return nil, errors.New("schema: database source requested without a database connection")
		}
		return FromDatabase(ctx, db)
	case SourceFile, "":
		return LoadFile(path)
	default:
		return nil, fmt.Errorf("schema: unknown source %q", source)
	}
}

// LoadFile parses the description at path. Files ending in .yaml/.yml are
// YAML catalogs; anything else is read as a Prisma schema.
func LoadFile(path string) ([]Model, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("schema: file not found at %s", path)
		}
		return nil, fmt.Errorf("schema: open %s: %w", path, err)
	}
	defer f.Close()

	var models []Model
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		models, err = ParseYAML(f)
	default:
		models, err = ParsePrisma(f)
	}
	if err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w", path, err)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("schema: %s: %w", path, ErrNoModels)
	}
	return models, nil
}
