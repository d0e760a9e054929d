// Package syncentity builds the read-only registry of synchronizable entities
// from a catalog and the introspected schema.
package syncentity

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mmdatafocus/sync_backend/models"
	"github.com/mmdatafocus/sync_backend/schema"
)

type Category string

const (
	CategoryReferenceData     Category = "reference-data"
	CategoryTransactionalData Category = "transactional-data"
)

// Config describes one synchronizable entity. Built once at start-up and never
// mutated afterwards. Empty capability fields mean the model has no such column.
type Config struct {
	Slug       string
	ModelName  string
	Table      string
	Category   Category
	Aliases    []string
	ReadRoles  models.RoleSet
	WriteRoles models.RoleSet
	Fields     []string

	UpdatedField     string
	DeletedAtField   string
	DeletedFlagField string
}

// HasField reports whether column exists on the model (case-sensitive, as stored).
func (c *Config) HasField(column string) bool {
	for _, f := range c.Fields {
		if f == column {
			return true
		}
	}
	return false
}

// Registry resolves entity keys to configs. Safe for concurrent use.
type Registry struct {
	configs    []*Config
	lookup     map[string]*Config
	unresolved []string
}

// ErrKeyCollision is returned by Build when two entities claim the same key.
var ErrKeyCollision = errors.New("entity key collision")

var (
	parenthesizedRe = regexp.MustCompile(`\(.*?\)`)
	nonIdentRe      = regexp.MustCompile(`[^a-z0-9_]`)
	underscoresRe   = regexp.MustCompile(`_+`)
)

// Build resolves every catalog target against the schema. Targets without a
// model are skipped and reported by Unresolved; colliding lookup keys fail the build.
func Build(cat Catalog, schemaModels []schema.Model) (*Registry, error) {
	byName := make(map[string]schema.Model, len(schemaModels))
	for _, m := range schemaModels {
		byName[strings.ToLower(m.Name)] = m
	}

	officeWritable := lowerSet(cat.OfficeWritable)
	terminalWritable := lowerSet(cat.TerminalWritable)

	r := &Registry{lookup: map[string]*Config{}}
	var collisions []string

	add := func(target string, category Category) {
		model, ok := byName[normalizeTarget(target)]
		if !ok {
			r.unresolved = append(r.unresolved, target)
			return
		}
		cfg := buildConfig(model, category, cat.Aliases[model.Name], officeWritable, terminalWritable)
		r.configs = append(r.configs, cfg)

		keys := append([]string{cfg.Slug, cfg.ModelName}, cfg.Aliases...)
		for _, key := range keys {
			key = strings.ToLower(key)
			if existing, taken := r.lookup[key]; taken {
				if existing != cfg {
					collisions = append(collisions, fmt.Sprintf("%q claimed by %s and %s", key, existing.ModelName, cfg.ModelName))
				}
				continue
			}
			r.lookup[key] = cfg
		}
	}

	for _, target := range cat.ReferenceData {
		add(target, CategoryReferenceData)
	}
	for _, target := range cat.TransactionalData {
		add(target, CategoryTransactionalData)
	}

	if len(collisions) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrKeyCollision, strings.Join(collisions, "; "))
	}
	return r, nil
}

func buildConfig(model schema.Model, category Category, aliases []string, officeWritable, terminalWritable map[string]bool) *Config {
	table := model.Table
	if table == "" {
		table = model.Name
	}
	cfg := &Config{
		Slug:       createSlug(model.Name),
		ModelName:  model.Name,
		Table:      table,
		Category:   category,
		Aliases:    append([]string(nil), aliases...),
		Fields:     append([]string(nil), model.Fields...),
		ReadRoles:  models.NewRoleSet(models.AllRoles...),
		WriteRoles: models.NewRoleSet(models.RoleAdmin),

		UpdatedField:     updatedFieldRule.resolve(model.Fields),
		DeletedAtField:   deletedAtFieldRule.resolve(model.Fields),
		DeletedFlagField: deletedFlagFieldRule.resolve(model.Fields),
	}

	lowerName := strings.ToLower(model.Name)
	switch category {
	case CategoryReferenceData:
		cfg.WriteRoles[models.RoleOffice] = struct{}{}
	case CategoryTransactionalData:
		if officeWritable[lowerName] {
			cfg.WriteRoles[models.RoleOffice] = struct{}{}
		}
		if terminalWritable[lowerName] {
			cfg.WriteRoles[models.RoleTerminal] = struct{}{}
		}
	}
	return cfg
}

// Resolve looks up an entity by slug, model name or alias, case-insensitively.
func (r *Registry) Resolve(entityKey string) (*Config, bool) {
	cfg, ok := r.lookup[strings.ToLower(entityKey)]
	return cfg, ok
}

// Configs returns every registered entity in catalog order.
func (r *Registry) Configs() []*Config {
	return append([]*Config(nil), r.configs...)
}

// Unresolved returns the catalog targets missing from the schema.
func (r *Registry) Unresolved() []string {
	return append([]string(nil), r.unresolved...)
}

// ModelNames returns the model name of every registered entity in catalog order.
func (r *Registry) ModelNames() []string {
	out := make([]string, 0, len(r.configs))
	for _, c := range r.configs {
		out = append(out, c.ModelName)
	}
	return out
}

// Tables maps every registered model name to its storage table.
func (r *Registry) Tables() map[string]string {
	out := make(map[string]string, len(r.configs))
	for _, c := range r.configs {
		out[c.ModelName] = c.Table
	}
	return out
}

// Keys returns every accepted lookup key, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.lookup))
	for k := range r.lookup {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normalizeTarget(name string) string {
	s := strings.ToLower(name)
	s = parenthesizedRe.ReplaceAllString(s, "")
	s = nonIdentRe.ReplaceAllString(s, "_")
	s = underscoresRe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

func createSlug(modelName string) string {
	s := strings.ToLower(modelName)
	if trimmed := strings.TrimPrefix(s, "t_"); trimmed != "" {
		s = trimmed
	}
	s = underscoresRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func lowerSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return set
}
