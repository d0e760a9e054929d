package config

import (
	"os"
	"strings"
)

// SyncSettings holds the knobs of the sync engine and its schema source.
type SyncSettings struct {
	// SchemaSource is "file" (Prisma or YAML description) or "database" (live introspection).
	SchemaSource string
	SchemaPath   string
	DefaultLimit int
	MaxLimit     int
	// StrictCatalog turns unresolved catalog targets into a start-up failure.
	StrictCatalog bool
	// EventsTopic enables the post-commit push notification when set.
	EventsTopic string
}

// LoadSyncSettings reads:
// - SYNC_SCHEMA_SOURCE (file|database, default file)
// - SYNC_SCHEMA_PATH (default prisma/schema.prisma)
// - SYNC_DEFAULT_LIMIT (default 100)
// - SYNC_MAX_LIMIT (default 500)
// - SYNC_STRICT_CATALOG (default false)
// - SYNC_EVENTS_TOPIC
func LoadSyncSettings() SyncSettings {
	s := SyncSettings{
		SchemaSource:  strings.ToLower(strings.TrimSpace(os.Getenv("SYNC_SCHEMA_SOURCE"))),
		SchemaPath:    strings.TrimSpace(os.Getenv("SYNC_SCHEMA_PATH")),
		DefaultLimit:  intFromEnv("SYNC_DEFAULT_LIMIT", 100),
		MaxLimit:      intFromEnv("SYNC_MAX_LIMIT", 500),
		StrictCatalog: EnvBoolDefault("SYNC_STRICT_CATALOG", false),
		EventsTopic:   strings.TrimSpace(os.Getenv("SYNC_EVENTS_TOPIC")),
	}
	if s.SchemaSource == "" {
		s.SchemaSource = "file"
	}
	if s.SchemaPath == "" {
		s.SchemaPath = "prisma/schema.prisma"
	}
	if s.MaxLimit <= 0 {
		s.MaxLimit = 500
	}
	if s.DefaultLimit <= 0 {
		s.DefaultLimit = 100
	}
	if s.DefaultLimit > s.MaxLimit {
		s.DefaultLimit = s.MaxLimit
	}
	return s
}

func EnvBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}

// IsProduction reports GO_ENV=production.
func IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}
