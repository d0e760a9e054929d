package models

import (
	"gorm.io/gorm"
)

// MigrateTable creates the tables this service owns. The synced entity tables
// themselves belong to the central store and are never migrated from here.
func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(&SyncIdempotency{})
}
