package models

import "time"

// SyncIdempotency is the push ledger. One row per (entity, idempotency_key), ever.
// Unique constraint: UX_sync_idempotency_entity_key (entity, idempotency_key).
type SyncIdempotency struct {
	ID             uint      `gorm:"primary_key;autoIncrement" json:"id"`
	Entity         string    `gorm:"size:100;not null;uniqueIndex:UX_sync_idempotency_entity_key,priority:1" json:"entity"`
	IdempotencyKey string    `gorm:"column:idempotency_key;size:100;not null;uniqueIndex:UX_sync_idempotency_entity_key,priority:2" json:"idempotency_key"`
	PayloadHash    string    `gorm:"column:payloadhash;size:128" json:"payloadhash"`
	CreatedAt      time.Time `gorm:"column:createdat;not null;autoCreateTime" json:"createdat"`
}

func (SyncIdempotency) TableName() string { return "sync_idempotency" }
