package models

import "time"

// ActivityLog is an append-only audit trail entry. Entries are written
// inside the same transaction as the mutation they describe and are
// never updated or deleted afterwards.
//
// EntityID is stored as text so entries can keep referencing entities
// after those entities are deleted.
type ActivityLog struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	Action        string    `gorm:"not null" json:"action"`
	EntityType    string    `gorm:"not null" json:"entity_type"`
	EntityID      string    `gorm:"not null" json:"entity_id"`
	PerformedByID string    `gorm:"type:uuid;not null" json:"performed_by_id"`
	Details       JSONB     `gorm:"type:jsonb" json:"details,omitempty"`
	Timestamp     time.Time `gorm:"autoCreateTime;index" json:"timestamp"`

	// Relationships
	PerformedBy User `gorm:"foreignKey:PerformedByID" json:"performed_by,omitempty"`
}
