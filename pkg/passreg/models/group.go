package models

import (
	"time"

	"gorm.io/gorm"
)

// Group represents a named collection of passport records.
// Group names are free text and not required to be unique.
type Group struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Name        string         `gorm:"not null" json:"name"`
	CreatedByID string         `gorm:"type:uuid;not null" json:"created_by_id"`

	// Relationships
	CreatedBy User     `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	People    []Person `gorm:"foreignKey:GroupID" json:"people,omitempty"`
}
