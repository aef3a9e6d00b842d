package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an administrator account.
// Accounts are provisioned by the access gateway (or the boot-time seed),
// never through user-facing registration. Deactivated admins are kept
// around so audit history can still resolve them.
type User struct {
	ID              string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Email           *string   `gorm:"uniqueIndex" json:"email,omitempty"`
	PasswordHash    string    `json:"-"` // empty for externally authenticated admins
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	IsMainAdmin     bool      `gorm:"not null;default:false" json:"is_main_admin"`
	IsActive        bool      `gorm:"not null;default:true" json:"is_active"`
}

// BeforeCreate assigns a UUID primary key when none was supplied
// (the gateway may hand us its own subject identifier).
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// DisplayName returns the admin's name for presentation, falling back
// to the email address when no name parts are set.
func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" && u.Email != nil {
		return *u.Email
	}
	return name
}
