package models

import (
	"time"

	"gorm.io/gorm"
)

// ExpiryWarningDays is the window, in days, within which a still-valid
// passport is considered to be expiring soon.
const ExpiryWarningDays = 30

// Person represents a passport record.
// PublicID is an opaque external reference, issued once at creation and
// never changed or reused; soft deletion keeps the row so the identifier
// stays burned even after the record is removed.
type Person struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	PublicID       string         `gorm:"uniqueIndex;not null" json:"public_id"`
	FullName       string         `gorm:"not null" json:"full_name"`
	BirthDate      time.Time      `gorm:"type:date;not null" json:"birth_date"`
	PassportNumber string         `gorm:"not null" json:"passport_number"`
	Status         bool           `gorm:"not null;default:true" json:"status"`
	ExpirationDate time.Time      `gorm:"type:date;not null" json:"expiration_date"`
	Notes          string         `gorm:"default:''" json:"notes"`
	PhotoURL       *string        `json:"photo_url,omitempty"`
	QRCodeURL      *string        `json:"qr_code_url,omitempty"`
	GroupID        *uint          `gorm:"index" json:"group_id,omitempty"`
	CreatedByID    string         `gorm:"type:uuid;not null" json:"created_by_id"`

	// Relationships
	Group     *Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	CreatedBy User   `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
}

// daysUntilExpiration counts whole calendar days from now until the
// expiration date, ignoring time of day on both sides.
func (p *Person) daysUntilExpiration(now time.Time) int {
	ny, nm, nd := now.Date()
	ey, em, ed := p.ExpirationDate.Date()
	from := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	until := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int(until.Sub(from).Hours() / 24)
}

// IsExpired reports whether the expiration date has been reached.
// This is a read-time presentation hint and is independent of Status,
// which only changes through an explicit admin action.
func (p *Person) IsExpired(now time.Time) bool {
	return p.daysUntilExpiration(now) <= 0
}

// IsExpiringSoon reports whether an active record expires within the
// next ExpiryWarningDays days. Inactive records never report as
// expiring soon, and neither do records that have already expired.
func (p *Person) IsExpiringSoon(now time.Time) bool {
	if !p.Status {
		return false
	}
	days := p.daysUntilExpiration(now)
	return days > 0 && days <= ExpiryWarningDays
}
