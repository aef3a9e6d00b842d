package auth

import (
	"errors"

	"gorm.io/gorm"

	"passreg/pkg/passreg/models"
)

// UserAttributes carries the identity attributes supplied by the
// external gateway on a successful authentication.
type UserAttributes struct {
	ID              string
	Email           *string
	FirstName       string
	LastName        string
	ProfileImageURL string
}

// EnsureUser creates the admin account on first sight and refreshes its
// profile attributes on every later call. It never touches IsMainAdmin,
// IsActive or the password hash, so repeated calls cannot escalate or
// lock out an account. Safe to call on every login.
func EnsureUser(db *gorm.DB, attrs UserAttributes) (*models.User, error) {
	var user models.User
	err := db.First(&user, "id = ?", attrs.ID).Error
	if err == nil {
		user.Email = attrs.Email
		user.FirstName = attrs.FirstName
		user.LastName = attrs.LastName
		user.ProfileImageURL = attrs.ProfileImageURL
		if err := db.Save(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		ID:              attrs.ID,
		Email:           attrs.Email,
		FirstName:       attrs.FirstName,
		LastName:        attrs.LastName,
		ProfileImageURL: attrs.ProfileImageURL,
		IsActive:        true,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
