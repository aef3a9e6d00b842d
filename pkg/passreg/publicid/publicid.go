package publicid

import (
	"crypto/rand"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"passreg/pkg/passreg/models"
)

// Length is the fixed length of every public identifier.
const Length = 16

const (
	alphabet    = "abcdefghijklmnopqrstuvwxyz0123456789"
	maxAttempts = 10
)

// ErrExhausted is returned when no unused identifier could be found
// within the retry budget. With 36^16 possible identifiers this only
// happens when something is badly wrong with the random source or the
// uniqueness check.
var ErrExhausted = errors.New("public identifier space exhausted after retries")

// newID is swapped out in tests to force collisions.
var newID = New

// New generates a random identifier. crypto/rand keeps identifiers
// unguessable; a sequential or time-seeded source would make public
// pages enumerable.
func New() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("publicid: %w", err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}

// Issue returns an identifier that no passport record has ever used.
// The check runs unscoped: identifiers of deleted records stay burned
// forever. Callers should issue inside the same transaction as the
// record insert so the unique index backs up this check.
func Issue(db *gorm.DB) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		id, err := newID()
		if err != nil {
			return "", err
		}
		var count int64
		if err := db.Unscoped().Model(&models.Person{}).Where("public_id = ?", id).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return id, nil
		}
	}
	return "", ErrExhausted
}
