package activity

import (
	"gorm.io/gorm"

	"passreg/pkg/passreg/models"
)

// Entity type tags used across the mutating handlers.
const (
	EntityPerson = "person"
	EntityGroup  = "group"
	EntityUser   = "user"
)

// Record appends an audit trail entry. Callers pass their transaction
// handle so the entry commits or rolls back together with the mutation
// it describes; a mutation must never report success without its audit
// entry.
//
// details is opaque: it is serialized as-is and later surfaced verbatim.
func Record(tx *gorm.DB, action, entityType, entityID, performedBy string, details map[string]interface{}) error {
	payload, err := models.NewJSONB(details)
	if err != nil {
		return err
	}
	entry := models.ActivityLog{
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		PerformedByID: performedBy,
		Details:       payload,
	}
	return tx.Create(&entry).Error
}
