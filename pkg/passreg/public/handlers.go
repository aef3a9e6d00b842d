package public

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"passreg/pkg/passreg/models"
)

// Handler serves the unauthenticated public lookup. It is keyed only by
// the public identifier - no group or search filtering ever applies.
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new public handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// PersonResponse is the public view of a passport record. Internal ids,
// group ownership and audit fields are not exposed.
type PersonResponse struct {
	PublicID       string  `json:"public_id"`
	FullName       string  `json:"full_name"`
	BirthDate      string  `json:"birth_date"`
	PassportNumber string  `json:"passport_number"`
	Status         bool    `json:"status"`
	ExpirationDate string  `json:"expiration_date"`
	Notes          string  `json:"notes"`
	PhotoURL       *string `json:"photo_url,omitempty"`
	IsExpired      bool    `json:"is_expired"`
	IsExpiringSoon bool    `json:"is_expiring_soon"`
}

// GetByPublicID returns a passport record by its shareable identifier
func (h *Handler) GetByPublicID(c *gin.Context) {
	publicID := c.Param("publicId")

	var person models.Person
	if err := h.db.Where("public_id = ?", publicID).First(&person).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Passport not found"})
		return
	}

	now := time.Now()
	c.JSON(http.StatusOK, PersonResponse{
		PublicID:       person.PublicID,
		FullName:       person.FullName,
		BirthDate:      person.BirthDate.Format("2006-01-02"),
		PassportNumber: person.PassportNumber,
		Status:         person.Status,
		ExpirationDate: person.ExpirationDate.Format("2006-01-02"),
		Notes:          person.Notes,
		PhotoURL:       person.PhotoURL,
		IsExpired:      person.IsExpired(now),
		IsExpiringSoon: person.IsExpiringSoon(now),
	})
}

// RegisterRoutes registers public routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/public/people/:publicId", h.GetByPublicID)
}
