package people

import (
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"passreg/pkg/passreg/activity"
	"passreg/pkg/passreg/auth"
	"passreg/pkg/passreg/models"
	"passreg/pkg/passreg/publicid"
	"passreg/pkg/passreg/qr"
)

const dateLayout = "2006-01-02"

// Handler handles passport record requests
type Handler struct {
	db        *gorm.DB
	lg        *zap.SugaredLogger
	qr        *qr.Generator
	uploadDir string
}

// NewHandler creates a new people handler
func NewHandler(db *gorm.DB, lg *zap.SugaredLogger, qrGen *qr.Generator, uploadDir string) *Handler {
	return &Handler{db: db, lg: lg, qr: qrGen, uploadDir: uploadDir}
}

// CreatePersonRequest represents the multipart form to create a record.
// The photo file travels alongside these fields under the "photo" key.
type CreatePersonRequest struct {
	FullName       string `form:"full_name" binding:"required"`
	BirthDate      string `form:"birth_date" binding:"required"`
	PassportNumber string `form:"passport_number" binding:"required"`
	ExpirationDate string `form:"expiration_date" binding:"required"`
	GroupID        uint   `form:"group_id" binding:"required"`
	Status         *bool  `form:"status"`
	Notes          string `form:"notes"`
}

// UpdatePersonRequest represents a partial update; omitted fields keep
// their prior values.
type UpdatePersonRequest struct {
	FullName       *string `form:"full_name"`
	BirthDate      *string `form:"birth_date"`
	PassportNumber *string `form:"passport_number"`
	ExpirationDate *string `form:"expiration_date"`
	GroupID        *uint   `form:"group_id"`
	Status         *bool   `form:"status"`
	Notes          *string `form:"notes"`
}

// PersonResponse represents a passport record in API responses
type PersonResponse struct {
	ID             uint         `json:"id"`
	PublicID       string       `json:"public_id"`
	FullName       string       `json:"full_name"`
	BirthDate      string       `json:"birth_date"`
	PassportNumber string       `json:"passport_number"`
	Status         bool         `json:"status"`
	ExpirationDate string       `json:"expiration_date"`
	Notes          string       `json:"notes"`
	PhotoURL       *string      `json:"photo_url,omitempty"`
	QRCodeURL      *string      `json:"qr_code_url,omitempty"`
	GroupID        *uint        `json:"group_id,omitempty"`
	CreatedByID    string       `json:"created_by_id"`
	IsExpired      bool         `json:"is_expired"`
	IsExpiringSoon bool         `json:"is_expiring_soon"`
	CreatedAt      string       `json:"created_at"`
	UpdatedAt      string       `json:"updated_at"`
}

// PersonToResponse maps a record to its API shape, including the
// read-time expiry hints.
func PersonToResponse(p models.Person, now time.Time) PersonResponse {
	return PersonResponse{
		ID:             p.ID,
		PublicID:       p.PublicID,
		FullName:       p.FullName,
		BirthDate:      p.BirthDate.Format(dateLayout),
		PassportNumber: p.PassportNumber,
		Status:         p.Status,
		ExpirationDate: p.ExpirationDate.Format(dateLayout),
		Notes:          p.Notes,
		PhotoURL:       p.PhotoURL,
		QRCodeURL:      p.QRCodeURL,
		GroupID:        p.GroupID,
		CreatedByID:    p.CreatedByID,
		IsExpired:      p.IsExpired(now),
		IsExpiringSoon: p.IsExpiringSoon(now),
		CreatedAt:      p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:      p.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func parseDate(field, value string) (time.Time, error) {
	d, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, &ValidationError{field + " must be a date in YYYY-MM-DD format"}
	}
	return d, nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// savePhoto stores an uploaded photo under the upload dir and returns
// the path it is served under.
func (h *Handler) savePhoto(c *gin.Context, file *multipart.FileHeader) (string, error) {
	name := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))
	dest := filepath.Join(h.uploadDir, "photos", name)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		return "", err
	}
	return "/uploads/photos/" + name, nil
}

// generateQRCode derives the scannable image for a record and stores
// the served path. Failure is non-fatal: the record stays without an
// image and the operation can be retried.
func (h *Handler) generateQRCode(person *models.Person) {
	served, err := h.qr.Generate(person.PublicID)
	if err != nil {
		h.lg.Warnw("qr code generation failed", "person_id", person.ID, "public_id", person.PublicID, "error", err)
		return
	}
	if err := h.db.Model(person).Update("qr_code_url", served).Error; err != nil {
		h.lg.Warnw("qr code url update failed", "person_id", person.ID, "error", err)
		return
	}
	person.QRCodeURL = &served
}

// List returns passport records, optionally filtered by group and by a
// case-insensitive substring of the full name or passport number.
func (h *Handler) List(c *gin.Context) {
	query := h.db.Order("created_at DESC")

	if groupID := c.Query("group_id"); groupID != "" {
		query = query.Where("group_id = ?", groupID)
	}

	var people []models.Person
	if err := query.Find(&people).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch people"})
		return
	}

	// Case folding happens here rather than in SQL: the database LOWER()
	// only folds ASCII on some drivers, and names are often Cyrillic.
	if q := c.Query("q"); q != "" {
		needle := strings.ToLower(q)
		matched := people[:0]
		for _, p := range people {
			if strings.Contains(strings.ToLower(p.FullName), needle) ||
				strings.Contains(strings.ToLower(p.PassportNumber), needle) {
				matched = append(matched, p)
			}
		}
		people = matched
	}

	now := time.Now()
	responses := make([]PersonResponse, len(people))
	for i, p := range people {
		responses[i] = PersonToResponse(p, now)
	}

	c.JSON(http.StatusOK, responses)
}

// Get returns a single passport record by internal id
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid person ID"})
		return
	}

	var person models.Person
	if err := h.db.First(&person, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Person not found"})
		return
	}

	c.JSON(http.StatusOK, PersonToResponse(person, time.Now()))
}

// Create creates a passport record. The public identifier and the audit
// entry commit in the same transaction as the record itself; the
// scannable image is derived afterwards and may be absent on failure.
func (h *Handler) Create(c *gin.Context) {
	actorID, _ := auth.GetUserID(c)

	var req CreatePersonRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	birthDate, err := parseDate("birth_date", req.BirthDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	expirationDate, err := parseDate("expiration_date", req.ExpirationDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var group models.Group
	if err := h.db.First(&group, req.GroupID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Group not found"})
		return
	}

	var photoURL *string
	if file, err := c.FormFile("photo"); err == nil {
		served, err := h.savePhoto(c, file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store photo"})
			return
		}
		photoURL = &served
	}

	status := true
	if req.Status != nil {
		status = *req.Status
	}

	groupID := req.GroupID
	person := models.Person{
		FullName:       req.FullName,
		BirthDate:      birthDate,
		PassportNumber: req.PassportNumber,
		Status:         status,
		ExpirationDate: expirationDate,
		Notes:          req.Notes,
		PhotoURL:       photoURL,
		GroupID:        &groupID,
		CreatedByID:    actorID,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		id, err := publicid.Issue(tx)
		if err != nil {
			return err
		}
		person.PublicID = id
		if err := tx.Create(&person).Error; err != nil {
			return err
		}
		return activity.Record(tx, "created passport", activity.EntityPerson,
			strconv.FormatUint(uint64(person.ID), 10), actorID, map[string]interface{}{
				"full_name": person.FullName,
				"public_id": person.PublicID,
				"group_id":  req.GroupID,
			})
	})
	if err != nil {
		if errors.Is(err, publicid.ErrExhausted) {
			h.lg.Errorw("public identifier issuance exhausted", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create person"})
		return
	}

	h.generateQRCode(&person)

	c.JSON(http.StatusCreated, PersonToResponse(person, time.Now()))
}

// Update applies a partial update to a passport record
func (h *Handler) Update(c *gin.Context) {
	actorID, _ := auth.GetUserID(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid person ID"})
		return
	}

	var person models.Person
	if err := h.db.First(&person, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Person not found"})
		return
	}

	var req UpdatePersonRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	changed := []string{}
	if req.FullName != nil {
		person.FullName = *req.FullName
		changed = append(changed, "full_name")
	}
	if req.BirthDate != nil {
		d, err := parseDate("birth_date", *req.BirthDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		person.BirthDate = d
		changed = append(changed, "birth_date")
	}
	if req.PassportNumber != nil {
		person.PassportNumber = *req.PassportNumber
		changed = append(changed, "passport_number")
	}
	if req.ExpirationDate != nil {
		d, err := parseDate("expiration_date", *req.ExpirationDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		person.ExpirationDate = d
		changed = append(changed, "expiration_date")
	}
	if req.GroupID != nil {
		var group models.Group
		if err := h.db.First(&group, *req.GroupID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Group not found"})
			return
		}
		person.GroupID = req.GroupID
		changed = append(changed, "group_id")
	}
	if req.Status != nil {
		person.Status = *req.Status
		changed = append(changed, "status")
	}
	if req.Notes != nil {
		person.Notes = *req.Notes
		changed = append(changed, "notes")
	}

	if file, err := c.FormFile("photo"); err == nil {
		served, err := h.savePhoto(c, file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store photo"})
			return
		}
		person.PhotoURL = &served
		changed = append(changed, "photo")
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&person).Error; err != nil {
			return err
		}
		return activity.Record(tx, "updated passport", activity.EntityPerson,
			strconv.FormatUint(id, 10), actorID, map[string]interface{}{
				"full_name":      person.FullName,
				"changed_fields": changed,
			})
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update person"})
		return
	}

	c.JSON(http.StatusOK, PersonToResponse(person, time.Now()))
}

// Delete removes a passport record. The public identifier stays burned.
func (h *Handler) Delete(c *gin.Context) {
	actorID, _ := auth.GetUserID(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid person ID"})
		return
	}

	var person models.Person
	if err := h.db.First(&person, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Person not found"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&person).Error; err != nil {
			return err
		}
		return activity.Record(tx, "deleted passport", activity.EntityPerson,
			strconv.FormatUint(id, 10), actorID, map[string]interface{}{
				"full_name": person.FullName,
				"public_id": person.PublicID,
			})
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete person"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Person deleted"})
}

// RegenerateQR retries the scannable image for a record whose earlier
// generation failed
func (h *Handler) RegenerateQR(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid person ID"})
		return
	}

	var person models.Person
	if err := h.db.First(&person, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Person not found"})
		return
	}

	served, err := h.qr.Generate(person.PublicID)
	if err != nil {
		h.lg.Warnw("qr code generation failed", "person_id", person.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate QR code"})
		return
	}
	if err := h.db.Model(&person).Update("qr_code_url", served).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update person"})
		return
	}
	person.QRCodeURL = &served

	c.JSON(http.StatusOK, PersonToResponse(person, time.Now()))
}

// RegisterRoutes registers people routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/people", h.List)
	rg.POST("/people", h.Create)
	rg.GET("/people/:id", h.Get)
	rg.PUT("/people/:id", h.Update)
	rg.DELETE("/people/:id", h.Delete)
	rg.POST("/people/:id/qr", h.RegenerateQR)
}
