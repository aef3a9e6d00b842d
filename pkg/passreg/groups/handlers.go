package groups

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"passreg/pkg/passreg/activity"
	"passreg/pkg/passreg/auth"
	"passreg/pkg/passreg/models"
)

// Handler handles group-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new groups handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateGroupRequest represents the request to create a group
type CreateGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateGroupRequest represents the request to rename a group
type UpdateGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

// GroupResponse represents a group in API responses
type GroupResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	CreatedByID string `json:"created_by_id"`
	PersonCount int64  `json:"person_count"`
	CreatedAt   string `json:"created_at"`
}

func (h *Handler) groupToResponse(group models.Group) GroupResponse {
	var personCount int64
	h.db.Model(&models.Person{}).Where("group_id = ?", group.ID).Count(&personCount)

	return GroupResponse{
		ID:          group.ID,
		Name:        group.Name,
		CreatedByID: group.CreatedByID,
		PersonCount: personCount,
		CreatedAt:   group.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// List returns all groups, newest first
func (h *Handler) List(c *gin.Context) {
	var groups []models.Group
	if err := h.db.Order("created_at DESC").Find(&groups).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
		return
	}

	responses := make([]GroupResponse, len(groups))
	for i, group := range groups {
		responses[i] = h.groupToResponse(group)
	}

	c.JSON(http.StatusOK, responses)
}

// Create creates a new group owned by the acting admin
func (h *Handler) Create(c *gin.Context) {
	actorID, _ := auth.GetUserID(c)

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group := models.Group{Name: req.Name, CreatedByID: actorID}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		return activity.Record(tx, "created group", activity.EntityGroup,
			strconv.FormatUint(uint64(group.ID), 10), actorID, map[string]interface{}{
				"name": group.Name,
			})
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create group"})
		return
	}

	c.JSON(http.StatusCreated, h.groupToResponse(group))
}

// Update renames a group
func (h *Handler) Update(c *gin.Context) {
	actorID, _ := auth.GetUserID(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	var group models.Group
	if err := h.db.First(&group, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	previous := group.Name
	group.Name = req.Name

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&group).Error; err != nil {
			return err
		}
		return activity.Record(tx, "updated group", activity.EntityGroup,
			strconv.FormatUint(id, 10), actorID, map[string]interface{}{
				"name":          group.Name,
				"previous_name": previous,
			})
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update group"})
		return
	}

	c.JSON(http.StatusOK, h.groupToResponse(group))
}

// Delete removes a group. Passport records referencing it are kept and
// their group association is cleared in the same transaction; if that
// cannot be done atomically the whole delete is rejected.
func (h *Handler) Delete(c *gin.Context) {
	actorID, _ := auth.GetUserID(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	var group models.Group
	if err := h.db.First(&group, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Person{}).Where("group_id = ?", group.ID).
			Update("group_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Delete(&group).Error; err != nil {
			return err
		}
		return activity.Record(tx, "deleted group", activity.EntityGroup,
			strconv.FormatUint(id, 10), actorID, map[string]interface{}{
				"name": group.Name,
			})
	})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Group is still referenced and could not be released"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Group deleted"})
}

// RegisterRoutes registers group routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/groups", h.List)
	rg.POST("/groups", h.Create)
	rg.PUT("/groups/:id", h.Update)
	rg.DELETE("/groups/:id", h.Delete)
}
