package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"passreg/pkg/passreg/activity"
	"passreg/pkg/passreg/auth"
	"passreg/pkg/passreg/models"
)

// Handler handles administrator management requests.
// Routes are mounted behind RequireMainAdmin; the handlers still
// re-check the tier instead of trusting the gateway alone.
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// UserResponse represents admin data in management responses
type UserResponse struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
	IsMainAdmin     bool   `json:"is_main_admin"`
	IsActive        bool   `json:"is_active"`
	CreatedAt       string `json:"created_at"`
}

// SetActiveRequest represents the request to toggle an admin account
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func userToResponse(user models.User) UserResponse {
	email := ""
	if user.Email != nil {
		email = *user.Email
	}
	return UserResponse{
		ID:              user.ID,
		Email:           email,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		ProfileImageURL: user.ProfileImageURL,
		IsMainAdmin:     user.IsMainAdmin,
		IsActive:        user.IsActive,
		CreatedAt:       user.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// ListUsers returns all administrators, newest first (main admin only)
func (h *Handler) ListUsers(c *gin.Context) {
	if !auth.IsMainAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Main admin access required"})
		return
	}

	var users []models.User
	if err := h.db.Order("created_at DESC").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	responses := make([]UserResponse, len(users))
	for i, user := range users {
		responses[i] = userToResponse(user)
	}

	c.JSON(http.StatusOK, responses)
}

// SetActive activates or deactivates an admin account (main admin only).
// Main admins cannot be deactivated; accounts are never deleted, so the
// audit trail keeps resolving them.
func (h *Handler) SetActive(c *gin.Context) {
	if !auth.IsMainAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Main admin access required"})
		return
	}

	actorID, _ := auth.GetUserID(c)
	id := c.Param("id")

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if user.IsMainAdmin && !*req.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot deactivate a main admin"})
		return
	}

	user.IsActive = *req.IsActive

	action := "deactivated admin"
	if user.IsActive {
		action = "activated admin"
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("is_active", user.IsActive).Error; err != nil {
			return err
		}
		details := map[string]interface{}{}
		if user.Email != nil {
			details["email"] = *user.Email
		}
		return activity.Record(tx, action, activity.EntityUser, user.ID, actorID, details)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	c.JSON(http.StatusOK, userToResponse(user))
}

// RegisterRoutes registers admin routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users", h.ListUsers)
	rg.PATCH("/users/:id/active", h.SetActive)
}
