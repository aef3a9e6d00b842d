package activity

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"passreg/pkg/passreg/models"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// fallbackActorName is shown when the performing admin cannot be
// resolved at all, e.g. for entries older than the user row.
const fallbackActorName = "Administrator"

// Handler handles activity log requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new activity handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// LogResponse represents an audit trail entry in API responses
type LogResponse struct {
	ID              uint         `json:"id"`
	Action          string       `json:"action"`
	EntityType      string       `json:"entity_type"`
	EntityID        string       `json:"entity_id"`
	PerformedByID   string       `json:"performed_by_id"`
	PerformedByName string       `json:"performed_by_name"`
	Details         models.JSONB `json:"details,omitempty"`
	Timestamp       string       `json:"timestamp"`
}

// List returns audit trail entries, newest first.
// Supports ?limit= and a ?before= id cursor for paging further back.
func (h *Handler) List(c *gin.Context) {
	limit := defaultLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > maxLimit {
				limit = maxLimit
			}
		}
	}

	query := h.db.Order("timestamp DESC, id DESC").Limit(limit)
	if before := c.Query("before"); before != "" {
		if parsed, err := strconv.ParseUint(before, 10, 32); err == nil {
			query = query.Where("id < ?", parsed)
		}
	}

	var logs []models.ActivityLog
	if err := query.Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch activity log"})
		return
	}

	// Resolve all performers in one query; entries keep working even
	// when an admin row cannot be found.
	actorIDs := make([]string, 0, len(logs))
	seen := make(map[string]bool)
	for _, entry := range logs {
		if !seen[entry.PerformedByID] {
			seen[entry.PerformedByID] = true
			actorIDs = append(actorIDs, entry.PerformedByID)
		}
	}

	actors := make(map[string]models.User, len(actorIDs))
	if len(actorIDs) > 0 {
		var users []models.User
		if err := h.db.Where("id IN ?", actorIDs).Find(&users).Error; err == nil {
			for _, u := range users {
				actors[u.ID] = u
			}
		}
	}

	responses := make([]LogResponse, len(logs))
	for i, entry := range logs {
		name := fallbackActorName
		if actor, ok := actors[entry.PerformedByID]; ok {
			if display := actor.DisplayName(); display != "" {
				name = display
			}
		}
		responses[i] = LogResponse{
			ID:              entry.ID,
			Action:          entry.Action,
			EntityType:      entry.EntityType,
			EntityID:        entry.EntityID,
			PerformedByID:   entry.PerformedByID,
			PerformedByName: name,
			Details:         entry.Details,
			Timestamp:       entry.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}

	c.JSON(http.StatusOK, responses)
}

// RegisterRoutes registers activity routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/activity-logs", h.List)
}
