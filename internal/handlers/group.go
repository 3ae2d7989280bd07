package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/repositories"
)

// GroupHandler manages the group membership records group fan-out resolves
// against.
type GroupHandler struct {
	groups repositories.GroupRepository
}

// NewGroupHandler builds a GroupHandler.
func NewGroupHandler(groups repositories.GroupRepository) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// CreateGroup creates a group owned by the caller. The owner is always a
// member.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name      string `json:"name" binding:"required"`
		MemberIDs []int  `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	group, err := h.groups.CreateGroup(c.Request.Context(), userID, req.Name, req.MemberIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	c.JSON(http.StatusCreated, group)
}
