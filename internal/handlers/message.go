package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/delivery"
	"messenger-service/internal/lifecycle"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

// MessageHandler exposes the request/response side of the delivery layer.
type MessageHandler struct {
	coordinator *delivery.Coordinator
	lifecycle   *lifecycle.Manager
	messages    repositories.MessageRepository
	groups      repositories.GroupRepository
	audit       *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(coordinator *delivery.Coordinator, lc *lifecycle.Manager, messages repositories.MessageRepository, groups repositories.GroupRepository, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		coordinator: coordinator,
		lifecycle:   lc,
		messages:    messages,
		groups:      groups,
		audit:       audit,
	}
}

type sendRequest struct {
	ReceiverID *int    `json:"receiver_id"`
	GroupID    *int    `json:"group_id"`
	Content    string  `json:"content"`
	FileURL    *string `json:"file_url"`
	FileType   *string `json:"file_type"`
}

// SendMessage persists a message and fans it out to live peers.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.coordinator.Send(c.Request.Context(), userID, delivery.SendRequest{
		ReceiverID: req.ReceiverID,
		GroupID:    req.GroupID,
		Content:    req.Content,
		FileURL:    req.FileURL,
		FileType:   req.FileType,
	}, nil)
	if err != nil {
		h.rejectSend(c, err)
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "message sent", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusCreated, msg)
}

// ForwardMessage creates a fresh message copying an existing one's content
// and file reference to a new target.
func (h *MessageHandler) ForwardMessage(c *gin.Context) {
	messageID, ok := parseMessageID(c)
	if !ok {
		return
	}

	var req struct {
		ReceiverID *int `json:"receiver_id"`
		GroupID    *int `json:"group_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.coordinator.Forward(c.Request.Context(), userID, messageID, delivery.SendRequest{
		ReceiverID: req.ReceiverID,
		GroupID:    req.GroupID,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		h.rejectSend(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) rejectSend(c *gin.Context, err error) {
	switch {
	case errors.Is(err, delivery.ErrInvalidTarget):
		c.JSON(http.StatusBadRequest, gin.H{"error": "receiver_id or group_id required"})
	case errors.Is(err, delivery.ErrQuotaExceeded):
		c.JSON(http.StatusForbidden, gin.H{"error": "Daily chat limit reached. Upgrade to Premium to continue chatting."})
	case errors.Is(err, repositories.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
	}
}

// GetMessages returns the history with a peer, or a group's history when
// type=group. Messages the viewer soft-deleted are excluded; redacted
// messages carry the redaction marker.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	targetID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target id"})
		return
	}

	viewerID := c.GetInt("userID")
	if c.Query("type") == "group" {
		if _, err := h.groups.GetGroup(c.Request.Context(), targetID); err != nil {
			if errors.Is(err, repositories.ErrGroupNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load group"})
			return
		}

		member, err := h.groups.IsMember(c.Request.Context(), targetID, viewerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
			return
		}
		if !member {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a group member"})
			return
		}

		msgs, err := h.messages.GroupHistory(c.Request.Context(), targetID, viewerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
		return
	}

	msgs, err := h.messages.DirectHistory(c.Request.Context(), viewerID, targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// DeleteForMe hides a message from the caller only. Deleting an unknown
// message reports success.
func (h *MessageHandler) DeleteForMe(c *gin.Context) {
	messageID, ok := parseMessageID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if err := h.lifecycle.DeleteForViewer(c.Request.Context(), messageID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteForEveryone redacts a message for all viewers (sender only).
func (h *MessageHandler) DeleteForEveryone(c *gin.Context) {
	messageID, ok := parseMessageID(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if err := h.lifecycle.DeleteForEveryone(c.Request.Context(), messageID, userID); err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "only sender can delete for all"})
		case errors.Is(err, repositories.ErrMessageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete message"})
		}
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "message deleted for everyone", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func parseMessageID(c *gin.Context) (int, bool) {
	messageID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return 0, false
	}
	return messageID, true
}
