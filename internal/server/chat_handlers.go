package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chalklinehq/chalkline/backend/internal/chat"
)

type sendMessagePayload struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type messagePayload struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Role       string    `json:"role"`
	Text       string    `json:"text"`
	RoomID     string    `json:"room_id"`
	SessionID  string    `json:"session_id"`
}

func toMessagePayload(message chat.Message) messagePayload {
	return messagePayload{
		ID:         message.ID,
		Timestamp:  message.Timestamp,
		SenderID:   message.SenderID,
		SenderName: message.SenderName,
		Role:       string(message.Role),
		Text:       message.Text,
		RoomID:     message.RoomID,
		SessionID:  message.SessionID,
	}
}

func toMessagePayloads(messages []chat.Message) []messagePayload {
	payloads := make([]messagePayload, 0, len(messages))
	for _, message := range messages {
		payloads = append(payloads, toMessagePayload(message))
	}
	return payloads
}

func (h *httpHandler) handleSendMessage(c *gin.Context) {
	var request sendMessagePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	role, err := chat.ParseRole(c.GetString(participantRoleContextKey))
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid_role"})
		return
	}
	messageID, err := h.idProvider.NewID()
	if err != nil {
		h.logger.Error("id generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "id_generation_failed"})
		return
	}

	message := chat.Message{
		ID:         messageID,
		Timestamp:  h.clock().UTC(),
		SenderID:   c.GetString(participantIDContextKey),
		SenderName: c.GetString(participantNameContextKey),
		Role:       role,
		Text:       request.Text,
		RoomID:     c.Param("roomID"),
		SessionID:  request.SessionID,
	}

	if err := h.chat.SendMessage(message); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": chatErrorCode(err)})
		return
	}
	c.JSON(http.StatusCreated, toMessagePayload(message))
}

func chatErrorCode(err error) string {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, chat.ErrMessageTooLong):
		return "message_too_long"
	case errors.Is(err, chat.ErrMissingField):
		return "missing_field"
	default:
		return "invalid_message"
	}
}

func (h *httpHandler) handleListMessages(c *gin.Context) {
	roomID := c.Param("roomID")

	var filter chat.Filter
	filtered := false
	if sinceParam := c.Query("since"); sinceParam != "" {
		since, err := time.Parse(time.RFC3339Nano, sinceParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_since"})
			return
		}
		filter.Since = since
		filtered = true
	}
	if roleParam := c.Query("role"); roleParam != "" {
		role, err := chat.ParseRole(roleParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_role"})
			return
		}
		filter.Role = role
		filtered = true
	}
	if filtered {
		c.JSON(http.StatusOK, gin.H{"messages": toMessagePayloads(h.chat.Messages(roomID, filter))})
		return
	}

	if limitParam := c.Query("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": toMessagePayloads(h.chat.RecentMessages(roomID, limit))})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": toMessagePayloads(h.chat.MessagesForRoom(roomID))})
}

func (h *httpHandler) handleSessionMessages(c *gin.Context) {
	grouped := h.chat.AllMessagesForSession(c.Param("sessionID"))

	response := make(map[string][]messagePayload, len(grouped))
	for roomID, messages := range grouped {
		response[roomID] = toMessagePayloads(messages)
	}
	c.JSON(http.StatusOK, gin.H{"rooms": response})
}

func (h *httpHandler) handleEndBreakoutRoom(c *gin.Context) {
	h.lifecycle.EndBreakoutRoom(c.Param("roomID"))
	c.Status(http.StatusNoContent)
}
