package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chalklinehq/chalkline/backend/internal/alerts"
)

type createAlertPayload struct {
	BreakoutRoomSessionID string   `json:"breakout_room_session_id"`
	BreakoutRoomName      string   `json:"breakout_room_name"`
	Topic                 string   `json:"topic"`
	Urgency               string   `json:"urgency"`
	TriggerKeywords       []string `json:"trigger_keywords"`
	ContextSnippet        string   `json:"context_snippet"`
	SourceTranscriptIDs   []string `json:"source_transcript_ids"`
}

type alertPayload struct {
	ID                    string     `json:"id"`
	ClassroomSessionID    string     `json:"classroom_session_id"`
	BreakoutRoomSessionID string     `json:"breakout_room_session_id"`
	BreakoutRoomName      string     `json:"breakout_room_name,omitempty"`
	DetectedAt            time.Time  `json:"detected_at"`
	Topic                 string     `json:"topic"`
	Urgency               string     `json:"urgency"`
	TriggerKeywords       []string   `json:"trigger_keywords"`
	ContextSnippet        string     `json:"context_snippet"`
	Status                string     `json:"status"`
	AcknowledgedBy        *string    `json:"acknowledged_by"`
	AcknowledgedAt        *time.Time `json:"acknowledged_at"`
	SourceTranscriptIDs   []string   `json:"source_transcript_ids"`
}

func toAlertPayload(alert alerts.HelpAlert) alertPayload {
	return alertPayload{
		ID:                    alert.ID,
		ClassroomSessionID:    alert.ClassroomSessionID,
		BreakoutRoomSessionID: alert.BreakoutRoomSessionID,
		BreakoutRoomName:      alert.BreakoutRoomName,
		DetectedAt:            alert.DetectedAt,
		Topic:                 alert.Topic,
		Urgency:               string(alert.Urgency),
		TriggerKeywords:       alert.TriggerKeywords,
		ContextSnippet:        alert.ContextSnippet,
		Status:                string(alert.Status),
		AcknowledgedBy:        alert.AcknowledgedBy,
		AcknowledgedAt:        alert.AcknowledgedAt,
		SourceTranscriptIDs:   alert.SourceTranscriptIDs,
	}
}

func (h *httpHandler) handleCreateAlert(c *gin.Context) {
	var request createAlertPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Topic) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	urgency, err := alerts.ParseUrgency(request.Urgency)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_urgency"})
		return
	}
	if utf8.RuneCountInString(request.ContextSnippet) > alerts.MaxContextSnippetLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "snippet_too_long"})
		return
	}
	alertID, err := h.idProvider.NewID()
	if err != nil {
		h.logger.Error("id generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "id_generation_failed"})
		return
	}

	alert := alerts.HelpAlert{
		ID:                    alertID,
		ClassroomSessionID:    c.Param("classroomID"),
		BreakoutRoomSessionID: request.BreakoutRoomSessionID,
		BreakoutRoomName:      request.BreakoutRoomName,
		DetectedAt:            h.clock().UTC(),
		Topic:                 request.Topic,
		Urgency:               urgency,
		TriggerKeywords:       request.TriggerKeywords,
		ContextSnippet:        request.ContextSnippet,
		SourceTranscriptIDs:   request.SourceTranscriptIDs,
	}
	h.alerts.Create(alert)
	alert.Status = alerts.StatusPending

	h.alertFeed.Publish(AlertEvent{
		ClassroomSessionID: alert.ClassroomSessionID,
		AlertID:            alert.ID,
		BreakoutRoomName:   alert.BreakoutRoomName,
		Topic:              alert.Topic,
		Urgency:            string(alert.Urgency),
		DetectedAt:         alert.DetectedAt,
	})

	c.JSON(http.StatusCreated, toAlertPayload(alert))
}

func (h *httpHandler) handleListAlerts(c *gin.Context) {
	var filter alerts.Filter

	if statusParam := c.Query("status"); statusParam != "" {
		status, err := alerts.ParseStatus(statusParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status"})
			return
		}
		filter.Status = status
	}
	if urgencyParam := c.Query("urgency"); urgencyParam != "" {
		urgency, err := alerts.ParseUrgency(urgencyParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_urgency"})
			return
		}
		filter.Urgency = urgency
	}
	filter.BreakoutRoom = c.Query("breakout_room")

	results := h.alerts.Alerts(c.Param("classroomID"), filter)
	payloads := make([]alertPayload, 0, len(results))
	for _, alert := range results {
		payloads = append(payloads, toAlertPayload(alert))
	}
	c.JSON(http.StatusOK, gin.H{"alerts": payloads})
}

func (h *httpHandler) handleAlertCounts(c *gin.Context) {
	counts := h.alerts.PendingCountsByUrgency(c.Param("classroomID"))
	c.JSON(http.StatusOK, gin.H{
		"high":   counts.High,
		"medium": counts.Medium,
		"low":    counts.Low,
		"total":  counts.Total,
	})
}

type updateAlertStatusPayload struct {
	Status string `json:"status"`
}

func (h *httpHandler) handleUpdateAlertStatus(c *gin.Context) {
	var request updateAlertStatusPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	status, err := alerts.ParseStatus(request.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status"})
		return
	}

	updated, err := h.alerts.UpdateStatus(c.Param("alertID"), status, c.GetString(participantIDContextKey))
	switch {
	case errors.Is(err, alerts.ErrAlertNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "alert_not_found"})
	case errors.Is(err, alerts.ErrInvalidStatusTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid_status_transition"})
	case err != nil:
		h.logger.Error("alert status update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update_failed"})
	default:
		c.JSON(http.StatusOK, toAlertPayload(updated))
	}
}

// handleAlertFeed streams new alerts for a classroom as server-sent events.
func (h *httpHandler) handleAlertFeed(c *gin.Context) {
	stream, cleanup := h.alertFeed.Subscribe(c.Request.Context(), c.Param("classroomID"))
	defer cleanup()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-stream:
			if !ok {
				return false
			}
			data, err := json.Marshal(event)
			if err != nil {
				return false
			}
			c.SSEvent(alertFeedEventCreated, string(data))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *httpHandler) handleEndSession(c *gin.Context) {
	if err := h.lifecycle.EndClassroom(c.Request.Context(), c.Param("sessionID")); err != nil {
		h.logger.Error("session teardown failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "teardown_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
