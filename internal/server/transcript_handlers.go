package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chalklinehq/chalkline/backend/internal/transcripts"
)

type addTranscriptPayload struct {
	Text             string  `json:"text"`
	Confidence       float64 `json:"confidence"`
	BreakoutRoomName string  `json:"breakout_room_name"`
}

type transcriptPayload struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"session_id"`
	SpeakerID        string    `json:"speaker_id"`
	SpeakerName      string    `json:"speaker_name"`
	SpeakerRole      string    `json:"speaker_role"`
	Text             string    `json:"text"`
	Timestamp        time.Time `json:"timestamp"`
	Confidence       float64   `json:"confidence"`
	BreakoutRoomName string    `json:"breakout_room_name,omitempty"`
}

func toTranscriptPayloads(entries []transcripts.Entry) []transcriptPayload {
	payloads := make([]transcriptPayload, 0, len(entries))
	for _, entry := range entries {
		payloads = append(payloads, transcriptPayload{
			ID:               entry.ID,
			SessionID:        entry.SessionID,
			SpeakerID:        entry.SpeakerID,
			SpeakerName:      entry.SpeakerName,
			SpeakerRole:      string(entry.SpeakerRole),
			Text:             entry.Text,
			Timestamp:        entry.Timestamp,
			Confidence:       entry.Confidence,
			BreakoutRoomName: entry.BreakoutRoomName,
		})
	}
	return payloads
}

func (h *httpHandler) handleAddTranscript(c *gin.Context) {
	var request addTranscriptPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if request.Confidence < 0 || request.Confidence > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_confidence"})
		return
	}
	role, err := transcripts.ParseRole(c.GetString(participantRoleContextKey))
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid_role"})
		return
	}
	entryID, err := h.idProvider.NewID()
	if err != nil {
		h.logger.Error("id generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "id_generation_failed"})
		return
	}

	entry := transcripts.Entry{
		ID:               entryID,
		SessionID:        c.Param("sessionID"),
		SpeakerID:        c.GetString(participantIDContextKey),
		SpeakerName:      c.GetString(participantNameContextKey),
		SpeakerRole:      role,
		Text:             strings.TrimSpace(request.Text),
		Timestamp:        h.clock().UTC(),
		Confidence:       request.Confidence,
		BreakoutRoomName: request.BreakoutRoomName,
	}
	h.transcripts.Add(entry)

	c.JSON(http.StatusCreated, toTranscriptPayloads([]transcripts.Entry{entry})[0])
}

func (h *httpHandler) handleListTranscripts(c *gin.Context) {
	var filter transcripts.Filter

	if sinceParam := c.Query("since"); sinceParam != "" {
		since, err := time.Parse(time.RFC3339Nano, sinceParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_since"})
			return
		}
		filter.Since = since
	}
	if roleParam := c.Query("role"); roleParam != "" {
		role, err := transcripts.ParseRole(roleParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_role"})
			return
		}
		filter.Role = role
	}
	if confidenceParam := c.Query("min_confidence"); confidenceParam != "" {
		minConfidence, err := strconv.ParseFloat(confidenceParam, 64)
		if err != nil || minConfidence < 0 || minConfidence > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_confidence"})
			return
		}
		filter.MinConfidence = &minConfidence
	}

	entries := h.transcripts.Entries(c.Param("sessionID"), filter)
	c.JSON(http.StatusOK, gin.H{"transcripts": toTranscriptPayloads(entries)})
}

func (h *httpHandler) handleTranscriptLookup(c *gin.Context) {
	idsParam := strings.TrimSpace(c.Query("ids"))
	if idsParam == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_ids"})
		return
	}
	ids := make([]string, 0)
	for _, id := range strings.Split(idsParam, ",") {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}

	entries := h.transcripts.EntriesByIDs(ids)
	c.JSON(http.StatusOK, gin.H{"transcripts": toTranscriptPayloads(entries)})
}
