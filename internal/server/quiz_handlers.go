package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chalklinehq/chalkline/backend/internal/quizzes"
)

type questionPayload struct {
	ID                  string   `json:"id"`
	Type                string   `json:"type"`
	Question            string   `json:"question"`
	Options             []string `json:"options,omitempty"`
	CorrectAnswer       string   `json:"correct_answer"`
	Explanation         string   `json:"explanation"`
	Difficulty          string   `json:"difficulty"`
	SourceTranscriptIDs []string `json:"source_transcript_ids"`
}

type saveQuizPayload struct {
	Title               string            `json:"title"`
	Status              string            `json:"status"`
	SourceTranscriptIDs []string          `json:"source_transcript_ids"`
	Questions           []questionPayload `json:"questions"`
}

type quizPayload struct {
	ID                  string            `json:"id"`
	SessionID           string            `json:"session_id"`
	CreatedBy           string            `json:"created_by"`
	CreatedByName       string            `json:"created_by_name"`
	CreatedAt           time.Time         `json:"created_at"`
	LastModified        time.Time         `json:"last_modified"`
	SourceTranscriptIDs []string          `json:"source_transcript_ids"`
	Questions           []questionPayload `json:"questions"`
	Status              string            `json:"status"`
	Title               string            `json:"title,omitempty"`
}

func toQuizPayload(quiz quizzes.Quiz) quizPayload {
	questions := make([]questionPayload, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		questions = append(questions, questionPayload{
			ID:                  question.ID,
			Type:                string(question.Type),
			Question:            question.Question,
			Options:             question.Options,
			CorrectAnswer:       question.CorrectAnswer,
			Explanation:         question.Explanation,
			Difficulty:          string(question.Difficulty),
			SourceTranscriptIDs: question.SourceTranscriptIDs,
		})
	}
	return quizPayload{
		ID:                  quiz.ID,
		SessionID:           quiz.SessionID,
		CreatedBy:           quiz.CreatedBy,
		CreatedByName:       quiz.CreatedByName,
		CreatedAt:           quiz.CreatedAt,
		LastModified:        quiz.LastModified,
		SourceTranscriptIDs: quiz.SourceTranscriptIDs,
		Questions:           questions,
		Status:              string(quiz.Status),
		Title:               quiz.Title,
	}
}

func (h *httpHandler) fromQuestionPayloads(payloads []questionPayload) ([]quizzes.Question, error) {
	questions := make([]quizzes.Question, 0, len(payloads))
	for _, payload := range payloads {
		questionID := payload.ID
		if questionID == "" {
			generated, err := h.idProvider.NewID()
			if err != nil {
				return nil, err
			}
			questionID = generated
		}
		questions = append(questions, quizzes.Question{
			ID:                  questionID,
			Type:                quizzes.QuestionType(payload.Type),
			Question:            payload.Question,
			Options:             payload.Options,
			CorrectAnswer:       payload.CorrectAnswer,
			Explanation:         payload.Explanation,
			Difficulty:          quizzes.Difficulty(payload.Difficulty),
			SourceTranscriptIDs: payload.SourceTranscriptIDs,
		})
	}
	return questions, nil
}

func (h *httpHandler) handleSaveQuiz(c *gin.Context) {
	var request saveQuizPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	quizID, err := h.idProvider.NewID()
	if err != nil {
		h.logger.Error("id generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "id_generation_failed"})
		return
	}
	questions, err := h.fromQuestionPayloads(request.Questions)
	if err != nil {
		h.logger.Error("id generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "id_generation_failed"})
		return
	}

	status := quizzes.Status(request.Status)
	if request.Status == "" {
		status = quizzes.StatusDraft
	}
	now := h.clock().UTC()
	quiz := quizzes.Quiz{
		ID:                  quizID,
		SessionID:           c.Param("sessionID"),
		CreatedBy:           c.GetString(participantIDContextKey),
		CreatedByName:       c.GetString(participantNameContextKey),
		CreatedAt:           now,
		LastModified:        now,
		SourceTranscriptIDs: request.SourceTranscriptIDs,
		Questions:           questions,
		Status:              status,
		Title:               request.Title,
	}

	if err := quiz.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_quiz", "detail": err.Error()})
		return
	}

	h.quizzes.Save(quiz)
	c.JSON(http.StatusCreated, toQuizPayload(quiz))
}

func (h *httpHandler) handleListQuizzes(c *gin.Context) {
	listed := h.quizzes.QuizzesForSession(c.Param("sessionID"))
	payloads := make([]quizPayload, 0, len(listed))
	for _, quiz := range listed {
		payloads = append(payloads, toQuizPayload(quiz))
	}
	c.JSON(http.StatusOK, gin.H{"quizzes": payloads})
}

func (h *httpHandler) handleGetQuiz(c *gin.Context) {
	quiz, ok := h.quizzes.Quiz(c.Param("quizID"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "quiz_not_found"})
		return
	}
	c.JSON(http.StatusOK, toQuizPayload(quiz))
}

type updateQuizPayload struct {
	Title     *string           `json:"title"`
	Status    *string           `json:"status"`
	Questions []questionPayload `json:"questions"`
}

func (h *httpHandler) handleUpdateQuiz(c *gin.Context) {
	var request updateQuizPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	var update quizzes.Update
	update.Title = request.Title
	if request.Status != nil {
		status := quizzes.Status(*request.Status)
		if status != quizzes.StatusDraft && status != quizzes.StatusPublished {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status"})
			return
		}
		update.Status = &status
	}
	if request.Questions != nil {
		questions, err := h.fromQuestionPayloads(request.Questions)
		if err != nil {
			h.logger.Error("id generation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "id_generation_failed"})
			return
		}
		update.Questions = questions
	}

	current, ok := h.quizzes.Quiz(c.Param("quizID"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "quiz_not_found"})
		return
	}
	merged := current
	if update.Title != nil {
		merged.Title = *update.Title
	}
	if update.Status != nil {
		merged.Status = *update.Status
	}
	if update.Questions != nil {
		merged.Questions = update.Questions
	}
	if err := merged.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_quiz", "detail": err.Error()})
		return
	}

	updated, ok := h.quizzes.Update(c.Param("quizID"), update)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "quiz_not_found"})
		return
	}
	c.JSON(http.StatusOK, toQuizPayload(updated))
}

func (h *httpHandler) handleDeleteQuiz(c *gin.Context) {
	if !h.quizzes.Delete(c.Param("quizID")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "quiz_not_found"})
		return
	}
	c.Status(http.StatusNoContent)
}
