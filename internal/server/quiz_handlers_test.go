package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/chalklinehq/chalkline/backend/internal/quizzes"
)

const validQuizBody = `{
	"title": "Slopes check-in",
	"source_transcript_ids": ["entry-1"],
	"questions": [
		{
			"type": "multiple_choice",
			"question": "What is the slope of y = 2x + 1?",
			"options": ["1", "2", "3", "4"],
			"correct_answer": "2",
			"explanation": "The coefficient of x is the slope.",
			"difficulty": "easy",
			"source_transcript_ids": ["entry-1"]
		},
		{
			"type": "true_false",
			"question": "Parallel lines share the same slope.",
			"correct_answer": "true",
			"explanation": "Equal slopes, different intercepts.",
			"difficulty": "medium",
			"source_transcript_ids": ["entry-1"]
		}
	]
}`

func newQuizTestContext(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ginContext, _ := gin.CreateTestContext(recorder)
	if body == "" {
		body = "{}"
	}
	request := httptest.NewRequest(method, target, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	ginContext.Request = request
	ginContext.Set(participantIDContextKey, "instructor-1")
	ginContext.Set(participantRoleContextKey, "instructor")
	ginContext.Set(participantNameContextKey, "Dana")
	return recorder, ginContext
}

func saveTestQuiz(t *testing.T, handler *httpHandler, sessionID string) quizPayload {
	t.Helper()
	recorder, ginContext := newQuizTestContext(t, http.MethodPost, "/sessions/"+sessionID+"/quizzes", validQuizBody)
	ginContext.Params = gin.Params{{Key: "sessionID", Value: sessionID}}
	handler.handleSaveQuiz(ginContext)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected created status, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var payload quizPayload
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	return payload
}

func TestHandleSaveQuizAssignsIdentityAndDefaults(t *testing.T) {
	handler := newTestHandler(t)
	payload := saveTestQuiz(t, handler, "session-1")

	if payload.ID == "" {
		t.Fatalf("expected generated quiz id")
	}
	if payload.SessionID != "session-1" {
		t.Fatalf("unexpected session id: %s", payload.SessionID)
	}
	if payload.CreatedBy != "instructor-1" || payload.CreatedByName != "Dana" {
		t.Fatalf("author identity not taken from token context: %+v", payload)
	}
	if payload.Status != string(quizzes.StatusDraft) {
		t.Fatalf("quizzes default to draft, got %s", payload.Status)
	}
	if !payload.CreatedAt.Equal(testClockTime) || !payload.LastModified.Equal(testClockTime) {
		t.Fatalf("timestamps not clock-assigned: %+v", payload)
	}
	for _, question := range payload.Questions {
		if question.ID == "" {
			t.Fatalf("expected generated question ids")
		}
	}

	stored, ok := handler.quizzes.Quiz(payload.ID)
	if !ok {
		t.Fatalf("saved quiz missing from store")
	}
	if len(stored.Questions) != 2 {
		t.Fatalf("expected two stored questions, got %d", len(stored.Questions))
	}
}

func TestHandleSaveQuizRejectsInvalidQuiz(t *testing.T) {
	handler := newTestHandler(t)
	body := `{"source_transcript_ids":["entry-1"],"questions":[{"type":"true_false","question":"Only one question.","correct_answer":"true","difficulty":"easy"}]}`
	recorder, ginContext := newQuizTestContext(t, http.MethodPost, "/sessions/session-1/quizzes", body)
	ginContext.Params = gin.Params{{Key: "sessionID", Value: "session-1"}}

	handler.handleSaveQuiz(ginContext)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request status, got %d", recorder.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload["error"] != "invalid_quiz" {
		t.Fatalf("expected invalid_quiz, got %v", payload["error"])
	}
}

func TestHandleGetQuizReturnsNotFoundForUnknownID(t *testing.T) {
	handler := newTestHandler(t)
	recorder, ginContext := newQuizTestContext(t, http.MethodGet, "/quizzes/missing", "")
	ginContext.Params = gin.Params{{Key: "quizID", Value: "missing"}}

	handler.handleGetQuiz(ginContext)

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected not found status, got %d", recorder.Code)
	}
}

func TestHandleListQuizzesPreservesSaveOrder(t *testing.T) {
	handler := newTestHandler(t)
	first := saveTestQuiz(t, handler, "session-1")
	second := saveTestQuiz(t, handler, "session-1")
	saveTestQuiz(t, handler, "session-2")

	recorder, ginContext := newQuizTestContext(t, http.MethodGet, "/sessions/session-1/quizzes", "")
	ginContext.Params = gin.Params{{Key: "sessionID", Value: "session-1"}}
	handler.handleListQuizzes(ginContext)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected ok status, got %d", recorder.Code)
	}
	var payload struct {
		Quizzes []quizPayload `json:"quizzes"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if len(payload.Quizzes) != 2 {
		t.Fatalf("expected only this session's quizzes, got %d", len(payload.Quizzes))
	}
	if payload.Quizzes[0].ID != first.ID || payload.Quizzes[1].ID != second.ID {
		t.Fatalf("save order not preserved: %+v", payload.Quizzes)
	}
}

func TestHandleUpdateQuizMergesFields(t *testing.T) {
	handler := newTestHandler(t)
	saved := saveTestQuiz(t, handler, "session-1")

	body := `{"title":"Renamed quiz","status":"published"}`
	recorder, ginContext := newQuizTestContext(t, http.MethodPatch, "/quizzes/"+saved.ID, body)
	ginContext.Params = gin.Params{{Key: "quizID", Value: saved.ID}}
	handler.handleUpdateQuiz(ginContext)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected ok status, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var payload quizPayload
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.Title != "Renamed quiz" || payload.Status != string(quizzes.StatusPublished) {
		t.Fatalf("update fields not applied: %+v", payload)
	}
	if len(payload.Questions) != 2 {
		t.Fatalf("untouched questions must survive the update, got %d", len(payload.Questions))
	}
}

func TestHandleUpdateQuizRejectsInvalidMergedQuiz(t *testing.T) {
	handler := newTestHandler(t)
	saved := saveTestQuiz(t, handler, "session-1")

	body := `{"questions":[{"type":"true_false","question":"Only one question.","correct_answer":"true","difficulty":"easy"}]}`
	recorder, ginContext := newQuizTestContext(t, http.MethodPatch, "/quizzes/"+saved.ID, body)
	ginContext.Params = gin.Params{{Key: "quizID", Value: saved.ID}}
	handler.handleUpdateQuiz(ginContext)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request status, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload["error"] != "invalid_quiz" {
		t.Fatalf("expected invalid_quiz, got %v", payload["error"])
	}

	stored, ok := handler.quizzes.Quiz(saved.ID)
	if !ok {
		t.Fatalf("quiz vanished from store")
	}
	if len(stored.Questions) != 2 {
		t.Fatalf("rejected update must not touch stored questions, got %d", len(stored.Questions))
	}
}

func TestHandleUpdateQuizErrorMapping(t *testing.T) {
	handler := newTestHandler(t)
	saved := saveTestQuiz(t, handler, "session-1")

	recorder, ginContext := newQuizTestContext(t, http.MethodPatch, "/quizzes/missing", `{"title":"x"}`)
	ginContext.Params = gin.Params{{Key: "quizID", Value: "missing"}}
	handler.handleUpdateQuiz(ginContext)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected not found status, got %d", recorder.Code)
	}

	recorder, ginContext = newQuizTestContext(t, http.MethodPatch, "/quizzes/"+saved.ID, `{"status":"retracted"}`)
	ginContext.Params = gin.Params{{Key: "quizID", Value: saved.ID}}
	handler.handleUpdateQuiz(ginContext)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("unknown status must be rejected, got %d", recorder.Code)
	}
}

func TestHandleDeleteQuizRemovesQuiz(t *testing.T) {
	handler := newTestHandler(t)
	saved := saveTestQuiz(t, handler, "session-1")

	recorder, ginContext := newQuizTestContext(t, http.MethodDelete, "/quizzes/"+saved.ID, "")
	ginContext.Params = gin.Params{{Key: "quizID", Value: saved.ID}}
	handler.handleDeleteQuiz(ginContext)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected no content status, got %d", recorder.Code)
	}

	recorder, ginContext = newQuizTestContext(t, http.MethodDelete, "/quizzes/"+saved.ID, "")
	ginContext.Params = gin.Params{{Key: "quizID", Value: saved.ID}}
	handler.handleDeleteQuiz(ginContext)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("second delete must report not found, got %d", recorder.Code)
	}
}
