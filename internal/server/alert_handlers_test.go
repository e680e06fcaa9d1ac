package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chalklinehq/chalkline/backend/internal/alerts"
)

func newAlertTestContext(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, *gin.Context) {
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

func TestHandleCreateAlertStartsPending(t *testing.T) {
	handler := newTestHandler(t)
	body := `{"breakout_room_session_id":"room-1","breakout_room_name":"Group A","topic":"quadratics","urgency":"high","context_snippet":"we are stuck"}`
	recorder, ginContext := newAlertTestContext(t, http.MethodPost, "/classrooms/class-1/alerts", body)
	ginContext.Params = gin.Params{{Key: "classroomID", Value: "class-1"}}

	handler.handleCreateAlert(ginContext)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected created status, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var payload alertPayload
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.Status != string(alerts.StatusPending) {
		t.Fatalf("new alerts must start pending, got %s", payload.Status)
	}
	if payload.AcknowledgedBy != nil || payload.AcknowledgedAt != nil {
		t.Fatalf("new alerts must carry no acknowledgement")
	}
	if !payload.DetectedAt.Equal(testClockTime) {
		t.Fatalf("expected clock-assigned detection time, got %v", payload.DetectedAt)
	}

	stored := handler.alerts.Alerts("class-1", alerts.Filter{})
	if len(stored) != 1 || stored[0].ID != payload.ID {
		t.Fatalf("alert not stored under its classroom: %+v", stored)
	}
}

func TestHandleCreateAlertValidationFailures(t *testing.T) {
	testCases := []struct {
		name      string
		body      string
		wantError string
	}{
		{name: "missing-topic", body: `{"urgency":"high"}`, wantError: "invalid_request"},
		{name: "bad-urgency", body: `{"topic":"fractions","urgency":"critical"}`, wantError: "invalid_urgency"},
		{name: "overlong-snippet", body: `{"topic":"fractions","urgency":"low","context_snippet":"` + strings.Repeat("a", alerts.MaxContextSnippetLength+1) + `"}`, wantError: "snippet_too_long"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			handler := newTestHandler(t)
			recorder, ginContext := newAlertTestContext(t, http.MethodPost, "/classrooms/class-1/alerts", testCase.body)
			ginContext.Params = gin.Params{{Key: "classroomID", Value: "class-1"}}

			handler.handleCreateAlert(ginContext)

			if recorder.Code != http.StatusBadRequest {
				t.Fatalf("expected bad request status, got %d", recorder.Code)
			}
			var payload map[string]any
			if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
				t.Fatalf("failed to decode payload: %v", err)
			}
			if payload["error"] != testCase.wantError {
				t.Fatalf("expected error %s, got %v", testCase.wantError, payload["error"])
			}
		})
	}
}

func seedAlert(t *testing.T, handler *httpHandler, id, classroomID string, urgency alerts.Urgency) {
	t.Helper()
	handler.alerts.Create(alerts.HelpAlert{
		ID:                    id,
		ClassroomSessionID:    classroomID,
		BreakoutRoomSessionID: "room-1",
		DetectedAt:            testClockTime,
		Topic:                 "topic",
		Urgency:               urgency,
	})
}

func TestHandleListAlertsAppliesFilters(t *testing.T) {
	handler := newTestHandler(t)
	seedAlert(t, handler, "alert-low", "class-1", alerts.UrgencyLow)
	seedAlert(t, handler, "alert-high", "class-1", alerts.UrgencyHigh)
	seedAlert(t, handler, "alert-other", "class-2", alerts.UrgencyHigh)

	recorder, ginContext := newAlertTestContext(t, http.MethodGet, "/classrooms/class-1/alerts?urgency=high", "")
	ginContext.Params = gin.Params{{Key: "classroomID", Value: "class-1"}}
	handler.handleListAlerts(ginContext)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected ok status, got %d", recorder.Code)
	}
	var payload struct {
		Alerts []alertPayload `json:"alerts"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if len(payload.Alerts) != 1 || payload.Alerts[0].ID != "alert-high" {
		t.Fatalf("urgency filter not applied: %+v", payload.Alerts)
	}
}

func TestHandleAlertCountsReportsPendingByUrgency(t *testing.T) {
	handler := newTestHandler(t)
	seedAlert(t, handler, "alert-1", "class-1", alerts.UrgencyHigh)
	seedAlert(t, handler, "alert-2", "class-1", alerts.UrgencyHigh)
	seedAlert(t, handler, "alert-3", "class-1", alerts.UrgencyLow)

	recorder, ginContext := newAlertTestContext(t, http.MethodGet, "/classrooms/class-1/alerts/counts", "")
	ginContext.Params = gin.Params{{Key: "classroomID", Value: "class-1"}}
	handler.handleAlertCounts(ginContext)

	var payload map[string]int
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload["high"] != 2 || payload["medium"] != 0 || payload["low"] != 1 || payload["total"] != 3 {
		t.Fatalf("unexpected counts: %+v", payload)
	}
}

func TestHandleUpdateAlertStatusRecordsAcknowledgement(t *testing.T) {
	handler := newTestHandler(t)
	seedAlert(t, handler, "alert-1", "class-1", alerts.UrgencyHigh)

	recorder, ginContext := newAlertTestContext(t, http.MethodPatch, "/alerts/alert-1/status", `{"status":"acknowledged"}`)
	ginContext.Params = gin.Params{{Key: "alertID", Value: "alert-1"}}
	handler.handleUpdateAlertStatus(ginContext)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected ok status, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var payload alertPayload
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.Status != string(alerts.StatusAcknowledged) {
		t.Fatalf("unexpected status: %s", payload.Status)
	}
	if payload.AcknowledgedBy == nil || *payload.AcknowledgedBy != "instructor-1" {
		t.Fatalf("acknowledgement actor not taken from token context: %+v", payload.AcknowledgedBy)
	}
	if payload.AcknowledgedAt == nil || !payload.AcknowledgedAt.Equal(testClockTime) {
		t.Fatalf("acknowledgement time not clock-assigned: %+v", payload.AcknowledgedAt)
	}
}

func TestHandleUpdateAlertStatusErrorMapping(t *testing.T) {
	handler := newTestHandler(t)
	seedAlert(t, handler, "alert-1", "class-1", alerts.UrgencyHigh)

	recorder, ginContext := newAlertTestContext(t, http.MethodPatch, "/alerts/missing/status", `{"status":"acknowledged"}`)
	ginContext.Params = gin.Params{{Key: "alertID", Value: "missing"}}
	handler.handleUpdateAlertStatus(ginContext)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected not found status, got %d", recorder.Code)
	}

	recorder, ginContext = newAlertTestContext(t, http.MethodPatch, "/alerts/alert-1/status", `{"status":"resolved"}`)
	ginContext.Params = gin.Params{{Key: "alertID", Value: "alert-1"}}
	handler.handleUpdateAlertStatus(ginContext)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("pending to resolved must conflict, got %d", recorder.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload["error"] != "invalid_status_transition" {
		t.Fatalf("unexpected error code: %v", payload["error"])
	}

	recorder, ginContext = newAlertTestContext(t, http.MethodPatch, "/alerts/alert-1/status", `{"status":"archived"}`)
	ginContext.Params = gin.Params{{Key: "alertID", Value: "alert-1"}}
	handler.handleUpdateAlertStatus(ginContext)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("unknown status must be rejected, got %d", recorder.Code)
	}
}

func TestHandleCreateAlertPublishesFeedEvent(t *testing.T) {
	handler := newTestHandler(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, cleanup := handler.alertFeed.Subscribe(ctx, "class-1")
	defer cleanup()

	body := `{"breakout_room_session_id":"room-1","breakout_room_name":"Group A","topic":"quadratics","urgency":"high"}`
	recorder, ginContext := newAlertTestContext(t, http.MethodPost, "/classrooms/class-1/alerts", body)
	ginContext.Params = gin.Params{{Key: "classroomID", Value: "class-1"}}
	handler.handleCreateAlert(ginContext)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected created status, got %d", recorder.Code)
	}

	select {
	case event := <-stream:
		if event.Topic != "quadratics" || event.Urgency != "high" {
			t.Fatalf("unexpected feed event: %+v", event)
		}
	default:
		t.Fatalf("expected a feed event for the new alert")
	}
}

// closeNotifyingRecorder satisfies the http.CloseNotifier assertion gin
// performs inside Context.Stream.
type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool { return r.closed }

func TestHandleAlertFeedExitsWhenClientDisconnects(t *testing.T) {
	handler := newTestHandler(t)
	gin.SetMode(gin.TestMode)
	recorder := &closeNotifyingRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool)}
	ginContext, _ := gin.CreateTestContext(recorder)
	ctx, cancel := context.WithCancel(context.Background())
	ginContext.Request = httptest.NewRequest(http.MethodGet, "/classrooms/class-1/alerts/feed", nil).WithContext(ctx)
	ginContext.Params = gin.Params{{Key: "classroomID", Value: "class-1"}}

	done := make(chan struct{})
	go func() {
		handler.handleAlertFeed(ginContext)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("feed handler still running after the client disconnected")
	}
}
