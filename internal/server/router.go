package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chalklinehq/chalkline/backend/internal/alerts"
	"github.com/chalklinehq/chalkline/backend/internal/auth"
	"github.com/chalklinehq/chalkline/backend/internal/chat"
	"github.com/chalklinehq/chalkline/backend/internal/quizzes"
	"github.com/chalklinehq/chalkline/backend/internal/roster"
	"github.com/chalklinehq/chalkline/backend/internal/session"
	"github.com/chalklinehq/chalkline/backend/internal/transcripts"
)

const (
	participantIDContextKey   = "chalkline_participant_id"
	participantRoleContextKey = "chalkline_participant_role"
	participantNameContextKey = "chalkline_participant_name"
)

var (
	errMissingGoogleVerifier = errors.New("google verifier dependency required")
	errMissingTokenManager   = errors.New("token manager dependency required")
	errMissingRoster         = errors.New("roster dependency required")
	errMissingStores         = errors.New("all four store dependencies required")
	errMissingLifecycle      = errors.New("session lifecycle dependency required")
	errInvalidAuthorization  = errors.New("authorization header missing or invalid")
)

// GoogleVerifier verifies an external sign-in token.
type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (auth.SignInClaims, error)
}

// TokenManager issues and validates classroom tokens.
type TokenManager interface {
	IssueToken(ctx context.Context, identity auth.TokenIdentity) (string, int64, error)
	ValidateToken(token string) (auth.TokenIdentity, error)
}

// RosterResolver maps sign-in claims to a participant with a role.
type RosterResolver interface {
	Resolve(claims auth.SignInClaims) (roster.Participant, error)
}

// Dependencies wires every collaborator the HTTP surface needs.
type Dependencies struct {
	GoogleVerifier GoogleVerifier
	TokenManager   TokenManager
	Roster         RosterResolver
	Chat           *chat.Store
	Transcripts    *transcripts.Store
	Alerts         *alerts.Store
	Quizzes        *quizzes.Store
	Lifecycle      *session.Lifecycle
	AlertFeed      *AlertFeedDispatcher
	IDProvider     IDProvider
	Clock          func() time.Time
	Logger         *zap.Logger
}

// NewHTTPHandler builds the gin router for the classroom API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.GoogleVerifier == nil {
		return nil, errMissingGoogleVerifier
	}
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Roster == nil {
		return nil, errMissingRoster
	}
	if deps.Chat == nil || deps.Transcripts == nil || deps.Alerts == nil || deps.Quizzes == nil {
		return nil, errMissingStores
	}
	if deps.Lifecycle == nil {
		return nil, errMissingLifecycle
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idProvider := deps.IDProvider
	if idProvider == nil {
		idProvider = NewUUIDProvider()
	}
	alertFeed := deps.AlertFeed
	if alertFeed == nil {
		alertFeed = NewAlertFeedDispatcher()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		verifier:    deps.GoogleVerifier,
		tokens:      deps.TokenManager,
		roster:      deps.Roster,
		chat:        deps.Chat,
		transcripts: deps.Transcripts,
		alerts:      deps.Alerts,
		quizzes:     deps.Quizzes,
		lifecycle:   deps.Lifecycle,
		alertFeed:   alertFeed,
		idProvider:  idProvider,
		clock:       clock,
		logger:      logger,
	}

	router.POST("/auth/google", handler.handleGoogleAuth)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)

	protected.POST("/rooms/:roomID/messages", handler.handleSendMessage)
	protected.GET("/rooms/:roomID/messages", handler.handleListMessages)
	protected.POST("/sessions/:sessionID/transcripts", handler.handleAddTranscript)
	protected.POST("/classrooms/:classroomID/alerts", handler.handleCreateAlert)
	protected.GET("/sessions/:sessionID/quizzes", handler.handleListQuizzes)
	protected.GET("/quizzes/:quizID", handler.handleGetQuiz)

	instructorOnly := protected.Group("/")
	instructorOnly.Use(handler.requireInstructor)

	instructorOnly.GET("/sessions/:sessionID/messages", handler.handleSessionMessages)
	instructorOnly.GET("/sessions/:sessionID/transcripts", handler.handleListTranscripts)
	instructorOnly.GET("/transcripts/lookup", handler.handleTranscriptLookup)
	instructorOnly.GET("/classrooms/:classroomID/alerts", handler.handleListAlerts)
	instructorOnly.GET("/classrooms/:classroomID/alerts/counts", handler.handleAlertCounts)
	instructorOnly.GET("/classrooms/:classroomID/alerts/feed", handler.handleAlertFeed)
	instructorOnly.PATCH("/alerts/:alertID/status", handler.handleUpdateAlertStatus)
	instructorOnly.POST("/sessions/:sessionID/quizzes", handler.handleSaveQuiz)
	instructorOnly.PATCH("/quizzes/:quizID", handler.handleUpdateQuiz)
	instructorOnly.DELETE("/quizzes/:quizID", handler.handleDeleteQuiz)
	instructorOnly.DELETE("/sessions/:sessionID", handler.handleEndSession)
	instructorOnly.DELETE("/rooms/:roomID", handler.handleEndBreakoutRoom)

	return router, nil
}

type httpHandler struct {
	verifier    GoogleVerifier
	tokens      TokenManager
	roster      RosterResolver
	chat        *chat.Store
	transcripts *transcripts.Store
	alerts      *alerts.Store
	quizzes     *quizzes.Store
	lifecycle   *session.Lifecycle
	alertFeed   *AlertFeedDispatcher
	idProvider  IDProvider
	clock       func() time.Time
	logger      *zap.Logger
}

type authRequestPayload struct {
	IDToken string `json:"id_token"`
}

type authResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
}

func (h *httpHandler) handleGoogleAuth(c *gin.Context) {
	var request authRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.IDToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	claims, err := h.verifier.Verify(c.Request.Context(), request.IDToken)
	if err != nil {
		h.logger.Warn("google token verification failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	participant, err := h.roster.Resolve(claims)
	if err != nil {
		h.logger.Error("participant resolution failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolution_failed"})
		return
	}

	token, expiresIn, err := h.tokens.IssueToken(c.Request.Context(), auth.TokenIdentity{
		ParticipantID: participant.ParticipantID,
		Role:          string(participant.Role),
		DisplayName:   participant.DisplayName,
	})
	if err != nil {
		h.logger.Error("failed to issue classroom token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, authResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		Role:        string(participant.Role),
	})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	identity, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(participantIDContextKey, identity.ParticipantID)
	c.Set(participantRoleContextKey, identity.Role)
	c.Set(participantNameContextKey, identity.DisplayName)
	c.Next()
}

func (h *httpHandler) requireInstructor(c *gin.Context) {
	if c.GetString(participantRoleContextKey) != string(roster.RoleInstructor) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "instructor_required"})
		return
	}
	c.Next()
}
