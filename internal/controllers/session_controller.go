package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskly-server/internal/logics"
	"taskly-server/internal/middlewares"
)

// SessionController drives breakdown conversations over HTTP.
type SessionController struct {
	conversationService *logics.ConversationService
	logger              *zap.Logger
}

// NewSessionController creates a new SessionController
func NewSessionController(conversationService *logics.ConversationService, logger *zap.Logger) *SessionController {
	return &SessionController{
		conversationService: conversationService,
		logger:              logger,
	}
}

type startSessionRequest struct {
	Task      string     `json:"task"`
	PlannedAt *time.Time `json:"planned_at"`
}

type answerRequest struct {
	Answer string `json:"answer"`
	Skip   bool   `json:"skip"`
}

type contextRequest struct {
	Context string `json:"context"`
	Skip    bool   `json:"skip"`
}

// StartSession handles POST /api/v1/sessions
func (sc *SessionController) StartSession(c echo.Context) error {
	userID, err := middlewares.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}

	var req startSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	session, err := sc.conversationService.StartSession(c.Request().Context(), userID, req.Task, req.PlannedAt)
	if err != nil {
		return sc.sessionError(c, err)
	}
	return c.JSON(http.StatusCreated, session.View())
}

// GetSession handles GET /api/v1/sessions/:id
func (sc *SessionController) GetSession(c echo.Context) error {
	userID, err := middlewares.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}

	session, err := sc.conversationService.GetSession(userID, c.Param("id"))
	if err != nil {
		return sc.sessionError(c, err)
	}
	return c.JSON(http.StatusOK, session.View())
}

// Answer handles POST /api/v1/sessions/:id/answer
func (sc *SessionController) Answer(c echo.Context) error {
	userID, err := middlewares.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}

	var req answerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	session, err := sc.conversationService.Answer(c.Request().Context(), userID, c.Param("id"), req.Answer, req.Skip)
	if err != nil {
		return sc.sessionError(c, err)
	}
	return c.JSON(http.StatusOK, session.View())
}

// Context handles POST /api/v1/sessions/:id/context
func (sc *SessionController) Context(c echo.Context) error {
	userID, err := middlewares.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}

	var req contextRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	session, err := sc.conversationService.Context(c.Request().Context(), userID, c.Param("id"), req.Context, req.Skip)
	if err != nil {
		return sc.sessionError(c, err)
	}
	return c.JSON(http.StatusOK, session.View())
}

func (sc *SessionController) sessionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, logics.ErrMissingTask), errors.Is(err, logics.ErrMissingPlannedAt):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, logics.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, logics.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, logics.ErrSessionBusy):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": err.Error()})
	}
	sc.logger.Error("Session operation failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch from Groq"})
}
