package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskly-server/internal/ai/client"
)

// BreakdownController proxies raw message histories to the completion
// endpoint for clients that drive the conversation themselves.
type BreakdownController struct {
	completer client.Completer
	logger    *zap.Logger
}

// NewBreakdownController creates a new BreakdownController
func NewBreakdownController(completer client.Completer, logger *zap.Logger) *BreakdownController {
	return &BreakdownController{
		completer: completer,
		logger:    logger,
	}
}

type breakdownRequest struct {
	Messages []client.Message `json:"messages"`
}

// CreateBreakdown handles POST /api/breakdown
func (bc *BreakdownController) CreateBreakdown(c echo.Context) error {
	var req breakdownRequest
	if err := c.Bind(&req); err != nil || req.Messages == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing or invalid message history"})
	}

	result, err := bc.completer.Complete(c.Request().Context(), req.Messages)
	if err != nil {
		bc.logger.Error("Breakdown completion failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch from Groq"})
	}

	return c.JSON(http.StatusOK, echo.Map{"result": result})
}
