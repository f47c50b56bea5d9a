package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"taskly-server/internal/logics"
)

// ResetFlow is the password reset code flow. Satisfied by
// logics.ResetService.
type ResetFlow interface {
	SendResetCode(ctx context.Context, email string) error
	VerifyResetCode(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, newPassword string) error
}

// ResetController exposes the password reset code flow. Responses are
// plain text status strings, matching the contract the mobile and web
// clients were built against.
type ResetController struct {
	resetService ResetFlow
	logger       *zap.Logger
}

// NewResetController creates a new ResetController
func NewResetController(resetService ResetFlow, logger *zap.Logger) *ResetController {
	return &ResetController{
		resetService: resetService,
		logger:       logger,
	}
}

type sendResetCodeRequest struct {
	Email string `json:"email"`
}

type verifyResetCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

// SendResetCode handles POST /api/send-reset-code
func (rc *ResetController) SendResetCode(c echo.Context) error {
	var req sendResetCodeRequest
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return c.String(http.StatusBadRequest, "Email required")
	}

	err := rc.resetService.SendResetCode(c.Request().Context(), req.Email)
	switch {
	case errors.Is(err, logics.ErrNoAccount):
		return c.String(http.StatusNotFound, "No account found with that email.")
	case err != nil:
		rc.logger.Error("Send reset code failed", zap.String("email", req.Email), zap.Error(err))
		return c.String(http.StatusInternalServerError, "Failed to send email")
	}

	return c.String(http.StatusOK, "Code sent")
}

// VerifyResetCode handles POST /api/verify-reset-code
func (rc *ResetController) VerifyResetCode(c echo.Context) error {
	var req verifyResetCodeRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Email and code required")
	}

	err := rc.resetService.VerifyResetCode(c.Request().Context(), req.Email, req.Code)
	switch {
	case errors.Is(err, logics.ErrCodeNotFound):
		return c.String(http.StatusNotFound, "Code not found")
	case errors.Is(err, logics.ErrCodeExpired):
		return c.String(http.StatusGone, "Code expired")
	case errors.Is(err, logics.ErrCodeInvalid):
		return c.String(http.StatusUnauthorized, "Invalid code")
	case err != nil:
		rc.logger.Error("Verify reset code failed", zap.String("email", req.Email), zap.Error(err))
		return c.String(http.StatusInternalServerError, "Failed to verify code")
	}

	return c.String(http.StatusOK, "Code verified")
}

// ResetPassword handles POST /api/reset-password
func (rc *ResetController) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Email and new password required")
	}

	if err := rc.resetService.ResetPassword(c.Request().Context(), req.Email, req.NewPassword); err != nil {
		rc.logger.Error("Reset password failed", zap.String("email", req.Email), zap.Error(err))
		return c.String(http.StatusInternalServerError, "Failed to update password")
	}

	return c.String(http.StatusOK, "Password updated")
}
