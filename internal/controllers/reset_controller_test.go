package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskly-server/internal/logics"
)

type stubResetFlow struct {
	sendErr   error
	verifyErr error
	resetErr  error

	sentTo       string
	verifiedCode string
	newPassword  string
}

func (s *stubResetFlow) SendResetCode(_ context.Context, email string) error {
	s.sentTo = email
	return s.sendErr
}

func (s *stubResetFlow) VerifyResetCode(_ context.Context, _, code string) error {
	s.verifiedCode = code
	return s.verifyErr
}

func (s *stubResetFlow) ResetPassword(_ context.Context, _, newPassword string) error {
	s.newPassword = newPassword
	return s.resetErr
}

func TestSendResetCode(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		sendErr  error
		wantCode int
		wantBody string
	}{
		{"sends a code", `{"email":"amy@example.com"}`, nil, http.StatusOK, "Code sent"},
		{"requires an email", `{}`, nil, http.StatusBadRequest, "Email required"},
		{"unknown account", `{"email":"amy@example.com"}`, logics.ErrNoAccount, http.StatusNotFound, "No account found with that email."},
		{"delivery failure", `{"email":"amy@example.com"}`, errors.New("smtp down"), http.StatusInternalServerError, "Failed to send email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := &stubResetFlow{sendErr: tt.sendErr}
			rc := NewResetController(flow, zap.NewNop())

			c, rec := postJSON(t, "/api/send-reset-code", tt.body)
			require.NoError(t, rc.SendResetCode(c))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestVerifyResetCode(t *testing.T) {
	tests := []struct {
		name      string
		verifyErr error
		wantCode  int
		wantBody  string
	}{
		{"verifies the code", nil, http.StatusOK, "Code verified"},
		{"unknown code", logics.ErrCodeNotFound, http.StatusNotFound, "Code not found"},
		{"expired code", logics.ErrCodeExpired, http.StatusGone, "Code expired"},
		{"wrong code", logics.ErrCodeInvalid, http.StatusUnauthorized, "Invalid code"},
		{"store failure", errors.New("redis down"), http.StatusInternalServerError, "Failed to verify code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := &stubResetFlow{verifyErr: tt.verifyErr}
			rc := NewResetController(flow, zap.NewNop())

			c, rec := postJSON(t, "/api/verify-reset-code", `{"email":"amy@example.com","code":"123456"}`)
			require.NoError(t, rc.VerifyResetCode(c))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, "123456", flow.verifiedCode)
		})
	}
}

func TestResetPassword(t *testing.T) {
	t.Run("updates the password", func(t *testing.T) {
		flow := &stubResetFlow{}
		rc := NewResetController(flow, zap.NewNop())

		c, rec := postJSON(t, "/api/reset-password", `{"email":"amy@example.com","newPassword":"hunter2!"}`)
		require.NoError(t, rc.ResetPassword(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Password updated", rec.Body.String())
		assert.Equal(t, "hunter2!", flow.newPassword)
	})

	t.Run("any failure reads as an update failure", func(t *testing.T) {
		flow := &stubResetFlow{resetErr: errors.New("no such user")}
		rc := NewResetController(flow, zap.NewNop())

		c, rec := postJSON(t, "/api/reset-password", `{"email":"amy@example.com","newPassword":"hunter2!"}`)
		require.NoError(t, rc.ResetPassword(c))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to update password", rec.Body.String())
	})
}
