package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskly-server/internal/ai/client"
)

type stubCompleter struct {
	reply string
	err   error
	seen  []client.Message
}

func (s *stubCompleter) Complete(_ context.Context, messages []client.Message) (string, error) {
	s.seen = messages
	return s.reply, s.err
}

func postJSON(t *testing.T, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestCreateBreakdown(t *testing.T) {
	t.Run("returns the completion result", func(t *testing.T) {
		completer := &stubCompleter{reply: "BREAKDOWN:\n1. Research books\n(30 minutes)"}
		bc := NewBreakdownController(completer, zap.NewNop())

		c, rec := postJSON(t, "/api/breakdown", `{"messages":[{"role":"user","content":"User Task:\nread a book"}]}`)
		require.NoError(t, bc.CreateBreakdown(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"result":"BREAKDOWN:\n1. Research books\n(30 minutes)"}`, rec.Body.String())
		require.Len(t, completer.seen, 1)
		assert.Equal(t, "user", completer.seen[0].Role)
	})

	t.Run("rejects a body without messages", func(t *testing.T) {
		bc := NewBreakdownController(&stubCompleter{}, zap.NewNop())

		c, rec := postJSON(t, "/api/breakdown", `{}`)
		require.NoError(t, bc.CreateBreakdown(c))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Missing or invalid message history"}`, rec.Body.String())
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		bc := NewBreakdownController(&stubCompleter{}, zap.NewNop())

		c, rec := postJSON(t, "/api/breakdown", `{"messages":"nope"}`)
		require.NoError(t, bc.CreateBreakdown(c))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps upstream failures to 500", func(t *testing.T) {
		completer := &stubCompleter{err: errors.New("upstream down")}
		bc := NewBreakdownController(completer, zap.NewNop())

		c, rec := postJSON(t, "/api/breakdown", `{"messages":[]}`)
		require.NoError(t, bc.CreateBreakdown(c))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Failed to fetch from Groq"}`, rec.Body.String())
	})
}
