package logics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskly-server/internal/ai/client"
	aimodels "taskly-server/internal/ai/models"
	"taskly-server/internal/ai/parsers"
	"taskly-server/internal/models"
)

// TaskSaver persists finalized breakdowns. Satisfied by TaskService.
type TaskSaver interface {
	SaveTask(ctx context.Context, userID, title string, lines []string, plannedAt *time.Time) (*models.Task, error)
}

var (
	ErrMissingTask      = errors.New("task is required")
	ErrMissingPlannedAt = errors.New("planned datetime is required")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionBusy      = errors.New("a submission is already in progress")
	ErrInvalidState     = errors.New("operation not valid in current session state")
)

// SessionState is where a breakdown conversation currently stands.
type SessionState string

const (
	StateIdle            SessionState = "idle"
	StateAwaitingAnswer  SessionState = "awaiting_answer"
	StateAwaitingContext SessionState = "awaiting_context"
	StateResults         SessionState = "results"
	StateSkipMessage     SessionState = "skip_message"
	StateMalformed       SessionState = "malformed"
)

// ReplyKind classifies an assistant reply by its prefix.
type ReplyKind int

const (
	ReplyMalformed ReplyKind = iota
	ReplyQuestion
	ReplyBreakdown
)

const (
	questionMarker = "QUESTION:"
	previewMarker  = "PREVIEW_BREAKDOWN:"
	skippedTag     = "[skipped]"

	maxQuestions = 3

	sessionIdleTimeout   = time.Hour
	sessionSweepInterval = 10 * time.Minute

	invalidResponseMessage = "The AI response was invalid. Please try a new task."
	clarifyReprompt        = "Sorry, that wasn't a valid breakdown. Can you clarify your task a bit?"
)

// breakdownSystemPrompt seeds every session's message history.
const breakdownSystemPrompt = `You are an AI assistant helping users break vague tasks into actionable subtasks with estimated durations and helpful structure.

Clarify unclear tasks by asking **up to 3** follow-up questions — one at a time.

🚨 IMPORTANT:
- If 2 questions were already asked and the task still lacks detail, **you MUST ask a 3rd question**.
- Only stop at 2 if the task is now 100% clear and ready for breakdown.

Rules:
- Prefix follow-up questions with: QUESTION:
- Prefix final task breakdowns with: BREAKDOWN:

Format for BREAKDOWN:
1. [Task title]
(Duration on the next line: in the form of (X hours Y minutes))
(Optional: 1–2 bullet tips below each task)

💡 If the user asks for suggestions or recommendations (e.g., books, tools, methods), include up to 3 **specific examples** with the most relevant task step (IN SAME CARD).

DO NOT:
- Write duration on the same line as the task
- Use dashes or colons for time
- Add commentary before or after the breakdown

Example:
1. Research history books
(30 minutes)
• Consider "SPQR", "Sapiens", or "The Guns of August"
• Choose one based on your area of interest

BREAKDOWN MUST FOLLOW THIS FORMAT EXACTLY.`

// ClassifyReply buckets an assistant reply by its uppercase prefix.
func ClassifyReply(reply string) ReplyKind {
	upper := strings.ToUpper(strings.TrimSpace(reply))
	switch {
	case strings.HasPrefix(upper, questionMarker):
		return ReplyQuestion
	case strings.HasPrefix(upper, parsers.BreakdownMarker):
		return ReplyBreakdown
	}
	return ReplyMalformed
}

// Session is one breakdown conversation. Clarifications holds the
// running Q/A transcript plus tagged preview entries; the first preview
// entry is the fallback breakdown.
type Session struct {
	ID        string
	UserID    string
	Task      string
	PlannedAt *time.Time

	State          SessionState
	Question       string
	SkipMessage    string
	Lines          []string
	Breakdown      *aimodels.Breakdown
	Messages       []client.Message
	Clarifications []string
	ExtraContext   string
	SavedTaskID    string

	mu         sync.Mutex
	loading    bool
	generation uint64
	touchedAt  time.Time
}

// SessionView is the lock-free snapshot handed to HTTP responses.
type SessionView struct {
	ID        string              `json:"id"`
	State     SessionState        `json:"state"`
	Task      string              `json:"task"`
	PlannedAt *time.Time          `json:"planned_at,omitempty"`
	Question  string              `json:"question,omitempty"`
	Message   string              `json:"message,omitempty"`
	Lines     []string            `json:"lines,omitempty"`
	Breakdown *aimodels.Breakdown `json:"breakdown,omitempty"`
	TaskID    string              `json:"task_id,omitempty"`
}

// View snapshots the session for serialization.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionView{
		ID:        s.ID,
		State:     s.State,
		Task:      s.Task,
		PlannedAt: s.PlannedAt,
		Question:  s.Question,
		Message:   s.SkipMessage,
		Lines:     append([]string(nil), s.Lines...),
		Breakdown: s.Breakdown,
		TaskID:    s.SavedTaskID,
	}
}

// ConversationService drives breakdown sessions: it relays the message
// history to the completion endpoint, classifies replies, enforces the
// question cap and skip rules, and persists finalized breakdowns.
type ConversationService struct {
	completer client.Completer
	tasks     TaskSaver
	logger    *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewConversationService creates a new ConversationService
func NewConversationService(completer client.Completer, tasks TaskSaver, logger *zap.Logger) *ConversationService {
	cs := &ConversationService{
		completer: completer,
		tasks:     tasks,
		logger:    logger,
		sessions:  make(map[string]*Session),
	}
	go cs.sweep()
	return cs
}

// sweep prunes idle sessions for the lifetime of the service.
func (cs *ConversationService) sweep() {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		if n := cs.PruneSessions(sessionIdleTimeout); n > 0 {
			cs.logger.Info("Pruned idle sessions", zap.Int("count", n))
		}
	}
}

// PruneSessions removes sessions idle for longer than maxIdle and
// returns how many were removed.
func (cs *ConversationService) PruneSessions(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	cs.mu.Lock()
	defer cs.mu.Unlock()
	removed := 0
	for id, s := range cs.sessions {
		s.mu.Lock()
		idle := !s.loading && s.touchedAt.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(cs.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSession validates the task and planned datetime, then runs the
// first completion round. Preconditions fail before any network call.
func (cs *ConversationService) StartSession(ctx context.Context, userID, task string, plannedAt *time.Time) (*Session, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return nil, ErrMissingTask
	}
	if plannedAt == nil {
		return nil, ErrMissingPlannedAt
	}

	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Task:      task,
		PlannedAt: plannedAt,
		State:     StateIdle,
		Messages: []client.Message{
			{Role: client.RoleSystem, Content: breakdownSystemPrompt},
		},
		touchedAt: time.Now(),
	}

	cs.mu.Lock()
	cs.sessions[s.ID] = s
	cs.mu.Unlock()

	cs.logger.Info("Session started",
		zap.String("session_id", s.ID),
		zap.String("user_id", userID),
	)

	err := cs.advance(ctx, s, "User Task:\n"+task, func(reply string) error {
		return cs.handleReply(ctx, s, reply)
	})
	if err != nil {
		// A session that never produced a first round is unreachable
		// by the client, so drop it from the registry.
		cs.mu.Lock()
		delete(cs.sessions, s.ID)
		cs.mu.Unlock()
		return nil, err
	}
	return s, nil
}

// GetSession looks up a session by id for the given user.
func (cs *ConversationService) GetSession(userID, id string) (*Session, error) {
	cs.mu.RLock()
	s, ok := cs.sessions[id]
	cs.mu.RUnlock()
	if !ok || s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	s.mu.Lock()
	s.touchedAt = time.Now()
	s.mu.Unlock()
	return s, nil
}

// Answer records the reply to the pending question and runs another
// completion round. A skipped answer is recorded as "[skipped]".
func (cs *ConversationService) Answer(ctx context.Context, userID, id, answer string, skip bool) (*Session, error) {
	s, err := cs.GetSession(userID, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.State != StateAwaitingAnswer {
		s.mu.Unlock()
		return nil, ErrInvalidState
	}
	recorded := strings.TrimSpace(answer)
	if skip || recorded == "" {
		recorded = skippedTag
	}
	record := fmt.Sprintf("Q: %s\nA: %s", s.Question, recorded)
	records := append(append([]string(nil), s.Clarifications...), record)
	content := fmt.Sprintf("Task: %s\n\n%s", s.Task, strings.Join(records, "\n"))
	s.mu.Unlock()

	// The record and question clear are committed only once a reply
	// arrives; a transport failure leaves the round retryable.
	err = cs.advance(ctx, s, content, func(reply string) error {
		s.Clarifications = append(s.Clarifications, record)
		s.Question = ""
		return cs.handleReply(ctx, s, reply)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Context runs the optional extra-context round. A skip (or blank
// context) finalizes from the first preview breakdown; otherwise the
// model is asked for an updated breakdown, and a non-breakdown reply
// leaves the session unchanged.
func (cs *ConversationService) Context(ctx context.Context, userID, id, contextText string, skip bool) (*Session, error) {
	s, err := cs.GetSession(userID, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.State != StateAwaitingContext {
		s.mu.Unlock()
		return nil, ErrInvalidState
	}

	contextText = strings.TrimSpace(contextText)
	if skip || contextText == "" {
		err := cs.finalizeFromFirstPreview(ctx, s)
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	transcript := make([]string, 0, len(s.Clarifications))
	for _, entry := range s.Clarifications {
		if !strings.HasPrefix(entry, previewMarker) {
			transcript = append(transcript, entry)
		}
	}
	prompt := fmt.Sprintf(
		"%s\n\nAdditional context: %s\n\nBased on all the above information and the additional context provided, please provide an updated BREAKDOWN:",
		strings.Join(transcript, "\n"), contextText,
	)
	s.mu.Unlock()

	err = cs.advance(ctx, s, prompt, func(reply string) error {
		s.ExtraContext = contextText
		return cs.handleContextReply(ctx, s, reply)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// advance requests a completion for the history plus one new user turn
// and applies the reply under the session lock. The session itself is
// only written once a reply arrives: a transport failure or a reply
// that lost a generation race leaves it exactly as it was, so the
// submission can be re-triggered. The loading flag rejects overlapping
// submissions.
func (cs *ConversationService) advance(ctx context.Context, s *Session, content string, apply func(reply string) error) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	s.loading = true
	s.generation++
	gen := s.generation
	userTurn := client.Message{Role: client.RoleUser, Content: content}
	history := append(append([]client.Message(nil), s.Messages...), userTurn)
	s.mu.Unlock()

	reply, completeErr := cs.completer.Complete(ctx, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.touchedAt = time.Now()
	if s.generation != gen {
		cs.logger.Warn("Discarding stale completion",
			zap.String("session_id", s.ID),
			zap.Uint64("generation", gen),
		)
		return nil
	}
	if completeErr != nil {
		return fmt.Errorf("completion failed: %w", completeErr)
	}
	s.Messages = append(s.Messages, userTurn, client.Message{Role: client.RoleAssistant, Content: reply})
	return apply(reply)
}

// handleReply applies one classified assistant reply to the session.
// Callers hold s.mu.
func (cs *ConversationService) handleReply(ctx context.Context, s *Session, reply string) error {
	trimmed := strings.TrimSpace(reply)

	fallback, hasFallback := firstPreview(s.Clarifications)
	questionCount := 0
	for _, entry := range s.Clarifications {
		if strings.HasPrefix(entry, "Q:") && !strings.Contains(entry, skippedTag) {
			questionCount++
		}
	}
	n := len(s.Clarifications)
	twoConsecutiveSkips := n >= 2 &&
		strings.Contains(s.Clarifications[n-1], skippedTag) &&
		strings.Contains(s.Clarifications[n-2], skippedTag)
	limitReached := questionCount >= maxQuestions

	switch ClassifyReply(trimmed) {
	case ReplyQuestion:
		extracted := strings.TrimSpace(stripFirstMarker(trimmed, questionMarker))

		// Malformed model output such as "QUESTION: ()" or a bare prefix.
		if extracted == "" || extracted == "()" {
			if hasFallback {
				return cs.finalizeFromPreview(ctx, s, fallback, "Used fallback breakdown after malformed question")
			}
			s.SkipMessage = invalidResponseMessage
			s.State = StateMalformed
			return nil
		}

		if limitReached || twoConsecutiveSkips {
			if hasFallback {
				return cs.finalizeFromPreview(ctx, s, fallback, "Used fallback breakdown after skip/question limit")
			}
			lines := []string{"1. " + s.Task}
			task, err := cs.tasks.SaveTask(ctx, s.UserID, s.Task, lines, s.PlannedAt)
			if err != nil {
				return err
			}
			s.SavedTaskID = task.ID
			s.SkipMessage = fmt.Sprintf("Task Created: %s. You can always create a new task for a more detailed breakdown.", s.Task)
			s.State = StateSkipMessage
			return nil
		}

		s.Question = extracted
		s.State = StateAwaitingAnswer
		return nil

	case ReplyBreakdown:
		raw := strings.TrimSpace(stripFirstMarker(trimmed, parsers.BreakdownMarker))
		normalized := parsers.NormalizeBreakdown(raw)
		// First preview wins as the fallback for later rounds.
		s.Clarifications = append(s.Clarifications, previewMarker+parsers.BreakdownMarker+"\n"+normalized)

		lines := strings.Split(normalized, "\n")
		if s.ExtraContext != "" {
			lines = append([]string{"* Extra context: " + s.ExtraContext}, lines...)
		}
		s.Lines = lines
		s.Breakdown = parsers.ParseBreakdown(lines)
		s.State = StateAwaitingContext
		return nil
	}

	s.Question = clarifyReprompt
	s.State = StateAwaitingAnswer
	return nil
}

// handleContextReply applies the reply to an extra-context round.
// Anything but a breakdown is ignored so the user can retry or skip.
// Callers hold s.mu.
func (cs *ConversationService) handleContextReply(ctx context.Context, s *Session, reply string) error {
	trimmed := strings.TrimSpace(reply)
	if ClassifyReply(trimmed) != ReplyBreakdown {
		cs.logger.Warn("Ignoring non-breakdown reply to context round",
			zap.String("session_id", s.ID))
		return nil
	}

	content := strings.TrimSpace(stripFirstMarker(trimmed, parsers.BreakdownMarker))
	lines := filterBlank(strings.Split(content, "\n"))

	task, err := cs.tasks.SaveTask(ctx, s.UserID, s.Task, lines, s.PlannedAt)
	if err != nil {
		return err
	}
	s.SavedTaskID = task.ID
	s.Lines = lines
	s.Breakdown = parsers.ParseBreakdown(lines)
	s.Clarifications = nil
	s.ExtraContext = ""
	s.State = StateResults
	return nil
}

// finalizeFromFirstPreview closes the session with the fallback
// breakdown, converting leading "•" bullets to "*". Callers hold s.mu.
func (cs *ConversationService) finalizeFromFirstPreview(ctx context.Context, s *Session) error {
	preview, ok := firstPreview(s.Clarifications)
	if !ok {
		// No preview means the session already carries finalized lines.
		s.State = StateResults
		return nil
	}

	content := strings.TrimSpace(stripFirstMarker(strings.TrimPrefix(preview, previewMarker), parsers.BreakdownMarker))
	raw := strings.Split(content, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "•") {
			line = "*" + strings.TrimPrefix(line, "•")
		}
		lines = append(lines, line)
	}

	if s.SavedTaskID == "" {
		task, err := cs.tasks.SaveTask(ctx, s.UserID, s.Task, lines, s.PlannedAt)
		if err != nil {
			return err
		}
		s.SavedTaskID = task.ID
	}
	s.Lines = lines
	s.Breakdown = parsers.ParseBreakdown(lines)
	s.Clarifications = nil
	s.ExtraContext = ""
	s.State = StateResults
	return nil
}

// finalizeFromPreview saves the fallback breakdown as the task and
// moves the session to the extra-context round, noting the fallback in
// the message history. Callers hold s.mu.
func (cs *ConversationService) finalizeFromPreview(ctx context.Context, s *Session, preview, note string) error {
	content := strings.TrimSpace(stripFirstMarker(strings.TrimPrefix(preview, previewMarker), parsers.BreakdownMarker))
	normalized := parsers.NormalizeBreakdown(content)

	lines := strings.Split(normalized, "\n")
	if s.ExtraContext != "" {
		lines = append([]string{"* Extra context: " + s.ExtraContext}, lines...)
	}
	lines = filterBlank(lines)

	task, err := cs.tasks.SaveTask(ctx, s.UserID, s.Task, lines, s.PlannedAt)
	if err != nil {
		return err
	}
	s.SavedTaskID = task.ID
	s.Lines = lines
	s.Breakdown = parsers.ParseBreakdown(lines)
	s.State = StateAwaitingContext
	s.Messages = append(s.Messages, client.Message{Role: client.RoleSystem, Content: note})
	return nil
}

func firstPreview(entries []string) (string, bool) {
	for _, entry := range entries {
		if strings.HasPrefix(entry, previewMarker) {
			return entry, true
		}
	}
	return "", false
}

// stripFirstMarker removes the first case-insensitive occurrence of
// marker from s.
func stripFirstMarker(s, marker string) string {
	idx := strings.Index(strings.ToUpper(s), marker)
	if idx < 0 {
		return s
	}
	return s[:idx] + s[idx+len(marker):]
}

func filterBlank(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
