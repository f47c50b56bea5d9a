package logics

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"taskly-server/internal/ai/models"
	"taskly-server/internal/ai/parsers"
	"taskly-server/internal/utils"
)

var (
	ErrStepIndexOutOfRange = errors.New("step index out of range")
	ErrZeroDuration        = errors.New("duration must be greater than 0")
)

// ZeroDurationMessage is the editor-facing text for ErrZeroDuration.
const ZeroDurationMessage = "Duration must be greater than 0."

// StepPlaceholderBody is the duration body a freshly added step starts
// with. It parses to zero and is flagged by ValidateStep until edited.
const StepPlaceholderBody = "(0 hours 0 minutes)"

// StepService edits the steps of a breakdown. Structural changes
// (delete, reorder) renumber the remaining steps 1..N immediately,
// preserving each title remainder.
type StepService struct {
	ids    *utils.UniqueIDService
	logger *zap.Logger
}

// NewStepService creates a new StepService
func NewStepService(ids *utils.UniqueIDService, logger *zap.Logger) *StepService {
	return &StepService{
		ids:    ids,
		logger: logger,
	}
}

// SetTitle replaces the title of the step at index.
func (s *StepService) SetTitle(steps []models.Step, index int, title string) error {
	return s.SetField(steps, index, "title", title)
}

// SetDuration replaces the duration body of the step at index.
func (s *StepService) SetDuration(steps []models.Step, index int, body string) error {
	return s.SetField(steps, index, "body", body)
}

// SetField dispatches a single-field edit by name.
func (s *StepService) SetField(steps []models.Step, index int, field, value string) error {
	if err := s.checkIndex(steps, index); err != nil {
		return err
	}
	switch field {
	case "title":
		steps[index].Title = value
	case "body":
		steps[index].Body = value
	default:
		return fmt.Errorf("unknown step field %q", field)
	}
	return nil
}

// SetBullets replaces the bullet tips of the step at index.
func (s *StepService) SetBullets(steps []models.Step, index int, bullets []string) error {
	if err := s.checkIndex(steps, index); err != nil {
		return err
	}
	steps[index].Bullets = bullets
	return nil
}

// AddStep appends a new step numbered count+1 with the placeholder
// duration body.
func (s *StepService) AddStep(steps []models.Step) ([]models.Step, error) {
	id, err := s.ids.GenerateStepID()
	if err != nil {
		return nil, fmt.Errorf("generate step id: %w", err)
	}
	return append(steps, models.Step{
		ID:    id,
		Title: fmt.Sprintf("%d. ", len(steps)+1),
		Body:  StepPlaceholderBody,
	}), nil
}

// DeleteStep removes the step at index and renumbers the rest.
func (s *StepService) DeleteStep(steps []models.Step, index int) ([]models.Step, error) {
	if err := s.checkIndex(steps, index); err != nil {
		return nil, err
	}
	updated := append(steps[:index:index], steps[index+1:]...)
	s.renumber(updated)
	return updated, nil
}

// Reorder moves the step at from to position to and renumbers 1..N.
func (s *StepService) Reorder(steps []models.Step, from, to int) ([]models.Step, error) {
	if err := s.checkIndex(steps, from); err != nil {
		return nil, err
	}
	if err := s.checkIndex(steps, to); err != nil {
		return nil, err
	}
	updated := make([]models.Step, 0, len(steps))
	updated = append(updated, steps[:from]...)
	updated = append(updated, steps[from+1:]...)
	updated = append(updated[:to:to], append([]models.Step{steps[from]}, updated[to:]...)...)
	s.renumber(updated)
	return updated, nil
}

// ToggleComplete flips the completed flag of the step at index.
func (s *StepService) ToggleComplete(steps []models.Step, index int) error {
	if err := s.checkIndex(steps, index); err != nil {
		return err
	}
	steps[index].Completed = !steps[index].Completed
	return nil
}

// TotalMinutes sums the step durations. Always recomputed from the
// bodies, never cached.
func (s *StepService) TotalMinutes(steps []models.Step) int {
	return parsers.TotalMinutes(steps)
}

// ValidateStep flags steps whose body has no positive duration.
func (s *StepService) ValidateStep(step models.Step) error {
	d, ok := parsers.ExtractDuration(step.Body, parsers.IntegerOnly)
	if !ok || d.TotalMinutes() <= 0 {
		return ErrZeroDuration
	}
	return nil
}

func (s *StepService) checkIndex(steps []models.Step, index int) error {
	if index < 0 || index >= len(steps) {
		return ErrStepIndexOutOfRange
	}
	return nil
}

func (s *StepService) renumber(steps []models.Step) {
	for i := range steps {
		steps[i].Renumber(i + 1)
	}
}
