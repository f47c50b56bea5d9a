package logics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	aimodels "taskly-server/internal/ai/models"
	"taskly-server/internal/ai/parsers"
	"taskly-server/internal/models"
	"taskly-server/internal/utils"
)

var ErrTaskNotFound = errors.New("task not found")

// defaultEventMinutes is used for calendar events whose steps carry no
// parseable duration.
const defaultEventMinutes = 60

// CalendarEvent is a saved task projected onto a calendar slot.
type CalendarEvent struct {
	TaskID       string    `json:"task_id"`
	Title        string    `json:"title"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	TotalMinutes int       `json:"total_minutes"`
}

// TaskService persists saved breakdowns per user.
type TaskService struct {
	db     *gorm.DB
	ids    *utils.UniqueIDService
	logger *zap.Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(db *gorm.DB, ids *utils.UniqueIDService, logger *zap.Logger) *TaskService {
	return &TaskService{
		db:     db,
		ids:    ids,
		logger: logger,
	}
}

// GetSavedTasks returns the user's tasks, newest planned first.
func (s *TaskService) GetSavedTasks(ctx context.Context, userID string) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp desc").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// SaveTask stores a finalized breakdown. The task timestamp is the
// planned datetime when one is set, otherwise the save time.
func (s *TaskService) SaveTask(ctx context.Context, userID, title string, lines []string, plannedAt *time.Time) (*models.Task, error) {
	id, err := s.ids.GenerateTaskID()
	if err != nil {
		return nil, fmt.Errorf("generate task id: %w", err)
	}

	task := models.Task{
		ID:        id,
		UserID:    userID,
		Title:     title,
		PlannedAt: plannedAt,
		Timestamp: time.Now(),
	}
	if plannedAt != nil {
		task.Timestamp = *plannedAt
	}
	if err := task.SetStepLines(lines); err != nil {
		return nil, fmt.Errorf("encode steps: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}

	s.logger.Info("Task saved",
		zap.String("task_id", task.ID),
		zap.String("user_id", userID),
		zap.Int("lines", len(lines)),
	)
	return &task, nil
}

// GetTask fetches one of the user's tasks by id.
func (s *TaskService) GetTask(ctx context.Context, userID, id string) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

// UpdateTask applies a partial update to one of the user's tasks.
func (s *TaskService) UpdateTask(ctx context.Context, userID, id string, update models.TaskUpdate) (*models.Task, error) {
	task, err := s.GetTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.PlannedAt != nil {
		task.PlannedAt = update.PlannedAt
		task.Timestamp = *update.PlannedAt
	}
	if update.Steps != nil {
		if err := task.SetStepLines(*update.Steps); err != nil {
			return nil, fmt.Errorf("encode steps: %w", err)
		}
	}

	if err := s.db.WithContext(ctx).Save(task).Error; err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// ReplaceStepLines overwrites the stored breakdown lines of a task.
func (s *TaskService) ReplaceStepLines(ctx context.Context, task *models.Task, lines []string) error {
	if err := task.SetStepLines(lines); err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}
	if err := s.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("update task steps: %w", err)
	}
	return nil
}

// LoadSteps returns the task's breakdown as structured steps. Tasks
// store either raw lines (fresh from a conversation) or step objects
// (once edited); raw lines go through the parser.
func (s *TaskService) LoadSteps(task *models.Task) ([]aimodels.Step, error) {
	if len(task.Steps) == 0 {
		return nil, nil
	}
	var steps []aimodels.Step
	if err := json.Unmarshal(task.Steps, &steps); err == nil {
		return steps, nil
	}
	lines, err := task.StepLines()
	if err != nil {
		return nil, fmt.Errorf("decode steps: %w", err)
	}
	return parsers.ParseBreakdown(lines).Steps, nil
}

// SaveSteps persists edited steps in their structured form, keeping
// completed flags and bullets.
func (s *TaskService) SaveSteps(ctx context.Context, task *models.Task, steps []aimodels.Step) error {
	raw, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}
	task.Steps = datatypes.JSON(raw)
	if err := s.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("update task steps: %w", err)
	}
	return nil
}

// DeleteTaskByID removes one of the user's tasks.
func (s *TaskService) DeleteTaskByID(ctx context.Context, userID, id string) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Task{})
	if result.Error != nil {
		return fmt.Errorf("delete task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// CalendarEvents projects the user's planned tasks onto calendar slots.
// Event length is the summed step durations, fractional hours allowed,
// with a one hour default when nothing parses.
func (s *TaskService) CalendarEvents(ctx context.Context, userID string) ([]CalendarEvent, error) {
	tasks, err := s.GetSavedTasks(ctx, userID)
	if err != nil {
		return nil, err
	}

	events := make([]CalendarEvent, 0, len(tasks))
	for _, task := range tasks {
		if task.PlannedAt == nil {
			continue
		}
		steps, err := s.LoadSteps(&task)
		if err != nil {
			s.logger.Warn("Skipping task with undecodable steps",
				zap.String("task_id", task.ID), zap.Error(err))
			continue
		}

		total := 0
		for _, step := range steps {
			if d, ok := parsers.ExtractDuration(step.Body, parsers.AllowFractionalHours); ok {
				total += d.TotalMinutes()
			}
		}
		if total == 0 {
			total = defaultEventMinutes
		}

		events = append(events, CalendarEvent{
			TaskID:       task.ID,
			Title:        task.Title,
			Start:        *task.PlannedAt,
			End:          task.PlannedAt.Add(time.Duration(total) * time.Minute),
			TotalMinutes: total,
		})
	}
	return events, nil
}
