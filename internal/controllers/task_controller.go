package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	aimodels "taskly-server/internal/ai/models"
	"taskly-server/internal/logics"
	"taskly-server/internal/middlewares"
	"taskly-server/internal/models"
)

// TaskController serves saved tasks and their step editing operations.
type TaskController struct {
	taskService *logics.TaskService
	stepService *logics.StepService
	logger      *zap.Logger
}

// NewTaskController creates a new TaskController
func NewTaskController(taskService *logics.TaskService, stepService *logics.StepService, logger *zap.Logger) *TaskController {
	return &TaskController{
		taskService: taskService,
		stepService: stepService,
		logger:      logger,
	}
}

// taskResponse is a saved task with its steps decoded and totals
// recomputed.
type taskResponse struct {
	Task         *models.Task    `json:"task"`
	Steps        []aimodels.Step `json:"steps"`
	TotalMinutes int             `json:"total_minutes"`
	Completed    int             `json:"completed"`
	StepCount    int             `json:"step_count"`
	Validation   string          `json:"validation,omitempty"`
}

type setStepFieldRequest struct {
	Field   string    `json:"field"`
	Value   string    `json:"value"`
	Bullets *[]string `json:"bullets"`
}

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// ListTasks handles GET /api/v1/tasks
func (tc *TaskController) ListTasks(c echo.Context) error {
	userID, err := middlewares.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}

	tasks, err := tc.taskService.GetSavedTasks(c.Request().Context(), userID)
	if err != nil {
		tc.logger.Error("List tasks failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list tasks"})
	}

	responses := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		steps, err := tc.taskService.LoadSteps(&tasks[i])
		if err != nil {
			tc.logger.Warn("Undecodable task steps", zap.String("task_id", tasks[i].ID), zap.Error(err))
			steps = nil
		}
		responses = append(responses, tc.buildResponse(&tasks[i], steps))
	}
	return c.JSON(http.StatusOK, responses)
}

// UpdateTask handles PUT /api/v1/tasks/:id
func (tc *TaskController) UpdateTask(c echo.Context) error {
	userID, err := middlewares.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}

	var update models.TaskUpdate
	if err := c.Bind(&update); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	task, err := tc.taskService.UpdateTask(c.Request().Context(), userID, c.Param("id"), update)
	if err != nil {
		return tc.taskError(c, err)
	}
	return tc.respondWithTask(c, task)
}

// DeleteTask handles DELETE /api/v1/tasks/:id
func (tc *TaskController) DeleteTask(c echo.Context) error {
	userID, err := middlewares.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}

	if err := tc.taskService.DeleteTaskByID(c.Request().Context(), userID, c.Param("id")); err != nil {
		return tc.taskError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AddStep handles POST /api/v1/tasks/:id/steps
func (tc *TaskController) AddStep(c echo.Context) error {
	return tc.withSteps(c, func(steps []aimodels.Step) ([]aimodels.Step, string, error) {
		updated, err := tc.stepService.AddStep(steps)
		if err != nil {
			return nil, "", err
		}
		// A fresh step starts with the zero placeholder, which the
		// editor flags until a real duration is set.
		return updated, logics.ZeroDurationMessage, nil
	})
}

// SetStepField handles PUT /api/v1/tasks/:id/steps/:index
func (tc *TaskController) SetStepField(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid step index"})
	}

	var req setStepFieldRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	return tc.withSteps(c, func(steps []aimodels.Step) ([]aimodels.Step, string, error) {
		if req.Bullets != nil {
			if err := tc.stepService.SetBullets(steps, index, *req.Bullets); err != nil {
				return nil, "", err
			}
			return steps, "", nil
		}
		if err := tc.stepService.SetField(steps, index, req.Field, req.Value); err != nil {
			return nil, "", err
		}
		validation := ""
		if err := tc.stepService.ValidateStep(steps[index]); err != nil {
			validation = logics.ZeroDurationMessage
		}
		return steps, validation, nil
	})
}

// DeleteStep handles DELETE /api/v1/tasks/:id/steps/:index
func (tc *TaskController) DeleteStep(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid step index"})
	}

	return tc.withSteps(c, func(steps []aimodels.Step) ([]aimodels.Step, string, error) {
		updated, err := tc.stepService.DeleteStep(steps, index)
		return updated, "", err
	})
}

// ToggleStep handles POST /api/v1/tasks/:id/steps/:index/toggle
func (tc *TaskController) ToggleStep(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid step index"})
	}

	return tc.withSteps(c, func(steps []aimodels.Step) ([]aimodels.Step, string, error) {
		err := tc.stepService.ToggleComplete(steps, index)
		return steps, "", err
	})
}

// ReorderSteps handles POST /api/v1/tasks/:id/steps/reorder
func (tc *TaskController) ReorderSteps(c echo.Context) error {
	var req reorderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	return tc.withSteps(c, func(steps []aimodels.Step) ([]aimodels.Step, string, error) {
		updated, err := tc.stepService.Reorder(steps, req.From, req.To)
		return updated, "", err
	})
}

// Calendar handles GET /api/v1/tasks/calendar
func (tc *TaskController) Calendar(c echo.Context) error {
	userID, err := middlewares.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}

	events, err := tc.taskService.CalendarEvents(c.Request().Context(), userID)
	if err != nil {
		tc.logger.Error("Calendar projection failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to build calendar"})
	}
	return c.JSON(http.StatusOK, events)
}

// withSteps loads the task's steps, applies one editing operation, and
// persists the result.
func (tc *TaskController) withSteps(c echo.Context, op func([]aimodels.Step) ([]aimodels.Step, string, error)) error {
	userID, err := middlewares.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	task, err := tc.taskService.GetTask(ctx, userID, c.Param("id"))
	if err != nil {
		return tc.taskError(c, err)
	}

	steps, err := tc.taskService.LoadSteps(task)
	if err != nil {
		tc.logger.Error("Undecodable task steps", zap.String("task_id", task.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to decode task steps"})
	}

	updated, validation, err := op(steps)
	if err != nil {
		return tc.taskError(c, err)
	}

	if err := tc.taskService.SaveSteps(ctx, task, updated); err != nil {
		tc.logger.Error("Persist steps failed", zap.String("task_id", task.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save task steps"})
	}

	resp := tc.buildResponse(task, updated)
	resp.Validation = validation
	return c.JSON(http.StatusOK, resp)
}

func (tc *TaskController) respondWithTask(c echo.Context, task *models.Task) error {
	steps, err := tc.taskService.LoadSteps(task)
	if err != nil {
		tc.logger.Warn("Undecodable task steps", zap.String("task_id", task.ID), zap.Error(err))
		steps = nil
	}
	return c.JSON(http.StatusOK, tc.buildResponse(task, steps))
}

func (tc *TaskController) buildResponse(task *models.Task, steps []aimodels.Step) taskResponse {
	completed := 0
	for _, s := range steps {
		if s.Completed {
			completed++
		}
	}
	return taskResponse{
		Task:         task,
		Steps:        steps,
		TotalMinutes: tc.stepService.TotalMinutes(steps),
		Completed:    completed,
		StepCount:    len(steps),
	}
}

func (tc *TaskController) taskError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, logics.ErrTaskNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, logics.ErrStepIndexOutOfRange):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	tc.logger.Error("Task operation failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "task operation failed"})
}
