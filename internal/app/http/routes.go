package httpEngine

import (
	"net/http"

	"taskly-server/configs"
	"taskly-server/internal/ai/client"
	"taskly-server/internal/controllers"
	"taskly-server/internal/logics"
	"taskly-server/internal/middlewares"
	"taskly-server/internal/repositories"
	"taskly-server/internal/utils"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires all services, controllers, and routes.
func RegisterRoutes(e *echo.Echo) {
	// Health check endpoint (no JWT middleware)
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Hello, from Taskly Server!")
	})

	// Shared dependencies
	idService := utils.NewUniqueIDService()
	emailService := utils.NewEmailService(
		configs.Configs.Email.SMTPHost,
		configs.Configs.Email.SMTPPort,
		configs.Configs.Email.Username,
		configs.Configs.Email.Password,
		configs.Configs.Email.SenderEmail,
	)
	groqClient := client.NewGroqClient(
		configs.Configs.Groq.ApiKey,
		configs.Configs.Groq.BaseURL,
		configs.Configs.Groq.Model,
		configs.Configs.Groq.Temperature,
		configs.Logger,
	)

	// Services
	userDirectory := logics.NewGormUserDirectory(repositories.DBS.Postgres)
	resetService := logics.NewResetService(repositories.DBS.Redis, userDirectory, emailService, idService, configs.Logger)
	taskService := logics.NewTaskService(repositories.DBS.Postgres, idService, configs.Logger)
	stepService := logics.NewStepService(idService, configs.Logger)
	conversationService := logics.NewConversationService(groqClient, taskService, configs.Logger)

	// Controllers
	breakdownController := controllers.NewBreakdownController(groqClient, configs.Logger)
	resetController := controllers.NewResetController(resetService, configs.Logger)
	sessionController := controllers.NewSessionController(conversationService, configs.Logger)
	taskController := controllers.NewTaskController(taskService, stepService, configs.Logger)

	// Public endpoints (no JWT middleware)
	api := e.Group("/api")
	api.POST("/breakdown", breakdownController.CreateBreakdown)
	api.POST("/send-reset-code", resetController.SendResetCode)
	api.POST("/verify-reset-code", resetController.VerifyResetCode)
	api.POST("/reset-password", resetController.ResetPassword)

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middlewares.JWTMiddleware)

	// Conversation session endpoints
	apiV1.POST("/sessions", sessionController.StartSession)
	apiV1.GET("/sessions/:id", sessionController.GetSession)
	apiV1.POST("/sessions/:id/answer", sessionController.Answer)
	apiV1.POST("/sessions/:id/context", sessionController.Context)

	// Saved task endpoints
	apiV1.GET("/tasks", taskController.ListTasks)
	apiV1.GET("/tasks/calendar", taskController.Calendar)
	apiV1.PUT("/tasks/:id", taskController.UpdateTask)
	apiV1.DELETE("/tasks/:id", taskController.DeleteTask)

	// Step editing endpoints
	apiV1.POST("/tasks/:id/steps", taskController.AddStep)
	apiV1.POST("/tasks/:id/steps/reorder", taskController.ReorderSteps)
	apiV1.PUT("/tasks/:id/steps/:index", taskController.SetStepField)
	apiV1.DELETE("/tasks/:id/steps/:index", taskController.DeleteStep)
	apiV1.POST("/tasks/:id/steps/:index/toggle", taskController.ToggleStep)
}
