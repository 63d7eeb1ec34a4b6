package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/dreamloop/backend/api/handler"
)

type Handlers struct {
	Auth         *apiHandler.AuthHandler
	Profile      *apiHandler.ProfileHandler
	Task         *apiHandler.TaskHandler
	Verification *apiHandler.VerificationHandler
	Streak       *apiHandler.StreakHandler
	Health       *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.POST("/api/v1/auth/login", handlers.Auth.Login)
	r.POST("/api/v1/auth/refresh", handlers.Auth.Refresh)

	// Protected routes
	r.GET("/api/v1/profile", authMiddleware(handlers.Profile.GetProfile))
	r.PUT("/api/v1/profile", authMiddleware(handlers.Profile.UpdateProfile))

	r.GET("/api/v1/tasks", authMiddleware(handlers.Task.GetTasks))
	r.GET("/api/v1/tasks/{id}", authMiddleware(handlers.Task.GetTask))
	r.POST("/api/v1/tasks", authMiddleware(handlers.Task.CreateTask))
	r.DELETE("/api/v1/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))

	// Verification submissions
	r.POST("/api/v1/tasks/{id}/proof", authMiddleware(handlers.Verification.SubmitProof))
	r.POST("/api/v1/tasks/{id}/quiz", authMiddleware(handlers.Verification.SubmitQuiz))
	r.POST("/api/v1/tasks/{id}/toggle", authMiddleware(handlers.Verification.ToggleCompletion))

	// Streaks
	r.GET("/api/v1/streak", authMiddleware(handlers.Streak.GetStreak))
	r.GET("/api/v1/leaderboard", authMiddleware(handlers.Streak.Leaderboard))

	return r
}
