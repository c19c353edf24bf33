package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/orbitdesk/tracker/internal/config"
	"github.com/orbitdesk/tracker/internal/database"
	"github.com/orbitdesk/tracker/internal/handlers"
	"github.com/orbitdesk/tracker/internal/middleware"
	"github.com/orbitdesk/tracker/internal/repository"
	"github.com/orbitdesk/tracker/internal/sequence"
	"github.com/orbitdesk/tracker/internal/services"
	"github.com/orbitdesk/tracker/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Wire the tree store and the engine services
	treeStore := store.NewSQL(db)
	allocator := sequence.New(treeStore)

	userRepo := repository.NewUserRepository(db)
	authService := services.NewAuthService(userRepo)
	projectService := services.NewProjectService(treeStore, allocator)
	taskService := services.NewTaskService(treeStore, projectService, allocator, repository.NewDirectory(userRepo))

	// Start the live task mirror; list endpoints serve from its snapshot.
	if err := taskService.Start(); err != nil {
		log.Fatalf("Failed to start task sync: %v", err)
	}
	defer taskService.Stop()

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	sessionStore, err := redisStore.NewStore(
		10,
		"tcp",
		redisAddr,
		"",
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	isProduction := cfg.GinMode == "release"
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax
	})
	r.Use(sessions.Sessions("tracker_session", sessionStore))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	projectHandler := handlers.NewProjectHandler(projectService)
	taskHandler := handlers.NewTaskHandler(taskService)
	notifyHandler := handlers.NewNotifyHandler(taskService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Tracker API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(authService), authHandler.GetCurrentUser)
		}

		// Project routes (protected)
		projects := api.Group("/projects")
		projects.Use(middleware.RequireAuth(authService))
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/:id", projectHandler.GetProject)
			projects.PUT("/:id/team", projectHandler.UpdateTeam)
			projects.PUT("/:id/status", projectHandler.UpdateStatus)
			projects.DELETE("/:id", projectHandler.DeleteProject)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth(authService))
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.GET("/counts", taskHandler.TabCounts)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PATCH("/:id", taskHandler.UpdateField)
			tasks.PUT("/:id/status", taskHandler.UpdateStatus)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.POST("/:id/restore", taskHandler.RestoreTask)
			tasks.DELETE("/:id/purge", taskHandler.PurgeTask)
			tasks.POST("/:id/comments", taskHandler.AddComment)
			tasks.POST("/:id/attachments", taskHandler.AddAttachment)
			tasks.DELETE("/:id/attachments/:key", taskHandler.RemoveAttachment)
			tasks.GET("/:id/subtasks", taskHandler.ListSubtasks)
			tasks.POST("/:id/subtasks", taskHandler.CreateSubtask)
		}

		// Notification routes (protected)
		notifications := api.Group("/notifications")
		notifications.Use(middleware.RequireAuth(authService))
		{
			notifications.GET("/unread", notifyHandler.Unread)
			notifications.POST("/seen", notifyHandler.MarkAllSeen)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
