package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mindfull/backend/internal/api/handlers"
	"github.com/mindfull/backend/internal/api/middleware"
	"github.com/mindfull/backend/internal/config"
	"github.com/mindfull/backend/internal/models"
	"github.com/mindfull/backend/internal/repository"
	"github.com/mindfull/backend/internal/service"
	"github.com/mindfull/backend/internal/signaling"
	"github.com/mindfull/backend/internal/sse"
	"github.com/mindfull/backend/pkg/database"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Initialize database connections
	if err := database.InitPostgres(&cfg.Database); err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer database.ClosePostgres()

	if err := database.InitRedis(&cfg.Redis); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer database.CloseRedis()

	// Auto-migrate database schema
	db := database.GetDB()
	if err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Participant{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	participantRepo := repository.NewParticipantRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, &cfg.JWT)
	sessionService := service.NewSessionService(sessionRepo, participantRepo, userRepo)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	sseHandler := sse.NewHandler()

	// Initialize signaling: room registry, relay hub, periodic sweep
	registry := signaling.NewRegistry()
	hub := signaling.NewHub(registry)
	go hub.Run()

	sweeper := signaling.NewSweeper(registry, cfg.Signaling.SweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	wsHandler := signaling.NewHandler(hub)

	// Initialize router
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.ErrorHandlerMiddleware())
	router.Use(middleware.CORSMiddleware())

	// Health check endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "MindFull Backend is running",
			"version": "1.0.0",
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ready",
		})
	})

	// API routes
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)

			// Protected auth routes
			authProtected := auth.Group("")
			authProtected.Use(middleware.AuthMiddleware(&cfg.JWT))
			{
				authProtected.GET("/me", authHandler.GetMe)
				authProtected.POST("/logout", authHandler.Logout)
				authProtected.GET("/counsellors", authHandler.GetCounsellors)
			}
		}

		// Session routes (protected)
		sessions := api.Group("/sessions")
		sessions.Use(middleware.AuthMiddleware(&cfg.JWT))
		{
			sessions.POST("", sessionHandler.CreateSession)
			sessions.POST("/join", sessionHandler.JoinSession)
			sessions.GET("/mine", sessionHandler.GetMySessions)
			sessions.GET("/code/:code", sessionHandler.GetSessionByCode)

			// Session ID-based routes
			sessionByID := sessions.Group("/:id")
			{
				sessionByID.POST("/leave", sessionHandler.LeaveSession)
				sessionByID.POST("/start", sessionHandler.StartSession)
				sessionByID.POST("/end", sessionHandler.EndSession)
				sessionByID.GET("/participants", sessionHandler.GetSessionParticipants)
				sessionByID.PATCH("/media", sessionHandler.UpdateMediaStatus)
				sessionByID.GET("/events", sseHandler.Stream)
			}
		}
	}

	// WebSocket signaling endpoint (protected)
	router.GET("/ws", middleware.AuthMiddleware(&cfg.JWT), wsHandler.HandleWebSocket)

	// Start server
	log.Printf("Server starting on port %s", cfg.Server.Port)
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)
	log.Printf("API: http://localhost:%s/api", cfg.Server.Port)

	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
