package main

import (
	"log"

	"mathclub/config"
	"mathclub/handlers"
	"mathclub/middleware"
	"mathclub/models"
	"mathclub/routes"
	"mathclub/services"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.User{},
		&models.Puzzle{},
		&models.Submission{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis (one-shot email tokens)
	redisClient := config.InitRedis(cfg)

	// Initialize services
	mailer, err := services.NewSMTPMailer(cfg)
	if err != nil {
		log.Printf("Mailer: %v; falling back to log-only delivery", err)
		mailer = services.NewLogMailer()
	}
	tokenStore := services.NewTokenStore(redisClient)
	authService := services.NewAuthService(db, tokenStore, mailer, cfg)
	puzzleService := services.NewPuzzleService(db)
	submissionService := services.NewSubmissionService(db)
	userService := services.NewUserService(db)

	// Initialize WebSocket hub
	hub := services.NewHub(puzzleService, submissionService, userService)
	go hub.Run()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	puzzleHandler := handlers.NewPuzzleHandler(puzzleService, hub)
	submissionHandler := handlers.NewSubmissionHandler(submissionService, hub)
	userHandler := handlers.NewUserHandler(userService, hub)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, authHandler, puzzleHandler, submissionHandler, userHandler, hub, db, cfg.JWTSecret)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
