package routes

import (
	"log"
	"net/http"

	"mathclub/handlers"
	"mathclub/middleware"
	"mathclub/models"
	"mathclub/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	puzzleHandler *handlers.PuzzleHandler,
	submissionHandler *handlers.SubmissionHandler,
	userHandler *handlers.UserHandler,
	hub *services.Hub,
	db *gorm.DB,
	jwtSecret string,
) {
	// API routes
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/verify-email", authHandler.VerifyEmail)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
			auth.POST("/reset-password", authHandler.ResetPassword)
			auth.POST("/resend-verification", authHandler.ResendVerification)
		}

		// Public puzzle routes
		puzzles := api.Group("/puzzles")
		{
			puzzles.GET("/active", puzzleHandler.GetActivePuzzle)
			puzzles.GET("/archived", puzzleHandler.GetArchivedPuzzles)
			puzzles.GET("/:id", puzzleHandler.GetPuzzleByID)
			puzzles.GET("/:id/leaderboard", submissionHandler.GetLeaderboard)
		}

		// Routes for logged-in members
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret))
		{
			protected.GET("/auth/profile", authHandler.GetProfile)
			protected.POST("/puzzles/:id/submissions", submissionHandler.SubmitAnswer)
			protected.GET("/puzzles/:id/submissions/mine", submissionHandler.GetMySubmission)
			protected.GET("/submissions/mine", submissionHandler.GetMySubmissions)
		}

		// Puzzle management: admin or superadmin
		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtSecret))
		{
			puzzleAdmin := admin.Group("/")
			puzzleAdmin.Use(middleware.RequireRole(db, models.RoleAdmin, models.RoleSuperAdmin))
			{
				puzzleAdmin.GET("/puzzles", puzzleHandler.GetPuzzles)
				puzzleAdmin.POST("/puzzles", puzzleHandler.CreatePuzzle)
				puzzleAdmin.PUT("/puzzles/:id", puzzleHandler.UpdatePuzzle)
				puzzleAdmin.DELETE("/puzzles/:id", puzzleHandler.DeletePuzzle)
				puzzleAdmin.POST("/puzzles/:id/activate", puzzleHandler.ActivatePuzzle)
				puzzleAdmin.POST("/puzzles/:id/archive", puzzleHandler.ArchivePuzzle)
				puzzleAdmin.GET("/puzzles/:id/submissions", submissionHandler.GetPuzzleSubmissions)
				puzzleAdmin.GET("/submissions", submissionHandler.GetAllSubmissions)
				puzzleAdmin.POST("/submissions/:id/grade", submissionHandler.GradeSubmission)
			}

			// User management: superadmin only
			userAdmin := admin.Group("/")
			userAdmin.Use(middleware.RequireRole(db, models.RoleSuperAdmin))
			{
				userAdmin.GET("/users", userHandler.GetUsers)
				userAdmin.PUT("/users/:id/role", userHandler.UpdateRole)
				userAdmin.PUT("/users/:id/freeze", userHandler.SetFreezeSubmissions)
				userAdmin.PUT("/users/:id/disable", userHandler.SetAccountDisabled)
			}
		}
	}

	// WebSocket endpoint for real-time snapshots (leaderboards, puzzle
	// status, user roster). Clients pass the topic in the path; admin-only
	// topics also need a token query parameter.
	router.GET("/ws/:topic", func(c *gin.Context) {
		topic := c.Param("topic")
		if puzzleID := c.Query("puzzle"); topic == "leaderboard" && puzzleID != "" {
			topic = topic + ":" + puzzleID
		}

		if !services.ValidTopic(topic) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown topic"})
			return
		}

		// Admin-only topics: the puzzles feed carries answers and backlog
		// entries, the users feed carries the roster.
		switch topic {
		case services.TopicPuzzles:
			if !authorizeSocket(c.Query("token"), jwtSecret, db, models.RoleAdmin, models.RoleSuperAdmin) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authorized for this topic"})
				return
			}
		case services.TopicUsers:
			if !authorizeSocket(c.Query("token"), jwtSecret, db, models.RoleSuperAdmin) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authorized for this topic"})
				return
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for topic %s: %v", topic, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
			return
		}

		hub.RegisterClient(conn, topic)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// authorizeSocket validates a JWT passed as a query parameter (browsers
// cannot set headers on websocket dials) and checks the caller's stored
// role.
func authorizeSocket(tokenStr, jwtSecret string, db *gorm.DB, roles ...string) bool {
	if tokenStr == "" {
		return false
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return false
	}

	var user models.User
	if err := db.First(&user, uint(sub)).Error; err != nil {
		return false
	}
	if user.AccountDisabled {
		return false
	}
	for _, role := range roles {
		if user.Role == role {
			return true
		}
	}
	return false
}
