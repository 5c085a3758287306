package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/JonGarbayo/o-network-api/pkg/onetwork/auth"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/comments"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/config"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/database"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/invitations"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/models"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/organizations"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/posts"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/reactions"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/storage"
	"github.com/JonGarbayo/o-network-api/pkg/onetwork/users"
)

// @title O'Network API
// @version 1.0
// @description A social network backend where organizations own users, users author posts, and posts collect comments and reactions.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must not be empty")
	}
	auth.SetSecret(cfg.JWTSecret)

	if err := database.Connect(cfg.DBPath); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db := database.GetDB()

	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	if err := models.SeedReactionTypes(db); err != nil {
		log.Fatalf("Failed to seed reaction types: %v", err)
	}

	st, err := storage.New(cfg.StoragePath, cfg.BaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize file storage: %v", err)
	}

	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	orgHandler := organizations.NewHandler(db, st)
	userHandler := users.NewHandler(db, st)
	authHandler := auth.NewHandler(db, st)
	postHandler := posts.NewHandler(db, st)
	commentHandler := comments.NewHandler(db)
	reactionHandler := reactions.NewHandler(db)
	invitationHandler := invitations.NewHandler(db)

	api := r.Group("/api")
	{
		// Public routes: signup happens before any session exists, so
		// organization creation, name validation, user registration and
		// login all live outside the auth middleware.
		publicOrgs := api.Group("/organizations")
		orgHandler.RegisterPublicRoutes(publicOrgs)

		publicUsers := api.Group("/users")
		userHandler.RegisterPublicRoutes(publicUsers)
		authHandler.RegisterRoutes(publicUsers)

		// Everything else requires a valid token and an enabled user.
		authed := api.Group("", auth.AuthMiddleware(), auth.ActorMiddleware(db))

		orgsGroup := authed.Group("/organizations")
		orgHandler.RegisterRoutes(orgsGroup)
		userHandler.RegisterOrganizationRoutes(orgsGroup)
		postHandler.RegisterOrganizationRoutes(orgsGroup)
		commentHandler.RegisterOrganizationRoutes(orgsGroup)
		reactionHandler.RegisterOrganizationRoutes(orgsGroup)

		usersGroup := authed.Group("/users")
		userHandler.RegisterRoutes(usersGroup)
		postHandler.RegisterUserRoutes(usersGroup)

		postsGroup := authed.Group("/posts")
		postHandler.RegisterRoutes(postsGroup)
		commentHandler.RegisterPostRoutes(postsGroup)

		commentsGroup := authed.Group("/comments")
		commentHandler.RegisterRoutes(commentsGroup)

		invitationsGroup := authed.Group("/invitations")
		invitationHandler.RegisterRoutes(invitationsGroup)
	}

	log.Printf("Starting O'Network server on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
