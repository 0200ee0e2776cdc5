package router

import (
	"database/sql"

	"booknest_backend/internal/config"
	"booknest_backend/internal/handlers"
	"booknest_backend/internal/mailer"
	"booknest_backend/internal/repositories"
	"booknest_backend/internal/services"
	"booknest_backend/internal/storage"
	"booknest_backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Setup wires repositories, services and handlers onto the engine.
func Setup(engine *gin.Engine, db *sql.DB, cfg config.Config) {
	// Repositories
	userRepo := repositories.NewUserRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	accessRepo := repositories.NewAccessRepository(db)
	requestRepo := repositories.NewRequestRepository(db)
	circRepo := repositories.NewCirculationRepository(db)
	catalogRepo := repositories.NewCatalogRepository(db)
	contentRepo := repositories.NewContentRepository(db)
	logRepo := repositories.NewLogRepository(db)

	// Shared infrastructure
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	mail := mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	blobStore, err := storage.NewS3Store(storage.Config{
		Region:       cfg.S3Region,
		Bucket:       cfg.S3Bucket,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		Endpoint:     cfg.S3Endpoint,
		UsePathStyle: cfg.S3UsePathStyle,
		PublicURL:    cfg.S3PublicURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize blob storage")
	}

	// Services
	logService := services.NewLogService(logRepo)
	authzService := services.NewAuthzService(userRepo, tokens)
	authService := services.NewAuthService(userRepo, roleRepo, tokens, mail, logService, cfg.GoogleClientID, db)
	userService := services.NewUserService(userRepo, roleRepo, logService, db)
	roleService := services.NewRoleService(roleRepo, logService, db)
	bookService := services.NewBookService(bookRepo, accessRepo, requestRepo, userRepo, authzService, logService, db)
	accessService := services.NewAccessService(accessRepo, requestRepo, bookRepo, logService, db)
	issueService := services.NewIssueService(circRepo, bookRepo, userRepo, logService, db)
	catalogService := services.NewCatalogService(catalogRepo, logService, db)
	contentService := services.NewContentService(contentRepo, logService, db)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, userService)
	userHandler := handlers.NewUserHandler(userService)
	roleHandler := handlers.NewRoleHandler(roleService)
	bookHandler := handlers.NewBookHandler(bookService)
	accessHandler := handlers.NewAccessHandler(accessService)
	issueHandler := handlers.NewIssueHandler(issueService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	contentHandler := handlers.NewContentHandler(contentService, logService)
	uploadHandler := handlers.NewUploadHandler(blobStore)

	api := engine.Group("/api")
	registerPublicRoutes(api, authzService, authHandler, bookHandler, contentHandler)
	registerAuthenticatedRoutes(api, authzService, authHandler, accessHandler, issueHandler)
	registerManagementRoutes(api, authzService, bookHandler, accessHandler, issueHandler,
		catalogHandler, roleHandler, userHandler, contentHandler, uploadHandler)
}
