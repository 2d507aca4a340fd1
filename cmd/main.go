package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/schoolstack/learnnow-backend/internal/clients/redis"
	"github.com/schoolstack/learnnow-backend/internal/db"
	"github.com/schoolstack/learnnow-backend/internal/http/handlers"
	"github.com/schoolstack/learnnow-backend/internal/http/middleware"
	"github.com/schoolstack/learnnow-backend/internal/platform/envutil"
	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
	"github.com/schoolstack/learnnow-backend/internal/repos"
	"github.com/schoolstack/learnnow-backend/internal/server"
	"github.com/schoolstack/learnnow-backend/internal/services"
	"github.com/schoolstack/learnnow-backend/internal/types"
)

func main() {
	_ = godotenv.Load()

	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	jwtSecret := envutil.String("JWT_SECRET_KEY", "")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET_KEY is required")
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	gradeRepo := repos.NewTaxonomyRepo[types.Grade](thePG, log)
	subjectRepo := repos.NewTaxonomyRepo[types.Subject](thePG, log)
	tagRepo := repos.NewTaxonomyRepo[types.Tag](thePG, log)
	resourceRepo := repos.NewResourceRepo(thePG, log)
	moduleRepo := repos.NewModuleRepo(thePG, log)
	userLearningRepo := repos.NewUserLearningRepo(thePG, log)

	// Services
	log.Info("Setting up services...")
	taxonomyService := services.NewTaxonomyService(thePG, log, gradeRepo, subjectRepo, tagRepo, resourceRepo, moduleRepo)
	resourceService := services.NewResourceService(thePG, log, resourceRepo, moduleRepo, userLearningRepo, gradeRepo, subjectRepo, tagRepo)
	moduleService := services.NewModuleService(thePG, log, moduleRepo, resourceRepo, userLearningRepo, gradeRepo, subjectRepo, tagRepo)
	userLearningService := services.NewUserLearningService(thePG, log, userLearningRepo, resourceRepo, moduleRepo, resourceService, moduleService)

	// The bucket and image providers are optional: the catalog API stays up
	// without them, the editor endpoints just disappear.
	var fileHandler *handlers.FileHandler
	bucketService, err := services.NewBucketService(log)
	if err != nil {
		log.Warn("Bucket service unavailable, file endpoints disabled", "error", err)
	} else {
		fileHandler = handlers.NewFileHandler(log, bucketService)
	}

	var imageHandler *handlers.ImageHandler
	imageCache, err := redis.NewClient()
	if err != nil {
		log.Warn("Redis unavailable, image search runs uncached", "error", err)
		imageCache = nil
	}
	imageSearchService, err := services.NewImageSearchService(log, imageCache)
	if err != nil {
		log.Warn("Image search unavailable, image endpoints disabled", "error", err)
	} else {
		imageHandler = handlers.NewImageHandler(log, imageSearchService)
	}

	// HTTP
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecret)
	router := server.NewRouter(server.RouterConfig{
		Log:                 log,
		AuthMiddleware:      authMiddleware,
		TaxonomyHandler:     handlers.NewTaxonomyHandler(log, taxonomyService),
		ResourceHandler:     handlers.NewResourceHandler(log, resourceService, userLearningService),
		ModuleHandler:       handlers.NewModuleHandler(log, moduleService, userLearningService),
		UserLearningHandler: handlers.NewUserLearningHandler(log, userLearningService),
		FileHandler:         fileHandler,
		ImageHandler:        imageHandler,
	})

	port := envutil.String("PORT", "8080")
	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
