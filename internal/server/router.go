package server

import (
	"github.com/gin-gonic/gin"

	"github.com/schoolstack/learnnow-backend/internal/http/handlers"
	"github.com/schoolstack/learnnow-backend/internal/http/middleware"
	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log                 *logger.Logger
	AuthMiddleware      *middleware.AuthMiddleware
	TaxonomyHandler     *handlers.TaxonomyHandler
	ResourceHandler     *handlers.ResourceHandler
	ModuleHandler       *handlers.ModuleHandler
	UserLearningHandler *handlers.UserLearningHandler
	FileHandler         *handlers.FileHandler
	ImageHandler        *handlers.ImageHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.AttachTraceContext())
	router.Use(middleware.RequestLogger(cfg.Log))

	router.GET("/healthcheck", handlers.Healthcheck)

	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	moderator := cfg.AuthMiddleware.RequireModerator()
	editor := cfg.AuthMiddleware.RequireTeacherOrAdmin()

	// Taxonomy: reads for everyone, writes for moderators.
	grade := api.Group("/grade")
	{
		grade.GET("", cfg.TaxonomyHandler.ListGrades)
		grade.POST("", moderator, cfg.TaxonomyHandler.CreateGrade)
		grade.PATCH("/:id", moderator, cfg.TaxonomyHandler.UpdateGrade)
		grade.DELETE("", moderator, cfg.TaxonomyHandler.DeleteGrades)
	}
	subject := api.Group("/subject")
	{
		subject.GET("", cfg.TaxonomyHandler.ListSubjects)
		subject.POST("", moderator, cfg.TaxonomyHandler.CreateSubject)
		subject.PATCH("/:id", moderator, cfg.TaxonomyHandler.UpdateSubject)
		subject.DELETE("", moderator, cfg.TaxonomyHandler.DeleteSubjects)
	}
	tag := api.Group("/tag")
	{
		tag.GET("", cfg.TaxonomyHandler.ListTags)
		tag.POST("", moderator, cfg.TaxonomyHandler.CreateTag)
		tag.PATCH("/:id", moderator, cfg.TaxonomyHandler.UpdateTag)
		tag.DELETE("", moderator, cfg.TaxonomyHandler.DeleteTags)
	}

	// Catalog content: reads and votes for everyone, writes for teachers
	// and admins.
	resource := api.Group("/resource")
	{
		resource.GET("", cfg.ResourceHandler.List)
		resource.GET("/validate-title", cfg.ResourceHandler.ValidateTitle)
		resource.GET("/:id", cfg.ResourceHandler.Get)
		resource.POST("", editor, cfg.ResourceHandler.Create)
		resource.PATCH("/:id", editor, cfg.ResourceHandler.Update)
		resource.DELETE("/:id", editor, cfg.ResourceHandler.Delete)
		resource.POST("/:id/upvote", cfg.ResourceHandler.Upvote)
		resource.POST("/:id/downvote", cfg.ResourceHandler.Downvote)
	}
	module := api.Group("/learningmodule")
	{
		module.GET("", cfg.ModuleHandler.List)
		module.GET("/validate-title", cfg.ModuleHandler.ValidateTitle)
		module.GET("/:id", cfg.ModuleHandler.Get)
		module.POST("", editor, cfg.ModuleHandler.Create)
		module.PATCH("/:id", editor, cfg.ModuleHandler.Update)
		module.PUT("/:id/resources", editor, cfg.ModuleHandler.SetMembership)
		module.DELETE("/:id", editor, cfg.ModuleHandler.Delete)
		module.POST("/:id/upvote", cfg.ModuleHandler.Upvote)
		module.POST("/:id/downvote", cfg.ModuleHandler.Downvote)
	}

	// Personal learning view.
	me := api.Group("/me")
	{
		me.GET("/resource", cfg.UserLearningHandler.ListResources)
		me.POST("/resource", cfg.UserLearningHandler.SaveResource)
		me.DELETE("/resource/:id", cfg.UserLearningHandler.UnsaveResource)
		me.GET("/learningmodule", cfg.UserLearningHandler.ListModules)
		me.POST("/learningmodule", cfg.UserLearningHandler.SaveModule)
		me.DELETE("/learningmodule/:id", cfg.UserLearningHandler.UnsaveModule)
	}

	// Providers backing the editor UI.
	if cfg.FileHandler != nil {
		file := api.Group("/file")
		{
			file.POST("/upload", editor, cfg.FileHandler.Upload)
			file.DELETE("", editor, cfg.FileHandler.Delete)
			file.GET("/download", cfg.FileHandler.Download)
		}
	}
	if cfg.ImageHandler != nil {
		image := api.Group("/image")
		{
			image.GET("/search", editor, cfg.ImageHandler.Search)
		}
	}

	return router
}
