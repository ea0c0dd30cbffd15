package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edupath-id/edupath-api/api/swagger"
	"github.com/edupath-id/edupath-api/internal/handler"
	"github.com/edupath-id/edupath-api/internal/middleware"
	"github.com/edupath-id/edupath-api/internal/models"
	"github.com/edupath-id/edupath-api/internal/repository"
	"github.com/edupath-id/edupath-api/internal/service"
	"github.com/edupath-id/edupath-api/pkg/cache"
	"github.com/edupath-id/edupath-api/pkg/config"
	"github.com/edupath-id/edupath-api/pkg/database"
	"github.com/edupath-id/edupath-api/pkg/logger"
	corsmiddleware "github.com/edupath-id/edupath-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edupath-id/edupath-api/pkg/middleware/requestid"
	"github.com/edupath-id/edupath-api/pkg/storage"
)

// @title EduPath API
// @version 1.0.0
// @description E-learning platform: accounts, sessions, course catalog and enrollments
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled && redisClient != nil)

	authSvc := service.NewAuthService(userRepo, enrollmentRepo, validate, logr, service.AuthConfig{
		Secret:        cfg.Session.Secret,
		TokenLifetime: cfg.Session.Lifetime,
		RefreshAfter:  cfg.Session.RefreshAfter,
		Issuer:        cfg.Session.Issuer,
	})
	courseSvc := service.NewCourseService(courseRepo, cacheSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(enrollmentRepo, cacheSvc, logr)

	var rosterSvc *service.RosterExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		rosterSvc = service.NewRosterExportService(enrollmentRepo, courseRepo, userRepo, store, signer, logr)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc, rosterSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, dashboardSvc)
	userHandler := handler.NewUserHandler(userSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	exportHandler := handler.NewExportHandler(rosterSvc)
	pageHandler := handler.NewPageHandler()
	metricsHandler := handler.NewMetricsHandler(metricsSvc, func() error {
		return db.Ping()
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	sessionRequired := middleware.Session(authSvc, cfg.Session.CookieName)
	sessionOptional := middleware.OptionalSession(authSvc, cfg.Session.CookieName)

	// Guarded page routes. Redirects are decided purely from claims and path.
	pages := r.Group("", sessionOptional, middleware.Guard())
	{
		pages.GET("/dashboard", pageHandler.Dashboard)
		pages.GET("/admin", pageHandler.Admin)
		pages.GET("/auth/login", pageHandler.LoginPage)
		pages.GET("/auth/register", pageHandler.RegisterPage)
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
			auth.POST("/reset-password", authHandler.ResetPassword)
			auth.GET("/user", sessionRequired, authHandler.Me)
			auth.POST("/change-password", sessionRequired, authHandler.ChangePassword)
		}

		courses := api.Group("/courses")
		{
			courses.GET("", courseHandler.List)
			courses.GET("/:id", courseHandler.Get)
			courses.POST("", sessionRequired, middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), courseHandler.Create)
			courses.POST("/:id/enroll", sessionRequired,
				middleware.Audit(userRepo, models.AuditActionEnroll, "enrollments"),
				enrollmentHandler.Enroll)
			courses.POST("/:id/roster/export", sessionRequired, middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), courseHandler.ExportRoster)
		}

		users := api.Group("/users", sessionRequired)
		{
			users.GET("", middleware.RequireRoles(models.RoleAdmin), userHandler.List)
			users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), userHandler.Get)
			users.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Update)
			users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Delete)
			users.GET("/:id/enrollments", enrollmentHandler.ListForUser)
		}

		api.GET("/dashboard/summary", sessionRequired, dashboardHandler.Summary)
		api.GET("/exports/download", exportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
