package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/secretaria-online/secretaria-api/api/swagger"
	"github.com/secretaria-online/secretaria-api/internal/handler"
	"github.com/secretaria-online/secretaria-api/internal/middleware"
	"github.com/secretaria-online/secretaria-api/internal/repository"
	"github.com/secretaria-online/secretaria-api/internal/service"
	"github.com/secretaria-online/secretaria-api/pkg/cache"
	"github.com/secretaria-online/secretaria-api/pkg/config"
	"github.com/secretaria-online/secretaria-api/pkg/database"
	"github.com/secretaria-online/secretaria-api/pkg/export"
	"github.com/secretaria-online/secretaria-api/pkg/logger"
	corsmiddleware "github.com/secretaria-online/secretaria-api/pkg/middleware/cors"
	reqidmiddleware "github.com/secretaria-online/secretaria-api/pkg/middleware/requestid"
	"github.com/secretaria-online/secretaria-api/pkg/storage"
)

// @title Secretaria Online API
// @version 1.0.0
// @description School administrative backend
// @BasePath /api
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
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, template cache disabled", "error", err)
		redisClient = nil
	}

	documentStore, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare document storage", "error", err)
	}
	contractStore, err := storage.NewLocalStorage(cfg.Contracts.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare contract storage", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	contractRepo := repository.NewContractRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)

	metricsSvc := service.NewMetricsService()

	var templateCache *repository.CacheRepository
	if redisClient != nil {
		templateCache = repository.NewCacheRepository(redisClient, logr)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "secretaria-online",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, userRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, userRepo, courseRepo, validate, logr)

	var templateSvc *service.TemplateService
	if templateCache != nil {
		templateSvc = service.NewTemplateService(templateRepo, templateCache, metricsSvc, cfg.Contracts.TemplateCacheTTL, logr)
	} else {
		templateSvc = service.NewTemplateService(templateRepo, nil, metricsSvc, cfg.Contracts.TemplateCacheTTL, logr)
	}

	enrollmentSvc := service.NewEnrollmentService(
		enrollmentRepo, studentRepo, courseRepo, documentRepo, userRepo,
		cfg.Enrollments.RequireDocumentApprovalForActivation, validate, logr)
	reenrollmentSvc := service.NewReenrollmentService(
		enrollmentRepo, studentRepo, authSvc, templateSvc, userRepo,
		cfg.Institution.Name, validate, logr)
	documentSvc := service.NewDocumentService(
		documentRepo, studentRepo, documentStore, userRepo,
		cfg.Documents.MaxFileSizeBytes, cfg.Documents.AllowedMIMEs, logr)
	contractSvc := service.NewContractService(
		contractRepo, enrollmentRepo, templateSvc, export.NewContractPDFExporter(),
		contractStore, userRepo, cfg.Institution.Name, logr)
	evaluationSvc := service.NewEvaluationService(evaluationRepo, classRepo, validate, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handlers := handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Users:         handler.NewUserHandler(userSvc),
		Students:      handler.NewStudentHandler(studentSvc),
		Courses:       handler.NewCourseHandler(courseSvc),
		Classes:       handler.NewClassHandler(classSvc),
		Enrollments:   handler.NewEnrollmentHandler(enrollmentSvc),
		Reenrollments: handler.NewReenrollmentHandler(reenrollmentSvc),
		Documents:     handler.NewDocumentHandler(documentSvc, studentSvc),
		Contracts:     handler.NewContractHandler(contractSvc, studentSvc),
		Templates:     handler.NewTemplateHandler(templateSvc),
		Evaluations:   handler.NewEvaluationHandler(evaluationSvc),
		Metrics:       handler.NewMetricsHandler(metricsSvc),
	}
	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, authSvc, userRepo)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
