package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/uni-obs/curricula-api/api/swagger"
	"github.com/uni-obs/curricula-api/internal/handler"
	"github.com/uni-obs/curricula-api/internal/middleware"
	"github.com/uni-obs/curricula-api/internal/repository"
	"github.com/uni-obs/curricula-api/internal/service"
	"github.com/uni-obs/curricula-api/pkg/cache"
	"github.com/uni-obs/curricula-api/pkg/config"
	"github.com/uni-obs/curricula-api/pkg/database"
	"github.com/uni-obs/curricula-api/pkg/logger"
	corsmiddleware "github.com/uni-obs/curricula-api/pkg/middleware/cors"
	reqidmiddleware "github.com/uni-obs/curricula-api/pkg/middleware/requestid"
)

// @title Curricula API
// @version 1.0.0
// @description University curriculum and outcomes management API
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var cacheService *service.CacheService
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, dashboard caching disabled", zap.Error(err))
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheService = service.NewCacheService(repository.NewRedisCacheRepository(redisClient), metrics, cfg.Dashboard.CacheTTL, logr)
	}

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	programRepo := repository.NewProgramRepository(db)
	curriculumRepo := repository.NewCurriculumRepository(db)
	rosterRepo := repository.NewRosterRepository(db).WithMetrics(metrics)
	outcomeRepo := repository.NewOutcomeRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)

	validate := validator.New()
	policy := service.NewPolicy(programRepo, curriculumRepo, userRepo)

	authService := service.NewAuthService(userRepo, tokenRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userService := service.NewUserService(userRepo, validate, logr)
	facultyService := service.NewFacultyService(facultyRepo, validate, logr)
	programService := service.NewProgramService(programRepo, validate, logr)
	curriculumService := service.NewCurriculumService(curriculumRepo, rosterRepo, validate, logr)
	outcomeService := service.NewOutcomeService(outcomeRepo, policy, validate, logr)
	assessmentService := service.NewAssessmentService(assessmentRepo, policy, cacheService, validate, logr)
	dashboardService := service.NewDashboardService(service.DashboardServiceParams{
		Users:       userRepo,
		Roster:      rosterRepo,
		Programs:    programRepo,
		Faculties:   facultyRepo,
		Curricula:   curriculumRepo,
		Assessments: assessmentRepo,
		Outcomes:    outcomeRepo,
		Cache:       cacheService,
		CacheTTL:    cfg.Dashboard.CacheTTL,
		Logger:      logr,
	})

	var exportService *service.ExportService
	if cfg.Exports.Enabled {
		exportService = service.NewExportService(assessmentRepo, policy, nil, nil, logr)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics)
	r.GET("/health", metricsHandler.Health)

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router := handler.Router{
		Auth:        handler.NewAuthHandler(authService),
		Users:       handler.NewUserHandler(userService),
		Faculties:   handler.NewFacultyHandler(facultyService),
		Programs:    handler.NewProgramHandler(programService, outcomeService),
		Curricula:   handler.NewCurriculumHandler(curriculumService, outcomeService, assessmentService),
		Outcomes:    handler.NewOutcomeHandler(outcomeService),
		Assessments: handler.NewAssessmentHandler(assessmentService, exportService),
		Dashboard:   handler.NewDashboardHandler(dashboardService),
		Metrics:     metricsHandler,
		AuthService: authService,
		AuditRepo:   tokenRepo,
	}
	router.Register(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
