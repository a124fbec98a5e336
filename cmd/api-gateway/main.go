package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/agape-api/api/swagger"
	"github.com/noah-isme/agape-api/internal/forms"
	"github.com/noah-isme/agape-api/internal/handler"
	"github.com/noah-isme/agape-api/internal/middleware"
	"github.com/noah-isme/agape-api/internal/repository"
	"github.com/noah-isme/agape-api/internal/service"
	"github.com/noah-isme/agape-api/pkg/cache"
	"github.com/noah-isme/agape-api/pkg/config"
	"github.com/noah-isme/agape-api/pkg/database"
	"github.com/noah-isme/agape-api/pkg/logger"
	"github.com/noah-isme/agape-api/pkg/storage"
)

// @title Ágape API
// @version 1.0.0
// @description Student intake, project classes, enrollments and annual reporting for Ágape Missões Urbanas.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const cacheBreakerCoolDown = 30 * time.Second

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
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelBoot()
	if err := database.EnsureSchema(bootCtx, db); err != nil {
		logr.Fatal("failed to prepare schema", zap.Error(err))
	}

	schema, err := forms.Load(cfg.Forms.SchemaPath)
	if err != nil {
		logr.Fatal("failed to load intake form", zap.Error(err), zap.String("path", cfg.Forms.SchemaPath))
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, cache.NewCircuitBreaker("redis", cacheBreakerCoolDown, logr), logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && redisClient != nil)

	fileStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare report storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	reportRepo := repository.NewReportRepository(db)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, schema, cacheSvc, nil, logr)
	projectSvc := service.NewProjectService(projectRepo, classRepo, cacheSvc, nil, logr)
	classSvc := service.NewClassService(classRepo, projectRepo, cacheSvc, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, classRepo, metricsSvc, cacheSvc, nil, logr)
	dashboardSvc := service.NewDashboardService(dashboardRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	reportSvc := service.NewReportService(reportRepo, classRepo, studentRepo, fileStore, signer, metricsSvc, logr, service.ReportServiceConfig{
		DownloadBaseURL: cfg.APIPrefix + "/reports/files",
		Retention:       cfg.Reports.Retention,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if created, err := userSvc.EnsureBootstrapAdmin(bootCtx, service.BootstrapAdmin{
		Name:     cfg.Bootstrap.AdminName,
		Email:    cfg.Bootstrap.AdminEmail,
		Password: cfg.Bootstrap.AdminPassword,
	}); err != nil {
		logr.Fatal("failed to bootstrap administrator", zap.Error(err))
	} else if created {
		logr.Info("bootstrap administrator created", zap.String("email", cfg.Bootstrap.AdminEmail))
	}

	sessions := middleware.NewSessionStore(cfg.Session)

	r := newRouter(cfg, logr, routerDeps{
		sessions:    sessions,
		tokens:      authSvc,
		metrics:     metricsSvc,
		auth:        handler.NewAuthHandler(authSvc, sessions, logr),
		users:       handler.NewUserHandler(userSvc),
		students:    handler.NewStudentHandler(studentSvc),
		projects:    handler.NewProjectHandler(projectSvc, classSvc),
		classes:     handler.NewClassHandler(classSvc, enrollmentSvc),
		enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		dashboard:   handler.NewDashboardHandler(dashboardSvc),
		reports:     handler.NewReportHandler(reportSvc),
		probes:      handler.NewMetricsHandler(metricsSvc, db),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
