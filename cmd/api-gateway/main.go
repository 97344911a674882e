package main

import (
	"context"
	"errors"
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

	_ "github.com/noah-isme/attendx-api/api/swagger"
	"github.com/noah-isme/attendx-api/internal/handler"
	"github.com/noah-isme/attendx-api/internal/middleware"
	"github.com/noah-isme/attendx-api/internal/repository"
	"github.com/noah-isme/attendx-api/internal/routes"
	"github.com/noah-isme/attendx-api/internal/service"
	"github.com/noah-isme/attendx-api/pkg/cache"
	"github.com/noah-isme/attendx-api/pkg/config"
	"github.com/noah-isme/attendx-api/pkg/database"
	"github.com/noah-isme/attendx-api/pkg/jobs"
	"github.com/noah-isme/attendx-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/attendx-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/attendx-api/pkg/middleware/requestid"
	"github.com/noah-isme/attendx-api/pkg/qrcode"
	"github.com/noah-isme/attendx-api/pkg/storage"
)

// @title AttendX API
// @version 1.0.0
// @description Classroom attendance with live sessions, admission and a timed self-check-in portal.
// @BasePath /api/v1
// @schemes http https

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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, logr); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, attendance cache disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	liveRepo := repository.NewLiveSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	reportRepo := repository.NewReportRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Attendance.CacheTTL, logr, cacheRepo != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	classroomSvc := service.NewClassroomService(classroomRepo, qrcode.NewGenerator(cfg.AppURL, 256), cacheSvc, validate, logr)
	liveSvc := service.NewLiveSessionService(liveRepo, cacheSvc, metrics, logr, service.LiveSessionConfig{
		DefaultPortalDuration: cfg.Live.DefaultPortalDuration,
	})
	attendanceSvc := service.NewAttendanceService(attendanceRepo, cacheSvc, cfg.Attendance.CacheTTL, logr)
	timetableSvc := service.NewTimetableService(timetableRepo, validate, logr)

	service.NewPortalSweeper(liveRepo, metrics, cfg.Live.PortalSweepInterval, logr).Start(ctx)

	var reportHandler *handler.ReportHandler
	if cfg.Reports.Enabled {
		reportSvc, queue, err := buildReports(ctx, cfg, logr, reportRepo, classroomRepo, attendanceSvc, validate)
		if err != nil {
			return err
		}
		defer queue.Stop()
		reportHandler = handler.NewReportHandler(reportSvc, logr)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	routes.Register(r, routes.Dependencies{
		APIPrefix:   cfg.APIPrefix,
		Tokens:      authSvc,
		Audit:       userRepo,
		AuthLimiter: middleware.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst),
		Logger:      logr,
		Auth:        handler.NewAuthHandler(authSvc, cfg.JWT.CookieSecure),
		Classrooms:  handler.NewClassroomHandler(classroomSvc),
		Live:        handler.NewLiveSessionHandler(liveSvc),
		Attendance:  handler.NewAttendanceHandler(attendanceSvc),
		Timetables:  handler.NewTimetableHandler(timetableSvc),
		Reports:     reportHandler,
		Metrics:     handler.NewMetricsHandler(metrics, db),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("server forced shutdown", zap.Error(err))
	}
	return nil
}

func buildReports(
	ctx context.Context,
	cfg *config.Config,
	logr *zap.Logger,
	reportRepo *repository.ReportRepository,
	classroomRepo *repository.ClassroomRepository,
	attendanceSvc *service.AttendanceService,
	validate *validator.Validate,
) (*service.ReportService, *jobs.Queue, error) {
	files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return nil, nil, fmt.Errorf("init export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exporter := service.NewExportService(attendanceSvc, files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr, nil, nil)

	worker := service.NewReportWorker(reportRepo, exporter, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("attendance-exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	queue.Start(ctx)

	reportSvc := service.NewReportService(reportRepo, classroomRepo, queue, exporter, validate, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	})
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)
	return reportSvc, queue, nil
}
