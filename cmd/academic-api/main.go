package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/vina-edu/academic-api/api/swagger"
	"github.com/vina-edu/academic-api/internal/handler"
	"github.com/vina-edu/academic-api/internal/middleware"
	"github.com/vina-edu/academic-api/internal/models"
	"github.com/vina-edu/academic-api/internal/repository"
	"github.com/vina-edu/academic-api/internal/service"
	"github.com/vina-edu/academic-api/pkg/cache"
	"github.com/vina-edu/academic-api/pkg/config"
	"github.com/vina-edu/academic-api/pkg/database"
	"github.com/vina-edu/academic-api/pkg/export"
	"github.com/vina-edu/academic-api/pkg/jobs"
	"github.com/vina-edu/academic-api/pkg/logger"
	corsmiddleware "github.com/vina-edu/academic-api/pkg/middleware/cors"
	reqidmiddleware "github.com/vina-edu/academic-api/pkg/middleware/requestid"
	"github.com/vina-edu/academic-api/pkg/notify"
)

// @title Academic Record Workflow API
// @version 1.0.0
// @description Grade computation, submission pipeline, audit trail and disciplinary case workflows.
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
	defer db.Close()

	var summaryCache service.SummaryCache
	if cfg.GradeCache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, summary cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			summaryCache = service.NewRedisSummaryCache(redisClient, cfg.GradeCache.TTL, logr)
		}
	}

	metricsSvc := service.NewMetricsService()
	notifyMetrics := notify.NewMetrics(metricsSvc.Registry())
	notifier := notify.NewLogNotifier(logr, notifyMetrics)

	queue := jobs.NewQueue("notifications", func(ctx context.Context, job jobs.Job) error {
		msg, ok := job.Payload.(notify.Message)
		if !ok {
			logr.Sugar().Errorw("unexpected notification payload", "job_id", job.ID)
			return nil
		}
		return notifier.Notify(ctx, msg)
	}, jobs.QueueConfig{
		Workers:     cfg.Notifications.Workers,
		BufferSize:  cfg.Notifications.BufferSize,
		MaxRetries:  cfg.Notifications.MaxRetries,
		RetryDelay:  cfg.Notifications.RetryDelay,
		OnExhausted: func(job jobs.Job, err error) { notifyMetrics.Failed.Inc() },
		Logger:      logr,
	})
	queue.Start(context.Background())
	defer queue.Stop()

	validate := validator.New()
	pool := jobs.NewPool(jobs.PoolConfig{
		Workers:     cfg.Submissions.Workers,
		ChunkSize:   cfg.Submissions.ChunkSize,
		ChunkPacing: cfg.Submissions.ChunkPacing,
	})
	exporter := export.NewPDFExporter()

	gradeRepo := repository.NewGradeComponentRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	syncRepo := repository.NewReportSyncRepository(db)
	caseRepo := repository.NewDisciplineRepository(db)
	rosterRepo := repository.NewRosterRepository(db)

	gradeSvc := service.NewGradeService(gradeRepo, auditRepo, rosterRepo, summaryCache, validate, logr)
	auditSvc := service.NewAuditService(auditRepo, gradeRepo, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, rosterRepo, gradeSvc, exporter, queue, pool, logr)
	syncSvc := service.NewSyncService(syncRepo, gradeRepo, submissionRepo, rosterRepo, gradeSvc, logr)
	caseSvc := service.NewDisciplineService(caseRepo, rosterRepo, queue, validate, logr)

	gradeHandler := handler.NewGradeHandler(gradeSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)
	submissionHandler := handler.NewSubmissionHandler(submissionSvc)
	syncHandler := handler.NewSyncHandler(syncSvc)
	caseHandler := handler.NewCaseHandler(caseSvc)

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
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	grades := api.Group("/grades")
	{
		grades.POST("", staff, gradeHandler.Record)
		grades.GET("/summary", gradeHandler.Summary)
		grades.GET("/report-card/:student_id", gradeHandler.ReportCard)
	}

	audits := api.Group("/audits")
	{
		audits.GET("/students/:student_id", staff, auditHandler.History)
		audits.GET("/pending", adminOnly, auditHandler.ListPending)
		audits.POST("/:id/review", adminOnly, auditHandler.Review)
		audits.GET("/consistency", adminOnly, auditHandler.VerifyConsistency)
	}

	submissions := api.Group("/submissions")
	{
		submissions.POST("/homeroom", adminOnly, submissionHandler.SubmitToHomeroom)
		submissions.POST("/parents", staff, submissionHandler.SubmitToParents)
		submissions.GET("", staff, submissionHandler.ListClass)
		submissions.GET("/students/:student_id", submissionHandler.GetStudent)
	}

	syncGroup := api.Group("/sync")
	{
		syncGroup.GET("/status", staff, syncHandler.Status)
		syncGroup.POST("/resync", staff, syncHandler.ForceResync)
	}

	cases := api.Group("/cases")
	{
		cases.POST("", staff, caseHandler.Create)
		cases.GET("", staff, caseHandler.List)
		cases.GET("/:id", staff, caseHandler.Get)
		cases.POST("/:id/advance", staff, caseHandler.Advance)
		cases.DELETE("/:id", staff, caseHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
