package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	invoicingapp "github.com/portal/backend/internal/application/invoicing"
	"github.com/portal/backend/internal/infrastructure/auth"
	"github.com/portal/backend/internal/infrastructure/config"
	"github.com/portal/backend/internal/infrastructure/erp"
	"github.com/portal/backend/internal/infrastructure/logger"
	"github.com/portal/backend/internal/infrastructure/migration"
	"github.com/portal/backend/internal/infrastructure/persistence"
	"github.com/portal/backend/internal/infrastructure/queue"
	"github.com/portal/backend/internal/infrastructure/scheduler"
	"github.com/portal/backend/internal/infrastructure/storage"
	"github.com/portal/backend/internal/infrastructure/telemetry"
	"github.com/portal/backend/internal/interfaces/http/handler"
	"github.com/portal/backend/internal/interfaces/http/middleware"
	"github.com/portal/backend/internal/interfaces/http/router"

	_ "github.com/portal/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Supplier Portal API
//	@version		1.0
//	@description	Supplier invoice intake, reconciliation against goods receptions, and ERP vendor bill sync

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	bootLog := logger.ForEnvironment(cfg.App.Env)
	ctx := context.Background()

	// OTLP log export joins the console core once the provider is up
	telemetry.Version = version
	otelCfg := telemetry.ConfigFrom(cfg.Telemetry)
	logsCfg := otelCfg
	logsCfg.Enabled = otelCfg.Enabled && cfg.Telemetry.LogsEnabled
	logsProvider, err := telemetry.NewLoggerProvider(ctx, logsCfg, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	var extraCores []zapcore.Core
	if logsProvider.IsEnabled() {
		extraCores = append(extraCores, logsProvider.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	}
	log := logger.New(cfg.Log, extraCores...)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting supplier portal",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, otelCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, otelCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	meter := meterProvider.Meter("github.com/portal/backend")
	pipeline, err := telemetry.NewPipelineMetrics(meter)
	if err != nil {
		log.Fatal("Failed to register pipeline metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), 200*time.Millisecond)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	if err := telemetry.RegisterOtelGorm(db.DB, dbTracing, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	if err := migrateUp(db, log); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}
	log.Info("Database connected successfully")

	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	receptionRepo := persistence.NewGormReceptionRepository(db.DB)
	supplierRepo := persistence.NewGormSupplierRepository(db.DB)
	purchaseOrderRepo := persistence.NewGormPurchaseOrderRepository(db.DB)

	// Document storage
	store, err := newDocumentStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize document storage", zap.Error(err))
	}

	// Queue
	redisClient, err := queue.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		_ = redisClient.Close()
	}()
	workQueue := queue.NewRedisQueue(redisClient, cfg.Queue, log)

	// ERP
	erpClient, err := erp.NewClient(erp.FromAppConfig(cfg.ERP),
		erp.WithLogger(log),
		erp.WithDurationRecorder(pipeline),
	)
	if err != nil {
		log.Fatal("Failed to configure ERP client", zap.Error(err))
	}
	vendorBills := erp.NewVendorBillGateway(erpClient, cfg.Worker.ERPScriptID, cfg.Worker.ERPDeployID)

	// Application services
	intakeService := invoicingapp.NewIntakeService(
		invoiceRepo, receptionRepo, supplierRepo, store, workQueue, pipeline,
		invoicingapp.IntakeConfig{CrossValidate: cfg.Intake.CrossValidate, MaxFileSize: cfg.Intake.MaxFileSize},
		log.Named("intake"),
	)
	invoiceService := invoicingapp.NewInvoiceService(invoiceRepo, store, workQueue, log.Named("invoices"))
	receptionService := invoicingapp.NewReceptionService(receptionRepo, purchaseOrderRepo, log.Named("receptions"))
	poSyncService := invoicingapp.NewPurchaseOrderSyncService(erp.NewPurchaseOrderSource(erpClient), purchaseOrderRepo, log.Named("po_sync"))
	workerService := invoicingapp.NewWorkerService(
		invoiceRepo, receptionRepo, supplierRepo, store, vendorBills, pipeline,
		invoicingapp.WorkerConfig{
			SecretKey:           cfg.Worker.SecretKey,
			RedeliverOnERPError: cfg.Worker.RedeliverOnERPError,
			PresignTTL:          cfg.Worker.PresignTTL,
		},
		log,
	)
	sweepService := invoicingapp.NewSweepService(invoiceRepo, workQueue, pipeline,
		invoicingapp.SweepConfig{StuckAfter: cfg.Sweep.StuckAfter, Limit: cfg.Sweep.Limit},
		log,
	)

	// Background work
	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	consumerDone := make(chan struct{})
	if cfg.Queue.ConsumerEnabled {
		consumer := queue.NewConsumer(workQueue, workerService.HandleBatch, cfg.Queue.BatchSize, log)
		go func() {
			defer close(consumerDone)
			consumer.Run(bgCtx)
		}()
	} else {
		close(consumerDone)
		log.Info("Queue consumer disabled; batches arrive through the worker endpoint")
	}

	var sweepTrigger *scheduler.IntervalTrigger
	if cfg.Sweep.Enabled {
		sweepTrigger, err = scheduler.NewIntervalTrigger(
			scheduler.IntervalTriggerConfig{Name: "stuck_invoice_sweep", Interval: cfg.Sweep.Interval, RunOnStart: true},
			func(ctx context.Context) error {
				_, err := sweepService.Sweep(ctx, false)
				return err
			},
			log,
		)
		if err != nil {
			log.Fatal("Failed to configure sweep", zap.Error(err))
		}
		if err := sweepTrigger.Start(bgCtx); err != nil {
			log.Fatal("Failed to start sweep", zap.Error(err))
		}
	}

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.Enabled = tracerProvider.IsEnabled()
	if cfg.Telemetry.ServiceName != "" {
		tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.TracingWithConfig(tracingCfg),
		middleware.SpanErrorMarker(),
		middleware.SecureWithConfig(middleware.DefaultSecurityConfig()),
		middleware.CORSWithConfig(corsCfg),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.HTTPMetrics(meter),
	)

	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Close()
		engine.Use(middleware.RateLimit(rateLimiter))
	}

	jwtCfg := middleware.DefaultJWTConfig(auth.NewVerifier(cfg.JWT))
	jwtCfg.Logger = log
	authChain := []gin.HandlerFunc{
		middleware.JWTAuthMiddlewareWithConfig(jwtCfg),
		middleware.TracingAttributeInjector(),
	}

	systemHandler := handler.NewSystemHandler(version, map[string]handler.Pinger{
		"database": handler.PingFunc(db.Ping),
		"queue": handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}),
	})
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	router.RegisterPortal(r, router.Handlers{
		Invoices:   handler.NewInvoiceHandler(intakeService, invoiceService, cfg.Intake.MaxFileSize),
		Receptions: handler.NewReceptionHandler(receptionService),
		Sync:       handler.NewSyncHandler(poSyncService),
		Worker:     handler.NewWorkerHandler(workerService),
		System:     systemHandler,
	}, router.Guards{
		Auth:    authChain,
		SyncKey: []gin.HandlerFunc{middleware.SharedKey(middleware.SyncKeyHeader, cfg.Sync.APIKey)},
	})
	r.Setup()
	router.RegisterProbes(engine, systemHandler)

	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{Enabled: cfg.HTTP.SwaggerEnabled}),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if sweepTrigger != nil {
		if err := sweepTrigger.Stop(shutdownCtx); err != nil {
			log.Warn("Sweep did not stop cleanly", zap.Error(err))
		}
	}
	stopBackground()
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		log.Warn("Queue consumer did not stop before the shutdown deadline")
	}

	if err := profiler.Stop(); err != nil {
		log.Warn("Profiler stop failed", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracer provider shutdown failed", zap.Error(err))
	}
	if err := logsProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Log provider shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// migrateUp applies embedded migrations at startup
func migrateUp(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		return err
	}
	return m.Up()
}

// newDocumentStore connects to the configured bucket. Outside production an
// empty bucket name falls back to process memory.
func newDocumentStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (invoicingapp.DocumentStore, error) {
	if cfg.Storage.Bucket == "" && !cfg.IsProduction() {
		log.Warn("No storage bucket configured; documents are kept in memory")
		return storage.NewMemoryDocumentStore(), nil
	}
	s3Store, err := storage.NewS3DocumentStore(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := s3Store.EnsureBucket(ctx); err != nil {
		log.Warn("Bucket check failed", zap.String("bucket", s3Store.Bucket()), zap.Error(err))
	}
	return s3Store, nil
}
