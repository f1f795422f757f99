package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	catalogapp "github.com/restohub/backend/internal/application/catalog"
	inventoryapp "github.com/restohub/backend/internal/application/inventory"
	orderapp "github.com/restohub/backend/internal/application/order"
	posapp "github.com/restohub/backend/internal/application/pos"
	registryapp "github.com/restohub/backend/internal/application/registry"
	"github.com/restohub/backend/internal/infrastructure/cache"
	"github.com/restohub/backend/internal/infrastructure/config"
	"github.com/restohub/backend/internal/infrastructure/event"
	"github.com/restohub/backend/internal/infrastructure/logger"
	"github.com/restohub/backend/internal/infrastructure/mail"
	"github.com/restohub/backend/internal/infrastructure/persistence"
	infrapos "github.com/restohub/backend/internal/infrastructure/pos"
	"github.com/restohub/backend/internal/infrastructure/providers"
	"github.com/restohub/backend/internal/infrastructure/rendering"
	"github.com/restohub/backend/internal/infrastructure/scheduler"
	"github.com/restohub/backend/internal/infrastructure/storage"
	"github.com/restohub/backend/internal/infrastructure/stream"
	"github.com/restohub/backend/internal/infrastructure/suppliers"
	"github.com/restohub/backend/internal/infrastructure/telemetry"
	infravault "github.com/restohub/backend/internal/infrastructure/vault"
	"github.com/restohub/backend/internal/interfaces/http/handler"
	"github.com/restohub/backend/internal/interfaces/http/middleware"
	"github.com/restohub/backend/internal/interfaces/http/router"
)

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting RestoHub integration service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Telemetry: traces, metrics, continuous profiling
	tracerProvider, err := telemetry.NewTracerProvider(rootCtx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(rootCtx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	loggerProvider, err := telemetry.NewLoggerProvider(rootCtx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	if loggerProvider.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: loggerProvider,
			MinLevel:       logger.ParseLevel(cfg.Log.Level),
		})
		log = telemetry.BridgeLogger(log, otelCore)
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServer,
		ApplicationName: cfg.App.Name,
		ProfileCPU:      true,
		ProfileInuseSpace: true,
		ProfileGoroutines: true,
	}, log)
	if err != nil {
		log.Warn("Failed to start profiler", zap.Error(err))
	} else {
		defer func() {
			if err := profiler.Stop(); err != nil {
				log.Error("Error stopping profiler", zap.Error(err))
			}
		}()
	}

	// Database
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		tracingPlugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}, log)
		if err := db.DB.Use(tracingPlugin); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}

		dbMetrics, err := telemetry.NewDBMetrics(meterProvider.Meter("restohub.db"), telemetry.DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err != nil {
			log.Warn("Failed to initialize database metrics", zap.Error(err))
		} else if err := db.DB.Use(telemetry.NewDBMetricsPlugin(dbMetrics, log)); err != nil {
			log.Warn("Failed to enable database metrics", zap.Error(err))
		}
	}

	// Repositories
	supplierConnRepo := persistence.NewGormSupplierConnectionRepository(db.DB)
	catalogEntryRepo := persistence.NewGormCatalogEntryRepository(db.DB)
	orderRecordRepo := persistence.NewGormOrderRecordRepository(db.DB)
	posConnRepo := persistence.NewGormPOSConnectionRepository(db.DB)
	posCursorRepo := persistence.NewGormPOSCursorRepository(db.DB)
	stockLevelRepo := persistence.NewGormStockLevelRepository(db.DB)
	ledgerEntryRepo := persistence.NewGormLedgerRepository(db.DB)
	ledger := persistence.NewGormLedger(db.DB)

	// Credential vault. Handles are opaque; raw credential material never
	// leaves this component unencrypted.
	credentialVault, err := infravault.NewFromConfig(cfg.Vault, db.DB, log)
	if err != nil {
		log.Fatal("Failed to initialize credential vault", zap.Error(err))
	}
	defer func() {
		if err := credentialVault.Close(); err != nil {
			log.Error("Error closing credential vault", zap.Error(err))
		}
	}()

	// Idempotency store: Redis when reachable, in-memory otherwise
	idempotencyFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	idempotencyStore, err := idempotencyFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Static supplier definitions
	definitions, err := suppliers.LoadCatalog(cfg.Suppliers.DefinitionsFile)
	if err != nil {
		log.Fatal("Failed to load supplier definitions",
			zap.String("file", cfg.Suppliers.DefinitionsFile),
			zap.Error(err))
	}
	log.Info("Supplier definitions loaded",
		zap.String("file", cfg.Suppliers.DefinitionsFile),
		zap.Int("count", len(definitions.All())))

	// Outbound mail for email-channel suppliers
	mailTransport, err := mail.NewFromConfig(rootCtx, cfg.Mail, log)
	if err != nil {
		log.Fatal("Failed to initialize mail transport", zap.Error(err))
	}

	// Provider adapters, one per integration kind
	httpClient := providers.NewClient(providers.ClientConfig{
		Timeout: cfg.Catalog.FetchTimeout,
	})
	scrapeAdapter, err := providers.NewWebScrapeAdapter(&providers.WebScrapeConfig{
		Timeout:   cfg.Catalog.FetchTimeout,
		NoSandbox: true,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize web scrape adapter", zap.Error(err))
	}
	defer func() {
		if err := scrapeAdapter.Close(); err != nil {
			log.Error("Error closing web scrape adapter", zap.Error(err))
		}
	}()

	adapterRegistry, err := providers.NewRegistry(
		providers.NewOAuth2Adapter(httpClient, log),
		providers.NewAPIKeyAdapter(httpClient, log),
		scrapeAdapter,
		providers.NewEmailAdapter(mailTransport, log),
		providers.NewManualAdapter(log),
	)
	if err != nil {
		log.Fatal("Failed to build provider adapter registry", zap.Error(err))
	}

	posAdapterRegistry, err := infrapos.NewRegistry(
		infrapos.NewCloudPOSAdapter(log),
	)
	if err != nil {
		log.Fatal("Failed to build POS adapter registry", zap.Error(err))
	}

	// PDF rendering for document-channel order sheets
	pdfRenderer, err := rendering.NewChromedpRenderer(&rendering.ChromedpConfig{
		NoSandbox: true,
		Logger:    log,
	})
	if err != nil {
		log.Fatal("Failed to initialize PDF renderer", zap.Error(err))
	}
	defer func() {
		if err := pdfRenderer.Close(); err != nil {
			log.Error("Error closing PDF renderer", zap.Error(err))
		}
	}()
	sheetRenderer, err := rendering.NewSheetRenderer(pdfRenderer, log)
	if err != nil {
		log.Fatal("Failed to initialize sheet renderer", zap.Error(err))
	}

	// Order sheet archive
	var documentArchive orderapp.DocumentArchive
	if cfg.Storage.Enabled {
		s3Archive, err := storage.NewS3DocumentArchive(&cfg.Storage)
		if err != nil {
			log.Fatal("Failed to initialize document archive", zap.Error(err))
		}
		if err := s3Archive.EnsureBucket(rootCtx); err != nil {
			log.Warn("Document archive bucket check failed", zap.Error(err))
		}
		documentArchive = s3Archive
		log.Info("Document archive enabled", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		documentArchive = storage.NewMemoryArchive()
		log.Warn("Object storage disabled, archiving order sheets in memory")
	}

	// Application services
	registryService := registryapp.NewSupplierRegistryService(
		definitions, supplierConnRepo, credentialVault, adapterRegistry, catalogEntryRepo, log)

	catalogService := catalogapp.NewCatalogService(
		registryService, registryService, catalogEntryRepo, catalogapp.Config{
			APITTL:       cfg.Catalog.APITTL,
			ScrapeTTL:    cfg.Catalog.ScrapeTTL,
			DocumentTTL:  cfg.Catalog.DocumentTTL,
			FetchTimeout: cfg.Catalog.FetchTimeout,
		}, log)

	orderConfig := orderapp.DefaultConfig()
	orderConfig.Retry.MaxAttempts = cfg.Orders.MaxAttempts
	orderConfig.Retry.BaseDelay = cfg.Orders.RetryBaseDelay
	orderConfig.Retry.MaxDelay = cfg.Orders.RetryMaxDelay
	orderService := orderapp.NewOrderService(
		orderRecordRepo, registryService, sheetRenderer, documentArchive, orderConfig, log)

	inventoryService := inventoryapp.NewInventoryService(
		stockLevelRepo, ledgerEntryRepo, ledger, log)

	posConnectionService := posapp.NewConnectionService(
		posConnRepo, posCursorRepo, posAdapterRegistry, credentialVault, log)
	posSyncService := posapp.NewSyncService(
		posConnRepo, posCursorRepo, posAdapterRegistry, credentialVault,
		ledger, idempotencyStore, posapp.SyncConfig{
			BatchLimit: cfg.Sync.BatchLimit,
			MaxBatches: cfg.Sync.MaxBatches,
		}, log)

	// Business metrics over the OTEL meter
	businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:          meterProvider.Meter("restohub.business"),
		Logger:         log,
		HealthProvider: telemetry.NewGormHealthMetricsProvider(db.DB),
	})
	if err != nil {
		log.Warn("Failed to initialize business metrics", zap.Error(err))
	}
	defer func() {
		if businessMetrics != nil {
			businessMetrics.Stop()
		}
	}()

	// Event bus and cross-context handlers
	eventBus := event.NewInMemoryEventBus(log)

	orderMetricsHandler := orderapp.NewOrderMetricsHandler(log)
	if businessMetrics != nil {
		orderMetricsHandler.WithRecorder(businessMetrics)
	}
	eventBus.Subscribe(orderMetricsHandler)

	lowStockHandler := inventoryapp.NewLowStockHandler(log)
	eventBus.Subscribe(lowStockHandler)

	if err := eventBus.Start(rootCtx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	orderService.SetEventPublisher(eventBus)
	ledger.SetEventPublisher(eventBus)

	// Background scheduler: POS sync cycles plus order and catalog upkeep
	var syncTrigger handler.SyncTrigger
	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(scheduler.Config{
			Workers:    cfg.Scheduler.MaxConcurrentJobs,
			JobTimeout: cfg.Scheduler.JobTimeout,
		}, map[scheduler.JobKind]scheduler.Executor{
			scheduler.JobKindPOSSync:       scheduler.NewPOSSyncExecutor(posSyncService, log),
			scheduler.JobKindOrderRequeue:  scheduler.NewOrderRequeueExecutor(orderService),
			scheduler.JobKindStatusPoll:    scheduler.NewStatusPollExecutor(orderService, cfg.Orders.StatusPollBatch),
			scheduler.JobKindCatalogWarmup: scheduler.NewCatalogWarmupExecutor(catalogService),
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize scheduler", zap.Error(err))
		}
		if err := sched.Start(rootCtx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			if err := sched.Stop(context.Background()); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()

		posTrigger := scheduler.NewPOSSyncTrigger(scheduler.SyncTriggerConfig{
			SyncInterval: cfg.Sync.Interval,
		}, sched, posSyncService, log)
		if err := posTrigger.Start(rootCtx); err != nil {
			log.Fatal("Failed to start POS sync trigger", zap.Error(err))
		}
		defer func() {
			if err := posTrigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping POS sync trigger", zap.Error(err))
			}
		}()
		syncTrigger = posTrigger

		maintenanceConfig := scheduler.DefaultMaintenanceConfig()
		maintenanceConfig.RequeueInterval = cfg.Orders.RequeueInterval
		maintenanceConfig.StatusPollInterval = cfg.Orders.StatusPollInterval
		if !cfg.Scheduler.CatalogWarmup {
			maintenanceConfig.WarmupInterval = 0
		}
		maintenanceTrigger := scheduler.NewMaintenanceTrigger(maintenanceConfig, sched, log)
		if err := maintenanceTrigger.Start(rootCtx); err != nil {
			log.Fatal("Failed to start maintenance trigger", zap.Error(err))
		}
		defer func() {
			if err := maintenanceTrigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping maintenance trigger", zap.Error(err))
			}
		}()

		log.Info("Scheduler started",
			zap.Int("workers", cfg.Scheduler.MaxConcurrentJobs),
			zap.Duration("sync_interval", cfg.Sync.Interval))
	}

	// Kafka consumer for push-mode POS events
	if cfg.Kafka.Enabled {
		consumer, err := stream.NewConsumer(&cfg.Kafka, posSyncService, log)
		if err != nil {
			log.Fatal("Failed to initialize POS event consumer", zap.Error(err))
		}
		go func() {
			if err := consumer.Run(rootCtx); err != nil && rootCtx.Err() == nil {
				log.Error("POS event consumer stopped", zap.Error(err))
			}
		}()
		defer func() {
			if err := consumer.Close(); err != nil {
				log.Error("Error closing POS event consumer", zap.Error(err))
			}
		}()
		log.Info("POS event consumer started",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
	}

	// HTTP surface
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.Metrics(meterProvider))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORS(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Probes live on the engine root, outside the versioned API
	handler.NewSystemHandler(db, version).RegisterRoutes(engine)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewSupplierHandler(registryService, catalogService)).
		Register(handler.NewOrderHandler(orderService)).
		Register(handler.NewPOSHandler(posConnectionService, posSyncService, syncTrigger)).
		Register(handler.NewInventoryHandler(inventoryService))
	r.Setup()

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}
	rootCancel()

	log.Info("Server exited gracefully")
}
