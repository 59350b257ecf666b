package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/careerark/arc/config"
	"github.com/careerark/arc/internal/database"
	"github.com/careerark/arc/internal/middleware"
	"github.com/careerark/arc/internal/repositories/entry"
	"github.com/careerark/arc/internal/repositories/importtask"
	"github.com/careerark/arc/internal/repositories/profile"
	"github.com/careerark/arc/internal/repositories/reviewqueue"
	"github.com/careerark/arc/internal/startup"
	"github.com/careerark/arc/internal/tracing"
	"github.com/careerark/arc/internal/tracing/exporters"
	"github.com/careerark/arc/pkg/consolidation"
	"github.com/careerark/arc/pkg/events"
	arckafka "github.com/careerark/arc/pkg/kafka"
	"github.com/careerark/arc/pkg/matching"
	"github.com/careerark/arc/pkg/merging"
	"github.com/careerark/arc/pkg/models"
	"github.com/careerark/arc/pkg/routes/health"
	"github.com/careerark/arc/pkg/routes/imports"
	profileroutes "github.com/careerark/arc/pkg/routes/profile"
	"github.com/careerark/arc/pkg/routes/review"
	"github.com/careerark/arc/pkg/routes/section"
	"github.com/careerark/arc/pkg/scoring"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()

	tracerShutdown, err := setupTracing(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer tracerShutdown()

	// Database
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
		cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)
	sqlxDB, err := sqlx.Open(cfg.DatabaseDriver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	sqlxDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	sqlxDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	sqlxDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	db := database.NewDatabaseInstance(sqlxDB, logger)

	// Repositories
	profiles := profile.NewRepository(db, logger)
	entries := entry.NewRepository(db, logger)
	reviews := reviewqueue.NewRepository(db, logger)
	tasks := importtask.NewRepository(db, logger)

	// Kafka producer + event emitter
	producer := arckafka.NewProducer(arckafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
	emitter := events.NewEmitter(producer, logger)

	// Consolidation engine
	scorer := scoring.NewScorer()
	resolver := matching.NewResolver(logger, scorer, matchingConfig(cfg))
	merger := merging.NewFieldMerger(scorer, cfg.BulletDedupeThreshold)
	engine := consolidation.NewEngine(logger, db, profiles, entries, reviews, tasks, resolver, merger, emitter)

	// Dependency injection for route handlers
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return fmt.Errorf("failed to create DI container: %w", err)
	}
	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*profile.Repository](container, profiles); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*importtask.Repository](container, tasks); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*reviewqueue.Repository](container, reviews); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*consolidation.Engine](container, engine); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*events.Emitter](container, emitter); err != nil {
		return err
	}

	// Kafka consumer feeding the engine
	var consumer *arckafka.Consumer
	if cfg.KafkaConsumerEnabled {
		consumer = arckafka.NewConsumer(cfg, logger, extractionHandler(logger, engine))
	}

	// HTTP server
	e := newServer(cfg, logger)

	var kafkaHealth interface{ Health() bool }
	if consumer != nil {
		kafkaHealth = consumer
	}
	checker := health.NewChecker(sqlxDB, kafkaHealth, version)
	checker.RegisterRoutes(e)

	profilesGroup := e.Group("/api/v1/profiles")
	profileroutes.Register(profilesGroup)
	section.Register(profilesGroup)
	review.RegisterProfileRoutes(profilesGroup)
	imports.RegisterProfileRoutes(profilesGroup)
	review.Register(e.Group("/api/v1/reviews"))
	imports.Register(e.Group("/api/v1/imports"))

	// Startup order: database (with migrations), then the consumer and the
	// HTTP server on top of it.
	manager := startup.NewManager(logger, cfg.StartupMaxAttempts)
	manager.AddDependency(&dependency{
		name: "database",
		start: func(ctx context.Context) error {
			if err := sqlxDB.PingContext(ctx); err != nil {
				return err
			}
			return runMigrations(cfg, logger, sqlxDB)
		},
		stop: func(ctx context.Context) error {
			return sqlxDB.Close()
		},
	})
	manager.AddDependency(&dependency{
		name:      "http-server",
		dependsOn: []string{"database"},
		start: func(ctx context.Context) error {
			go func() {
				if err := e.StartServer(e.Server); err != nil && err != http.ErrServerClosed {
					logger.WithError(err).Error("HTTP server stopped unexpectedly")
				}
			}()
			checker.SetReady(true)
			return nil
		},
		stop: func(ctx context.Context) error {
			checker.SetReady(false)
			return e.Shutdown(ctx)
		},
	})
	if consumer != nil {
		manager.AddDependency(&dependency{
			name:      "kafka-consumer",
			dependsOn: []string{"database"},
			start:     consumer.Start,
			stop: func(ctx context.Context) error {
				if err := consumer.Stop(); err != nil {
					return err
				}
				return producer.Close()
			},
		})
	}

	if err := manager.Start(ctx); err != nil {
		return err
	}
	logger.WithFields(map[string]any{"port": cfg.Port, "version": version}).Info("Service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return manager.Stop(shutdownCtx)
}

func newLogger(cfg config.Config) (ectologger.Logger, error) {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	minLevel := levelRank(cfg.LogLevel)
	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		level := strings.ToLower(string(msg.Level))
		if levelRank(level) < minLevel {
			return
		}

		fields := make([]zap.Field, 0, len(msg.Fields)+1)
		for k, v := range msg.Fields {
			fields = append(fields, zap.Any(k, v))
		}
		if msg.Err != nil {
			fields = append(fields, zap.Error(msg.Err))
		}

		switch level {
		case "debug":
			zapLogger.Debug(msg.Message, fields...)
		case "warn":
			zapLogger.Warn(msg.Message, fields...)
		case "error":
			zapLogger.Error(msg.Message, fields...)
		default:
			zapLogger.Info(msg.Message, fields...)
		}
	})
	return logger, nil
}

func levelRank(level string) int {
	switch strings.ToLower(level) {
	case "debug":
		return 0
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 1
	}
}

func setupTracing(ctx context.Context, cfg config.Config, logger ectologger.Logger) (func(), error) {
	if !cfg.TracingEnabled {
		return func() {}, nil
	}

	var exporter sdktrace.SpanExporter
	if cfg.TracingOTLPEndpoint != "" {
		otlp, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.TracingOTLPEndpoint,
			Protocol: cfg.TracingOTLPProtocol,
			Insecure: true,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		exporter = otlp
	} else {
		exporter = &exporters.ConsoleExporter{Logger: logger}
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	tracing.SetTracer(provider.Tracer(cfg.AppName))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shut down tracer provider")
		}
	}, nil
}

func newServer(cfg config.Config, logger ectologger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.Addr = fmt.Sprintf(":%d", cfg.Port)
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(echomiddleware.Recover())

	return e
}

func runMigrations(cfg config.Config, logger ectologger.Logger, db *sqlx.DB) error {
	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	service := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
	})
	return service.Migrate(cfg.DatabaseName, driver)
}

func matchingConfig(cfg config.Config) matching.Config {
	return matching.Config{
		Bands: map[models.SectionType]matching.Band{
			models.SectionWorkExperience: {Low: cfg.WorkDistinctThreshold, High: cfg.WorkDuplicateThreshold},
			models.SectionEducation:      {Low: cfg.EducationDistinctThreshold, High: cfg.EducationDuplicateThreshold},
			models.SectionProject:        {Low: cfg.ProjectDistinctThreshold, High: cfg.ProjectDuplicateThreshold},
			models.SectionCertification:  {Low: cfg.CertDistinctThreshold, High: cfg.CertDuplicateThreshold},
			models.SectionSkill:          {Low: 1.0, High: 1.0},
		},
	}
}

// extractionHandler folds each extraction message into its profile.
// Permanent failures commit the message so the partition does not wedge;
// transient ones are retried by the at-least-once consumer.
func extractionHandler(logger ectologger.Logger, engine *consolidation.Engine) arckafka.MessageHandler {
	return func(ctx context.Context, msg *arckafka.IncomingMessage) error {
		batch := msg.Batch()
		if batch == nil {
			return nil
		}

		_, err := engine.Consolidate(ctx, batch)
		if err == nil {
			return nil
		}

		status := httperror.GetStatusCode(err)
		if status >= 400 && status < 500 && status != http.StatusConflict {
			logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"profile_id": batch.ProfileID,
				"upload_id":  batch.UploadID,
				"status":     status,
			}).Error("Dropping extraction message that can never succeed")
			return nil
		}
		return err
	}
}

// dependency adapts closures to the startup manager.
type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *dependency) GetName() string     { return d.name }
func (d *dependency) DependsOn() []string { return d.dependsOn }

func (d *dependency) Start(ctx context.Context) error {
	if d.start == nil {
		return nil
	}
	return d.start(ctx)
}

func (d *dependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}
