package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/cuongbtq/interpreter-booking/internal/api/handler"
	"github.com/cuongbtq/interpreter-booking/internal/api/router"
	"github.com/cuongbtq/interpreter-booking/internal/clock"
	"github.com/cuongbtq/interpreter-booking/internal/config"
	"github.com/cuongbtq/interpreter-booking/internal/intake"
	"github.com/cuongbtq/interpreter-booking/internal/lifecycle"
	"github.com/cuongbtq/interpreter-booking/internal/matcher"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
	"github.com/cuongbtq/interpreter-booking/internal/outbox"
	"github.com/cuongbtq/interpreter-booking/internal/storage"
	"github.com/cuongbtq/interpreter-booking/shared/logger"
	"github.com/cuongbtq/interpreter-booking/shared/postgresql"
	"github.com/cuongbtq/interpreter-booking/shared/rabbitmq"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := initPostgreSQL(&cfg.Database, cfg.App.Name, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	store := storage.NewStorage(dbClient, appLogger.Logger)
	if cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	deps, err := initDependencies(cfg, appLogger.Logger, store, rabbitClient)
	if err != nil {
		return err
	}
	deps.Health = dbClient

	r := initRouter(cfg.App.Environment, deps)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info("Starting HTTP server", slog.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Server stopped with error", slog.Any("error", err))
		return err
	}

	appLogger.Info("Server shutdown complete", slog.String("db_stats", dbClient.Stats()))
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, appName string, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		ConnectTimeout:  cfg.ConnectTimeout,
		ApplicationName: appName,
	}, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		DeadLetterQueue:    cfg.Queue.DeadLetter,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}, logger)
}

// initDependencies builds the booking core on top of storage and the delivery outbox
func initDependencies(cfg *config.Config, logger *slog.Logger, store *storage.Storage, rabbitClient *rabbitmq.Client) (*handler.Dependencies, error) {
	loc, err := cfg.Booking.Location()
	if err != nil {
		return nil, err
	}

	calendar := clock.New(clock.Config{
		Location:      loc,
		NightStart:    cfg.Booking.NightStart,
		NightEnd:      cfg.Booking.NightEnd,
		BusinessStart: cfg.Booking.BusinessStart,
	})

	eligibility := matcher.NewService(store, logger)
	publisher := outbox.NewPublisher(rabbitClient, logger)

	dispatcher := notify.NewDispatcher(notify.Config{
		Title:   cfg.Booking.PushTitle,
		SMSFrom: cfg.Booking.SMSFrom,
	}, notify.Dependencies{
		Mailer: publisher,
		SMS:    publisher,
		Push:   publisher,
		Clock:  calendar,
		Finder: eligibility,
		Logger: logger,
	})

	bookings := lifecycle.NewService(lifecycle.Dependencies{
		Repo:      store,
		Validator: intake.NewValidator(calendar, cfg.Booking.ImmediateLead),
		Notifier:  dispatcher,
		Clock:     calendar,
		Logger:    logger,
	})

	return &handler.Dependencies{
		Logger:      logger,
		Bookings:    bookings,
		Eligibility: eligibility,
		Store:       store,
	}, nil
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, deps *handler.Dependencies) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps)
}
