package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/config"
	"github.com/cuongbtq/interpreter-booking/internal/transport"
	"github.com/cuongbtq/interpreter-booking/internal/worker"
	"github.com/cuongbtq/interpreter-booking/shared/logger"
	"github.com/cuongbtq/interpreter-booking/shared/rabbitmq"
	"github.com/google/uuid"
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

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorker(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	appLogger.Info("RabbitMQ connection established")

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:          appLogger.Logger,
		RabbitClient:    rabbitClient,
		Transports:      initTransports(&cfg.Notification, appLogger.Logger),
		WorkerID:        "worker-" + uuid.NewString(),
		QueueName:       cfg.RabbitMQ.Queue.Name,
		Concurrency:     cfg.Worker.Concurrency,
		PrefetchCount:   cfg.RabbitMQ.Consumer.PrefetchCount,
		DeliveryTimeout: cfg.Worker.DeliveryTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return workerInstance.Start(gctx)
	})

	appLogger.Info("Worker service started successfully")

	if err := g.Wait(); err != nil {
		appLogger.Error("Worker error", slog.Any("error", err))
		return err
	}

	// Give in-flight deliveries time to settle
	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-time.After(cfg.Worker.ShutdownTimeout):
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	appLogger.Info("Worker service shutdown complete")
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

// initTransports builds a vendor client for every enabled channel.
// Disabled channels stay nil so deliveries for them are dead-lettered.
func initTransports(cfg *config.NotificationConfig, logger *slog.Logger) worker.Transports {
	var t worker.Transports
	if cfg.Push.Enabled {
		t.Push = transport.NewPushClient(transport.PushConfig{
			BaseURL: cfg.Push.BaseURL,
			AppID:   cfg.Push.AppID,
			APIKey:  cfg.Push.APIKey,
			Timeout: cfg.Push.Timeout,
		}, logger)
	}
	if cfg.SMS.Enabled {
		t.SMS = transport.NewSMSClient(transport.SMSConfig{
			BaseURL: cfg.SMS.BaseURL,
			APIKey:  cfg.SMS.APIKey,
			Timeout: cfg.SMS.Timeout,
		}, logger)
	}
	if cfg.Mail.Enabled {
		t.Mailer = transport.NewMailer(transport.MailConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			FromName: cfg.Mail.FromName,
		}, logger)
	}

	logger.Info("Notification transports configured",
		slog.Bool("push", cfg.Push.Enabled),
		slog.Bool("sms", cfg.SMS.Enabled),
		slog.Bool("mail", cfg.Mail.Enabled),
	)
	return t
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
