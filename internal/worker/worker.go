package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/interpreter-booking/shared/rabbitmq"
)

// Acknowledger settles deliveries by tag. *amqp.Channel satisfies it.
type Acknowledger interface {
	Ack(tag uint64, multiple bool) error
	Nack(tag uint64, multiple bool, requeue bool) error
}

// Config holds worker configuration
type Config struct {
	Logger          *slog.Logger
	RabbitClient    *rabbitmq.Client
	Transports      Transports
	WorkerID        string
	QueueName       string
	Concurrency     int
	PrefetchCount   int
	DeliveryTimeout time.Duration
}

// Worker consumes notification deliveries and hands them to the vendor transports
type Worker struct {
	logger            *slog.Logger
	rabbitClient      *rabbitmq.Client
	acker             Acknowledger
	transports        Transports
	workerID          string
	rabbitMQQueueName string
	concurrency       int
	prefetchCount     int
	deliveryTimeout   time.Duration
	jobsChan          chan *Message
	wg                sync.WaitGroup
	stopChan          chan struct{}
	stopOnce          sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	timeout := cfg.DeliveryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Worker{
		logger:            cfg.Logger,
		rabbitClient:      cfg.RabbitClient,
		transports:        cfg.Transports,
		workerID:          cfg.WorkerID,
		rabbitMQQueueName: cfg.QueueName,
		concurrency:       concurrency,
		prefetchCount:     cfg.PrefetchCount,
		deliveryTimeout:   timeout,
		jobsChan:          make(chan *Message, concurrency),
		stopChan:          make(chan struct{}),
	}
}

// Start subscribes to the queue and blocks until ctx is canceled
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("delivery_timeout", w.deliveryTimeout),
	)

	deliveries, err := w.setupConsumer(ctx)
	if err != nil {
		return fmt.Errorf("failed to setup consumer: %w", err)
	}
	w.acker = w.rabbitClient.GetChannel()

	w.spawnWorkerPool(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer close(w.jobsChan)
		w.startMessageDispatcher(ctx, deliveries)
	}()

	select {
	case <-ctx.Done():
		w.logger.Info("Worker context canceled, stopping...")
	case <-w.stopChan:
	}

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
