package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started", slog.String("worker_name", workerName))

	for {
		select {
		case <-w.stopChan:
			return

		case <-ctx.Done():
			return

		case msg, ok := <-w.jobsChan:
			if !ok {
				return
			}
			w.handle(ctx, workerName, msg)
		}
	}
}

// handle delivers one message and settles it on the broker
func (w *Worker) handle(ctx context.Context, workerName string, msg *Message) {
	logger := w.logger.With(
		slog.String("worker_name", workerName),
		slog.String("delivery_id", msg.Envelope.ID),
		slog.String("channel", msg.Envelope.Channel),
	)

	err := w.processDelivery(ctx, msg)

	if w.acker == nil {
		logger.Error("No RabbitMQ channel for ACK/NACK")
		return
	}

	if err == nil {
		if ackErr := w.acker.Ack(msg.DeliveryTag, false); ackErr != nil {
			logger.Error("Failed to ACK message", slog.String("error", ackErr.Error()))
			return
		}
		logger.Info("Delivery completed")
		return
	}

	requeue := w.shouldRequeue(err)
	logger.Error("Delivery failed",
		slog.String("error", err.Error()),
		slog.Bool("requeue", requeue),
	)

	if nackErr := w.acker.Nack(msg.DeliveryTag, false, requeue); nackErr != nil {
		logger.Error("Failed to NACK message", slog.String("error", nackErr.Error()))
	}
}

// shouldRequeue determines if a delivery should go back on the queue based on the error type
func (w *Worker) shouldRequeue(err error) bool {
	if errors.Is(err, ErrRedeliveryExhausted) {
		return false
	}

	var retryableErr *RetryableError
	return errors.As(err, &retryableErr)
}
