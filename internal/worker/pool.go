package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/docuvoice/backend/internal/event"
	"github.com/docuvoice/backend/internal/ledger"
	"github.com/docuvoice/backend/internal/workflow"
)

// spawnPool starts N processing goroutines sharing the task channel
func (w *Worker) spawnPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.poolLoop(ctx, i)
	}
}

// poolLoop drains the task channel until it is closed, so in-flight
// messages finish during shutdown.
func (w *Worker) poolLoop(ctx context.Context, poolNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, poolNum)
	w.logger.Info("Pool goroutine started",
		slog.String("worker_name", workerName),
	)

	for task := range w.tasksChan {
		w.processTask(ctx, workerName, task)
	}

	w.logger.Info("Pool goroutine stopped",
		slog.String("worker_name", workerName),
	)
}

func (w *Worker) processTask(ctx context.Context, workerName string, task *taskMessage) {
	handler, ok := w.handlers[task.Queue]
	if !ok {
		w.logger.Error("No handler for queue",
			slog.String("queue", task.Queue),
		)
		w.finish(workerName, task, event.ErrInvalidEvent)
		return
	}

	taskCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	err := handler(taskCtx, task.Body)
	cancel()

	w.finish(workerName, task, err)
}

// finish acks or nacks the delivery based on the handler outcome
func (w *Worker) finish(workerName string, task *taskMessage, err error) {
	channel := w.rabbitClient.GetChannel()
	if channel == nil {
		w.logger.Error("Failed to get channel for ACK/NACK",
			slog.String("worker_name", workerName),
			slog.String("queue", task.Queue),
		)
		return
	}

	if err != nil {
		w.logger.Error("Task processing failed",
			slog.String("worker_name", workerName),
			slog.String("queue", task.Queue),
			slog.String("error", err.Error()),
		)

		requeue := shouldRequeue(err)

		if nackErr := channel.Nack(task.DeliveryTag, false, requeue); nackErr != nil {
			w.logger.Error("Failed to NACK message",
				slog.String("worker_name", workerName),
				slog.String("error", nackErr.Error()),
			)
		} else {
			w.logger.Info("Message NACKed",
				slog.String("worker_name", workerName),
				slog.String("queue", task.Queue),
				slog.Bool("requeue", requeue),
			)
		}
		return
	}

	if ackErr := channel.Ack(task.DeliveryTag, false); ackErr != nil {
		w.logger.Error("Failed to ACK message",
			slog.String("worker_name", workerName),
			slog.String("error", ackErr.Error()),
		)
		return
	}

	w.logger.Info("Task completed",
		slog.String("worker_name", workerName),
		slog.String("queue", task.Queue),
	)
}

// shouldRequeue separates deterministic failures from transient ones.
// Redelivering a message the handler will always reject just loops it.
func shouldRequeue(err error) bool {
	switch {
	case errors.Is(err, event.ErrInvalidEvent),
		errors.Is(err, event.ErrBatchCardinality),
		errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, ledger.ErrAmbiguousResult),
		errors.Is(err, ledger.ErrTaskIDConflict),
		errors.Is(err, workflow.ErrTextDetectionFailed),
		errors.Is(err, workflow.ErrModerationRejected):
		return false
	}

	// Service and infrastructure faults are worth another attempt
	return true
}
