package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docuvoice/backend/shared/rabbitmq"
)

// Handler processes one message body from a queue
type Handler func(ctx context.Context, body []byte) error

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	RabbitClient  *rabbitmq.Client
	Handlers      map[string]Handler // queue name -> handler
	Concurrency   int
	JobTimeout    time.Duration
	PrefetchCount int
	WorkerID      string
}

// Worker consumes the pipeline queues and dispatches messages into a
// shared processing pool.
type Worker struct {
	logger        *slog.Logger
	rabbitClient  *rabbitmq.Client
	handlers      map[string]Handler
	concurrency   int
	jobTimeout    time.Duration
	prefetchCount int
	workerID      string
	tasksChan     chan *taskMessage
	wg            sync.WaitGroup
	dispatcherWg  sync.WaitGroup
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// taskMessage carries one delivery from a dispatcher to the pool
type taskMessage struct {
	Queue       string
	Body        []byte
	DeliveryTag uint64
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = cfg.Concurrency
	}

	return &Worker{
		logger:        cfg.Logger,
		rabbitClient:  cfg.RabbitClient,
		handlers:      cfg.Handlers,
		concurrency:   cfg.Concurrency,
		jobTimeout:    cfg.JobTimeout,
		prefetchCount: prefetch,
		workerID:      cfg.WorkerID,
		tasksChan:     make(chan *taskMessage),
		stopChan:      make(chan struct{}),
	}
}

// Start begins consuming and processing. Blocks until the context is
// canceled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	channel := w.rabbitClient.GetChannel()
	if channel == nil {
		return fmt.Errorf("rabbitmq channel is nil")
	}

	if err := channel.Qos(w.prefetchCount, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	w.spawnPool(ctx)

	for queue := range w.handlers {
		deliveries, err := w.setupConsumer(queue)
		if err != nil {
			return err
		}

		w.dispatcherWg.Add(1)
		go w.dispatch(ctx, queue, deliveries)
	}

	<-ctx.Done()
	w.logger.Info("Worker context canceled, stopping...")

	return nil
}

// Stop gracefully stops the worker: dispatchers drain first, then the pool
// finishes in-flight tasks.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker...")
		close(w.stopChan)
		w.dispatcherWg.Wait()
		close(w.tasksChan)
		w.wg.Wait()
		w.logger.Info("Worker stopped")
	})
}
