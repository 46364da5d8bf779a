package worker

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// setupConsumer starts consuming one queue and returns its delivery channel
func (w *Worker) setupConsumer(queue string) (<-chan amqp.Delivery, error) {
	consumerTag := fmt.Sprintf("%s-%s", w.workerID, queue)

	// auto-ack off; the pool acks after the handler finishes
	deliveries, err := w.rabbitClient.Consume(queue, consumerTag)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming %s: %w", queue, err)
	}

	w.logger.Info("Consumer started",
		slog.String("consumer_tag", consumerTag),
		slog.String("queue", queue),
	)

	return deliveries, nil
}

// dispatch feeds deliveries from one queue into the shared pool
func (w *Worker) dispatch(ctx context.Context, queue string, deliveries <-chan amqp.Delivery) {
	defer w.dispatcherWg.Done()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Dispatcher stopped - context canceled",
				slog.String("queue", queue),
			)
			return

		case <-w.stopChan:
			w.logger.Info("Dispatcher stopped",
				slog.String("queue", queue),
			)
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("Delivery channel closed",
					slog.String("queue", queue),
				)
				return
			}

			task := &taskMessage{
				Queue:       queue,
				Body:        delivery.Body,
				DeliveryTag: delivery.DeliveryTag,
			}

			select {
			case w.tasksChan <- task:
				w.logger.Debug("Task dispatched",
					slog.String("queue", queue),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				// Requeue so another worker picks it up after shutdown
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					w.logger.Error("Failed to NACK message on shutdown",
						slog.String("error", nackErr.Error()),
					)
				}
				return
			case <-w.stopChan:
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					w.logger.Error("Failed to NACK message on shutdown",
						slog.String("error", nackErr.Error()),
					)
				}
				return
			}
		}
	}
}
