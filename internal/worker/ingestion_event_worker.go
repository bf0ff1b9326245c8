package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"docvault/internal/model"
	"docvault/internal/platform/rabbitmq"
)

type EventStore interface {
	Create(ctx context.Context, event *model.IngestionEvent) error
}

// IngestionEventWorker consumes ingestion events and persists them.
type IngestionEventWorker struct {
	conn      *amqp.Connection
	store     EventStore
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestionEventWorker(conn *amqp.Connection, store EventStore, queueName string, logger *zap.Logger) *IngestionEventWorker {
	return &IngestionEventWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *IngestionEventWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					w.logger.Warn("ingestion event dropped", zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *IngestionEventWorker) handle(ctx context.Context, body []byte) error {
	var event model.IngestionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode ingestion event failed: %w", err)
	}
	if err := w.store.Create(ctx, &event); err != nil {
		return fmt.Errorf("persist ingestion event failed: %w", err)
	}
	return nil
}

func (w *IngestionEventWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
