// Package worker drains the audit outbox to Kafka. Rows are only marked
// published after the produce is acknowledged, so a crash between produce
// and mark yields at-least-once delivery, never a lost event.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"placet/pkg/platform/audit/store/postgres"
)

// Outbox is the slice of the postgres store the worker needs.
type Outbox interface {
	FetchUnpublished(ctx context.Context, limit int) ([]postgres.OutboxRow, error)
	MarkPublished(ctx context.Context, ids []string) error
}

// Worker polls the outbox and produces events to Kafka.
type Worker struct {
	outbox Outbox
	kafka  *kgo.Client
	topic  string
	logger *slog.Logger
	batch  int
}

func New(outbox Outbox, kafka *kgo.Client, topic string, batch int, logger *slog.Logger) *Worker {
	if batch <= 0 {
		batch = 100
	}
	return &Worker{outbox: outbox, kafka: kafka, topic: topic, logger: logger, batch: batch}
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil {
				w.logger.Error("outbox drain failed", "error", err.Error())
			}
		}
	}
}

// Drain publishes one batch of unpublished rows.
func (w *Worker) Drain(ctx context.Context) error {
	rows, err := w.outbox.FetchUnpublished(ctx, w.batch)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	published := make([]string, 0, len(rows))
	for _, row := range rows {
		record := &kgo.Record{
			Topic: w.topic,
			Key:   []byte(row.Category),
			Value: row.Payload,
		}
		if err := w.kafka.ProduceSync(ctx, record).FirstErr(); err != nil {
			// Stop the batch on first failure; unmarked rows retry next tick.
			w.logger.Error("audit produce failed", "id", row.ID, "error", err.Error())
			break
		}
		published = append(published, row.ID)
	}

	if err := w.outbox.MarkPublished(ctx, published); err != nil {
		return err
	}
	w.logger.Debug("audit outbox drained", "published", len(published), "fetched", len(rows))
	return nil
}
