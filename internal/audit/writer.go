package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"retailcore/internal/audit/metrics"
)

// RecordPublisher fans committed records out to an external sink (Kafka topic
// consumed by SIEM tooling). Satisfied by platform/kafka.Producer.
type RecordPublisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// Writer appends one immutable record per mutation. The store assigns ID and
// CreatedAt at persistence time; after a successful append the record is
// best-effort published to the configured sink.
type Writer struct {
	store     Store
	publisher RecordPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewWriter builds a Writer. publisher and metrics may be nil.
func NewWriter(store Store, publisher RecordPublisher, logger *slog.Logger, m *metrics.Metrics) *Writer {
	return &Writer{
		store:     store,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
	}
}

// Record persists rec. The error return exists for the Listener's logging;
// the Listener never lets it reach business code.
func (w *Writer) Record(ctx context.Context, rec *Record) error {
	if err := w.store.Append(ctx, rec); err != nil {
		if w.metrics != nil {
			w.metrics.IncWriteFailures()
		}
		return err
	}
	if w.metrics != nil {
		w.metrics.IncRecordsWritten(string(rec.Action))
	}

	w.publish(ctx, rec)
	return nil
}

// publish sends the committed record to the external sink. The record is
// already durable; a publish failure is logged and counted, nothing more.
func (w *Writer) publish(ctx context.Context, rec *Record) {
	if w.publisher == nil {
		return
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		w.logger.WarnContext(ctx, "failed to marshal audit record for publish",
			"record_id", rec.ID,
			"error", err,
		)
		return
	}

	key := []byte(rec.EntityType)
	if rec.EntityID != nil {
		key = []byte(rec.EntityType + ":" + strconv.FormatInt(*rec.EntityID, 10))
	}

	if err := w.publisher.Publish(ctx, key, payload); err != nil {
		if w.metrics != nil {
			w.metrics.IncPublishFailures()
		}
		w.logger.WarnContext(ctx, "failed to publish audit record",
			"record_id", rec.ID,
			"entity_type", rec.EntityType,
			"error", err,
		)
	}
}
