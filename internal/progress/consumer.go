package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"scrapeplane/internal/bus"
	"scrapeplane/internal/cells"
	"scrapeplane/internal/store"
)

// Consumer runs one fetch-handle-commit loop per inbound feedback topic and
// routes events to the aggregator and the cell merger. Events that can never
// be processed (unknown job, undecodable payload) go to the dead-letter
// topic for their kind; transient store errors make the bus retry the same
// message until it lands, so no feedback event is ever skipped.
type Consumer struct {
	consumer   bus.Consumer
	publisher  bus.Publisher
	aggregator *Aggregator
	merger     *cells.Merger
	logger     *slog.Logger

	deadLettered metric.Int64Counter
}

// NewConsumer creates a Consumer over the given bus endpoints.
func NewConsumer(c bus.Consumer, p bus.Publisher, aggregator *Aggregator, merger *cells.Merger, logger *slog.Logger) *Consumer {
	meter := otel.Meter("scrapeplane/progress")
	deadLettered, err := meter.Int64Counter("scrapeplane.feedback.dead_lettered",
		metric.WithDescription("Feedback events routed to a dead-letter topic"))
	if err != nil {
		logger.Warn("failed to register dead-letter counter", "error", err)
	}

	return &Consumer{
		consumer:     c,
		publisher:    p,
		aggregator:   aggregator,
		merger:       merger,
		logger:       logger,
		deadLettered: deadLettered,
	}
}

// Run consumes all feedback topics until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	handlers := map[string]bus.Handler{
		bus.TopicScrapedAvailability:   c.handleVehicleEvent(bus.TopicScrapedAvailability),
		bus.TopicScrapedVehicleDetails: c.handleVehicleEvent(bus.TopicScrapedVehicleDetails),
		bus.TopicScrapedCells:          c.handleCellEvent(bus.TopicScrapedCells),
	}

	var wg sync.WaitGroup
	for topic, handler := range handlers {
		wg.Add(1)
		go func(topic string, handler bus.Handler) {
			defer wg.Done()
			if err := c.consumer.Consume(ctx, topic, handler); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("consumer loop exited", "topic", topic, "error", err)
			}
		}(topic, handler)
	}
	wg.Wait()

	return ctx.Err()
}

// handleVehicleEvent processes availability and vehicle-details feedback.
func (c *Consumer) handleVehicleEvent(topic string) bus.Handler {
	return func(ctx context.Context, msg []byte) error {
		var event bus.VehicleScrapedEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			return c.deadLetter(ctx, topic, msg, fmt.Sprintf("undecodable event: %v", err))
		}

		jobID, err := uuid.Parse(event.JobID)
		if err != nil {
			return c.deadLetter(ctx, topic, msg, fmt.Sprintf("malformed job id %q", event.JobID))
		}

		_, err = c.aggregator.RecordOutcome(ctx, jobID, event.Failed)
		if errors.Is(err, store.ErrJobNotFound) {
			return c.deadLetter(ctx, topic, msg, "unknown job")
		}
		if errors.Is(err, ErrCounterInvariant) {
			// Already surfaced by the aggregator; the message is consumed
			// since redelivery cannot repair the record.
			return nil
		}
		return err
	}
}

// handleCellEvent processes cell feedback. The job is resolved first, so
// feedback for a job that was never created dead-letters without touching
// the partition index. The merge then runs before the outcome is recorded:
// both merge branches are idempotent under redelivery, the counter increment
// is not.
func (c *Consumer) handleCellEvent(topic string) bus.Handler {
	return func(ctx context.Context, msg []byte) error {
		var event bus.CellScrapedEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			return c.deadLetter(ctx, topic, msg, fmt.Sprintf("undecodable event: %v", err))
		}

		jobID, err := uuid.Parse(event.JobID)
		if err != nil {
			return c.deadLetter(ctx, topic, msg, fmt.Sprintf("malformed job id %q", event.JobID))
		}

		if _, err := c.aggregator.Lookup(ctx, jobID); err != nil {
			if errors.Is(err, store.ErrJobNotFound) {
				return c.deadLetter(ctx, topic, msg, "unknown job")
			}
			return err
		}

		if !event.Failed {
			if err := c.merger.Merge(ctx, &event); err != nil {
				return fmt.Errorf("cell merge failed: %w", err)
			}
		}

		_, err = c.aggregator.RecordOutcome(ctx, jobID, event.Failed)
		if errors.Is(err, store.ErrJobNotFound) {
			return c.deadLetter(ctx, topic, msg, "unknown job")
		}
		if errors.Is(err, ErrCounterInvariant) {
			return nil
		}
		return err
	}
}

// deadLetter publishes the original message to the topic's dead-letter
// variant and acknowledges it. Poison messages are never silently dropped
// and never retried against a record that cannot exist.
func (c *Consumer) deadLetter(ctx context.Context, topic string, msg []byte, reason string) error {
	dlqTopic := bus.DLQTopicFor(topic)
	c.logger.Warn("routing event to dead-letter topic",
		"topic", topic, "dlq_topic", dlqTopic, "reason", reason)

	err := c.publisher.Publish(ctx, dlqTopic, "", &bus.DeadLetter{
		Reason:   reason,
		Original: json.RawMessage(msg),
	})
	if err != nil {
		// The bus retries the whole event, including this publish.
		return fmt.Errorf("failed to dead-letter event: %w", err)
	}

	if c.deadLettered != nil {
		c.deadLettered.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
	}
	return nil
}
