package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	publishTimeout  = 30 * time.Second
	publishRetries  = 3
	retryBackoffMax = 10 * time.Second
)

// KafkaBus implements Publisher and Consumer over a Kafka cluster. One shared
// writer serves all topics; readers are created per topic on demand.
type KafkaBus struct {
	brokers []string
	groupID string
	logger  *slog.Logger

	mu      sync.Mutex
	writer  *kafka.Writer
	readers []*kafka.Reader
}

// NewKafkaBus creates a bus over the given brokers. groupID scopes consumer
// offsets; all manager replicas share one group.
func NewKafkaBus(brokers []string, groupID string, logger *slog.Logger) *KafkaBus {
	return &KafkaBus{
		brokers: brokers,
		groupID: groupID,
		logger:  logger,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
		},
	}
}

// Publish JSON-encodes value and writes it to topic, waiting for broker
// acknowledgment. Transient write errors are retried with exponential
// backoff before the publish is reported failed.
func (b *KafkaBus) Publish(ctx context.Context, topic, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode message for %s: %w", topic, err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
	}

	backoff := 100 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt <= publishRetries; attempt++ {
		lastErr = b.writer.WriteMessages(timeoutCtx, msg)
		if lastErr == nil {
			return nil
		}
		if timeoutCtx.Err() != nil {
			return fmt.Errorf("publish to %s: %w", topic, timeoutCtx.Err())
		}
		if attempt < publishRetries {
			time.Sleep(backoff)
			backoff *= 2
			if backoff > retryBackoffMax {
				backoff = retryBackoffMax
			}
		}
	}

	return fmt.Errorf("failed to publish to %s after %d attempts: %w", topic, publishRetries+1, lastErr)
}

// Consume runs a blocking fetch-handle-commit loop for one topic until ctx is
// cancelled. A handler error blocks the loop on that message: it is retried
// in place with backoff, and the offset is only committed once the handler
// succeeds. Fetching past a failed message would let the next commit mark it
// processed, so the loop never does.
func (b *KafkaBus) Consume(ctx context.Context, topic string, handler Handler) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        b.brokers,
		GroupID:        b.groupID,
		Topic:          topic,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		StartOffset:    kafka.LastOffset,
		ReadBackoffMin: 100 * time.Millisecond,
		ReadBackoffMax: 5 * time.Second,
	})
	b.trackReader(reader)
	defer reader.Close()

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return ctx.Err()
			}
			b.logger.Error("failed to fetch message", "topic", topic, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		if err := b.retryMessage(ctx, topic, handler, m); err != nil {
			return err
		}

		commitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := reader.CommitMessages(commitCtx, m); err != nil {
			b.logger.Error("failed to commit offset", "topic", topic, "offset", m.Offset, "error", err)
		}
		cancel()
	}
}

// retryMessage invokes handler until it succeeds or ctx is cancelled. The
// offset stays uncommitted for the whole retry loop, so a shutdown mid-retry
// leaves the message pending for redelivery from the last committed offset.
func (b *KafkaBus) retryMessage(ctx context.Context, topic string, handler Handler, m kafka.Message) error {
	backoff := 100 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err := handler(ctx, m.Value)
		if err == nil {
			return nil
		}

		b.logger.Error("failed to handle message, retrying",
			"topic", topic, "offset", m.Offset, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > retryBackoffMax {
			backoff = retryBackoffMax
		}
	}
}

func (b *KafkaBus) trackReader(r *kafka.Reader) {
	b.mu.Lock()
	b.readers = append(b.readers, r)
	b.mu.Unlock()
}

// Close closes the writer and any open readers.
func (b *KafkaBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	if err := b.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close writer: %w", err))
	}
	for _, r := range b.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close reader: %w", err))
		}
	}
	b.readers = nil

	if len(errs) > 0 {
		return fmt.Errorf("errors closing kafka bus: %v", errs)
	}
	return nil
}
