// Package bus provides the message channels between the manager and the
// external scraper workers.
package bus

import "context"

// Topic names, one per work kind and direction. The spellings match what the
// deployed scrapers subscribe to.
const (
	TopicToBeScrapedCells          = "TO-BE-SCRAPED-cells-topic"
	TopicToBeScrapedAvailability   = "TO-BE-SCRAPED-dr-availability-topic"
	TopicToBeScrapedVehicleDetails = "TO-BE-SCRAPED-vehicle-details-topic"

	TopicScrapedCells          = "SCRAPED-cells-topic"
	TopicScrapedAvailability   = "SCRAPED-dr-availability-topic"
	TopicScrapedVehicleDetails = "SCRAPED-vehicle-details-topic"

	TopicDLQCells          = "DLQ-cells-topic"
	TopicDLQAvailability   = "DLQ-dr-availability-topic"
	TopicDLQVehicleDetails = "DLQ-vehicle-details-topic"
)

// Publisher publishes one message to a named topic. Implementations must not
// report success until the broker has acknowledged the write, so dispatch
// counts stay accurate.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Handler processes one raw message. Returning an error makes the consumer
// retry the same message with backoff, blocking the topic until it succeeds,
// so handlers must only fail for transient causes. Poison messages go to a
// dead-letter topic instead, and the handler returns nil so the original is
// acknowledged.
type Handler func(ctx context.Context, msg []byte) error

// Consumer runs a fetch-handle-commit loop for one topic. Consume blocks
// until ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler Handler) error
}
