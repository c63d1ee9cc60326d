package bus

import "encoding/json"

// DeadLetter wraps a feedback message that could not be processed, keeping
// the original payload intact for inspection and replay.
type DeadLetter struct {
	Reason   string          `json:"reason"`
	Original json.RawMessage `json:"original"`
}

// DLQTopicFor maps an inbound feedback topic to its dead-letter variant.
func DLQTopicFor(topic string) string {
	switch topic {
	case TopicScrapedCells:
		return TopicDLQCells
	case TopicScrapedAvailability:
		return TopicDLQAvailability
	case TopicScrapedVehicleDetails:
		return TopicDLQVehicleDetails
	default:
		return topic + "-dlq"
	}
}
