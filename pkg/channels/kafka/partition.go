package kafka

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/formation/pkg/events"
)

// partitionKey routes every event of one instance to the same partition.
func partitionKey(_ string, msg *message.Message) (string, error) {
	return msg.Metadata.Get(events.EventMetadataKey), nil
}
