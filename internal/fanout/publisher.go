package fanout

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// PublishUpdate publishes a results snapshot to the poll-update topic.
type PublishUpdate func(update *Update) error

// NewPublishUpdate wraps a watermill publisher into a typed publish function.
func NewPublishUpdate(publisher message.Publisher) PublishUpdate {
	return func(update *Update) error {
		payload, err := json.Marshal(update)
		if err != nil {
			return err
		}

		msg := message.NewMessage(watermill.NewUUID(), payload)

		return publisher.Publish(TopicPollUpdated, msg)
	}
}

// PublisherGroup owns the underlying publisher lifecycle.
type PublisherGroup struct {
	publisher message.Publisher
}

// NewPublisherGroup creates a new publisher group.
func NewPublisherGroup(publisher message.Publisher) *PublisherGroup {
	return &PublisherGroup{publisher: publisher}
}

// Shutdown closes the underlying publisher.
func (g *PublisherGroup) Shutdown() error {
	return g.publisher.Close()
}
