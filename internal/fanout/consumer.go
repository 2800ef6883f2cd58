package fanout

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Consumer subscribes to the poll-update topic and feeds the hub. Running
// broadcasts through the message bus keeps every server replica's hub in
// sync, not just the replica that handled the vote.
type Consumer struct {
	subscriber message.Subscriber
	hub        *Hub
	logger     *zap.Logger
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewConsumer creates a consumer bridging the subscriber to the hub.
func NewConsumer(subscriber message.Subscriber, hub *Hub, logger *zap.Logger) *Consumer {
	return &Consumer{
		subscriber: subscriber,
		hub:        hub,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start begins consuming poll updates.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	msgs, err := c.subscriber.Subscribe(ctx, TopicPollUpdated)
	if err != nil {
		cancel()

		return err
	}

	c.cancel = cancel
	go c.consumeLoop(ctx, msgs)

	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context, msgs <-chan *message.Message) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			c.handleMessage(msg)
		}
	}
}

func (c *Consumer) handleMessage(msg *message.Message) {
	var update Update
	if err := json.Unmarshal(msg.Payload, &update); err != nil {
		c.logger.Error("failed to unmarshal poll update",
			zap.String("messageId", msg.UUID),
			zap.Error(err),
		)
		// Malformed payloads will not improve on redelivery.
		msg.Ack()

		return
	}

	c.hub.Broadcast(&update)
	msg.Ack()
}

// Shutdown stops the consumer and waits for the loop to drain. It is a
// no-op when the loop never started, so shutting down a consumer whose
// Start failed (or was never called) does not block.
func (c *Consumer) Shutdown() error {
	if c.cancel == nil {
		return nil
	}

	c.cancel()
	<-c.done

	return nil
}
