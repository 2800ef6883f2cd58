package fanout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/serroba/livepoll-go/internal/fanout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newConsumerFixture(t *testing.T) (*gochannel.GoChannel, *fanout.Hub, *fanout.Consumer) {
	t.Helper()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	hub := fanout.NewHub(zap.NewNop())
	consumer := fanout.NewConsumer(pubSub, hub, zap.NewNop())

	require.NoError(t, consumer.Start(context.Background()))

	t.Cleanup(func() {
		require.NoError(t, consumer.Shutdown())
		require.NoError(t, pubSub.Close())
	})

	return pubSub, hub, consumer
}

type failingSubscriber struct{}

func (failingSubscriber) Subscribe(context.Context, string) (<-chan *message.Message, error) {
	return nil, errors.New("broker unavailable")
}

func (failingSubscriber) Close() error { return nil }

func TestConsumer(t *testing.T) {
	t.Run("bridges published updates to hub subscribers", func(t *testing.T) {
		pubSub, hub, _ := newConsumerFixture(t)

		sub := hub.Subscribe(testPollID)
		publish := fanout.NewPublishUpdate(pubSub)

		require.NoError(t, publish(&fanout.Update{
			PollID:     testPollID,
			Results:    []fanout.ResultEntry{{ID: "A", Text: "Go", Votes: 1}},
			TotalVotes: 1,
		}))

		update := receiveUpdate(t, sub)

		assert.Equal(t, testPollID, update.PollID)
		assert.Equal(t, int64(1), update.TotalVotes)
		require.Len(t, update.Results, 1)
		assert.Equal(t, fanout.ResultEntry{ID: "A", Text: "Go", Votes: 1}, update.Results[0])
	})

	t.Run("malformed payloads are acked and skipped", func(t *testing.T) {
		pubSub, hub, _ := newConsumerFixture(t)

		sub := hub.Subscribe(testPollID)

		garbage := message.NewMessage(watermill.NewUUID(), []byte("not json"))
		require.NoError(t, pubSub.Publish(fanout.TopicPollUpdated, garbage))

		publish := fanout.NewPublishUpdate(pubSub)
		require.NoError(t, publish(&fanout.Update{PollID: testPollID, TotalVotes: 2}))

		// The bad message is dropped; the next good one still arrives.
		update := receiveUpdate(t, sub)
		assert.Equal(t, int64(2), update.TotalVotes)
	})

	t.Run("shutdown before start is a no-op", func(t *testing.T) {
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
		hub := fanout.NewHub(zap.NewNop())
		consumer := fanout.NewConsumer(pubSub, hub, zap.NewNop())

		done := make(chan struct{})
		go func() {
			defer close(done)

			assert.NoError(t, consumer.Shutdown())
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("shutdown blocked without a running consume loop")
		}
	})

	t.Run("shutdown after a failed start does not block", func(t *testing.T) {
		hub := fanout.NewHub(zap.NewNop())
		consumer := fanout.NewConsumer(&failingSubscriber{}, hub, zap.NewNop())

		require.Error(t, consumer.Start(context.Background()))

		done := make(chan struct{})
		go func() {
			defer close(done)

			assert.NoError(t, consumer.Shutdown())
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("shutdown blocked after a failed start")
		}
	})

	t.Run("shutdown stops the consume loop", func(t *testing.T) {
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
		hub := fanout.NewHub(zap.NewNop())
		consumer := fanout.NewConsumer(pubSub, hub, zap.NewNop())

		require.NoError(t, consumer.Start(context.Background()))
		require.NoError(t, consumer.Shutdown())

		done := make(chan struct{})
		go func() {
			defer close(done)

			_ = pubSub.Close()
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("pubsub close blocked after consumer shutdown")
		}
	})
}
