package fanout_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/livepoll-go/internal/fanout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	topic    string
	messages []*message.Message
	err      error
	closed   bool
}

func (p *capturingPublisher) Publish(topic string, messages ...*message.Message) error {
	if p.err != nil {
		return p.err
	}

	p.topic = topic
	p.messages = append(p.messages, messages...)

	return nil
}

func (p *capturingPublisher) Close() error {
	p.closed = true

	return nil
}

func TestPublishUpdate(t *testing.T) {
	t.Run("publishes the snapshot as json on the poll update topic", func(t *testing.T) {
		publisher := &capturingPublisher{}
		publish := fanout.NewPublishUpdate(publisher)

		castAt := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
		update := &fanout.Update{
			PollID: testPollID,
			Results: []fanout.ResultEntry{
				{ID: "A", Text: "Go", Votes: 2},
				{ID: "B", Text: "Rust", Votes: 1},
			},
			TotalVotes: 3,
			LastVote:   fanout.LastVote{OptionID: "A", Timestamp: castAt},
		}

		require.NoError(t, publish(update))

		assert.Equal(t, fanout.TopicPollUpdated, publisher.topic)
		require.Len(t, publisher.messages, 1)

		msg := publisher.messages[0]
		assert.NotEmpty(t, msg.UUID)

		var decoded fanout.Update
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, *update, decoded)
	})

	t.Run("propagates publisher errors", func(t *testing.T) {
		publisher := &capturingPublisher{err: errors.New("broker down")}
		publish := fanout.NewPublishUpdate(publisher)

		err := publish(&fanout.Update{PollID: testPollID})

		require.Error(t, err)
	})
}

func TestPublisherGroupShutdown(t *testing.T) {
	publisher := &capturingPublisher{}
	group := fanout.NewPublisherGroup(publisher)

	require.NoError(t, group.Shutdown())
	assert.True(t, publisher.closed)
}
