package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/serroba/livepoll-go/internal/fanout"
	"github.com/serroba/livepoll-go/internal/poll"
	"go.uber.org/zap"
)

// StreamHandler serves the real-time update channel for a poll. Opening the
// stream joins the poll's channel, closing the connection leaves it.
type StreamHandler struct {
	hub    *fanout.Hub
	polls  poll.Repository
	logger *zap.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(hub *fanout.Hub, polls poll.Repository, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{hub: hub, polls: polls, logger: logger}
}

// StreamRequest is the request for joining a poll's update channel.
type StreamRequest struct {
	ID string `doc:"Poll identifier, 24 hex characters" path:"id"`
}

// JoinedEvent acknowledges channel membership.
type JoinedEvent struct {
	PollID  string `json:"pollId"`
	Message string `json:"message"`
}

// StreamErrorEvent reports a terminal stream error.
type StreamErrorEvent struct {
	Error string `json:"error"`
}

// Stream subscribes the caller to the poll's update channel and forwards
// results snapshots until the client disconnects.
func (h *StreamHandler) Stream(ctx context.Context, req *StreamRequest, send sse.Sender) {
	pollID, err := poll.ParseID(req.ID)
	if err != nil {
		_ = send.Data(StreamErrorEvent{Error: "invalid poll id format"})

		return
	}

	if _, err := h.polls.FindByID(ctx, pollID); err != nil {
		_ = send.Data(StreamErrorEvent{Error: "poll not found"})

		return
	}

	sub := h.hub.Subscribe(pollID.String())
	defer h.hub.Unsubscribe(sub)

	if err := send.Data(JoinedEvent{
		PollID:  pollID.String(),
		Message: "joined poll " + pollID.String(),
	}); err != nil {
		return
	}

	h.logger.Debug("subscriber joined poll",
		zap.String("pollId", pollID.String()),
		zap.String("subscriptionId", sub.ID.String()),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-sub.C:
			if !ok {
				return
			}

			if err := send.Data(*update); err != nil {
				// Client went away mid-delivery; best-effort only.
				return
			}
		}
	}
}
