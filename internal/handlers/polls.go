package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jonboulle/clockwork"
	"github.com/serroba/livepoll-go/internal/poll"
	"github.com/serroba/livepoll-go/internal/voting"
	"go.uber.org/zap"
)

// PollHandler handles poll CRUD and results reads.
type PollHandler struct {
	polls       poll.Repository
	coordinator *voting.Coordinator
	newID       func() poll.ID
	clock       clockwork.Clock
	logger      *zap.Logger
}

// NewPollHandler creates a new poll handler.
func NewPollHandler(
	polls poll.Repository,
	coordinator *voting.Coordinator,
	newID func() poll.ID,
	clock clockwork.Clock,
	logger *zap.Logger,
) *PollHandler {
	return &PollHandler{
		polls:       polls,
		coordinator: coordinator,
		newID:       newID,
		clock:       clock,
		logger:      logger,
	}
}

func (h *PollHandler) CreatePoll(ctx context.Context, req *CreatePollRequest) (*CreatePollResponse, error) {
	settings := poll.Settings{}
	if req.Body.Settings != nil {
		settings = poll.Settings{
			AllowMultipleVotes: req.Body.Settings.AllowMultipleVotes,
			RequireAuth:        req.Body.Settings.RequireAuth,
			ExpiresAt:          req.Body.Settings.ExpiresAt,
		}
	}

	record, err := poll.New(h.newID(), req.Body.Title, req.Body.Options, settings, req.UserID, h.clock.Now())
	if err != nil {
		if errors.Is(err, poll.ErrValidation) {
			return nil, huma.Error400BadRequest(err.Error())
		}

		return nil, huma.Error500InternalServerError("failed to create poll")
	}

	if err := h.polls.Create(ctx, record); err != nil {
		h.logger.Error("failed to save poll", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to create poll")
	}

	resp := &CreatePollResponse{}
	resp.Body.Success = true
	resp.Body.Poll = pollPayload(record)

	return resp, nil
}

func (h *PollHandler) GetPoll(ctx context.Context, req *GetPollRequest) (*GetPollResponse, error) {
	id, err := poll.ParseID(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid poll id format")
	}

	record, err := h.polls.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, poll.ErrNotFound) {
			return nil, huma.Error404NotFound("poll not found")
		}

		h.logger.Error("failed to fetch poll", zap.String("pollId", req.ID), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to fetch poll")
	}

	resp := &GetPollResponse{}
	resp.Body.Success = true
	resp.Body.Poll = pollPayload(record)

	return resp, nil
}

func (h *PollHandler) ListPolls(ctx context.Context, req *ListPollsRequest) (*ListPollsResponse, error) {
	offset := (req.Page - 1) * req.Limit

	polls, err := h.polls.ListActive(ctx, offset, req.Limit)
	if err != nil {
		h.logger.Error("failed to list polls", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to fetch polls")
	}

	total, err := h.polls.CountActive(ctx)
	if err != nil {
		h.logger.Error("failed to count polls", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to fetch polls")
	}

	summaries := make([]PollSummary, len(polls))
	for i, p := range polls {
		summaries[i] = PollSummary{
			ID:          p.ID,
			Title:       p.Title,
			OptionCount: len(p.Options),
			Status:      p.Status,
			CreatedAt:   p.CreatedAt,
		}
	}

	pages := total / int64(req.Limit)
	if total%int64(req.Limit) != 0 {
		pages++
	}

	resp := &ListPollsResponse{}
	resp.Body.Success = true
	resp.Body.Polls = summaries
	resp.Body.Pagination = Pagination{
		Page:  req.Page,
		Limit: req.Limit,
		Total: total,
		Pages: pages,
	}

	return resp, nil
}

func (h *PollHandler) GetResults(ctx context.Context, req *ResultsRequest) (*ResultsResponse, error) {
	id, err := poll.ParseID(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid poll id format")
	}

	record, results, total, err := h.coordinator.Results(ctx, id)
	if err != nil {
		if errors.Is(err, poll.ErrNotFound) {
			return nil, huma.Error404NotFound("poll not found")
		}

		h.logger.Error("failed to read results", zap.String("pollId", req.ID), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to fetch results")
	}

	resp := &ResultsResponse{}
	resp.Body.Success = true
	resp.Body.Poll = ResultsPollPayload{
		ID:        record.ID,
		Title:     record.Title,
		Status:    record.Status,
		CreatedAt: record.CreatedAt,
	}
	resp.Body.Results = results
	resp.Body.TotalVotes = total

	return resp, nil
}

func pollPayload(p *poll.Poll) PollPayload {
	return PollPayload{
		ID:        p.ID,
		Title:     p.Title,
		Options:   p.Options,
		Status:    p.Status,
		Settings:  p.Settings,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
