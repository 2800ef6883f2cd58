package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/livepoll-go/internal/middleware"
	"github.com/serroba/livepoll-go/internal/poll"
	"github.com/serroba/livepoll-go/internal/ratelimit"
	"github.com/serroba/livepoll-go/internal/voting"
	"go.uber.org/zap"
)

// VoteHandler handles vote casting.
type VoteHandler struct {
	coordinator *voting.Coordinator
	logger      *zap.Logger
}

// NewVoteHandler creates a new vote handler.
func NewVoteHandler(coordinator *voting.Coordinator, logger *zap.Logger) *VoteHandler {
	return &VoteHandler{coordinator: coordinator, logger: logger}
}

func (h *VoteHandler) CastVote(ctx context.Context, req *CastVoteRequest) (*CastVoteResponse, error) {
	pollID, err := poll.ParseID(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid poll id format")
	}

	if req.Body.OptionID == "" {
		return nil, huma.Error400BadRequest("optionId is required")
	}

	identity := middleware.IdentityFromContext(ctx)

	receipt, err := h.coordinator.Cast(ctx, pollID, req.Body.OptionID, identity)
	if err != nil {
		return nil, h.castError(err, req.ID)
	}

	resp := &CastVoteResponse{}
	resp.Body.Success = true
	resp.Body.Message = "Vote recorded successfully"
	resp.Body.VotedFor = receipt.VotedFor
	resp.Body.Results = receipt.Results
	resp.Body.TotalVotes = receipt.TotalVotes

	if !receipt.RateLimit.FailedOpen {
		resp.Headers.Limit = strconv.FormatInt(receipt.RateLimit.Limit, 10)
		resp.Headers.Remaining = strconv.FormatInt(receipt.RateLimit.Remaining, 10)
		resp.Headers.Reset = receipt.RateLimit.ResetAt.UTC().Format(time.RFC3339)
	}

	return resp, nil
}

func (h *VoteHandler) castError(err error, rawID string) error {
	var limited *voting.RateLimitedError

	switch {
	case errors.As(err, &limited):
		return rateLimitedError(limited.Decision)
	case errors.Is(err, poll.ErrNotFound):
		return huma.Error404NotFound("poll not found")
	case errors.Is(err, voting.ErrPollInactive):
		return huma.Error400BadRequest("poll is not active: it has been closed or expired")
	case errors.Is(err, voting.ErrInvalidOption):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, voting.ErrDuplicateVote):
		return huma.Error409Conflict("you have already voted on this poll")
	default:
		h.logger.Error("vote failed", zap.String("pollId", rawID), zap.Error(err))

		return huma.Error500InternalServerError("failed to record vote")
	}
}

// rateLimitedError builds a 429 carrying machine-usable retry metadata.
func rateLimitedError(d ratelimit.Decision) error {
	retryAfter := strconv.FormatInt(int64(d.RetryAfter/time.Second), 10)

	headers := http.Header{}
	headers.Set("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
	headers.Set("X-RateLimit-Remaining", "0")
	headers.Set("X-RateLimit-Reset", d.ResetAt.UTC().Format(time.RFC3339))
	headers.Set("Retry-After", retryAfter)

	msg := "rate limit exceeded: maximum " + strconv.FormatInt(d.Limit, 10) +
		" votes per " + strconv.FormatInt(int64(d.Window/time.Second), 10) + " seconds"

	return huma.ErrorWithHeaders(huma.Error429TooManyRequests(msg), headers)
}
