package handlers

import (
	"time"

	"github.com/serroba/livepoll-go/internal/fanout"
	"github.com/serroba/livepoll-go/internal/poll"
)

// SettingsInput mirrors poll.Settings for request bodies.
type SettingsInput struct {
	AllowMultipleVotes bool       `json:"allowMultipleVotes,omitempty"`
	RequireAuth        bool       `json:"requireAuth,omitempty"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty"`
}

// CreatePollRequest is the request for creating a poll. Field validation is
// deliberately left to the domain so malformed input maps to 400 responses.
type CreatePollRequest struct {
	UserID string `header:"X-User-Id" required:"false" doc:"Optional creator identifier"`
	Body   struct {
		Title    string         `doc:"Poll title, 5-200 characters"  json:"title,omitempty"`
		Options  []string       `doc:"Between 2 and 10 option texts" json:"options,omitempty"`
		Settings *SettingsInput `doc:"Per-poll behavior flags"       json:"settings,omitempty"`
	}
}

// PollPayload is the poll detail shape shared by create and get responses.
type PollPayload struct {
	ID        poll.ID       `json:"id"`
	Title     string        `json:"title"`
	Options   []poll.Option `json:"options"`
	Status    poll.Status   `json:"status"`
	Settings  poll.Settings `json:"settings"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// CreatePollResponse is the response for a successfully created poll.
type CreatePollResponse struct {
	Body struct {
		Success bool        `json:"success"`
		Poll    PollPayload `json:"poll"`
	}
}

// GetPollRequest is the request for fetching a single poll.
type GetPollRequest struct {
	ID string `doc:"Poll identifier, 24 hex characters" example:"64f1b2a4c9e77a0012345678" path:"id"`
}

// GetPollResponse is the response for fetching a single poll.
type GetPollResponse struct {
	Body struct {
		Success bool        `json:"success"`
		Poll    PollPayload `json:"poll"`
	}
}

// ListPollsRequest is the request for listing active polls.
type ListPollsRequest struct {
	Page  int `default:"1"  doc:"Page number"     minimum:"1"   query:"page"`
	Limit int `default:"20" doc:"Polls per page"  maximum:"100" minimum:"1" query:"limit"`
}

// PollSummary is one entry in the poll list.
type PollSummary struct {
	ID          poll.ID     `json:"id"`
	Title       string      `json:"title"`
	OptionCount int         `json:"optionCount"`
	Status      poll.Status `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Pagination describes the page window of a list response.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// ListPollsResponse is the response for listing active polls.
type ListPollsResponse struct {
	Body struct {
		Success    bool          `json:"success"`
		Polls      []PollSummary `json:"polls"`
		Pagination Pagination    `json:"pagination"`
	}
}

// ResultsRequest is the request for reading live results.
type ResultsRequest struct {
	ID string `doc:"Poll identifier, 24 hex characters" path:"id"`
}

// ResultsPollPayload is the poll header of a results response.
type ResultsPollPayload struct {
	ID        poll.ID     `json:"id"`
	Title     string      `json:"title"`
	Status    poll.Status `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// ResultsResponse is the response for reading live results.
type ResultsResponse struct {
	Body struct {
		Success    bool                 `json:"success"`
		Poll       ResultsPollPayload   `json:"poll"`
		Results    []fanout.ResultEntry `json:"results"`
		TotalVotes int64                `json:"totalVotes"`
	}
}

// CastVoteRequest is the request for casting a vote.
type CastVoteRequest struct {
	ID   string `doc:"Poll identifier, 24 hex characters" path:"id"`
	Body struct {
		OptionID string `doc:"Option to vote for" example:"A" json:"optionId,omitempty"`
	}
}

// CastVoteResponse is the response for a recorded vote. Rate limit headers
// are populated whenever admission control ran (they are absent if the
// limiter failed open).
type CastVoteResponse struct {
	Headers struct {
		Limit     string `header:"X-RateLimit-Limit"`
		Remaining string `header:"X-RateLimit-Remaining"`
		Reset     string `header:"X-RateLimit-Reset"`
	}
	Body struct {
		Success    bool                 `json:"success"`
		Message    string               `json:"message"`
		VotedFor   string               `json:"votedFor"`
		Results    []fanout.ResultEntry `json:"results"`
		TotalVotes int64                `json:"totalVotes"`
	}
}
