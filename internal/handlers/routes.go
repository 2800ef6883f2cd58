package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/serroba/livepoll-go/internal/fanout"
)

// RegisterRoutes registers all poll and voting routes.
func RegisterRoutes(api huma.API, polls *PollHandler, votes *VoteHandler, streams *StreamHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-poll",
		Method:        http.MethodPost,
		Path:          "/api/polls",
		Summary:       "Create a poll",
		Description:   "Creates a poll with 2-10 options. Option ids are assigned letters in order.",
		Tags:          []string{"Polls"},
		DefaultStatus: http.StatusCreated,
	}, polls.CreatePoll)

	huma.Register(api, huma.Operation{
		OperationID: "list-polls",
		Method:      http.MethodGet,
		Path:        "/api/polls",
		Summary:     "List active polls",
		Tags:        []string{"Polls"},
	}, polls.ListPolls)

	huma.Register(api, huma.Operation{
		OperationID: "get-poll",
		Method:      http.MethodGet,
		Path:        "/api/polls/{id}",
		Summary:     "Get a poll",
		Tags:        []string{"Polls"},
	}, polls.GetPoll)

	huma.Register(api, huma.Operation{
		OperationID: "get-poll-results",
		Method:      http.MethodGet,
		Path:        "/api/polls/{id}/results",
		Summary:     "Get live results",
		Description: "Returns vote counts computed live from the cache; options with no cache entry report zero.",
		Tags:        []string{"Polls"},
	}, polls.GetResults)

	huma.Register(api, huma.Operation{
		OperationID: "cast-vote",
		Method:      http.MethodPost,
		Path:        "/api/polls/{id}/vote",
		Summary:     "Cast a vote",
		Description: "Admits the vote through per-identity rate limiting and duplicate suppression, " +
			"then broadcasts the updated tally to the poll's subscribers.",
		Tags: []string{"Votes"},
	}, votes.CastVote)

	sse.Register(api, huma.Operation{
		OperationID: "stream-poll",
		Method:      http.MethodGet,
		Path:        "/api/polls/{id}/live",
		Summary:     "Stream live updates",
		Description: "Joins the poll's update channel. Updates arrive as poll_update events; " +
			"closing the connection leaves the channel.",
		Tags: []string{"Votes"},
	}, map[string]any{
		"joined":       JoinedEvent{},
		"poll_update":  fanout.Update{},
		"stream_error": StreamErrorEvent{},
	}, streams.Stream)
}
