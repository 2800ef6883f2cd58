package fanout

import "time"

// TopicPollUpdated carries results snapshots from the vote path to every
// server replica's hub.
const TopicPollUpdated = "poll.updated"

// ResultEntry is one option's share of a results snapshot.
type ResultEntry struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int64  `json:"votes"`
}

// LastVote describes the vote that triggered an update.
type LastVote struct {
	OptionID  string    `json:"optionId"`
	Timestamp time.Time `json:"timestamp"`
}

// Update is the results snapshot broadcast to a poll's subscribers.
type Update struct {
	PollID     string        `json:"pollId"`
	Results    []ResultEntry `json:"results"`
	TotalVotes int64         `json:"totalVotes"`
	LastVote   LastVote      `json:"lastVote"`
}
