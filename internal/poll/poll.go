package poll

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a poll.
type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
	StatusDraft  Status = "draft"
)

var (
	// ErrNotFound indicates the poll does not exist in the durable store.
	ErrNotFound = errors.New("poll not found")
	// ErrValidation indicates invalid poll input. Wrapped errors carry detail.
	ErrValidation = errors.New("validation failed")
)

// Option is a single choice within a poll. Option ids are single letters
// ("A", "B", ...) assigned at creation and stable for the poll's lifetime.
// Votes reflects the durable count, authoritative only after reconciliation;
// the freshest count lives in the vote cache.
type Option struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int64  `json:"votes"`
}

// Settings holds per-poll behavior flags.
type Settings struct {
	AllowMultipleVotes bool       `json:"allowMultipleVotes"`
	RequireAuth        bool       `json:"requireAuth"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty"`
}

// Poll is the durable poll record.
type Poll struct {
	ID           ID
	Title        string
	Options      []Option
	Status       Status
	CreatedBy    string
	Settings     Settings
	TotalVotes   int64
	LastSyncedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	minOptions       = 2
	maxOptions       = 10
	minTitleLen      = 5
	maxTitleLen      = 200
	maxOptionTextLen = 100
)

// New builds a poll from raw input, assigning letter option ids in order.
func New(id ID, title string, optionTexts []string, settings Settings, createdBy string, now time.Time) (*Poll, error) {
	title = strings.TrimSpace(title)
	if len(title) < minTitleLen || len(title) > maxTitleLen {
		return nil, fmt.Errorf("%w: title must be %d-%d characters", ErrValidation, minTitleLen, maxTitleLen)
	}

	if len(optionTexts) < minOptions || len(optionTexts) > maxOptions {
		return nil, fmt.Errorf("%w: poll must have between %d and %d options", ErrValidation, minOptions, maxOptions)
	}

	options := make([]Option, 0, len(optionTexts))

	for i, text := range optionTexts {
		text = strings.TrimSpace(text)
		if text == "" || len(text) > maxOptionTextLen {
			return nil, fmt.Errorf("%w: option text must be 1-%d characters", ErrValidation, maxOptionTextLen)
		}

		options = append(options, Option{ID: string(rune('A' + i)), Text: text})
	}

	if createdBy == "" {
		createdBy = "anonymous"
	}

	return &Poll{
		ID:        id,
		Title:     title,
		Options:   options,
		Status:    StatusActive,
		CreatedBy: createdBy,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsActive reports whether the poll accepts votes at the given instant.
func (p *Poll) IsActive(now time.Time) bool {
	if p.Status != StatusActive {
		return false
	}

	if p.Settings.ExpiresAt != nil && p.Settings.ExpiresAt.Before(now) {
		return false
	}

	return true
}

// HasOption reports whether optionID exists in this poll.
func (p *Poll) HasOption(optionID string) bool {
	for _, opt := range p.Options {
		if opt.ID == optionID {
			return true
		}
	}

	return false
}

// OptionIDs returns the poll's option ids in display order.
func (p *Poll) OptionIDs() []string {
	ids := make([]string, len(p.Options))
	for i, opt := range p.Options {
		ids[i] = opt.ID
	}

	return ids
}
