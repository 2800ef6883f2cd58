package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/livepoll-go/internal/poll"
)

// PostgresStore is a PostgreSQL implementation of poll.Repository.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed poll store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Create(ctx context.Context, record *poll.Poll) error {
	options, err := json.Marshal(record.Options)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO polls (
			id, title, options, status, created_by,
			allow_multiple_votes, require_auth, expires_at,
			total_votes, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = p.pool.Exec(ctx, query,
		record.ID.String(),
		record.Title,
		options,
		string(record.Status),
		record.CreatedBy,
		record.Settings.AllowMultipleVotes,
		record.Settings.RequireAuth,
		record.Settings.ExpiresAt,
		record.TotalVotes,
		record.CreatedAt,
		record.UpdatedAt,
	)

	return err
}

func (p *PostgresStore) FindByID(ctx context.Context, id poll.ID) (*poll.Poll, error) {
	query := selectColumns + ` FROM polls WHERE id = $1`

	record, err := scanPoll(p.pool.QueryRow(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, poll.ErrNotFound
		}

		return nil, err
	}

	return record, nil
}

func (p *PostgresStore) ListActive(ctx context.Context, offset, limit int) ([]*poll.Poll, error) {
	query := selectColumns + `
		FROM polls
		WHERE status = 'active' AND (expires_at IS NULL OR expires_at > now())
		ORDER BY created_at DESC
	`

	args := []any{}

	if limit > 0 {
		query += ` OFFSET $1 LIMIT $2`
		args = append(args, offset, limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var polls []*poll.Poll

	for rows.Next() {
		record, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}

		polls = append(polls, record)
	}

	return polls, rows.Err()
}

func (p *PostgresStore) CountActive(ctx context.Context) (int64, error) {
	var count int64

	err := p.pool.QueryRow(ctx,
		`SELECT count(*) FROM polls WHERE status = 'active' AND (expires_at IS NULL OR expires_at > now())`,
	).Scan(&count)

	return count, err
}

func (p *PostgresStore) SaveCounts(
	ctx context.Context, id poll.ID, options []poll.Option, totalVotes int64, syncedAt time.Time,
) error {
	payload, err := json.Marshal(options)
	if err != nil {
		return err
	}

	query := `
		UPDATE polls
		SET options = $2, total_votes = $3, last_synced_at = $4, updated_at = $4
		WHERE id = $1
	`

	tag, err := p.pool.Exec(ctx, query, id.String(), payload, totalVotes, syncedAt)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return poll.ErrNotFound
	}

	return nil
}

const selectColumns = `
	SELECT id, title, options, status, created_by,
	       allow_multiple_votes, require_auth, expires_at,
	       total_votes, last_synced_at, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoll(row rowScanner) (*poll.Poll, error) {
	var (
		record  poll.Poll
		id      string
		status  string
		options []byte
	)

	err := row.Scan(
		&id,
		&record.Title,
		&options,
		&status,
		&record.CreatedBy,
		&record.Settings.AllowMultipleVotes,
		&record.Settings.RequireAuth,
		&record.Settings.ExpiresAt,
		&record.TotalVotes,
		&record.LastSyncedAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(options, &record.Options); err != nil {
		return nil, err
	}

	record.ID = poll.ID(id)
	record.Status = poll.Status(status)

	return &record, nil
}

// Compile-time check.
var _ poll.Repository = (*PostgresStore)(nil)
