package db

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/unklstewy/skytrack/pkg/tracking"
)

// ArchivedExchange is one stored controller frame.
type ArchivedExchange struct {
	ID          int64     `json:"id"`
	Session     string    `json:"session"`
	Command     string    `json:"command"`
	Size        int       `json:"size"`
	Payload     string    `json:"payload"` // hex
	Direction   string    `json:"direction"`
	ExchangedAt time.Time `json:"exchanged_at"`
}

// archivedFrom converts a tracker history entry into its stored form.
func archivedFrom(session string, e tracking.HistoryEntry) ArchivedExchange {
	return ArchivedExchange{
		Session:     session,
		Command:     e.Command.String(),
		Size:        e.Size,
		Payload:     hex.EncodeToString(e.Payload),
		Direction:   string(e.Direction),
		ExchangedAt: e.Time,
	}
}

// HistoryRepository archives snapshots of the tracker's frame history.
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Archive stores entries under a session label using COPY and returns the
// number of rows written.
func (r *HistoryRepository) Archive(ctx context.Context, session string, entries []tracking.HistoryEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("exchange_history",
		"session", "command", "size", "payload", "direction", "exchanged_at"))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare copy: %w", err)
	}

	for _, e := range entries {
		a := archivedFrom(session, e)
		if _, err := stmt.ExecContext(ctx, a.Session, a.Command, a.Size, a.Payload, a.Direction, a.ExchangedAt); err != nil {
			stmt.Close()
			return 0, fmt.Errorf("failed to copy exchange: %w", err)
		}
	}

	// An argument-less Exec flushes the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return 0, fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("failed to close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit archive: %w", err)
	}
	return len(entries), nil
}

// Recent returns the newest archived exchanges, newest first. An empty
// session matches all sessions.
func (r *HistoryRepository) Recent(ctx context.Context, session string, limit int) ([]ArchivedExchange, error) {
	query := `
		SELECT id, session, command, size, payload, direction, exchanged_at
		FROM exchange_history
		WHERE ($1 = '' OR session = $1)
		ORDER BY exchanged_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, session, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchange history: %w", err)
	}
	defer rows.Close()

	var out []ArchivedExchange
	for rows.Next() {
		var a ArchivedExchange
		if err := rows.Scan(&a.ID, &a.Session, &a.Command, &a.Size, &a.Payload, &a.Direction, &a.ExchangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		out = append(out, a)
	}

	return out, rows.Err()
}
