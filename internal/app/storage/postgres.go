package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps both snapshots in PostgreSQL (schema managed by package db).
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore returns a store backed by an already migrated pool. It takes ownership of pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// LoadHistory returns the stored history ordered oldest first, or ErrNotFound when empty.
func (s *PostgresStore) LoadHistory(ctx context.Context) ([]ChatMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT nickname, message, sent_at, color, tripcode FROM chat_history ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying chat history: %w", err)
	}

	history, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ChatMessage, error) {
		var m ChatMessage
		err := row.Scan(&m.Nickname, &m.Message, &m.Time, &m.Color, &m.Code)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning chat history: %w", err)
	}

	if len(history) == 0 {
		return nil, ErrNotFound
	}
	return history, nil
}

// SaveHistory replaces the stored history with history in one transaction.
func (s *PostgresStore) SaveHistory(ctx context.Context, history []ChatMessage) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM chat_history`); err != nil {
			return fmt.Errorf("clearing chat history: %w", err)
		}

		rows := make([][]any, len(history))
		for i, m := range history {
			rows[i] = []any{i, m.Nickname, m.Message, m.Time, m.Color, m.Code}
		}

		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"chat_history"},
			[]string{"position", "nickname", "message", "sent_at", "color", "tripcode"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("writing chat history: %w", err)
		}
		return nil
	})
}

// LoadRecords returns every identity record, or ErrNotFound when the table is empty.
func (s *PostgresStore) LoadRecords(ctx context.Context) (Records, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT identity_id, nickname, tripcode, playtime_seconds FROM identity_records`)
	if err != nil {
		return nil, fmt.Errorf("querying identity records: %w", err)
	}
	defer rows.Close()

	records := Records{}
	for rows.Next() {
		var id string
		var rec IdentityRecord
		if err := rows.Scan(&id, &rec.Nickname, &rec.Code, &rec.PlaytimeSeconds); err != nil {
			return nil, fmt.Errorf("scanning identity record: %w", err)
		}
		records[id] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating identity records: %w", err)
	}

	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// SaveRecords upserts every record in one transaction. Records are never deleted.
func (s *PostgresStore) SaveRecords(ctx context.Context, records Records) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for id, rec := range records {
			batch.Queue(`
INSERT INTO identity_records (identity_id, nickname, tripcode, playtime_seconds, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (identity_id) DO UPDATE
SET nickname = EXCLUDED.nickname,
    tripcode = EXCLUDED.tripcode,
    playtime_seconds = GREATEST(identity_records.playtime_seconds, EXCLUDED.playtime_seconds),
    updated_at = now()`,
				id, rec.Nickname, rec.Code, max(rec.PlaytimeSeconds, 0))
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upserting identity records: %w", err)
		}
		return nil
	})
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
