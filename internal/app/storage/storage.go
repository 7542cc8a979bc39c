/*
Package storage persists the two durable pieces of server state: the bounded chat history
and the per-identity record store (last nickname, display code, cumulative playtime).

Every write is a whole-state snapshot. Backends are JSON files (the default) or PostgreSQL,
optionally mirrored to an S3-compatible bucket.
*/
package storage

import (
	"context"
	"errors"
	"maps"
)

// ErrNotFound is returned by a load when the backing store holds nothing yet.
var ErrNotFound = errors.New("storage: not found")

// ChatMessage is one entry of the chat history.
type ChatMessage struct {
	Nickname string `json:"nickname"`
	Message  string `json:"message"`
	Time     string `json:"time"`
	Color    string `json:"color"`
	Code     string `json:"tripcode"`
}

// IdentityRecord is the persistent state of one identity.
type IdentityRecord struct {
	// Nickname is the last nickname seen for the identity.
	Nickname string `json:"nickname,omitempty"`

	// Code is the identity's display code.
	Code string `json:"tripcode,omitempty"`

	// PlaytimeSeconds is the cumulative in-game time. It never decreases.
	PlaytimeSeconds float64 `json:"playtime"`
}

// Records maps identity ids to their records.
type Records map[string]IdentityRecord

// Clone returns a shallow copy of r that can be handed to another goroutine.
func (r Records) Clone() Records {
	return maps.Clone(r)
}

// HistoryStore loads and saves the chat history snapshot, oldest message first.
type HistoryStore interface {
	LoadHistory(ctx context.Context) ([]ChatMessage, error)
	SaveHistory(ctx context.Context, history []ChatMessage) error
}

// RecordStore loads and saves the identity record snapshot.
// LoadRecords returns ErrNotFound when no unified store exists yet.
type RecordStore interface {
	LoadRecords(ctx context.Context) (Records, error)
	SaveRecords(ctx context.Context, records Records) error
}

// Store is a complete persistence backend.
type Store interface {
	HistoryStore
	RecordStore
	Close() error
}
