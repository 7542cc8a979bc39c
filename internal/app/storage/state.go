package storage

import (
	"context"
	"errors"

	"erlobby/internal/pkg/logx"
)

// State is everything the server restores at start-up.
type State struct {
	History []ChatMessage
	Records Records
}

// LoadState restores the chat history and the identity records from store, migrating
// legacy record files from legacyDir when no unified store exists yet.
//
// An unreadable history is logged and replaced by an empty one; the server can run
// without its backlog. Failing to load the records is returned, since starting empty
// and saving would overwrite accumulated playtime.
func LoadState(ctx context.Context, store Store, legacyDir string) (State, error) {
	var state State

	history, err := store.LoadHistory(ctx)
	switch {
	case err == nil:
		state.History = history
		logx.Info("Loaded chat history", "messages", len(history))
	case errors.Is(err, ErrNotFound):
		state.History = []ChatMessage{}
	default:
		logx.Error(err, "Failed to load chat history; starting with an empty backlog")
		state.History = []ChatMessage{}
	}

	records, err := LoadOrMigrate(ctx, store, legacyDir)
	if err != nil {
		return State{}, err
	}
	state.Records = records
	logx.Info("Loaded user records", "records", len(records))

	return state, nil
}
