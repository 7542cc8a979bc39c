package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStateFreshDirectory(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	state, err := LoadState(context.Background(), store, dir)
	require.NoError(t, err)
	assert.Empty(t, state.History)
	assert.NotNil(t, state.History)
	assert.Empty(t, state.Records)
}

func TestLoadStateCorruptHistoryStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, HistoryFileName), []byte("[{"), 0o644))
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveRecords(context.Background(), Records{"id-1": {PlaytimeSeconds: 9}}))

	state, err := LoadState(context.Background(), store, dir)
	require.NoError(t, err)
	assert.Empty(t, state.History)
	assert.Equal(t, 9.0, state.Records["id-1"].PlaytimeSeconds)
}
