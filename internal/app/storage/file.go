package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"erlobby/internal/pkg/logx"
)

const (
	// HistoryFileName holds the chat history snapshot.
	HistoryFileName = "chat_log.json"

	// RecordsFileName holds the unified identity record snapshot.
	RecordsFileName = "user_data.json"
)

// ErrReadOnly is returned by writes to a store opened read-only.
var ErrReadOnly = errors.New("storage: store is read-only")

// FileStore keeps both snapshots as pretty-printed JSON files in one directory.
type FileStore struct {
	dir      string
	readOnly bool
	logger   zerolog.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a FileStore rooted at dir, creating the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
	}

	return &FileStore{
		dir:    dir,
		logger: logx.Component("file_store").With().Str("dir", dir).Logger(),
	}, nil
}

// NewReadOnlyFileStore returns a FileStore over dir that never changes the directory:
// writes fail with ErrReadOnly and corrupt files are left where they are.
func NewReadOnlyFileStore(dir string) *FileStore {
	return &FileStore{
		dir:      dir,
		readOnly: true,
		logger:   logx.Component("file_store").With().Str("dir", dir).Bool("read_only", true).Logger(),
	}
}

// Dir returns the directory holding the snapshot files.
func (s *FileStore) Dir() string {
	return s.dir
}

// LoadHistory reads the chat history. A missing file yields ErrNotFound.
func (s *FileStore) LoadHistory(_ context.Context) ([]ChatMessage, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, HistoryFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading chat history: %w", err)
	}

	var history []ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("decoding chat history: %w", err)
	}
	return history, nil
}

// SaveHistory overwrites the chat history file with history.
func (s *FileStore) SaveHistory(_ context.Context, history []ChatMessage) error {
	if s.readOnly {
		return ErrReadOnly
	}
	if history == nil {
		history = []ChatMessage{}
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding chat history: %w", err)
	}

	return atomicWrite(filepath.Join(s.dir, HistoryFileName), data, 0o644)
}

// LoadRecords reads the unified record store.
//
// A missing file yields ErrNotFound. A file that cannot be decoded is moved aside
// (suffix ".corrupt-<unix>", unless the store is read-only) and also reported as
// ErrNotFound so that the caller can rebuild from legacy data instead of refusing to
// start. Entries that are not JSON objects are skipped.
func (s *FileStore) LoadRecords(_ context.Context) (Records, error) {
	path := filepath.Join(s.dir, RecordsFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading user data: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		if s.readOnly {
			s.logger.Warn().Err(err).Msg("User data file is corrupt; ignoring it")
			return nil, fmt.Errorf("decoding user data: %w", ErrNotFound)
		}

		aside := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
		if renameErr := os.Rename(path, aside); renameErr != nil {
			return nil, fmt.Errorf("decoding user data: %w (moving it aside failed: %v)", err, renameErr)
		}
		s.logger.Error().Err(err).Str("moved_to", aside).Msg("User data file is corrupt; moved aside")
		return nil, fmt.Errorf("decoding user data: %w", ErrNotFound)
	}

	records := make(Records, len(raw))
	for id, entry := range raw {
		var rec IdentityRecord
		if trimmed := bytes.TrimSpace(entry); len(trimmed) == 0 || trimmed[0] != '{' {
			s.logger.Warn().Str("identity", id).Msg("Skipping user record that is not an object")
			continue
		}
		if err := json.Unmarshal(entry, &rec); err != nil {
			s.logger.Warn().Err(err).Str("identity", id).Msg("Skipping malformed user record")
			continue
		}
		records[id] = rec
	}
	return records, nil
}

// SaveRecords writes the record store through a temporary file and an atomic rename.
func (s *FileStore) SaveRecords(_ context.Context, records Records) error {
	if s.readOnly {
		return ErrReadOnly
	}
	if records == nil {
		records = Records{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding user data: %w", err)
	}

	return atomicWrite(filepath.Join(s.dir, RecordsFileName), data, 0o644)
}

// Close implements Store. Files are not held open between writes.
func (s *FileStore) Close() error {
	return nil
}

// atomicWrite writes data to a temp file then renames it over path, so a crash
// leaves either the previous or the new snapshot, never a partial one.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		if removeErr := os.Remove(tmp); removeErr != nil {
			logx.Warn("Failed to remove temp file after rename failure", "path", tmp, "error", removeErr.Error())
		}
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
