package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

type FileStoreSuite struct {
	suite.Suite
	dir   string
	store *FileStore
	ctx   context.Context
}

func TestFileStoreSuite(t *testing.T) {
	suite.Run(t, new(FileStoreSuite))
}

func (s *FileStoreSuite) SetupTest() {
	s.dir = s.T().TempDir()

	store, err := NewFileStore(s.dir)
	s.Require().NoError(err)

	s.store = store
	s.ctx = context.Background()
}

func (s *FileStoreSuite) TestLoadHistoryMissing() {
	_, err := s.store.LoadHistory(s.ctx)
	s.ErrorIs(err, ErrNotFound)
}

func (s *FileStoreSuite) TestHistoryRoundTripKeepsOrder() {
	history := []ChatMessage{
		{Nickname: "a", Message: "first", Time: "10:00", Color: "#ff6b6b", Code: "1a2b"},
		{Nickname: "b", Message: "second", Time: "10:01", Color: "#4ecdc4", Code: "3c4d"},
	}

	s.Require().NoError(s.store.SaveHistory(s.ctx, history))

	loaded, err := s.store.LoadHistory(s.ctx)
	s.Require().NoError(err)
	s.Equal(history, loaded)
}

func (s *FileStoreSuite) TestSaveHistoryOverwrites() {
	s.Require().NoError(s.store.SaveHistory(s.ctx, []ChatMessage{{Message: "old"}}))
	s.Require().NoError(s.store.SaveHistory(s.ctx, []ChatMessage{{Message: "new"}}))

	loaded, err := s.store.LoadHistory(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(loaded, 1)
	s.Equal("new", loaded[0].Message)
}

func (s *FileStoreSuite) TestRecordsRoundTrip() {
	records := Records{
		"id-1": {Nickname: "Conan", Code: "7c98", PlaytimeSeconds: 2108.29},
	}

	s.Require().NoError(s.store.SaveRecords(s.ctx, records))

	loaded, err := s.store.LoadRecords(s.ctx)
	s.Require().NoError(err)
	s.Equal(records, loaded)

	_, err = os.Stat(filepath.Join(s.dir, RecordsFileName+".tmp"))
	s.True(os.IsNotExist(err), "temp file must not survive a successful write")
}

func (s *FileStoreSuite) TestLoadRecordsMissing() {
	_, err := s.store.LoadRecords(s.ctx)
	s.ErrorIs(err, ErrNotFound)
}

func (s *FileStoreSuite) TestLoadRecordsReadsOriginalFormat() {
	raw := `{
  "99d04503-41b3-4d52-9ce7-bc447804e722": {"playtime": 2108.2949228286743, "nickname": "Conan", "tripcode": "7c98"},
  "broken": "not an object",
  "nulled": null,
  "meta-only": {"nickname": "Quiet", "tripcode": "abcd"}
}`
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, RecordsFileName), []byte(raw), 0o644))

	loaded, err := s.store.LoadRecords(s.ctx)
	s.Require().NoError(err)
	s.Len(loaded, 2)
	s.InDelta(2108.2949228286743, loaded["99d04503-41b3-4d52-9ce7-bc447804e722"].PlaytimeSeconds, 1e-9)
	s.Equal(0.0, loaded["meta-only"].PlaytimeSeconds)
}

func (s *FileStoreSuite) TestCorruptRecordsAreMovedAside() {
	path := filepath.Join(s.dir, RecordsFileName)
	s.Require().NoError(os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := s.store.LoadRecords(s.ctx)
	s.ErrorIs(err, ErrNotFound)

	_, statErr := os.Stat(path)
	s.True(os.IsNotExist(statErr))

	matches, globErr := filepath.Glob(path + ".corrupt-*")
	s.Require().NoError(globErr)
	s.Len(matches, 1)
}
