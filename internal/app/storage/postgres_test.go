package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"erlobby/internal/app/db"
)

type PostgresStoreSuite struct {
	suite.Suite
	store *PostgresStore
	ctx   context.Context
}

// TestPostgresStoreSuite runs against a disposable database named by TEST_DATABASE_URL.
func TestPostgresStoreSuite(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	pool, err := db.NewPool(context.Background(), dsn)
	require.NoError(t, err)

	s := &PostgresStoreSuite{store: NewPostgresStore(pool), ctx: context.Background()}
	defer s.store.Close()

	suite.Run(t, s)
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.store.pool.Exec(s.ctx, `TRUNCATE identity_records, chat_history`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestEmptyTablesAreNotFound() {
	_, err := s.store.LoadRecords(s.ctx)
	s.ErrorIs(err, ErrNotFound)

	_, err = s.store.LoadHistory(s.ctx)
	s.ErrorIs(err, ErrNotFound)
}

func (s *PostgresStoreSuite) TestHistorySnapshotReplacesRows() {
	s.Require().NoError(s.store.SaveHistory(s.ctx, []ChatMessage{{Message: "one"}, {Message: "two"}}))
	s.Require().NoError(s.store.SaveHistory(s.ctx, []ChatMessage{{Message: "two"}, {Message: "three"}}))

	history, err := s.store.LoadHistory(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal("two", history[0].Message)
	s.Equal("three", history[1].Message)
}

func (s *PostgresStoreSuite) TestRecordsUpsertNeverDecreasePlaytime() {
	s.Require().NoError(s.store.SaveRecords(s.ctx, Records{"id-1": {Nickname: "a", Code: "1111", PlaytimeSeconds: 50}}))
	s.Require().NoError(s.store.SaveRecords(s.ctx, Records{"id-1": {Nickname: "b", Code: "1111", PlaytimeSeconds: 10}}))

	records, err := s.store.LoadRecords(s.ctx)
	s.Require().NoError(err)
	s.Equal("b", records["id-1"].Nickname)
	s.Equal(50.0, records["id-1"].PlaytimeSeconds)
}
