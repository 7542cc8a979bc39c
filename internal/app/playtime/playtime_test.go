package playtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erlobby/internal/app/storage"
)

type memoryRecords struct {
	saved storage.Records
	saves int
	err   error
}

func (m *memoryRecords) LoadRecords(context.Context) (storage.Records, error) {
	if m.saved == nil {
		return nil, storage.ErrNotFound
	}
	return m.saved.Clone(), nil
}

func (m *memoryRecords) SaveRecords(_ context.Context, records storage.Records) error {
	m.saves++
	if m.err != nil {
		return m.err
	}
	m.saved = records.Clone()
	return nil
}

var t0 = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func TestAccrueAddsExactInterval(t *testing.T) {
	store := &memoryRecords{}
	a := NewAccountant(nil, store)
	ctx := context.Background()

	added := a.Accrue(ctx, "id-1", true, t0, t0.Add(90*time.Second))
	assert.Equal(t, 90.0, added)
	assert.Equal(t, 90.0, a.Playtime("id-1"))

	a.Accrue(ctx, "id-1", true, t0.Add(90*time.Second), t0.Add(100*time.Second))
	assert.Equal(t, 100.0, a.Playtime("id-1"))

	assert.Equal(t, 2, store.saves)
	assert.Equal(t, 100.0, store.saved["id-1"].PlaytimeSeconds)
}

func TestAccrueSkips(t *testing.T) {
	tests := []struct {
		name     string
		identity string
		inGame   bool
		since    time.Time
	}{
		{name: "not in game", identity: "id-1", inGame: false, since: t0},
		{name: "never stamped", identity: "id-1", inGame: true},
		{name: "anonymous", identity: "anonymous", inGame: true, since: t0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryRecords{}
			a := NewAccountant(nil, store)

			added := a.Accrue(context.Background(), tt.identity, tt.inGame, tt.since, t0.Add(time.Hour))
			assert.Zero(t, added)
			assert.Zero(t, a.Len())
			assert.Zero(t, store.saves)
		})
	}
}

func TestAccrueClampsNegativeInterval(t *testing.T) {
	a := NewAccountant(storage.Records{"id-1": {PlaytimeSeconds: 50}}, &memoryRecords{})

	added := a.Accrue(context.Background(), "id-1", true, t0, t0.Add(-time.Minute))
	assert.Zero(t, added)
	assert.Equal(t, 50.0, a.Playtime("id-1"))
}

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	store := &memoryRecords{err: errors.New("disk full")}
	a := NewAccountant(nil, store)

	a.Accrue(context.Background(), "id-1", true, t0, t0.Add(10*time.Second))
	assert.Equal(t, 10.0, a.Playtime("id-1"))
	assert.Nil(t, store.saved)
}

func TestTouch(t *testing.T) {
	store := &memoryRecords{}
	a := NewAccountant(storage.Records{"id-1": {PlaytimeSeconds: 12}}, store)
	ctx := context.Background()

	a.Touch(ctx, "id-1", "Conan", "7c98")
	a.Touch(ctx, "anonymous", "Ghost", "abcd")

	require.Contains(t, store.saved, "id-1")
	assert.Equal(t, storage.IdentityRecord{Nickname: "Conan", Code: "7c98", PlaytimeSeconds: 12}, store.saved["id-1"])
	assert.NotContains(t, store.saved, "anonymous")
	assert.Equal(t, 1, store.saves)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0s"},
		{5, "5s"},
		{59.9, "59s"},
		{60, "1m"},
		{100, "1m"},
		{3599, "59m"},
		{3600, "1.0h"},
		{5400, "1.5h"},
		{2108.29, "35m"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.seconds), "seconds=%v", tt.seconds)
	}
}

func TestLeaderboardOrderAndFormatting(t *testing.T) {
	a := NewAccountant(storage.Records{
		"a": {Nickname: "five", Code: "1111", PlaytimeSeconds: 5},
		"b": {Nickname: "hour", Code: "2222", PlaytimeSeconds: 3600},
		"c": {PlaytimeSeconds: 100},
	}, nil)

	entries := a.Leaderboard(LeaderboardSize)
	require.Len(t, entries, 3)

	assert.Equal(t, Entry{Nickname: "hour", Code: "2222", Playtime: "1.0h", PlaytimeSeconds: 3600}, entries[0])
	assert.Equal(t, Entry{Nickname: "Anonymous", Code: "????", Playtime: "1m", PlaytimeSeconds: 100}, entries[1])
	assert.Equal(t, "5s", entries[2].Playtime)
}

func TestLeaderboardLimitAndTies(t *testing.T) {
	records := storage.Records{}
	for i := range 60 {
		records[string(rune('A'+i))] = storage.IdentityRecord{PlaytimeSeconds: float64(i % 3)}
	}
	records["neg"] = storage.IdentityRecord{PlaytimeSeconds: -1}

	entries := Leaderboard(records, LeaderboardSize)
	assert.Len(t, entries, LeaderboardSize)
	for i := 1; i < len(entries); i++ {
		assert.GreaterOrEqual(t, entries[i-1].PlaytimeSeconds, entries[i].PlaytimeSeconds)
	}

	assert.Equal(t, Leaderboard(records, LeaderboardSize), entries, "ties resolve deterministically")
}
