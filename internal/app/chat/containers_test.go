package chat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erlobby/internal/app/storage"
)

func TestHistoryEvictsOldestFirst(t *testing.T) {
	h := NewHistory(MaxHistory, nil)

	for i := range MaxHistory + 5 {
		evicted := h.Append(storage.ChatMessage{Message: fmt.Sprint(i)})
		assert.Equal(t, i >= MaxHistory, evicted)
	}

	msgs := h.Messages()
	require.Len(t, msgs, MaxHistory)
	assert.Equal(t, "5", msgs[0].Message)
	assert.Equal(t, fmt.Sprint(MaxHistory+4), msgs[MaxHistory-1].Message)
}

func TestHistorySeedIsTrimmedToNewest(t *testing.T) {
	seed := make([]storage.ChatMessage, 150)
	for i := range seed {
		seed[i].Message = fmt.Sprint(i)
	}

	h := NewHistory(MaxHistory, seed)
	assert.Equal(t, MaxHistory, h.Len())
	assert.Equal(t, "50", h.Messages()[0].Message)

	seed[149].Message = "mutated"
	assert.Equal(t, "149", h.Messages()[MaxHistory-1].Message, "seed is copied")
}

func TestHistoryMessagesNeverNil(t *testing.T) {
	assert.NotNil(t, NewHistory(MaxHistory, nil).Messages())
}

func TestRegistryKeepsArrivalOrder(t *testing.T) {
	r := NewRegistry()
	a, b, c := &Client{}, &Client{}, &Client{}

	r.Add(a)
	r.Add(b)
	r.Add(c)
	assert.Equal(t, []*Client{a, b, c}, r.Clients())

	assert.True(t, r.Remove(b))
	assert.False(t, r.Remove(b))
	assert.Equal(t, []*Client{a, c}, r.Clients())

	p, ok := r.Get(a)
	require.True(t, ok)
	assert.Equal(t, StateConnected, p.State)
	assert.Equal(t, "anonymous", p.Identity)
	assert.Equal(t, "gray", p.Color)
}

func TestLobbyDirectoryOverwriteKeepsPosition(t *testing.T) {
	d := NewLobbyDirectory()
	a, b := &Client{}, &Client{}

	d.Host(a, Lobby{Nickname: "a", Password: "1"})
	d.Host(b, Lobby{Nickname: "b", Password: "2"})
	d.Host(a, Lobby{Nickname: "a", Password: "3"})

	assert.Equal(t, []Lobby{{Nickname: "a", Password: "3"}, {Nickname: "b", Password: "2"}}, d.List())

	assert.True(t, d.Remove(a))
	assert.False(t, d.Remove(a))
	assert.Equal(t, 1, d.Len())
	assert.NotNil(t, NewLobbyDirectory().List())
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", truncateRunes("héllo", 4))
	assert.Equal(t, "short", truncateRunes("short", 500))
	assert.Equal(t, "", truncateRunes("", 3))
}
