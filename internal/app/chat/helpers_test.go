package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"erlobby/internal/app/playtime"
	"erlobby/internal/app/storage"
	"erlobby/internal/app/user"
	"erlobby/internal/pkg/clock"
	"erlobby/internal/pkg/limiter"
)

var t0 = time.Date(2026, 3, 1, 20, 15, 0, 0, time.UTC)

type memoryStore struct {
	mu           sync.Mutex
	history      []storage.ChatMessage
	records      storage.Records
	historySaves int
	recordSaves  int
}

func (m *memoryStore) LoadHistory(context.Context) ([]storage.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.history == nil {
		return nil, storage.ErrNotFound
	}
	return append([]storage.ChatMessage(nil), m.history...), nil
}

func (m *memoryStore) SaveHistory(_ context.Context, history []storage.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append([]storage.ChatMessage{}, history...)
	m.historySaves++
	return nil
}

func (m *memoryStore) LoadRecords(context.Context) (storage.Records, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		return nil, storage.ErrNotFound
	}
	return m.records.Clone(), nil
}

func (m *memoryStore) SaveRecords(_ context.Context, records storage.Records) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = records.Clone()
	m.recordSaves++
	return nil
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) savedRecords() storage.Records {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records.Clone()
}

// frame is the union of every outbound message shape.
type frame struct {
	Type     MessageType           `json:"type"`
	Count    int                   `json:"count"`
	Players  []PlayerEntry         `json:"players"`
	Lobbies  []Lobby               `json:"lobbies"`
	Messages []storage.ChatMessage `json:"messages"`
	Entries  []playtime.Entry      `json:"entries"`
	storage.ChatMessage
}

type testHub struct {
	*Hub
	t     *testing.T
	clock *clock.Mock
	store *memoryStore
}

func newTestHub(t *testing.T, seed ...storage.ChatMessage) *testHub {
	t.Helper()

	store := &memoryStore{}
	mock := clock.NewMock(t0)
	lim := limiter.NewWindowLimiter(DefaultChatWindow)
	t.Cleanup(lim.Close)

	h := NewHub(Options{
		Store:    store,
		History:  seed,
		Clock:    mock,
		Limiter:  lim,
		Colors:   user.NewColorBookWithRand(func(int) int { return 0 }),
		Location: time.UTC,
	})

	return &testHub{Hub: h, t: t, clock: mock, store: store}
}

// join registers a connection without a socket, as the hub goroutine would.
func (th *testHub) join(ip string) *Client {
	c := NewClient(th.Hub, nil, ip)
	th.connect(c)
	th.pruneStale()
	return c
}

func (th *testHub) leave(c *Client) {
	th.remove(c, "test")
	th.pruneStale()
}

func (th *testHub) send(c *Client, v any) {
	th.t.Helper()
	data, err := json.Marshal(v)
	require.NoError(th.t, err)
	th.handleFrame(c, data)
	th.pruneStale()
}

// drain returns every frame queued for c so far.
func drain(t *testing.T, c *Client) []frame {
	t.Helper()

	var out []frame
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out
			}
			var f frame
			require.NoError(t, json.Unmarshal(data, &f))
			out = append(out, f)
		default:
			return out
		}
	}
}

func types(frames []frame) []MessageType {
	out := make([]MessageType, len(frames))
	for i, f := range frames {
		out[i] = f.Type
	}
	return out
}

func last(t *testing.T, frames []frame, typ MessageType) frame {
	t.Helper()
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Type == typ {
			return frames[i]
		}
	}
	require.Failf(t, "frame not found", "no %s frame in %v", typ, types(frames))
	return frame{}
}

func status(nickname, userID string, inGame bool) map[string]any {
	return map[string]any{
		"type":      "status_update",
		"nickname":  nickname,
		"modpack":   "Seamless",
		"in_game":   inGame,
		"game_mode": "Online",
		"user_id":   userID,
	}
}

func chatMsg(nickname, userID, text string) map[string]any {
	return map[string]any{"type": "chat", "nickname": nickname, "user_id": userID, "message": text}
}
