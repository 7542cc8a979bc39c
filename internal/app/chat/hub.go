/*
Package chat contains the realtime core of the lobby server.

This file defines the Hub, the single goroutine that owns every piece of shared state:
the connection registry, the lobby directory, the chat backlog, the playtime records,
the chat rate limiter and the colour book. Client pumps and HTTP handlers never touch
that state directly; they queue events to the hub, which handles them one at a time in
arrival order, so no locks guard domain state.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"erlobby/internal/app/playtime"
	"erlobby/internal/app/storage"
	"erlobby/internal/app/user"
	"erlobby/internal/pkg/clock"
	"erlobby/internal/pkg/limiter"
	"erlobby/internal/pkg/logx"
)

const (
	// eventBuffer is the capacity of the hub's inbound event queue.
	eventBuffer = 1024

	// storeTimeout bounds a single snapshot write issued by the hub.
	storeTimeout = 5 * time.Second

	// DefaultChatWindow is the minimum spacing of accepted chat messages per IP.
	DefaultChatWindow = 3 * time.Second
)

var (
	// ErrHubStopped is returned when an operation reaches a hub that is no longer running.
	ErrHubStopped = errors.New("chat: hub stopped")

	// ErrHubPanicked is reported by Err when the event loop died on a panic.
	ErrHubPanicked = errors.New("chat: hub panicked")
)

type eventKind int

const (
	eventJoin eventKind = iota
	eventFrame
	eventLeave
	eventQuery
)

// event is one unit of work for the hub. Joins, frames, leaves and queries share one
// queue, so the hub sees them in the order they were submitted.
type event struct {
	kind   eventKind
	client *Client
	data   []byte
	query  func()
}

// Stats is a point-in-time summary of the hub.
type Stats struct {
	Online  int `json:"online"`
	Lobbies int `json:"lobbies"`
	History int `json:"history"`
}

// Options configures a Hub.
type Options struct {
	// Store persists history and identity records. Required.
	Store storage.Store

	// Records and History seed the in-memory state, usually from Store.
	Records storage.Records
	History []storage.ChatMessage

	// Clock defaults to the wall clock.
	Clock clock.Clock

	// Limiter throttles chat per IP. Defaults to one message per DefaultChatWindow.
	Limiter *limiter.IPRateLimiter

	// Colors defaults to a ColorBook drawing from user.Palette at random.
	Colors *user.ColorBook

	// Location is used for chat timestamps and defaults to the local time zone.
	Location *time.Location
}

// Hub is the central event loop of the server.
type Hub struct {
	store    storage.HistoryStore
	clock    clock.Clock
	limiter  *limiter.IPRateLimiter
	colors   *user.ColorBook
	location *time.Location

	registry *Registry
	lobbies  *LobbyDirectory
	history  *History
	playtime *playtime.Accountant

	// stale holds clients over the send failure threshold, pruned after the current event.
	stale []*Client

	events chan event

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// err is set before done is closed.
	err error

	logger zerolog.Logger
}

// NewHub builds a Hub from opts. Call Run to start it.
func NewHub(opts Options) *Hub {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Limiter == nil {
		opts.Limiter = limiter.NewWindowLimiter(DefaultChatWindow)
	}
	if opts.Colors == nil {
		opts.Colors = user.NewColorBook()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	return &Hub{
		store:    opts.Store,
		clock:    opts.Clock,
		limiter:  opts.Limiter,
		colors:   opts.Colors,
		location: opts.Location,
		registry: NewRegistry(),
		lobbies:  NewLobbyDirectory(),
		history:  NewHistory(MaxHistory, opts.History),
		playtime: playtime.NewAccountant(opts.Records, opts.Store),
		events:   make(chan event, eventBuffer),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logx.Component("hub"),
	}
}

// Run starts the main event loop. It returns after Stop, or after a panic in an event
// handler, which is logged and reported by Err.
func (h *Hub) Run() {
	defer close(h.done)
	defer h.recoverLoop()

	h.logger.Info().
		Int("history", h.history.Len()).
		Int("identities", h.playtime.Len()).
		Msg("Hub started.")

	for {
		select {
		case ev := <-h.events:
			h.handleEvent(ev)

		case <-h.stopChan:
			h.shutdown()
			return
		}

		h.pruneStale()
	}
}

// Stop terminates the event loop started by Run and waits for it to finish. Every live connection is
// closed after its outstanding playtime has been settled. It is safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.logger.Info().Msg("Received stop signal. Stopping hub.")
		close(h.stopChan)
	})
	<-h.done
}

// recoverLoop turns a panic of the event loop into Err and releases every connection.
func (h *Hub) recoverLoop() {
	r := recover()
	if r == nil {
		return
	}

	h.err = fmt.Errorf("%w: %v", ErrHubPanicked, r)
	h.logger.Error().
		Str("panic", fmt.Sprint(r)).
		Bytes("stack", debug.Stack()).
		Msg("Hub event loop panicked.")

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().Str("panic", fmt.Sprint(r)).Msg("Hub shutdown after panic failed.")
		}
	}()
	h.shutdown()
}

// Err returns nil after a regular Stop and wraps ErrHubPanicked when the loop crashed.
// It is only meaningful once Done is closed.
func (h *Hub) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Done is closed once the event loop has exited.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Register queues c for registration. It blocks until the hub accepts the event and
// returns ErrHubStopped when the hub is no longer running.
func (h *Hub) Register(c *Client) error {
	if !h.submit(event{kind: eventJoin, client: c}) {
		return ErrHubStopped
	}
	return nil
}

// submit queues ev, blocking while the queue is full. It reports false once the hub has stopped.
func (h *Hub) submit(ev event) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	select {
	case h.events <- ev:
		return true
	case <-h.done:
		return false
	}
}

// do runs fn on the hub goroutine after every previously submitted event and waits for it.
func (h *Hub) do(ctx context.Context, fn func()) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	finished := make(chan struct{})
	ev := event{kind: eventQuery, query: func() {
		defer close(finished)
		fn()
	}}

	select {
	case h.events <- ev:
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-h.done:
		// The loop may have run fn just before stopping.
		select {
		case <-finished:
			return nil
		default:
			return ErrHubStopped
		}
	}
}

// Stats returns the number of connections, open lobbies and stored chat messages.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := h.do(ctx, func() {
		s = Stats{
			Online:  h.registry.Len(),
			Lobbies: h.lobbies.Len(),
			History: h.history.Len(),
		}
	})
	return s, err
}

// Leaderboard returns the current playtime leaderboard.
func (h *Hub) Leaderboard(ctx context.Context) ([]playtime.Entry, error) {
	var entries []playtime.Entry
	err := h.do(ctx, func() {
		entries = h.playtime.Leaderboard(playtime.LeaderboardSize)
	})
	return entries, err
}

// handleEvent dispatches one queued event.
func (h *Hub) handleEvent(ev event) {
	switch ev.kind {
	case eventJoin:
		h.connect(ev.client)
	case eventFrame:
		h.handleFrame(ev.client, ev.data)
	case eventLeave:
		h.remove(ev.client, "connection closed")
	case eventQuery:
		ev.query()
	}
}

// connect registers c and sends the initial snapshots.
func (h *Hub) connect(c *Client) {
	if _, ok := h.registry.Get(c); ok {
		return
	}
	h.registry.Add(c)

	c.logger.Info().Int("online", h.registry.Len()).Msg("Client connected.")

	h.broadcastUserCount()
	h.broadcastPlayerList()
	if h.history.Len() > 0 {
		h.sendHistory(c)
	}
	h.broadcastLobbyList()
}

// remove runs the disconnect sequence for c: final playtime settle, unregister,
// lobby teardown and the roster broadcasts. Unknown clients are ignored.
func (h *Hub) remove(c *Client, reason string) {
	p, ok := h.registry.Get(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	h.playtime.Accrue(ctx, p.Identity, p.InGame, p.LastEvent, h.clock.Now())

	h.registry.Remove(c)
	close(c.send)

	c.logger.Info().
		Str("reason", reason).
		Str("nickname", p.Nickname).
		Int("online", h.registry.Len()).
		Msg("Client disconnected.")

	if h.lobbies.Remove(c) {
		h.broadcastLobbyList()
	}

	h.broadcastUserCount()
	h.broadcastPlayerList()
}

// shutdown settles playtime for every live connection and closes their queues.
func (h *Hub) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	now := h.clock.Now()
	for _, c := range h.registry.Clients() {
		p, _ := h.registry.Get(c)
		h.playtime.Accrue(ctx, p.Identity, p.InGame, p.LastEvent, now)
		h.registry.Remove(c)
		h.lobbies.Remove(c)
		close(c.send)
	}

	h.limiter.Close()
	h.logger.Info().Msg("Hub stopped.")
}

// pruneStale removes every client that crossed the send failure threshold.
// Removal broadcasts may push further clients over it, so the loop runs until none are left.
func (h *Hub) pruneStale() {
	for len(h.stale) > 0 {
		c := h.stale[0]
		h.stale = h.stale[1:]
		h.remove(c, "send queue stalled")
	}
}

// deliver enqueues data for c without blocking. A full queue is a send failure.
func (h *Hub) deliver(c *Client, data []byte) {
	select {
	case c.send <- data:
		c.failures = 0
		return
	default:
	}

	c.failures++
	c.logger.Warn().
		Int("queue_len", len(c.send)).
		Int("failures", c.failures).
		Msg("Client send channel full, dropping message")

	if c.failures >= maxSendFailures && !c.stale {
		c.stale = true
		h.stale = append(h.stale, c)
	}
}

// broadcast encodes v once and delivers it to every registered client in arrival order.
func (h *Hub) broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Msg("Error marshaling message for broadcast.")
		return
	}

	for _, c := range h.registry.Clients() {
		h.deliver(c, data)
	}
}

// unicast encodes v and delivers it to c only.
func (h *Hub) unicast(c *Client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Msg("Error marshaling message for client.")
		return
	}
	h.deliver(c, data)
}

func (h *Hub) userCount() userCountMessage {
	return userCountMessage{Type: TypeUserCount, Count: h.registry.Len()}
}

// playerList builds the roster in arrival order.
func (h *Hub) playerList() playerListMessage {
	players := make([]PlayerEntry, 0, h.registry.Len())
	for _, c := range h.registry.Clients() {
		p, _ := h.registry.Get(c)
		players = append(players, PlayerEntry{
			Nickname: p.Nickname,
			Modpack:  p.Modpack,
			InGame:   p.InGame,
			GameMode: p.GameMode,
			Color:    p.Color,
			Code:     p.Code,
			Playtime: playtime.Format(h.playtime.Playtime(p.Identity)),
		})
	}
	return playerListMessage{Type: TypePlayerList, Players: players}
}

func (h *Hub) lobbyList() lobbyListMessage {
	return lobbyListMessage{Type: TypeLobbyList, Lobbies: h.lobbies.List()}
}

func (h *Hub) broadcastUserCount()  { h.broadcast(h.userCount()) }
func (h *Hub) broadcastPlayerList() { h.broadcast(h.playerList()) }
func (h *Hub) broadcastLobbyList()  { h.broadcast(h.lobbyList()) }

func (h *Hub) sendHistory(c *Client) {
	h.unicast(c, historyMessage{Type: TypeHistory, Messages: h.history.Messages()})
}
