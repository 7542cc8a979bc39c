package chat

import (
	"context"
	"errors"

	"erlobby/internal/app/playtime"
	"erlobby/internal/app/storage"
	"erlobby/internal/app/user"
)

const (
	// MaxMessageRunes is the longest chat message kept; longer ones are truncated.
	MaxMessageRunes = 500

	// chatTimeLayout is the wall-clock format of chat timestamps.
	chatTimeLayout = "15:04"
)

// handleFrame decodes one client frame and applies it. Frames from unregistered
// connections and malformed frames are dropped; the connection stays open.
func (h *Hub) handleFrame(c *Client, data []byte) {
	p, ok := h.registry.Get(c)
	if !ok {
		return
	}

	msg, err := DecodeInbound(data)
	if err != nil {
		if errors.Is(err, ErrUnknownType) {
			c.logger.Warn().Err(err).Msg("Client sent unsupported message type")
		} else {
			c.logger.Warn().Err(err).Int("bytes", len(data)).Msg("Client sent invalid JSON")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	switch m := msg.(type) {
	case StatusUpdate:
		h.handleStatusUpdate(ctx, c, p, m)
	case ChatSend:
		h.handleChat(ctx, c, p, m)
	case RequestHistory:
		if h.history.Len() > 0 {
			h.sendHistory(c)
		}
	case RequestPlayerList:
		h.unicast(c, h.playerList())
	case HostLobby:
		h.handleHostLobby(c, p, m)
	case RequestLobbies:
		h.broadcastLobbyList()
	case RequestLeaderboard:
		entries := h.playtime.Leaderboard(playtime.LeaderboardSize)
		c.logger.Debug().Int("entries", len(entries)).Msg("Sending leaderboard")
		h.unicast(c, leaderboardMessage{Type: TypeLeaderboard, Entries: entries})
	}
}

// handleStatusUpdate settles playtime for the previous presence, replaces it, records the
// identity's nickname and closes the connection's lobby when it left the game.
func (h *Hub) handleStatusUpdate(ctx context.Context, c *Client, p *Presence, m StatusUpdate) {
	now := h.clock.Now()
	h.playtime.Accrue(ctx, p.Identity, p.InGame, p.LastEvent, now)

	code := user.Code(m.UserID)
	*p = Presence{
		Nickname:  m.Nickname,
		Modpack:   m.Modpack,
		InGame:    m.InGame,
		GameMode:  m.GameMode,
		Color:     h.colors.ColorFor(m.Nickname),
		Code:      code,
		Identity:  m.UserID,
		LastEvent: now,
		State:     StateActive,
	}

	h.playtime.Touch(ctx, m.UserID, m.Nickname, code)

	if !m.InGame && h.lobbies.Remove(c) {
		c.logger.Info().Str("nickname", m.Nickname).Msg("Removing lobby, host left the game.")
		h.broadcastLobbyList()
	}

	h.broadcastPlayerList()
}

// handleChat rate limits, records and fans out one chat message.
func (h *Hub) handleChat(ctx context.Context, c *Client, p *Presence, m ChatSend) {
	text := truncateRunes(m.Message, MaxMessageRunes)

	now := h.clock.Now()
	if !h.limiter.AllowAt(c.IP, now) {
		c.logger.Debug().Msg("Chat message dropped by rate limit")
		return
	}

	color := h.colors.ColorFor(m.Nickname)
	code := user.Code(m.UserID)

	h.playtime.Accrue(ctx, p.Identity, p.InGame, p.LastEvent, now)

	p.Nickname = m.Nickname
	if m.Modpack != nil {
		p.Modpack = *m.Modpack
	}
	if m.InGame != nil {
		p.InGame = *m.InGame
	}
	if m.GameMode != nil {
		p.GameMode = *m.GameMode
	}
	p.Color = color
	p.Code = code
	p.Identity = m.UserID
	p.LastEvent = now

	entry := storage.ChatMessage{
		Nickname: m.Nickname,
		Message:  text,
		Time:     now.In(h.location).Format(chatTimeLayout),
		Color:    color,
		Code:     code,
	}
	h.history.Append(entry)

	if err := h.store.SaveHistory(ctx, h.history.Messages()); err != nil {
		h.logger.Error().Err(err).Int("history", h.history.Len()).Msg("Failed to save chat history")
	}

	h.broadcast(chatMessage{Type: TypeChat, ChatMessage: entry})
}

// handleHostLobby opens or replaces the caller's lobby. An empty password is ignored.
func (h *Hub) handleHostLobby(c *Client, p *Presence, m HostLobby) {
	if m.Password == "" {
		c.logger.Debug().Msg("Ignoring host_lobby without password")
		return
	}

	h.lobbies.Host(c, Lobby{
		Nickname: p.Nickname,
		Password: m.Password,
		Color:    p.Color,
	})
	c.logger.Info().Str("nickname", p.Nickname).Int("lobbies", h.lobbies.Len()).Msg("Lobby hosted.")

	h.broadcastLobbyList()
}

// truncateRunes cuts s to at most n characters.
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
