package chat

import (
	"encoding/json"
	"errors"
	"fmt"

	"erlobby/internal/app/playtime"
	"erlobby/internal/app/storage"
	"erlobby/internal/app/user"
)

// MessageType is the value of the "type" field of every frame.
type MessageType string

// Inbound message types.
const (
	TypeStatusUpdate       MessageType = "status_update"
	TypeChat               MessageType = "chat"
	TypeRequestHistory     MessageType = "request_history"
	TypeRequestPlayerList  MessageType = "request_player_list"
	TypeHostLobby          MessageType = "host_lobby"
	TypeRequestLobbies     MessageType = "request_lobbies"
	TypeRequestLeaderboard MessageType = "request_leaderboard"
)

// Outbound message types. TypeChat is used in both directions.
const (
	TypeUserCount   MessageType = "user_count"
	TypePlayerList  MessageType = "player_list"
	TypeLobbyList   MessageType = "lobby_list"
	TypeHistory     MessageType = "history"
	TypeLeaderboard MessageType = "leaderboard"
)

const (
	// DefaultModpack is the modpack of a connection that has not introduced itself.
	DefaultModpack = "Vanilla"

	// DefaultGameMode is the game mode of a connection that has not introduced itself.
	DefaultGameMode = "Online"
)

// ErrUnknownType is returned by DecodeInbound for frames whose type is not recognised.
var ErrUnknownType = errors.New("chat: unknown message type")

// Inbound is one decoded client frame. The set of implementations is closed.
type Inbound interface {
	Type() MessageType
}

// StatusUpdate replaces the sender's presence. Missing fields take their defaults.
type StatusUpdate struct {
	Nickname string `json:"nickname"`
	Modpack  string `json:"modpack"`
	InGame   bool   `json:"in_game"`
	GameMode string `json:"game_mode"`
	UserID   string `json:"user_id"`
}

// ChatSend posts a chat message. Missing optional presence fields keep their previous values.
type ChatSend struct {
	Nickname string  `json:"nickname"`
	Message  string  `json:"message"`
	UserID   string  `json:"user_id"`
	Modpack  *string `json:"modpack"`
	InGame   *bool   `json:"in_game"`
	GameMode *string `json:"game_mode"`
}

// HostLobby advertises the sender's lobby.
type HostLobby struct {
	Password string `json:"password"`
}

// RequestHistory asks for the chat backlog.
type RequestHistory struct{}

// RequestPlayerList asks for the roster.
type RequestPlayerList struct{}

// RequestLobbies asks for the lobby list to be sent to everyone.
type RequestLobbies struct{}

// RequestLeaderboard asks for the playtime leaderboard.
type RequestLeaderboard struct{}

func (StatusUpdate) Type() MessageType       { return TypeStatusUpdate }
func (ChatSend) Type() MessageType           { return TypeChat }
func (HostLobby) Type() MessageType          { return TypeHostLobby }
func (RequestHistory) Type() MessageType     { return TypeRequestHistory }
func (RequestPlayerList) Type() MessageType  { return TypeRequestPlayerList }
func (RequestLobbies) Type() MessageType     { return TypeRequestLobbies }
func (RequestLeaderboard) Type() MessageType { return TypeRequestLeaderboard }

// DecodeInbound parses a client frame into its typed message.
// Absent or null fields take the documented defaults; fields of the wrong JSON type
// make the whole frame invalid.
func DecodeInbound(data []byte) (Inbound, error) {
	var envelope struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}

	var msg Inbound
	switch envelope.Type {
	case TypeStatusUpdate:
		m := StatusUpdate{
			Nickname: user.DefaultNickname,
			Modpack:  DefaultModpack,
			GameMode: DefaultGameMode,
			UserID:   user.Anonymous,
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", envelope.Type, err)
		}
		msg = m

	case TypeChat:
		m := ChatSend{
			Nickname: user.DefaultNickname,
			UserID:   user.Anonymous,
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", envelope.Type, err)
		}
		msg = m

	case TypeHostLobby:
		var m HostLobby
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", envelope.Type, err)
		}
		msg = m

	case TypeRequestHistory:
		msg = RequestHistory{}
	case TypeRequestPlayerList:
		msg = RequestPlayerList{}
	case TypeRequestLobbies:
		msg = RequestLobbies{}
	case TypeRequestLeaderboard:
		msg = RequestLeaderboard{}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, envelope.Type)
	}

	return msg, nil
}

// PlayerEntry is one roster row.
type PlayerEntry struct {
	Nickname string `json:"nickname"`
	Modpack  string `json:"modpack"`
	InGame   bool   `json:"in_game"`
	GameMode string `json:"game_mode"`
	Color    string `json:"color"`
	Code     string `json:"tripcode"`
	Playtime string `json:"playtime"`
}

type userCountMessage struct {
	Type  MessageType `json:"type"`
	Count int         `json:"count"`
}

type playerListMessage struct {
	Type    MessageType   `json:"type"`
	Players []PlayerEntry `json:"players"`
}

type lobbyListMessage struct {
	Type    MessageType `json:"type"`
	Lobbies []Lobby     `json:"lobbies"`
}

type historyMessage struct {
	Type     MessageType           `json:"type"`
	Messages []storage.ChatMessage `json:"messages"`
}

type chatMessage struct {
	Type MessageType `json:"type"`
	storage.ChatMessage
}

type leaderboardMessage struct {
	Type    MessageType      `json:"type"`
	Entries []playtime.Entry `json:"entries"`
}
