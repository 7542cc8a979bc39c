/*
Package chat contains the realtime core of the lobby server: connection presence,
the lobby directory, the chat backlog and the hub that fans every change out to
all connected clients.

This file defines the Client struct, representing an active WebSocket connection. It manages the
connection's message loops (ReadPump and WritePump) and hands every inbound frame to the Hub.
*/
package chat

import (
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"erlobby/internal/pkg/logx"
	"erlobby/internal/pkg/randx"
)

// MaxFrameSize is the largest frame (in bytes) read from a client. Over-long chat text
// within it is truncated, not rejected; a bigger frame closes the connection.
const MaxFrameSize = 1 << 20

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10


	// capacity of the per-connection egress queue.
	sendBuffer = 256

	// consecutive failed enqueues after which a connection is pruned.
	maxSendFailures = 3
)

// Client struct represents an active WebSocket connection.
type Client struct {
	// the hub the client is registered with.
	hub *Hub

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// ID identifies the connection in logs.
	ID string

	// IP is the remote address the chat rate limit is keyed on.
	IP string

	// a buffered channel used to queue messages waiting to be sent to the client.
	// Only the hub writes to it and only the hub closes it.
	send chan []byte

	// failures counts consecutive failed enqueues. Owned by the hub goroutine.
	failures int

	// stale is set once the hub has scheduled the client for pruning.
	stale bool

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client for conn that reports to hub.
func NewClient(hub *Hub, conn *websocket.Conn, ip string) *Client {
	id := randx.ConnectionID()

	return &Client{
		hub:  hub,
		conn: conn,
		ID:   id,
		IP:   ip,
		send: make(chan []byte, sendBuffer),
		logger: logx.Component("client").With().
			Str("client_id", id).
			Str("remote_ip", logx.AnonymizeIP(ip)).
			Logger(),
	}
}

// ReadPump handles reading messages from the WebSocket connection.
// It handles heartbeats (Pong), forwards frames to the hub in arrival order, and
// performs cleanup upon connection closure.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(MaxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		if !c.hub.submit(event{kind: eventFrame, client: c, data: messageBytes}) {
			break
		}
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when the client's ReadPump terminates.
// The hub is always told, unless it has already stopped.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.hub.submit(event{kind: eventLeave, client: c})

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// WritePump handles writing messages from the Client.send channel to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Str("panic", fmt.Sprint(r)).Msg("WritePump panicked")
		}

		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage handles messages pulled from the send channel, writing them to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
