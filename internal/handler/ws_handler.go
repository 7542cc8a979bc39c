/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which upgrades the HTTP connection to WebSocket,
registers the connection with the hub and runs its message loops until it closes.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"erlobby/internal/app/chat"
	"erlobby/internal/pkg/limiter"
	"erlobby/internal/pkg/logx"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// Any client may connect; identity is whatever the client later claims in its frames.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r.RemoteAddr)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Warn("Failed to upgrade connection to WebSocket", "error", err.Error(), "remote_ip", logx.AnonymizeIP(ip))
			return
		}

		client := chat.NewClient(deps.Hub, conn, ip)

		if err := deps.Hub.Register(client); err != nil {
			logx.Warn("WebSocket connection rejected: hub is not running", "client_id", client.ID)
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			_ = conn.Close()
			return
		}

		go client.WritePump()

		client.ReadPump()
	}
}
