package handler

import (
	"erlobby/internal/app/chat"
	"erlobby/internal/configs"
)

// AppDeps holds what the HTTP layer needs from the rest of the server.
type AppDeps struct {
	Hub    *chat.Hub
	Config *configs.AppConfig
}
