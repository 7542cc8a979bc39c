package handler

import (
	"errors"
	"net/http"
	"strconv"

	"erlobby/internal/app/chat"
	"erlobby/internal/app/playtime"
	"erlobby/internal/pkg/errs"
	"erlobby/internal/pkg/resp"
)

// HandleStats reports how many players are online, how many lobbies are open and how
// many chat messages are stored.
func HandleStats(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.Hub.Stats(r.Context())
		if err != nil {
			resp.RespondError(w, r, hubError(err))
			return
		}
		resp.RespondSuccess(w, r, stats)
	}
}

// HandleLeaderboard returns the playtime leaderboard. The optional limit query
// parameter shortens it.
func HandleLeaderboard(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := playtime.LeaderboardSize
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > playtime.LeaderboardSize {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			limit = n
		}

		entries, err := deps.Hub.Leaderboard(r.Context())
		if err != nil {
			resp.RespondError(w, r, hubError(err))
			return
		}

		if len(entries) > limit {
			entries = entries[:limit]
		}
		resp.RespondSuccess(w, r, map[string]any{"entries": entries})
	}
}

// hubError maps a failed hub query to its API error.
func hubError(err error) *errs.CustomError {
	if errors.Is(err, chat.ErrHubStopped) {
		return errs.Wrap(errs.ErrServerUnavailable, err)
	}
	return errs.Wrap(errs.ErrUnknown, err)
}
