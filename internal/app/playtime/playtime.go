/*
Package playtime accrues in-game time per identity and builds the leaderboard.

An Accountant owns the in-memory identity records. It is driven by the hub goroutine
only and is not safe for concurrent use. Every change is written through to the
record store as a whole snapshot; a failed write is logged and retried implicitly by
the next one, since the in-memory records stay authoritative.
*/
package playtime

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"erlobby/internal/app/storage"
	"erlobby/internal/app/user"
	"erlobby/internal/pkg/logx"
)

const (
	// LeaderboardSize is the number of entries returned by Leaderboard.
	LeaderboardSize = 50

	missingNickname = "Anonymous"
	missingCode     = "????"
)

// Entry is one row of the leaderboard.
type Entry struct {
	Nickname        string  `json:"nickname"`
	Code            string  `json:"tripcode"`
	Playtime        string  `json:"playtime"`
	PlaytimeSeconds float64 `json:"playtime_seconds"`
}

// Accountant tracks cumulative playtime and the last known nickname and code of every identity.
type Accountant struct {
	records storage.Records
	store   storage.RecordStore
	logger  zerolog.Logger
}

// NewAccountant returns an Accountant seeded with records that writes through to store.
func NewAccountant(records storage.Records, store storage.RecordStore) *Accountant {
	if records == nil {
		records = storage.Records{}
	}
	return &Accountant{
		records: records,
		store:   store,
		logger:  logx.Component("playtime"),
	}
}

// Accrue settles the time a presence spent in game.
//
// identity, inGame and since describe the presence as it was before the event at now.
// Nothing is added when the presence was not in game, has never been stamped, or belongs
// to the anonymous identity. A negative interval (clock moved backwards) counts as zero.
// The added seconds are returned.
func (a *Accountant) Accrue(ctx context.Context, identity string, inGame bool, since, now time.Time) float64 {
	if !inGame || since.IsZero() || user.IsAnonymous(identity) {
		return 0
	}

	delta := max(now.Sub(since).Seconds(), 0)

	rec := a.records[identity]
	rec.PlaytimeSeconds += delta
	a.records[identity] = rec

	a.logger.Info().
		Str("identity", shortID(identity)).
		Float64("added_seconds", delta).
		Float64("total_seconds", rec.PlaytimeSeconds).
		Msg("Playtime accrued")

	a.persist(ctx)
	return delta
}

// Touch records the latest nickname and code of identity. The anonymous identity is ignored.
func (a *Accountant) Touch(ctx context.Context, identity, nickname, code string) {
	if user.IsAnonymous(identity) {
		return
	}

	rec := a.records[identity]
	rec.Nickname = nickname
	rec.Code = code
	a.records[identity] = rec

	a.persist(ctx)
}

// Playtime returns the cumulative seconds of identity, zero when unknown.
func (a *Accountant) Playtime(identity string) float64 {
	return a.records[identity].PlaytimeSeconds
}

// Len returns the number of known identities.
func (a *Accountant) Len() int {
	return len(a.records)
}

// Leaderboard returns the limit identities with the most playtime, most first.
// Ties are ordered by identity id so the result is stable.
func (a *Accountant) Leaderboard(limit int) []Entry {
	return Leaderboard(a.records, limit)
}

// Leaderboard ranks records by playtime. It is shared with the offline CLI.
func Leaderboard(records storage.Records, limit int) []Entry {
	type candidate struct {
		id  string
		rec storage.IdentityRecord
	}

	candidates := make([]candidate, 0, len(records))
	for id, rec := range records {
		if rec.PlaytimeSeconds >= 0 {
			candidates = append(candidates, candidate{id: id, rec: rec})
		}
	}

	slices.SortFunc(candidates, func(x, y candidate) int {
		if c := cmp.Compare(y.rec.PlaytimeSeconds, x.rec.PlaytimeSeconds); c != 0 {
			return c
		}
		return cmp.Compare(x.id, y.id)
	})

	if limit >= 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	entries := make([]Entry, 0, len(candidates))
	for _, c := range candidates {
		nickname := c.rec.Nickname
		if nickname == "" {
			nickname = missingNickname
		}
		code := c.rec.Code
		if code == "" {
			code = missingCode
		}

		entries = append(entries, Entry{
			Nickname:        nickname,
			Code:            code,
			Playtime:        Format(c.rec.PlaytimeSeconds),
			PlaytimeSeconds: c.rec.PlaytimeSeconds,
		})
	}
	return entries
}

// Format renders seconds for display: whole seconds under a minute, whole minutes
// under an hour, and hours with one decimal otherwise.
func Format(seconds float64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", int64(seconds))
	case seconds < 3600:
		return fmt.Sprintf("%dm", int64(seconds/60))
	default:
		return fmt.Sprintf("%.1fh", seconds/3600)
	}
}

// persist writes the full record snapshot. Failures keep the in-memory state.
func (a *Accountant) persist(ctx context.Context) {
	if a.store == nil {
		return
	}
	if err := a.store.SaveRecords(ctx, a.records); err != nil {
		a.logger.Error().Err(err).Int("records", len(a.records)).Msg("Failed to save user records")
	}
}

// shortID keeps log lines from carrying full identity ids.
func shortID(identity string) string {
	if len(identity) > 8 {
		return identity[:8]
	}
	return identity
}
