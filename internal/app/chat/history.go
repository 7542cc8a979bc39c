package chat

import "erlobby/internal/app/storage"

// MaxHistory is the number of chat messages kept for late joiners.
const MaxHistory = 100

// History is the bounded chat backlog, oldest message first.
type History struct {
	messages []storage.ChatMessage
	limit    int
}

// NewHistory returns a History holding at most limit messages, seeded with the newest of seed.
func NewHistory(limit int, seed []storage.ChatMessage) *History {
	if len(seed) > limit {
		seed = seed[len(seed)-limit:]
	}

	messages := make([]storage.ChatMessage, len(seed), limit+1)
	copy(messages, seed)

	return &History{messages: messages, limit: limit}
}

// Append adds m and evicts the oldest message once the limit is exceeded.
// It reports whether a message was evicted.
func (h *History) Append(m storage.ChatMessage) bool {
	h.messages = append(h.messages, m)
	if len(h.messages) <= h.limit {
		return false
	}

	copy(h.messages, h.messages[1:])
	h.messages = h.messages[:len(h.messages)-1]
	return true
}

// Len returns the number of stored messages.
func (h *History) Len() int {
	return len(h.messages)
}

// Messages returns a copy of the backlog, oldest first. The result is never nil.
func (h *History) Messages() []storage.ChatMessage {
	out := make([]storage.ChatMessage, len(h.messages))
	copy(out, h.messages)
	return out
}
