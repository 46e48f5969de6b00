package sessions

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxHistory bounds the transcript kept per session.
	MaxHistory = 20
	// ContextWindow is how many recent user/assistant messages the dialogue agent sees.
	ContextWindow = 10
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// History is a bounded, append-only transcript. Oldest messages are evicted first.
type History struct {
	mu    sync.RWMutex
	limit int
	items []Message
	now   func() time.Time
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = MaxHistory
	}
	return &History{limit: limit, now: time.Now}
}

func (h *History) Append(role Role, content string) Message {
	msg := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: h.now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = append(h.items, msg)
	if over := len(h.items) - h.limit; over > 0 {
		h.items = append([]Message(nil), h.items[over:]...)
	}
	return msg
}

// Messages returns a copy in insertion order.
func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Message(nil), h.items...)
}

// Context returns the last n user and assistant messages. System notices stay local.
func (h *History) Context(n int) []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Message, 0, n)
	for i := len(h.items) - 1; i >= 0 && len(out) < n; i-- {
		if h.items[i].Role == RoleSystem {
			continue
		}
		out = append(out, h.items[i])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}

func (h *History) Clear() {
	h.mu.Lock()
	h.items = nil
	h.mu.Unlock()
}
