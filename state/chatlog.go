package state

import (
	"sync"
	"time"
)

// ChatMessage is the chat_message payload and the replay-ring element.
// Username is the login name; DisplayName is what the overlay renders.
type ChatMessage struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Message     string    `json:"message"`
	Color       string    `json:"color,omitempty"`
	Badges      []string  `json:"badges,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	IsSub       bool      `json:"is_sub"`
	IsMod       bool      `json:"is_mod"`
}

// ChatLog is a fixed-capacity ring of recent chat messages, kept so a
// freshly connected overlay can backfill its chat pane.
type ChatLog struct {
	pub Publisher

	mu   sync.Mutex
	buf  []ChatMessage
	head int
	size int
}

// NewChatLog allocates the ring up front.
func NewChatLog(capacity int, pub Publisher) *ChatLog {
	if capacity <= 0 {
		capacity = 200
	}
	return &ChatLog{pub: pub, buf: make([]ChatMessage, capacity)}
}

// Append records a message, evicting the oldest when full, and publishes
// chat_message.
func (c *ChatLog) Append(msg ChatMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = nowUTC()
	}
	if msg.DisplayName == "" {
		msg.DisplayName = msg.Username
	}
	c.mu.Lock()
	c.buf[c.head] = msg
	c.head = (c.head + 1) % len(c.buf)
	if c.size < len(c.buf) {
		c.size++
	}
	c.mu.Unlock()

	c.pub.Publish("chat_message", msg)
}

// Recent returns up to n messages, oldest first. n <= 0 returns everything
// retained.
func (c *ChatLog) Recent(n int) []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 || n > c.size {
		n = c.size
	}
	out := make([]ChatMessage, 0, n)
	start := c.head - n
	if start < 0 {
		start += len(c.buf)
	}
	for i := 0; i < n; i++ {
		out = append(out, c.buf[(start+i)%len(c.buf)])
	}
	return out
}

// Len reports how many messages are retained.
func (c *ChatLog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}
