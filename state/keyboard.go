package state

import (
	"sort"
	"sync"
	"time"
)

// KeyboardStatus is the keyboard_status payload: whether global key capture
// is configured, whether the hook actually attached, and the last failure.
type KeyboardStatus struct {
	Enabled      bool      `json:"enabled"`
	Available    bool      `json:"available"`
	Active       bool      `json:"active"`
	LastError    string    `json:"last_error,omitempty"`
	PressedCount int       `json:"pressed_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// KeyEvent is the keyboard_event payload for an edge-triggered press or
// release.
type KeyEvent struct {
	Action string    `json:"action"`
	Key    string    `json:"key"`
	At     time.Time `json:"at"`
}

// Keyboard tracks the set of currently held keys so OS auto-repeat does not
// flood the overlay: a key publishes once on press and once on release.
type Keyboard struct {
	pub Publisher

	mu      sync.Mutex
	status  KeyboardStatus
	pressed map[string]struct{}
}

// NewKeyboard starts with capture reported unavailable until the listener
// calls SetStatus.
func NewKeyboard(pub Publisher) *Keyboard {
	return &Keyboard{pub: pub, pressed: make(map[string]struct{})}
}

// Status returns the capture status with the live held-key count.
func (k *Keyboard) Status() KeyboardStatus {
	k.mu.Lock()
	defer k.mu.Unlock()
	s := k.status
	s.PressedCount = len(k.pressed)
	return s
}

// Pressed returns the held keys in sorted order.
func (k *Keyboard) Pressed() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	keys := make([]string, 0, len(k.pressed))
	for key := range k.pressed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Press records a key going down. Repeat events for a key already held are
// swallowed. Returns whether an event was published.
func (k *Keyboard) Press(key string) bool {
	if key == "" {
		return false
	}
	k.mu.Lock()
	if _, held := k.pressed[key]; held {
		k.mu.Unlock()
		return false
	}
	k.pressed[key] = struct{}{}
	k.mu.Unlock()

	k.pub.Publish("keyboard_event", KeyEvent{Action: "down", Key: key, At: nowUTC()})
	return true
}

// Release records a key going up. Releases for keys not held are swallowed.
func (k *Keyboard) Release(key string) bool {
	if key == "" {
		return false
	}
	k.mu.Lock()
	if _, held := k.pressed[key]; !held {
		k.mu.Unlock()
		return false
	}
	delete(k.pressed, key)
	k.mu.Unlock()

	k.pub.Publish("keyboard_event", KeyEvent{Action: "up", Key: key, At: nowUTC()})
	return true
}

// SetStatus records the listener lifecycle and publishes keyboard_status.
// lastErr may be empty to clear a previous failure.
func (k *Keyboard) SetStatus(enabled, available, active bool, lastErr string) KeyboardStatus {
	k.mu.Lock()
	k.status = KeyboardStatus{
		Enabled:   enabled,
		Available: available,
		Active:    active,
		LastError: lastErr,
		UpdatedAt: nowUTC(),
	}
	s := k.status
	s.PressedCount = len(k.pressed)
	k.mu.Unlock()

	k.pub.Publish("keyboard_status", s)
	return s
}
