package state

import "time"

// Publisher is the subset of the broadcast bus the state store needs.
type Publisher interface {
	Publish(topic string, payload any)
}

// Store bundles the per-entity owners. Each entity guards itself; the Store
// is just the wiring point handed to producers and handlers.
type Store struct {
	Stats     *Stats
	Subtitles *Subtitles
	Avatar    *Avatar
	Goals     *Goals
	Keyboard  *Keyboard
	ChatLog   *ChatLog
}

// New constructs all entity owners against a single publisher.
func New(pub Publisher, subtitleDefaults SubtitleSettings) *Store {
	return &Store{
		Stats:     NewStats(pub),
		Subtitles: NewSubtitles(pub, subtitleDefaults),
		Avatar:    NewAvatar(pub),
		Goals:     NewGoals(pub),
		Keyboard:  NewKeyboard(pub),
		ChatLog:   NewChatLog(200, pub),
	}
}

func nowUTC() time.Time { return time.Now().UTC() }
