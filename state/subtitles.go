package state

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxSubtitleLen bounds displayed subtitle text.
const maxSubtitleLen = 220

var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// SubtitleState is the subtitle_update payload: the single current line.
// Overwritten wholesale on every push; no history is kept.
type SubtitleState struct {
	Text      string    `json:"text"`
	Final     bool      `json:"final"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubtitleSettings is the subtitle_settings payload: overlay styling.
type SubtitleSettings struct {
	FontFamily        string    `json:"font_family"`
	FontSizePx        int       `json:"font_size_px"`
	TextColor         string    `json:"text_color"`
	BackgroundColor   string    `json:"background_color"`
	BackgroundOpacity float64   `json:"background_opacity"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DefaultSubtitleSettings returns the built-in styling used when config
// supplies nothing better.
func DefaultSubtitleSettings() SubtitleSettings {
	return SubtitleSettings{
		FontFamily:        "Inter, Segoe UI, sans-serif",
		FontSizePx:        56,
		TextColor:         "#ffffff",
		BackgroundColor:   "#000000",
		BackgroundOpacity: 0.45,
	}
}

// Subtitles owns the live subtitle line and its display settings.
type Subtitles struct {
	pub Publisher

	mu       sync.Mutex
	state    SubtitleState
	settings SubtitleSettings
}

// NewSubtitles seeds the settings from defaults, sanitizing each field so a
// bad config value falls back to the built-in rather than poisoning state.
func NewSubtitles(pub Publisher, defaults SubtitleSettings) *Subtitles {
	base := DefaultSubtitleSettings()
	s := &Subtitles{pub: pub}
	s.settings = SubtitleSettings{
		FontFamily:        sanitizeFontFamily(defaults.FontFamily, base.FontFamily),
		FontSizePx:        clampFontSize(defaults.FontSizePx, base.FontSizePx),
		TextColor:         sanitizeHexColor(defaults.TextColor, base.TextColor),
		BackgroundColor:   sanitizeHexColor(defaults.BackgroundColor, base.BackgroundColor),
		BackgroundOpacity: clampOpacity(defaults.BackgroundOpacity),
		UpdatedAt:         nowUTC(),
	}
	s.state.Final = true
	s.state.UpdatedAt = s.settings.UpdatedAt
	return s
}

// State returns the current subtitle line.
func (s *Subtitles) State() SubtitleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Settings returns the current styling.
func (s *Subtitles) Settings() SubtitleSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetText normalizes internal whitespace to single spaces, trims, truncates
// to 220 characters and stores the line. The empty string is valid and
// clears the overlay. Always publishes subtitle_update.
func (s *Subtitles) SetText(text string, final bool) SubtitleState {
	normalized := strings.Join(strings.Fields(text), " ")
	if runes := []rune(normalized); len(runes) > maxSubtitleLen {
		normalized = strings.TrimRight(string(runes[:maxSubtitleLen]), " ")
	}

	s.mu.Lock()
	s.state = SubtitleState{Text: normalized, Final: final, UpdatedAt: nowUTC()}
	snap := s.state
	s.mu.Unlock()

	s.pub.Publish("subtitle_update", snap)
	return snap
}

// UpdateSettings merges recognized, individually validated fields from a
// partial update. Unknown keys and invalid values are dropped silently; a
// dropped field keeps its previous value, never a hardcoded default. Always
// republishes the full settings snapshot.
func (s *Subtitles) UpdateSettings(partial map[string]any) SubtitleSettings {
	s.mu.Lock()
	if v, ok := partial["font_family"]; ok {
		if fam, ok := v.(string); ok {
			s.settings.FontFamily = sanitizeFontFamily(fam, s.settings.FontFamily)
		}
	}
	if v, ok := partial["font_size_px"]; ok {
		if n, ok := asInt(v); ok {
			s.settings.FontSizePx = clampFontSize(n, s.settings.FontSizePx)
		}
	}
	if v, ok := partial["text_color"]; ok {
		if c, ok := v.(string); ok {
			s.settings.TextColor = sanitizeHexColor(c, s.settings.TextColor)
		}
	}
	if v, ok := partial["background_color"]; ok {
		if c, ok := v.(string); ok {
			s.settings.BackgroundColor = sanitizeHexColor(c, s.settings.BackgroundColor)
		}
	}
	if v, ok := partial["background_opacity"]; ok {
		if f, ok := asFloat(v); ok {
			s.settings.BackgroundOpacity = clampOpacity(f)
		}
	}
	s.settings.UpdatedAt = nowUTC()
	snap := s.settings
	s.mu.Unlock()

	s.pub.Publish("subtitle_settings", snap)
	return snap
}

func sanitizeHexColor(value, fallback string) string {
	candidate := strings.TrimSpace(value)
	if hexColorRe.MatchString(candidate) {
		return strings.ToLower(candidate)
	}
	return fallback
}

func sanitizeFontFamily(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var b strings.Builder
	for _, ch := range trimmed {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			b.WriteRune(ch)
		case ch == ' ', ch == ',', ch == '-', ch == '\'', ch == '"':
			b.WriteRune(ch)
		}
	}
	safe := strings.Join(strings.Fields(b.String()), " ")
	if safe == "" {
		return fallback
	}
	if runes := []rune(safe); len(runes) > 96 {
		safe = string(runes[:96])
	}
	return safe
}

func clampFontSize(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	if v < 18 {
		return 18
	}
	if v > 140 {
		return 140
	}
	return v
}

func clampOpacity(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	// Two decimal places match what the overlay CSS consumes.
	return float64(int(v*100+0.5)) / 100
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
