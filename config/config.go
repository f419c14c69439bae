// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required credentials (e.g., Twitch chat), use ValidateChatReady.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Twitch
	TwitchChannel      string
	TwitchBotUsername  string
	TwitchOAuthToken   string
	TwitchClientID     string
	TwitchClientSecret string
	// TwitchRefreshToken is a user refresh token carrying clips:edit; clip
	// creation is disabled without it.
	TwitchRefreshToken string

	// HTTP server
	HTTPAddr string

	// OBS websocket, plus the companion-API fallback
	OBSHost         string
	OBSPort         int
	OBSPassword     string
	FallbackEnabled bool
	FallbackBaseURL string

	// Soundboard
	SoundboardDir      string
	SoundboardCooldown time.Duration

	// Chaos effects
	ChaosCooldown time.Duration

	// Auto-clip detection
	ClipThreshold    int
	ClipWindow       time.Duration
	ClipQuietPeriod  time.Duration
	ClipTriggerWords []string

	// Subtitles overlay defaults
	SubtitleFontFamily string
	SubtitleFontSize   int
	SubtitleTextColor  string
	SubtitleBGColor    string
	SubtitleBGOpacity  float64

	// Keyboard capture
	KeyboardCaptureEnabled bool

	// Twitch event polling
	PollInterval time.Duration

	// Event log storage
	DBPath string
}

// Load reads environment variables and applies defaults. It doesn't fail if
// Twitch creds are missing; missing optional variables disable features
// (chat, polling, clip creation) rather than stopping the process.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TwitchChannel = os.Getenv("TWITCH_CHANNEL")
	cfg.TwitchBotUsername = os.Getenv("TWITCH_BOT_USERNAME")
	cfg.TwitchOAuthToken = os.Getenv("TWITCH_OAUTH_TOKEN")
	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")
	cfg.TwitchRefreshToken = os.Getenv("TWITCH_REFRESH_TOKEN")

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":5555"
	}

	// OBS_HOST set to an empty value disables direct control; only an
	// unset variable takes the localhost default.
	if host, ok := os.LookupEnv("OBS_HOST"); ok {
		cfg.OBSHost = host
	} else {
		cfg.OBSHost = "localhost"
	}
	cfg.OBSPort = envInt("OBS_PORT", 4455)
	cfg.OBSPassword = os.Getenv("OBS_PASSWORD")
	cfg.FallbackEnabled = envBool("OBS_FALLBACK_ENABLED", true)
	cfg.FallbackBaseURL = os.Getenv("OBS_FALLBACK_BASE_URL")
	if cfg.FallbackBaseURL == "" {
		cfg.FallbackBaseURL = "http://127.0.0.1:3199"
	}

	cfg.SoundboardDir = os.Getenv("SOUNDBOARD_DIR")
	if cfg.SoundboardDir == "" {
		cfg.SoundboardDir = "static/sounds/soundboard"
	}
	cfg.SoundboardCooldown = envDuration("SOUNDBOARD_COOLDOWN", 5*time.Second)
	cfg.ChaosCooldown = envDuration("CHAOS_COOLDOWN", 15*time.Second)

	cfg.ClipThreshold = envInt("CLIP_SPAM_THRESHOLD", 15)
	cfg.ClipWindow = envDuration("CLIP_WINDOW", 10*time.Second)
	cfg.ClipQuietPeriod = envDuration("CLIP_QUIET_PERIOD", 30*time.Second)
	if v := os.Getenv("CLIP_TRIGGER_WORDS"); v != "" {
		for _, w := range strings.Split(v, ",") {
			if w = strings.TrimSpace(w); w != "" {
				cfg.ClipTriggerWords = append(cfg.ClipTriggerWords, w)
			}
		}
	} else {
		cfg.ClipTriggerWords = []string{"CLIP", "clip", "POGGERS", "POG", "LUL", "LMAO", "OMEGALUL"}
	}

	cfg.SubtitleFontFamily = os.Getenv("SUBTITLE_DEFAULT_FONT_FAMILY")
	if cfg.SubtitleFontFamily == "" {
		cfg.SubtitleFontFamily = "Inter, Segoe UI, sans-serif"
	}
	cfg.SubtitleFontSize = envInt("SUBTITLE_DEFAULT_FONT_SIZE", 56)
	cfg.SubtitleTextColor = os.Getenv("SUBTITLE_DEFAULT_TEXT_COLOR")
	if cfg.SubtitleTextColor == "" {
		cfg.SubtitleTextColor = "#ffffff"
	}
	cfg.SubtitleBGColor = os.Getenv("SUBTITLE_DEFAULT_BG_COLOR")
	if cfg.SubtitleBGColor == "" {
		cfg.SubtitleBGColor = "#000000"
	}
	cfg.SubtitleBGOpacity = envFloat("SUBTITLE_DEFAULT_BG_OPACITY", 0.45)

	cfg.KeyboardCaptureEnabled = envBool("KEYBOARD_CAPTURE_ENABLED", true)
	cfg.PollInterval = envDuration("TWITCH_POLL_INTERVAL", 15*time.Second)

	cfg.DBPath = os.Getenv("DB_PATH")
	if cfg.DBPath == "" {
		cfg.DBPath = "data/events.db"
	}

	return cfg, nil
}

// OBSAddr is the websocket host:port, or empty when OBS_HOST is explicitly
// blanked to disable direct control.
func (c *Config) OBSAddr() string {
	if c.OBSHost == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.OBSHost, c.OBSPort)
}

// ValidateChatReady checks required fields when the chat listener is wanted.
func (c *Config) ValidateChatReady() error {
	if c.TwitchChannel == "" || c.TwitchBotUsername == "" || c.TwitchOAuthToken == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_CHANNEL, TWITCH_BOT_USERNAME, TWITCH_OAUTH_TOKEN")
	}
	return nil
}

// PollingReady reports whether Helix polling has the credentials it needs.
func (c *Config) PollingReady() bool {
	return c.TwitchChannel != "" && c.TwitchClientID != "" && c.TwitchClientSecret != ""
}

func envInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(name string, fallback float64) float64 {
	if v := os.Getenv(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(name string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
