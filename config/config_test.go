package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.HTTPAddr != ":5555" {
		t.Errorf("HTTPAddr = %q, want :5555", cfg.HTTPAddr)
	}
	if cfg.OBSAddr() != "localhost:4455" {
		t.Errorf("OBSAddr() = %q", cfg.OBSAddr())
	}
	if !cfg.FallbackEnabled {
		t.Error("fallback should default to enabled")
	}
	if cfg.ClipThreshold != 15 || cfg.ClipWindow != 10*time.Second || cfg.ClipQuietPeriod != 30*time.Second {
		t.Errorf("clip defaults = %d/%v/%v", cfg.ClipThreshold, cfg.ClipWindow, cfg.ClipQuietPeriod)
	}
	if len(cfg.ClipTriggerWords) == 0 {
		t.Error("expected default trigger words")
	}
	if cfg.SoundboardCooldown != 5*time.Second || cfg.ChaosCooldown != 15*time.Second {
		t.Errorf("cooldown defaults = %v/%v", cfg.SoundboardCooldown, cfg.ChaosCooldown)
	}
	if cfg.SubtitleFontSize != 56 || cfg.SubtitleBGOpacity != 0.45 {
		t.Errorf("subtitle defaults = %d/%v", cfg.SubtitleFontSize, cfg.SubtitleBGOpacity)
	}
	if !cfg.KeyboardCaptureEnabled {
		t.Error("keyboard capture should default to enabled")
	}
	if cfg.PollInterval != 15*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CLIP_SPAM_THRESHOLD", "20")
	t.Setenv("CLIP_WINDOW", "30s")
	t.Setenv("CLIP_TRIGGER_WORDS", "KEKW, W ,")
	t.Setenv("OBS_FALLBACK_ENABLED", "off")
	t.Setenv("SOUNDBOARD_COOLDOWN", "2s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ClipThreshold != 20 || cfg.ClipWindow != 30*time.Second {
		t.Errorf("clip overrides = %d/%v", cfg.ClipThreshold, cfg.ClipWindow)
	}
	if len(cfg.ClipTriggerWords) != 2 || cfg.ClipTriggerWords[0] != "KEKW" || cfg.ClipTriggerWords[1] != "W" {
		t.Errorf("trigger words = %v", cfg.ClipTriggerWords)
	}
	if cfg.FallbackEnabled {
		t.Error("OBS_FALLBACK_ENABLED=off not honored")
	}
	if cfg.SoundboardCooldown != 2*time.Second {
		t.Errorf("SoundboardCooldown = %v", cfg.SoundboardCooldown)
	}
}

func TestBlankOBSHostDisablesDirectControl(t *testing.T) {
	t.Setenv("OBS_HOST", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.OBSAddr() != "" {
		t.Errorf("OBSAddr() = %q, want empty for blanked OBS_HOST", cfg.OBSAddr())
	}
}

func TestInvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("CLIP_SPAM_THRESHOLD", "banana")
	t.Setenv("SUBTITLE_DEFAULT_BG_OPACITY", "opaque")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ClipThreshold != 15 {
		t.Errorf("ClipThreshold = %d, want default on bad input", cfg.ClipThreshold)
	}
	if cfg.SubtitleBGOpacity != 0.45 {
		t.Errorf("SubtitleBGOpacity = %v, want default on bad input", cfg.SubtitleBGOpacity)
	}
}

func TestValidateChatReady(t *testing.T) {
	t.Setenv("TWITCH_CHANNEL", "chan")
	t.Setenv("TWITCH_BOT_USERNAME", "bot")
	t.Setenv("TWITCH_OAUTH_TOKEN", "oauth:token")
	cfg, _ := Load()
	if err := cfg.ValidateChatReady(); err != nil {
		t.Errorf("expected valid chat config, got %v", err)
	}
	if err := os.Unsetenv("TWITCH_CHANNEL"); err != nil {
		t.Fatalf("failed to unset TWITCH_CHANNEL: %v", err)
	}
	cfg, _ = Load()
	if err := cfg.ValidateChatReady(); err == nil {
		t.Errorf("expected error when missing twitch envs")
	}
}

func TestPollingReady(t *testing.T) {
	t.Setenv("TWITCH_CHANNEL", "chan")
	t.Setenv("TWITCH_CLIENT_ID", "id")
	t.Setenv("TWITCH_CLIENT_SECRET", "secret")
	cfg, _ := Load()
	if !cfg.PollingReady() {
		t.Error("expected polling ready")
	}
	t.Setenv("TWITCH_CLIENT_SECRET", "")
	cfg, _ = Load()
	if cfg.PollingReady() {
		t.Error("polling ready without secret")
	}
}
