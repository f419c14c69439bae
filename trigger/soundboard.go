package trigger

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/onnwee/overlayd/telemetry"
)

var (
	// ErrNotFound reports an unknown sound slug or chaos preset.
	ErrNotFound = errors.New("not found")
	// ErrCoolingDown reports a cooldown rejection. It is a normal
	// control-flow outcome, not a failure.
	ErrCoolingDown = errors.New("on cooldown")
)

// Publisher is the subset of the broadcast bus the trigger package needs.
type Publisher interface {
	Publish(topic string, payload any)
}

// Recorder appends structured events to the persistent event log.
type Recorder interface {
	Record(eventType, username string, data any)
}

// Sound describes one soundboard entry discovered from disk.
type Sound struct {
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	File        string  `json:"file"`
	Icon        string  `json:"icon"`
	Volume      float64 `json:"volume"`
	ChatCommand string  `json:"chatCommand"`
}

// SoundPlay is the payload published on soundboard_play.
type SoundPlay struct {
	Name            string  `json:"name"`
	Slug            string  `json:"slug"`
	File            string  `json:"file"`
	Icon            string  `json:"icon"`
	Volume          float64 `json:"volume"`
	TriggeredBy     string  `json:"triggeredBy"`
	ShowOverlay     bool    `json:"showOverlay"`
	DisplayDuration int     `json:"displayDuration"`
}

// Soundboard holds the sound catalog and gates each slug independently.
type Soundboard struct {
	pub      Publisher
	rec      Recorder
	gate     *Gate
	dir      string
	cooldown time.Duration
	now      func() time.Time

	mu     sync.Mutex
	sounds map[string]Sound
}

var soundExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".ogg": true, ".webm": true,
}

// NewSoundboard scans dir for sound files and builds the catalog. A missing
// directory is created so the operator can drop files in later; the catalog
// is simply empty until then.
func NewSoundboard(dir string, cooldown time.Duration, pub Publisher, rec Recorder) *Soundboard {
	sb := &Soundboard{
		pub:      pub,
		rec:      rec,
		gate:     NewGate(),
		dir:      dir,
		cooldown: cooldown,
		now:      time.Now,
		sounds:   make(map[string]Sound),
	}
	sb.Reload()
	return sb
}

// Reload rescans the soundboard directory, replacing the catalog.
func (sb *Soundboard) Reload() int {
	sounds := make(map[string]Sound)
	if err := os.MkdirAll(sb.dir, 0o755); err != nil {
		slog.Warn("soundboard dir unavailable", slog.String("dir", sb.dir), slog.Any("err", err))
	}
	entries, err := os.ReadDir(sb.dir)
	if err != nil {
		slog.Warn("soundboard scan failed", slog.String("dir", sb.dir), slog.Any("err", err))
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !soundExtensions[ext] {
			continue
		}
		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		slug := Slugify(base)
		sounds[slug] = Sound{
			Name:        titleCase(strings.NewReplacer("-", " ", "_", " ").Replace(base)),
			Slug:        slug,
			File:        "/static/sounds/soundboard/" + e.Name(),
			Icon:        "🔊",
			Volume:      0.7,
			ChatCommand: slug,
		}
	}
	sb.mu.Lock()
	sb.sounds = sounds
	n := len(sounds)
	sb.mu.Unlock()
	slog.Info("soundboard loaded", slog.Int("sounds", n), slog.String("dir", sb.dir))
	return n
}

// Sounds returns a snapshot of the catalog.
func (sb *Soundboard) Sounds() []Sound {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	out := make([]Sound, 0, len(sb.sounds))
	for _, s := range sb.sounds {
		out = append(out, s)
	}
	return out
}

// Play admits the slug through its per-sound cooldown gate and, on success,
// publishes soundboard_play and records the event. Returns ErrNotFound for
// unknown slugs and ErrCoolingDown inside the cooldown window.
func (sb *Soundboard) Play(slug, triggeredBy string) (*SoundPlay, error) {
	sb.mu.Lock()
	sound, ok := sb.sounds[slug]
	sb.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	if !sb.gate.TryAdmit(slug, sb.cooldown, sb.now()) {
		if telemetry.CooldownRejections != nil {
			telemetry.CooldownRejections.Inc()
		}
		return nil, ErrCoolingDown
	}

	payload := &SoundPlay{
		Name:            sound.Name,
		Slug:            sound.Slug,
		File:            sound.File,
		Icon:            sound.Icon,
		Volume:          sound.Volume,
		TriggeredBy:     triggeredBy,
		ShowOverlay:     true,
		DisplayDuration: 3000,
	}
	sb.pub.Publish("soundboard_play", payload)
	if sb.rec != nil {
		sb.rec.Record("soundboard", triggeredBy, map[string]any{"sound": slug})
	}
	if telemetry.SoundboardPlays != nil {
		telemetry.SoundboardPlays.Inc()
	}
	slog.Info("soundboard play", slog.String("sound", sound.Name), slog.String("triggered_by", triggeredBy))
	return payload, nil
}

// Slugify lowercases a name and folds spaces and underscores to dashes,
// matching how chat commands address sounds.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.NewReplacer(" ", "-", "_", "-").Replace(s)
	return s
}

func titleCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = strings.ToUpper(f[:1]) + f[1:]
	}
	return strings.Join(fields, " ")
}
