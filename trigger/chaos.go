package trigger

import (
	"log/slog"
	"time"

	"github.com/onnwee/overlayd/telemetry"
)

// chaosGlobalKey gates all chaos presets together: only one visual effect
// may run at a time, regardless of which preset is requested.
const chaosGlobalKey = "_global"

// ChaosPreset describes one full-screen overlay effect.
type ChaosPreset struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Effect      string `json:"effect"`
	Duration    int    `json:"duration"`
	Description string `json:"description"`
}

// ChaosTrigger is the payload published on chaos_trigger.
type ChaosTrigger struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Effect      string `json:"effect"`
	Duration    int    `json:"duration"`
	Description string `json:"description"`
	TriggeredBy string `json:"triggeredBy"`
}

// Chaos holds the fixed preset catalog behind the shared global gate.
type Chaos struct {
	pub      Publisher
	rec      Recorder
	gate     *Gate
	cooldown time.Duration
	now      func() time.Time

	presets map[string]ChaosPreset
	order   []string
}

// NewChaos builds the hardcoded preset catalog.
func NewChaos(cooldown time.Duration, pub Publisher, rec Recorder) *Chaos {
	c := &Chaos{
		pub:      pub,
		rec:      rec,
		gate:     NewGate(),
		cooldown: cooldown,
		now:      time.Now,
		presets:  make(map[string]ChaosPreset),
	}
	for _, p := range []ChaosPreset{
		{Slug: "disco", Name: "Disco Mode", Icon: "🪩", Effect: "disco", Duration: 8000, Description: "Flashing rainbow lights!"},
		{Slug: "earthquake", Name: "Earthquake", Icon: "🌋", Effect: "shake", Duration: 5000, Description: "Screen shake chaos!"},
		{Slug: "confetti", Name: "Confetti", Icon: "🎉", Effect: "confetti", Duration: 6000, Description: "Party confetti explosion!"},
		{Slug: "matrix", Name: "Matrix Rain", Icon: "💊", Effect: "matrix", Duration: 8000, Description: "Digital rain effect!"},
		{Slug: "rave", Name: "Rave Mode", Icon: "🔊", Effect: "rave", Duration: 10000, Description: "Strobing neon lights + bass!"},
		{Slug: "glitch", Name: "Glitch", Icon: "📺", Effect: "glitch", Duration: 4000, Description: "VHS glitch distortion!"},
		{Slug: "hearts", Name: "Heart Rain", Icon: "❤️", Effect: "hearts", Duration: 6000, Description: "Falling hearts everywhere!"},
		{Slug: "jumpscare", Name: "Jumpscare", Icon: "👻", Effect: "jumpscare", Duration: 2000, Description: "A spooky surprise!"},
	} {
		c.presets[p.Slug] = p
		c.order = append(c.order, p.Slug)
	}
	return c
}

// Presets returns the catalog in stable order.
func (c *Chaos) Presets() []ChaosPreset {
	out := make([]ChaosPreset, 0, len(c.order))
	for _, slug := range c.order {
		out = append(out, c.presets[slug])
	}
	return out
}

// Cooldown returns the shared cooldown window.
func (c *Chaos) Cooldown() time.Duration { return c.cooldown }

// Trigger admits the preset through the shared global gate and, on success,
// publishes chaos_trigger and records the event. A trigger of any preset
// starts the cooldown for all of them.
func (c *Chaos) Trigger(slug, triggeredBy string) (*ChaosTrigger, error) {
	preset, ok := c.presets[slug]
	if !ok {
		return nil, ErrNotFound
	}
	if !c.gate.TryAdmit(chaosGlobalKey, c.cooldown, c.now()) {
		if telemetry.CooldownRejections != nil {
			telemetry.CooldownRejections.Inc()
		}
		return nil, ErrCoolingDown
	}

	payload := &ChaosTrigger{
		Slug:        preset.Slug,
		Name:        preset.Name,
		Icon:        preset.Icon,
		Effect:      preset.Effect,
		Duration:    preset.Duration,
		Description: preset.Description,
		TriggeredBy: triggeredBy,
	}
	c.pub.Publish("chaos_trigger", payload)
	if c.rec != nil {
		c.rec.Record("chaos", triggeredBy, map[string]any{"preset": slug})
	}
	if telemetry.ChaosTriggers != nil {
		telemetry.ChaosTriggers.Inc()
	}
	slog.Info("chaos trigger", slog.String("preset", preset.Name), slog.String("triggered_by", triggeredBy))
	return payload, nil
}
