// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	EventsPublished    *prometheus.CounterVec
	EventsDropped      *prometheus.CounterVec
	SoundboardPlays    prometheus.Counter
	ChaosTriggers      prometheus.Counter
	CooldownRejections prometheus.Counter
	ClipsCreated       prometheus.Counter
	ClipsFailed        prometheus.Counter
	ChatMessages       prometheus.Counter
	PollCycles         prometheus.Counter

	// Histograms (seconds)
	MixerCallDuration prometheus.Observer
	PollCycleDuration prometheus.Observer

	// Gauges
	SubscribersGauge prometheus.Gauge
	ViewersGauge     prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{Name: "overlay_events_published_total", Help: "Events published on the broadcast bus by topic"}, []string{"topic"})
		EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{Name: "overlay_events_dropped_total", Help: "Events dropped for slow subscribers by topic"}, []string{"topic"})
		SoundboardPlays = promauto.NewCounter(prometheus.CounterOpts{Name: "overlay_soundboard_plays_total", Help: "Soundboard sounds admitted and played"})
		ChaosTriggers = promauto.NewCounter(prometheus.CounterOpts{Name: "overlay_chaos_triggers_total", Help: "Chaos presets admitted and triggered"})
		CooldownRejections = promauto.NewCounter(prometheus.CounterOpts{Name: "overlay_cooldown_rejections_total", Help: "Trigger requests rejected by a cooldown gate"})
		ClipsCreated = promauto.NewCounter(prometheus.CounterOpts{Name: "overlay_clips_created_total", Help: "Twitch clips successfully created"})
		ClipsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "overlay_clips_failed_total", Help: "Twitch clip creation attempts that failed"})
		ChatMessages = promauto.NewCounter(prometheus.CounterOpts{Name: "overlay_chat_messages_total", Help: "Chat messages ingested from the IRC listener"})
		PollCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "overlay_poll_cycles_total", Help: "Completed Helix poll cycles"})
		MixerCallDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "overlay_mixer_call_duration_seconds", Help: "Mixer control call duration seconds", Buckets: prometheus.DefBuckets})
		PollCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "overlay_poll_cycle_duration_seconds", Help: "Helix poll cycle duration seconds", Buckets: prometheus.DefBuckets})
		SubscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "overlay_subscribers", Help: "Currently connected event subscribers"})
		ViewersGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "overlay_viewers", Help: "Last polled viewer count"})
	})
}

// CountEventPublished bumps the publish counter for a topic (nil-safe before Init).
func CountEventPublished(topic string) {
	if EventsPublished != nil {
		EventsPublished.WithLabelValues(topic).Inc()
	}
}

// CountEventDropped bumps the drop counter for a topic (nil-safe before Init).
func CountEventDropped(topic string) {
	if EventsDropped != nil {
		EventsDropped.WithLabelValues(topic).Inc()
	}
}

// SetSubscriberCount records the current number of connected subscribers.
func SetSubscriberCount(n int) {
	if SubscribersGauge != nil {
		SubscribersGauge.Set(float64(n))
	}
}

// SetViewers records the last polled viewer count.
func SetViewers(n int) {
	if ViewersGauge != nil {
		ViewersGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
