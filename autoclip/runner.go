package autoclip

import (
	"context"
	"log/slog"
	"time"

	"github.com/onnwee/overlayd/telemetry"
)

// Clipper creates a clip of the live stream. The concrete implementation
// talks to the Twitch Helix clips endpoint with a user token carrying
// clips:edit scope; a disabled implementation returns ok=false without
// an error when credentials are missing.
type Clipper interface {
	CreateClip(ctx context.Context) (clipID, editURL string, err error)
}

// Publisher is the subset of the broadcast bus the runner needs.
type Publisher interface {
	Publish(topic string, payload any)
}

// Recorder appends structured events to the persistent event log.
type Recorder interface {
	Record(eventType, username string, data any)
}

// ClipEvent is the payload published on auto_clip.
type ClipEvent struct {
	MessageCount int    `json:"message_count"`
	Trigger      string `json:"trigger"`
	ClipID       string `json:"clip_id,omitempty"`
	EditURL      string `json:"edit_url,omitempty"`
	Created      bool   `json:"created"`
}

// Runner glues the detector to the clip collaborator and the bus.
type Runner struct {
	det     *Detector
	clipper Clipper
	pub     Publisher
	rec     Recorder
}

// NewRunner wires a runner. clipper may be nil when clip creation is
// disabled; detection still publishes auto_clip events with created=false.
func NewRunner(det *Detector, clipper Clipper, pub Publisher, rec Recorder) *Runner {
	return &Runner{det: det, clipper: clipper, pub: pub, rec: rec}
}

// Observe feeds one chat message through the detector and, on fire, creates
// the clip and broadcasts the outcome. The clip call happens after the
// detector has re-armed, so a slow Twitch response only delays this one
// event, never causes a second fire.
func (r *Runner) Observe(ctx context.Context, text string, now time.Time) {
	count, fire := r.det.Observe(text, now)
	if !fire {
		return
	}
	slog.Info("auto-clip triggered", slog.Int("window_count", count))

	trigger := text
	if len(trigger) > 50 {
		trigger = trigger[:50]
	}
	ev := &ClipEvent{MessageCount: count, Trigger: trigger}
	r.createInto(ctx, ev)
	r.pub.Publish("auto_clip", ev)
	if r.rec != nil {
		r.rec.Record("auto_clip", "", map[string]any{"count": count, "clip_id": ev.ClipID})
	}
}

// CreateManual creates a clip outside the detector path (dashboard button or
// !clip command) and broadcasts the outcome. Returns the published event and
// whether the clip was created.
func (r *Runner) CreateManual(ctx context.Context, trigger string) (*ClipEvent, bool) {
	ev := &ClipEvent{MessageCount: 0, Trigger: trigger}
	r.createInto(ctx, ev)
	r.pub.Publish("auto_clip", ev)
	if r.rec != nil && ev.Created {
		r.rec.Record("clip", trigger, map[string]any{"clip_id": ev.ClipID})
	}
	return ev, ev.Created
}

func (r *Runner) createInto(ctx context.Context, ev *ClipEvent) {
	if r.clipper == nil {
		return
	}
	clipID, editURL, err := r.clipper.CreateClip(ctx)
	if err != nil {
		slog.Error("clip creation failed", slog.Any("err", err))
		if telemetry.ClipsFailed != nil {
			telemetry.ClipsFailed.Inc()
		}
		return
	}
	if clipID == "" {
		// Disabled clipper (missing credentials).
		return
	}
	ev.ClipID = clipID
	ev.EditURL = editURL
	ev.Created = true
	if telemetry.ClipsCreated != nil {
		telemetry.ClipsCreated.Inc()
	}
	slog.Info("clip created", slog.String("clip_id", clipID))
}
