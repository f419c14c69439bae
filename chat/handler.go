package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/onnwee/overlayd/autoclip"
	"github.com/onnwee/overlayd/state"
	"github.com/onnwee/overlayd/telemetry"
	"github.com/onnwee/overlayd/trigger"
)

// Message is one inbound chat line, already detached from the IRC transport.
type Message struct {
	Username      string
	DisplayName   string
	Text          string
	Color         string
	Badges        []string
	IsSub         bool
	IsMod         bool
	IsBroadcaster bool
}

// Recorder appends structured events to the persistent event log.
type Recorder interface {
	Record(eventType, username string, data any)
}

// SceneControl is the slice of the mixer facade the !scene command needs.
type SceneControl interface {
	SetScene(ctx context.Context, name string) error
	Scenes(ctx context.Context) ([]string, error)
}

// Handler processes inbound messages and produces replies. It carries no
// transport; the Listener feeds it from IRC and tests feed it directly.
type Handler struct {
	Store      *state.Store
	Runner     *autoclip.Runner
	Soundboard *trigger.Soundboard
	Chaos      *trigger.Chaos
	Mixer      SceneControl
	Rec        Recorder

	// Say sends a reply to the channel. Nil disables replies.
	Say func(text string)
}

// Handle ingests one message: stats, replay ring, event log, clip detection,
// then command dispatch.
func (h *Handler) Handle(ctx context.Context, msg Message) {
	now := time.Now()
	h.Store.Stats.AddMessage()
	h.Store.ChatLog.Append(state.ChatMessage{
		Username:    msg.Username,
		DisplayName: msg.DisplayName,
		Message:     msg.Text,
		Color:       msg.Color,
		Badges:      msg.Badges,
		Timestamp:   now.UTC(),
		IsSub:       msg.IsSub,
		IsMod:       msg.IsMod,
	})
	if telemetry.ChatMessages != nil {
		telemetry.ChatMessages.Inc()
	}
	if h.Rec != nil {
		h.Rec.Record("chat_message", msg.Username, map[string]any{"message": msg.Text})
	}
	if h.Runner != nil {
		h.Runner.Observe(ctx, msg.Text, now)
	}

	if strings.HasPrefix(msg.Text, "!") {
		h.dispatch(ctx, msg)
	}
}

func (h *Handler) reply(text string) {
	if h.Say != nil {
		h.Say(text)
	}
}

func (h *Handler) dispatch(ctx context.Context, msg Message) {
	fields := strings.Fields(msg.Text)
	cmd := strings.ToLower(strings.TrimPrefix(fields[0], "!"))
	arg := ""
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}
	privileged := msg.IsMod || msg.IsBroadcaster

	switch cmd {
	case "scene":
		h.cmdScene(ctx, arg, privileged)
	case "stats":
		h.cmdStats()
	case "uptime":
		h.cmdUptime()
	case "shoutout", "so":
		h.cmdShoutout(arg, privileged)
	case "sound", "sfx":
		h.cmdSound(arg, msg.DisplayName)
	case "chaos":
		h.cmdChaos(arg, msg.DisplayName)
	case "clip":
		h.cmdClip(ctx, msg.DisplayName)
	}
}

func (h *Handler) cmdScene(ctx context.Context, name string, privileged bool) {
	if !privileged || h.Mixer == nil {
		return
	}
	if name == "" {
		scenes, err := h.Mixer.Scenes(ctx)
		if err != nil || len(scenes) == 0 {
			h.reply("Could not list scenes. Check OBS connection.")
			return
		}
		h.reply("Available scenes: " + strings.Join(scenes, ", "))
		return
	}
	if err := h.Mixer.SetScene(ctx, name); err != nil {
		h.reply("Could not switch scene. Check OBS connection.")
		return
	}
	h.reply("Switched to scene: " + name)
}

func (h *Handler) cmdStats() {
	s := h.Store.Stats.Snapshot()
	h.reply(fmt.Sprintf("Followers: +%d | Subs: +%d | Messages: %d | Viewers: %d",
		s.FollowersThisStream, s.SubsThisStream, s.TotalMessages, s.Viewers))
}

func (h *Handler) cmdUptime() {
	up := h.Store.Stats.Uptime(time.Now())
	if up == 0 {
		h.reply("Stream timer not started. Use dashboard to start.")
		return
	}
	hours := int(up.Hours())
	minutes := int(up.Minutes()) % 60
	h.reply(fmt.Sprintf("Stream has been live for %dh %dm", hours, minutes))
}

func (h *Handler) cmdShoutout(username string, privileged bool) {
	if !privileged || username == "" {
		return
	}
	username = strings.TrimPrefix(strings.Fields(username)[0], "@")
	h.reply(fmt.Sprintf("Go check out @%s! https://twitch.tv/%s", username, username))
}

func (h *Handler) cmdSound(name, displayName string) {
	if h.Soundboard == nil {
		return
	}
	if name == "" {
		sounds := h.Soundboard.Sounds()
		if len(sounds) == 0 {
			h.reply("No sounds loaded.")
			return
		}
		slugs := make([]string, 0, len(sounds))
		for _, s := range sounds {
			slugs = append(slugs, s.Slug)
			if len(slugs) == 15 {
				break
			}
		}
		h.reply("Available sounds: " + strings.Join(slugs, ", "))
		return
	}
	slug := strings.ToLower(strings.TrimSpace(name))
	play, err := h.Soundboard.Play(slug, "Chat: "+displayName)
	if err != nil {
		h.reply(fmt.Sprintf("Sound '%s' not found or on cooldown.", name))
		return
	}
	h.reply("🔊 " + play.Name)
}

func (h *Handler) cmdChaos(name, displayName string) {
	if h.Chaos == nil {
		return
	}
	if name == "" {
		presets := h.Chaos.Presets()
		names := make([]string, 0, len(presets))
		for _, p := range presets {
			names = append(names, p.Icon+p.Slug)
		}
		h.reply("Chaos presets: " + strings.Join(names, ", "))
		return
	}
	slug := strings.ToLower(strings.TrimSpace(name))
	ev, err := h.Chaos.Trigger(slug, "Chat: "+displayName)
	if err != nil {
		h.reply(fmt.Sprintf("Chaos '%s' not found or on cooldown (%ds).", name, int(h.Chaos.Cooldown().Seconds())))
		return
	}
	h.reply(fmt.Sprintf("%s %s activated!", ev.Icon, ev.Name))
}

func (h *Handler) cmdClip(ctx context.Context, displayName string) {
	if h.Runner == nil {
		return
	}
	ev, created := h.Runner.CreateManual(ctx, "!clip by "+displayName)
	if created {
		h.reply("🎬 Clip created! " + ev.EditURL)
		return
	}
	h.reply("❌ Clip failed — not live or missing permissions.")
}
