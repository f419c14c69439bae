// Package poller watches the Twitch Helix API on a fixed interval: viewer
// counts feed the stats entity and new followers fire overlay alerts. This
// stands in for EventSub, which needs a public webhook or a websocket
// session that a local single-operator tool does not want to carry.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onnwee/overlayd/state"
	"github.com/onnwee/overlayd/telemetry"
	"github.com/onnwee/overlayd/twitchapi"
)

const (
	defaultInterval = 15 * time.Second
	cycleTimeout    = 10 * time.Second
	followerPage    = 5
)

// Alert is the payload published on the alert topic.
type Alert struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Message  string `json:"message"`
	Sound    string `json:"sound"`
	Duration int    `json:"duration"`
	Amount   any    `json:"amount,omitempty"`
}

// AlertSounds maps alert types to the overlay sound files they play.
var AlertSounds = map[string]string{
	"follow":   "/static/sounds/follow.mp3",
	"sub":      "/static/sounds/sub.mp3",
	"raid":     "/static/sounds/raid.mp3",
	"bits":     "/static/sounds/bits.mp3",
	"donation": "/static/sounds/donation.mp3",
}

// AlertDuration is how long the alerts overlay shows each alert, in ms.
const AlertDuration = 5000

// BuildAlert assembles the standard alert payload for a type. Unknown types
// get a generic message and no sound.
func BuildAlert(alertType, username string, amount any) Alert {
	messages := map[string]string{
		"follow":   fmt.Sprintf("%s just followed!", username),
		"sub":      fmt.Sprintf("%s just subscribed!", username),
		"raid":     fmt.Sprintf("%s is raiding!", username),
		"bits":     fmt.Sprintf("%s cheered bits!", username),
		"donation": fmt.Sprintf("%s donated!", username),
	}
	msg, ok := messages[alertType]
	if !ok {
		msg = fmt.Sprintf("%s from %s", alertType, username)
	}
	a := Alert{
		Type:     alertType,
		Username: username,
		Message:  msg,
		Sound:    AlertSounds[alertType],
		Duration: AlertDuration,
	}
	if amount != nil {
		a.Amount = amount
	}
	return a
}

// Publisher is the subset of the broadcast bus the poller needs.
type Publisher interface {
	Publish(topic string, payload any)
}

// Recorder appends structured events to the persistent event log.
type Recorder interface {
	Record(eventType, username string, data any)
}

// Poller drives the Helix poll loop.
type Poller struct {
	Helix    *twitchapi.HelixClient
	Channel  string
	Store    *state.Store
	Pub      Publisher
	Rec      Recorder
	Interval time.Duration

	broadcasterID string
	watermark     time.Time
}

// Run polls until ctx is cancelled. The first cycle resolves the
// broadcaster id and seeds the follower watermark so a restart does not
// re-alert old followers.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	p.watermark = time.Now().UTC()

	slog.Info("twitch poller started", slog.String("channel", p.Channel), slog.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		p.cycle(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) cycle(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, cycleTimeout)
	defer cancel()

	telemetry.TimeFunc(telemetry.PollCycleDuration, func() {
		if p.broadcasterID == "" {
			id, err := p.Helix.GetUserID(ctx, p.Channel)
			if err != nil {
				slog.Debug("poller: resolve broadcaster", slog.Any("err", err))
				return
			}
			p.broadcasterID = id
		}
		p.pollStream(ctx)
		p.pollFollowers(ctx)
	})
	if telemetry.PollCycles != nil {
		telemetry.PollCycles.Inc()
	}
}

func (p *Poller) pollStream(ctx context.Context) {
	info, err := p.Helix.GetStream(ctx, p.broadcasterID)
	if err != nil {
		slog.Debug("poller: stream status", slog.Any("err", err))
		return
	}
	if !info.Live {
		return
	}
	p.Store.Stats.SetViewers(info.ViewerCount)
	p.Pub.Publish("viewer_update", map[string]int{"viewers": info.ViewerCount})
}

func (p *Poller) pollFollowers(ctx context.Context) {
	_, followers, err := p.Helix.GetChannelFollowers(ctx, p.broadcasterID, followerPage)
	if err != nil {
		slog.Debug("poller: followers", slog.Any("err", err))
		return
	}
	var newest time.Time
	for _, f := range followers {
		if f.FollowedAt.After(newest) {
			newest = f.FollowedAt
		}
		if !f.FollowedAt.After(p.watermark) {
			continue
		}
		slog.Info("new follower", slog.String("username", f.UserName))
		p.Store.Stats.AddFollower()
		p.Pub.Publish("alert", BuildAlert("follow", f.UserName, nil))
		p.Store.Goals.Increment("followers", 1)
		if p.Rec != nil {
			p.Rec.Record("follower", f.UserName, nil)
		}
	}
	if newest.After(p.watermark) {
		p.watermark = newest
	}
}
