package poller

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/overlayd/state"
	"github.com/onnwee/overlayd/testutil"
	"github.com/onnwee/overlayd/twitchapi"
)

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	alerts []Alert
}

func (p *capturePublisher) Publish(topic string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	if a, ok := payload.(Alert); ok {
		p.alerts = append(p.alerts, a)
	}
}

func (p *capturePublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}
	return n
}

func newTestPoller(t *testing.T, mock *testutil.MockTwitchServer) (*Poller, *capturePublisher) {
	t.Helper()
	mock.MockUserResponse("42", "somestreamer")

	helix := &twitchapi.HelixClient{
		AppTokenSource: twitchapi.SeededTokenSource("test-token"),
		ClientID:       "cid",
		HTTPClient:     mock.Client(t),
	}
	pub := &capturePublisher{}
	return &Poller{
		Helix:   helix,
		Channel: "somestreamer",
		Store:   state.New(pub, state.DefaultSubtitleSettings()),
		Pub:     pub,
	}, pub
}

func TestCycleUpdatesViewers(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	mock.MockStreamsResponse([]map[string]any{{"viewer_count": 88, "title": "live"}})
	mock.MockFollowersResponse(0, nil)
	p, pub := newTestPoller(t, mock)
	p.watermark = time.Now()

	p.cycle(context.Background())

	if got := p.Store.Stats.Snapshot().Viewers; got != 88 {
		t.Errorf("Viewers = %d, want 88", got)
	}
	if pub.count("viewer_update") != 1 {
		t.Error("viewer_update not published")
	}
}

func TestCycleOfflineKeepsViewers(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	mock.MockStreamsResponse(nil)
	mock.MockFollowersResponse(0, nil)
	p, pub := newTestPoller(t, mock)
	p.Store.Stats.SetViewers(30)
	p.watermark = time.Now()

	p.cycle(context.Background())

	if got := p.Store.Stats.Snapshot().Viewers; got != 30 {
		t.Errorf("Viewers = %d, want untouched 30", got)
	}
	if pub.count("viewer_update") != 0 {
		t.Error("viewer_update published while offline")
	}
}

func TestNewFollowerFiresAlertOnce(t *testing.T) {
	recent := time.Now().UTC().Add(time.Minute).Format(time.RFC3339)
	mock := testutil.NewMockTwitchServer(t)
	mock.MockStreamsResponse(nil)
	mock.MockFollowersResponse(1, []map[string]string{
		{"user_id": "7", "user_name": "NewFan", "followed_at": recent},
	})
	p, pub := newTestPoller(t, mock)
	p.watermark = time.Now().UTC()

	p.cycle(context.Background())
	if pub.count("alert") != 1 {
		t.Fatalf("alerts = %d, want 1", pub.count("alert"))
	}
	a := pub.alerts[0]
	if a.Type != "follow" || a.Username != "NewFan" || !strings.Contains(a.Message, "just followed") {
		t.Errorf("alert = %+v", a)
	}
	if a.Duration != AlertDuration || a.Sound == "" {
		t.Errorf("alert presentation = %+v", a)
	}
	if got := p.Store.Stats.Snapshot().FollowersThisStream; got != 1 {
		t.Errorf("FollowersThisStream = %d", got)
	}
	if got := p.Store.Goals.Snapshot().Goals[0].Current; got != 1 {
		t.Errorf("follower goal = %d, want auto-incremented", got)
	}

	// Watermark advanced: the same follower must not re-alert.
	p.cycle(context.Background())
	if pub.count("alert") != 1 {
		t.Error("follower re-alerted on second cycle")
	}
}

func TestOldFollowersBeforeWatermarkIgnored(t *testing.T) {
	old := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	mock := testutil.NewMockTwitchServer(t)
	mock.MockStreamsResponse(nil)
	mock.MockFollowersResponse(1, []map[string]string{
		{"user_id": "6", "user_name": "OldFan", "followed_at": old},
	})
	p, pub := newTestPoller(t, mock)
	p.watermark = time.Now().UTC()

	p.cycle(context.Background())
	if pub.count("alert") != 0 {
		t.Error("pre-watermark follower alerted")
	}
}

func TestBuildAlertShapes(t *testing.T) {
	tests := []struct {
		alertType   string
		username    string
		amount      any
		wantMessage string
		wantSound   bool
	}{
		{"follow", "Ann", nil, "Ann just followed!", true},
		{"sub", "Ben", nil, "Ben just subscribed!", true},
		{"bits", "Cam", 500, "Cam cheered bits!", true},
		{"mystery", "Dee", nil, "mystery from Dee", false},
	}
	for _, tt := range tests {
		a := BuildAlert(tt.alertType, tt.username, tt.amount)
		if a.Message != tt.wantMessage {
			t.Errorf("%s message = %q, want %q", tt.alertType, a.Message, tt.wantMessage)
		}
		if (a.Sound != "") != tt.wantSound {
			t.Errorf("%s sound = %q", tt.alertType, a.Sound)
		}
		if tt.amount != nil && a.Amount == nil {
			t.Errorf("%s amount dropped", tt.alertType)
		}
	}
}
