package autoclip

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var defaultWords = []string{"CLIP", "clip", "POGGERS", "POG", "LUL", "LMAO", "OMEGALUL"}

func newTestDetector() *Detector {
	return NewDetector(10*time.Second, 30*time.Second, 15, defaultWords)
}

func TestDetectorFiresOnceOnSpamBurst(t *testing.T) {
	d := newTestDetector()
	base := time.Now()

	fires := 0
	// 15 trigger-word messages inside a 10 second window.
	for i := 0; i < 15; i++ {
		at := base.Add(time.Duration(i) * 600 * time.Millisecond)
		if _, fire := d.Observe("POG moment", at); fire {
			fires++
		}
	}
	if fires != 1 {
		t.Fatalf("fired %d times during burst, want exactly 1", fires)
	}

	// A 16th qualifying message in the same window, conceptually arriving
	// while the external clip call is still in flight, must not fire again.
	if _, fire := d.Observe("CLIP IT", base.Add(9*time.Second)); fire {
		t.Error("re-fired inside the quiet period")
	}
}

func TestDetectorRequiresTriggerWord(t *testing.T) {
	d := newTestDetector()
	base := time.Now()

	for i := 0; i < 20; i++ {
		at := base.Add(time.Duration(i) * 100 * time.Millisecond)
		if _, fire := d.Observe("just chatting along", at); fire {
			t.Fatal("fired without any trigger word")
		}
	}
}

func TestDetectorTriggerMatchIsCaseSensitive(t *testing.T) {
	d := NewDetector(10*time.Second, 30*time.Second, 1, []string{"POG"})
	if _, fire := d.Observe("pog", time.Now()); fire {
		t.Error("lowercase matched an uppercase-only trigger token")
	}
	if _, fire := d.Observe("POGGERS", time.Now()); !fire {
		t.Error("substring match should fire")
	}
}

func TestDetectorRequiresWindowCount(t *testing.T) {
	d := newTestDetector()
	base := time.Now()

	// Only 5 messages in the window: below the threshold of 15.
	for i := 0; i < 4; i++ {
		d.Observe("quiet chat", base.Add(time.Duration(i)*time.Second))
	}
	if _, fire := d.Observe("CLIP", base.Add(5*time.Second)); fire {
		t.Error("fired below spam threshold")
	}
}

func TestDetectorOldArrivalsAgeOut(t *testing.T) {
	d := NewDetector(10*time.Second, 30*time.Second, 5, []string{"CLIP"})
	base := time.Now()

	for i := 0; i < 10; i++ {
		d.Observe("warmup", base.Add(time.Duration(i)*100*time.Millisecond))
	}
	// A minute later the previous burst is outside the window.
	count, fire := d.Observe("CLIP", base.Add(time.Minute))
	if fire {
		t.Error("fired on stale window")
	}
	if count != 1 {
		t.Errorf("window count = %d, want 1 (only the new arrival)", count)
	}
}

func TestDetectorQuietPeriodThenReFire(t *testing.T) {
	d := NewDetector(10*time.Second, 30*time.Second, 3, []string{"POG"})
	base := time.Now()

	d.Observe("POG", base)
	d.Observe("POG", base.Add(time.Second))
	if _, fire := d.Observe("POG", base.Add(2*time.Second)); !fire {
		t.Fatal("expected first fire")
	}

	// After the quiet period a fresh burst fires again.
	later := base.Add(31 * time.Second)
	d.Observe("POG", later)
	d.Observe("POG", later.Add(time.Second))
	if _, fire := d.Observe("POG", later.Add(2*time.Second)); !fire {
		t.Error("expected re-fire after quiet period")
	}
}

func TestDetectorConcurrentObserveSingleFire(t *testing.T) {
	d := NewDetector(10*time.Second, 30*time.Second, 1, []string{"POG"})
	now := time.Now()

	var wg sync.WaitGroup
	var mu sync.Mutex
	fires := 0
	start := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, fire := d.Observe("POG", now); fire {
				mu.Lock()
				fires++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	if fires != 1 {
		t.Errorf("concurrent fires = %d, want exactly 1", fires)
	}
}

// slowClipper blocks until released, simulating a slow Twitch clips call.
type slowClipper struct {
	release chan struct{}
	calls   int
	mu      sync.Mutex
}

func (c *slowClipper) CreateClip(ctx context.Context) (string, string, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	<-c.release
	return "clip-123", "https://clips.twitch.tv/edit/clip-123", nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []ClipEvent
}

func (p *capturePublisher) Publish(topic string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := payload.(*ClipEvent); ok {
		p.events = append(p.events, *ev)
	}
}

func TestRunnerSingleClipWhileCallInFlight(t *testing.T) {
	det := NewDetector(10*time.Second, 30*time.Second, 1, []string{"POG"})
	clipper := &slowClipper{release: make(chan struct{})}
	pub := &capturePublisher{}
	r := NewRunner(det, clipper, pub, nil)

	base := time.Now()
	done := make(chan struct{})
	go func() {
		r.Observe(context.Background(), "POG", base)
		close(done)
	}()

	// Wait for the clip call to be in flight, then deliver another
	// qualifying message: the detector already re-armed, so no second call.
	deadline := time.After(time.Second)
	for {
		clipper.mu.Lock()
		calls := clipper.calls
		clipper.mu.Unlock()
		if calls == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("clip call never started")
		case <-time.After(5 * time.Millisecond):
		}
	}
	r.Observe(context.Background(), "POG again", base.Add(time.Second))

	close(clipper.release)
	<-done

	clipper.mu.Lock()
	defer clipper.mu.Unlock()
	if clipper.calls != 1 {
		t.Errorf("clip calls = %d, want 1", clipper.calls)
	}
}

type failingClipper struct{ err error }

func (c failingClipper) CreateClip(ctx context.Context) (string, string, error) {
	return "", "", c.err
}

func TestRunnerClipFailureDegradesToCreatedFalse(t *testing.T) {
	det := NewDetector(10*time.Second, 30*time.Second, 1, []string{"POG"})
	pub := &capturePublisher{}
	r := NewRunner(det, failingClipper{err: errors.New("not live")}, pub, nil)

	r.Observe(context.Background(), "POG", time.Now())

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 1 {
		t.Fatalf("published %d auto_clip events, want 1", len(pub.events))
	}
	if pub.events[0].Created {
		t.Error("event marked created despite clip failure")
	}
}

func TestRunnerManualClip(t *testing.T) {
	det := newTestDetector()
	pub := &capturePublisher{}
	clipper := &slowClipper{release: make(chan struct{})}
	close(clipper.release)
	r := NewRunner(det, clipper, pub, nil)

	ev, ok := r.CreateManual(context.Background(), "Manual clip from dashboard")
	if !ok {
		t.Fatal("manual clip reported failure")
	}
	if ev.ClipID != "clip-123" || !ev.Created || ev.MessageCount != 0 {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestRunnerNilClipper(t *testing.T) {
	det := newTestDetector()
	pub := &capturePublisher{}
	r := NewRunner(det, nil, pub, nil)

	ev, ok := r.CreateManual(context.Background(), "no creds")
	if ok || ev.Created {
		t.Error("nil clipper must degrade to created=false")
	}
}
