package bus

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func drain(t *testing.T, sub *Subscriber, n int) []Event {
	t.Helper()
	out := make([]Event, 0, n)
	for len(out) < n {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				t.Fatalf("subscriber channel closed after %d events, want %d", len(out), n)
			}
			out = append(out, ev)
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d events, want %d", len(out), n)
		}
	}
	return out
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	b := New()
	defer b.Close()

	a, err := b.Subscribe("overlay-a")
	if err != nil {
		t.Fatalf("subscribe a: %v", err)
	}
	c, err := b.Subscribe("overlay-b")
	if err != nil {
		t.Fatalf("subscribe b: %v", err)
	}

	b.Publish("viewer_update", map[string]int{"viewers": 12})

	for _, sub := range []*Subscriber{a, c} {
		evs := drain(t, sub, 1)
		if evs[0].Topic != "viewer_update" {
			t.Errorf("topic = %q, want viewer_update", evs[0].Topic)
		}
	}
}

func TestDuplicateSubscriberID(t *testing.T) {
	b := New()
	defer b.Close()

	if _, err := b.Subscribe("dup"); err != nil {
		t.Fatalf("first subscribe: %v", err)
	}
	if _, err := b.Subscribe("dup"); err != ErrSubscriberExists {
		t.Errorf("second subscribe err = %v, want ErrSubscriberExists", err)
	}
}

func TestPublishToUnicastsToSingleSubscriber(t *testing.T) {
	b := New()
	defer b.Close()

	target, _ := b.Subscribe("late-joiner")
	other, _ := b.Subscribe("other")

	b.PublishTo("late-joiner", "goals_update", nil)

	evs := drain(t, target, 1)
	if evs[0].Topic != "goals_update" {
		t.Errorf("topic = %q, want goals_update", evs[0].Topic)
	}
	select {
	case ev := <-other.Events():
		t.Errorf("unexpected event on other subscriber: %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishExceptSkipsOriginator(t *testing.T) {
	b := New()
	defer b.Close()

	origin, _ := b.Subscribe("tracker")
	overlay, _ := b.Subscribe("avatar-overlay")

	b.PublishExcept("tracker", "avatar_rig_data", map[string]any{"bones": []int{}})

	drain(t, overlay, 1)
	select {
	case ev := <-origin.Events():
		t.Errorf("originator received its own relay event: %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowSubscriberDropsWithoutBlocking(t *testing.T) {
	b := New()
	defer b.Close()

	sub, err := b.SubscribeBuffered("slow", 2)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish("chat_message", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on slow subscriber")
	}

	sent, dropped := sub.Stats()
	if sent != 2 {
		t.Errorf("sent = %d, want 2 (buffer size)", sent)
	}
	if dropped != 8 {
		t.Errorf("dropped = %d, want 8", dropped)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	defer b.Close()

	sub, _ := b.Subscribe("ephemeral")
	b.Unsubscribe("ephemeral")

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("expected closed channel after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	b.Publish("stats_update", nil)

	if n := b.SubscriberCount(); n != 0 {
		t.Errorf("SubscriberCount = %d, want 0", n)
	}
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	b := New()
	defer b.Close()

	// All subscribers must be registered before publishing starts, or the
	// final Close can race ahead of a Subscribe call.
	var subscribed, wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		subscribed.Add(1)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("sub-%d", i)
			sub, err := b.Subscribe(id)
			subscribed.Done()
			if err != nil {
				t.Errorf("subscribe %s: %v", id, err)
				return
			}
			for range sub.Events() {
			}
		}(i)
	}
	subscribed.Wait()
	for i := 0; i < 100; i++ {
		b.Publish("keyboard_event", i)
	}
	b.Close()
	wg.Wait()
}

func TestSubscribeAfterClose(t *testing.T) {
	b := New()
	b.Close()
	if _, err := b.Subscribe("too-late"); err != ErrBusClosed {
		t.Errorf("err = %v, want ErrBusClosed", err)
	}
}
