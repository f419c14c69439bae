// Package autoclip decides when organic chat excitement warrants an
// automatic highlight clip, and drives the clip creation that follows.
//
// The detector is a hysteresis filter over raw message arrival timestamps:
// threshold crossing is evaluated once per observed message against a
// trailing window, not on a timer. A fire immediately re-arms the quiet
// period before the clip call is made, so qualifying messages arriving while
// the Twitch call is still in flight cannot double-fire.
package autoclip

import (
	"strings"
	"sync"
	"time"
)

// timestampRingCapacity bounds how many arrival timestamps are retained for
// window counting. Old entries are overwritten; anything older than the spam
// window is irrelevant anyway.
const timestampRingCapacity = 100

// Detector counts chat message arrivals in a trailing window and fires when
// a trigger-word message lands while the window count is at or above the
// spam threshold and the quiet period has elapsed.
type Detector struct {
	window       time.Duration
	quiet        time.Duration
	threshold    int
	triggerWords []string

	mu       sync.Mutex
	times    [timestampRingCapacity]time.Time
	head     int
	size     int
	lastFire time.Time
}

// NewDetector configures a detector. window is the trailing interval over
// which arrivals are counted, threshold the minimum count, quiet the global
// minimum spacing between fires, and triggerWords the case-sensitive
// substrings at least one of which must appear in the firing message.
func NewDetector(window, quiet time.Duration, threshold int, triggerWords []string) *Detector {
	return &Detector{
		window:       window,
		quiet:        quiet,
		threshold:    threshold,
		triggerWords: triggerWords,
	}
}

// Observe records one message arrival and reports whether it should fire a
// clip. count is the number of arrivals inside the trailing window including
// this one. When fire is true the quiet period has already been re-armed:
// a concurrent or immediately following Observe cannot fire again until the
// quiet period elapses, regardless of how long the resulting clip call takes.
func (d *Detector) Observe(text string, now time.Time) (count int, fire bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.times[d.head] = now
	d.head = (d.head + 1) % timestampRingCapacity
	if d.size < timestampRingCapacity {
		d.size++
	}

	cutoff := now.Add(-d.window)
	for i := 0; i < d.size; i++ {
		if d.times[i].After(cutoff) {
			count++
		}
	}

	if !d.lastFire.IsZero() && now.Sub(d.lastFire) < d.quiet {
		return count, false
	}
	if !d.containsTrigger(text) {
		return count, false
	}
	if count < d.threshold {
		return count, false
	}

	d.lastFire = now
	return count, true
}

func (d *Detector) containsTrigger(text string) bool {
	for _, w := range d.triggerWords {
		if w != "" && strings.Contains(text, w) {
			return true
		}
	}
	return false
}
