package state

import (
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrGoalNotFound is returned when an update names a goal id that is not in
// the catalog.
var ErrGoalNotFound = errors.New("goal not found")

const maxGoalTitleLen = 60

// Goal is one entry of the fixed goal catalog.
type Goal struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Current int    `json:"current"`
	Target  int    `json:"target"`
	Enabled bool   `json:"enabled"`
}

// GoalsSnapshot is the goals_update payload.
type GoalsSnapshot struct {
	Goals     []Goal    `json:"goals"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GoalUpdate is a partial update for one goal. Nil fields are untouched.
type GoalUpdate struct {
	Current *int
	Target  *int
	Title   *string
	Enabled *bool
}

// Goals holds the fixed catalog of stream goals. The catalog never grows or
// shrinks at runtime; goals are toggled, not created.
type Goals struct {
	pub Publisher

	mu    sync.Mutex
	order []string
	byID  map[string]*Goal
}

func defaultGoalCatalog() []Goal {
	return []Goal{
		{ID: "followers", Type: "followers", Title: "Follower Goal", Target: 50, Enabled: true},
		{ID: "subs", Type: "subs", Title: "Sub Goal", Target: 10, Enabled: true},
		{ID: "donations", Type: "donations", Title: "Donation Goal", Target: 100, Enabled: false},
		{ID: "bits", Type: "bits", Title: "Bits Goal", Target: 5000, Enabled: false},
	}
}

// NewGoals builds the catalog in its default shape.
func NewGoals(pub Publisher) *Goals {
	g := &Goals{pub: pub, byID: make(map[string]*Goal)}
	for _, goal := range defaultGoalCatalog() {
		goal := goal
		g.order = append(g.order, goal.ID)
		g.byID[goal.ID] = &goal
	}
	return g
}

// Snapshot returns the goals in catalog order.
func (g *Goals) Snapshot() GoalsSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Goals) snapshotLocked() GoalsSnapshot {
	out := GoalsSnapshot{Goals: make([]Goal, 0, len(g.order)), UpdatedAt: nowUTC()}
	for _, id := range g.order {
		out.Goals = append(out.Goals, *g.byID[id])
	}
	return out
}

// Update applies a partial update to one goal. Current is stored as given,
// Target is floored at one, and the title is trimmed and capped. Publishes
// the full catalog on success.
func (g *Goals) Update(id string, upd GoalUpdate) (GoalsSnapshot, error) {
	g.mu.Lock()
	goal, ok := g.byID[id]
	if !ok {
		g.mu.Unlock()
		return GoalsSnapshot{}, ErrGoalNotFound
	}
	if upd.Current != nil {
		goal.Current = *upd.Current
	}
	if upd.Target != nil {
		goal.Target = max(1, *upd.Target)
	}
	if upd.Title != nil {
		if t := strings.TrimSpace(*upd.Title); t != "" {
			if runes := []rune(t); len(runes) > maxGoalTitleLen {
				t = string(runes[:maxGoalTitleLen])
			}
			goal.Title = t
		}
	}
	if upd.Enabled != nil {
		goal.Enabled = *upd.Enabled
	}
	snap := g.snapshotLocked()
	g.mu.Unlock()

	g.pub.Publish("goals_update", snap)
	return snap, nil
}

// Increment bumps a goal's progress by delta, which may be negative; the
// dashboard uses that to correct over-counts, so progress can go below
// zero. Unknown ids are ignored without publishing; the chat and poller
// call sites fire for event types that may not have a matching goal.
func (g *Goals) Increment(id string, delta int) {
	g.mu.Lock()
	goal, ok := g.byID[id]
	if !ok {
		g.mu.Unlock()
		return
	}
	goal.Current += delta
	snap := g.snapshotLocked()
	g.mu.Unlock()

	g.pub.Publish("goals_update", snap)
}

// Reset zeroes progress on every goal, keeping targets and enablement.
func (g *Goals) Reset() GoalsSnapshot {
	g.mu.Lock()
	for _, id := range g.order {
		g.byID[id].Current = 0
	}
	snap := g.snapshotLocked()
	g.mu.Unlock()

	g.pub.Publish("goals_update", snap)
	return snap
}
