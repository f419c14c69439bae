package state

import (
	"sync"
	"time"

	"github.com/onnwee/overlayd/telemetry"
)

// StatsSnapshot is the stats_update payload: per-session counters plus the
// last polled viewer count.
type StatsSnapshot struct {
	FollowersThisStream int        `json:"followers_this_stream"`
	SubsThisStream      int        `json:"subs_this_stream"`
	RaidsThisStream     int        `json:"raids_this_stream"`
	Viewers             int        `json:"viewers"`
	PeakViewers         int        `json:"peak_viewers"`
	TotalMessages       int        `json:"total_messages"`
	StreamStart         *time.Time `json:"stream_start"`
}

// Stats tracks per-session stream counters.
type Stats struct {
	pub Publisher

	mu sync.Mutex
	s  StatsSnapshot
}

// NewStats returns zeroed stats with no session started.
func NewStats(pub Publisher) *Stats {
	return &Stats{pub: pub}
}

// Snapshot returns a copy of the current counters.
func (st *Stats) Snapshot() StatsSnapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s
}

// StartSession marks a new session: counters reset to zero except the viewer
// count, which reflects the poller and survives session boundaries.
func (st *Stats) StartSession(now time.Time) StatsSnapshot {
	st.mu.Lock()
	start := now
	st.s.StreamStart = &start
	st.s.FollowersThisStream = 0
	st.s.SubsThisStream = 0
	st.s.RaidsThisStream = 0
	st.s.TotalMessages = 0
	st.s.PeakViewers = st.s.Viewers
	snap := st.s
	st.mu.Unlock()

	st.pub.Publish("stats_update", snap)
	return snap
}

// AddFollower increments the session follower counter.
func (st *Stats) AddFollower() { st.bump(func(s *StatsSnapshot) { s.FollowersThisStream++ }) }

// AddSub increments the session sub counter.
func (st *Stats) AddSub() { st.bump(func(s *StatsSnapshot) { s.SubsThisStream++ }) }

// AddRaid increments the session raid counter.
func (st *Stats) AddRaid() { st.bump(func(s *StatsSnapshot) { s.RaidsThisStream++ }) }

// AddMessage increments the session message counter.
func (st *Stats) AddMessage() { st.bump(func(s *StatsSnapshot) { s.TotalMessages++ }) }

// SetViewers records the polled viewer count, tracking the session peak.
func (st *Stats) SetViewers(n int) {
	st.bump(func(s *StatsSnapshot) {
		s.Viewers = n
		if n > s.PeakViewers {
			s.PeakViewers = n
		}
	})
	telemetry.SetViewers(n)
}

func (st *Stats) bump(mutate func(*StatsSnapshot)) {
	st.mu.Lock()
	mutate(&st.s)
	snap := st.s
	st.mu.Unlock()

	st.pub.Publish("stats_update", snap)
}

// Uptime returns the elapsed session time, or zero if no session started.
func (st *Stats) Uptime(now time.Time) time.Duration {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.s.StreamStart == nil {
		return 0
	}
	return now.Sub(*st.s.StreamStart)
}
