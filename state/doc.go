// Package state owns every piece of shared mutable stream state: session
// stats, live subtitles, avatar tuning, goal progress, keyboard capture
// status, and the recent-chat replay ring.
//
// Each entity sits behind its own mutex and is only reachable through
// validating mutation methods; callers receive value snapshots, never a
// reference to the guarded data. Every successful mutation publishes the
// entity's full snapshot on the broadcast bus so overlays converge without
// polling. Validation rejections clamp or drop the offending fields and are
// not errors; the only typed miss is ErrGoalNotFound.
package state
