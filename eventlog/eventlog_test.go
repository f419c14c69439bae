package eventlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(context.Background(), filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndRecent(t *testing.T) {
	l := openTestLog(t)
	l.Record("chat_message", "alice", map[string]string{"message": "hi"})
	l.Record("soundboard_play", "bob", map[string]string{"slug": "air-horn"})
	l.Record("chat_message", "", nil)

	entries, err := l.Recent(context.Background(), time.Now().Add(-time.Minute), 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	// Newest first.
	if entries[0].EventType != "chat_message" || entries[0].Data != "{}" {
		t.Errorf("newest entry = %+v", entries[0])
	}
	if entries[2].Username != "alice" {
		t.Errorf("oldest entry username = %q", entries[2].Username)
	}
}

func TestRecentHonorsCutoff(t *testing.T) {
	l := openTestLog(t)
	l.Record("chat_message", "alice", nil)

	entries, err := l.Recent(context.Background(), time.Now().Add(time.Hour), 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries for future cutoff, want 0", len(entries))
	}
}

func TestBuildReport(t *testing.T) {
	l := openTestLog(t)
	for i := 0; i < 5; i++ {
		l.Record("chat_message", "alice", nil)
	}
	for i := 0; i < 2; i++ {
		l.Record("chat_message", "bob", nil)
	}
	l.Record("follower", "carol", nil)
	l.Record("follower", "dave", nil)
	l.Record("soundboard_play", "alice", map[string]string{"slug": "air-horn"})
	l.Record("soundboard_play", "bob", map[string]string{"slug": "air-horn"})
	l.Record("soundboard_play", "bob", map[string]string{"slug": "bruh"})
	l.Record("chaos_trigger", "alice", map[string]string{"effect": "disco"})

	rep, err := l.BuildReport(context.Background(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	if rep.EventCounts["chat_message"] != 7 {
		t.Errorf("chat_message count = %d, want 7", rep.EventCounts["chat_message"])
	}
	if len(rep.TopChatters) < 2 || rep.TopChatters[0].Name != "alice" || rep.TopChatters[0].Count != 5 {
		t.Errorf("top chatters = %+v", rep.TopChatters)
	}
	if len(rep.NewFollowers) != 2 || rep.NewFollowers[0] != "carol" {
		t.Errorf("new followers = %v", rep.NewFollowers)
	}
	if len(rep.SoundsPlayed) == 0 || rep.SoundsPlayed[0].Name != "air-horn" || rep.SoundsPlayed[0].Count != 2 {
		t.Errorf("sounds played = %+v", rep.SoundsPlayed)
	}
	if len(rep.ChaosTriggered) != 1 || rep.ChaosTriggered[0].Name != "disco" {
		t.Errorf("chaos triggered = %+v", rep.ChaosTriggered)
	}
	if len(rep.Timeline) == 0 {
		t.Error("timeline empty")
	} else if rep.Timeline[0].Events == 0 {
		t.Error("timeline bucket has zero events")
	}
}

func TestReportEmptyDatabase(t *testing.T) {
	l := openTestLog(t)
	rep, err := l.BuildReport(context.Background(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(rep.EventCounts) != 0 || len(rep.Timeline) != 0 {
		t.Errorf("expected empty report, got %+v", rep)
	}
}
