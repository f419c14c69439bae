package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestHistogramsInitialized(t *testing.T) {
	Init()

	if MixerCallDuration == nil {
		t.Error("MixerCallDuration histogram not initialized")
	}
	if PollCycleDuration == nil {
		t.Error("PollCycleDuration histogram not initialized")
	}
}

func TestCountersNilSafeBeforeInit(t *testing.T) {
	// The helpers guard against use before Init; none of these may panic.
	CountEventPublished("stats_update")
	CountEventDropped("stats_update")
	SetSubscriberCount(3)
	SetViewers(42)
}

func TestTopicCounters(t *testing.T) {
	Init()

	topics := []string{"chat_message", "goals_update", "soundboard_play"}
	for _, topic := range topics {
		CountEventPublished(topic)
		CountEventDropped(topic)
	}

	m := &dto.Metric{}
	if err := EventsPublished.WithLabelValues("chat_message").Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if m.Counter.GetValue() < 1 {
		t.Errorf("chat_message publish counter = %v, want >= 1", m.Counter.GetValue())
	}
}

func TestTimeFuncRecordsObservation(t *testing.T) {
	Init()

	testHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_duration_seconds",
		Help:    "Test duration",
		Buckets: prometheus.DefBuckets,
	})
	prometheus.MustRegister(testHistogram)
	defer prometheus.Unregister(testHistogram)

	executed := false
	duration := TimeFunc(testHistogram, func() {
		time.Sleep(10 * time.Millisecond)
		executed = true
	})

	if !executed {
		t.Error("TimeFunc did not execute provided function")
	}

	if duration < 10*time.Millisecond {
		t.Errorf("TimeFunc duration = %v, want >= 10ms", duration)
	}

	metric := &dto.Metric{}
	if err := testHistogram.Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Histogram == nil {
		t.Fatal("Histogram metric is nil")
	}

	if *metric.Histogram.SampleCount == 0 {
		t.Error("TimeFunc did not record observation in histogram")
	}
}

func TestGauges(t *testing.T) {
	Init()

	for _, n := range []int{0, 1, 10, 0} {
		SetSubscriberCount(n)
		SetViewers(n * 100)
	}
}
