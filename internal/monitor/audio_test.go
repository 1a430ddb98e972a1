package monitor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ferrandin/proctor/internal/violation"
)

func TestSilenceThresholdBoundary(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	threshold := testThresholds().Silence

	cases := []struct {
		name       string
		at         time.Time
		wantRecord bool
	}{
		{"under threshold", t0.Add(threshold - time.Second), false},
		{"exactly at threshold", t0.Add(threshold), false},
		{"past threshold", t0.Add(threshold + time.Second), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := e.StartSession(ctx, "cand-1", t0)
			rec, err := e.OnAudioObservation(ctx, s.ID, true, tc.at)
			if err != nil {
				t.Fatalf("OnAudioObservation() error = %v", err)
			}
			if got := rec != nil; got != tc.wantRecord {
				t.Fatalf("recorded = %v, want %v", got, tc.wantRecord)
			}
		})
	}
}

func TestAudioActivityResetsClock(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	s := e.StartSession(ctx, "cand-1", t0)

	// Sound at T0+8s moves the activity clock forward.
	if _, err := e.OnAudioObservation(ctx, s.ID, false, t0.Add(8*time.Second)); err != nil {
		t.Fatalf("OnAudioObservation() error = %v", err)
	}

	// Silence at T0+15s is only 7s of accumulated silence.
	rec, err := e.OnAudioObservation(ctx, s.ID, true, t0.Add(15*time.Second))
	if err != nil {
		t.Fatalf("OnAudioObservation() error = %v", err)
	}
	if rec != nil {
		t.Fatalf("violation recorded despite recent audio activity: %+v", rec)
	}

	// By T0+19s the accumulated silence crosses 10s.
	rec, err = e.OnAudioObservation(ctx, s.ID, true, t0.Add(19*time.Second))
	if err != nil {
		t.Fatalf("OnAudioObservation() error = %v", err)
	}
	if rec == nil || rec.Kind != violation.KindAudioSilence {
		t.Fatalf("expected AUDIO_SILENCE, got %+v", rec)
	}
	if !strings.Contains(rec.Details, "Silence for >") {
		t.Fatalf("details = %q, want formatted elapsed seconds", rec.Details)
	}
}

func TestSilenceDebounceWindow(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	s := e.StartSession(ctx, "cand-1", t0)
	window := testThresholds().SilenceDebounce

	first, err := e.OnAudioObservation(ctx, s.ID, true, t0.Add(11*time.Second))
	if err != nil {
		t.Fatalf("OnAudioObservation() error = %v", err)
	}
	if first == nil {
		t.Fatalf("silence past threshold should record")
	}
	firstAt := t0.Add(11 * time.Second)

	rec, err := e.OnAudioObservation(ctx, s.ID, true, firstAt.Add(window-time.Second))
	if err != nil {
		t.Fatalf("OnAudioObservation() error = %v", err)
	}
	if rec != nil {
		t.Fatalf("silence inside the debounce window should be suppressed, got %+v", rec)
	}

	rec, err = e.OnAudioObservation(ctx, s.ID, true, firstAt.Add(window+time.Second))
	if err != nil {
		t.Fatalf("OnAudioObservation() error = %v", err)
	}
	if rec == nil {
		t.Fatalf("silence past the debounce window should record again")
	}

	log, _ := e.Violations(s.ID)
	if len(log) != 2 {
		t.Fatalf("log has %d records, want 2", len(log))
	}
}

func TestSilenceSuppressHookFires(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	suppressed := make(map[violation.Kind]int)
	e.SetSuppressHook(func(k violation.Kind) { suppressed[k]++ })

	s := e.StartSession(ctx, "cand-1", t0)
	if rec, _ := e.OnAudioObservation(ctx, s.ID, true, t0.Add(11*time.Second)); rec == nil {
		t.Fatalf("first silence should record")
	}
	if rec, _ := e.OnAudioObservation(ctx, s.ID, true, t0.Add(12*time.Second)); rec != nil {
		t.Fatalf("second silence should be suppressed")
	}

	if suppressed[violation.KindAudioSilence] != 1 {
		t.Fatalf("suppress hook count = %d, want 1", suppressed[violation.KindAudioSilence])
	}
}
