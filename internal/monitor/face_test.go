package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ferrandin/proctor/internal/classifier"
	"github.com/ferrandin/proctor/internal/violation"
)

func TestFaceAbsenceThresholdBoundary(t *testing.T) {
	// The threshold is exclusive: elapsed must be strictly greater.
	e := newTestEngine()
	ctx := context.Background()
	threshold := testThresholds().FaceAbsence

	cases := []struct {
		name       string
		at         time.Time
		wantRecord bool
	}{
		{"just under threshold", t0.Add(threshold - time.Millisecond), false},
		{"exactly at threshold", t0.Add(threshold), false},
		{"just past threshold", t0.Add(threshold + time.Millisecond), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := e.StartSession(ctx, "cand-1", t0)
			rec, err := e.OnFaceObservation(ctx, s.ID, classifier.FaceAbsent, tc.at)
			if err != nil {
				t.Fatalf("OnFaceObservation() error = %v", err)
			}
			if got := rec != nil; got != tc.wantRecord {
				t.Fatalf("recorded = %v, want %v (rec=%+v)", got, tc.wantRecord, rec)
			}
		})
	}
}

func TestFaceAbsentDoesNotAdvanceClock(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	s := e.StartSession(ctx, "cand-1", t0)

	// Repeated absent observations under the threshold must not reset
	// lastFaceSeen, so the violation eventually fires.
	for _, offset := range []time.Duration{500 * time.Millisecond, time.Second, 1500 * time.Millisecond} {
		rec, err := e.OnFaceObservation(ctx, s.ID, classifier.FaceAbsent, t0.Add(offset))
		if err != nil {
			t.Fatalf("OnFaceObservation() error = %v", err)
		}
		if rec != nil {
			t.Fatalf("violation recorded at %v, before threshold", offset)
		}
	}

	rec, err := e.OnFaceObservation(ctx, s.ID, classifier.FaceAbsent, t0.Add(2100*time.Millisecond))
	if err != nil {
		t.Fatalf("OnFaceObservation() error = %v", err)
	}
	if rec == nil || rec.Kind != violation.KindFaceMissing {
		t.Fatalf("expected FACE_MISSING once threshold elapsed, got %+v", rec)
	}
	if !strings.Contains(rec.Details, "Face missing for >") {
		t.Fatalf("details = %q, want elapsed seconds", rec.Details)
	}
}

func TestFacePresentResetsClock(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	s := e.StartSession(ctx, "cand-1", t0)

	if _, err := e.OnFaceObservation(ctx, s.ID, classifier.FacePresent, t0.Add(5*time.Second)); err != nil {
		t.Fatalf("OnFaceObservation() error = %v", err)
	}

	// 1.5s after the reset is under the 2s threshold again.
	rec, err := e.OnFaceObservation(ctx, s.ID, classifier.FaceAbsent, t0.Add(6500*time.Millisecond))
	if err != nil {
		t.Fatalf("OnFaceObservation() error = %v", err)
	}
	if rec != nil {
		t.Fatalf("violation recorded despite recent presence: %+v", rec)
	}
}

func TestFaceMissingDebounceWindow(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	s := e.StartSession(ctx, "cand-1", t0)
	window := testThresholds().FaceDebounce

	first, err := e.OnFaceObservation(ctx, s.ID, classifier.FaceAbsent, t0.Add(3*time.Second))
	if err != nil {
		t.Fatalf("OnFaceObservation() error = %v", err)
	}
	if first == nil {
		t.Fatalf("first absent past threshold should record")
	}
	firstAt := t0.Add(3 * time.Second)

	// Every absent observation within the window is suppressed, including one
	// landing exactly on the window edge.
	for _, offset := range []time.Duration{200 * time.Millisecond, time.Second, window} {
		rec, err := e.OnFaceObservation(ctx, s.ID, classifier.FaceAbsent, firstAt.Add(offset))
		if err != nil {
			t.Fatalf("OnFaceObservation() error = %v", err)
		}
		if rec != nil {
			t.Fatalf("absent at +%v after first record should be suppressed, got %+v", offset, rec)
		}
	}

	rec, err := e.OnFaceObservation(ctx, s.ID, classifier.FaceAbsent, firstAt.Add(window+time.Millisecond))
	if err != nil {
		t.Fatalf("OnFaceObservation() error = %v", err)
	}
	if rec == nil {
		t.Fatalf("absent past the debounce window should record again")
	}

	log, _ := e.Violations(s.ID)
	if len(log) != 2 {
		t.Fatalf("log has %d records, want 2 (one per window)", len(log))
	}
}

func TestMultipleFacesNeverDebounced(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	s := e.StartSession(ctx, "cand-1", t0)

	const frames = 5
	for i := 0; i < frames; i++ {
		rec, err := e.OnFaceObservation(ctx, s.ID, classifier.FaceMultiple, t0.Add(time.Duration(i)*100*time.Millisecond))
		if err != nil {
			t.Fatalf("OnFaceObservation() error = %v", err)
		}
		if rec == nil || rec.Kind != violation.KindMultipleFaces {
			t.Fatalf("frame %d: expected MULTIPLE_FACES record, got %+v", i, rec)
		}
	}

	log, _ := e.Violations(s.ID)
	if len(log) != frames {
		t.Fatalf("log has %d records, want %d", len(log), frames)
	}
}

func TestFaceObservationRejectsUnknownVerdict(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	s := e.StartSession(ctx, "cand-1", t0)

	if _, err := e.OnFaceObservation(ctx, s.ID, classifier.FaceVerdict("sideways"), t0.Add(time.Second)); !errors.Is(err, ErrInvalidObservation) {
		t.Fatalf("error = %v, want ErrInvalidObservation", err)
	}

	// Bad input must not corrupt the session: a valid observation still works.
	if _, err := e.OnFaceObservation(ctx, s.ID, classifier.FacePresent, t0.Add(2*time.Second)); err != nil {
		t.Fatalf("OnFaceObservation() after bad verdict error = %v", err)
	}
}

func TestRecordHookSeesEveryViolation(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	var mu sync.Mutex
	var kinds []violation.Kind
	e.SetRecordHook(func(rec violation.Record) {
		mu.Lock()
		kinds = append(kinds, rec.Kind)
		mu.Unlock()
	})

	s := e.StartSession(ctx, "cand-1", t0)
	_, _ = e.OnFaceObservation(ctx, s.ID, classifier.FaceMultiple, t0.Add(time.Second))
	_, _ = e.OnTabEvent(ctx, s.ID, TabHidden, t0.Add(2*time.Second))

	mu.Lock()
	defer mu.Unlock()
	if len(kinds) != 2 {
		t.Fatalf("hook saw %d records, want 2", len(kinds))
	}
	if kinds[0] != violation.KindMultipleFaces || kinds[1] != violation.KindTabSwitch {
		t.Fatalf("hook kinds = %v", kinds)
	}
}
