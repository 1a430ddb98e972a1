package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ferrandin/proctor/internal/violation"
)

func TestTabFocusLossAlwaysRecords(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	s := e.StartSession(ctx, "cand-1", t0)

	// No threshold and no debounce: N focus-loss events yield N records even
	// when they arrive back to back.
	events := []TabEvent{TabBlur, TabHidden, TabBlur, TabBlur}
	for i, ev := range events {
		rec, err := e.OnTabEvent(ctx, s.ID, ev, t0.Add(time.Duration(i)*10*time.Millisecond))
		if err != nil {
			t.Fatalf("OnTabEvent(%q) error = %v", ev, err)
		}
		if rec == nil || rec.Kind != violation.KindTabSwitch {
			t.Fatalf("event %q: expected TAB_SWITCH record, got %+v", ev, rec)
		}
		if rec.Details != "Page "+string(ev) {
			t.Fatalf("details = %q, want %q", rec.Details, "Page "+string(ev))
		}
	}

	log, _ := e.Violations(s.ID)
	if len(log) != len(events) {
		t.Fatalf("log has %d records, want %d", len(log), len(events))
	}
}

func TestTabFocusGainNeverRecords(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	s := e.StartSession(ctx, "cand-1", t0)

	for _, ev := range []TabEvent{TabFocus, TabVisible} {
		rec, err := e.OnTabEvent(ctx, s.ID, ev, t0.Add(time.Second))
		if err != nil {
			t.Fatalf("OnTabEvent(%q) error = %v", ev, err)
		}
		if rec != nil {
			t.Fatalf("event %q recorded a violation: %+v", ev, rec)
		}
	}
}

func TestTabEventValidation(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	s := e.StartSession(ctx, "cand-1", t0)

	if _, err := e.OnTabEvent(ctx, s.ID, TabEvent("minimized"), t0); !errors.Is(err, ErrInvalidObservation) {
		t.Fatalf("error = %v, want ErrInvalidObservation", err)
	}
	if _, err := e.OnTabEvent(ctx, "missing", TabBlur, t0); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("error = %v, want ErrSessionNotFound", err)
	}
}
