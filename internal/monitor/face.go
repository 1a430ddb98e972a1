package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/ferrandin/proctor/internal/classifier"
	"github.com/ferrandin/proctor/internal/violation"
)

// OnFaceObservation applies one frame classifier verdict to the session.
// It returns the violation recorded for this observation, if any.
//
// Absence accumulates: lastFaceSeen is deliberately not advanced while the
// face stays missing, so the elapsed clock keeps running until a face comes
// back. Multiple faces count as presence for that clock but are always
// recorded, one record per frame.
func (e *Engine) OnFaceObservation(_ context.Context, sessionID string, verdict classifier.FaceVerdict, at time.Time) (*violation.Record, error) {
	st, err := e.activeLocked(sessionID)
	if err != nil {
		return nil, err
	}

	var rec *violation.Record
	var suppressedKind violation.Kind

	st.lastActivityAt = at
	switch verdict {
	case classifier.FacePresent:
		st.lastFaceSeen = at

	case classifier.FaceMultiple:
		st.lastFaceSeen = at
		r := e.appendRecord(st, violation.KindMultipleFaces, "Multiple faces detected", at)
		rec = &r

	case classifier.FaceAbsent:
		elapsed := at.Sub(st.lastFaceSeen)
		if elapsed > e.thresholds.FaceAbsence {
			if st.suppressed(violation.KindFaceMissing, at, e.thresholds.FaceDebounce) {
				suppressedKind = violation.KindFaceMissing
			} else {
				r := e.appendRecord(st, violation.KindFaceMissing,
					fmt.Sprintf("Face missing for > %.1fs", elapsed.Seconds()), at)
				rec = &r
			}
		}

	default:
		st.mu.Unlock()
		return nil, fmt.Errorf("%w: face verdict %q", ErrInvalidObservation, verdict)
	}
	st.mu.Unlock()

	if suppressedKind != "" {
		e.emitSuppressed(suppressedKind, sessionID)
	}
	if rec != nil {
		e.emitRecord(*rec)
	}
	return rec, nil
}
