package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/ferrandin/proctor/internal/violation"
)

// OnAudioObservation applies one silence verdict to the session. Silence
// accumulates the same way face absence does: lastAudioActivity only moves
// when sound is heard.
func (e *Engine) OnAudioObservation(_ context.Context, sessionID string, silent bool, at time.Time) (*violation.Record, error) {
	st, err := e.activeLocked(sessionID)
	if err != nil {
		return nil, err
	}

	st.lastActivityAt = at
	if !silent {
		st.lastAudioActivity = at
		st.mu.Unlock()
		return nil, nil
	}

	var rec *violation.Record
	suppressed := false

	elapsed := at.Sub(st.lastAudioActivity)
	if elapsed > e.thresholds.Silence {
		if st.suppressed(violation.KindAudioSilence, at, e.thresholds.SilenceDebounce) {
			suppressed = true
		} else {
			r := e.appendRecord(st, violation.KindAudioSilence,
				fmt.Sprintf("Silence for > %.1fs", elapsed.Seconds()), at)
			rec = &r
		}
	}
	st.mu.Unlock()

	if suppressed {
		e.emitSuppressed(violation.KindAudioSilence, sessionID)
	}
	if rec != nil {
		e.emitRecord(*rec)
	}
	return rec, nil
}
