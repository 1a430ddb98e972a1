package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/ferrandin/proctor/internal/violation"
)

// OnTabEvent applies one page visibility event to the session. Focus-loss
// events are always recorded; there is no threshold and no debounce for tab
// switching. Regaining focus is accepted but never recorded.
func (e *Engine) OnTabEvent(_ context.Context, sessionID string, event TabEvent, at time.Time) (*violation.Record, error) {
	if !event.valid() {
		return nil, fmt.Errorf("%w: tab event %q", ErrInvalidObservation, event)
	}

	st, err := e.activeLocked(sessionID)
	if err != nil {
		return nil, err
	}

	st.lastActivityAt = at
	if !event.focusLoss() {
		st.mu.Unlock()
		return nil, nil
	}

	rec := e.appendRecord(st, violation.KindTabSwitch, fmt.Sprintf("Page %s", event), at)
	st.mu.Unlock()

	e.emitRecord(rec)
	return &rec, nil
}
