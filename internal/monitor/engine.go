package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ferrandin/proctor/internal/policy"
	"github.com/ferrandin/proctor/internal/scoring"
	"github.com/ferrandin/proctor/internal/violation"
)

// sessionState is the mutable per-session record. All reads and writes go
// through mu; the engine map lock is never held while mu is held.
type sessionState struct {
	mu sync.Mutex

	id          string
	candidateID string
	active      bool

	startedAt         time.Time
	endedAt           time.Time
	lastFaceSeen      time.Time
	lastAudioActivity time.Time
	lastActivityAt    time.Time

	// Ordered violation log, authoritative for scoring. Persistence happens
	// behind it via the record hook.
	log []violation.Record

	// Debounce ledger: last recorded timestamp per kind. Dropped at finalize.
	debounce map[violation.Kind]time.Time

	result *scoring.Result
}

// Engine serializes all integrity decisions for a session behind that
// session's own lock. Sessions never contend with each other.
type Engine struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState

	thresholds        Thresholds
	inactivityTimeout time.Duration
	log               zerolog.Logger

	recordHook   func(violation.Record)
	suppressHook func(violation.Kind)
	finalizeHook func(Session, scoring.Result)
}

func NewEngine(thresholds Thresholds, inactivityTimeout time.Duration, log zerolog.Logger) *Engine {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 10 * time.Minute
	}
	return &Engine{
		sessions:          make(map[string]*sessionState),
		thresholds:        thresholds,
		inactivityTimeout: inactivityTimeout,
		log:               log,
	}
}

// SetRecordHook registers an observer for every recorded violation.
func (e *Engine) SetRecordHook(hook func(violation.Record)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recordHook = hook
}

// SetSuppressHook registers an observer for debounce suppressions.
func (e *Engine) SetSuppressHook(hook func(violation.Kind)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.suppressHook = hook
}

// SetFinalizeHook registers an observer for session finalization, including
// janitor-driven auto-finalize.
func (e *Engine) SetFinalizeHook(hook func(Session, scoring.Result)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finalizeHook = hook
}

// StartSession registers a new active session for a candidate.
func (e *Engine) StartSession(_ context.Context, candidateID string, at time.Time) *Session {
	st := &sessionState{
		id:                uuid.NewString(),
		candidateID:       candidateID,
		active:            true,
		startedAt:         at,
		lastFaceSeen:      at,
		lastAudioActivity: at,
		lastActivityAt:    at,
		debounce:          make(map[violation.Kind]time.Time),
	}

	snap := snapshot(st)

	e.mu.Lock()
	e.sessions[st.id] = st
	e.mu.Unlock()

	e.log.Info().Str("session_id", snap.ID).Str("candidate_id", candidateID).Msg("session started")
	return snap
}

// Get returns a snapshot of an active session. Finalized and unknown ids are
// both reported as not found.
func (e *Engine) Get(sessionID string) (*Session, error) {
	st, ok := e.lookup(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.active {
		return nil, ErrSessionNotFound
	}
	return snapshot(st), nil
}

// Violations returns a copy of the in-memory log for an active session.
func (e *Engine) Violations(sessionID string) ([]violation.Record, error) {
	st, ok := e.lookup(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.active {
		return nil, ErrSessionNotFound
	}
	out := make([]violation.Record, len(st.log))
	copy(out, st.log)
	return out, nil
}

// ActiveCount reports the number of sessions still being monitored.
func (e *Engine) ActiveCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	count := 0
	for _, st := range e.sessions {
		st.mu.Lock()
		if st.active {
			count++
		}
		st.mu.Unlock()
	}
	return count
}

// Finalize scores the session's violation log and freezes the session. It is
// write-once: a second call reports ErrAlreadyFinalized and leaves the stored
// result untouched.
func (e *Engine) Finalize(_ context.Context, sessionID string, at time.Time) (scoring.Result, error) {
	st, ok := e.lookup(sessionID)
	if !ok {
		return scoring.Result{}, ErrSessionNotFound
	}

	st.mu.Lock()
	if !st.active {
		st.mu.Unlock()
		return scoring.Result{}, ErrAlreadyFinalized
	}
	res := scoring.Evaluate(st.log)
	st.active = false
	st.endedAt = at
	st.result = &res
	st.debounce = nil
	snap := snapshot(st)
	st.mu.Unlock()

	e.log.Info().
		Str("session_id", sessionID).
		Float64("final_score", res.Score).
		Str("risk_level", string(res.RiskLevel)).
		Int("violations", res.ViolationCount).
		Msg("session finalized")

	if hook := e.finalizeHookFn(); hook != nil {
		hook(*snap, res)
	}
	return res, nil
}

// StartJanitor auto-finalizes sessions with no observation activity for the
// configured inactivity timeout. A crashed or vanished client otherwise
// leaves its session active forever.
func (e *Engine) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.expireInactive(ctx)
			}
		}
	}()
}

func (e *Engine) expireInactive(ctx context.Context) {
	now := time.Now().UTC()

	e.mu.RLock()
	candidates := make([]*sessionState, 0)
	for _, st := range e.sessions {
		candidates = append(candidates, st)
	}
	e.mu.RUnlock()

	for _, st := range candidates {
		st.mu.Lock()
		stale := st.active && now.Sub(st.lastActivityAt) >= e.inactivityTimeout
		id := st.id
		st.mu.Unlock()
		if !stale {
			continue
		}
		if _, err := e.Finalize(ctx, id, now); err == nil {
			e.log.Warn().Str("session_id", id).Msg("session auto-finalized after inactivity")
		}
	}
}

// lookup finds the session state without touching its lock.
func (e *Engine) lookup(sessionID string) (*sessionState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, ok := e.sessions[sessionID]
	return st, ok
}

// activeLocked returns the session with its lock held, or an error for
// unknown and finalized ids. The caller must unlock.
func (e *Engine) activeLocked(sessionID string) (*sessionState, error) {
	st, ok := e.lookup(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	st.mu.Lock()
	if !st.active {
		st.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	return st, nil
}

// appendRecord creates and logs a violation. Caller holds st.mu. Details are
// redacted before the record exists anywhere.
func (e *Engine) appendRecord(st *sessionState, kind violation.Kind, details string, at time.Time) violation.Record {
	details, _ = policy.RedactPII(details)
	rec := violation.Record{
		ID:         uuid.NewString(),
		SessionID:  st.id,
		Kind:       kind,
		Details:    details,
		OccurredAt: at,
	}
	st.log = append(st.log, rec)
	if st.debounce != nil {
		st.debounce[kind] = at
	}
	return rec
}

// suppressed reports whether a record of kind within the window precedes at.
// Caller holds st.mu.
func (st *sessionState) suppressed(kind violation.Kind, at time.Time, window time.Duration) bool {
	last, ok := st.debounce[kind]
	if !ok {
		return false
	}
	return at.Sub(last) <= window
}

func (e *Engine) emitRecord(rec violation.Record) {
	e.log.Info().
		Str("session_id", rec.SessionID).
		Str("kind", string(rec.Kind)).
		Str("details", rec.Details).
		Time("occurred_at", rec.OccurredAt).
		Msg("violation recorded")
	if hook := e.recordHookFn(); hook != nil {
		hook(rec)
	}
}

func (e *Engine) emitSuppressed(kind violation.Kind, sessionID string) {
	e.log.Debug().Str("session_id", sessionID).Str("kind", string(kind)).Msg("violation suppressed by debounce")
	if hook := e.suppressHookFn(); hook != nil {
		hook(kind)
	}
}

func (e *Engine) recordHookFn() func(violation.Record) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.recordHook
}

func (e *Engine) suppressHookFn() func(violation.Kind) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.suppressHook
}

func (e *Engine) finalizeHookFn() func(Session, scoring.Result) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.finalizeHook
}

// snapshot copies session state for callers. Caller holds st.mu, except for
// freshly created sessions not yet shared.
func snapshot(st *sessionState) *Session {
	s := &Session{
		ID:                st.id,
		CandidateID:       st.candidateID,
		Active:            st.active,
		StartedAt:         st.startedAt,
		LastFaceSeen:      st.lastFaceSeen,
		LastAudioActivity: st.lastAudioActivity,
		LastActivityAt:    st.lastActivityAt,
		ViolationCount:    len(st.log),
		Result:            st.result,
	}
	if !st.endedAt.IsZero() {
		ended := st.endedAt
		s.EndedAt = &ended
	}
	return s
}
