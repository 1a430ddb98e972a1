package monitor

import (
	"errors"
	"time"

	"github.com/ferrandin/proctor/internal/scoring"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrAlreadyFinalized   = errors.New("session already finalized")
	ErrInvalidObservation = errors.New("invalid observation")
)

// TabEvent is the page visibility signal reported by the candidate's browser.
type TabEvent string

const (
	TabBlur    TabEvent = "blur"
	TabFocus   TabEvent = "focus"
	TabHidden  TabEvent = "hidden"
	TabVisible TabEvent = "visible"
)

// focusLoss reports whether the event means the candidate left the page.
func (e TabEvent) focusLoss() bool {
	return e == TabBlur || e == TabHidden
}

func (e TabEvent) valid() bool {
	switch e {
	case TabBlur, TabFocus, TabHidden, TabVisible:
		return true
	default:
		return false
	}
}

// Thresholds are the tunable detection windows. The defaults live in config;
// nothing here is hardcoded policy.
type Thresholds struct {
	FaceAbsence     time.Duration
	FaceDebounce    time.Duration
	Silence         time.Duration
	SilenceDebounce time.Duration
}

// Session is a point-in-time snapshot of one monitored interview attempt.
type Session struct {
	ID                string          `json:"session_id"`
	CandidateID       string          `json:"candidate_id"`
	Active            bool            `json:"active"`
	StartedAt         time.Time       `json:"started_at"`
	EndedAt           *time.Time      `json:"ended_at,omitempty"`
	LastFaceSeen      time.Time       `json:"last_face_seen"`
	LastAudioActivity time.Time       `json:"last_audio_activity"`
	LastActivityAt    time.Time       `json:"last_activity_at"`
	ViolationCount    int             `json:"violation_count"`
	Result            *scoring.Result `json:"result,omitempty"`
}
