package store

import (
	"context"
	"errors"
	"time"

	"github.com/ferrandin/proctor/internal/violation"
)

var ErrNotFound = errors.New("row not found")

// Candidate is the durable identity of an interviewee. One candidate may own
// many sessions over time.
type Candidate struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	ResumePath string    `json:"resume_path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SessionRow is the persisted shape of one interview session. Score fields
// stay nil until the session is finalized.
type SessionRow struct {
	ID             string     `json:"session_id"`
	CandidateID    string     `json:"candidate_id"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	Active         bool       `json:"active"`
	FinalScore     *float64   `json:"final_score,omitempty"`
	ViolationCount int        `json:"violation_count"`
	RiskLevel      string     `json:"risk_level,omitempty"`
}

// Store persists candidates, sessions and violation records, and answers the
// ordered-log and latest-of-kind queries the reporting views need.
type Store interface {
	GetOrCreateCandidate(ctx context.Context, name, email string) (Candidate, error)
	GetCandidate(ctx context.Context, id string) (Candidate, error)
	SetCandidateResume(ctx context.Context, id, resumePath string) error

	SaveSession(ctx context.Context, row SessionRow) error
	GetSession(ctx context.Context, id string) (SessionRow, error)

	SaveViolation(ctx context.Context, rec violation.Record) error
	ViolationsBySession(ctx context.Context, sessionID string) ([]violation.Record, error)
	LastViolationOfKind(ctx context.Context, sessionID string, kind violation.Kind) (violation.Record, error)

	Close() error
}
