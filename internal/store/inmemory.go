package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ferrandin/proctor/internal/violation"
)

// InMemoryStore is a simple in-process store for local/dev use.
type InMemoryStore struct {
	mu               sync.RWMutex
	candidates       map[string]Candidate
	candidateByEmail map[string]string
	sessions         map[string]SessionRow
	violations       map[string][]violation.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		candidates:       make(map[string]Candidate),
		candidateByEmail: make(map[string]string),
		sessions:         make(map[string]SessionRow),
		violations:       make(map[string][]violation.Record),
	}
}

func (s *InMemoryStore) GetOrCreateCandidate(_ context.Context, name, email string) (Candidate, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.candidateByEmail[email]; ok {
		return s.candidates[id], nil
	}
	c := Candidate{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	s.candidates[c.ID] = c
	s.candidateByEmail[email] = c.ID
	return c, nil
}

func (s *InMemoryStore) GetCandidate(_ context.Context, id string) (Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.candidates[id]
	if !ok {
		return Candidate{}, ErrNotFound
	}
	return c, nil
}

func (s *InMemoryStore) SetCandidateResume(_ context.Context, id, resumePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[id]
	if !ok {
		return ErrNotFound
	}
	c.ResumePath = resumePath
	s.candidates[id] = c
	return nil
}

func (s *InMemoryStore) SaveSession(_ context.Context, row SessionRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[row.ID] = row
	return nil
}

func (s *InMemoryStore) GetSession(_ context.Context, id string) (SessionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.sessions[id]
	if !ok {
		return SessionRow{}, ErrNotFound
	}
	return row, nil
}

func (s *InMemoryStore) SaveViolation(_ context.Context, rec violation.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.violations[rec.SessionID] = append(s.violations[rec.SessionID], rec)
	return nil
}

func (s *InMemoryStore) ViolationsBySession(_ context.Context, sessionID string) ([]violation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.violations[sessionID]
	out := make([]violation.Record, len(arr))
	copy(out, arr)
	return out, nil
}

func (s *InMemoryStore) LastViolationOfKind(_ context.Context, sessionID string, kind violation.Kind) (violation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.violations[sessionID]
	for i := len(arr) - 1; i >= 0; i-- {
		if arr[i].Kind == kind {
			return arr[i], nil
		}
	}
	return violation.Record{}, ErrNotFound
}

func (s *InMemoryStore) Close() error { return nil }
