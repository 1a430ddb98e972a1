package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ferrandin/proctor/internal/violation"
)

// PostgresStore persists monitoring data in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS candidates (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			resume_path TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS interview_sessions (
			id TEXT PRIMARY KEY,
			candidate_id TEXT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			final_score DOUBLE PRECISION NULL,
			violation_count INTEGER NOT NULL DEFAULT 0,
			risk_level TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_candidate_started ON interview_sessions (candidate_id, started_at DESC);`,
		`CREATE TABLE IF NOT EXISTS violations (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES interview_sessions(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			occurred_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_violations_session_occurred ON violations (session_id, occurred_at);`,
		`CREATE INDEX IF NOT EXISTS idx_violations_session_kind_occurred ON violations (session_id, kind, occurred_at DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) GetOrCreateCandidate(ctx context.Context, name, email string) (Candidate, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	c := Candidate{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}

	// Existing candidates keep their stored name; INSERT wins only for new emails.
	row := s.pool.QueryRow(ctx,
		`INSERT INTO candidates (id, name, email, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (email) DO UPDATE SET email=EXCLUDED.email
		 RETURNING id, name, email, resume_path, created_at`,
		c.ID, c.Name, c.Email, c.CreatedAt,
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.ResumePath, &c.CreatedAt); err != nil {
		return Candidate{}, fmt.Errorf("get or create candidate: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) GetCandidate(ctx context.Context, id string) (Candidate, error) {
	var c Candidate
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, email, resume_path, created_at FROM candidates WHERE id=$1`, id)
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.ResumePath, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Candidate{}, ErrNotFound
		}
		return Candidate{}, fmt.Errorf("get candidate: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) SetCandidateResume(ctx context.Context, id, resumePath string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE candidates SET resume_path=$2 WHERE id=$1`, id, resumePath)
	if err != nil {
		return fmt.Errorf("set candidate resume: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, row SessionRow) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO interview_sessions (
			id, candidate_id, started_at, ended_at, active, final_score, violation_count, risk_level
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			ended_at=EXCLUDED.ended_at,
			active=EXCLUDED.active,
			final_score=EXCLUDED.final_score,
			violation_count=EXCLUDED.violation_count,
			risk_level=EXCLUDED.risk_level`,
		row.ID,
		row.CandidateID,
		row.StartedAt,
		row.EndedAt,
		row.Active,
		row.FinalScore,
		row.ViolationCount,
		row.RiskLevel,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (SessionRow, error) {
	var row SessionRow
	r := s.pool.QueryRow(ctx,
		`SELECT id, candidate_id, started_at, ended_at, active, final_score, violation_count, risk_level
		 FROM interview_sessions WHERE id=$1`, id)
	if err := r.Scan(&row.ID, &row.CandidateID, &row.StartedAt, &row.EndedAt, &row.Active, &row.FinalScore, &row.ViolationCount, &row.RiskLevel); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SessionRow{}, ErrNotFound
		}
		return SessionRow{}, fmt.Errorf("get session: %w", err)
	}
	return row, nil
}

func (s *PostgresStore) SaveViolation(ctx context.Context, rec violation.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO violations (id, session_id, kind, details, occurred_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID,
		rec.SessionID,
		string(rec.Kind),
		rec.Details,
		rec.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("save violation: %w", err)
	}
	return nil
}

func (s *PostgresStore) ViolationsBySession(ctx context.Context, sessionID string) ([]violation.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, kind, details, occurred_at
		 FROM violations WHERE session_id=$1 ORDER BY occurred_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query violations: %w", err)
	}
	defer rows.Close()

	var items []violation.Record
	for rows.Next() {
		var r violation.Record
		var kind string
		if err := rows.Scan(&r.ID, &r.SessionID, &kind, &r.Details, &r.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan violation row: %w", err)
		}
		r.Kind = violation.Kind(kind)
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate violation rows: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) LastViolationOfKind(ctx context.Context, sessionID string, kind violation.Kind) (violation.Record, error) {
	var r violation.Record
	var k string
	row := s.pool.QueryRow(ctx,
		`SELECT id, session_id, kind, details, occurred_at
		 FROM violations WHERE session_id=$1 AND kind=$2
		 ORDER BY occurred_at DESC LIMIT 1`,
		sessionID, string(kind))
	if err := row.Scan(&r.ID, &r.SessionID, &k, &r.Details, &r.OccurredAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return violation.Record{}, ErrNotFound
		}
		return violation.Record{}, fmt.Errorf("query last violation: %w", err)
	}
	r.Kind = violation.Kind(k)
	return r, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
