package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ferrandin/proctor/internal/reliability"
	"github.com/ferrandin/proctor/internal/violation"
)

const (
	persistQueueSize   = 1024
	persistMaxAttempts = 5
	persistBackoffBase = 100 * time.Millisecond
	persistBackoffCap  = 3 * time.Second
)

type persistJob struct {
	label string
	run   func(ctx context.Context) error
}

// Persister writes violation and session rows behind the in-memory engine so
// the per-session critical section never waits on the database. The in-memory
// log stays authoritative; a dropped or failed write is reported, never
// propagated back into session state.
type Persister struct {
	store   Store
	log     zerolog.Logger
	queue   chan persistJob
	wg      sync.WaitGroup
	onError func()
	onDrop  func()
}

func NewPersister(st Store, log zerolog.Logger) *Persister {
	return &Persister{
		store: st,
		log:   log,
		queue: make(chan persistJob, persistQueueSize),
	}
}

// SetErrorHooks registers observers for exhausted retries and dropped jobs.
func (p *Persister) SetErrorHooks(onError, onDrop func()) {
	p.onError = onError
	p.onDrop = onDrop
}

// Start launches the background writer. It drains until ctx is done.
func (p *Persister) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-p.queue:
				p.process(ctx, job)
			}
		}
	}()
}

// Wait blocks until the writer goroutine has exited.
func (p *Persister) Wait() {
	p.wg.Wait()
}

func (p *Persister) EnqueueViolation(rec violation.Record) {
	p.enqueue(persistJob{
		label: "violation",
		run: func(ctx context.Context) error {
			return p.store.SaveViolation(ctx, rec)
		},
	})
}

func (p *Persister) EnqueueSession(row SessionRow) {
	p.enqueue(persistJob{
		label: "session",
		run: func(ctx context.Context) error {
			return p.store.SaveSession(ctx, row)
		},
	})
}

func (p *Persister) enqueue(job persistJob) {
	select {
	case p.queue <- job:
	default:
		p.log.Warn().Str("job", job.label).Msg("persist queue full, dropping write")
		if p.onDrop != nil {
			p.onDrop()
		}
	}
}

func (p *Persister) process(ctx context.Context, job persistJob) {
	var err error
	for attempt := 0; attempt < persistMaxAttempts; attempt++ {
		if err = job.run(ctx); err == nil {
			return
		}
		if !reliability.IsRetryable(err) {
			break
		}
		delay := reliability.ExponentialBackoff(attempt, persistBackoffBase, persistBackoffCap)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
	p.log.Error().Err(err).Str("job", job.label).Msg("persist failed after retries")
	if p.onError != nil {
		p.onError()
	}
}
