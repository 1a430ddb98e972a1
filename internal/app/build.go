package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ferrandin/proctor/internal/classifier"
	"github.com/ferrandin/proctor/internal/config"
	"github.com/ferrandin/proctor/internal/httpapi"
	"github.com/ferrandin/proctor/internal/monitor"
	"github.com/ferrandin/proctor/internal/observability"
	"github.com/ferrandin/proctor/internal/scoring"
	"github.com/ferrandin/proctor/internal/store"
	"github.com/ferrandin/proctor/internal/violation"
)

type BuildResult struct {
	Config    config.Config
	API       *httpapi.Server
	Engine    *monitor.Engine
	Store     store.Store
	Persister *store.Persister
	Metrics   *observability.Metrics

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

// Build wires the engine, store, classifier and HTTP API together. The
// engine's hooks carry every recorded violation to metrics, the write-behind
// persister and the live feed without the engine knowing about any of them.
func Build(ctx context.Context, cfg config.Config, log zerolog.Logger) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	st, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("store init failed: %w", err)
	}

	persister := store.NewPersister(st, log)
	persister.SetErrorHooks(metrics.PersistErrors.Inc, metrics.PersistDrops.Inc)

	engine := monitor.NewEngine(monitor.Thresholds{
		FaceAbsence:     cfg.FaceAbsenceThreshold,
		FaceDebounce:    cfg.FaceDebounceWindow,
		Silence:         cfg.SilenceThreshold,
		SilenceDebounce: cfg.SilenceDebounceWindow,
	}, cfg.SessionInactivityTimeout, log)

	// Model-backed frame classifiers plug in through the same interface; the
	// mock keeps local deployments functional without a vision backend.
	frames := classifier.NewMockClassifier()
	audioClf := classifier.NewEnergyClassifier(cfg.SilenceVolumeCutoff)

	api := httpapi.New(cfg, engine, st, frames, audioClf, metrics, log)
	feed := api.Feed()

	engine.SetRecordHook(func(rec violation.Record) {
		metrics.Violations.WithLabelValues(string(rec.Kind)).Inc()
		persister.EnqueueViolation(rec)
		feed.PublishViolation(rec)
	})
	engine.SetSuppressHook(func(kind violation.Kind) {
		metrics.Suppressed.WithLabelValues(string(kind)).Inc()
	})
	engine.SetFinalizeHook(func(sess monitor.Session, res scoring.Result) {
		metrics.SessionEvents.WithLabelValues("finalized").Inc()
		metrics.ActiveSessions.Set(float64(engine.ActiveCount()))
		metrics.FinalScore.Observe(res.Score)
		score := res.Score
		persister.EnqueueSession(store.SessionRow{
			ID:             sess.ID,
			CandidateID:    sess.CandidateID,
			StartedAt:      sess.StartedAt,
			EndedAt:        sess.EndedAt,
			Active:         false,
			FinalScore:     &score,
			ViolationCount: res.ViolationCount,
			RiskLevel:      string(res.RiskLevel),
		})
		feed.PublishFinalized(sess, res)
	})

	cleanup := func() error {
		if err := st.Close(); err != nil {
			return fmt.Errorf("store close: %w", err)
		}
		return nil
	}

	return &BuildResult{
		Config:    cfg,
		API:       api,
		Engine:    engine,
		Store:     st,
		Persister: persister,
		Metrics:   metrics,
		Cleanup:   cleanup,
	}, nil
}
