package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ferrandin/proctor/internal/classifier"
	"github.com/ferrandin/proctor/internal/config"
	"github.com/ferrandin/proctor/internal/monitor"
	"github.com/ferrandin/proctor/internal/observability"
	"github.com/ferrandin/proctor/internal/store"
)

type Server struct {
	cfg      config.Config
	engine   *monitor.Engine
	store    store.Store
	frames   classifier.FrameClassifier
	audioClf classifier.AudioClassifier
	metrics  *observability.Metrics
	log      zerolog.Logger
	feed     *feedHub
	upgrader websocket.Upgrader
}

func New(cfg config.Config, engine *monitor.Engine, st store.Store, frames classifier.FrameClassifier, audioClf classifier.AudioClassifier, metrics *observability.Metrics, log zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		engine:   engine,
		store:    st,
		frames:   frames,
		audioClf: audioClf,
		metrics:  metrics,
		log:      log,
		feed:     newFeedHub(log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browsers may attach to a candidate's live
				// feed unless the deployment opts out.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
	return s
}

// Feed exposes the live feed hub so the app wiring can attach it to the
// engine's record and finalize hooks.
func (s *Server) Feed() *feedHub {
	return s.feed
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Post("/v1/interviews", s.handleStartInterview)
	r.Post("/v1/interviews/{id}/end", s.handleEndInterview)
	r.Post("/v1/interviews/{id}/frame", s.handleFrame)
	r.Post("/v1/interviews/{id}/audio", s.handleAudio)
	r.Post("/v1/interviews/{id}/tab", s.handleTabEvent)
	r.Get("/v1/interviews/{id}/candidate", s.handleCandidateDetails)
	r.Get("/v1/interviews/{id}/report", s.handleReport)
	r.Get("/v1/interviews/{id}/live", s.handleLiveFeed)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"store_mode": s.storeMode(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"active_sessions": s.engine.ActiveCount(),
	})
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"generated_at": "",
			"window_size":  0,
			"stages":       []any{},
		})
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.Pipeline.Snapshot())
}

func (s *Server) storeMode() string {
	if _, ok := s.store.(*store.InMemoryStore); ok {
		return "in-memory"
	}
	return "postgres"
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
