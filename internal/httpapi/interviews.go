package httpapi

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ferrandin/proctor/internal/audio"
	"github.com/ferrandin/proctor/internal/classifier"
	"github.com/ferrandin/proctor/internal/monitor"
	"github.com/ferrandin/proctor/internal/store"
	"github.com/ferrandin/proctor/internal/violation"
)

type startInterviewRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type startInterviewResponse struct {
	SessionID   string    `json:"session_id"`
	CandidateID string    `json:"candidate_id"`
	StartedAt   time.Time `json:"started_at"`
}

func (s *Server) handleStartInterview(w http.ResponseWriter, r *http.Request) {
	var req startInterviewRequest
	var resumePath string

	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if contentType == "multipart/form-data" {
		if err := r.ParseMultipartForm(int64(s.cfg.ResumeMaxMB) << 20); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		req.Name = r.FormValue("name")
		req.Email = r.FormValue("email")

		file, header, err := r.FormFile("resume")
		if err == nil {
			defer file.Close()
			resumePath, err = s.saveResume(file, header.Filename)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "resume_store_failed", err.Error())
				return
			}
		}
	} else {
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
			respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}

	if strings.TrimSpace(req.Email) == "" {
		respondError(w, http.StatusBadRequest, "missing_email", "candidate email is required")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		req.Name = "Unknown Candidate"
	}

	ctx := r.Context()
	cand, err := s.store.GetOrCreateCandidate(ctx, req.Name, req.Email)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "candidate_store_failed", err.Error())
		return
	}
	if resumePath != "" {
		if err := s.store.SetCandidateResume(ctx, cand.ID, resumePath); err != nil {
			respondError(w, http.StatusInternalServerError, "candidate_store_failed", err.Error())
			return
		}
	}

	sess := s.engine.StartSession(ctx, cand.ID, time.Now().UTC())
	if err := s.store.SaveSession(ctx, store.SessionRow{
		ID:          sess.ID,
		CandidateID: cand.ID,
		StartedAt:   sess.StartedAt,
		Active:      true,
	}); err != nil {
		s.log.Error().Err(err).Str("session_id", sess.ID).Msg("save session row failed")
	}

	s.metrics.ActiveSessions.Set(float64(s.engine.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("started").Inc()

	respondJSON(w, http.StatusCreated, startInterviewResponse{
		SessionID:   sess.ID,
		CandidateID: cand.ID,
		StartedAt:   sess.StartedAt,
	})
}

func (s *Server) saveResume(file io.Reader, original string) (string, error) {
	if err := os.MkdirAll(s.cfg.ResumeDir, 0o755); err != nil {
		return "", fmt.Errorf("create resume dir: %w", err)
	}
	name := fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(original))
	path := filepath.Join(s.cfg.ResumeDir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create resume file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		return "", fmt.Errorf("write resume file: %w", err)
	}
	return path, nil
}

func (s *Server) handleEndInterview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	res, err := s.engine.Finalize(r.Context(), id, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, monitor.ErrAlreadyFinalized):
			respondError(w, http.StatusConflict, "already_finalized", err.Error())
		case errors.Is(err, monitor.ErrSessionNotFound):
			respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "finalize_failed", err.Error())
		}
		return
	}

	s.metrics.ActiveSessions.Set(float64(s.engine.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	respondJSON(w, http.StatusOK, res)
}

type frameRequest struct {
	Frame string `json:"frame"`
}

type frameResponse struct {
	FaceStatus string            `json:"face_status"`
	Violation  *violation.Record `json:"violation,omitempty"`
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req frameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	decodeStart := time.Now()
	frame, err := classifier.DecodeFrame(req.Frame)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_frame", err.Error())
		return
	}
	s.metrics.Pipeline.Observe("frame_decode", time.Since(decodeStart))

	classifyStart := time.Now()
	result, err := s.frames.ClassifyFrame(r.Context(), frame)
	if err != nil {
		if errors.Is(err, classifier.ErrInvalidFrame) {
			respondError(w, http.StatusBadRequest, "invalid_frame", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "classifier_failed", err.Error())
		return
	}
	s.metrics.Pipeline.Observe("frame_classify", time.Since(classifyStart))

	interpretStart := time.Now()
	rec, err := s.engine.OnFaceObservation(r.Context(), id, result.Verdict, time.Now().UTC())
	if err != nil {
		s.respondObservationError(w, err)
		return
	}
	s.metrics.Pipeline.Observe("face_interpret", time.Since(interpretStart))

	respondJSON(w, http.StatusOK, frameResponse{
		FaceStatus: string(result.Verdict),
		Violation:  rec,
	})
}

type audioRequest struct {
	IsSilent    *bool    `json:"is_silent"`
	VolumeLevel *float64 `json:"volume_level"`
	Sample      string   `json:"sample"`
}

type observationResponse struct {
	Violation *violation.Record `json:"violation,omitempty"`
}

// resolveSilence folds the three accepted audio payload shapes into one
// verdict. A client verdict wins; otherwise the classifier decides from the
// reported volume or a raw PCM16LE sample.
func (s *Server) resolveSilence(r *http.Request, req audioRequest) (bool, error) {
	if req.IsSilent != nil {
		return *req.IsSilent, nil
	}
	if req.VolumeLevel != nil {
		return s.audioClf.ClassifySample(r.Context(), *req.VolumeLevel)
	}
	if req.Sample != "" {
		pcm, err := base64.StdEncoding.DecodeString(req.Sample)
		if err != nil {
			return false, fmt.Errorf("invalid sample encoding: %w", err)
		}
		return s.audioClf.ClassifySample(r.Context(), audio.RMSPCM16LE(pcm))
	}
	return false, errors.New("one of is_silent, volume_level or sample is required")
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req audioRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	silent, err := s.resolveSilence(r, req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	interpretStart := time.Now()
	rec, err := s.engine.OnAudioObservation(r.Context(), id, silent, time.Now().UTC())
	if err != nil {
		s.respondObservationError(w, err)
		return
	}
	s.metrics.Pipeline.Observe("audio_interpret", time.Since(interpretStart))

	respondJSON(w, http.StatusOK, observationResponse{Violation: rec})
}

type tabRequest struct {
	EventType string `json:"event_type"`
}

func (s *Server) handleTabEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req tabRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	interpretStart := time.Now()
	rec, err := s.engine.OnTabEvent(r.Context(), id, monitor.TabEvent(req.EventType), time.Now().UTC())
	if err != nil {
		s.respondObservationError(w, err)
		return
	}
	s.metrics.Pipeline.Observe("tab_interpret", time.Since(interpretStart))

	respondJSON(w, http.StatusOK, observationResponse{Violation: rec})
}

func (s *Server) respondObservationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, monitor.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, monitor.ErrInvalidObservation):
		respondError(w, http.StatusBadRequest, "invalid_observation", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "observation_failed", err.Error())
	}
}

type candidateResponse struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	ResumePath string `json:"resume_path,omitempty"`
}

func (s *Server) handleCandidateDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := s.engine.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	cand, err := s.store.GetCandidate(r.Context(), sess.CandidateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "candidate_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "candidate_lookup_failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, candidateResponse{
		Name:       cand.Name,
		Email:      cand.Email,
		ResumePath: cand.ResumePath,
	})
}

type reportResponse struct {
	SessionID      string             `json:"session_id"`
	Active         bool               `json:"active"`
	FinalScore     *float64           `json:"final_score,omitempty"`
	RiskLevel      string             `json:"risk_level,omitempty"`
	ViolationCount int                `json:"violation_count"`
	Violations     []violation.Record `json:"violations"`
}

// handleReport serves live sessions from the engine's in-memory log and
// finalized ones from the store.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if sess, err := s.engine.Get(id); err == nil {
		records, err := s.engine.Violations(id)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "report_failed", err.Error())
			return
		}
		respondJSON(w, http.StatusOK, reportResponse{
			SessionID:      sess.ID,
			Active:         true,
			ViolationCount: len(records),
			Violations:     records,
		})
		return
	}

	row, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "session_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "report_failed", err.Error())
		return
	}
	records, err := s.store.ViolationsBySession(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "report_failed", err.Error())
		return
	}
	if records == nil {
		records = []violation.Record{}
	}

	respondJSON(w, http.StatusOK, reportResponse{
		SessionID:      row.ID,
		Active:         row.Active,
		FinalScore:     row.FinalScore,
		RiskLevel:      row.RiskLevel,
		ViolationCount: len(records),
		Violations:     records,
	})
}
