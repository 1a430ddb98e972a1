package httpapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ferrandin/proctor/internal/monitor"
	"github.com/ferrandin/proctor/internal/protocol"
	"github.com/ferrandin/proctor/internal/scoring"
	"github.com/ferrandin/proctor/internal/violation"
)

const feedSendBuffer = 64

// feedHub fans violation events out to the invigilator clients watching each
// session. Slow consumers lose messages rather than stalling the engine.
type feedHub struct {
	mu   sync.RWMutex
	subs map[string]map[*feedSub]struct{}
	log  zerolog.Logger
}

type feedSub struct {
	ch chan any
}

func newFeedHub(log zerolog.Logger) *feedHub {
	return &feedHub{
		subs: make(map[string]map[*feedSub]struct{}),
		log:  log,
	}
}

func (h *feedHub) subscribe(sessionID string) *feedSub {
	sub := &feedSub{ch: make(chan any, feedSendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*feedSub]struct{})
	}
	h.subs[sessionID][sub] = struct{}{}
	return sub
}

func (h *feedHub) unsubscribe(sessionID string, sub *feedSub) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[sessionID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sessionID)
		}
	}
}

func (h *feedHub) broadcast(sessionID string, msg any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[sessionID] {
		select {
		case sub.ch <- msg:
		default:
			h.log.Debug().Str("session_id", sessionID).Msg("live feed subscriber lagging, dropping message")
		}
	}
}

// PublishViolation pushes a recorded violation to the session's watchers.
// Wired to the engine's record hook.
func (h *feedHub) PublishViolation(rec violation.Record) {
	h.broadcast(rec.SessionID, protocol.ViolationEvent{
		Type:       protocol.TypeViolationEvent,
		SessionID:  rec.SessionID,
		Kind:       string(rec.Kind),
		Details:    rec.Details,
		OccurredAt: rec.OccurredAt,
	})
}

// PublishFinalized closes out the session's feeds with the final verdict.
// Wired to the engine's finalize hook.
func (h *feedHub) PublishFinalized(sess monitor.Session, res scoring.Result) {
	h.broadcast(sess.ID, protocol.SessionEnded{
		Type:       protocol.TypeSessionEnded,
		SessionID:  sess.ID,
		FinalScore: res.Score,
		RiskLevel:  string(res.RiskLevel),
	})
}

func (s *Server) handleLiveFeed(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.engine.Get(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("feed_connected").Inc()
	sub := s.feed.subscribe(sessionID)
	defer s.feed.unsubscribe(sessionID, sub)

	done := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		status := protocol.SessionStatus{
			Type:           protocol.TypeSessionStatus,
			SessionID:      sess.ID,
			Active:         sess.Active,
			ViolationCount: sess.ViolationCount,
		}
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(status); err != nil {
			return
		}
		s.metrics.WSMessages.WithLabelValues("outbound", string(protocol.TypeSessionStatus)).Inc()

		for {
			select {
			case <-done:
				return
			case msg, ok := <-sub.ch:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.log.Debug().Err(err).Str("session_id", sessionID).Msg("invalid live feed client message")
			continue
		}
		if ctrl, ok := parsed.(protocol.ClientControl); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(protocol.TypeClientControl)).Inc()
			if ctrl.Action == "ping" {
				_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			}
		}
	}

	close(done)
	<-writerDone
	s.metrics.SessionEvents.WithLabelValues("feed_disconnected").Inc()
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ViolationEvent:
		return m.Type, true
	case protocol.SessionStatus:
		return m.Type, true
	case protocol.SessionEnded:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	case protocol.ClientControl:
		return m.Type, true
	default:
		return "", false
	}
}
