package classifier

import (
	"context"
	"sync"
)

// MockClassifier is a local fallback used when no model backend is
// configured. Verdicts can be scripted per call; once the script runs out it
// keeps returning the last configured verdict.
type MockClassifier struct {
	mu       sync.Mutex
	script   []FrameResult
	next     int
	fallback FrameResult

	silenceCutoff float64
}

func NewMockClassifier() *MockClassifier {
	return &MockClassifier{
		fallback:      FrameResult{Verdict: FacePresent, FaceCount: 1, OrientationQuality: 1},
		silenceCutoff: 0.05,
	}
}

// Queue appends scripted frame results returned by subsequent calls.
func (m *MockClassifier) Queue(results ...FrameResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, results...)
}

func (m *MockClassifier) ClassifyFrame(_ context.Context, frame []byte) (FrameResult, error) {
	if len(frame) == 0 {
		return FrameResult{}, ErrInvalidFrame
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next < len(m.script) {
		r := m.script[m.next]
		m.next++
		m.fallback = r
		return r, nil
	}
	return m.fallback, nil
}

func (m *MockClassifier) ClassifySample(_ context.Context, volumeLevel float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return volumeLevel < m.silenceCutoff, nil
}
