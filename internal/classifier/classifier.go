package classifier

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// FaceVerdict is the outcome of classifying a single video frame.
type FaceVerdict string

const (
	FacePresent  FaceVerdict = "present"
	FaceAbsent   FaceVerdict = "absent"
	FaceMultiple FaceVerdict = "multiple"
)

var ErrInvalidFrame = errors.New("invalid frame payload")

// FrameResult carries the verdict for one frame. OrientationQuality is
// reported by model backends that estimate head pose (0..1, 1 = facing the
// camera); the monitor does not act on it yet.
type FrameResult struct {
	Verdict            FaceVerdict
	FaceCount          int
	OrientationQuality float64
}

// FrameClassifier analyzes one decoded frame. Implementations run model
// inference and must not touch session state.
type FrameClassifier interface {
	ClassifyFrame(ctx context.Context, frame []byte) (FrameResult, error)
}

// AudioClassifier decides whether one audio sample counts as silence.
type AudioClassifier interface {
	ClassifySample(ctx context.Context, volumeLevel float64) (bool, error)
}

// DecodeFrame accepts the browser capture payload, either raw base64 or a
// data URL ("data:image/jpeg;base64,...."), and returns the image bytes.
func DecodeFrame(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidFrame)
	}
	if i := strings.IndexByte(payload, ','); i >= 0 {
		payload = payload[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidFrame)
	}
	return raw, nil
}
