package violation

import "time"

// Kind identifies one category of integrity breach.
type Kind string

const (
	KindFaceMissing     Kind = "FACE_MISSING"
	KindMultipleFaces   Kind = "MULTIPLE_FACES"
	KindFaceOrientation Kind = "FACE_ORIENTATION"
	KindAudioSilence    Kind = "AUDIO_SILENCE"
	KindTabSwitch       Kind = "TAB_SWITCH"
)

// penalties maps each known kind to the points it removes from the final
// score. Kinds absent from the table cost nothing, so new kinds can be
// recorded before scoring learns about them.
var penalties = map[Kind]float64{
	KindFaceMissing:     5,
	KindMultipleFaces:   10,
	KindFaceOrientation: 2,
	KindAudioSilence:    5,
	KindTabSwitch:       8,
}

// Penalty returns the score deduction for a kind, 0 for unknown kinds.
func Penalty(k Kind) float64 {
	return penalties[k]
}

// Known reports whether k is one of the enumerated kinds.
func Known(k Kind) bool {
	_, ok := penalties[k]
	return ok
}

// Record is a single recorded breach. Immutable once created.
type Record struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Kind       Kind      `json:"kind"`
	Details    string    `json:"details"`
	OccurredAt time.Time `json:"occurred_at"`
}
