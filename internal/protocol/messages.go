package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MessageType identifies live feed websocket payload variants.
type MessageType string

const (
	TypeViolationEvent MessageType = "violation_event"
	TypeSessionStatus  MessageType = "session_status"
	TypeSessionEnded   MessageType = "session_ended"
	TypeErrorEvent     MessageType = "error_event"
	TypeClientControl  MessageType = "client_control"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ViolationEvent is pushed to invigilator clients as each violation lands.
type ViolationEvent struct {
	Type       MessageType `json:"type"`
	SessionID  string      `json:"session_id"`
	Kind       string      `json:"kind"`
	Details    string      `json:"details"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// SessionStatus is the snapshot sent when a client attaches to the feed.
type SessionStatus struct {
	Type           MessageType `json:"type"`
	SessionID      string      `json:"session_id"`
	Active         bool        `json:"active"`
	ViolationCount int         `json:"violation_count"`
}

// SessionEnded closes a feed with the final verdict.
type SessionEnded struct {
	Type       MessageType `json:"type"`
	SessionID  string      `json:"session_id"`
	FinalScore float64     `json:"final_score"`
	RiskLevel  string      `json:"risk_level"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail"`
}

// ClientControl is the only inbound message on the feed (keepalive pings).
type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
	TSMs      int64       `json:"ts_ms,omitempty"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Action == "" {
			return nil, errors.New("invalid client_control")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
