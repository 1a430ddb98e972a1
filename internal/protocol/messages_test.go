package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageControl(t *testing.T) {
	raw := []byte(`{"type":"client_control","session_id":"s1","action":"ping","ts_ms":456}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	control, ok := msg.(ClientControl)
	if !ok {
		t.Fatalf("message type = %T, want ClientControl", msg)
	}
	if control.SessionID != "s1" || control.Action != "ping" {
		t.Fatalf("unexpected client control: %+v", control)
	}
	if control.TSMs != 456 {
		t.Fatalf("TSMs = %d, want %d", control.TSMs, 456)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsMissingAction(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"client_control","session_id":"s1"}`))
	if err == nil {
		t.Fatalf("expected error for control without action")
	}
}

func TestParseClientMessageRejectsGarbage(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{not json`)); err == nil {
		t.Fatalf("expected envelope error")
	}
}
