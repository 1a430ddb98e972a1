package policy

import (
	"strings"
	"testing"
)

func TestRedactPII(t *testing.T) {
	input := "Page blur reported by sam@example.com, callback +1 (555) 123-9876"
	out, changed := RedactPII(input)
	if !changed {
		t.Fatalf("changed = false, want true")
	}
	for _, marker := range []string{"[REDACTED_EMAIL]", "[REDACTED_PHONE]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("output missing marker %q: %q", marker, out)
		}
	}
}

func TestRedactPIICleanInput(t *testing.T) {
	out, changed := RedactPII("Face missing for > 6.2s")
	if changed {
		t.Fatalf("changed = true for clean input")
	}
	if out != "Face missing for > 6.2s" {
		t.Fatalf("clean input altered: %q", out)
	}
}
