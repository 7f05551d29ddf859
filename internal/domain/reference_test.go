package domain

import "testing"

func TestNewPartReferenceNormalizes(t *testing.T) {
	ref, err := NewPartReference("  br pad 001 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.String() != "BR-PAD-001" {
		t.Fatalf("normalize: want=BR-PAD-001 got=%s", ref.String())
	}
}

func TestNewPartReferenceRejectsInvalid(t *testing.T) {
	for _, raw := range []string{"", "x", "-ABC", "ABC-", "A B!C"} {
		if _, err := NewPartReference(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
