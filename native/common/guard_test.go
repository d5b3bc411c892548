package common

import (
	"errors"
	"testing"
)

func TestGuardHonoursPauseSet(t *testing.T) {
	if err := Guard(nil, "referral"); err != nil {
		t.Fatalf("nil view must not block: %v", err)
	}
	set := NewPauseSet("Referral")
	if err := Guard(set, "referral"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
	set.Set("referral", false)
	if err := Guard(set, "referral"); err != nil {
		t.Fatalf("expected resumed module, got %v", err)
	}
}
