package domain

import "testing"

func TestSentinelClassifier(t *testing.T) {
	c := NewSentinelClassifier("primary-org")

	role, desc := c.Classify("PRIMARY-ORG")
	if role != RolePrimary {
		t.Errorf("sentinel code: role = %q, want %q", role, RolePrimary)
	}
	if desc == "" {
		t.Error("sentinel code: descriptor is empty")
	}

	role, _ = c.Classify("OTHER-ORG")
	if role != RoleSecondary {
		t.Errorf("non-sentinel code: role = %q, want %q", role, RoleSecondary)
	}

	role, desc = c.Classify("")
	if role != RoleSecondary {
		t.Errorf("absent code: role = %q, want %q", role, RoleSecondary)
	}
	if desc == "" {
		t.Error("absent code: descriptor is empty")
	}
}

func TestSentinelClassifier_InvalidSentinelNeverMatches(t *testing.T) {
	c := NewSentinelClassifier("not a valid code!")
	role, _ := c.Classify("NOT-A-VALID-CODE")
	if role != RoleSecondary {
		t.Errorf("role = %q, want %q", role, RoleSecondary)
	}
}
