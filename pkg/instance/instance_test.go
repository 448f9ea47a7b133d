package instance

import "testing"

func TestIDPrefersExplicitOverride(t *testing.T) {
	t.Setenv("DYNO", "web.1")
	t.Setenv("SNAPWALL_INSTANCE_ID", "api-7")
	if got := ID(); got != "api-7" {
		t.Fatalf("expected override, got %q", got)
	}
}

func TestIDFallsBackToDyno(t *testing.T) {
	t.Setenv("SNAPWALL_INSTANCE_ID", "")
	t.Setenv("DYNO", "web.2")
	if got := ID(); got != "web.2" {
		t.Fatalf("expected dyno name, got %q", got)
	}
}

func TestIDNeverEmpty(t *testing.T) {
	t.Setenv("SNAPWALL_INSTANCE_ID", "")
	t.Setenv("DYNO", "")
	if ID() == "" {
		t.Fatal("expected a non-empty id")
	}
}
