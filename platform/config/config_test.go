package config

import (
	"testing"
	"time"
)

func TestLoadCollectsPerTaskDueOffsets(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("APP_ENV", "development")
	t.Setenv("TASK_DUE_OFFSET_DEFAULT", "24h")
	t.Setenv("TASK_DUE_OFFSET_APPROVE_LEASE", "72h")
	t.Setenv("TASK_DUE_OFFSET_FOLLOWUP_PARTY", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.GetTaskDueOffset("APPROVE_LEASE"); got != 72*time.Hour {
		t.Fatalf("APPROVE_LEASE offset = %v, want 72h", got)
	}
	if got := cfg.GetTaskDueOffset("FOLLOWUP_PARTY"); got != 30*time.Minute {
		t.Fatalf("FOLLOWUP_PARTY offset = %v, want 30m", got)
	}
	if got := cfg.GetTaskDueOffset("SEND_LEASE"); got != 24*time.Hour {
		t.Fatalf("unconfigured task offset = %v, want the 24h default", got)
	}
}

func TestLoadIgnoresMalformedDueOffsets(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("APP_ENV", "development")
	t.Setenv("TASK_DUE_OFFSET_APPROVE_LEASE", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.GetTaskDueOffset("APPROVE_LEASE"); got != 24*time.Hour {
		t.Fatalf("malformed offset = %v, want the 24h default", got)
	}
}
