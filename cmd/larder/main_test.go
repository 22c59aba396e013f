package main

import (
	"testing"
	"time"
)

func TestEnvFallback(t *testing.T) {
	t.Setenv("LARDER_TEST_SET", "value")

	if got := env("LARDER_TEST_SET", "fallback"); got != "value" {
		t.Errorf("env = %q, want the set value", got)
	}
	if got := env("LARDER_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("env = %q, want the fallback", got)
	}
}

func TestEnvPositiveInt(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  int
	}{
		{"set", "12", 12},
		{"unset", "", 0},
		{"malformed", "daily", 0},
		{"zero", "0", 0},
		{"negative", "-6", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.value != "" {
				t.Setenv("LARDER_TEST_KNOB", tc.value)
			}
			if got := envPositiveInt("LARDER_TEST_KNOB"); got != tc.want {
				t.Errorf("envPositiveInt(%q) = %d, want %d", tc.value, got, tc.want)
			}
		})
	}
}

func TestBackupKnobsFromEnv(t *testing.T) {
	t.Setenv("LARDER_BACKUP_INTERVAL_HOURS", "6")
	t.Setenv("LARDER_BACKUP_RETENTION_DAYS", "14")

	interval := time.Duration(envPositiveInt("LARDER_BACKUP_INTERVAL_HOURS")) * time.Hour
	if interval != 6*time.Hour {
		t.Errorf("interval = %v, want 6h", interval)
	}
	if days := envPositiveInt("LARDER_BACKUP_RETENTION_DAYS"); days != 14 {
		t.Errorf("retention = %d, want 14", days)
	}
}
