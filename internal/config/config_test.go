package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.RoundSeconds != 10 {
		t.Errorf("RoundSeconds = %d, want 10", cfg.RoundSeconds)
	}
	if cfg.WinScore != 5 {
		t.Errorf("WinScore = %d, want 5", cfg.WinScore)
	}
	if cfg.FreshnessWindowSeconds != 30 {
		t.Errorf("FreshnessWindowSeconds = %d, want 30", cfg.FreshnessWindowSeconds)
	}
	if cfg.LockedGraceMillis != 1500 {
		t.Errorf("LockedGraceMillis = %d, want 1500", cfg.LockedGraceMillis)
	}
	if cfg.CorrectAdvanceMillis != 1000 {
		t.Errorf("CorrectAdvanceMillis = %d, want 1000", cfg.CorrectAdvanceMillis)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("WIN_SCORE", "7")
	t.Setenv("ROUND_SECONDS", "15")
	t.Setenv("APP_ENV", "production")

	cfg := Load()
	if cfg.WinScore != 7 {
		t.Errorf("WinScore = %d, want 7", cfg.WinScore)
	}
	if cfg.RoundSeconds != 15 {
		t.Errorf("RoundSeconds = %d, want 15", cfg.RoundSeconds)
	}
	if cfg.Environment != "production" {
		t.Errorf("Environment = %q, want production", cfg.Environment)
	}
}

func TestLoadIgnoresMalformedInt(t *testing.T) {
	t.Setenv("WIN_SCORE", "not-a-number")

	cfg := Load()
	if cfg.WinScore != 5 {
		t.Errorf("WinScore = %d, want default 5 for malformed env value", cfg.WinScore)
	}
}
