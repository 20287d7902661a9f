package config

import (
	"testing"
	"time"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("STR_SET", "value")
	t.Setenv("INT_SET", "42")
	t.Setenv("INT_BAD", "not-a-number")
	t.Setenv("BOOL_SET", "true")
	t.Setenv("DUR_SECS", "90")
	t.Setenv("DUR_PARSE", "1500ms")

	if got := getEnv("STR_SET", "fallback"); got != "value" {
		t.Errorf("getEnv set = %q", got)
	}
	if got := getEnv("STR_UNSET", "fallback"); got != "fallback" {
		t.Errorf("getEnv unset = %q", got)
	}
	if got := getEnvInt("INT_SET", 7); got != 42 {
		t.Errorf("getEnvInt set = %d", got)
	}
	if got := getEnvInt("INT_BAD", 7); got != 7 {
		t.Errorf("getEnvInt bad = %d, want fallback", got)
	}
	if got := getEnvBool("BOOL_SET", false); !got {
		t.Error("getEnvBool set = false")
	}
	if got := getEnvDuration("DUR_SECS", time.Second); got != 90*time.Second {
		t.Errorf("getEnvDuration seconds = %v", got)
	}
	if got := getEnvDuration("DUR_PARSE", time.Second); got != 1500*time.Millisecond {
		t.Errorf("getEnvDuration parse = %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %s", cfg.ListenAddr)
	}
	if cfg.PrefetchCapacity != 3 {
		t.Errorf("PrefetchCapacity = %d, want 3", cfg.PrefetchCapacity)
	}
	if cfg.PrefetchDelay != 1500*time.Millisecond {
		t.Errorf("PrefetchDelay = %v", cfg.PrefetchDelay)
	}
	if cfg.HistoryLimit != 50 {
		t.Errorf("HistoryLimit = %d, want 50", cfg.HistoryLimit)
	}
	if cfg.DeezerAPIURL != "https://api.deezer.com" {
		t.Errorf("DeezerAPIURL = %s", cfg.DeezerAPIURL)
	}
}
