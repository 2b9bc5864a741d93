package config

import "testing"

func withEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoadFailsWithoutServers(t *testing.T) {
	withEnv(t, map[string]string{"NTP_SERVERS": ""})

	if _, err := Load(); err == nil {
		t.Fatalf("expected an error when NTP_SERVERS is empty")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	withEnv(t, map[string]string{"NTP_SERVERS": "a:123,b:123"})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":8080")
	}
	if len(cfg.NTPServers) != 2 {
		t.Errorf("NTPServers = %v, want 2 entries", cfg.NTPServers)
	}
	if !cfg.RequireSync {
		t.Errorf("RequireSync should default to true")
	}
}

func TestValidateRejectsInvertedProbeRange(t *testing.T) {
	cfg := Config{
		NTPServers:           []string{"a:123"},
		NTPTimeout:           1_000_000_000,
		SyncInterval:         1_000_000_000,
		SampleServersPerSync: 1,
		ProbeMinInterval:     300_000_000_000,
		ProbeMaxInterval:     30_000_000_000,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error when PROBE_MIN_INTERVAL > PROBE_MAX_INTERVAL")
	}
}
