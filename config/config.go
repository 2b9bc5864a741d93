// Package config loads and validates process configuration from the
// environment. Loading is done with a process-local *viper.Viper
// instance rather than the package-level viper singleton, so that config
// construction stays injectable in tests and never mutates shared global
// state.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the immutable, validated configuration for one process
// lifetime.
type Config struct {
	Addr string

	NTPServers           []string
	NTPTimeout           time.Duration
	SyncInterval         time.Duration
	ProbeMinInterval     time.Duration
	ProbeMaxInterval     time.Duration
	SampleServersPerSync int
	MaxOffsetSkewMs      int64
	MonotonicOutput      bool
	OffsetBiasMs         int64
	AsymmetryBiasMs      int64
	RequireSync          bool
	MaxStaleness         time.Duration

	LogLevel  string
	LogFormat string

	RequestTimeout       time.Duration
	BodyLimitBytes       int64
	ShutdownGraceSeconds time.Duration

	MsgOK           string
	MsgError        string
	ErrorTextNoSync string
}

func defaults(v *viper.Viper) {
	v.SetDefault("ADDR", ":8080")
	v.SetDefault("NTP_TIMEOUT", 5)
	v.SetDefault("SYNC_INTERVAL", 60)
	v.SetDefault("PROBE_MIN_INTERVAL", 30)
	v.SetDefault("PROBE_MAX_INTERVAL", 300)
	v.SetDefault("SAMPLE_SERVERS_PER_SYNC", 3)
	v.SetDefault("MAX_OFFSET_SKEW_MS", 1000)
	v.SetDefault("MONOTONIC_OUTPUT", true)
	v.SetDefault("OFFSET_BIAS_MS", 0)
	v.SetDefault("ASYMMETRY_BIAS_MS", 0)
	v.SetDefault("REQUIRE_SYNC", true)
	v.SetDefault("MAX_STALENESS", 300)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REQUEST_TIMEOUT", 5)
	v.SetDefault("BODY_LIMIT_BYTES", 1024)
	v.SetDefault("SHUTDOWN_GRACE_SECONDS", 5)

	v.SetDefault("MSG_OK", "done")
	v.SetDefault("MSG_ERROR", "error")
	v.SetDefault("ERROR_TEXT_NO_SYNC", "Service not yet synchronized with NTP")
}

// Load reads configuration from the environment into a Config, applying
// defaults for anything unset, then validates it. NTP_SERVERS is the one
// key with no default: an empty server list is a startup-fatal
// ConfigError.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	defaults(v)

	servers := splitNonEmpty(v.GetString("NTP_SERVERS"))

	cfg := Config{
		Addr: v.GetString("ADDR"),

		NTPServers:           servers,
		NTPTimeout:           time.Duration(v.GetInt64("NTP_TIMEOUT")) * time.Second,
		SyncInterval:         time.Duration(v.GetInt64("SYNC_INTERVAL")) * time.Second,
		ProbeMinInterval:     time.Duration(v.GetInt64("PROBE_MIN_INTERVAL")) * time.Second,
		ProbeMaxInterval:     time.Duration(v.GetInt64("PROBE_MAX_INTERVAL")) * time.Second,
		SampleServersPerSync: v.GetInt("SAMPLE_SERVERS_PER_SYNC"),
		MaxOffsetSkewMs:      v.GetInt64("MAX_OFFSET_SKEW_MS"),
		MonotonicOutput:      v.GetBool("MONOTONIC_OUTPUT"),
		OffsetBiasMs:         v.GetInt64("OFFSET_BIAS_MS"),
		AsymmetryBiasMs:      v.GetInt64("ASYMMETRY_BIAS_MS"),
		RequireSync:          v.GetBool("REQUIRE_SYNC"),
		MaxStaleness:         time.Duration(v.GetInt64("MAX_STALENESS")) * time.Second,

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		RequestTimeout:       time.Duration(v.GetInt64("REQUEST_TIMEOUT")) * time.Second,
		BodyLimitBytes:       v.GetInt64("BODY_LIMIT_BYTES"),
		ShutdownGraceSeconds: time.Duration(v.GetInt64("SHUTDOWN_GRACE_SECONDS")) * time.Second,

		MsgOK:           v.GetString("MSG_OK"),
		MsgError:        v.GetString("MSG_ERROR"),
		ErrorTextNoSync: v.GetString("ERROR_TEXT_NO_SYNC"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants the rest of the system assumes hold.
// A failure here is a ConfigError: the process must exit before binding
// any socket.
func (c Config) Validate() error {
	if len(c.NTPServers) == 0 {
		return fmt.Errorf("config: NTP_SERVERS must list at least one server")
	}
	if c.NTPTimeout < time.Second {
		return fmt.Errorf("config: NTP_TIMEOUT must be at least 1 second")
	}
	if c.SyncInterval < time.Second {
		return fmt.Errorf("config: SYNC_INTERVAL must be at least 1 second")
	}
	if c.SampleServersPerSync < 1 {
		return fmt.Errorf("config: SAMPLE_SERVERS_PER_SYNC must be at least 1")
	}
	if c.ProbeMinInterval > c.ProbeMaxInterval {
		return fmt.Errorf("config: PROBE_MIN_INTERVAL must not exceed PROBE_MAX_INTERVAL")
	}
	if c.ProbeMinInterval <= 0 {
		return fmt.Errorf("config: PROBE_MIN_INTERVAL must be positive")
	}
	return nil
}

func splitNonEmpty(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
