/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	BaseURL     string // Public base URL (e.g., http://radio.example.com)
	MetricsBind string

	// ChannelsFile points at the YAML file defining channels, timetables
	// and local playlists.
	ChannelsFile string

	// Redis state store
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	InstanceID    string

	// Playout engine (liquidsoap telnet server plus generated script)
	LiquidsoapAddr    string
	LiquidsoapLogPath string

	// Icecast output used by the generated playout script
	IcecastHost           string
	IcecastPort           int
	IcecastSourcePassword string

	// Upstream integrations
	RadioFranceToken string
	DeezerAPIURL     string
	FFProbeBin       string

	// Ad substitution library
	BackupGlob string

	TickInterval time.Duration

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:  getEnvAny([]string{"TOURNESOL_ENV", "SUNFLOWER_ENV"}, "development"),
		HTTPBind:     getEnvAny([]string{"TOURNESOL_HTTP_BIND", "SUNFLOWER_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:     getEnvIntAny([]string{"TOURNESOL_HTTP_PORT", "SUNFLOWER_HTTP_PORT"}, 8080),
		BaseURL:      getEnvAny([]string{"TOURNESOL_BASE_URL", "SUNFLOWER_BASE_URL"}, ""),
		MetricsBind:  getEnvAny([]string{"TOURNESOL_METRICS_BIND", "SUNFLOWER_METRICS_BIND"}, "127.0.0.1:9000"),
		ChannelsFile: getEnvAny([]string{"TOURNESOL_CHANNELS_FILE", "SUNFLOWER_CHANNELS_FILE"}, "channels.yml"),

		RedisAddr:     getEnvAny([]string{"TOURNESOL_REDIS_ADDR", "SUNFLOWER_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"TOURNESOL_REDIS_PASSWORD", "SUNFLOWER_REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"TOURNESOL_REDIS_DB", "SUNFLOWER_REDIS_DB"}, 0),
		InstanceID:    getEnvAny([]string{"TOURNESOL_INSTANCE_ID", "SUNFLOWER_INSTANCE_ID"}, ""),

		LiquidsoapAddr:    getEnvAny([]string{"TOURNESOL_LIQUIDSOAP_ADDR", "SUNFLOWER_LIQUIDSOAP_ADDR"}, "localhost:1234"),
		LiquidsoapLogPath: getEnvAny([]string{"TOURNESOL_LIQUIDSOAP_LOG", "SUNFLOWER_LIQUIDSOAP_LOG"}, "/var/log/liquidsoap.log"),

		IcecastHost:           getEnvAny([]string{"TOURNESOL_ICECAST_HOST", "ICECAST_HOST"}, "localhost"),
		IcecastPort:           getEnvIntAny([]string{"TOURNESOL_ICECAST_PORT", "ICECAST_PORT"}, 8000),
		IcecastSourcePassword: getEnvAny([]string{"TOURNESOL_ICECAST_SOURCE_PASSWORD", "ICECAST_SOURCE_PASSWORD"}, ""),

		RadioFranceToken: getEnvAny([]string{"TOURNESOL_RADIOFRANCE_TOKEN", "SUNFLOWER_RADIOFRANCE_TOKEN"}, ""),
		DeezerAPIURL:     getEnvAny([]string{"TOURNESOL_DEEZER_API_URL", "SUNFLOWER_DEEZER_API_URL"}, "https://api.deezer.com"),
		FFProbeBin:       getEnvAny([]string{"TOURNESOL_FFPROBE_BIN", "SUNFLOWER_FFPROBE_BIN"}, "ffprobe"),

		BackupGlob: getEnvAny([]string{"TOURNESOL_BACKUP_GLOB", "SUNFLOWER_BACKUP_GLOB"}, ""),

		TickInterval: time.Duration(getEnvIntAny([]string{"TOURNESOL_TICK_INTERVAL_SECONDS", "SUNFLOWER_TICK_INTERVAL_SECONDS"}, 4)) * time.Second,

		TracingEnabled:    getEnvBoolAny([]string{"TOURNESOL_TRACING_ENABLED", "SUNFLOWER_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"TOURNESOL_OTLP_ENDPOINT", "SUNFLOWER_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"TOURNESOL_TRACING_SAMPLE_RATE", "SUNFLOWER_TRACING_SAMPLE_RATE"}, 1.0),
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	if cfg.ChannelsFile == "" {
		return nil, fmt.Errorf("TOURNESOL_CHANNELS_FILE must be provided")
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("TOURNESOL_TICK_INTERVAL_SECONDS must be positive")
	}
	if strings.EqualFold(cfg.Environment, "production") {
		if cfg.IcecastSourcePassword == "" || strings.EqualFold(cfg.IcecastSourcePassword, "hackme") {
			return nil, fmt.Errorf("TOURNESOL_ICECAST_SOURCE_PASSWORD must be set to a non-default value in production")
		}
	}
	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"SUNFLOWER_ENV":               "use TOURNESOL_ENV",
		"SUNFLOWER_CHANNELS_FILE":     "use TOURNESOL_CHANNELS_FILE",
		"SUNFLOWER_REDIS_ADDR":        "use TOURNESOL_REDIS_ADDR",
		"SUNFLOWER_RADIOFRANCE_TOKEN": "use TOURNESOL_RADIOFRANCE_TOKEN",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
