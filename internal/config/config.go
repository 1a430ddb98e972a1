package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the interview monitoring service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	LogLevel         string

	AllowAnyOrigin bool

	// Detection thresholds. The shipped defaults are the canonical policy
	// (5s face absence / 10s silence); every deployment can tune them.
	FaceAbsenceThreshold  time.Duration
	FaceDebounceWindow    time.Duration
	SilenceThreshold      time.Duration
	SilenceDebounceWindow time.Duration

	// Normalized RMS level below which an audio sample counts as silence,
	// for clients that report volume instead of a silence verdict.
	SilenceVolumeCutoff float64

	// Sessions with no observations for this long are auto-finalized.
	SessionInactivityTimeout time.Duration
	JanitorInterval          time.Duration

	DatabaseURL string

	ResumeDir   string
	ResumeMaxMB int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "proctor"),
		LogLevel:                 envOrDefault("APP_LOG_LEVEL", "info"),
		AllowAnyOrigin:           false,
		FaceAbsenceThreshold:     5 * time.Second,
		FaceDebounceWindow:       2 * time.Second,
		SilenceThreshold:         10 * time.Second,
		SilenceDebounceWindow:    5 * time.Second,
		SilenceVolumeCutoff:      0.05,
		SessionInactivityTimeout: 10 * time.Minute,
		JanitorInterval:          15 * time.Second,
		ShutdownTimeout:          15 * time.Second,
		DatabaseURL:              stringsTrimSpace("DATABASE_URL"),
		ResumeDir:                envOrDefault("RESUME_DIR", "resumes"),
		ResumeMaxMB:              10,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.JanitorInterval, err = durationFromEnv("APP_JANITOR_INTERVAL", cfg.JanitorInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.FaceAbsenceThreshold, err = durationFromEnv("FACE_ABSENCE_THRESHOLD", cfg.FaceAbsenceThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.FaceDebounceWindow, err = durationFromEnv("FACE_DEBOUNCE_WINDOW", cfg.FaceDebounceWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.SilenceThreshold, err = durationFromEnv("SILENCE_THRESHOLD", cfg.SilenceThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.SilenceDebounceWindow, err = durationFromEnv("SILENCE_DEBOUNCE_WINDOW", cfg.SilenceDebounceWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.SilenceVolumeCutoff, err = floatFromEnv("SILENCE_VOLUME_CUTOFF", cfg.SilenceVolumeCutoff)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.ResumeMaxMB, err = intFromEnv("RESUME_MAX_MB", cfg.ResumeMaxMB)
	if err != nil {
		return Config{}, err
	}

	if cfg.FaceAbsenceThreshold <= 0 {
		return Config{}, fmt.Errorf("FACE_ABSENCE_THRESHOLD must be positive")
	}
	if cfg.SilenceThreshold <= 0 {
		return Config{}, fmt.Errorf("SILENCE_THRESHOLD must be positive")
	}
	if cfg.FaceDebounceWindow < 0 || cfg.SilenceDebounceWindow < 0 {
		return Config{}, fmt.Errorf("debounce windows must not be negative")
	}
	if cfg.SilenceVolumeCutoff <= 0 || cfg.SilenceVolumeCutoff >= 1 {
		return Config{}, fmt.Errorf("SILENCE_VOLUME_CUTOFF must be between 0 and 1")
	}
	if cfg.SessionInactivityTimeout < 30*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 30s")
	}
	if cfg.ResumeMaxMB <= 0 {
		return Config{}, fmt.Errorf("RESUME_MAX_MB must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
