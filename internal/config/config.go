package config

import (
	"errors"
	"net/url"
	"os"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Upstream measurement API.
	PandoraAPIURL     string
	PandoraAPITimeout time.Duration

	MarkerColorDelay   time.Duration
	SessionIdleTimeout time.Duration

	// Fetch event publishing.
	FetchEventsEnabled bool
	KafkaBrokers       []string
	FetchEventsTopic   string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	apiTimeout, err := parsePositiveDuration("PANDORA_API_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	markerDelay, err := parseDuration("MARKER_COLOR_DELAY", "100ms")
	if err != nil || markerDelay < 0 {
		return nil, errors.New("invalid MARKER_COLOR_DELAY")
	}

	idleTimeout, err := parsePositiveDuration("SESSION_IDLE_TIMEOUT", "30m")
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		PandoraAPIURL:     strings.TrimRight(sharedcfg.EnvOrDefault("PANDORA_API_URL", "http://localhost:8000"), "/"),
		PandoraAPITimeout: apiTimeout,

		MarkerColorDelay:   markerDelay,
		SessionIdleTimeout: idleTimeout,

		FetchEventsEnabled: os.Getenv("FETCH_EVENTS_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		FetchEventsTopic:   sharedcfg.EnvOrDefault("FETCH_EVENTS_TOPIC", "pandora-dashboard-fetches"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if u, err := url.Parse(cfg.PandoraAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("invalid PANDORA_API_URL")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, errors.New("LOG_FORMAT must be json or text")
	}
	if cfg.FetchEventsEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when FETCH_EVENTS_ENABLED is true")
		}
		if cfg.FetchEventsTopic == "" {
			return nil, errors.New("FETCH_EVENTS_TOPIC is required when FETCH_EVENTS_ENABLED is true")
		}
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	return time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := parseDuration(key, def)
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}
