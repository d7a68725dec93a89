/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package config loads process-level configuration for a mixer node from
// the environment, mirroring the rest of the streaming-node fleet's
// Load()/getEnv* pattern, plus an optional YAML overlay for static
// per-node defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config covers process-level configuration for cmd/mixnode.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	NodeID      string

	// DefaultWidth/DefaultHeight/DefaultSampleRate/DefaultFallbackTimeout
	// seed the mixer's Setting registry at construction; a YAML overlay
	// (see Overlay) may replace them with operator-supplied values before
	// the node is built.
	DefaultWidth           int32
	DefaultHeight          int32
	DefaultSampleRate      int32
	DefaultFallbackTimeout time.Duration
	DefaultFallbackImage   string

	// TracingEnabled/OTLPEndpoint/TraceSampleRate configure the node's
	// OpenTelemetry exporter; see internal/telemetry.InitTracer.
	TracingEnabled  bool
	OTLPEndpoint    string
	TraceSampleRate float64
}

// Overlay is the optional static per-node defaults file, checked into the
// node's deployment manifest (e.g. fallback image path, default
// resolution), and layered on top of the environment-driven Config.
type Overlay struct {
	Width           *int32  `yaml:"width"`
	Height          *int32  `yaml:"height"`
	SampleRate      *int32  `yaml:"sample_rate"`
	FallbackTimeout *int32  `yaml:"fallback_timeout_ms"`
	FallbackImage   *string `yaml:"fallback_image"`
}

// Load reads environment variables and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:            getEnv("MIXNODE_ENV", "development"),
		HTTPBind:               getEnv("MIXNODE_HTTP_BIND", "0.0.0.0"),
		HTTPPort:               getEnvInt("MIXNODE_HTTP_PORT", 8090),
		NodeID:                 getEnv("MIXNODE_ID", "mixer-0"),
		DefaultWidth:           int32(getEnvInt("MIXNODE_DEFAULT_WIDTH", 1920)),
		DefaultHeight:          int32(getEnvInt("MIXNODE_DEFAULT_HEIGHT", 1080)),
		DefaultSampleRate:      int32(getEnvInt("MIXNODE_DEFAULT_SAMPLE_RATE", 48000)),
		DefaultFallbackTimeout: getEnvDuration("MIXNODE_DEFAULT_FALLBACK_TIMEOUT_MS", 500*time.Millisecond),
		DefaultFallbackImage:   getEnv("MIXNODE_DEFAULT_FALLBACK_IMAGE", ""),
		TracingEnabled:         getEnvBool("MIXNODE_TRACING_ENABLED", false),
		OTLPEndpoint:           getEnv("MIXNODE_OTLP_ENDPOINT", "localhost:4317"),
		TraceSampleRate:        getEnvFloat("MIXNODE_TRACE_SAMPLE_RATE", 1.0),
	}

	if overlayPath := os.Getenv("MIXNODE_CONFIG_OVERLAY"); overlayPath != "" {
		if err := cfg.applyOverlay(overlayPath); err != nil {
			return nil, fmt.Errorf("config: loading overlay %s: %w", overlayPath, err)
		}
	}

	return cfg, nil
}

// applyOverlay reads a YAML overlay file and replaces any field it sets.
func (c *Config) applyOverlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var overlay Overlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing yaml: %w", err)
	}

	if overlay.Width != nil {
		c.DefaultWidth = *overlay.Width
	}
	if overlay.Height != nil {
		c.DefaultHeight = *overlay.Height
	}
	if overlay.SampleRate != nil {
		c.DefaultSampleRate = *overlay.SampleRate
	}
	if overlay.FallbackTimeout != nil {
		c.DefaultFallbackTimeout = time.Duration(*overlay.FallbackTimeout) * time.Millisecond
	}
	if overlay.FallbackImage != nil {
		c.DefaultFallbackImage = *overlay.FallbackImage
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return time.Duration(parsed) * time.Millisecond
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}
