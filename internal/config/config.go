package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Optional bearer token; when empty the API is open (local harness use).
	APIKey string

	// Synthetic layout defaults for new page sessions.
	ViewportWidth  float64
	ViewportHeight float64

	// Visibility thresholds.
	ClipThreshold float64
	CornerInset   float64

	// Overlay behavior.
	ResizeDebounce time.Duration
	PeekKey        string

	// Walker policy for segments whose end marker never appears.
	KeepUnterminated bool

	// Session lifecycle.
	SessionTTL      time.Duration
	CleanupInterval time.Duration

	// Upload limits.
	MaxUploadBytes int64
}

func Load() Config {
	cfg := Config{
		Port:   envOr("PORT", "8091"),
		APIKey: os.Getenv("LQASCAN_API_KEY"),

		ViewportWidth:  envFloat("VIEWPORT_WIDTH", 1280),
		ViewportHeight: envFloat("VIEWPORT_HEIGHT", 800),

		ClipThreshold: envFloat("CLIP_THRESHOLD", 0.5),
		CornerInset:   envFloat("CORNER_INSET", 2),

		ResizeDebounce: envDuration("RESIZE_DEBOUNCE", 250*time.Millisecond),
		PeekKey:        envOr("PEEK_KEY", "Alt"),

		KeepUnterminated: envBool("KEEP_UNTERMINATED", false),

		SessionTTL:      envDuration("SESSION_TTL", 1*time.Hour),
		CleanupInterval: envDuration("CLEANUP_INTERVAL", 5*time.Minute),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 10485760), // 10MB
	}

	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = 1280
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = 800
	}
	if cfg.ResizeDebounce <= 0 {
		cfg.ResizeDebounce = 250 * time.Millisecond
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 1 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10485760
	}

	return cfg
}

func (c Config) Validate() error {
	if c.ClipThreshold <= 0 || c.ClipThreshold > 1 {
		return fmt.Errorf("CLIP_THRESHOLD must be in (0,1], got %v", c.ClipThreshold)
	}
	if c.CornerInset < 0 {
		return fmt.Errorf("CORNER_INSET must be >= 0, got %v", c.CornerInset)
	}
	if c.PeekKey == "" {
		return fmt.Errorf("PEEK_KEY must not be empty")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
