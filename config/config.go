// Package config holds the extraction configuration and the file type
// tables shared by the dispatcher and the CLI.
package config

import (
	"log/slog"
	"time"
)

// Compound file parsing modes.
const (
	CFBStrict  = "strict"
	CFBLenient = "lenient"
)

// ExtractionConfig controls extraction behavior. The zero value is not
// usable directly; call Default or normalize via Normalized.
type ExtractionConfig struct {
	// OCREnabled turns on OCR fallback for image-only pages and image
	// inputs when an engine is registered.
	OCREnabled bool

	// OCRLanguages are hints passed to the OCR engine, in priority order.
	OCRLanguages []string

	// OCRDeadline bounds one page recognition. Zero means no limit.
	OCRDeadline time.Duration

	// MaxContentLength truncates extracted content at a rune boundary.
	// Zero means unlimited.
	MaxContentLength int

	// CFBMode selects strict or lenient compound file parsing.
	// Lenient recovers truncated containers where possible.
	CFBMode string

	// HTMLSanitize strips unsafe markup from HTML bodies before text
	// conversion. Script and style content is removed either way.
	HTMLSanitize bool

	// CacheCapacity and CacheTTL size the in-memory result cache.
	CacheCapacity int
	CacheTTL      time.Duration

	// CachePath, when set, enables the durable SQLite result store.
	CachePath string

	// Logger receives structured diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// Default returns the configuration used when the caller passes none.
func Default() ExtractionConfig {
	return ExtractionConfig{
		OCRLanguages:     []string{"eng"},
		OCRDeadline:      30 * time.Second,
		CFBMode:          CFBStrict,
		HTMLSanitize:     true,
		CacheCapacity:    1024,
		CacheTTL:         time.Hour,
		MaxContentLength: 0,
	}
}

// Normalized fills unset fields with defaults and returns the result.
func (c ExtractionConfig) Normalized() ExtractionConfig {
	if len(c.OCRLanguages) == 0 {
		c.OCRLanguages = []string{"eng"}
	}
	if c.CFBMode != CFBLenient {
		c.CFBMode = CFBStrict
	}
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = 1024
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
