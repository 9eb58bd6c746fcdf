package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"
)

const (
	EnvPagesFormat      = "PAGES_FORMAT"
	EnvPagesDPI         = "PAGES_DPI"
	EnvPagesWaitTimeout = "PAGES_WAIT_TIMEOUT"
	EnvPagesSampleSize  = "PAGES_SAMPLE_SIZE"
)

var formats = []string{"png", "pdf"}

// PagesConfig controls page artifact production and page request behavior.
type PagesConfig struct {
	// Format is the per-page artifact kind: "png" or "pdf".
	Format string `toml:"format"`

	// DPI is the rasterization resolution for png pages.
	DPI int `toml:"dpi"`

	// WaitTimeout bounds how long a page request waits on an in-flight
	// conversion before reporting "converting".
	WaitTimeout string `toml:"wait_timeout"`

	// SampleSize caps the test_pages sample returned from eager uploads.
	SampleSize int `toml:"sample_size"`

	// HighlightCount caps the highlights returned from lazy uploads.
	HighlightCount int `toml:"highlight_count"`
}

func (c *PagesConfig) WaitTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.WaitTimeout)
	return d
}

// Finalize applies defaults, loads environment overrides, and validates the pages configuration.
func (c *PagesConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *PagesConfig) Merge(overlay *PagesConfig) {
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
	if overlay.DPI != 0 {
		c.DPI = overlay.DPI
	}
	if overlay.WaitTimeout != "" {
		c.WaitTimeout = overlay.WaitTimeout
	}
	if overlay.SampleSize != 0 {
		c.SampleSize = overlay.SampleSize
	}
	if overlay.HighlightCount != 0 {
		c.HighlightCount = overlay.HighlightCount
	}
}

func (c *PagesConfig) loadDefaults() {
	if c.Format == "" {
		c.Format = "png"
	}
	if c.DPI == 0 {
		c.DPI = 150
	}
	if c.WaitTimeout == "" {
		c.WaitTimeout = "30s"
	}
	if c.SampleSize == 0 {
		c.SampleSize = 50
	}
	if c.HighlightCount == 0 {
		c.HighlightCount = 14
	}
}

func (c *PagesConfig) loadEnv() {
	if v := os.Getenv(EnvPagesFormat); v != "" {
		c.Format = v
	}
	if v := os.Getenv(EnvPagesDPI); v != "" {
		if dpi, err := strconv.Atoi(v); err == nil {
			c.DPI = dpi
		}
	}
	if v := os.Getenv(EnvPagesWaitTimeout); v != "" {
		c.WaitTimeout = v
	}
	if v := os.Getenv(EnvPagesSampleSize); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			c.SampleSize = size
		}
	}
}

func (c *PagesConfig) validate() error {
	if !slices.Contains(formats, c.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", c.Format, formats)
	}
	if c.DPI < 36 || c.DPI > 1200 {
		return fmt.Errorf("dpi must be between 36 and 1200, got %d", c.DPI)
	}
	if c.SampleSize < 1 {
		return fmt.Errorf("sample_size must be at least 1")
	}
	if c.HighlightCount < 1 {
		return fmt.Errorf("highlight_count must be at least 1")
	}
	return parseDuration("wait_timeout", c.WaitTimeout)
}
