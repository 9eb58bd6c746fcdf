package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"
)

const (
	EnvConversionStrategy       = "CONVERSION_STRATEGY"
	EnvConversionEngine         = "CONVERSION_ENGINE"
	EnvConversionRasterizer     = "CONVERSION_RASTERIZER"
	EnvConversionSofficePath    = "CONVERSION_SOFFICE_PATH"
	EnvConversionUnoconvertPath = "CONVERSION_UNOCONVERT_PATH"
	EnvConversionUnoserverHost  = "CONVERSION_UNOSERVER_HOST"
	EnvConversionUnoserverPort  = "CONVERSION_UNOSERVER_PORT"

	// EnvConversionTimeout overrides the per-invocation engine timeout.
	EnvConversionTimeout = "CONVERSION_TIMEOUT"

	// EnvConversionWorkers overrides the number of concurrent engine invocations.
	EnvConversionWorkers = "CONVERSION_WORKERS"
)

var (
	strategies  = []string{"eager", "lazy"}
	engines     = []string{"soffice", "unoconvert"}
	rasterizers = []string{"mupdf", "imagemagick"}
)

// ConversionConfig selects and tunes the external conversion engines.
type ConversionConfig struct {
	// Strategy is "eager" (convert and split during upload) or "lazy"
	// (convert in the background, render pages on first request).
	Strategy string `toml:"strategy"`

	// Engine is the document-to-PDF engine: "soffice" or "unoconvert".
	Engine string `toml:"engine"`

	// Rasterizer renders PDF pages to PNG: "mupdf" or "imagemagick".
	Rasterizer string `toml:"rasterizer"`

	SofficePath    string `toml:"soffice_path"`
	UnoconvertPath string `toml:"unoconvert_path"`
	UnoserverHost  string `toml:"unoserver_host"`
	UnoserverPort  int    `toml:"unoserver_port"`

	Timeout string `toml:"timeout"`
	Workers int    `toml:"workers"`
}

func (c *ConversionConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, loads environment overrides, and validates the conversion configuration.
func (c *ConversionConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *ConversionConfig) Merge(overlay *ConversionConfig) {
	if overlay.Strategy != "" {
		c.Strategy = overlay.Strategy
	}
	if overlay.Engine != "" {
		c.Engine = overlay.Engine
	}
	if overlay.Rasterizer != "" {
		c.Rasterizer = overlay.Rasterizer
	}
	if overlay.SofficePath != "" {
		c.SofficePath = overlay.SofficePath
	}
	if overlay.UnoconvertPath != "" {
		c.UnoconvertPath = overlay.UnoconvertPath
	}
	if overlay.UnoserverHost != "" {
		c.UnoserverHost = overlay.UnoserverHost
	}
	if overlay.UnoserverPort != 0 {
		c.UnoserverPort = overlay.UnoserverPort
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
}

func (c *ConversionConfig) loadDefaults() {
	if c.Strategy == "" {
		c.Strategy = "lazy"
	}
	if c.Engine == "" {
		c.Engine = "soffice"
	}
	if c.Rasterizer == "" {
		c.Rasterizer = "mupdf"
	}
	if c.SofficePath == "" {
		c.SofficePath = "soffice"
	}
	if c.UnoconvertPath == "" {
		c.UnoconvertPath = "unoconvert"
	}
	if c.UnoserverHost == "" {
		c.UnoserverHost = "127.0.0.1"
	}
	if c.UnoserverPort == 0 {
		c.UnoserverPort = 2003
	}
	if c.Timeout == "" {
		c.Timeout = "5m"
	}
	if c.Workers == 0 {
		c.Workers = 2
	}
}

func (c *ConversionConfig) loadEnv() {
	if v := os.Getenv(EnvConversionStrategy); v != "" {
		c.Strategy = v
	}
	if v := os.Getenv(EnvConversionEngine); v != "" {
		c.Engine = v
	}
	if v := os.Getenv(EnvConversionRasterizer); v != "" {
		c.Rasterizer = v
	}
	if v := os.Getenv(EnvConversionSofficePath); v != "" {
		c.SofficePath = v
	}
	if v := os.Getenv(EnvConversionUnoconvertPath); v != "" {
		c.UnoconvertPath = v
	}
	if v := os.Getenv(EnvConversionUnoserverHost); v != "" {
		c.UnoserverHost = v
	}
	if v := os.Getenv(EnvConversionUnoserverPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.UnoserverPort = port
		}
	}
	if v := os.Getenv(EnvConversionTimeout); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(EnvConversionWorkers); v != "" {
		if workers, err := strconv.Atoi(v); err == nil {
			c.Workers = workers
		}
	}
}

func (c *ConversionConfig) validate() error {
	if !slices.Contains(strategies, c.Strategy) {
		return fmt.Errorf("invalid strategy %q: must be one of %v", c.Strategy, strategies)
	}
	if !slices.Contains(engines, c.Engine) {
		return fmt.Errorf("invalid engine %q: must be one of %v", c.Engine, engines)
	}
	if !slices.Contains(rasterizers, c.Rasterizer) {
		return fmt.Errorf("invalid rasterizer %q: must be one of %v", c.Rasterizer, rasterizers)
	}
	if c.UnoserverPort < 1 || c.UnoserverPort > 65535 {
		return fmt.Errorf("invalid unoserver_port: %d", c.UnoserverPort)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	return parseDuration("timeout", c.Timeout)
}
