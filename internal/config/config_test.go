package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/JaimeStill/docpages/internal/config"
	"github.com/JaimeStill/docpages/pkg/logging"
	"github.com/JaimeStill/docpages/pkg/storage"
)

func writeFile(t *testing.T, name, content string) {
	t.Helper()
	if err := os.WriteFile(name, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoad_MissingBaseFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVICE_ENV", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Conversion.Strategy != "lazy" {
		t.Errorf("Conversion.Strategy = %q, want lazy", cfg.Conversion.Strategy)
	}
	if cfg.Pages.WaitTimeoutDuration() != 30*time.Second {
		t.Errorf("Pages.WaitTimeout = %v, want 30s", cfg.Pages.WaitTimeoutDuration())
	}
	if cfg.Pages.SampleSize != 50 {
		t.Errorf("Pages.SampleSize = %d, want 50", cfg.Pages.SampleSize)
	}
	if cfg.Pages.HighlightCount != 14 {
		t.Errorf("Pages.HighlightCount = %d, want 14", cfg.Pages.HighlightCount)
	}
	if cfg.Pages.DPI != 150 {
		t.Errorf("Pages.DPI = %d, want 150", cfg.Pages.DPI)
	}
	if cfg.ShutdownTimeoutDuration() != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 30s", cfg.ShutdownTimeoutDuration())
	}
}

func TestLoad_BaseAndOverlay(t *testing.T) {
	t.Chdir(t.TempDir())

	writeFile(t, "config.toml", `
shutdown_timeout = "45s"

[server]
port = 9000

[conversion]
strategy = "eager"
workers = 4

[pages]
format = "pdf"
`)
	writeFile(t, "config.test.toml", `
[server]
port = 9090

[sessions]
idle_timeout = "2m"
`)
	t.Setenv("SERVICE_ENV", "test")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want overlay 9090", cfg.Server.Port)
	}
	if cfg.Conversion.Strategy != "eager" {
		t.Errorf("Conversion.Strategy = %q, want eager", cfg.Conversion.Strategy)
	}
	if cfg.Conversion.Workers != 4 {
		t.Errorf("Conversion.Workers = %d, want 4", cfg.Conversion.Workers)
	}
	if cfg.Pages.Format != "pdf" {
		t.Errorf("Pages.Format = %q, want pdf", cfg.Pages.Format)
	}
	if cfg.Sessions.IdleTimeoutDuration() != 2*time.Minute {
		t.Errorf("Sessions.IdleTimeout = %v, want 2m", cfg.Sessions.IdleTimeoutDuration())
	}
	if cfg.ShutdownTimeout != "45s" {
		t.Errorf("ShutdownTimeout = %q, want 45s", cfg.ShutdownTimeout)
	}
}

func TestLoad_InvalidToml(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVICE_ENV", "")

	writeFile(t, "config.toml", "[server\nport = ")

	if _, err := config.Load(); err == nil {
		t.Error("Load() succeeded with malformed toml")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVICE_ENV", "")

	os.Unsetenv("PAGES_DPI")
	t.Cleanup(func() { os.Unsetenv("PAGES_DPI") })

	writeFile(t, ".env", "PAGES_DPI=200\n")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	if cfg.Pages.DPI != 200 {
		t.Errorf("Pages.DPI = %d, want 200 from .env", cfg.Pages.DPI)
	}
}

func TestFinalize_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8181")
	t.Setenv("CONVERSION_ENGINE", "unoconvert")
	t.Setenv("CONVERSION_WORKERS", "8")
	t.Setenv("PAGES_FORMAT", "pdf")
	t.Setenv("SESSIONS_SWEEP_INTERVAL", "5s")
	t.Setenv("STORAGE_BASE_PATH", "/tmp/docpages")
	t.Setenv("LOGGING_LEVEL", "DEBUG")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg := &config.Config{}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	if cfg.Server.Port != 8181 {
		t.Errorf("Server.Port = %d, want 8181", cfg.Server.Port)
	}
	if cfg.Conversion.Engine != "unoconvert" {
		t.Errorf("Conversion.Engine = %q, want unoconvert", cfg.Conversion.Engine)
	}
	if cfg.Conversion.Workers != 8 {
		t.Errorf("Conversion.Workers = %d, want 8", cfg.Conversion.Workers)
	}
	if cfg.Pages.Format != "pdf" {
		t.Errorf("Pages.Format = %q, want pdf", cfg.Pages.Format)
	}
	if cfg.Sessions.SweepIntervalDuration() != 5*time.Second {
		t.Errorf("Sessions.SweepInterval = %v, want 5s", cfg.Sessions.SweepIntervalDuration())
	}
	if cfg.Storage.BasePath != "/tmp/docpages" {
		t.Errorf("Storage.BasePath = %q, want /tmp/docpages", cfg.Storage.BasePath)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if len(cfg.CORS.Origins) != 2 || cfg.CORS.Origins[1] != "http://b.test" {
		t.Errorf("CORS.Origins = %v, want two trimmed origins", cfg.CORS.Origins)
	}
}

func TestFinalize_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{"shutdown timeout", config.Config{ShutdownTimeout: "soon"}},
		{"server port", config.Config{Server: config.ServerConfig{Port: 70000}}},
		{"strategy", config.Config{Conversion: config.ConversionConfig{Strategy: "hybrid"}}},
		{"engine", config.Config{Conversion: config.ConversionConfig{Engine: "word"}}},
		{"rasterizer", config.Config{Conversion: config.ConversionConfig{Rasterizer: "ghostscript"}}},
		{"workers", config.Config{Conversion: config.ConversionConfig{Workers: -1}}},
		{"conversion timeout", config.Config{Conversion: config.ConversionConfig{Timeout: "-1s"}}},
		{"format", config.Config{Pages: config.PagesConfig{Format: "jpeg"}}},
		{"dpi", config.Config{Pages: config.PagesConfig{DPI: 5000}}},
		{"wait timeout", config.Config{Pages: config.PagesConfig{WaitTimeout: "forever"}}},
		{"idle timeout", config.Config{Sessions: config.SessionsConfig{IdleTimeout: "0s"}}},
		{"upload size", config.Config{Storage: storage.Config{MaxUploadSize: "huge"}}},
		{"logging level", config.Config{Logging: logging.Config{Level: "verbose"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if err := cfg.Finalize(); err == nil {
				t.Errorf("Finalize() succeeded, want error for %s", tt.name)
			}
		})
	}
}

func TestCORSConfig_Merge(t *testing.T) {
	base := config.CORSConfig{Origins: []string{"http://a.test"}, MaxAge: 100}
	base.Merge(&config.CORSConfig{Enabled: true, MaxAge: 0})

	if !base.Enabled {
		t.Error("Enabled = false, want overlay true")
	}
	if base.MaxAge != 100 {
		t.Errorf("MaxAge = %d, want base 100 kept", base.MaxAge)
	}
	if len(base.Origins) != 1 {
		t.Errorf("Origins = %v, want base origins kept", base.Origins)
	}
}

func TestServerConfig_Addr(t *testing.T) {
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := cfg.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8080", got)
	}
}
