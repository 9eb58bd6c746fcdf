package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// maxDetail bounds how much engine output is carried in an error.
const maxDetail = 512

type runner struct {
	timeout time.Duration
	logger  *slog.Logger
}

func newRunner(timeout time.Duration, logger *slog.Logger) *runner {
	return &runner{timeout: timeout, logger: logger}
}

// run executes the engine binary with the configured timeout. Any path in
// redact is reduced to its base name in the returned error detail.
func (r *runner) run(ctx context.Context, bin string, args []string, redact ...string) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start)

	if err == nil {
		r.logger.Debug("engine finished", "engine", filepath.Base(bin), "duration", elapsed)
		return nil
	}

	r.logger.Warn("engine failed", "engine", filepath.Base(bin), "duration", elapsed, "error", err)

	switch {
	case errors.Is(err, exec.ErrNotFound):
		return fmt.Errorf("%w: %s not found", ErrUnavailable, filepath.Base(bin))
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: timed out after %v", ErrConversionFailed, r.timeout)
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %v", ErrConversionFailed, ctx.Err())
	}

	detail := redactPaths(string(out), redact...)
	if detail == "" {
		detail = err.Error()
	}
	return fmt.Errorf("%w: %s", ErrConversionFailed, truncate(detail, maxDetail))
}

func lookPath(bin string) error {
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("%w: %s not found on PATH", ErrUnavailable, filepath.Base(bin))
	}
	return nil
}

func redactPaths(s string, paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		s = strings.ReplaceAll(s, p, filepath.Base(p))
	}
	return strings.TrimSpace(s)
}

// truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsPDF reports whether path names a PDF, which needs no conversion engine.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// passthrough copies a PDF source into outDir under the name an engine would produce.
func passthrough(sourcePath, outDir string) (string, error) {
	target := filepath.Join(outDir, stem(sourcePath)+".pdf")
	if target == sourcePath {
		return target, nil
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("%w: open source: %v", ErrConversionFailed, err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("%w: create output: %v", ErrConversionFailed, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(target)
		return "", fmt.Errorf("%w: copy source: %v", ErrConversionFailed, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("%w: close output: %v", ErrConversionFailed, err)
	}

	return target, nil
}

// expectOutput confirms the engine wrote path. Office engines can exit zero
// without producing output when a document fails to load.
func expectOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: engine produced no output", ErrConversionFailed)
	}
	return nil
}
