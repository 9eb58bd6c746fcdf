package convert

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"
)

// unoconvert converts documents through a long-running unoserver instance,
// avoiding an office start-up per document.
type unoconvert struct {
	bin    string
	host   string
	port   int
	runner *runner
}

func newUnoconvert(bin, host string, port int, runner *runner) *unoconvert {
	return &unoconvert{bin: bin, host: host, port: port, runner: runner}
}

func (u *unoconvert) Name() string { return "unoconvert" }

func (u *unoconvert) Available() error {
	if err := lookPath(u.bin); err != nil {
		return err
	}

	addr := net.JoinHostPort(u.host, strconv.Itoa(u.port))
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return fmt.Errorf("%w: unoserver not reachable at %s", ErrUnavailable, addr)
	}
	conn.Close()
	return nil
}

func (u *unoconvert) ConvertToPDF(ctx context.Context, sourcePath, outDir string) (string, error) {
	if IsPDF(sourcePath) {
		return passthrough(sourcePath, outDir)
	}

	target := filepath.Join(outDir, stem(sourcePath)+".pdf")
	err := guard(ErrConversionFailed, func() error {
		args := []string{
			"--host", u.host,
			"--port", strconv.Itoa(u.port),
			"--convert-to", "pdf",
			sourcePath,
			target,
		}

		if err := u.runner.run(ctx, u.bin, args, sourcePath, outDir); err != nil {
			return err
		}
		return expectOutput(target)
	})

	if err != nil {
		return "", err
	}
	return target, nil
}
