package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// soffice converts documents with a headless LibreOffice process per call.
type soffice struct {
	bin    string
	runner *runner
}

func newSoffice(bin string, runner *runner) *soffice {
	return &soffice{bin: bin, runner: runner}
}

func (s *soffice) Name() string { return "soffice" }

func (s *soffice) Available() error {
	return lookPath(s.bin)
}

func (s *soffice) ConvertToPDF(ctx context.Context, sourcePath, outDir string) (string, error) {
	if IsPDF(sourcePath) {
		return passthrough(sourcePath, outDir)
	}

	var target string
	err := guard(ErrConversionFailed, func() error {
		// Each invocation gets a private profile. LibreOffice refuses to start a
		// second instance against a profile that is already locked.
		profile, err := os.MkdirTemp("", "docpages-soffice-*")
		if err != nil {
			return fmt.Errorf("%w: create profile: %v", ErrConversionFailed, err)
		}
		defer os.RemoveAll(profile)

		args := []string{
			"--headless",
			"--norestore",
			"-env:UserInstallation=file://" + filepath.ToSlash(profile),
			"--convert-to", "pdf",
			"--outdir", outDir,
			sourcePath,
		}

		if err := s.runner.run(ctx, s.bin, args, sourcePath, outDir, profile); err != nil {
			return err
		}

		target = filepath.Join(outDir, stem(sourcePath)+".pdf")
		return expectOutput(target)
	})

	if err != nil {
		return "", err
	}
	return target, nil
}
