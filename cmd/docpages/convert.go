package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/JaimeStill/docpages/internal/artifacts"
	"github.com/JaimeStill/docpages/internal/config"
	"github.com/JaimeStill/docpages/internal/convert"
	"github.com/JaimeStill/docpages/internal/documents"
	"github.com/JaimeStill/docpages/internal/infrastructure"
	"github.com/JaimeStill/docpages/internal/pipeline"
	"github.com/JaimeStill/docpages/internal/sessions"
	"github.com/spf13/cobra"
)

type convertOptions struct {
	out    string
	format string
	dpi    int
}

func newConvertCmd(root *rootOptions) *cobra.Command {
	opts := &convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert a document into page artifacts",
		Long: `Convert runs the eager pipeline against a local file and writes every page
artifact under <out>/<doc_id>/pages.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			return runConvert(cmd, cfg, args[0], opts.out)
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output directory (required)")
	cmd.Flags().StringVar(&opts.format, "format", "", "page artifact format: png or pdf")
	cmd.Flags().IntVar(&opts.dpi, "dpi", 0, "rasterization resolution for png pages")
	cmd.MarkFlagRequired("out")

	return cmd
}

// apply overlays the command flags on a finalized configuration.
func (o *convertOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	cfg.Conversion.Strategy = string(documents.StrategyEager)
	cfg.Storage.BasePath = o.out
	cfg.Storage.SweepOnStart = false

	if cmd.Flags().Changed("format") {
		switch documents.Format(o.format) {
		case documents.FormatPNG, documents.FormatPDF:
			cfg.Pages.Format = o.format
		default:
			return fmt.Errorf("invalid format %q: must be png or pdf", o.format)
		}
	}
	if cmd.Flags().Changed("dpi") {
		if o.dpi <= 0 {
			return fmt.Errorf("dpi must be positive")
		}
		cfg.Pages.DPI = o.dpi
	}
	return nil
}

func runConvert(cmd *cobra.Command, cfg *config.Config, path, out string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		return err
	}

	converter, err := convert.NewConverter(&cfg.Conversion, infra.Logger)
	if err != nil {
		return err
	}
	rasterizer, err := convert.NewRasterizer(cfg.Conversion.Rasterizer)
	if err != nil {
		return err
	}

	cache := sessions.New(convert.NewOpener(rasterizer), &cfg.Sessions, infra.Logger)
	pipe := pipeline.New(cfg, pipeline.Deps{
		Documents:  documents.New(infra.Logger),
		Artifacts:  artifacts.New(infra.Storage, infra.Logger),
		Converter:  converter,
		Rasterizer: rasterizer,
		Sessions:   cache,
	}, infra.Logger)

	if err := infra.Start(); err != nil {
		return err
	}
	if err := pipe.Start(infra.Lifecycle); err != nil {
		return err
	}
	defer infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		select {
		case <-ctx.Done():
			infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())
		case <-infra.Lifecycle.Context().Done():
		}
	}()

	result, err := pipe.Upload(ctx, pipeline.UploadCommand{
		Filename: filepath.Base(path),
		Data:     data,
	})
	if err != nil {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "doc_id: %s\n", result.ID)
	fmt.Fprintf(w, "pages:  %d\n", result.TotalPages)
	fmt.Fprintf(w, "output: %s\n", filepath.Join(out, result.ID.String(), "pages"))
	return nil
}
