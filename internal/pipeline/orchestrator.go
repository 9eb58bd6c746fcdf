package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/JaimeStill/docpages/internal/artifacts"
	"github.com/JaimeStill/docpages/internal/config"
	"github.com/JaimeStill/docpages/internal/convert"
	"github.com/JaimeStill/docpages/internal/documents"
	"github.com/JaimeStill/docpages/internal/lifecycle"
	"github.com/JaimeStill/docpages/internal/sessions"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

type orchestrator struct {
	docs       documents.System
	store      *artifacts.Store
	converter  convert.Converter
	rasterizer convert.Rasterizer
	sessions   *sessions.Cache

	strategy       documents.Strategy
	format         documents.Format
	dpi            int
	sampleSize     int
	highlightCount int
	sweepOnStart   bool

	// slots bounds concurrent engine invocations across all documents.
	slots *semaphore.Weighted
	tasks *supervisor

	// base parents every conversion task. It becomes the lifecycle context
	// in Start so shutdown cancels in-flight work.
	base   context.Context
	logger *slog.Logger
}

// New creates a conversion orchestrator from the finalized configuration.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) System {
	logger = logger.With("system", "pipeline")

	return &orchestrator{
		docs:           deps.Documents,
		store:          deps.Artifacts,
		converter:      deps.Converter,
		rasterizer:     deps.Rasterizer,
		sessions:       deps.Sessions,
		strategy:       documents.Strategy(cfg.Conversion.Strategy),
		format:         documents.Format(cfg.Pages.Format),
		dpi:            cfg.Pages.DPI,
		sampleSize:     cfg.Pages.SampleSize,
		highlightCount: cfg.Pages.HighlightCount,
		sweepOnStart:   cfg.Storage.SweepOnStart,
		slots:          semaphore.NewWeighted(int64(max(cfg.Conversion.Workers, 1))),
		tasks:          newSupervisor(logger),
		base:           context.Background(),
		logger:         logger,
	}
}

func (o *orchestrator) Start(lc *lifecycle.Coordinator) error {
	o.base = lc.Context()

	if o.sweepOnStart {
		removed, err := o.store.Sweep(o.base)
		if err != nil {
			return fmt.Errorf("startup sweep: %w", err)
		}
		o.logger.Info("startup sweep complete", "removed", removed)
	}

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		o.logger.Info("draining conversion tasks")
		o.tasks.wait()
		o.logger.Info("conversion tasks drained")
	})

	return nil
}

func (o *orchestrator) Upload(ctx context.Context, cmd UploadCommand) (*UploadResult, error) {
	if cmd.Filename == "" || len(cmd.Data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidFile)
	}

	// PDF sources are copied through without invoking the engine.
	if !convert.IsPDF(cmd.Filename) {
		if err := o.converter.Available(); err != nil {
			return nil, err
		}
	}

	id := uuid.New()
	if err := o.store.Allocate(ctx, id); err != nil {
		return nil, err
	}

	source, err := o.store.WriteOriginal(ctx, id, cmd.Filename, cmd.Data)
	if err != nil {
		o.discard(id)
		return nil, err
	}

	estimate, ok := convert.EstimatePages(source)
	if !ok {
		estimate = 1
	}

	_, err = o.docs.Create(ctx, documents.CreateCommand{
		ID:         id,
		Filename:   artifacts.SanitizeFilename(cmd.Filename),
		Strategy:   o.strategy,
		Format:     o.format,
		TotalPages: estimate,
		Estimated:  true,
	})
	if err != nil {
		o.discard(id)
		return nil, err
	}

	o.logger.Info("upload accepted", "doc_id", id, "strategy", o.strategy, "estimated_pages", estimate)

	if o.strategy == documents.StrategyEager {
		return o.uploadEager(id, source)
	}
	return o.uploadLazy(id, source, estimate), nil
}

func (o *orchestrator) Find(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
	return o.docs.Find(ctx, id)
}

func (o *orchestrator) List(ctx context.Context) ([]documents.Document, error) {
	return o.docs.List(ctx)
}

func (o *orchestrator) Close(ctx context.Context, id uuid.UUID) error {
	o.tasks.cancel(id)
	o.sessions.Release(id)

	if err := o.docs.Remove(ctx, id); err != nil {
		return err
	}
	if err := o.store.Remove(ctx, id); err != nil {
		return err
	}

	o.logger.Info("document closed", "doc_id", id)
	return nil
}

// uploadEager awaits the full conversion. The client never learns the id of
// a failed eager upload, so nothing of it is kept.
func (o *orchestrator) uploadEager(id uuid.UUID, source string) (*UploadResult, error) {
	done := o.tasks.spawn(o.base, id, func(ctx context.Context) error {
		return o.settle(ctx, id, o.convertEager(ctx, id, source))
	})

	if err := <-done; err != nil {
		if rmErr := o.docs.Remove(context.Background(), id); rmErr != nil {
			o.logger.Error("remove failed document failed", "doc_id", id, "error", rmErr)
		}
		o.discard(id)
		return nil, err
	}

	doc, err := o.docs.Find(context.Background(), id)
	if err != nil {
		return nil, err
	}

	return &UploadResult{
		ID:         id,
		TotalPages: doc.TotalPages,
		TestPages:  samplePages(doc.TotalPages, o.sampleSize),
	}, nil
}

func (o *orchestrator) uploadLazy(id uuid.UUID, source string, estimate int) *UploadResult {
	o.tasks.spawn(o.base, id, func(ctx context.Context) error {
		return o.settle(ctx, id, o.convertLazy(ctx, id, source))
	})

	return &UploadResult{
		ID:         id,
		TotalPages: estimate,
		Highlights: highlights(estimate, o.highlightCount),
	}
}

func (o *orchestrator) convertEager(ctx context.Context, id uuid.UUID, source string) error {
	pdfPath, err := o.convertSource(ctx, id, source)
	if err != nil {
		return err
	}

	total, err := convert.PageCount(pdfPath)
	if err != nil {
		return err
	}

	if o.format == documents.FormatPDF {
		err = o.splitPages(ctx, id, pdfPath)
	} else {
		err = o.rasterizePages(ctx, id, pdfPath, total)
	}
	if err != nil {
		return err
	}

	if err := o.store.RemoveIntermediate(ctx, id); err != nil {
		return err
	}
	if err := o.store.RemoveOriginal(ctx, id); err != nil {
		return err
	}

	_, err = o.docs.MarkReady(ctx, id, total)
	return err
}

func (o *orchestrator) convertLazy(ctx context.Context, id uuid.UUID, source string) error {
	pdfPath, err := o.convertSource(ctx, id, source)
	if err != nil {
		return err
	}

	total, err := convert.PageCount(pdfPath)
	if err != nil {
		return err
	}

	if err := o.store.RemoveOriginal(ctx, id); err != nil {
		return err
	}

	_, err = o.docs.MarkReady(ctx, id, total)
	return err
}

// convertSource runs the office engine inside a conversion slot and moves its
// output into the document's intermediate PDF.
func (o *orchestrator) convertSource(ctx context.Context, id uuid.UUID, source string) (string, error) {
	if err := o.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer o.slots.Release(1)

	if _, err := o.docs.Transition(ctx, id, documents.StatusConverting); err != nil {
		return "", err
	}

	dir, cleanup, err := o.store.Workspace(ctx, id)
	if err != nil {
		return "", err
	}
	defer cleanup()

	o.logger.Debug("converting source", "doc_id", id, "engine", o.converter.Name())

	out, err := o.converter.ConvertToPDF(ctx, source, dir)
	if err != nil {
		return "", err
	}

	return o.store.AdoptIntermediate(ctx, id, out)
}

func (o *orchestrator) splitPages(ctx context.Context, id uuid.UUID, pdfPath string) error {
	dir, cleanup, err := o.store.Workspace(ctx, id)
	if err != nil {
		return err
	}
	defer cleanup()

	files, err := convert.SplitPages(ctx, pdfPath, dir)
	if err != nil {
		return err
	}

	for i, file := range files {
		if err := o.store.AdoptPage(ctx, id, i+1, artifacts.KindPDF, file); err != nil {
			return err
		}
	}
	return nil
}

// rasterizePages renders every page with one open renderer per worker. Worker
// w renders pages w+1, w+1+n, w+1+2n and so on.
func (o *orchestrator) rasterizePages(ctx context.Context, id uuid.UUID, pdfPath string, total int) error {
	workers := max(min(runtime.NumCPU(), total), 1)
	g, gctx := errgroup.WithContext(ctx)

	for w := range workers {
		g.Go(func() error {
			renderer, err := o.rasterizer.Open(pdfPath)
			if err != nil {
				return err
			}
			defer renderer.Close()

			for page := w + 1; page <= total; page += workers {
				if err := gctx.Err(); err != nil {
					return err
				}

				data, err := renderer.Render(page, o.dpi)
				if err != nil {
					return err
				}
				if err := o.store.WritePage(gctx, id, page, artifacts.KindPNG, data); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}

// settle records a failed task's outcome and returns the error callers see.
func (o *orchestrator) settle(ctx context.Context, id uuid.UUID, err error) error {
	if err == nil {
		return nil
	}

	err = classify(ctx, err)
	o.logger.Error("conversion failed", "doc_id", id, "error", err)

	cleanup := context.WithoutCancel(ctx)
	if markErr := o.store.MarkError(cleanup, id, err.Error()); markErr != nil {
		o.logger.Error("record error marker failed", "doc_id", id, "error", markErr)
	}

	if _, markErr := o.docs.MarkFailed(cleanup, id, err.Error()); markErr != nil {
		if errors.Is(markErr, documents.ErrNotFound) {
			// Closed while converting; nothing may outlive the record.
			o.discard(id)
		} else {
			o.logger.Error("record failure failed", "doc_id", id, "error", markErr)
		}
	}

	return err
}

// discard removes all artifacts of a document that has no registry record.
func (o *orchestrator) discard(id uuid.UUID) {
	if err := o.store.Remove(context.Background(), id); err != nil {
		o.logger.Error("discard artifacts failed", "doc_id", id, "error", err)
	}
}

// classify keeps recognized sentinels and folds anything else into
// convert.ErrConversionFailed.
func classify(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case errors.Is(err, documents.ErrNotFound),
		errors.Is(err, convert.ErrConversionFailed),
		errors.Is(err, convert.ErrUnavailable),
		errors.Is(err, artifacts.ErrStorageFault):
		return err
	default:
		return fmt.Errorf("%w: %v", convert.ErrConversionFailed, err)
	}
}
