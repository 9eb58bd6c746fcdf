// Package pages serves per-page content of uploaded documents.
//
// Stored artifacts are served directly. For lazily converted documents a
// missing artifact is rendered from the intermediate PDF through the session
// cache, persisted, then served. Requests that arrive before conversion
// finishes wait a bounded time and otherwise report the document as still
// converting.
package pages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JaimeStill/docpages/internal/artifacts"
	"github.com/JaimeStill/docpages/internal/config"
	"github.com/JaimeStill/docpages/internal/documents"
	"github.com/JaimeStill/docpages/internal/sessions"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Page is the outcome of a page request. Content is empty while the document
// is converting.
type Page struct {
	Status      documents.Status
	Kind        artifacts.Kind
	Content     []byte
	ContentType string
}

// System defines page retrieval.
type System interface {
	GetPage(ctx context.Context, id uuid.UUID, page int) (*Page, error)
}

// Deps are the systems page retrieval reads from.
type Deps struct {
	Documents documents.System
	Artifacts *artifacts.Store
	Sessions  *sessions.Cache
}

type service struct {
	docs     documents.System
	store    *artifacts.Store
	sessions *sessions.Cache

	dpi         int
	waitTimeout time.Duration

	// flight collapses concurrent renders of one (document, page).
	flight singleflight.Group
	logger *slog.Logger
}

// New creates the page retrieval system.
func New(cfg *config.PagesConfig, deps Deps, logger *slog.Logger) System {
	return &service{
		docs:        deps.Documents,
		store:       deps.Artifacts,
		sessions:    deps.Sessions,
		dpi:         cfg.DPI,
		waitTimeout: cfg.WaitTimeoutDuration(),
		logger:      logger.With("system", "pages"),
	}
}

func (s *service) GetPage(ctx context.Context, id uuid.UUID, page int) (*Page, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}

	doc, err := s.docs.Find(ctx, id)
	if err != nil {
		return nil, s.mapLookup(err)
	}

	if !doc.Status.Terminal() {
		doc, err = s.await(ctx, id)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return &Page{Status: documents.StatusConverting}, nil
		}
	}

	if doc.Status == documents.StatusError {
		detail := strings.TrimPrefix(doc.Error, ErrConversionFailed.Error()+": ")
		return nil, fmt.Errorf("%w: %s", ErrConversionFailed, detail)
	}

	if page > doc.TotalPages {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, page, doc.TotalPages)
	}

	kind := artifacts.Kind(doc.Format)

	data, err := s.store.ReadPage(ctx, id, page, kind)
	switch {
	case err == nil:
		return ready(kind, data), nil
	case !errors.Is(err, artifacts.ErrNotFound):
		return nil, err
	case doc.Strategy == documents.StrategyEager:
		// Eager documents are fully split before they become ready.
		return nil, fmt.Errorf("%w: page %d artifact missing", artifacts.ErrStorageFault, page)
	}

	data, err = s.render(ctx, id, page, kind)
	if err != nil {
		return nil, err
	}
	return ready(kind, data), nil
}

// await waits for the document to reach a terminal status. It returns a nil
// document when the wait timed out.
func (s *service) await(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.waitTimeout)
	defer cancel()

	doc, err := s.docs.Wait(waitCtx, id)
	switch {
	case err == nil:
		return doc, nil
	case errors.Is(err, documents.ErrNotFound):
		return nil, ErrNotFound
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		s.logger.Debug("page requested during conversion", "doc_id", id)
		return nil, nil
	}
}

// render produces a missing lazy artifact once per (document, page), however
// many requests ask for it concurrently.
func (s *service) render(ctx context.Context, id uuid.UUID, page int, kind artifacts.Kind) ([]byte, error) {
	key := fmt.Sprintf("%s/%d", id, page)

	// The shared render outlives any single waiter's cancellation.
	shared := context.WithoutCancel(ctx)

	v, err, _ := s.flight.Do(key, func() (any, error) {
		if data, err := s.store.ReadPage(shared, id, page, kind); err == nil {
			return data, nil
		}

		data, err := s.renderPage(shared, id, page, kind)
		if err != nil {
			if s.closed(shared, id) {
				s.sessions.Release(id)
				return nil, ErrNotFound
			}
			return nil, err
		}

		if s.closed(shared, id) {
			s.sessions.Release(id)
			return nil, ErrNotFound
		}

		if err := s.store.WritePage(shared, id, page, kind, data); err != nil {
			return nil, err
		}

		if s.closed(shared, id) {
			// Closed between the check and the write.
			s.sessions.Release(id)
			if err := s.store.Remove(shared, id); err != nil {
				s.logger.Error("remove closed document artifacts failed", "doc_id", id, "error", err)
			}
			return nil, ErrNotFound
		}

		s.logger.Debug("page rendered", "doc_id", id, "page", page, "kind", kind)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *service) renderPage(ctx context.Context, id uuid.UUID, page int, kind artifacts.Kind) ([]byte, error) {
	ok, err := s.store.HasIntermediate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: intermediate pdf missing", artifacts.ErrStorageFault)
	}

	pdfPath, err := s.store.IntermediatePath(ctx, id)
	if err != nil {
		return nil, err
	}

	// Open and use happen under one session lock, so a concurrent release
	// cannot close the session in between.
	if kind == artifacts.KindPDF {
		return s.sessions.ExportPage(ctx, id, pdfPath, page)
	}
	return s.sessions.RasterizePage(ctx, id, pdfPath, page, s.dpi)
}

func (s *service) closed(ctx context.Context, id uuid.UUID) bool {
	_, err := s.docs.Find(ctx, id)
	return errors.Is(err, documents.ErrNotFound)
}

func (s *service) mapLookup(err error) error {
	if errors.Is(err, documents.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func ready(kind artifacts.Kind, data []byte) *Page {
	return &Page{
		Status:      documents.StatusReady,
		Kind:        kind,
		Content:     data,
		ContentType: kind.ContentType(),
	}
}
