package documents

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry struct {
	doc  Document
	done chan struct{}
}

type registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
	now     func() time.Time
	logger  *slog.Logger
}

// New creates an in-memory document registry.
func New(logger *slog.Logger) System {
	return &registry{
		entries: make(map[uuid.UUID]*entry),
		now:     time.Now,
		logger:  logger.With("system", "documents"),
	}
}

func (r *registry) Create(ctx context.Context, cmd CreateCommand) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[cmd.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, cmd.ID)
	}

	now := r.now()
	e := &entry{
		doc: Document{
			ID:         cmd.ID,
			Filename:   cmd.Filename,
			Strategy:   cmd.Strategy,
			Format:     cmd.Format,
			Status:     StatusPending,
			TotalPages: cmd.TotalPages,
			Estimated:  cmd.Estimated,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		done: make(chan struct{}),
	}
	r.entries[cmd.ID] = e

	r.logger.Info("document registered", "doc_id", cmd.ID, "strategy", cmd.Strategy, "format", cmd.Format)
	doc := e.doc
	return &doc, nil
}

func (r *registry) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	doc := e.doc
	return &doc, nil
}

func (r *registry) List(ctx context.Context) ([]Document, error) {
	r.mu.RLock()
	docs := make([]Document, 0, len(r.entries))
	for _, e := range r.entries {
		docs = append(docs, e.doc)
	}
	r.mu.RUnlock()

	slices.SortFunc(docs, func(a, b Document) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return docs, nil
}

func (r *registry) Transition(ctx context.Context, id uuid.UUID, status Status) (*Document, error) {
	return r.update(id, status, func(*Document) {})
}

func (r *registry) MarkReady(ctx context.Context, id uuid.UUID, totalPages int) (*Document, error) {
	return r.update(id, StatusReady, func(d *Document) {
		d.TotalPages = totalPages
		d.Estimated = false
	})
}

func (r *registry) MarkFailed(ctx context.Context, id uuid.UUID, detail string) (*Document, error) {
	return r.update(id, StatusError, func(d *Document) {
		d.Error = detail
	})
}

func (r *registry) Wait(ctx context.Context, id uuid.UUID) (*Document, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	select {
	case <-e.done:
	case <-ctx.Done():
	}

	doc, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.Status.Terminal() {
		return doc, ctx.Err()
	}
	return doc, nil
}

func (r *registry) Remove(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	delete(r.entries, id)

	if !e.doc.Status.Terminal() {
		close(e.done)
	}

	r.logger.Info("document removed", "doc_id", id)
	return nil
}

func (r *registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *registry) update(id uuid.UUID, status Status, apply func(*Document)) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}

	if !e.doc.Status.canTransition(status) {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidStatus, e.doc.Status, status)
	}

	apply(&e.doc)
	e.doc.Status = status
	e.doc.UpdatedAt = r.now()

	if status.Terminal() {
		close(e.done)
	}

	r.logger.Debug("document status changed", "doc_id", id, "status", status)
	doc := e.doc
	return &doc, nil
}
