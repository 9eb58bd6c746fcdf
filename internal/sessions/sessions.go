// Package sessions caches live conversion sessions for lazily rendered documents.
//
// Opening a session parses the whole intermediate PDF, so the cache keeps at
// most one session per document and reuses it across page requests. The map is
// guarded by one structural mutex; each entry carries its own mutex that
// serializes use of its session, so different documents never contend.
//
// Lock order is entry before map. Nothing holds the map lock while waiting on
// an entry.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JaimeStill/docpages/internal/config"
	"github.com/JaimeStill/docpages/internal/convert"
	"github.com/JaimeStill/docpages/internal/lifecycle"
	"github.com/google/uuid"
)

type entry struct {
	id       uuid.UUID
	mu       sync.Mutex
	session  convert.Session
	lastUsed time.Time
	closed   bool
}

// Cache holds at most one open session per document.
type Cache struct {
	opener        convert.Opener
	idleTimeout   time.Duration
	sweepInterval time.Duration
	logger        *slog.Logger
	now           func() time.Time

	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

// New creates a session cache that opens sessions through opener.
func New(opener convert.Opener, cfg *config.SessionsConfig, logger *slog.Logger) *Cache {
	return &Cache{
		opener:        opener,
		idleTimeout:   cfg.IdleTimeoutDuration(),
		sweepInterval: cfg.SweepIntervalDuration(),
		logger:        logger.With("system", "sessions"),
		now:           time.Now,
		entries:       make(map[uuid.UUID]*entry),
	}
}

// Start runs the idle janitor until shutdown, then closes every session.
func (c *Cache) Start(lc *lifecycle.Coordinator) error {
	lc.OnShutdown(func() {
		if c.sweepInterval > 0 {
			ticker := time.NewTicker(c.sweepInterval)
			defer ticker.Stop()

		loop:
			for {
				select {
				case <-ticker.C:
					if n := c.EvictIdle(); n > 0 {
						c.logger.Info("evicted idle sessions", "count", n)
					}
				case <-lc.Context().Done():
					break loop
				}
			}
		} else {
			<-lc.Context().Done()
		}

		c.logger.Info("closing sessions", "count", c.Len())
		c.CloseAll()
	})
	return nil
}

// Acquire returns a handle on the document's session, opening one from pdfPath
// on a cache miss. Concurrent acquirers of one id open the session once. The
// session can be released before the handle is used; callers that only need
// one operation should use ExportPage or RasterizePage on the cache instead.
func (c *Cache) Acquire(ctx context.Context, id uuid.UUID, pdfPath string) (*Handle, error) {
	e, err := c.lock(ctx, id, pdfPath)
	if err != nil {
		return nil, err
	}
	e.lastUsed = c.now()
	e.mu.Unlock()
	return &Handle{cache: c, entry: e}, nil
}

// ExportPage extracts a single-page PDF through the document's session,
// opening one if needed. The session cannot be released between the open and
// the export.
func (c *Cache) ExportPage(ctx context.Context, id uuid.UUID, pdfPath string, page int) ([]byte, error) {
	var data []byte
	err := c.do(ctx, id, pdfPath, func(s convert.Session) error {
		var err error
		data, err = s.ExportPage(ctx, page)
		return err
	})
	return data, err
}

// RasterizePage renders a page to PNG through the document's session, opening
// one if needed.
func (c *Cache) RasterizePage(ctx context.Context, id uuid.UUID, pdfPath string, page, dpi int) ([]byte, error) {
	var data []byte
	err := c.do(ctx, id, pdfPath, func(s convert.Session) error {
		var err error
		data, err = s.RasterizePage(ctx, page, dpi)
		return err
	})
	return data, err
}

func (c *Cache) do(ctx context.Context, id uuid.UUID, pdfPath string, fn func(convert.Session) error) error {
	e, err := c.lock(ctx, id, pdfPath)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()
	return c.runLocked(ctx, e, fn)
}

// lock returns the document's live entry with its session open and e.mu held.
func (c *Cache) lock(ctx context.Context, id uuid.UUID, pdfPath string) (*entry, error) {
	for {
		e := c.entry(id)

		e.mu.Lock()
		if e.closed {
			// Evicted between lookup and lock; a fresh entry replaces it.
			e.mu.Unlock()
			continue
		}

		if e.session == nil {
			session, err := c.opener.Open(ctx, pdfPath)
			if err != nil {
				c.evictLocked(e)
				e.mu.Unlock()
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				return nil, fmt.Errorf("%w: open: %v", ErrSessionFault, err)
			}
			e.session = session
			c.logger.Debug("session opened", "doc_id", id, "pages", session.PageCount())
		}
		return e, nil
	}
}

// Release closes and forgets the document's session. It waits for an
// in-flight operation on the session to finish. Idempotent.
func (c *Cache) Release(id uuid.UUID) {
	c.mu.Lock()
	e, ok := c.entries[id]
	if ok {
		delete(c.entries, id)
	}
	c.mu.Unlock()

	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	c.closeLocked(e, "released")
}

// Len reports the number of cached sessions.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// EvictIdle closes sessions unused for longer than the idle timeout and
// returns how many were closed. Sessions busy with an operation are skipped.
func (c *Cache) EvictIdle() int {
	deadline := c.now().Add(-c.idleTimeout)
	evicted := 0

	for _, e := range c.snapshot() {
		if !e.mu.TryLock() {
			continue
		}
		if !e.closed && e.lastUsed.Before(deadline) {
			c.evictLocked(e)
			evicted++
		}
		e.mu.Unlock()
	}
	return evicted
}

// CloseAll closes every cached session.
func (c *Cache) CloseAll() {
	for _, e := range c.snapshot() {
		e.mu.Lock()
		c.evictLocked(e)
		e.mu.Unlock()
	}
}

func (c *Cache) entry(id uuid.UUID) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		e = &entry{id: id}
		c.entries[id] = e
	}
	return e
}

func (c *Cache) snapshot() []*entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	return out
}

// evictLocked closes e and removes it from the map. Caller holds e.mu.
func (c *Cache) evictLocked(e *entry) {
	c.closeLocked(e, "evicted")

	c.mu.Lock()
	if c.entries[e.id] == e {
		delete(c.entries, e.id)
	}
	c.mu.Unlock()
}

func (c *Cache) closeLocked(e *entry, reason string) {
	if e.closed {
		return
	}
	e.closed = true

	if e.session == nil {
		return
	}
	if err := e.session.Close(); err != nil {
		c.logger.Warn("session close failed", "doc_id", e.id, "error", err)
	}
	e.session = nil
	c.logger.Debug("session closed", "doc_id", e.id, "reason", reason)
}

// Handle is a caller's reference to a cached session. Operations are
// serialized with every other handle on the same document.
type Handle struct {
	cache *Cache
	entry *entry
}

// PageCount returns the page count of the session's PDF.
func (h *Handle) PageCount() (int, error) {
	var n int
	err := h.use(context.Background(), func(s convert.Session) error {
		n = s.PageCount()
		return nil
	})
	return n, err
}

// ExportPage extracts a single-page PDF.
func (h *Handle) ExportPage(ctx context.Context, page int) ([]byte, error) {
	var data []byte
	err := h.use(ctx, func(s convert.Session) error {
		var err error
		data, err = s.ExportPage(ctx, page)
		return err
	})
	return data, err
}

// RasterizePage renders a page to PNG.
func (h *Handle) RasterizePage(ctx context.Context, page, dpi int) ([]byte, error) {
	var data []byte
	err := h.use(ctx, func(s convert.Session) error {
		var err error
		data, err = s.RasterizePage(ctx, page, dpi)
		return err
	})
	return data, err
}

// use runs fn under the entry lock. A released session reports ErrClosed.
func (h *Handle) use(ctx context.Context, fn func(convert.Session) error) error {
	e := h.entry
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	return h.cache.runLocked(ctx, e, fn)
}

// runLocked runs fn on e's session. Caller holds e.mu. A failing session is
// closed and evicted so the next request opens a fresh one. Cancellation of
// ctx is the caller's failure, not the session's, and leaves the session cached.
func (c *Cache) runLocked(ctx context.Context, e *entry, fn func(convert.Session) error) error {
	if err := fn(e.session); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return err
		}
		c.logger.Warn("session fault", "doc_id", e.id, "error", err)
		c.evictLocked(e)
		return fmt.Errorf("%w: %w", ErrSessionFault, err)
	}

	e.lastUsed = c.now()
	return nil
}
