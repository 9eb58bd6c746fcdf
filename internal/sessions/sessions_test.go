package sessions_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/JaimeStill/docpages/internal/config"
	"github.com/JaimeStill/docpages/internal/convert/converttest"
	"github.com/JaimeStill/docpages/internal/lifecycle"
	"github.com/JaimeStill/docpages/internal/sessions"
	"github.com/JaimeStill/docpages/pkg/logging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(opener *converttest.Opener, idle string) *sessions.Cache {
	cfg := &config.SessionsConfig{IdleTimeout: idle, SweepInterval: "5ms"}
	return sessions.New(opener, cfg, logging.Discard())
}

func TestAcquire_Reuses(t *testing.T) {
	opener := &converttest.Opener{Pages: 4}
	cache := newCache(opener, "10m")
	ctx := context.Background()
	id := uuid.New()

	first, err := cache.Acquire(ctx, id, "doc.pdf")
	require.NoError(t, err)
	second, err := cache.Acquire(ctx, id, "doc.pdf")
	require.NoError(t, err)

	_, err = first.ExportPage(ctx, 1)
	require.NoError(t, err)
	data, err := second.ExportPage(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, "session-1-page-2.pdf", string(data))
	assert.Equal(t, 1, opener.Opens())
	assert.Equal(t, 1, cache.Len())
}

func TestAcquire_PerDocument(t *testing.T) {
	opener := &converttest.Opener{Pages: 2}
	cache := newCache(opener, "10m")
	ctx := context.Background()

	_, err := cache.Acquire(ctx, uuid.New(), "a.pdf")
	require.NoError(t, err)
	_, err = cache.Acquire(ctx, uuid.New(), "b.pdf")
	require.NoError(t, err)

	assert.Equal(t, 2, opener.Opens())
	assert.Equal(t, 2, cache.Len())
}

func TestConcurrentUse_Serialized(t *testing.T) {
	opener := &converttest.Opener{
		Pages: 8,
		Fail: func(int) error {
			time.Sleep(time.Millisecond)
			return nil
		},
	}
	cache := newCache(opener, "10m")
	ctx := context.Background()
	id := uuid.New()

	var wg sync.WaitGroup
	errs := make(chan error, 32)

	for i := range 32 {
		wg.Go(func() {
			h, err := cache.Acquire(ctx, id, "doc.pdf")
			if err != nil {
				errs <- err
				return
			}
			page := i%8 + 1
			if i%2 == 0 {
				_, err = h.RasterizePage(ctx, page, 150)
			} else {
				_, err = h.ExportPage(ctx, page)
			}
			if err != nil {
				errs <- err
			}
		})
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent use failed: %v", err)
	}

	require.Equal(t, 1, opener.Opens(), "session opened more than once")
	assert.False(t, opener.Sessions()[0].Overlap.Load(), "session used concurrently")
}

func TestOperationFault_Evicts(t *testing.T) {
	boom := errors.New("renderer crashed")
	opener := &converttest.Opener{
		Pages: 5,
		Fail: func(page int) error {
			if page == 3 {
				return boom
			}
			return nil
		},
	}
	cache := newCache(opener, "10m")
	ctx := context.Background()
	id := uuid.New()

	h, err := cache.Acquire(ctx, id, "doc.pdf")
	require.NoError(t, err)

	_, err = h.RasterizePage(ctx, 3, 150)
	assert.ErrorIs(t, err, sessions.ErrSessionFault)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.Len())
	assert.True(t, opener.Sessions()[0].Closed())

	_, err = h.ExportPage(ctx, 1)
	assert.ErrorIs(t, err, sessions.ErrClosed)

	h, err = cache.Acquire(ctx, id, "doc.pdf")
	require.NoError(t, err)
	_, err = h.ExportPage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, opener.Opens())
}

func TestOperation_CancelledKeepsSession(t *testing.T) {
	opener := &converttest.Opener{Pages: 2}
	cache := newCache(opener, "10m")
	id := uuid.New()

	h, err := cache.Acquire(context.Background(), id, "doc.pdf")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opener.Fail = func(int) error { return ctx.Err() }

	_, err = h.ExportPage(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, sessions.ErrSessionFault)
	assert.Equal(t, 1, cache.Len())
}

func TestAcquire_OpenFails(t *testing.T) {
	opener := &converttest.Opener{OpenErr: errors.New("corrupt pdf")}
	cache := newCache(opener, "10m")

	_, err := cache.Acquire(context.Background(), uuid.New(), "doc.pdf")
	assert.ErrorIs(t, err, sessions.ErrSessionFault)
	assert.Equal(t, 0, cache.Len())
}

func TestRelease(t *testing.T) {
	opener := &converttest.Opener{Pages: 2}
	cache := newCache(opener, "10m")
	ctx := context.Background()
	id := uuid.New()

	h, err := cache.Acquire(ctx, id, "doc.pdf")
	require.NoError(t, err)

	cache.Release(id)
	cache.Release(id)
	cache.Release(uuid.New())

	_, err = h.ExportPage(ctx, 1)
	assert.ErrorIs(t, err, sessions.ErrClosed)
	assert.Equal(t, 1, opener.Closes())
	assert.Equal(t, 0, cache.Len())
}

func TestRelease_WaitsForInFlight(t *testing.T) {
	gate := make(chan struct{})
	entered := make(chan struct{})
	opener := &converttest.Opener{
		Pages: 2,
		Fail: func(int) error {
			close(entered)
			<-gate
			return nil
		},
	}
	cache := newCache(opener, "10m")
	ctx := context.Background()
	id := uuid.New()

	h, err := cache.Acquire(ctx, id, "doc.pdf")
	require.NoError(t, err)

	opDone := make(chan error, 1)
	go func() {
		_, err := h.RasterizePage(ctx, 1, 150)
		opDone <- err
	}()
	<-entered

	released := make(chan struct{})
	go func() {
		cache.Release(id)
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("Release returned while an operation was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(gate)
	require.NoError(t, <-opDone)
	<-released
	assert.True(t, opener.Sessions()[0].Closed())
}

func TestCacheOperation_OpensOnMiss(t *testing.T) {
	opener := &converttest.Opener{Pages: 3}
	cache := newCache(opener, "10m")
	ctx := context.Background()
	id := uuid.New()

	data, err := cache.ExportPage(ctx, id, "doc.pdf", 2)
	require.NoError(t, err)
	assert.Equal(t, "session-1-page-2.pdf", string(data))

	data, err = cache.RasterizePage(ctx, id, "doc.pdf", 3, 150)
	require.NoError(t, err)
	assert.Equal(t, converttest.PNG(3), data)

	assert.Equal(t, 1, opener.Opens())
	assert.Equal(t, 1, cache.Len())
}

func TestCacheOperation_Fault(t *testing.T) {
	opener := &converttest.Opener{
		Pages: 2,
		Fail:  func(int) error { return errors.New("renderer crashed") },
	}
	cache := newCache(opener, "10m")

	_, err := cache.RasterizePage(context.Background(), uuid.New(), "doc.pdf", 1, 150)
	assert.ErrorIs(t, err, sessions.ErrSessionFault)
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 1, opener.Closes())
}

// Releases racing page operations must never surface as a closed session:
// each operation either runs before the release or reopens after it.
func TestCacheOperation_ConcurrentRelease(t *testing.T) {
	opener := &converttest.Opener{Pages: 8}
	cache := newCache(opener, "10m")
	ctx := context.Background()
	id := uuid.New()

	stop := make(chan struct{})
	var releaser sync.WaitGroup
	releaser.Go(func() {
		for {
			select {
			case <-stop:
				return
			default:
				cache.Release(id)
			}
		}
	})

	var wg sync.WaitGroup
	for range 25 {
		for page := 1; page <= 8; page++ {
			wg.Go(func() {
				data, err := cache.RasterizePage(ctx, id, "doc.pdf", page, 150)
				if assert.NoError(t, err, "page %d", page) {
					assert.Equal(t, converttest.PNG(page), data, "page %d", page)
				}
			})
		}
	}
	wg.Wait()
	close(stop)
	releaser.Wait()

	for _, s := range opener.Sessions() {
		assert.False(t, s.Overlap.Load(), "session %d ran operations concurrently", s.ID())
	}
}

func TestEvictIdle(t *testing.T) {
	opener := &converttest.Opener{Pages: 1}
	cache := newCache(opener, "10ms")
	ctx := context.Background()

	_, err := cache.Acquire(ctx, uuid.New(), "doc.pdf")
	require.NoError(t, err)

	assert.Equal(t, 0, cache.EvictIdle(), "fresh session evicted")

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, cache.EvictIdle())
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 1, opener.Closes())
}

func TestStart_JanitorAndShutdown(t *testing.T) {
	opener := &converttest.Opener{Pages: 1}
	cache := newCache(opener, "10ms")
	lc := lifecycle.New()
	require.NoError(t, cache.Start(lc))

	ctx := context.Background()
	_, err := cache.Acquire(ctx, uuid.New(), "idle.pdf")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return cache.Len() == 0 }, time.Second, 5*time.Millisecond)

	_, err = cache.Acquire(ctx, uuid.New(), "live.pdf")
	require.NoError(t, err)

	require.NoError(t, lc.Shutdown(time.Second))
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 2, opener.Closes())
}

func TestHandler_Release(t *testing.T) {
	opener := &converttest.Opener{Pages: 1}
	cache := newCache(opener, "10m")
	handler := sessions.NewHandler(cache, logging.Discard())
	id := uuid.New()

	_, err := cache.Acquire(context.Background(), id, "doc.pdf")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id.String(), nil)
	req.SetPathValue("doc_id", id.String())
	rec := httptest.NewRecorder()
	handler.Release(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, cache.Len())

	req = httptest.NewRequest(http.MethodDelete, "/api/sessions/nope", nil)
	req.SetPathValue("doc_id", "nope")
	rec = httptest.NewRecorder()
	handler.Release(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
