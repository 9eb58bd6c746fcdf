package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
)

// supervisor runs conversion tasks so that every outcome is reported, panics
// become errors, and shutdown can wait for the tasks it cancelled.
type supervisor struct {
	wg     sync.WaitGroup
	logger *slog.Logger

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

func newSupervisor(logger *slog.Logger) *supervisor {
	return &supervisor{
		logger:  logger,
		cancels: make(map[uuid.UUID]context.CancelFunc),
	}
}

// spawn runs task for id on its own goroutine under a context derived from
// parent. The returned channel receives the task's single result.
func (s *supervisor) spawn(parent context.Context, id uuid.UUID, task func(context.Context) error) <-chan error {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	s.cancels[id] = cancel
	s.mu.Unlock()

	done := make(chan error, 1)
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.cancels, id)
			s.mu.Unlock()
			cancel()
		}()

		done <- s.guard(id, func() error { return task(ctx) })
	}()

	return done
}

// cancel stops the task running for id, if any.
func (s *supervisor) cancel(id uuid.UUID) {
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()

	if ok {
		cancel()
	}
}

// wait blocks until every spawned task has returned.
func (s *supervisor) wait() {
	s.wg.Wait()
}

func (s *supervisor) guard(id uuid.UUID, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("conversion task panicked", "doc_id", id, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("conversion task panicked: %v", r)
		}
	}()
	return fn()
}
