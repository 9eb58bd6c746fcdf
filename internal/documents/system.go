package documents

import (
	"context"

	"github.com/google/uuid"
)

// System defines document registry operations. Returned documents are copies;
// mutating them does not affect the registry.
type System interface {
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)
	Find(ctx context.Context, id uuid.UUID) (*Document, error)

	// List returns every tracked document, oldest first.
	List(ctx context.Context) ([]Document, error)

	// Transition moves a document to status. Transitions are monotonic:
	// pending → converting → ready | error, with pending → error allowed.
	Transition(ctx context.Context, id uuid.UUID, status Status) (*Document, error)

	// MarkReady records the exact page count and moves the document to ready.
	MarkReady(ctx context.Context, id uuid.UUID, totalPages int) (*Document, error)

	// MarkFailed records detail and moves the document to error.
	MarkFailed(ctx context.Context, id uuid.UUID, detail string) (*Document, error)

	// Wait blocks until the document reaches a terminal status, is removed, or
	// ctx ends. On ctx expiry it returns the current record along with ctx.Err().
	Wait(ctx context.Context, id uuid.UUID) (*Document, error)

	// Remove forgets the document and releases any waiters. Idempotent.
	Remove(ctx context.Context, id uuid.UUID) error

	Len() int
}
