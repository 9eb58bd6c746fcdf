// Package storage provides blob storage for document artifacts.
// It defines a System interface for key-addressed storage and a filesystem
// implementation for single-node deployments. Keys are slash-separated relative
// paths; a key prefix groups the blobs belonging to one owner.
package storage

import (
	"context"
	"errors"

	"github.com/JaimeStill/docpages/internal/lifecycle"
)

// Storage errors returned by System implementations.
var (
	// ErrNotFound indicates the requested key does not exist in storage.
	ErrNotFound = errors.New("storage: key not found")

	// ErrPermissionDenied indicates insufficient permissions to access the key.
	ErrPermissionDenied = errors.New("storage: permission denied")

	// ErrInvalidKey indicates the key is malformed or contains invalid characters.
	// This includes empty keys and path traversal attempts.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// System defines blob storage operations.
type System interface {
	// Store saves data at key, overwriting existing content. Parent directories
	// are created as needed and the write is published by rename.
	Store(ctx context.Context, key string, data []byte) error

	// Retrieve returns the data stored at key, or ErrNotFound.
	Retrieve(ctx context.Context, key string) ([]byte, error)

	// Delete deletes the data at key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every blob under prefix. Missing prefixes are not an error.
	DeletePrefix(ctx context.Context, prefix string) error

	// Validate reports whether key exists.
	Validate(ctx context.Context, key string) (bool, error)

	// Path resolves key to its absolute location on disk.
	Path(ctx context.Context, key string) (string, error)

	// Prefixes lists the top-level prefixes currently stored.
	Prefixes(ctx context.Context) ([]string, error)

	// Start registers lifecycle hooks. For filesystem storage this creates the
	// base directory.
	Start(lc *lifecycle.Coordinator) error
}
