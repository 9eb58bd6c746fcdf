// Package artifacts maps a document's on-disk layout onto blob storage.
//
// Every document owns a single prefix named by its ID:
//
//	<id>/original/<filename>   uploaded source document
//	<id>/intermediate.pdf      converted PDF (lazy strategy)
//	<id>/pages/<n>.<ext>       per-page artifacts, 1-based
//	<id>/error                 conversion failure detail
//
// Keys are derived only from a parsed UUID, a validated page number and a
// sanitized filename, so no caller-provided string reaches the filesystem.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/JaimeStill/docpages/pkg/storage"
	"github.com/google/uuid"
)

// Kind identifies the format of a per-page artifact.
type Kind string

const (
	KindPNG Kind = "png"
	KindPDF Kind = "pdf"
)

// ContentType returns the MIME type served for the artifact kind.
func (k Kind) ContentType() string {
	if k == KindPDF {
		return "application/pdf"
	}
	return "image/png"
}

const (
	originalDir      = "original"
	pagesDir         = "pages"
	intermediateName = "intermediate.pdf"
	errorName        = "error"
	workspacePattern = "work-*"
)

// Store manages document artifacts within a blob storage system.
type Store struct {
	blobs  storage.System
	logger *slog.Logger
}

// New creates an artifact store over blobs.
func New(blobs storage.System, logger *slog.Logger) *Store {
	return &Store{
		blobs:  blobs,
		logger: logger.With("system", "artifacts"),
	}
}

// Allocate creates the document directory and its page directory.
func (s *Store) Allocate(ctx context.Context, id uuid.UUID) error {
	dir, err := s.PageDir(ctx, id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return s.fault("allocate document", id, err)
	}
	return nil
}

// WriteOriginal stores the uploaded source and returns its absolute path.
func (s *Store) WriteOriginal(ctx context.Context, id uuid.UUID, filename string, data []byte) (string, error) {
	key := originalKey(id, filename)
	if err := s.blobs.Store(ctx, key, data); err != nil {
		return "", s.fault("write original", id, err)
	}
	return s.path(ctx, id, key)
}

// RemoveOriginal deletes the stored source document. Missing sources are not an error.
func (s *Store) RemoveOriginal(ctx context.Context, id uuid.UUID) error {
	if err := s.blobs.DeletePrefix(ctx, id.String()+"/"+originalDir); err != nil {
		return s.fault("remove original", id, err)
	}
	return nil
}

// IntermediatePath returns the absolute path of the converted PDF.
func (s *Store) IntermediatePath(ctx context.Context, id uuid.UUID) (string, error) {
	return s.path(ctx, id, intermediateKey(id))
}

// HasIntermediate reports whether the converted PDF exists.
func (s *Store) HasIntermediate(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := s.blobs.Validate(ctx, intermediateKey(id))
	if err != nil {
		return false, s.fault("stat intermediate", id, err)
	}
	return ok, nil
}

// RemoveIntermediate deletes the converted PDF. Missing files are not an error.
func (s *Store) RemoveIntermediate(ctx context.Context, id uuid.UUID) error {
	if err := s.blobs.Delete(ctx, intermediateKey(id)); err != nil {
		return s.fault("remove intermediate", id, err)
	}
	return nil
}

// Workspace creates a scratch directory inside the document tree for engine
// output. The returned cleanup removes it and is safe to call more than once.
func (s *Store) Workspace(ctx context.Context, id uuid.UUID) (string, func(), error) {
	root, err := s.path(ctx, id, id.String())
	if err != nil {
		return "", nil, err
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", nil, s.fault("create workspace", id, err)
	}

	dir, err := os.MkdirTemp(root, workspacePattern)
	if err != nil {
		return "", nil, s.fault("create workspace", id, err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// AdoptIntermediate moves a converted PDF at src into the intermediate slot
// and returns its new path.
func (s *Store) AdoptIntermediate(ctx context.Context, id uuid.UUID, src string) (string, error) {
	dst, err := s.IntermediatePath(ctx, id)
	if err != nil {
		return "", err
	}
	if err := os.Rename(src, dst); err != nil {
		return "", s.fault("store intermediate", id, err)
	}
	return dst, nil
}

// AdoptPage moves a produced page file at src into its artifact slot.
func (s *Store) AdoptPage(ctx context.Context, id uuid.UUID, page int, kind Kind, src string) error {
	dst, err := s.PagePath(ctx, id, page, kind)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return s.fault("store page", id, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return s.fault("store page", id, err)
	}
	return nil
}

// PageDir returns the absolute path of the document's page directory.
func (s *Store) PageDir(ctx context.Context, id uuid.UUID) (string, error) {
	return s.path(ctx, id, id.String()+"/"+pagesDir)
}

// PagePath returns the absolute path of a page artifact.
func (s *Store) PagePath(ctx context.Context, id uuid.UUID, page int, kind Kind) (string, error) {
	key, err := pageKey(id, page, kind)
	if err != nil {
		return "", err
	}
	return s.path(ctx, id, key)
}

// WritePage persists a page artifact.
func (s *Store) WritePage(ctx context.Context, id uuid.UUID, page int, kind Kind, data []byte) error {
	key, err := pageKey(id, page, kind)
	if err != nil {
		return err
	}
	if err := s.blobs.Store(ctx, key, data); err != nil {
		return s.fault("write page", id, err)
	}
	return nil
}

// ReadPage returns a stored page artifact, or ErrNotFound if it has not been produced.
func (s *Store) ReadPage(ctx context.Context, id uuid.UUID, page int, kind Kind) ([]byte, error) {
	key, err := pageKey(id, page, kind)
	if err != nil {
		return nil, err
	}

	data, err := s.blobs.Retrieve(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.fault("read page", id, err)
	}
	return data, nil
}

// MarkError removes every artifact of the document and records detail as its
// error marker. The marker is the only file left behind.
func (s *Store) MarkError(ctx context.Context, id uuid.UUID, detail string) error {
	if err := s.blobs.DeletePrefix(ctx, id.String()); err != nil {
		return s.fault("clear failed document", id, err)
	}
	if err := s.blobs.Store(ctx, errorKey(id), []byte(detail)); err != nil {
		return s.fault("write error marker", id, err)
	}
	return nil
}

// ErrorDetail returns the recorded failure detail and whether a marker exists.
func (s *Store) ErrorDetail(ctx context.Context, id uuid.UUID) (string, bool, error) {
	data, err := s.blobs.Retrieve(ctx, errorKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", false, nil
		}
		return "", false, s.fault("read error marker", id, err)
	}
	return string(data), true, nil
}

// HasError reports whether the document has an error marker.
func (s *Store) HasError(ctx context.Context, id uuid.UUID) (bool, error) {
	_, ok, err := s.ErrorDetail(ctx, id)
	return ok, err
}

// Remove deletes the document's entire tree. Removing an unknown document is not an error.
func (s *Store) Remove(ctx context.Context, id uuid.UUID) error {
	if err := s.blobs.DeletePrefix(ctx, id.String()); err != nil {
		return s.fault("remove document", id, err)
	}
	return nil
}

// Sweep removes every document directory under the storage root and returns
// the number removed. Entries whose names are not document IDs are left alone.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	prefixes, err := s.blobs.Prefixes(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: list documents", ErrStorageFault)
	}

	removed := 0
	for _, prefix := range prefixes {
		id, err := uuid.Parse(prefix)
		if err != nil {
			continue
		}
		if err := s.Remove(ctx, id); err != nil {
			return removed, err
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("swept document artifacts", "count", removed)
	}
	return removed, nil
}

func (s *Store) path(ctx context.Context, id uuid.UUID, key string) (string, error) {
	p, err := s.blobs.Path(ctx, key)
	if err != nil {
		return "", s.fault("resolve path", id, err)
	}
	return p, nil
}

// fault logs the underlying storage error and returns ErrStorageFault carrying
// only the operation name, keeping absolute paths out of client responses.
func (s *Store) fault(op string, id uuid.UUID, err error) error {
	s.logger.Error("storage operation failed", "op", op, "doc_id", id, "error", err)
	return fmt.Errorf("%w: %s", ErrStorageFault, op)
}

func originalKey(id uuid.UUID, filename string) string {
	return fmt.Sprintf("%s/%s/%s", id, originalDir, SanitizeFilename(filename))
}

func intermediateKey(id uuid.UUID) string {
	return id.String() + "/" + intermediateName
}

func errorKey(id uuid.UUID) string {
	return id.String() + "/" + errorName
}

func pageKey(id uuid.UUID, page int, kind Kind) (string, error) {
	if page < 1 {
		return "", fmt.Errorf("%w: %d", ErrInvalidPage, page)
	}
	if kind != KindPNG && kind != KindPDF {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	return fmt.Sprintf("%s/%s/%d.%s", id, pagesDir, page, kind), nil
}

// SanitizeFilename reduces name to a safe base filename.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	name = replacer.Replace(name)
	if name == "" || name == "." || name == ".." {
		return "document"
	}
	return name
}
