package artifacts_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/docpages/internal/artifacts"
	"github.com/JaimeStill/docpages/internal/lifecycle"
	"github.com/JaimeStill/docpages/pkg/logging"
	"github.com/JaimeStill/docpages/pkg/storage"
	"github.com/google/uuid"
)

func newStore(t *testing.T) (*artifacts.Store, string) {
	t.Helper()
	root := t.TempDir()

	blobs, err := storage.New(&storage.Config{BasePath: root}, logging.Discard())
	if err != nil {
		t.Fatalf("storage.New() failed: %v", err)
	}
	if err := blobs.Start(lifecycle.New()); err != nil {
		t.Fatalf("storage Start() failed: %v", err)
	}

	return artifacts.New(blobs, logging.Discard()), root
}

func TestAllocate_CreatesLayout(t *testing.T) {
	store, root := newStore(t)
	id := uuid.New()

	if err := store.Allocate(context.Background(), id); err != nil {
		t.Fatalf("Allocate() failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(root, id.String(), "pages"))
	if err != nil {
		t.Fatalf("pages directory missing: %v", err)
	}
	if !info.IsDir() {
		t.Error("pages is not a directory")
	}
}

func TestWriteOriginal(t *testing.T) {
	store, root := newStore(t)
	ctx := context.Background()
	id := uuid.New()

	path, err := store.WriteOriginal(ctx, id, "../../quarterly report.docx", []byte("docx"))
	if err != nil {
		t.Fatalf("WriteOriginal() failed: %v", err)
	}

	want := filepath.Join(root, id.String(), "original", "quarterly_report.docx")
	if path != want {
		t.Errorf("WriteOriginal() path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil || string(data) != "docx" {
		t.Errorf("original content = %q, %v", data, err)
	}

	if err := store.RemoveOriginal(ctx, id); err != nil {
		t.Fatalf("RemoveOriginal() failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("original still present after RemoveOriginal()")
	}
}

func TestPages_RoundTrip(t *testing.T) {
	store, root := newStore(t)
	ctx := context.Background()
	id := uuid.New()

	if err := store.WritePage(ctx, id, 3, artifacts.KindPNG, []byte("png")); err != nil {
		t.Fatalf("WritePage() failed: %v", err)
	}

	got, err := store.ReadPage(ctx, id, 3, artifacts.KindPNG)
	if err != nil {
		t.Fatalf("ReadPage() failed: %v", err)
	}
	if string(got) != "png" {
		t.Errorf("ReadPage() = %q, want png", got)
	}

	if _, err := os.Stat(filepath.Join(root, id.String(), "pages", "3.png")); err != nil {
		t.Errorf("page artifact not at expected path: %v", err)
	}

	if _, err := store.ReadPage(ctx, id, 3, artifacts.KindPDF); !errors.Is(err, artifacts.ErrNotFound) {
		t.Errorf("ReadPage(pdf) error = %v, want ErrNotFound", err)
	}
}

func TestPages_InvalidInput(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	id := uuid.New()

	tests := []struct {
		name string
		page int
		kind artifacts.Kind
		want error
	}{
		{"zero page", 0, artifacts.KindPNG, artifacts.ErrInvalidPage},
		{"negative page", -2, artifacts.KindPDF, artifacts.ErrInvalidPage},
		{"unknown kind", 1, artifacts.Kind("../x"), artifacts.ErrInvalidKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.WritePage(ctx, id, tt.page, tt.kind, []byte("x")); !errors.Is(err, tt.want) {
				t.Errorf("WritePage() error = %v, want %v", err, tt.want)
			}
			if _, err := store.ReadPage(ctx, id, tt.page, tt.kind); !errors.Is(err, tt.want) {
				t.Errorf("ReadPage() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMarkError_LeavesOnlyMarker(t *testing.T) {
	store, root := newStore(t)
	ctx := context.Background()
	id := uuid.New()

	store.Allocate(ctx, id)
	store.WriteOriginal(ctx, id, "a.docx", []byte("a"))
	store.WritePage(ctx, id, 1, artifacts.KindPDF, []byte("p"))

	if err := store.MarkError(ctx, id, "engine exploded"); err != nil {
		t.Fatalf("MarkError() failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(root, id.String()))
	if err != nil {
		t.Fatalf("read document dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "error" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("document dir = %v, want only error marker", names)
	}

	detail, ok, err := store.ErrorDetail(ctx, id)
	if err != nil || !ok || detail != "engine exploded" {
		t.Errorf("ErrorDetail() = %q, %v, %v", detail, ok, err)
	}
}

func TestErrorDetail_Absent(t *testing.T) {
	store, _ := newStore(t)

	ok, err := store.HasError(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("HasError() failed: %v", err)
	}
	if ok {
		t.Error("HasError() = true for document without marker")
	}
}

func TestIntermediate(t *testing.T) {
	store, root := newStore(t)
	ctx := context.Background()
	id := uuid.New()

	path, err := store.IntermediatePath(ctx, id)
	if err != nil {
		t.Fatalf("IntermediatePath() failed: %v", err)
	}
	if path != filepath.Join(root, id.String(), "intermediate.pdf") {
		t.Errorf("IntermediatePath() = %q", path)
	}

	store.Allocate(ctx, id)
	os.WriteFile(path, []byte("%PDF"), 0644)

	if ok, _ := store.HasIntermediate(ctx, id); !ok {
		t.Error("HasIntermediate() = false after write")
	}

	if err := store.RemoveIntermediate(ctx, id); err != nil {
		t.Fatalf("RemoveIntermediate() failed: %v", err)
	}
	if ok, _ := store.HasIntermediate(ctx, id); ok {
		t.Error("HasIntermediate() = true after remove")
	}
}

func TestRemove_Idempotent(t *testing.T) {
	store, root := newStore(t)
	ctx := context.Background()
	id := uuid.New()

	store.WritePage(ctx, id, 1, artifacts.KindPNG, []byte("x"))

	for range 2 {
		if err := store.Remove(ctx, id); err != nil {
			t.Fatalf("Remove() failed: %v", err)
		}
	}

	if _, err := os.Stat(filepath.Join(root, id.String())); !os.IsNotExist(err) {
		t.Error("document directory still present after Remove()")
	}
}

func TestSweep(t *testing.T) {
	store, root := newStore(t)
	ctx := context.Background()

	for range 3 {
		store.Allocate(ctx, uuid.New())
	}
	os.MkdirAll(filepath.Join(root, "not-a-document"), 0755)

	removed, err := store.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("Sweep() removed %d, want 3", removed)
	}

	if _, err := os.Stat(filepath.Join(root, "not-a-document")); err != nil {
		t.Error("Sweep() removed a non-document directory")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.docx", "report.docx"},
		{"my report.docx", "my_report.docx"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\doc.docx`, "doc.docx"},
		{"a:b?.docx", "a_b_.docx"},
		{"..", "document"},
		{"", "document"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := artifacts.SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestKind_ContentType(t *testing.T) {
	if got := artifacts.KindPDF.ContentType(); got != "application/pdf" {
		t.Errorf("KindPDF.ContentType() = %q", got)
	}
	if got := artifacts.KindPNG.ContentType(); got != "image/png" {
		t.Errorf("KindPNG.ContentType() = %q", got)
	}
}

func TestWorkspace_Adopt(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	id := uuid.New()

	dir, cleanup, err := store.Workspace(ctx, id)
	if err != nil {
		t.Fatalf("Workspace() failed: %v", err)
	}
	defer cleanup()

	pdf := filepath.Join(dir, "out.pdf")
	os.WriteFile(pdf, []byte("%PDF"), 0644)
	path, err := store.AdoptIntermediate(ctx, id, pdf)
	if err != nil {
		t.Fatalf("AdoptIntermediate() failed: %v", err)
	}
	if ok, _ := store.HasIntermediate(ctx, id); !ok {
		t.Errorf("intermediate missing at %s", path)
	}

	page := filepath.Join(dir, "page.pdf")
	os.WriteFile(page, []byte("page"), 0644)
	if err := store.AdoptPage(ctx, id, 2, artifacts.KindPDF, page); err != nil {
		t.Fatalf("AdoptPage() failed: %v", err)
	}
	data, err := store.ReadPage(ctx, id, 2, artifacts.KindPDF)
	if err != nil || string(data) != "page" {
		t.Errorf("ReadPage() = %q, %v", data, err)
	}

	cleanup()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("workspace still present after cleanup")
	}
}
