package handlers

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func newFileHandler(t *testing.T) *FileHandler {
	t.Helper()
	return NewFileHandler(t.TempDir())
}

func TestFileCreateReadRoundTrip(t *testing.T) {
	h := newFileHandler(t)
	ctx := context.Background()

	res, err := h.Execute(ctx, "create", map[string]any{
		"path":    "notes/todo.txt",
		"content": "buy milk",
	})
	if err != nil || !res.Success {
		t.Fatalf("create failed: %v %+v", err, res)
	}

	res, err = h.Execute(ctx, "read", map[string]any{"path": "notes/todo.txt"})
	if err != nil || !res.Success {
		t.Fatalf("read failed: %v %+v", err, res)
	}
	if got := res.Get("content"); got != "buy milk" {
		t.Fatalf("read content = %v, want buy milk", got)
	}
}

func TestFileUpdateOverwrites(t *testing.T) {
	h := newFileHandler(t)
	ctx := context.Background()

	if _, err := h.Execute(ctx, "create", map[string]any{"path": "a.txt", "content": "one"}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Execute(ctx, "update", map[string]any{"path": "a.txt", "content": "two"}); err != nil {
		t.Fatal(err)
	}
	res, _ := h.Execute(ctx, "read", map[string]any{"path": "a.txt"})
	if got := res.Get("content"); got != "two" {
		t.Fatalf("content after update = %v, want two", got)
	}
}

func TestFileDeleteThenReadFails(t *testing.T) {
	h := newFileHandler(t)
	ctx := context.Background()

	h.Execute(ctx, "create", map[string]any{"path": "gone.txt", "content": "x"})
	res, err := h.Execute(ctx, "delete", map[string]any{"path": "gone.txt"})
	if err != nil || !res.Success {
		t.Fatalf("delete failed: %v %+v", err, res)
	}

	res, err = h.Execute(ctx, "read", map[string]any{"path": "gone.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Fatal("read of deleted file should fail")
	}
}

func TestFileListAndSearch(t *testing.T) {
	h := newFileHandler(t)
	ctx := context.Background()

	for _, name := range []string{"report.md", "report_v2.md", "image.png"} {
		h.Execute(ctx, "create", map[string]any{"path": name, "content": "data"})
	}

	res, err := h.Execute(ctx, "list", map[string]any{"path": "."})
	if err != nil || !res.Success {
		t.Fatalf("list failed: %v %+v", err, res)
	}
	files, ok := res.Get("files").([]map[string]any)
	if !ok || len(files) != 3 {
		t.Fatalf("list returned %v, want 3 entries", res.Get("files"))
	}

	res, err = h.Execute(ctx, "search", map[string]any{"path": ".", "pattern": "report"})
	if err != nil || !res.Success {
		t.Fatalf("search failed: %v %+v", err, res)
	}
	matches, _ := res.Get("matches").([]string)
	if len(matches) != 2 {
		t.Fatalf("search matched %v, want 2 report files", matches)
	}
	for _, m := range matches {
		if !strings.Contains(filepath.Base(m), "report") {
			t.Fatalf("unexpected match %q", m)
		}
	}
}

func TestFileRejectsPathEscape(t *testing.T) {
	h := newFileHandler(t)

	res, err := h.Execute(context.Background(), "read", map[string]any{"path": "../../etc/passwd"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Fatal("path escape should be rejected")
	}
}

func TestFileUnsupportedAction(t *testing.T) {
	h := newFileHandler(t)

	_, err := h.Execute(context.Background(), "explode", map[string]any{"path": "a"})
	var uae *UnsupportedActionError
	if !errors.As(err, &uae) {
		t.Fatalf("err = %v, want UnsupportedActionError", err)
	}
	if uae.Domain != "file" || uae.Action != "explode" {
		t.Fatalf("unexpected error detail: %+v", uae)
	}
}
