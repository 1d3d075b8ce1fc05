package handlers

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rahul/deskpilot/internal/task"
)

// FileHandler manages files inside a workspace root. Paths are resolved
// against the root and may not escape it.
type FileHandler struct {
	Root string
}

func NewFileHandler(root string) *FileHandler {
	absRoot, _ := filepath.Abs(root)
	return &FileHandler{Root: absRoot}
}

func (f *FileHandler) Domain() string { return task.TypeFile }

func (f *FileHandler) resolve(name string) (string, error) {
	target := filepath.Join(f.Root, name)
	rel, err := filepath.Rel(f.Root, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("unsafe path attempt: %s", name)
	}
	return target, nil
}

func (f *FileHandler) Execute(ctx context.Context, action string, params map[string]any) (Result, error) {
	path := Str(params, "path", "filename")
	content := Str(params, "content")

	switch action {
	case "create", "create_file":
		return f.create(path, content)
	case "read", "read_file":
		return f.read(path)
	case "update", "update_file", "save_file":
		return f.update(path, content)
	case "delete", "delete_file":
		return f.remove(path)
	case "list", "list_files":
		if path == "" {
			path = Str(params, "directory")
		}
		if path == "" {
			path = "."
		}
		return f.list(path)
	case "search":
		if path == "" {
			path = "."
		}
		return f.search(path, Str(params, "pattern", "query"))
	default:
		return Result{}, &UnsupportedActionError{Domain: f.Domain(), Action: action}
	}
}

func (f *FileHandler) create(path, content string) (Result, error) {
	if path == "" {
		return Fail("path is required"), nil
	}
	target, err := f.resolve(path)
	if err != nil {
		return Fail("%v", err), nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return Fail("failed to create parent directory: %v", err), nil
	}
	if err := os.WriteFile(target, []byte(content), 0644); err != nil {
		return Fail("failed to create file: %v", err), nil
	}
	return OK(map[string]any{
		"path":    path,
		"message": fmt.Sprintf("Created %s", path),
	}), nil
}

func (f *FileHandler) read(path string) (Result, error) {
	target, err := f.resolve(path)
	if err != nil {
		return Fail("%v", err), nil
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return Fail("failed to read file: %v", err), nil
	}
	return OK(map[string]any{
		"path":    path,
		"content": string(data),
	}), nil
}

func (f *FileHandler) update(path, content string) (Result, error) {
	target, err := f.resolve(path)
	if err != nil {
		return Fail("%v", err), nil
	}
	if err := os.WriteFile(target, []byte(content), 0644); err != nil {
		return Fail("failed to update file: %v", err), nil
	}
	return OK(map[string]any{
		"path":    path,
		"message": fmt.Sprintf("Updated %s", path),
	}), nil
}

func (f *FileHandler) remove(path string) (Result, error) {
	target, err := f.resolve(path)
	if err != nil {
		return Fail("%v", err), nil
	}
	if err := os.Remove(target); err != nil {
		return Fail("failed to delete: %v", err), nil
	}
	return OK(map[string]any{
		"path":    path,
		"message": fmt.Sprintf("Deleted %s", path),
	}), nil
}

func (f *FileHandler) list(path string) (Result, error) {
	target, err := f.resolve(path)
	if err != nil {
		return Fail("%v", err), nil
	}
	entries, err := os.ReadDir(target)
	if err != nil {
		return Fail("failed to list directory: %v", err), nil
	}

	files := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		kind := "file"
		if entry.IsDir() {
			kind = "dir"
		}
		files = append(files, map[string]any{"name": entry.Name(), "type": kind})
	}
	return OK(map[string]any{
		"path":  path,
		"files": files,
	}), nil
}

func (f *FileHandler) search(path, pattern string) (Result, error) {
	if pattern == "" {
		return Fail("pattern is required"), nil
	}
	target, err := f.resolve(path)
	if err != nil {
		return Fail("%v", err), nil
	}

	var matches []string
	walkErr := filepath.WalkDir(target, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			return nil
		}
		ok, _ := filepath.Match(pattern, d.Name())
		if ok || strings.Contains(d.Name(), pattern) {
			rel, _ := filepath.Rel(f.Root, p)
			matches = append(matches, rel)
		}
		return nil
	})
	if walkErr != nil {
		return Fail("search failed: %v", walkErr), nil
	}
	return OK(map[string]any{
		"path":    path,
		"matches": matches,
	}), nil
}
