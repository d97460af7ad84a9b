package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates a file (and parent directories) with the given contents.
func WriteFile(t testing.TB, path string, contents []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// TempMediaFile creates a placeholder media file in a temp directory and
// returns its path.
func TempMediaFile(t testing.TB, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	WriteFile(t, path, []byte("synthetic media payload"))
	return path
}
