// Package testutil provides filesystem and mail fixture helpers for tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TempDir creates a temporary directory removed at test cleanup.
func TempDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// WriteFile writes content to name under dir, creating parent directories.
// name must be relative and stay inside dir.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	if err := validateRelativePath(dir, name); err != nil {
		t.Fatalf("write file: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create parent dir: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func validateRelativePath(dir, name string) error {
	if filepath.IsAbs(name) || strings.HasPrefix(name, string(filepath.Separator)) || strings.HasPrefix(name, "/") {
		return fmt.Errorf("path %q must be relative", name)
	}
	rel, err := filepath.Rel(dir, filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("resolve %q: %w", name, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %q escapes %s", name, dir)
	}
	return nil
}

// MustExist fails the test if path does not exist.
func MustExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}

// MustNotExist fails the test if path exists.
func MustNotExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Fatalf("expected %s not to exist", path)
	} else if !os.IsNotExist(err) {
		t.Fatalf("stat %s: %v", path, err)
	}
}

// AssertFileContent fails the test unless path holds exactly want.
func AssertFileContent(t *testing.T, path, want string) {
	t.Helper()
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if string(got) != want {
		t.Errorf("content of %s = %q, want %q", path, got, want)
	}
}

// NewMaildir creates a Maildir with cur, new and tmp subdirectories and
// returns its path.
func NewMaildir(t *testing.T) string {
	t.Helper()
	dir := TempDir(t)
	for _, sub := range []string{"cur", "new", "tmp"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatalf("create maildir: %v", err)
		}
	}
	return dir
}

// Message renders a minimal RFC 5322 message with the given header lines
// ("From: a@b") and body.
func Message(body string, headers ...string) []byte {
	var b strings.Builder
	for _, h := range headers {
		b.WriteString(h)
		b.WriteString("\r\n")
	}
	b.WriteString("Subject: test\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// WriteMessage writes a message built from headers to name under dir.
func WriteMessage(t *testing.T, dir, name string, headers ...string) string {
	t.Helper()
	return WriteFile(t, dir, name, Message("hello\r\n", headers...))
}
