package gateways

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestFileDigester tests SHA256 digests of verification targets
func TestFileDigester(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    string // Known SHA256 digest
	}{
		{
			name:    "empty file",
			content: []byte(""),
			want:    "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:    "simple content",
			content: []byte("Hello, World!"),
			want:    "sha256:dffd6021bb2bd5b0af676290809ec3a53191dd81c7f70a4b28688a362182986f",
		},
	}

	d := NewFileDigester()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "target")
			if err := os.WriteFile(path, tt.content, 0600); err != nil {
				t.Fatalf("Failed to create test file: %v", err)
			}

			got, err := d.Digest(path)
			if err != nil {
				t.Fatalf("Digest() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Digest() = %s, want %s", got, tt.want)
			}
			if err := d.Verify(path, tt.want); err != nil {
				t.Errorf("Verify() error = %v", err)
			}
		})
	}
}

func TestFileDigesterErrors(t *testing.T) {
	d := NewFileDigester()
	dir := t.TempDir()
	path := filepath.Join(dir, "target")
	if err := os.WriteFile(path, []byte("data"), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	t.Run("directory", func(t *testing.T) {
		if _, err := d.Digest(dir); err == nil || !strings.Contains(err.Error(), "not a regular file") {
			t.Errorf("Digest(dir) error = %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := d.Digest(filepath.Join(dir, "missing")); err == nil {
			t.Error("Digest() should fail for missing file")
		}
	})

	t.Run("mismatch", func(t *testing.T) {
		zero := "sha256:" + strings.Repeat("0", 64)
		if err := d.Verify(path, zero); err == nil || !strings.Contains(err.Error(), "digest mismatch") {
			t.Errorf("Verify() error = %v, want mismatch", err)
		}
	})

	t.Run("malformed expectation", func(t *testing.T) {
		if err := d.Verify(path, "not-a-digest"); err == nil {
			t.Error("Verify() should reject malformed digest")
		}
	})
}
