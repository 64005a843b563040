package gateways

import (
	"fmt"
	"os"

	"github.com/opencontainers/go-digest"
)

// fileDigester computes content digests of verification targets
type fileDigester struct{}

// NewFileDigester creates a new file digester
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewFileDigester() *fileDigester {
	return &fileDigester{}
}

// Digest returns the "sha256:<hex>" digest of a regular file
func (d *fileDigester) Digest(filePath string) (string, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", filePath)
	}

	//nolint:gosec // G304: filePath is the verified target
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	dgst, err := digest.SHA256.FromReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return dgst.String(), nil
}

// Verify checks a file against an expected digest such as "sha256:<hex>"
func (d *fileDigester) Verify(filePath, expected string) error {
	want, err := digest.Parse(expected)
	if err != nil {
		return fmt.Errorf("invalid digest %q: %w", expected, err)
	}

	got, err := d.Digest(filePath)
	if err != nil {
		return err
	}
	if got != want.String() {
		return fmt.Errorf("digest mismatch: expected %s, got %s", want, got)
	}
	return nil
}
