// Package gateways provides the platform trust providers and the file, binary
// and policy-signature adapters around them.
package gateways

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ochairo/codesign/internal/domain/entities"
	"github.com/ochairo/codesign/internal/domain/interfaces"
	"github.com/ochairo/codesign/internal/domain/interfaces/gateways"
)

// NewPlatformTrustProvider returns the trust provider compiled for this GOOS.
// On platforms without a native provider every constructor fails with
// entities.KindUnsupportedPlatform.
func NewPlatformTrustProvider(logger interfaces.Logger) gateways.TrustProvider {
	return newPlatformTrustProvider(interfaces.EnsureLogger(logger))
}

// canonicalPath resolves path to an absolute path with symlinks evaluated.
// It fails with KindInvalidPath when the path is empty, contains NUL or does not exist.
func canonicalPath(path string) (string, error) {
	if path == "" {
		return "", entities.NewError(entities.KindInvalidPath, errors.New("empty path"))
	}
	if strings.ContainsRune(path, 0) {
		return "", entities.NewError(entities.KindInvalidPath, fmt.Errorf("path %q contains NUL", path))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", entities.NewError(entities.KindInvalidPath, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", entities.NewError(entities.KindInvalidPath, err)
	}

	if _, err := os.Stat(resolved); err != nil {
		return "", entities.NewError(entities.KindInvalidPath, err)
	}

	return resolved, nil
}

// validPID rejects pids that can never name a user process
func validPID(pid int) error {
	if pid <= 0 {
		return entities.NewError(entities.KindInvalidPath, fmt.Errorf("invalid pid %d", pid))
	}
	return nil
}

// oneShot enforces that Verify (or Close) runs at most once per verifier
type oneShot struct {
	mu   sync.Mutex
	used bool
}

// claim marks the verifier as consumed, reporting whether this call won
func (o *oneShot) claim() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.used {
		return false
	}
	o.used = true
	return true
}

func pidTarget(pid int) string {
	return fmt.Sprintf("pid:%d", pid)
}
