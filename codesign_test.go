package codesign

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestForFileInvalidPath(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "empty", path: ""},
		{name: "missing", path: filepath.Join(t.TempDir(), "nope")},
		{name: "nul byte", path: "a\x00b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ForFile(tt.path)
			if v != nil {
				t.Errorf("ForFile(%q) returned a verifier", tt.path)
			}
			if !errors.Is(err, ErrInvalidPath) {
				t.Errorf("ForFile(%q) error = %v, want InvalidPath", tt.path, err)
			}
			var e *Error
			if !errors.As(err, &e) || e.Kind != KindInvalidPath {
				t.Errorf("errors.As() kind = %v, want %v", e, KindInvalidPath)
			}
		})
	}
}

func TestForPIDInvalid(t *testing.T) {
	if _, err := ForPID(0); !IsKind(err, KindInvalidPath) {
		t.Errorf("ForPID(0) error = %v, want InvalidPath", err)
	}
}

func TestOSStatusFromWrappedError(t *testing.T) {
	err := fmt.Errorf("checking: %w", &Error{Kind: KindOSError, Code: ErrSecCSReqFailed})

	code, ok := OSStatus(err)
	if !ok || code != ErrSecCSReqFailed {
		t.Errorf("OSStatus() = %d, %v, want %d, true", code, ok, ErrSecCSReqFailed)
	}
	if !errors.Is(err, ErrOSError) {
		t.Error("errors.Is(err, ErrOSError) = false")
	}
	if errors.Is(err, &Error{Kind: KindOSError, Code: ErrSecCSBadResource}) {
		t.Error("errors.Is matched a different status")
	}
}

func TestOwnExecutableIsNotTrusted(t *testing.T) {
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable() error = %v", err)
	}

	v, err := ForFile(exe)
	if IsKind(err, KindUnsupportedPlatform) {
		t.Skip("no trust provider on this platform")
	}
	if err != nil {
		t.Fatalf("ForFile() error = %v", err)
	}

	if _, err := v.Verify(""); !errors.Is(err, ErrUnsigned) {
		t.Errorf("Verify() error = %v, want Unsigned", err)
	}
	if _, err := v.Verify(""); !errors.Is(err, ErrVerifierConsumed) {
		t.Errorf("second Verify() error = %v, want VerifierConsumed", err)
	}
	if err := v.Close(); err != nil {
		t.Errorf("Close() after Verify error = %v", err)
	}
}
