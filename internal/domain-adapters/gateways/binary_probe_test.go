package gateways

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ochairo/codesign/internal/domain/entities"
)

// Test probing the running test binary
func TestBinaryProbe_Self(t *testing.T) {
	self, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable() error = %v", err)
	}

	info, err := NewBinaryProbe().Probe(self)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}

	wantFormat := map[string]string{
		"darwin":  entities.FormatMachO,
		"windows": entities.FormatPE,
		"linux":   entities.FormatELF,
	}[runtime.GOOS]
	if wantFormat != "" && info.Format != wantFormat {
		t.Errorf("Format = %q, want %q", info.Format, wantFormat)
	}
	if len(info.Architectures) != 1 {
		t.Errorf("Architectures = %v, want one", info.Architectures)
	}

	// go test binaries are ad-hoc signed on darwin/arm64 only
	if runtime.GOOS == "linux" && info.EmbeddedSignature {
		t.Error("ELF binaries never carry an embedded signature")
	}
	if runtime.GOOS == "windows" && info.EmbeddedSignature {
		t.Error("test binary should have no certificate table")
	}
}

// Test probing a bundle directory
func TestBinaryProbe_Directory(t *testing.T) {
	info, err := NewBinaryProbe().Probe(t.TempDir())
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if info.Format != entities.FormatBundle {
		t.Errorf("Format = %q, want bundle", info.Format)
	}
}

// Test probing non-binary and missing files
func TestBinaryProbe_Invalid(t *testing.T) {
	textFile := filepath.Join(t.TempDir(), "test.txt")
	if err := os.WriteFile(textFile, []byte("not a binary"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := NewBinaryProbe().Probe(textFile)
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Probe() error = %v, want ErrUnknownFormat", err)
	}

	if _, err := NewBinaryProbe().Probe("/nonexistent/binary"); err == nil {
		t.Error("Expected error for nonexistent file, got nil")
	}
}

func TestBinaryProbe_SystemBinary(t *testing.T) {
	var path string
	switch runtime.GOOS {
	case "darwin":
		path = "/sbin/ping"
	case "windows":
		path = filepath.Join(os.Getenv("WINDIR"), "explorer.exe")
	default:
		t.Skip("no signed system binary on this platform")
	}

	info, err := NewBinaryProbe().Probe(path)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	// explorer.exe is catalog-signed on some builds, so only darwin is asserted
	if runtime.GOOS == "darwin" && !info.EmbeddedSignature {
		t.Errorf("%s should carry LC_CODE_SIGNATURE: %+v", path, info)
	}
}

func TestArchNames(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"macho amd64", machoArch(0x01000007), "x86_64"},
		{"macho arm64", machoArch(0x0100000c), "arm64"},
		{"pe amd64", peArch(0x8664), "x64"},
		{"pe unknown", peArch(0x1234), "0x1234"},
		{"elf aarch64", elfArch(183), "aarch64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
