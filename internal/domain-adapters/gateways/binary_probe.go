package gateways

import (
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"errors"
	"fmt"
	"os"

	"github.com/ochairo/codesign/internal/domain/entities"
)

const (
	loadCmdCodeSignature = 0x1d // LC_CODE_SIGNATURE
	peDirectorySecurity  = 4    // IMAGE_DIRECTORY_ENTRY_SECURITY
)

// ErrUnknownFormat means the file is not a Mach-O, PE or ELF executable
var ErrUnknownFormat = errors.New("unrecognized executable format")

// binaryProbe implements BinaryProbe using pure Go
// Uses debug/macho, debug/pe and debug/elf - no external tools required
type binaryProbe struct{}

// NewBinaryProbe creates a new binary probe
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewBinaryProbe() *binaryProbe {
	return &binaryProbe{}
}

// Probe identifies the container format of path. Directories are reported
// as bundles without further inspection.
func (p *binaryProbe) Probe(path string) (*entities.BinaryInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return &entities.BinaryInfo{Format: entities.FormatBundle}, nil
	}

	for _, probe := range []func(string) (*entities.BinaryInfo, error){
		p.probeFat,
		p.probeMachO,
		p.probePE,
		p.probeELF,
	} {
		if result, err := probe(path); err == nil {
			return result, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
}

// probeFat analyzes a universal binary, one Mach-O slice per architecture
func (p *binaryProbe) probeFat(path string) (*entities.BinaryInfo, error) {
	f, err := macho.OpenFat(path)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	result := &entities.BinaryInfo{Format: entities.FormatMachOFat}
	signed := len(f.Arches) > 0
	for _, arch := range f.Arches {
		result.Architectures = append(result.Architectures, machoArch(arch.Cpu))
		signed = signed && hasCodeSignature(arch.File)
	}
	result.EmbeddedSignature = signed
	return result, nil
}

func (p *binaryProbe) probeMachO(path string) (*entities.BinaryInfo, error) {
	f, err := macho.Open(path)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	return &entities.BinaryInfo{
		Format:            entities.FormatMachO,
		Architectures:     []string{machoArch(f.Cpu)},
		EmbeddedSignature: hasCodeSignature(f),
	}, nil
}

func (p *binaryProbe) probePE(path string) (*entities.BinaryInfo, error) {
	f, err := pe.Open(path)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	// The certificate table entry holds the Authenticode blob
	var security pe.DataDirectory
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if oh.NumberOfRvaAndSizes > peDirectorySecurity {
			security = oh.DataDirectory[peDirectorySecurity]
		}
	case *pe.OptionalHeader64:
		if oh.NumberOfRvaAndSizes > peDirectorySecurity {
			security = oh.DataDirectory[peDirectorySecurity]
		}
	}

	return &entities.BinaryInfo{
		Format:            entities.FormatPE,
		Architectures:     []string{peArch(f.Machine)},
		EmbeddedSignature: security.Size > 0,
	}, nil
}

func (p *binaryProbe) probeELF(path string) (*entities.BinaryInfo, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	return &entities.BinaryInfo{
		Format:        entities.FormatELF,
		Architectures: []string{elfArch(f.Machine)},
	}, nil
}

func hasCodeSignature(f *macho.File) bool {
	for _, load := range f.Loads {
		raw := load.Raw()
		if len(raw) >= 4 && f.ByteOrder.Uint32(raw[:4]) == loadCmdCodeSignature {
			return true
		}
	}
	return false
}

// Architecture names follow the platform's own tools (lipo, dumpbin, uname)
func machoArch(cpu macho.Cpu) string {
	switch cpu {
	case macho.CpuAmd64:
		return "x86_64"
	case macho.CpuArm64:
		return "arm64"
	case macho.Cpu386:
		return "i386"
	case macho.CpuArm:
		return "arm"
	default:
		return cpu.String()
	}
}

func peArch(machine uint16) string {
	switch machine {
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return "x64"
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return "arm64"
	case pe.IMAGE_FILE_MACHINE_I386:
		return "x86"
	default:
		return fmt.Sprintf("0x%04x", machine)
	}
}

func elfArch(machine elf.Machine) string {
	switch machine {
	case elf.EM_X86_64:
		return "x86_64"
	case elf.EM_AARCH64:
		return "aarch64"
	case elf.EM_386:
		return "i386"
	default:
		return machine.String()
	}
}
