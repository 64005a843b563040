package entities

// Executable container formats recognized by the binary probe
const (
	FormatMachO    = "Mach-O"
	FormatMachOFat = "Mach-O universal"
	FormatPE       = "PE"
	FormatELF      = "ELF"
	FormatBundle   = "bundle"
)

// BinaryInfo describes the container of a verification target, read
// without consulting the OS trust subsystem
type BinaryInfo struct {
	Format        string   `json:"format" yaml:"format"`
	Architectures []string `json:"architectures,omitempty" yaml:"architectures,omitempty"`

	// EmbeddedSignature reports a signature blob inside the file: an
	// LC_CODE_SIGNATURE load command (Mach-O) or a certificate table (PE).
	// It says nothing about validity.
	EmbeddedSignature bool `json:"embedded_signature" yaml:"embedded_signature"`
}
