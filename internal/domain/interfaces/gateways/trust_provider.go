// Package gateways defines the contracts implemented by platform trust providers.
package gateways

import "github.com/ochairo/codesign/internal/domain/entities"

// TrustProvider opens verification targets on the native trust subsystem.
// Exactly one implementation is compiled per target platform.
type TrustProvider interface {
	// Platform names the backend ("darwin", "windows", ...)
	Platform() string

	// ForFile opens an executable or application bundle by path
	ForFile(path string) (Verifier, error)

	// ForPID opens the code of a running process
	ForPID(pid int) (Verifier, error)
}

// Verifier is a one-shot handle on something that can be verified.
// Verify consumes it: native references are released whatever the outcome
// and a second call fails with entities.KindVerifierConsumed.
type Verifier interface {
	// Target describes what is being verified (canonical path or "pid:N")
	Target() string

	// Verify checks the signature against a provider-specific requirement.
	// An empty requirement selects the provider's default policy.
	Verify(requirement string) (CertificateContext, error)

	// Close releases the verifier without verifying
	Close() error
}

// CertificateContext exposes read-only projections of a verified leaf certificate.
// Implementations are safe for concurrent use by multiple goroutines.
type CertificateContext interface {
	SubjectName() entities.Name
	IssuerName() entities.Name
	SHA256Thumbprint() string
	Serial() (string, bool)
	AdditionalProperties() (map[string]string, bool)

	// Certificate returns a copy of the DER-encoded leaf certificate
	Certificate() []byte

	// Close releases the native certificate handles
	Close() error
}
