// Package codesign verifies the code signature of an executable, application
// bundle or running process with the operating system's trust subsystem and
// exposes the signer's leaf certificate.
//
// On darwin verification goes through Security.framework and requirements
// use the code-signing requirement language ("anchor apple generic"). On
// windows it goes through WinTrust (Authenticode); requirements are accepted
// but ignored. Other platforms fail with KindUnsupportedPlatform.
//
//	v, err := codesign.ForFile("/sbin/ping")
//	if err != nil {
//		return err
//	}
//	ctx, err := v.Verify("anchor apple generic")
//	if err != nil {
//		return err
//	}
//	defer ctx.Close()
//	fmt.Println(*ctx.SubjectName().Organization)
package codesign

import (
	"github.com/ochairo/codesign/internal/domain-adapters/gateways"
	"github.com/ochairo/codesign/internal/domain/entities"
	gw "github.com/ochairo/codesign/internal/domain/interfaces/gateways"
)

// Name is the subject or issuer distinguished name of a certificate.
// Each field is nil when the certificate does not carry it.
type Name = entities.Name

// Error is the structured error returned by ForFile, ForPID and Verify
type Error = entities.VerificationError

// ErrorKind classifies an Error
type ErrorKind = entities.ErrorKind

const (
	KindUnsigned            = entities.KindUnsigned
	KindOSError             = entities.KindOSError
	KindInvalidPath         = entities.KindInvalidPath
	KindLeafCertNotFound    = entities.KindLeafCertNotFound
	KindPlatform            = entities.KindPlatform
	KindUnsupportedPlatform = entities.KindUnsupportedPlatform
	KindVerifierConsumed    = entities.KindVerifierConsumed
)

// Sentinels for errors.Is
var (
	ErrUnsigned            = entities.ErrUnsigned
	ErrOSError             = entities.ErrOSError
	ErrInvalidPath         = entities.ErrInvalidPath
	ErrLeafCertNotFound    = entities.ErrLeafCertNotFound
	ErrPlatform            = entities.ErrPlatform
	ErrUnsupportedPlatform = entities.ErrUnsupportedPlatform
	ErrVerifierConsumed    = entities.ErrVerifierConsumed
)

// Native statuses carried in Error.Code for KindOSError
const (
	ErrSecCSSignatureFailed = gateways.ErrSecCSSignatureFailed
	ErrSecCSReqFailed       = gateways.ErrSecCSReqFailed
	ErrSecCSBadResource     = gateways.ErrSecCSBadResource
)

// Additional property keys
const (
	PropertyCDHash        = entities.PropertyCDHash
	PropertyBundleID      = entities.PropertyBundleID
	PropertyShortVersion  = entities.PropertyShortVersion
	PropertyBundleVersion = entities.PropertyBundleVersion
	PropertyTeamID        = entities.PropertyTeamID
	PropertyPlatformID    = entities.PropertyPlatformID
	PropertyIdentifier    = entities.PropertyIdentifier
	PropertyFileVersion   = entities.PropertyFileVersion
	PropertyProductName   = entities.PropertyProductName
	PropertyCompanyName   = entities.PropertyCompanyName
)

// IsKind reports whether err is an Error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return entities.IsKind(err, kind)
}

// OSStatus returns the native status of a KindOSError
func OSStatus(err error) (int32, bool) {
	return entities.OSStatus(err)
}

// CodeSignVerifier is a one-shot handle on code waiting to be verified.
// Verify consumes it; call Close instead to release it without verifying.
type CodeSignVerifier struct {
	v gw.Verifier
}

// ForFile opens the executable or bundle at path. The path is made absolute
// and symlinks are resolved; a missing path fails with KindInvalidPath.
func ForFile(path string) (*CodeSignVerifier, error) {
	v, err := gateways.NewPlatformTrustProvider(nil).ForFile(path)
	if err != nil {
		return nil, err
	}
	return &CodeSignVerifier{v: v}, nil
}

// ForPID opens the code of the running process pid
func ForPID(pid int) (*CodeSignVerifier, error) {
	v, err := gateways.NewPlatformTrustProvider(nil).ForPID(pid)
	if err != nil {
		return nil, err
	}
	return &CodeSignVerifier{v: v}, nil
}

// Target is the canonical path being verified, or "pid:N"
func (c *CodeSignVerifier) Target() string {
	return c.v.Target()
}

// Verify checks the signature and returns the signer's certificate context.
// An empty requirement uses the platform's default trust policy. Native
// handles of the verifier are released whatever the outcome, and a second
// call fails with KindVerifierConsumed.
func (c *CodeSignVerifier) Verify(requirement string) (*SignatureContext, error) {
	ctx, err := c.v.Verify(requirement)
	if err != nil {
		return nil, err
	}
	return &SignatureContext{ctx: ctx}, nil
}

// Close releases the verifier without verifying. It is safe after Verify.
func (c *CodeSignVerifier) Close() error {
	return c.v.Close()
}

// SignatureContext describes the leaf certificate of a verified signature.
// Accessors are safe for concurrent use and return zero values after Close.
type SignatureContext struct {
	ctx gw.CertificateContext
}

// SubjectName returns the subject CN, O, OU and C attributes
func (s *SignatureContext) SubjectName() Name {
	return s.ctx.SubjectName()
}

// IssuerName returns the issuer CN, O, OU and C attributes
func (s *SignatureContext) IssuerName() Name {
	return s.ctx.IssuerName()
}

// SHA256Thumbprint is the lowercase hex SHA-256 of the certificate DER
func (s *SignatureContext) SHA256Thumbprint() string {
	return s.ctx.SHA256Thumbprint()
}

// Serial returns the certificate serial number.
// darwin returns Security.framework's rendering; windows returns big-endian lowercase hex.
func (s *SignatureContext) Serial() (string, bool) {
	return s.ctx.Serial()
}

// AdditionalProperties returns signing metadata such as the code-directory
// hash. The key set differs between platforms; see the Property constants.
// It reports false when no code-directory hash is available.
func (s *SignatureContext) AdditionalProperties() (map[string]string, bool) {
	return s.ctx.AdditionalProperties()
}

// Certificate returns a copy of the DER-encoded leaf certificate
func (s *SignatureContext) Certificate() []byte {
	return s.ctx.Certificate()
}

// Close releases the native certificate handles
func (s *SignatureContext) Close() error {
	return s.ctx.Close()
}
