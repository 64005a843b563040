package entities

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a verification could not produce a signature context.
// The set is closed: callers branch on Kind, never on Error() text.
type ErrorKind int

const (
	// KindUnsigned means the target carries no signature at all.
	KindUnsigned ErrorKind = iota + 1
	// KindOSError means the trust provider rejected the signature; Code holds its status.
	KindOSError
	// KindInvalidPath means the path or pid could not be resolved for the trust provider.
	KindInvalidPath
	// KindLeafCertNotFound means a trusted signature had no locatable leaf certificate.
	KindLeafCertNotFound
	// KindPlatform wraps a low-level error in the OS's own representation.
	// Unmodelled native faults (allocation failures inside the provider) may
	// still abort the process instead of surfacing here.
	KindPlatform
	// KindUnsupportedPlatform means the binary was built for a GOOS without a trust provider.
	KindUnsupportedPlatform
	// KindVerifierConsumed means Verify was already called on this verifier.
	KindVerifierConsumed
)

// String returns the stable name of the kind
func (k ErrorKind) String() string {
	switch k {
	case KindUnsigned:
		return "Unsigned"
	case KindOSError:
		return "OsError"
	case KindInvalidPath:
		return "InvalidPath"
	case KindLeafCertNotFound:
		return "LeafCertNotFound"
	case KindPlatform:
		return "PlatformError"
	case KindUnsupportedPlatform:
		return "UnsupportedPlatform"
	case KindVerifierConsumed:
		return "VerifierConsumed"
	default:
		return "Unknown"
	}
}

// VerificationError is the structured error returned by verifier construction and Verify.
//
// Code carries the native provider status for KindOSError (an OSStatus on
// darwin, an HRESULT on windows) and is zero otherwise. Err holds the
// underlying cause when there is one.
type VerificationError struct {
	Kind ErrorKind
	Code int32
	Err  error
}

func (e *VerificationError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var msg string
	switch e.Kind {
	case KindUnsigned:
		msg = "code is not signed"
	case KindOSError:
		msg = fmt.Sprintf("trust provider rejected signature (status %d, 0x%08X)", e.Code, uint32(e.Code))
	case KindInvalidPath:
		msg = "invalid path"
	case KindLeafCertNotFound:
		msg = "leaf certificate not found in signature"
	case KindPlatform:
		msg = "platform error"
	case KindUnsupportedPlatform:
		msg = "code signature verification is not supported on this platform"
	case KindVerifierConsumed:
		msg = "verifier already consumed by Verify"
	default:
		msg = "unknown verification error"
	}

	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *VerificationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *VerificationError by kind; a non-zero Code on the
// target must match as well.
func (e *VerificationError) Is(target error) bool {
	t, ok := target.(*VerificationError)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == 0 || t.Code == e.Code
}

// Sentinel errors for errors.Is comparisons.
var (
	ErrUnsigned            = &VerificationError{Kind: KindUnsigned}
	ErrOSError             = &VerificationError{Kind: KindOSError}
	ErrInvalidPath         = &VerificationError{Kind: KindInvalidPath}
	ErrLeafCertNotFound    = &VerificationError{Kind: KindLeafCertNotFound}
	ErrPlatform            = &VerificationError{Kind: KindPlatform}
	ErrUnsupportedPlatform = &VerificationError{Kind: KindUnsupportedPlatform}
	ErrVerifierConsumed    = &VerificationError{Kind: KindVerifierConsumed}
)

// NewError creates a verification error of the given kind wrapping cause (may be nil)
func NewError(kind ErrorKind, cause error) *VerificationError {
	return &VerificationError{Kind: kind, Err: cause}
}

// NewOSError creates a KindOSError carrying the provider status code
func NewOSError(code int32) *VerificationError {
	return &VerificationError{Kind: KindOSError, Code: code}
}

// IsKind reports whether err is (or wraps) a *VerificationError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *VerificationError
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// OSStatus returns the provider status carried by a KindOSError, and whether there was one.
func OSStatus(err error) (int32, bool) {
	var e *VerificationError
	if !errors.As(err, &e) || e.Kind != KindOSError {
		return 0, false
	}
	return e.Code, true
}
