package gateways

import (
	"fmt"

	"github.com/ochairo/codesign/internal/domain/entities"
)

// Security.framework code-signing statuses
const (
	ErrSecCSUnsigned           int32 = -67062
	ErrSecCSSignatureFailed    int32 = -67061
	ErrSecCSReqFailed          int32 = -67050
	ErrSecCSBadResource        int32 = -67054
	ErrSecCSStaticCodeNotFound int32 = -67068
	ErrSecCSNoSuchCode         int32 = -67065
)

// WinTrust HRESULTs
const (
	TrustENoSignature        uint32 = 0x800B0100
	TrustESubjectFormUnknown uint32 = 0x800B0003
	TrustEProviderUnknown    uint32 = 0x800B0001
	TrustEBadDigest          uint32 = 0x80096010
	CertEUntrustedRoot       uint32 = 0x800B0109
)

// codeSignatureAdhoc is the kSecCodeSignatureAdhoc bit of kSecCodeInfoFlags
const codeSignatureAdhoc = 0x0002

// classifySecStatus maps a failed validity check to a verification error.
// Ad-hoc signatures carry no certificate chain and are reported as unsigned.
func classifySecStatus(status int32, adhoc bool) error {
	switch {
	case status == 0:
		return nil
	case status == ErrSecCSUnsigned, adhoc:
		return entities.NewError(entities.KindUnsigned, fmt.Errorf("OSStatus %d", status))
	default:
		return entities.NewOSError(status)
	}
}

// classifyTrustResult maps a WinVerifyTrust result to a verification error
func classifyTrustResult(hresult uint32) error {
	switch hresult {
	case 0:
		return nil
	case TrustENoSignature, TrustESubjectFormUnknown, TrustEProviderUnknown:
		return entities.NewError(entities.KindUnsigned, fmt.Errorf("HRESULT 0x%08X", hresult))
	default:
		return entities.NewOSError(int32(hresult))
	}
}
