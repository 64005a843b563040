//go:build windows

package gateways

import (
	"errors"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sys/windows"

	"github.com/ochairo/codesign/internal/domain/entities"
	"github.com/ochairo/codesign/internal/domain/interfaces"
	"github.com/ochairo/codesign/internal/domain/interfaces/gateways"
)

// Version resource strings copied into the additional properties
var versionResourceKeys = map[string]string{
	"ProductVersion":   entities.PropertyShortVersion,
	"FileVersion":      entities.PropertyFileVersion,
	"ProductName":      entities.PropertyProductName,
	"CompanyName":      entities.PropertyCompanyName,
	"OriginalFilename": entities.PropertyBundleID,
}

// windowsTrustProvider verifies Authenticode signatures through WinTrust
type windowsTrustProvider struct {
	logger interfaces.Logger
}

func newPlatformTrustProvider(logger interfaces.Logger) gateways.TrustProvider {
	return &windowsTrustProvider{logger: logger}
}

func (p *windowsTrustProvider) Platform() string {
	return "windows"
}

// ForFile opens path for reading so it stays stable until Verify runs
func (p *windowsTrustProvider) ForFile(path string) (gateways.Verifier, error) {
	resolved, err := canonicalPath(path)
	if err != nil {
		return nil, err
	}
	if info, statErr := os.Stat(resolved); statErr == nil && info.IsDir() {
		return nil, entities.NewError(entities.KindInvalidPath, errors.New("authenticode targets must be files"))
	}

	return p.open(resolved, resolved)
}

// ForPID resolves the image of a running process and opens it as a file
func (p *windowsTrustProvider) ForPID(pid int) (gateways.Verifier, error) {
	if err := validPID(pid); err != nil {
		return nil, err
	}

	image, err := processImagePath(uint32(pid))
	if err != nil {
		return nil, entities.NewError(entities.KindInvalidPath, err)
	}

	resolved, err := canonicalPath(image)
	if err != nil {
		return nil, err
	}
	return p.open(resolved, resolved)
}

func (p *windowsTrustProvider) open(path, target string) (gateways.Verifier, error) {
	path16, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, entities.NewError(entities.KindInvalidPath, err)
	}

	file, err := windows.CreateFile(path16,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
	if err != nil {
		return nil, entities.NewError(entities.KindInvalidPath, err)
	}

	v := &windowsVerifier{
		path:   path,
		target: target,
		file:   file,
		logger: p.logger,
	}
	runtime.SetFinalizer(v, (*windowsVerifier).Close)
	return v, nil
}

// windowsVerifier owns an open handle on the target file until Verify or Close
type windowsVerifier struct {
	once   oneShot
	mu     sync.Mutex
	path   string
	target string
	file   windows.Handle
	logger interfaces.Logger
}

func (v *windowsVerifier) Target() string {
	return v.target
}

func (v *windowsVerifier) take() windows.Handle {
	v.mu.Lock()
	defer v.mu.Unlock()

	file := v.file
	v.file = windows.InvalidHandle
	return file
}

// Verify runs WinVerifyTrust and captures the leaf signer certificate.
// WinTrust has no requirement language, so requirement is only logged.
func (v *windowsVerifier) Verify(requirement string) (gateways.CertificateContext, error) {
	if !v.once.claim() {
		return nil, entities.ErrVerifierConsumed
	}
	file := v.take()
	runtime.SetFinalizer(v, nil)
	if file == windows.InvalidHandle {
		return nil, entities.ErrVerifierConsumed
	}
	//nolint:errcheck // read-only handle
	defer windows.CloseHandle(file)

	if requirement != "" {
		v.logger.Debug("requirement ignored by WinTrust",
			interfaces.F("target", v.target),
			interfaces.F("requirement", requirement),
		)
	}

	var cert *windows.CertContext
	err := winTrustVerify(v.path, file, func(state windows.Handle) error {
		leaf, leafErr := leafCertificate(state)
		if leafErr != nil {
			return entities.NewError(entities.KindLeafCertNotFound, leafErr)
		}
		cert = leaf
		return nil
	})
	if err != nil {
		var verr *entities.VerificationError
		if errors.As(err, &verr) {
			return nil, err
		}
		return nil, entities.NewError(entities.KindPlatform, err)
	}

	return newWindowsCertificateContext(cert, v.signingInfo(file)), nil
}

// signingInfo collects the Authenticode hash and version resource strings.
// Failures leave fields empty.
func (v *windowsVerifier) signingInfo(file windows.Handle) *entities.SigningInfo {
	info := &entities.SigningInfo{Extra: make(map[string]string)}

	hash, err := authenticodeHash(file)
	if err != nil {
		v.logger.Debug("authenticode hash unavailable",
			interfaces.F("target", v.target),
			interfaces.F("error", err),
		)
	} else {
		info.CDHash = hash
	}

	names := make([]string, 0, len(versionResourceKeys))
	for name := range versionResourceKeys {
		names = append(names, name)
	}
	for name, value := range versionStrings(v.path, names...) {
		key := versionResourceKeys[name]
		switch key {
		case entities.PropertyShortVersion:
			info.ShortVersion = value
		case entities.PropertyBundleID:
			info.BundleID = value
		case entities.PropertyFileVersion:
			info.BundleVersion = value
			info.Extra[key] = value
		default:
			info.Extra[key] = value
		}
	}

	return info
}

// Close releases the file handle if Verify never ran
func (v *windowsVerifier) Close() error {
	v.once.claim()
	runtime.SetFinalizer(v, nil)
	if file := v.take(); file != windows.InvalidHandle {
		return windows.CloseHandle(file)
	}
	return nil
}
