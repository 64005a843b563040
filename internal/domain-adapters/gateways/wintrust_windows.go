//go:build windows

package gateways

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modwintrust = windows.NewLazySystemDLL("wintrust.dll")

	procWTHelperProvDataFromStateData        = modwintrust.NewProc("WTHelperProvDataFromStateData")
	procWTHelperGetProvSignerFromChain       = modwintrust.NewProc("WTHelperGetProvSignerFromChain")
	procWTHelperGetProvCertFromChain         = modwintrust.NewProc("WTHelperGetProvCertFromChain")
	procCryptCATAdminAcquireContext2         = modwintrust.NewProc("CryptCATAdminAcquireContext2")
	procCryptCATAdminReleaseContext          = modwintrust.NewProc("CryptCATAdminReleaseContext")
	procCryptCATAdminCalcHashFromFileHandle2 = modwintrust.NewProc("CryptCATAdminCalcHashFromFileHandle2")
)

// cryptProviderCert mirrors the head of CRYPT_PROVIDER_CERT
type cryptProviderCert struct {
	Size uint32
	Cert *windows.CertContext
}

// certInfoHead mirrors the head of CERT_INFO up to SerialNumber
type certInfoHead struct {
	Version      uint32
	SerialNumber cryptIntegerBlob
}

type cryptIntegerBlob struct {
	Size uint32
	Data *byte
}

const maxLongPath = 32768

// winTrustVerify runs WinVerifyTrust on an open file and hands the verified
// state to fn. The state is closed with WTD_STATEACTION_CLOSE in every case.
func winTrustVerify(path string, file windows.Handle, fn func(state windows.Handle) error) error {
	path16, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}

	fileInfo := windows.WinTrustFileInfo{
		Size:     uint32(unsafe.Sizeof(windows.WinTrustFileInfo{})),
		FilePath: path16,
		File:     file,
	}
	data := windows.WinTrustData{
		Size:                            uint32(unsafe.Sizeof(windows.WinTrustData{})),
		UIChoice:                        windows.WTD_UI_NONE,
		RevocationChecks:                windows.WTD_REVOKE_NONE,
		UnionChoice:                     windows.WTD_CHOICE_FILE,
		StateAction:                     windows.WTD_STATEACTION_VERIFY,
		FileOrCatalogOrBlobOrSgnrOrCert: unsafe.Pointer(&fileInfo),
	}

	verifyErr := windows.WinVerifyTrustEx(0, &windows.WINTRUST_ACTION_GENERIC_VERIFY_V2, &data)
	defer func() {
		data.StateAction = windows.WTD_STATEACTION_CLOSE
		//nolint:errcheck // closing the provider state has no actionable failure
		windows.WinVerifyTrustEx(0, &windows.WINTRUST_ACTION_GENERIC_VERIFY_V2, &data)
	}()

	if verifyErr != nil {
		if errno, ok := verifyErr.(windows.Errno); ok {
			return classifyTrustResult(uint32(errno))
		}
		return verifyErr
	}

	return fn(data.StateData)
}

// leafCertificate walks provider data to the first signer's leaf and
// duplicates it so it outlives the WinTrust state.
func leafCertificate(state windows.Handle) (*windows.CertContext, error) {
	for _, proc := range []*windows.LazyProc{
		procWTHelperProvDataFromStateData,
		procWTHelperGetProvSignerFromChain,
		procWTHelperGetProvCertFromChain,
	} {
		if err := proc.Find(); err != nil {
			return nil, err
		}
	}

	provData, _, _ := procWTHelperProvDataFromStateData.Call(uintptr(state))
	if provData == 0 {
		return nil, errors.New("no provider data")
	}

	signer, _, _ := procWTHelperGetProvSignerFromChain.Call(provData, 0, 0, 0)
	if signer == 0 {
		return nil, errors.New("no signer in chain")
	}

	provCert, _, _ := procWTHelperGetProvCertFromChain.Call(signer, 0)
	if provCert == 0 {
		return nil, errors.New("no certificate for signer")
	}

	//nolint:govet // pointer returned by wintrust, valid until the state is closed
	cert := (*cryptProviderCert)(unsafe.Pointer(provCert)).Cert
	if cert == nil {
		return nil, errors.New("empty certificate context")
	}

	dup := windows.CertDuplicateCertificateContext(cert)
	if dup == nil {
		return nil, errors.New("CertDuplicateCertificateContext failed")
	}
	return dup, nil
}

// authenticodeHash computes the SHA-256 Authenticode hash of an open file
func authenticodeHash(file windows.Handle) ([]byte, error) {
	if err := procCryptCATAdminCalcHashFromFileHandle2.Find(); err != nil {
		return nil, err
	}

	alg, err := windows.UTF16PtrFromString("SHA256")
	if err != nil {
		return nil, err
	}

	var admin uintptr
	r, _, callErr := procCryptCATAdminAcquireContext2.Call(
		uintptr(unsafe.Pointer(&admin)), 0, uintptr(unsafe.Pointer(alg)), 0, 0)
	if r == 0 {
		return nil, fmt.Errorf("CryptCATAdminAcquireContext2: %w", callErr)
	}
	//nolint:errcheck // release failure leaves nothing to clean up
	defer procCryptCATAdminReleaseContext.Call(admin, 0)

	size := uint32(32)
	hash := make([]byte, size)
	r, _, callErr = procCryptCATAdminCalcHashFromFileHandle2.Call(
		admin, uintptr(file), uintptr(unsafe.Pointer(&size)), uintptr(unsafe.Pointer(&hash[0])), 0)
	if r == 0 {
		return nil, fmt.Errorf("CryptCATAdminCalcHashFromFileHandle2: %w", callErr)
	}
	return hash[:size], nil
}

// versionStrings reads string values from the version resource of path.
// Missing resources yield an empty map.
func versionStrings(path string, names ...string) map[string]string {
	out := make(map[string]string)

	size, err := windows.GetFileVersionInfoSize(path, nil)
	if err != nil || size == 0 {
		return out
	}
	buf := make([]byte, size)
	if err := windows.GetFileVersionInfo(path, 0, size, unsafe.Pointer(&buf[0])); err != nil {
		return out
	}
	block := unsafe.Pointer(&buf[0])

	// Default to US English, Unicode when no translation table exists
	lang, codepage := uint16(0x0409), uint16(0x04b0)
	var trans unsafe.Pointer
	var transLen uint32
	if err := windows.VerQueryValue(block, `\VarFileInfo\Translation`, unsafe.Pointer(&trans), &transLen); err == nil && transLen >= 4 {
		pair := (*[2]uint16)(trans)
		lang, codepage = pair[0], pair[1]
	}

	for _, name := range names {
		var value unsafe.Pointer
		var valueLen uint32
		sub := fmt.Sprintf(`\StringFileInfo\%04x%04x\%s`, lang, codepage, name)
		if err := windows.VerQueryValue(block, sub, unsafe.Pointer(&value), &valueLen); err != nil || valueLen == 0 {
			continue
		}
		if s := windows.UTF16PtrToString((*uint16)(value)); s != "" {
			out[name] = s
		}
	}
	return out
}

// processImagePath resolves the executable path of a running process
func processImagePath(pid uint32) (string, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", fmt.Errorf("OpenProcess %d: %w", pid, err)
	}
	//nolint:errcheck // handle close failure is not actionable
	defer windows.CloseHandle(h)

	buf := make([]uint16, maxLongPath)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return "", fmt.Errorf("QueryFullProcessImageName %d: %w", pid, err)
	}
	return windows.UTF16ToString(buf[:size]), nil
}
