//go:build darwin

package gateways

/*
#include <limits.h>
#include <stdlib.h>
#include <string.h>
#include <CoreFoundation/CoreFoundation.h>
#include <Security/Security.h>

static OSStatus staticCodeForPath(const char *path, int isDir, CFTypeRef *out) {
	CFURLRef url = CFURLCreateFromFileSystemRepresentation(kCFAllocatorDefault,
		(const UInt8 *)path, (CFIndex)strlen(path), isDir ? true : false);
	if (url == NULL) {
		return errSecParam;
	}
	SecStaticCodeRef code = NULL;
	OSStatus status = SecStaticCodeCreateWithPath(url, kSecCSDefaultFlags, &code);
	CFRelease(url);
	if (status == errSecSuccess) {
		*out = code;
	}
	return status;
}

static OSStatus guestForPID(int32_t pid, CFTypeRef *out) {
	CFNumberRef number = CFNumberCreate(kCFAllocatorDefault, kCFNumberSInt32Type, &pid);
	if (number == NULL) {
		return errSecAllocate;
	}
	const void *keys[] = { kSecGuestAttributePid };
	const void *values[] = { number };
	CFDictionaryRef attrs = CFDictionaryCreate(kCFAllocatorDefault, keys, values, 1,
		&kCFTypeDictionaryKeyCallBacks, &kCFTypeDictionaryValueCallBacks);
	CFRelease(number);
	if (attrs == NULL) {
		return errSecAllocate;
	}
	SecCodeRef code = NULL;
	OSStatus status = SecCodeCopyGuestWithAttributes(NULL, attrs, kSecCSDefaultFlags, &code);
	CFRelease(attrs);
	if (status == errSecSuccess) {
		*out = code;
	}
	return status;
}

static OSStatus requirementFromString(const char *text, CFTypeRef *out) {
	CFStringRef str = CFStringCreateWithCString(kCFAllocatorDefault, text, kCFStringEncodingUTF8);
	if (str == NULL) {
		return errSecCSReqInvalid;
	}
	SecRequirementRef req = NULL;
	OSStatus status = SecRequirementCreateWithString(str, kSecCSDefaultFlags, &req);
	CFRelease(str);
	if (status == errSecSuccess) {
		*out = req;
	}
	return status;
}

static OSStatus checkValidity(CFTypeRef code, int dynamic, CFTypeRef req) {
	if (dynamic) {
		return SecCodeCheckValidity((SecCodeRef)code, kSecCSDefaultFlags, (SecRequirementRef)req);
	}
	return SecStaticCodeCheckValidity((SecStaticCodeRef)code, kSecCSCheckAllArchitectures, (SecRequirementRef)req);
}

static CFTypeRef copySigningInfo(CFTypeRef code) {
	CFDictionaryRef info = NULL;
	OSStatus status = SecCodeCopySigningInformation((SecStaticCodeRef)code,
		kSecCSSigningInformation | kSecCSRequirementInformation, &info);
	if (status != errSecSuccess) {
		return NULL;
	}
	return info;
}

static char *codePath(CFTypeRef code) {
	CFURLRef url = NULL;
	if (SecCodeCopyPath((SecStaticCodeRef)code, kSecCSDefaultFlags, &url) != errSecSuccess || url == NULL) {
		return NULL;
	}
	char *buf = malloc(PATH_MAX);
	if (buf != NULL && !CFURLGetFileSystemRepresentation(url, true, (UInt8 *)buf, PATH_MAX)) {
		free(buf);
		buf = NULL;
	}
	CFRelease(url);
	return buf;
}

static CFTypeRef keyCertificates(void) { return kSecCodeInfoCertificates; }
static CFTypeRef keyFlags(void) { return kSecCodeInfoFlags; }
*/
import "C"

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ochairo/codesign/internal/domain/entities"
	"github.com/ochairo/codesign/internal/domain/interfaces"
	"github.com/ochairo/codesign/internal/domain/interfaces/gateways"
)

// darwinTrustProvider verifies code through Security.framework
type darwinTrustProvider struct {
	logger interfaces.Logger
}

func newPlatformTrustProvider(logger interfaces.Logger) gateways.TrustProvider {
	return &darwinTrustProvider{logger: logger}
}

func (p *darwinTrustProvider) Platform() string {
	return "darwin"
}

// ForFile opens a static code object for an executable or bundle directory
func (p *darwinTrustProvider) ForFile(path string) (gateways.Verifier, error) {
	resolved, err := canonicalPath(path)
	if err != nil {
		return nil, err
	}

	isDir := 0
	if info, statErr := os.Stat(resolved); statErr == nil && info.IsDir() {
		isDir = 1
	}

	cpath := C.CString(resolved)
	defer C.free(unsafe.Pointer(cpath))

	var code C.CFTypeRef
	if status := C.staticCodeForPath(cpath, C.int(isDir), &code); status != C.errSecSuccess {
		return nil, entities.NewError(entities.KindInvalidPath,
			fmt.Errorf("SecStaticCodeCreateWithPath %s: OSStatus %d", resolved, int32(status)))
	}

	return newDarwinVerifier(code, resolved, false, p.logger), nil
}

// ForPID opens the dynamic code object of a running process
func (p *darwinTrustProvider) ForPID(pid int) (gateways.Verifier, error) {
	if err := validPID(pid); err != nil {
		return nil, err
	}

	var code C.CFTypeRef
	if status := C.guestForPID(C.int32_t(pid), &code); status != C.errSecSuccess {
		return nil, entities.NewError(entities.KindInvalidPath,
			fmt.Errorf("SecCodeCopyGuestWithAttributes pid %d: OSStatus %d", pid, int32(status)))
	}

	target := pidTarget(pid)
	if cpath := C.codePath(code); cpath != nil {
		target = C.GoString(cpath)
		C.free(unsafe.Pointer(cpath))
	}

	return newDarwinVerifier(code, target, true, p.logger), nil
}

// darwinVerifier owns one SecStaticCodeRef or SecCodeRef until Verify or Close
type darwinVerifier struct {
	once    oneShot
	mu      sync.Mutex
	code    C.CFTypeRef
	dynamic bool
	target  string
	logger  interfaces.Logger
}

func newDarwinVerifier(code C.CFTypeRef, target string, dynamic bool, logger interfaces.Logger) *darwinVerifier {
	v := &darwinVerifier{
		code:    code,
		dynamic: dynamic,
		target:  target,
		logger:  logger,
	}
	runtime.SetFinalizer(v, (*darwinVerifier).Close)
	return v
}

func (v *darwinVerifier) Target() string {
	return v.target
}

// take hands the code reference to the caller exactly once
func (v *darwinVerifier) take() C.CFTypeRef {
	v.mu.Lock()
	defer v.mu.Unlock()

	code := v.code
	v.code = 0
	return code
}

// Verify validates the code against requirement and returns the leaf certificate context
func (v *darwinVerifier) Verify(requirement string) (gateways.CertificateContext, error) {
	if !v.once.claim() {
		return nil, entities.ErrVerifierConsumed
	}
	code := v.take()
	runtime.SetFinalizer(v, nil)
	if code == 0 {
		return nil, entities.ErrVerifierConsumed
	}
	defer cfRelease(code)

	var req C.CFTypeRef
	if requirement != "" {
		creq := C.CString(requirement)
		status := C.requirementFromString(creq, &req)
		C.free(unsafe.Pointer(creq))
		if status != C.errSecSuccess {
			return nil, entities.NewOSError(int32(status))
		}
		defer cfRelease(req)
	}

	dynamic := 0
	if v.dynamic {
		dynamic = 1
	}
	status := int32(C.checkValidity(code, C.int(dynamic), req))

	info := C.copySigningInfo(code)
	defer cfRelease(info)

	if status != 0 {
		v.logger.Debug("code validity check failed",
			interfaces.F("target", v.target),
			interfaces.F("status", status),
		)
		return nil, classifySecStatus(status, isAdhoc(info))
	}

	certs := cfDictValue(info, C.keyCertificates())
	if cfArrayLen(certs) == 0 {
		if isAdhoc(info) {
			return nil, entities.NewError(entities.KindUnsigned, errors.New("ad-hoc signature"))
		}
		return nil, entities.ErrLeafCertNotFound
	}

	leaf := cfArrayAt(certs, 0)
	if !cfIsCertificate(leaf) {
		return nil, entities.ErrLeafCertNotFound
	}

	return newDarwinCertificateContext(leaf, info), nil
}

// Close releases the code reference if Verify never ran
func (v *darwinVerifier) Close() error {
	v.once.claim()
	if code := v.take(); code != 0 {
		cfRelease(code)
	}
	runtime.SetFinalizer(v, nil)
	return nil
}

func isAdhoc(info C.CFTypeRef) bool {
	flags, ok := cfInt64(cfDictValue(info, C.keyFlags()))
	return ok && flags&codeSignatureAdhoc != 0
}
