//go:build darwin

package gateways

/*
#cgo LDFLAGS: -framework CoreFoundation -framework Security
#include <stdlib.h>
#include <CoreFoundation/CoreFoundation.h>
#include <Security/Security.h>

static CFTypeRef cfDictGet(CFTypeRef dict, CFTypeRef key) {
	if (dict == NULL || key == NULL || CFGetTypeID(dict) != CFDictionaryGetTypeID()) {
		return NULL;
	}
	return CFDictionaryGetValue((CFDictionaryRef)dict, key);
}

static CFIndex cfArrayCount(CFTypeRef array) {
	if (array == NULL || CFGetTypeID(array) != CFArrayGetTypeID()) {
		return 0;
	}
	return CFArrayGetCount((CFArrayRef)array);
}

static CFTypeRef cfArrayGet(CFTypeRef array, CFIndex i) {
	return CFArrayGetValueAtIndex((CFArrayRef)array, i);
}

static char *cfStringCopyUTF8(CFTypeRef value) {
	if (value == NULL || CFGetTypeID(value) != CFStringGetTypeID()) {
		return NULL;
	}
	CFStringRef str = (CFStringRef)value;
	CFIndex max = CFStringGetMaximumSizeForEncoding(CFStringGetLength(str), kCFStringEncodingUTF8) + 1;
	char *buf = malloc(max);
	if (buf == NULL) {
		return NULL;
	}
	if (!CFStringGetCString(str, buf, max, kCFStringEncodingUTF8)) {
		free(buf);
		return NULL;
	}
	return buf;
}

static CFIndex cfDataLength(CFTypeRef value) {
	if (value == NULL || CFGetTypeID(value) != CFDataGetTypeID()) {
		return -1;
	}
	return CFDataGetLength((CFDataRef)value);
}

static const UInt8 *cfDataBytes(CFTypeRef value) {
	return CFDataGetBytePtr((CFDataRef)value);
}

static int cfNumberInt64(CFTypeRef value, int64_t *out) {
	if (value == NULL || CFGetTypeID(value) != CFNumberGetTypeID()) {
		return 0;
	}
	return CFNumberGetValue((CFNumberRef)value, kCFNumberSInt64Type, out) ? 1 : 0;
}

static CFTypeRef cfStringCreate(const char *s) {
	return CFStringCreateWithCString(kCFAllocatorDefault, s, kCFStringEncodingUTF8);
}

static int cfEqual(CFTypeRef a, CFTypeRef b) {
	return a != NULL && b != NULL && CFEqual(a, b);
}

static int cfIsCertificate(CFTypeRef value) {
	return value != NULL && CFGetTypeID(value) == SecCertificateGetTypeID();
}

static void cfRelease(CFTypeRef value) {
	if (value != NULL) {
		CFRelease(value);
	}
}

static CFTypeRef cfRetain(CFTypeRef value) {
	return value == NULL ? NULL : CFRetain(value);
}
*/
import "C"

import "unsafe"

// CoreFoundation accessors shared by the darwin verifier and context. Every
// accessor tolerates a NULL or mistyped reference and reports absence instead.

func cfRelease(ref C.CFTypeRef) {
	C.cfRelease(ref)
}

func cfRetain(ref C.CFTypeRef) C.CFTypeRef {
	return C.cfRetain(ref)
}

// cfNewString creates a CFString; the caller releases it
func cfNewString(s string) C.CFTypeRef {
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	return C.cfStringCreate(cs)
}

func cfDictValue(dict, key C.CFTypeRef) C.CFTypeRef {
	return C.cfDictGet(dict, key)
}

// cfDictValueForKey looks up a value by a Go string key
func cfDictValueForKey(dict C.CFTypeRef, key string) C.CFTypeRef {
	if dict == 0 {
		return 0
	}
	k := cfNewString(key)
	if k == 0 {
		return 0
	}
	defer C.cfRelease(k)
	return C.cfDictGet(dict, k)
}

func cfArrayLen(array C.CFTypeRef) int {
	return int(C.cfArrayCount(array))
}

func cfArrayAt(array C.CFTypeRef, i int) C.CFTypeRef {
	if i < 0 || i >= cfArrayLen(array) {
		return 0
	}
	return C.cfArrayGet(array, C.CFIndex(i))
}

// cfString converts a CFString to Go; false if ref is not a string
func cfString(ref C.CFTypeRef) (string, bool) {
	cs := C.cfStringCopyUTF8(ref)
	if cs == nil {
		return "", false
	}
	defer C.free(unsafe.Pointer(cs))
	return C.GoString(cs), true
}

// cfBytes copies the contents of a CFData; nil if ref is not data
func cfBytes(ref C.CFTypeRef) []byte {
	n := C.cfDataLength(ref)
	if n < 0 {
		return nil
	}
	if n == 0 {
		return []byte{}
	}
	return C.GoBytes(unsafe.Pointer(C.cfDataBytes(ref)), C.int(n))
}

func cfInt64(ref C.CFTypeRef) (int64, bool) {
	var v C.int64_t
	if C.cfNumberInt64(ref, &v) == 0 {
		return 0, false
	}
	return int64(v), true
}

func cfEqual(a, b C.CFTypeRef) bool {
	return C.cfEqual(a, b) != 0
}

func cfIsCertificate(ref C.CFTypeRef) bool {
	return C.cfIsCertificate(ref) != 0
}
