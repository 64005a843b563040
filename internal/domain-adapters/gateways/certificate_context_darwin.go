//go:build darwin

package gateways

/*
#include <CoreFoundation/CoreFoundation.h>
#include <Security/Security.h>

static CFTypeRef copyCertificateValues(CFTypeRef cert) {
	return SecCertificateCopyValues((SecCertificateRef)cert, NULL, NULL);
}

static CFTypeRef copyCertificateData(CFTypeRef cert) {
	return SecCertificateCopyData((SecCertificateRef)cert);
}

static CFTypeRef sectionKey(int issuer) {
	return issuer ? kSecOIDX509V1IssuerName : kSecOIDX509V1SubjectName;
}

static CFTypeRef serialKey(void) { return kSecOIDX509V1SerialNumber; }
static CFTypeRef propertyType(void) { return kSecPropertyKeyType; }
static CFTypeRef propertyLabel(void) { return kSecPropertyKeyLabel; }
static CFTypeRef propertyValue(void) { return kSecPropertyKeyValue; }
static CFTypeRef typeSection(void) { return kSecPropertyTypeSection; }
static CFTypeRef typeString(void) { return kSecPropertyTypeString; }

static CFTypeRef infoUnique(void) { return kSecCodeInfoUnique; }
static CFTypeRef infoTeamIdentifier(void) { return kSecCodeInfoTeamIdentifier; }
static CFTypeRef infoIdentifier(void) { return kSecCodeInfoIdentifier; }
static CFTypeRef infoPlatformIdentifier(void) { return kSecCodeInfoPlatformIdentifier; }
static CFTypeRef infoPList(void) { return kSecCodeInfoPList; }
*/
import "C"

import (
	"runtime"
	"sync"

	"github.com/ochairo/codesign/internal/domain/entities"
	"github.com/ochairo/codesign/internal/domain/services"
)

// darwinCertificateContext owns a retained SecCertificateRef and the property
// graph copied from it. Signing information is captured as Go values up front.
type darwinCertificateContext struct {
	mu     sync.RWMutex
	cert   C.CFTypeRef
	values C.CFTypeRef
	info   *entities.SigningInfo
}

func newDarwinCertificateContext(leaf, info C.CFTypeRef) *darwinCertificateContext {
	c := &darwinCertificateContext{
		cert:   cfRetain(leaf),
		values: C.copyCertificateValues(leaf),
		info:   signingInfoFrom(info),
	}
	runtime.SetFinalizer(c, (*darwinCertificateContext).Close)
	return c
}

func (c *darwinCertificateContext) SubjectName() entities.Name {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return services.ExtractName(c.lookup, entities.SectionSubject)
}

func (c *darwinCertificateContext) IssuerName() entities.Name {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return services.ExtractName(c.lookup, entities.SectionIssuer)
}

// lookup scans one name section of the property graph for an OID label.
// Callers hold the read lock.
func (c *darwinCertificateContext) lookup(section entities.NameSection, oid string) (string, bool) {
	issuer := 0
	if section == entities.SectionIssuer {
		issuer = 1
	}

	entry := cfDictValue(c.values, C.sectionKey(C.int(issuer)))
	if !cfEqual(cfDictValue(entry, C.propertyType()), C.typeSection()) {
		return "", false
	}

	items := cfDictValue(entry, C.propertyValue())
	for i := 0; i < cfArrayLen(items); i++ {
		item := cfArrayAt(items, i)
		label, ok := cfString(cfDictValue(item, C.propertyLabel()))
		if !ok || label != oid {
			continue
		}
		return cfString(cfDictValue(item, C.propertyValue()))
	}
	return "", false
}

// Serial returns the serial number as rendered by Security.framework
func (c *darwinCertificateContext) Serial() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry := cfDictValue(c.values, C.serialKey())
	if !cfEqual(cfDictValue(entry, C.propertyType()), C.typeString()) {
		return "", false
	}
	return cfString(cfDictValue(entry, C.propertyValue()))
}

func (c *darwinCertificateContext) SHA256Thumbprint() string {
	der := c.Certificate()
	if der == nil {
		return ""
	}
	return services.Thumbprint(der)
}

func (c *darwinCertificateContext) Certificate() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cert == 0 {
		return nil
	}
	data := C.copyCertificateData(c.cert)
	defer cfRelease(data)
	return cfBytes(data)
}

func (c *darwinCertificateContext) AdditionalProperties() (map[string]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return services.AssembleProperties(c.info)
}

func (c *darwinCertificateContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfRelease(c.values)
	cfRelease(c.cert)
	c.values = 0
	c.cert = 0
	c.info = nil
	runtime.SetFinalizer(c, nil)
	return nil
}

// signingInfoFrom copies the fields of a kSecCSSigningInformation dictionary
func signingInfoFrom(info C.CFTypeRef) *entities.SigningInfo {
	si := &entities.SigningInfo{
		CDHash: cfBytes(cfDictValue(info, C.infoUnique())),
	}
	si.TeamID, _ = cfString(cfDictValue(info, C.infoTeamIdentifier()))
	si.Identifier, _ = cfString(cfDictValue(info, C.infoIdentifier()))

	if platform, ok := cfInt64(cfDictValue(info, C.infoPlatformIdentifier())); ok {
		id := int(platform)
		si.PlatformID = &id
	}

	plist := cfDictValue(info, C.infoPList())
	si.BundleID, _ = cfString(cfDictValueForKey(plist, "CFBundleIdentifier"))
	si.ShortVersion, _ = cfString(cfDictValueForKey(plist, "CFBundleShortVersionString"))
	si.BundleVersion, _ = cfString(cfDictValueForKey(plist, "CFBundleVersion"))

	return si
}
