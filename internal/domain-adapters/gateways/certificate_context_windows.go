//go:build windows

package gateways

import (
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/ochairo/codesign/internal/domain/entities"
	"github.com/ochairo/codesign/internal/domain/services"
)

// windowsCertificateContext owns a duplicated CERT_CONTEXT of the leaf signer
type windowsCertificateContext struct {
	mu   sync.RWMutex
	cert *windows.CertContext
	info *entities.SigningInfo
}

func newWindowsCertificateContext(cert *windows.CertContext, info *entities.SigningInfo) *windowsCertificateContext {
	c := &windowsCertificateContext{cert: cert, info: info}
	runtime.SetFinalizer(c, (*windowsCertificateContext).Close)
	return c
}

func (c *windowsCertificateContext) SubjectName() entities.Name {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return services.ExtractName(c.lookup, entities.SectionSubject)
}

func (c *windowsCertificateContext) IssuerName() entities.Name {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return services.ExtractName(c.lookup, entities.SectionIssuer)
}

// lookup asks CertGetNameStringW for one attribute. Callers hold the read lock.
func (c *windowsCertificateContext) lookup(section entities.NameSection, oid string) (string, bool) {
	if c.cert == nil {
		return "", false
	}

	var flags uint32
	if section == entities.SectionIssuer {
		flags = windows.CERT_NAME_ISSUER_FLAG
	}

	// CERT_NAME_ATTR_TYPE takes the OID as an ANSI string
	oidz := append([]byte(oid), 0)
	typePara := unsafe.Pointer(&oidz[0])

	n := windows.CertGetNameString(c.cert, windows.CERT_NAME_ATTR_TYPE, flags, typePara, nil, 0)
	if n <= 1 {
		return "", false
	}
	buf := make([]uint16, n)
	n = windows.CertGetNameString(c.cert, windows.CERT_NAME_ATTR_TYPE, flags, typePara, &buf[0], n)
	if n <= 1 {
		return "", false
	}
	return windows.UTF16ToString(buf[:n]), true
}

// Serial renders CERT_INFO.SerialNumber, stored little-endian, as big-endian hex
func (c *windowsCertificateContext) Serial() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cert == nil || c.cert.CertInfo == nil {
		return "", false
	}
	head := (*certInfoHead)(unsafe.Pointer(c.cert.CertInfo))
	if head.SerialNumber.Size == 0 || head.SerialNumber.Data == nil {
		return "", false
	}
	serial := unsafe.Slice(head.SerialNumber.Data, head.SerialNumber.Size)
	return services.FormatSerialLittleEndian(serial), true
}

func (c *windowsCertificateContext) SHA256Thumbprint() string {
	der := c.Certificate()
	if der == nil {
		return ""
	}
	return services.Thumbprint(der)
}

func (c *windowsCertificateContext) Certificate() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cert == nil || c.cert.EncodedCert == nil {
		return nil
	}
	encoded := unsafe.Slice(c.cert.EncodedCert, c.cert.Length)
	der := make([]byte, len(encoded))
	copy(der, encoded)
	return der
}

func (c *windowsCertificateContext) AdditionalProperties() (map[string]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return services.AssembleProperties(c.info)
}

func (c *windowsCertificateContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	runtime.SetFinalizer(c, nil)
	if c.cert == nil {
		return nil
	}
	err := windows.CertFreeCertificateContext(c.cert)
	c.cert = nil
	c.info = nil
	return err
}
