// Package entities defines the core domain models of code signature verification.
package entities

import "strings"

// Distinguished-name attribute OIDs recognized on subject and issuer names.
const (
	OIDCommonName       = "2.5.4.3"
	OIDCountry          = "2.5.4.6"
	OIDOrganization     = "2.5.4.10"
	OIDOrganizationUnit = "2.5.4.11"
)

// Name represents the subject or issuer name of a certificate.
// A nil field means the distinguished name did not carry that attribute
// (or its value could not be decoded as text).
type Name struct {
	CommonName       *string `json:"common_name,omitempty" yaml:"common_name,omitempty"`             // 2.5.4.3
	Organization     *string `json:"organization,omitempty" yaml:"organization,omitempty"`           // 2.5.4.10
	OrganizationUnit *string `json:"organization_unit,omitempty" yaml:"organization_unit,omitempty"` // 2.5.4.11
	Country          *string `json:"country,omitempty" yaml:"country,omitempty"`                     // 2.5.4.6
}

// Equal reports whether both names carry the same four attributes.
func (n Name) Equal(other Name) bool {
	return sameValue(n.CommonName, other.CommonName) &&
		sameValue(n.Organization, other.Organization) &&
		sameValue(n.OrganizationUnit, other.OrganizationUnit) &&
		sameValue(n.Country, other.Country)
}

// IsEmpty reports whether no attribute is present.
func (n Name) IsEmpty() bool {
	return n.CommonName == nil && n.Organization == nil && n.OrganizationUnit == nil && n.Country == nil
}

// String renders the name as "CN=...,O=...,OU=...,C=..." omitting absent attributes.
func (n Name) String() string {
	parts := make([]string, 0, 4)
	for _, attr := range []struct {
		label string
		value *string
	}{
		{"CN", n.CommonName},
		{"O", n.Organization},
		{"OU", n.OrganizationUnit},
		{"C", n.Country},
	} {
		if attr.value != nil {
			parts = append(parts, attr.label+"="+escapeNameValue(*attr.value))
		}
	}
	return strings.Join(parts, ",")
}

// StringPtr returns a pointer to a copy of s (convenience for building names)
func StringPtr(s string) *string {
	return &s
}

// Value returns the dereferenced value of p, or "" if p is nil
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func sameValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func escapeNameValue(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `,`, `\,`, `+`, `\+`, `"`, `\"`, `<`, `\<`, `>`, `\>`, `;`, `\;`)
	return r.Replace(v)
}

// NameSection selects which distinguished name of a certificate to read
type NameSection int

const (
	// SectionSubject is the certificate subject (X.509 v1 subject name)
	SectionSubject NameSection = iota
	// SectionIssuer is the certificate issuer (X.509 v1 issuer name)
	SectionIssuer
)

// String returns the section name
func (s NameSection) String() string {
	if s == SectionIssuer {
		return "issuer"
	}
	return "subject"
}
