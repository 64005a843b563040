package services

import (
	_ "crypto/sha256" // registers SHA-256 for go-digest
	"encoding/hex"
	"strconv"

	"github.com/opencontainers/go-digest"

	"github.com/ochairo/codesign/internal/domain/entities"
)

// LabelLookup resolves one OID-labelled attribute inside a certificate name
// section. It returns false when the section or label is absent, or when the
// value is not text.
type LabelLookup func(section entities.NameSection, oid string) (string, bool)

// ExtractName reads the four recognized attributes of a name section.
// Each attribute is looked up on its own so a failure leaves only that field nil.
func ExtractName(lookup LabelLookup, section entities.NameSection) entities.Name {
	if lookup == nil {
		return entities.Name{}
	}

	return entities.Name{
		CommonName:       lookupField(lookup, section, entities.OIDCommonName),
		Organization:     lookupField(lookup, section, entities.OIDOrganization),
		OrganizationUnit: lookupField(lookup, section, entities.OIDOrganizationUnit),
		Country:          lookupField(lookup, section, entities.OIDCountry),
	}
}

func lookupField(lookup LabelLookup, section entities.NameSection, oid string) *string {
	value, ok := lookup(section, oid)
	if !ok {
		return nil
	}
	return &value
}

// Thumbprint computes the SHA-256 digest of DER bytes as lowercase hex
// without separators.
func Thumbprint(der []byte) string {
	return digest.SHA256.FromBytes(der).Encoded()
}

// FormatSerial renders big-endian serial bytes as lowercase hex
func FormatSerial(serial []byte) string {
	return hex.EncodeToString(serial)
}

// FormatSerialLittleEndian renders serial bytes stored least significant byte
// first (the CRYPT_INTEGER_BLOB layout) as big-endian lowercase hex.
func FormatSerialLittleEndian(serial []byte) string {
	reversed := make([]byte, len(serial))
	for i, b := range serial {
		reversed[len(serial)-1-i] = b
	}
	return FormatSerial(reversed)
}

// AssembleProperties builds the additional properties map from captured
// signing information. It returns false when there is no code-directory hash,
// which means the signing information was never captured.
func AssembleProperties(info *entities.SigningInfo) (map[string]string, bool) {
	if info == nil || len(info.CDHash) == 0 {
		return nil, false
	}

	props := make(map[string]string)
	for k, v := range info.Extra {
		if v != "" {
			props[k] = v
		}
	}

	setIfPresent(props, entities.PropertyBundleID, info.BundleID)
	setIfPresent(props, entities.PropertyShortVersion, info.ShortVersion)
	setIfPresent(props, entities.PropertyBundleVersion, info.BundleVersion)
	setIfPresent(props, entities.PropertyTeamID, info.TeamID)
	setIfPresent(props, entities.PropertyIdentifier, info.Identifier)
	if info.PlatformID != nil {
		props[entities.PropertyPlatformID] = strconv.Itoa(*info.PlatformID)
	}
	props[entities.PropertyCDHash] = hex.EncodeToString(info.CDHash)

	return props, true
}

func setIfPresent(props map[string]string, key, value string) {
	if value != "" {
		props[key] = value
	}
}
