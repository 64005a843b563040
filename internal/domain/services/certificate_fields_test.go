package services

import (
	"strings"
	"testing"

	"github.com/ochairo/codesign/internal/domain/entities"
)

// fakeCertificate answers label lookups from a fixed table per section
type fakeCertificate map[entities.NameSection]map[string]string

func (f fakeCertificate) lookup(section entities.NameSection, oid string) (string, bool) {
	v, ok := f[section][oid]
	return v, ok
}

func TestExtractName(t *testing.T) {
	cert := fakeCertificate{
		entities.SectionSubject: {
			entities.OIDCommonName:   "Software Signing",
			entities.OIDOrganization: "Apple Inc.",
			entities.OIDCountry:      "US",
			"1.2.840.113549.1.9.1":   "ignored@example.com",
		},
		entities.SectionIssuer: {
			entities.OIDOrganizationUnit: "Apple Certification Authority",
		},
	}

	subject := ExtractName(cert.lookup, entities.SectionSubject)
	if got := entities.Value(subject.CommonName); got != "Software Signing" {
		t.Errorf("subject CN = %q", got)
	}
	if got := entities.Value(subject.Organization); got != "Apple Inc." {
		t.Errorf("subject O = %q", got)
	}
	if subject.OrganizationUnit != nil {
		t.Errorf("subject OU = %q, want nil", *subject.OrganizationUnit)
	}
	if got := entities.Value(subject.Country); got != "US" {
		t.Errorf("subject C = %q", got)
	}

	issuer := ExtractName(cert.lookup, entities.SectionIssuer)
	want := entities.Name{OrganizationUnit: entities.StringPtr("Apple Certification Authority")}
	if !issuer.Equal(want) {
		t.Errorf("issuer = %s, want %s", issuer, want)
	}
}

// TestExtractNameIndependentLookups tests that one failing lookup leaves the others intact
func TestExtractNameIndependentLookups(t *testing.T) {
	calls := 0
	lookup := func(_ entities.NameSection, oid string) (string, bool) {
		calls++
		if oid == entities.OIDOrganization {
			return "", false
		}
		return "value-" + oid, true
	}

	name := ExtractName(lookup, entities.SectionSubject)
	if calls != 4 {
		t.Errorf("lookups = %d, want 4", calls)
	}
	if name.Organization != nil {
		t.Error("Organization should be nil when its lookup fails")
	}
	if name.CommonName == nil || name.OrganizationUnit == nil || name.Country == nil {
		t.Errorf("other attributes should be present, got %s", name)
	}
}

func TestExtractNameNilLookup(t *testing.T) {
	if name := ExtractName(nil, entities.SectionSubject); !name.IsEmpty() {
		t.Errorf("ExtractName(nil) = %s, want empty", name)
	}
}

func TestThumbprint(t *testing.T) {
	tests := []struct {
		name string
		der  []byte
		want string // Known SHA256 hash
	}{
		{
			name: "empty",
			der:  []byte{},
			want: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name: "abc",
			der:  []byte("abc"),
			want: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Thumbprint(tt.der)
			if got != tt.want {
				t.Errorf("Thumbprint() = %s, want %s", got, tt.want)
			}
			if again := Thumbprint(tt.der); again != got {
				t.Errorf("Thumbprint() not deterministic: %s vs %s", got, again)
			}
			if strings.ToLower(got) != got || strings.Contains(got, ":") {
				t.Errorf("Thumbprint() = %s, want lowercase hex without separators", got)
			}
		})
	}
}

func TestFormatSerial(t *testing.T) {
	serial := []byte{0x01, 0x0a, 0xff}

	if got := FormatSerial(serial); got != "010aff" {
		t.Errorf("FormatSerial() = %s, want 010aff", got)
	}
	if got := FormatSerialLittleEndian(serial); got != "ff0a01" {
		t.Errorf("FormatSerialLittleEndian() = %s, want ff0a01", got)
	}
	if got := FormatSerialLittleEndian(nil); got != "" {
		t.Errorf("FormatSerialLittleEndian(nil) = %q, want empty", got)
	}
}

func TestAssembleProperties(t *testing.T) {
	platform := 15

	tests := []struct {
		name   string
		info   *entities.SigningInfo
		wantOK bool
		want   map[string]string
	}{
		{
			name:   "nil info",
			info:   nil,
			wantOK: false,
		},
		{
			name:   "no cd hash",
			info:   &entities.SigningInfo{TeamID: "ABCDE12345"},
			wantOK: false,
		},
		{
			name: "darwin platform binary",
			info: &entities.SigningInfo{
				CDHash:     []byte{0xDE, 0xAD, 0xBE, 0xEF},
				Identifier: "com.apple.ping",
				PlatformID: &platform,
			},
			wantOK: true,
			want: map[string]string{
				entities.PropertyCDHash:     "deadbeef",
				entities.PropertyIdentifier: "com.apple.ping",
				entities.PropertyPlatformID: "15",
			},
		},
		{
			name: "bundle with extras",
			info: &entities.SigningInfo{
				CDHash:        []byte{0x01},
				TeamID:        "ABCDE12345",
				BundleID:      "com.example.app",
				ShortVersion:  "1.2",
				BundleVersion: "42",
				Extra: map[string]string{
					entities.PropertyCompanyName: "Example Corp",
					entities.PropertyProductName: "",
				},
			},
			wantOK: true,
			want: map[string]string{
				entities.PropertyCDHash:        "01",
				entities.PropertyTeamID:        "ABCDE12345",
				entities.PropertyBundleID:      "com.example.app",
				entities.PropertyShortVersion:  "1.2",
				entities.PropertyBundleVersion: "42",
				entities.PropertyCompanyName:   "Example Corp",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AssembleProperties(tt.info)
			if ok != tt.wantOK {
				t.Fatalf("AssembleProperties() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if len(got) != len(tt.want) {
				t.Errorf("AssembleProperties() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("property %s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}
