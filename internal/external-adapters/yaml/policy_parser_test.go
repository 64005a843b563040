package yaml

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const applePolicy = `version: 1
requirement: "anchor apple generic"
rules:
  - name: apple-platform
    subject:
      organization: Apple Inc.
    issuer:
      organization_unit: Apple Certification Authority
  - name: pinned
    thumbprints:
      - "AB:CD:EF:01:23:45:67:89:AB:CD:EF:01:23:45:67:89:AB:CD:EF:01:23:45:67:89:AB:CD:EF:01:23:45:67:89"
    team_ids: [ABCDE12345]
    properties:
      platform_id: "15"
`

func TestPolicyParser_Parse(t *testing.T) {
	policy, err := NewPolicyParser().Parse([]byte(applePolicy))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if policy.Requirement != "anchor apple generic" {
		t.Errorf("Requirement = %q", policy.Requirement)
	}
	if len(policy.Rules) != 2 {
		t.Fatalf("len(Rules) = %d, want 2", len(policy.Rules))
	}

	first := policy.Rules[0]
	if first.Subject.Organization != "Apple Inc." {
		t.Errorf("subject organization = %q", first.Subject.Organization)
	}
	if first.Issuer.OrganizationUnit != "Apple Certification Authority" {
		t.Errorf("issuer organization unit = %q", first.Issuer.OrganizationUnit)
	}

	pinned := policy.Rules[1]
	want := strings.Repeat("abcdef0123456789", 4)
	if len(pinned.Thumbprints) != 1 || pinned.Thumbprints[0] != want {
		t.Errorf("Thumbprints = %v, want [%s]", pinned.Thumbprints, want)
	}
	if pinned.Properties["platform_id"] != "15" {
		t.Errorf("Properties = %v", pinned.Properties)
	}
}

func TestPolicyParser_ParseInvalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "malformed",
			yaml:    "version: [",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "wrong version",
			yaml:    "version: 2\nrules:\n  - name: a\n    subject: {organization: x}\n",
			wantErr: "unsupported policy version 2",
		},
		{
			name:    "missing version",
			yaml:    "rules:\n  - name: a\n    subject: {organization: x}\n",
			wantErr: "unsupported policy version 0",
		},
		{
			name:    "no rules",
			yaml:    "version: 1\n",
			wantErr: "at least one rule",
		},
		{
			name:    "unnamed rule",
			yaml:    "version: 1\nrules:\n  - subject: {organization: x}\n",
			wantErr: "rule must have a name",
		},
		{
			name:    "rule without constraints",
			yaml:    "version: 1\nrules:\n  - name: empty\n",
			wantErr: "sets no constraints",
		},
		{
			name:    "short thumbprint",
			yaml:    "version: 1\nrules:\n  - name: a\n    thumbprints: [abcd]\n",
			wantErr: "want 32 bytes, got 2",
		},
		{
			name:    "odd length thumbprint",
			yaml:    "version: 1\nrules:\n  - name: a\n    thumbprints: [abc]\n",
			wantErr: "odd length hex string",
		},
		{
			name:    "misspelled subject field",
			yaml:    "version: 1\nrules:\n  - name: a\n    subject: {organization: Example Corp, comon_name: Example Signer}\n",
			wantErr: "field comon_name not found",
		},
		{
			name:    "misspelled rule field",
			yaml:    "version: 1\nrules:\n  - name: a\n    subject: {organization: Example Corp}\n    team_idz: [ABCDE12345]\n",
			wantErr: "field team_idz not found",
		},
		{
			name:    "misspelled top-level field",
			yaml:    "version: 1\nrequirment: anchor apple\nrules:\n  - name: a\n    subject: {organization: x}\n",
			wantErr: "field requirment not found",
		},
		{
			name:    "empty document",
			yaml:    "",
			wantErr: "empty document",
		},
		{
			name:    "duplicate rule",
			yaml:    "version: 1\nrules:\n  - name: a\n    subject: {organization: x}\n  - name: a\n    subject: {organization: y}\n",
			wantErr: "duplicate rule name",
		},
	}

	parser := NewPolicyParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() should return error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestPolicyParser_ParseFileNamesPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apple.yml")
	if err := os.WriteFile(path, []byte(applePolicy), 0600); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	policy, err := NewPolicyParser().ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if policy.Name != "apple" {
		t.Errorf("Name = %q, want apple", policy.Name)
	}
}

func TestNormalizeThumbprint(t *testing.T) {
	hex64 := strings.Repeat("0a", 32)
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "lowercase", raw: hex64, want: hex64},
		{name: "uppercase", raw: strings.ToUpper(hex64), want: hex64},
		{name: "colon separated", raw: strings.TrimSuffix(strings.Repeat("0A:", 32), ":"), want: hex64},
		{name: "space separated", raw: strings.TrimSpace(strings.Repeat("0a ", 32)), want: hex64},
		{name: "too long", raw: hex64 + "00", wantErr: true},
		{name: "non hex", raw: strings.Repeat("zz", 32), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeThumbprint(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeThumbprint() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeThumbprint() = %q, want %q", got, tt.want)
			}
		})
	}
}
