// Package yaml provides YAML-based trust policy parsing and repository implementations.
package yaml

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/codesign/internal/domain/entities"
)

// SupportedPolicyVersion is the only policy document version understood
const SupportedPolicyVersion = 1

// yamlPolicy represents the raw YAML structure
type yamlPolicy struct {
	Name        string     `yaml:"name"`
	Version     int        `yaml:"version"`
	Requirement string     `yaml:"requirement"`
	Rules       []yamlRule `yaml:"rules"`
}

type yamlRule struct {
	Name        string            `yaml:"name"`
	Subject     yamlName          `yaml:"subject"`
	Issuer      yamlName          `yaml:"issuer"`
	Thumbprints []string          `yaml:"thumbprints"`
	TeamIDs     []string          `yaml:"team_ids"`
	Properties  map[string]string `yaml:"properties"`
}

type yamlName struct {
	CommonName       string `yaml:"common_name"`
	Organization     string `yaml:"organization"`
	OrganizationUnit string `yaml:"organization_unit"`
	Country          string `yaml:"country"`
}

// PolicyParser parses YAML trust policy files
type PolicyParser struct{}

// NewPolicyParser creates a new YAML parser
func NewPolicyParser() *PolicyParser {
	return &PolicyParser{}
}

// ParseFile parses a YAML policy file into a TrustPolicy entity.
// A policy without a name is named after the file.
func (p *PolicyParser) ParseFile(filePath string) (*entities.TrustPolicy, error) {
	//nolint:gosec // G304: filePath is a policy path chosen by the operator
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	policy, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}

	if policy.Name == "" {
		policy.Name = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	return policy, nil
}

// Parse parses YAML bytes into a TrustPolicy entity
func (p *PolicyParser) Parse(data []byte) (*entities.TrustPolicy, error) {
	var doc yamlPolicy
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("failed to parse YAML: empty document")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if doc.Version != SupportedPolicyVersion {
		return nil, fmt.Errorf("unsupported policy version %d (want %d)", doc.Version, SupportedPolicyVersion)
	}
	if len(doc.Rules) == 0 {
		return nil, errors.New("policy must have at least one rule")
	}

	policy := &entities.TrustPolicy{
		Name:        doc.Name,
		Version:     doc.Version,
		Requirement: strings.TrimSpace(doc.Requirement),
		Rules:       make([]entities.PolicyRule, 0, len(doc.Rules)),
	}

	seen := make(map[string]bool, len(doc.Rules))
	for i, yr := range doc.Rules {
		rule, err := convertRule(yr)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		if seen[rule.Name] {
			return nil, fmt.Errorf("rule %d: duplicate rule name %q", i+1, rule.Name)
		}
		seen[rule.Name] = true
		policy.Rules = append(policy.Rules, rule)
	}

	return policy, nil
}

func convertRule(yr yamlRule) (entities.PolicyRule, error) {
	if yr.Name == "" {
		return entities.PolicyRule{}, errors.New("rule must have a name")
	}

	thumbprints := make([]string, 0, len(yr.Thumbprints))
	for _, raw := range yr.Thumbprints {
		tp, err := NormalizeThumbprint(raw)
		if err != nil {
			return entities.PolicyRule{}, fmt.Errorf("rule %q: %w", yr.Name, err)
		}
		thumbprints = append(thumbprints, tp)
	}

	rule := entities.PolicyRule{
		Name:        yr.Name,
		Subject:     convertName(yr.Subject),
		Issuer:      convertName(yr.Issuer),
		Thumbprints: thumbprints,
		TeamIDs:     yr.TeamIDs,
		Properties:  yr.Properties,
	}
	if !rule.HasConstraints() {
		return entities.PolicyRule{}, fmt.Errorf("rule %q sets no constraints", yr.Name)
	}
	return rule, nil
}

func convertName(yn yamlName) entities.NameConstraint {
	return entities.NameConstraint{
		CommonName:       yn.CommonName,
		Organization:     yn.Organization,
		OrganizationUnit: yn.OrganizationUnit,
		Country:          yn.Country,
	}
}

// NormalizeThumbprint strips ':' and space separators and lowercases a
// SHA-256 thumbprint, rejecting anything that does not decode to 32 bytes.
func NormalizeThumbprint(raw string) (string, error) {
	tp := strings.ToLower(strings.NewReplacer(":", "", " ", "").Replace(strings.TrimSpace(raw)))
	sum, err := hex.DecodeString(tp)
	if err != nil {
		return "", fmt.Errorf("thumbprint %q: %w", raw, err)
	}
	if len(sum) != 32 {
		return "", fmt.Errorf("thumbprint %q: want 32 bytes, got %d", raw, len(sum))
	}
	return tp, nil
}
