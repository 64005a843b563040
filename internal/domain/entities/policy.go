package entities

// TrustPolicy is an allow-list of signers evaluated against a verified signature
type TrustPolicy struct {
	Name        string
	Version     int
	Requirement string // Requirement passed to the trust provider; empty means provider default
	Rules       []PolicyRule
}

// PolicyRule matches a signature when every constraint it sets matches
type PolicyRule struct {
	Name        string
	Subject     NameConstraint
	Issuer      NameConstraint
	Thumbprints []string          // Lowercase hex SHA-256 thumbprints
	TeamIDs     []string          // Matched against the team_id property
	Properties  map[string]string // Exact matches against additional properties
}

// NameConstraint lists expected name attributes; empty fields are not checked
type NameConstraint struct {
	CommonName       string
	Organization     string
	OrganizationUnit string
	Country          string
}

// IsEmpty reports whether the constraint checks nothing
func (c NameConstraint) IsEmpty() bool {
	return c.CommonName == "" && c.Organization == "" && c.OrganizationUnit == "" && c.Country == ""
}

// HasConstraints reports whether the rule sets at least one constraint
func (r PolicyRule) HasConstraints() bool {
	return !r.Subject.IsEmpty() || !r.Issuer.IsEmpty() ||
		len(r.Thumbprints) > 0 || len(r.TeamIDs) > 0 || len(r.Properties) > 0
}

// PolicyDecision is the outcome of evaluating a policy
type PolicyDecision struct {
	Policy      string   `json:"policy" yaml:"policy"`
	Allowed     bool     `json:"allowed" yaml:"allowed"`
	MatchedRule string   `json:"matched_rule,omitempty" yaml:"matched_rule,omitempty"`
	Reasons     []string `json:"reasons,omitempty" yaml:"reasons,omitempty"`
}
