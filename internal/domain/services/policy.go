package services

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ochairo/codesign/internal/domain/entities"
	"github.com/ochairo/codesign/internal/domain/interfaces/services"
)

// policyService implements PolicyService with pure business logic
type policyService struct{}

// NewPolicyService creates a new policy service
func NewPolicyService() services.PolicyService {
	return &policyService{}
}

// Evaluate returns the first matching rule, or a denial listing why each rule failed
// Pure business logic - no I/O
func (s *policyService) Evaluate(policy *entities.TrustPolicy, report *entities.SignatureReport) *entities.PolicyDecision {
	decision := &entities.PolicyDecision{}
	if policy == nil {
		decision.Reasons = []string{"no policy"}
		return decision
	}
	decision.Policy = policy.Name

	if report == nil {
		decision.Reasons = []string{"no verified signature"}
		return decision
	}

	for _, rule := range policy.Rules {
		ok, reasons := s.MatchRule(rule, report)
		if ok {
			decision.Allowed = true
			decision.MatchedRule = rule.Name
			decision.Reasons = nil
			return decision
		}
		decision.Reasons = append(decision.Reasons, fmt.Sprintf("rule %q: %s", rule.Name, strings.Join(reasons, "; ")))
	}

	if len(policy.Rules) == 0 {
		decision.Reasons = []string{"policy has no rules"}
	}
	return decision
}

// MatchRule checks every constraint the rule sets
func (s *policyService) MatchRule(rule entities.PolicyRule, report *entities.SignatureReport) (bool, []string) {
	if !rule.HasConstraints() {
		return false, []string{"rule sets no constraints"}
	}

	var reasons []string
	reasons = append(reasons, matchName("subject", rule.Subject, report.Subject)...)
	reasons = append(reasons, matchName("issuer", rule.Issuer, report.Issuer)...)

	if len(rule.Thumbprints) > 0 && !containsFold(rule.Thumbprints, report.Thumbprint) {
		reasons = append(reasons, fmt.Sprintf("thumbprint %s not allowed", report.Thumbprint))
	}

	if len(rule.TeamIDs) > 0 {
		teamID, ok := report.Properties[entities.PropertyTeamID]
		if !ok {
			reasons = append(reasons, "team_id unavailable")
		} else if !slices.Contains(rule.TeamIDs, teamID) {
			reasons = append(reasons, fmt.Sprintf("team_id %s not allowed", teamID))
		}
	}

	for _, key := range slices.Sorted(maps.Keys(rule.Properties)) {
		want := rule.Properties[key]
		got, ok := report.Properties[key]
		switch {
		case !ok:
			reasons = append(reasons, fmt.Sprintf("property %s unavailable", key))
		case got != want:
			reasons = append(reasons, fmt.Sprintf("property %s = %q, want %q", key, got, want))
		}
	}

	return len(reasons) == 0, reasons
}

func matchName(section string, want entities.NameConstraint, got entities.Name) []string {
	var reasons []string
	check := func(attr, expected string, actual *string) {
		if expected == "" {
			return
		}
		if actual == nil {
			reasons = append(reasons, fmt.Sprintf("%s %s absent", section, attr))
			return
		}
		if *actual != expected {
			reasons = append(reasons, fmt.Sprintf("%s %s = %q, want %q", section, attr, *actual, expected))
		}
	}

	check("common_name", want.CommonName, got.CommonName)
	check("organization", want.Organization, got.Organization)
	check("organization_unit", want.OrganizationUnit, got.OrganizationUnit)
	check("country", want.Country, got.Country)
	return reasons
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
