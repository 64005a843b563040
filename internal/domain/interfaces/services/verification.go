// Package services defines domain service interfaces.
package services

import (
	"context"

	"github.com/ochairo/codesign/internal/domain/entities"
)

// VerificationService defines high-level signature verification operations
type VerificationService interface {
	// Verify verifies a file or process and snapshots the signature into a report.
	// The blocking provider call is abandoned (not interrupted) when ctx ends.
	Verify(ctx context.Context, target entities.VerificationTarget, requirement string) (*entities.SignatureReport, error)
	VerifyFile(ctx context.Context, path, requirement string) (*entities.SignatureReport, error)
	VerifyPID(ctx context.Context, pid int, requirement string) (*entities.SignatureReport, error)
}

// PolicyService defines trust policy evaluation
type PolicyService interface {
	// Evaluate decides whether a verified signature is allowed by the policy
	Evaluate(policy *entities.TrustPolicy, report *entities.SignatureReport) *entities.PolicyDecision

	// MatchRule reports whether a single rule matches, with the reasons it did not
	MatchRule(rule entities.PolicyRule, report *entities.SignatureReport) (bool, []string)
}
