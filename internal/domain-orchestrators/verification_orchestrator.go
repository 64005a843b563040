// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ochairo/codesign/internal/domain/entities"
	"github.com/ochairo/codesign/internal/domain/interfaces"
	"github.com/ochairo/codesign/internal/domain/interfaces/gateways"
	"github.com/ochairo/codesign/internal/domain/interfaces/repositories"
	"github.com/ochairo/codesign/internal/domain/interfaces/services"
)

// ErrPolicyDenied is returned by Enforce when the policy rejects a verified signature
var ErrPolicyDenied = errors.New("signature rejected by policy")

// PolicyLoader parses a policy document from a path
type PolicyLoader interface {
	ParseFile(path string) (*entities.TrustPolicy, error)
}

// TargetDigester computes and checks content digests of file targets
type TargetDigester interface {
	Digest(path string) (string, error)
	Verify(path, expected string) error
}

// VerificationOrchestrator coordinates policy loading, signature verification
// and policy evaluation for one target
type VerificationOrchestrator struct {
	verification services.VerificationService
	policies     services.PolicyService
	loader       PolicyLoader
	repo         repositories.PolicyRepository
	signatures   gateways.PolicySignatureVerifier
	digester     TargetDigester
	logger       interfaces.Logger
}

// VerificationOrchestratorConfig holds the optional collaborators
type VerificationOrchestratorConfig struct {
	Loader     PolicyLoader
	Repository repositories.PolicyRepository
	Signatures gateways.PolicySignatureVerifier
	Digester   TargetDigester
	Logger     interfaces.Logger
}

// NewVerificationOrchestrator creates a new verification orchestrator
func NewVerificationOrchestrator(
	verification services.VerificationService,
	policies services.PolicyService,
	config VerificationOrchestratorConfig,
) *VerificationOrchestrator {
	return &VerificationOrchestrator{
		verification: verification,
		policies:     policies,
		loader:       config.Loader,
		repo:         config.Repository,
		signatures:   config.Signatures,
		digester:     config.Digester,
		logger:       interfaces.EnsureLogger(config.Logger),
	}
}

// VerificationRequest describes one verification run
type VerificationRequest struct {
	Target entities.VerificationTarget

	// Requirement overrides the policy requirement when set
	Requirement string

	// PolicyPath loads a policy file; PolicyName loads one from the repository
	PolicyPath string
	PolicyName string

	// SignaturePath is the detached policy signature, default PolicyPath + ".asc"
	SignaturePath string

	// RequireSignedPolicy refuses policies whose signature is missing or invalid
	RequireSignedPolicy bool

	// ExpectedDigest pins the target file content ("sha256:<hex>")
	ExpectedDigest string
}

// VerificationResult contains the outcome of a verification run
type VerificationResult struct {
	Report       *entities.SignatureReport
	Policy       *entities.TrustPolicy
	PolicySigner string
	Decision     *entities.PolicyDecision
	TargetDigest string
	Duration     time.Duration
}

// Allowed reports whether the signature verified and, when a policy was
// evaluated, the policy allowed it
func (r *VerificationResult) Allowed() bool {
	if r == nil || r.Report == nil {
		return false
	}
	return r.Decision == nil || r.Decision.Allowed
}

// Run verifies the target and evaluates the policy if one was requested.
// A failed verification is returned as an error; a policy denial is not.
func (o *VerificationOrchestrator) Run(ctx context.Context, req VerificationRequest) (*VerificationResult, error) {
	startTime := time.Now()
	result := &VerificationResult{}

	// Step 1: Load (and authenticate) the policy
	policy, signer, err := o.loadPolicy(ctx, req)
	if err != nil {
		return nil, err
	}
	result.Policy = policy
	result.PolicySigner = signer

	// Step 2: Pick the requirement
	requirement := req.Requirement
	if requirement == "" && policy != nil {
		requirement = policy.Requirement
	}

	// Step 3: Verify the code signature
	report, err := o.verification.Verify(ctx, req.Target, requirement)
	if err != nil {
		return nil, fmt.Errorf("verification failed: %w", err)
	}
	result.Report = report

	// Step 4: Pin or record the target content
	if err := o.checkDigest(req, result); err != nil {
		return nil, err
	}

	// Step 5: Evaluate the policy
	if policy != nil {
		result.Decision = o.policies.Evaluate(policy, report)
		o.logger.Info("policy evaluated",
			interfaces.F("policy", policy.Name),
			interfaces.F("allowed", result.Decision.Allowed),
			interfaces.F("rule", result.Decision.MatchedRule),
		)
	}

	result.Duration = time.Since(startTime)
	return result, nil
}

// Enforce runs the workflow and turns a policy denial into ErrPolicyDenied
func (o *VerificationOrchestrator) Enforce(ctx context.Context, req VerificationRequest) (*VerificationResult, error) {
	result, err := o.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	if !result.Allowed() {
		return result, fmt.Errorf("%w: %s", ErrPolicyDenied, strings.Join(result.Decision.Reasons, "; "))
	}
	return result, nil
}

func (o *VerificationOrchestrator) loadPolicy(ctx context.Context, req VerificationRequest) (*entities.TrustPolicy, string, error) {
	switch {
	case req.PolicyPath != "" && req.PolicyName != "":
		return nil, "", errors.New("policy path and policy name are mutually exclusive")

	case req.PolicyName != "":
		if req.RequireSignedPolicy {
			return nil, "", errors.New("signed policies must be loaded by path")
		}
		if o.repo == nil {
			return nil, "", errors.New("no policy repository configured")
		}
		policy, err := o.repo.GetPolicy(ctx, req.PolicyName)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load policy: %w", err)
		}
		return policy, "", nil

	case req.PolicyPath != "":
		var signer string
		if req.RequireSignedPolicy || req.SignaturePath != "" {
			if o.signatures == nil {
				return nil, "", errors.New("policy signature requested but no signature verifier configured")
			}
			sigPath := req.SignaturePath
			if sigPath == "" {
				sigPath = req.PolicyPath + ".asc"
			}
			var err error
			signer, err = o.signatures.VerifyPolicySignature(req.PolicyPath, sigPath)
			if err != nil {
				return nil, "", err
			}
		}

		if o.loader == nil {
			return nil, "", errors.New("no policy loader configured")
		}
		policy, err := o.loader.ParseFile(req.PolicyPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load policy: %w", err)
		}
		return policy, signer, nil

	default:
		return nil, "", nil
	}
}

func (o *VerificationOrchestrator) checkDigest(req VerificationRequest, result *VerificationResult) error {
	if o.digester == nil || req.Target.IsProcess() {
		if req.ExpectedDigest != "" {
			return errors.New("digest pinning needs a file target and a digester")
		}
		return nil
	}

	if req.ExpectedDigest != "" {
		if err := o.digester.Verify(result.Report.Target, req.ExpectedDigest); err != nil {
			return fmt.Errorf("target content check failed: %w", err)
		}
	}

	digest, err := o.digester.Digest(result.Report.Target)
	if err != nil {
		// Bundles are directories and have no single content digest
		o.logger.Debug("target digest unavailable",
			interfaces.F("target", result.Report.Target),
			interfaces.F("error", err),
		)
		return nil
	}
	result.TargetDigest = digest
	return nil
}

// Summary renders a human-readable summary of a verification result
func (o *VerificationOrchestrator) Summary(result *VerificationResult) string {
	if result == nil || result.Report == nil {
		return "🚫 NOT VERIFIED"
	}

	var b strings.Builder
	report := result.Report
	if result.Allowed() {
		fmt.Fprintf(&b, "✅ VERIFIED: %s\n", report.Target)
	} else {
		fmt.Fprintf(&b, "🚫 DENIED: %s\n", report.Target)
	}

	fmt.Fprintf(&b, "   Subject: %s\n", report.Subject.String())
	fmt.Fprintf(&b, "   Issuer: %s\n", report.Issuer.String())
	fmt.Fprintf(&b, "   SHA-256: %s\n", report.Thumbprint)
	if report.Serial != "" {
		fmt.Fprintf(&b, "   Serial: %s\n", report.Serial)
	}
	if result.TargetDigest != "" {
		fmt.Fprintf(&b, "   Content: %s\n", result.TargetDigest)
	}

	if result.Decision != nil {
		if result.Decision.Allowed {
			fmt.Fprintf(&b, "   Policy: %s (rule %s)\n", result.Decision.Policy, result.Decision.MatchedRule)
		} else {
			fmt.Fprintf(&b, "   Policy: %s\n", result.Decision.Policy)
			for _, reason := range result.Decision.Reasons {
				fmt.Fprintf(&b, "     - %s\n", reason)
			}
		}
		if result.PolicySigner != "" {
			fmt.Fprintf(&b, "   Policy signer: %s\n", result.PolicySigner)
		}
	}

	fmt.Fprintf(&b, "   Duration: %v", result.Duration)
	return b.String()
}
