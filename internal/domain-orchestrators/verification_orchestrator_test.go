package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ochairo/codesign/internal/domain/entities"
	"github.com/ochairo/codesign/internal/domain/services"
)

// Mock implementations for testing
type mockVerificationService struct {
	report      *entities.SignatureReport
	err         error
	requirement string
	calls       int
}

func (m *mockVerificationService) Verify(_ context.Context, target entities.VerificationTarget, requirement string) (*entities.SignatureReport, error) {
	m.calls++
	m.requirement = requirement
	if m.err != nil {
		return nil, m.err
	}
	report := *m.report
	if report.Target == "" {
		report.Target = target.Path
	}
	return &report, nil
}

func (m *mockVerificationService) VerifyFile(ctx context.Context, path, requirement string) (*entities.SignatureReport, error) {
	return m.Verify(ctx, entities.VerificationTarget{Path: path}, requirement)
}

func (m *mockVerificationService) VerifyPID(ctx context.Context, pid int, requirement string) (*entities.SignatureReport, error) {
	return m.Verify(ctx, entities.VerificationTarget{PID: pid}, requirement)
}

type mockPolicyLoader struct {
	policy *entities.TrustPolicy
	err    error
	paths  []string
}

func (m *mockPolicyLoader) ParseFile(path string) (*entities.TrustPolicy, error) {
	m.paths = append(m.paths, path)
	if m.err != nil {
		return nil, m.err
	}
	return m.policy, nil
}

type mockPolicyRepository struct {
	policy *entities.TrustPolicy
	err    error
}

func (m *mockPolicyRepository) GetPolicy(_ context.Context, _ string) (*entities.TrustPolicy, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.policy, nil
}

func (m *mockPolicyRepository) ListPolicies(_ context.Context) ([]*entities.TrustPolicy, error) {
	return nil, errors.New("not implemented")
}

type mockSignatureVerifier struct {
	signer  string
	err     error
	sigPath string
}

func (m *mockSignatureVerifier) ImportKeyFromFile(_ string) error {
	return nil
}

func (m *mockSignatureVerifier) VerifyPolicySignature(_, sigPath string) (string, error) {
	m.sigPath = sigPath
	if m.err != nil {
		return "", m.err
	}
	return m.signer, nil
}

type mockDigester struct {
	digest    string
	err       error
	verifyErr error
}

func (m *mockDigester) Digest(_ string) (string, error) {
	return m.digest, m.err
}

func (m *mockDigester) Verify(_, _ string) error {
	return m.verifyErr
}

func appleReport() *entities.SignatureReport {
	return &entities.SignatureReport{
		Subject: entities.Name{
			CommonName:   entities.StringPtr("Software Signing"),
			Organization: entities.StringPtr("Apple Inc."),
		},
		Issuer: entities.Name{
			OrganizationUnit: entities.StringPtr("Apple Certification Authority"),
		},
		Thumbprint: strings.Repeat("ab", 32),
	}
}

func applePolicy() *entities.TrustPolicy {
	return &entities.TrustPolicy{
		Name:        "apple",
		Version:     1,
		Requirement: "anchor apple generic",
		Rules: []entities.PolicyRule{
			{Name: "apple", Subject: entities.NameConstraint{Organization: "Apple Inc."}},
		},
	}
}

func TestVerificationOrchestrator_RunWithoutPolicy(t *testing.T) {
	verifier := &mockVerificationService{report: appleReport()}
	orch := NewVerificationOrchestrator(verifier, services.NewPolicyService(), VerificationOrchestratorConfig{})

	result, err := orch.Run(context.Background(), VerificationRequest{
		Target:      entities.VerificationTarget{Path: "/sbin/ping"},
		Requirement: "anchor apple",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if verifier.requirement != "anchor apple" {
		t.Errorf("requirement = %q, want explicit requirement", verifier.requirement)
	}
	if result.Decision != nil {
		t.Error("Decision should be nil without a policy")
	}
	if !result.Allowed() {
		t.Error("Allowed() = false for a verified signature without policy")
	}
}

func TestVerificationOrchestrator_RunWithPolicy(t *testing.T) {
	tests := []struct {
		name        string
		report      *entities.SignatureReport
		requirement string
		wantReq     string
		wantAllowed bool
	}{
		{
			name:        "policy requirement used",
			report:      appleReport(),
			wantReq:     "anchor apple generic",
			wantAllowed: true,
		},
		{
			name:        "explicit requirement wins",
			report:      appleReport(),
			requirement: "anchor trusted",
			wantReq:     "anchor trusted",
			wantAllowed: true,
		},
		{
			name: "foreign signer denied",
			report: &entities.SignatureReport{
				Subject:    entities.Name{Organization: entities.StringPtr("Example Corp")},
				Thumbprint: strings.Repeat("cd", 32),
			},
			wantReq:     "anchor apple generic",
			wantAllowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &mockVerificationService{report: tt.report}
			loader := &mockPolicyLoader{policy: applePolicy()}
			orch := NewVerificationOrchestrator(verifier, services.NewPolicyService(), VerificationOrchestratorConfig{
				Loader: loader,
			})

			result, err := orch.Run(context.Background(), VerificationRequest{
				Target:      entities.VerificationTarget{Path: "/bin/tool"},
				Requirement: tt.requirement,
				PolicyPath:  "apple.yml",
			})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if verifier.requirement != tt.wantReq {
				t.Errorf("requirement = %q, want %q", verifier.requirement, tt.wantReq)
			}
			if result.Allowed() != tt.wantAllowed {
				t.Errorf("Allowed() = %v, want %v (reasons %v)", result.Allowed(), tt.wantAllowed, result.Decision.Reasons)
			}
		})
	}
}

func TestVerificationOrchestrator_Enforce(t *testing.T) {
	verifier := &mockVerificationService{report: &entities.SignatureReport{
		Subject: entities.Name{Organization: entities.StringPtr("Example Corp")},
	}}
	orch := NewVerificationOrchestrator(verifier, services.NewPolicyService(), VerificationOrchestratorConfig{
		Loader: &mockPolicyLoader{policy: applePolicy()},
	})

	result, err := orch.Enforce(context.Background(), VerificationRequest{
		Target:     entities.VerificationTarget{Path: "/bin/tool"},
		PolicyPath: "apple.yml",
	})
	if !errors.Is(err, ErrPolicyDenied) {
		t.Fatalf("Enforce() error = %v, want ErrPolicyDenied", err)
	}
	if result == nil || result.Decision == nil {
		t.Fatal("Enforce() should return the denied result")
	}
}

func TestVerificationOrchestrator_VerificationError(t *testing.T) {
	verifier := &mockVerificationService{err: entities.NewError(entities.KindUnsigned, nil)}
	orch := NewVerificationOrchestrator(verifier, services.NewPolicyService(), VerificationOrchestratorConfig{})

	_, err := orch.Run(context.Background(), VerificationRequest{Target: entities.VerificationTarget{Path: "/bin/tool"}})
	if !errors.Is(err, entities.ErrUnsigned) {
		t.Errorf("Run() error = %v, want wrapped Unsigned", err)
	}
}

func TestVerificationOrchestrator_SignedPolicy(t *testing.T) {
	t.Run("valid signature", func(t *testing.T) {
		sigs := &mockSignatureVerifier{signer: "ABCDEF"}
		orch := NewVerificationOrchestrator(&mockVerificationService{report: appleReport()}, services.NewPolicyService(), VerificationOrchestratorConfig{
			Loader:     &mockPolicyLoader{policy: applePolicy()},
			Signatures: sigs,
		})

		result, err := orch.Run(context.Background(), VerificationRequest{
			Target:              entities.VerificationTarget{Path: "/bin/tool"},
			PolicyPath:          "apple.yml",
			RequireSignedPolicy: true,
		})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if sigs.sigPath != "apple.yml.asc" {
			t.Errorf("signature path = %q, want apple.yml.asc", sigs.sigPath)
		}
		if result.PolicySigner != "ABCDEF" {
			t.Errorf("PolicySigner = %q", result.PolicySigner)
		}
	})

	t.Run("invalid signature stops before verification", func(t *testing.T) {
		verifier := &mockVerificationService{report: appleReport()}
		loader := &mockPolicyLoader{policy: applePolicy()}
		orch := NewVerificationOrchestrator(verifier, services.NewPolicyService(), VerificationOrchestratorConfig{
			Loader:     loader,
			Signatures: &mockSignatureVerifier{err: errors.New("bad signature")},
		})

		_, err := orch.Run(context.Background(), VerificationRequest{
			Target:              entities.VerificationTarget{Path: "/bin/tool"},
			PolicyPath:          "apple.yml",
			RequireSignedPolicy: true,
		})
		if err == nil {
			t.Fatal("Run() should fail on a bad policy signature")
		}
		if verifier.calls != 0 || len(loader.paths) != 0 {
			t.Error("policy was used despite a bad signature")
		}
	})

	t.Run("no verifier configured", func(t *testing.T) {
		orch := NewVerificationOrchestrator(&mockVerificationService{report: appleReport()}, services.NewPolicyService(), VerificationOrchestratorConfig{
			Loader: &mockPolicyLoader{policy: applePolicy()},
		})
		_, err := orch.Run(context.Background(), VerificationRequest{
			Target:              entities.VerificationTarget{Path: "/bin/tool"},
			PolicyPath:          "apple.yml",
			RequireSignedPolicy: true,
		})
		if err == nil {
			t.Error("Run() should refuse a signed-policy request without a verifier")
		}
	})
}

func TestVerificationOrchestrator_PolicyByName(t *testing.T) {
	orch := NewVerificationOrchestrator(&mockVerificationService{report: appleReport()}, services.NewPolicyService(), VerificationOrchestratorConfig{
		Repository: &mockPolicyRepository{policy: applePolicy()},
	})

	result, err := orch.Run(context.Background(), VerificationRequest{
		Target:     entities.VerificationTarget{Path: "/bin/tool"},
		PolicyName: "apple",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Decision == nil || !result.Decision.Allowed {
		t.Errorf("Decision = %+v, want allowed", result.Decision)
	}

	_, err = orch.Run(context.Background(), VerificationRequest{
		Target:     entities.VerificationTarget{Path: "/bin/tool"},
		PolicyName: "apple",
		PolicyPath: "apple.yml",
	})
	if err == nil {
		t.Error("Run() should reject both policy name and path")
	}
}

func TestVerificationOrchestrator_Digest(t *testing.T) {
	t.Run("recorded", func(t *testing.T) {
		orch := NewVerificationOrchestrator(&mockVerificationService{report: appleReport()}, services.NewPolicyService(), VerificationOrchestratorConfig{
			Digester: &mockDigester{digest: "sha256:abc"},
		})
		result, err := orch.Run(context.Background(), VerificationRequest{Target: entities.VerificationTarget{Path: "/bin/tool"}})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.TargetDigest != "sha256:abc" {
			t.Errorf("TargetDigest = %q", result.TargetDigest)
		}
	})

	t.Run("pinned mismatch", func(t *testing.T) {
		orch := NewVerificationOrchestrator(&mockVerificationService{report: appleReport()}, services.NewPolicyService(), VerificationOrchestratorConfig{
			Digester: &mockDigester{verifyErr: errors.New("digest mismatch")},
		})
		_, err := orch.Run(context.Background(), VerificationRequest{
			Target:         entities.VerificationTarget{Path: "/bin/tool"},
			ExpectedDigest: "sha256:" + strings.Repeat("0", 64),
		})
		if err == nil || !strings.Contains(err.Error(), "target content check failed") {
			t.Errorf("Run() error = %v, want content check failure", err)
		}
	})

	t.Run("process target skipped", func(t *testing.T) {
		orch := NewVerificationOrchestrator(&mockVerificationService{report: appleReport()}, services.NewPolicyService(), VerificationOrchestratorConfig{
			Digester: &mockDigester{digest: "sha256:abc"},
		})
		result, err := orch.Run(context.Background(), VerificationRequest{Target: entities.VerificationTarget{PID: 42}})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.TargetDigest != "" {
			t.Errorf("TargetDigest = %q, want empty for a process", result.TargetDigest)
		}
	})
}

func TestVerificationOrchestrator_Summary(t *testing.T) {
	orch := NewVerificationOrchestrator(&mockVerificationService{report: appleReport()}, services.NewPolicyService(), VerificationOrchestratorConfig{
		Loader: &mockPolicyLoader{policy: applePolicy()},
	})
	result, err := orch.Run(context.Background(), VerificationRequest{
		Target:     entities.VerificationTarget{Path: "/sbin/ping"},
		PolicyPath: "apple.yml",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	summary := orch.Summary(result)
	for _, want := range []string{"VERIFIED: /sbin/ping", "O=Apple Inc.", "Policy: apple (rule apple)"} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary() missing %q:\n%s", want, summary)
		}
	}

	if got := orch.Summary(nil); !strings.Contains(got, "NOT VERIFIED") {
		t.Errorf("Summary(nil) = %q", got)
	}
}
