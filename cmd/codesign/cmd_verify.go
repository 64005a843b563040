package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ochairo/codesign/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/codesign/internal/domain-orchestrators"
	"github.com/ochairo/codesign/internal/domain/entities"
	"github.com/ochairo/codesign/internal/domain/interfaces"
	"github.com/ochairo/codesign/internal/domain/services"
	"github.com/ochairo/codesign/internal/external-adapters/yaml"
)

type verifyOptions struct {
	target      entities.VerificationTarget
	requirement string
	policyPath  string
	policyName  string
	policyDir   string
	policySig   string
	keyring     string
	digest      string
	output      string
	timeout     time.Duration
}

// verifyOutput is the machine-readable form of a verification result
type verifyOutput struct {
	Report       *entities.SignatureReport `json:"report" yaml:"report"`
	Decision     *entities.PolicyDecision  `json:"decision,omitempty" yaml:"decision,omitempty"`
	PolicySigner string                    `json:"policy_signer,omitempty" yaml:"policy_signer,omitempty"`
	TargetDigest string                    `json:"target_digest,omitempty" yaml:"target_digest,omitempty"`
	Allowed      bool                      `json:"allowed" yaml:"allowed"`
	Duration     string                    `json:"duration" yaml:"duration"`
}

func runVerify(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	var (
		pid         = fs.Int("pid", 0, "Verify the running process with this PID instead of a path")
		requirement = fs.String("requirement", "", "Code requirement (darwin), overrides the policy requirement")
		policyPath  = fs.String("policy", os.Getenv("CODESIGN_POLICY"), "Trust policy file (.yml)")
		policyName  = fs.String("policy-name", "", "Trust policy name, loaded from --policy-dir")
		policyDir   = fs.String("policy-dir", "policies", "Directory of named trust policies")
		policySig   = fs.String("policy-sig", "", "Detached OpenPGP signature of the policy (default <policy>.asc)")
		keyring     = fs.String("keyring", "", "OpenPGP keyring trusted to sign policies; requires a signed policy")
		digest      = fs.String("digest", "", "Expected content digest of the target (sha256:<hex>)")
		output      = fs.String("output", outputText, "Output format (text, json, yaml)")
		timeout     = fs.Duration("timeout", 30*time.Second, "Give up waiting for the trust subsystem after this long")
	)
	logOpts := addLogFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codesign verify <path> [options]
       codesign verify --pid <pid> [options]

Verify the code signature of an executable, application bundle or running
process, then evaluate an optional trust policy.

Exits 1 when the signature does not verify or the policy denies it.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Verify against the platform default policy
  codesign verify /Applications/Safari.app

  # Require an Apple-anchored signature
  codesign verify /sbin/ping --requirement "anchor apple generic"

  # Evaluate a signed trust policy and print JSON
  codesign verify ./app --policy corp.yml --keyring corp.asc --output json

  # Verify a running process
  codesign verify --pid 4242
`)
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	opts := verifyOptions{
		target:      entities.VerificationTarget{PID: *pid},
		requirement: *requirement,
		policyPath:  *policyPath,
		policyName:  *policyName,
		policyDir:   *policyDir,
		policySig:   *policySig,
		keyring:     *keyring,
		digest:      *digest,
		output:      *output,
		timeout:     *timeout,
	}

	switch {
	case *pid != 0 && fs.NArg() > 0:
		fmt.Fprintf(os.Stderr, "Error: give either a path or --pid, not both\n\n")
		fs.Usage()
		os.Exit(1)
	case *pid == 0 && fs.NArg() < 1:
		fmt.Fprintf(os.Stderr, "Error: path or --pid is required\n\n")
		fs.Usage()
		os.Exit(1)
	case *pid == 0:
		opts.target.Path = fs.Arg(0)
	}

	if opts.policyName != "" {
		// A named policy replaces the environment default
		opts.policyPath = ""
	}

	logger, err := logOpts.logger()
	if err != nil {
		fail(err)
	}

	if err := executeVerify(ctx, os.Stdout, logger, opts); err != nil {
		fail(err)
	}
}

func executeVerify(ctx context.Context, w io.Writer, logger interfaces.Logger, opts verifyOptions) error {
	if err := validOutput(opts.output); err != nil {
		return err
	}

	orchestrator, err := newVerificationOrchestrator(logger, opts)
	if err != nil {
		return err
	}

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	result, err := orchestrator.Enforce(ctx, orchestrators.VerificationRequest{
		Target:              opts.target,
		Requirement:         opts.requirement,
		PolicyPath:          opts.policyPath,
		PolicyName:          opts.policyName,
		SignaturePath:       opts.policySig,
		RequireSignedPolicy: opts.keyring != "",
		ExpectedDigest:      opts.digest,
	})
	if result != nil {
		out := verifyOutput{
			Report:       result.Report,
			Decision:     result.Decision,
			PolicySigner: result.PolicySigner,
			TargetDigest: result.TargetDigest,
			Allowed:      result.Allowed(),
			Duration:     result.Duration.String(),
		}
		if writeErr := writeOutput(w, opts.output, out, orchestrator.Summary(result)); writeErr != nil {
			return writeErr
		}
	}
	if err != nil {
		if errors.Is(err, orchestrators.ErrPolicyDenied) {
			return err
		}
		return describeVerificationError(err)
	}
	return nil
}

// newVerificationOrchestrator wires the platform trust provider, policy
// adapters and OpenPGP verifier into the orchestrator
func newVerificationOrchestrator(logger interfaces.Logger, opts verifyOptions) (*orchestrators.VerificationOrchestrator, error) {
	provider := gateways.NewPlatformTrustProvider(logger)

	config := orchestrators.VerificationOrchestratorConfig{
		Loader:     yaml.NewPolicyParser(),
		Repository: yaml.NewPolicyRepository(opts.policyDir, logger),
		Digester:   gateways.NewFileDigester(),
		Logger:     logger,
	}

	if opts.keyring != "" || opts.policySig != "" {
		if opts.keyring == "" {
			return nil, errors.New("--policy-sig needs --keyring")
		}
		signatures := gateways.NewGPGVerifier(logger)
		if err := signatures.ImportKeyFromFile(opts.keyring); err != nil {
			return nil, err
		}
		config.Signatures = signatures
	}

	return orchestrators.NewVerificationOrchestrator(
		services.NewVerificationService(provider, logger),
		services.NewPolicyService(),
		config,
	), nil
}

// describeVerificationError adds a hint for the error kinds users hit most
func describeVerificationError(err error) error {
	switch {
	case entities.IsKind(err, entities.KindUnsigned):
		return fmt.Errorf("%w (no code signature found)", err)
	case entities.IsKind(err, entities.KindUnsupportedPlatform):
		return fmt.Errorf("%w (supported: darwin, windows)", err)
	case entities.IsKind(err, entities.KindOSError):
		if code, ok := entities.OSStatus(err); ok && code == gateways.ErrSecCSReqFailed {
			return fmt.Errorf("%w (signature does not satisfy the requirement)", err)
		}
	}
	return err
}
