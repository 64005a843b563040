package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ochairo/codesign/internal/domain-adapters/gateways"
	"github.com/ochairo/codesign/internal/domain/entities"
	"github.com/ochairo/codesign/internal/domain/interfaces"
	"github.com/ochairo/codesign/internal/external-adapters/yaml"
)

func runPolicy(ctx context.Context, args []string) {
	if len(args) < 1 {
		printPolicyUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "validate":
		runPolicyValidate(ctx, args[1:])
	case "list":
		runPolicyList(ctx, args[1:])
	case "help", "-h", "--help":
		printPolicyUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown policy command: %s\n\n", args[0])
		printPolicyUsage()
		os.Exit(1)
	}
}

func printPolicyUsage() {
	fmt.Fprintf(os.Stderr, `Usage: codesign policy <command> [options]

Commands:
  validate <file>  Parse and validate a trust policy file
  list             List the named policies in a directory
`)
}

func runPolicyValidate(_ context.Context, args []string) {
	fs := flag.NewFlagSet("policy validate", flag.ExitOnError)
	var (
		keyring = fs.String("keyring", "", "OpenPGP keyring; also check the policy's detached signature")
		sigPath = fs.String("sig", "", "Detached signature file (default <file>.asc)")
	)
	logOpts := addLogFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codesign policy validate <file> [options]

Parse and validate a trust policy file, optionally checking its signature.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: policy file is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	logger, err := logOpts.logger()
	if err != nil {
		fail(err)
	}

	if err := executePolicyValidate(os.Stdout, logger, fs.Arg(0), *keyring, *sigPath); err != nil {
		fail(err)
	}
}

func executePolicyValidate(w io.Writer, logger interfaces.Logger, policyPath, keyring, sigPath string) error {
	var signer string
	if keyring != "" {
		signatures := gateways.NewGPGVerifier(logger)
		if err := signatures.ImportKeyFromFile(keyring); err != nil {
			return err
		}
		if sigPath == "" {
			sigPath = policyPath + ".asc"
		}
		var err error
		signer, err = signatures.VerifyPolicySignature(policyPath, sigPath)
		if err != nil {
			return err
		}
	}

	policy, err := yaml.NewPolicyParser().ParseFile(policyPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "✅ Policy %s is valid (%d rules)\n", policy.Name, len(policy.Rules))
	if policy.Requirement != "" {
		fmt.Fprintf(w, "   Requirement: %s\n", policy.Requirement)
	}
	for _, rule := range policy.Rules {
		fmt.Fprintf(w, "   - %s\n", rule.Name)
	}
	if signer != "" {
		fmt.Fprintf(w, "   Signed by: %s\n", signer)
	}
	return nil
}

func runPolicyList(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("policy list", flag.ExitOnError)
	var (
		policyDir = fs.String("policy-dir", "policies", "Directory of named trust policies")
	)
	logOpts := addLogFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codesign policy list [options]

List the trust policies in a directory. Files that fail to parse are skipped
with a warning.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	logger, err := logOpts.logger()
	if err != nil {
		fail(err)
	}

	if err := executePolicyList(ctx, os.Stdout, yaml.NewPolicyRepository(*policyDir, logger), *policyDir); err != nil {
		fail(err)
	}
}

type policyLister interface {
	ListPolicies(ctx context.Context) ([]*entities.TrustPolicy, error)
}

func executePolicyList(ctx context.Context, w io.Writer, repo policyLister, dir string) error {
	policies, err := repo.ListPolicies(ctx)
	if err != nil {
		return fmt.Errorf("failed to list policies: %w", err)
	}

	fmt.Fprintf(w, "Policies in %s (%d total):\n\n", dir, len(policies))
	for _, policy := range policies {
		fmt.Fprintf(w, "  %-20s %d rules\n", policy.Name, len(policy.Rules))
		if policy.Requirement != "" {
			fmt.Fprintf(w, "  %-20s Requirement: %s\n", "", policy.Requirement)
		}
	}
	return nil
}
