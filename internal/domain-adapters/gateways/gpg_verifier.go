package gateways

import (
	"fmt"

	"github.com/ochairo/codesign/internal/domain/interfaces"
	"github.com/ochairo/codesign/internal/external-adapters/gpg"
)

// gpgVerifier wraps the external OpenPGP adapter to implement PolicySignatureVerifier
type gpgVerifier struct {
	verifier *gpg.Verifier
	logger   interfaces.Logger
}

// NewGPGVerifier creates a new policy signature verifier backed by OpenPGP
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewGPGVerifier(logger interfaces.Logger) *gpgVerifier {
	return &gpgVerifier{
		verifier: gpg.NewVerifier(),
		logger:   interfaces.EnsureLogger(logger),
	}
}

// ImportKeyFromFile imports trusted keys from a local keyring file
func (g *gpgVerifier) ImportKeyFromFile(keyPath string) error {
	if err := g.verifier.ImportKeyFromFile(keyPath); err != nil {
		return fmt.Errorf("failed to import OpenPGP keyring %s: %w", keyPath, err)
	}
	g.logger.Debug("imported policy keyring",
		interfaces.F("path", keyPath),
		interfaces.F("keys", g.verifier.GetKeyringSize()),
	)
	return nil
}

// VerifyPolicySignature verifies a detached signature over a policy file
func (g *gpgVerifier) VerifyPolicySignature(policyPath, sigPath string) (string, error) {
	signer, err := g.verifier.VerifySignatureFromFile(policyPath, sigPath)
	if err != nil {
		return "", fmt.Errorf("policy signature verification failed: %w", err)
	}
	g.logger.Info("policy signature verified",
		interfaces.F("policy", policyPath),
		interfaces.F("signer", signer),
	)
	return signer, nil
}
