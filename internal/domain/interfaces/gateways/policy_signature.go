package gateways

// PolicySignatureVerifier authenticates policy documents with detached signatures
type PolicySignatureVerifier interface {
	// ImportKeyFromFile adds trusted public keys from a local keyring file
	ImportKeyFromFile(keyPath string) error

	// VerifyPolicySignature checks sigPath over policyPath and returns the signer fingerprint
	VerifyPolicySignature(policyPath, sigPath string) (string, error)
}
