// Package gpg provides OpenPGP detached-signature verification for policy files.
package gpg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// maxSignatureSize bounds detached signatures read into memory.
// OpenPGP signatures are typically well under 1KB.
const maxSignatureSize = 64 * 1024

const armorSignatureHeader = "-----BEGIN PGP SIGNATURE---"

// ErrNoKeys is returned when verification is attempted with an empty keyring
var ErrNoKeys = errors.New("no OpenPGP keys imported, call ImportKeyFromFile first")

// Verifier checks detached OpenPGP signatures against a local keyring
// using ProtonMail's go-crypto, a maintained fork of x/crypto/openpgp.
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier creates a verifier with an empty keyring
func NewVerifier() *Verifier {
	return &Verifier{
		keyring: make(openpgp.EntityList, 0),
	}
}

// ImportKeyFromFile imports public keys from an armored or binary keyring file
func (v *Verifier) ImportKeyFromFile(keyPath string) error {
	//nolint:gosec // G304: keyPath is an operator-supplied keyring
	f, err := os.Open(keyPath)
	if err != nil {
		return fmt.Errorf("failed to open key file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer f.Close()

	return v.ImportKeys(f)
}

// ImportKeys imports public keys from an armored or binary keyring stream
func (v *Verifier) ImportKeys(r io.ReadSeeker) error {
	entities, err := openpgp.ReadArmoredKeyRing(r)
	if err != nil {
		// Try reading as binary
		if _, seekErr := r.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("failed to reset key stream: %w", seekErr)
		}
		entities, err = openpgp.ReadKeyRing(r)
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
	}

	if len(entities) == 0 {
		return errors.New("no keys found in file")
	}

	v.keyring = append(v.keyring, entities...)
	return nil
}

// VerifySignature checks an in-memory detached signature over data and
// returns the signer's primary key fingerprint.
func (v *Verifier) VerifySignature(data io.Reader, sig []byte) (string, error) {
	if len(v.keyring) == 0 {
		return "", ErrNoKeys
	}
	if len(sig) > maxSignatureSize {
		return "", fmt.Errorf("signature exceeds %d bytes", maxSignatureSize)
	}
	if len(sig) < 10 {
		return "", errors.New("signature too small to be a valid OpenPGP signature")
	}

	var (
		signer *openpgp.Entity
		err    error
	)
	if bytes.HasPrefix(sig, []byte(armorSignatureHeader)) {
		signer, err = openpgp.CheckArmoredDetachedSignature(v.keyring, data, bytes.NewReader(sig), nil)
	} else {
		signer, err = openpgp.CheckDetachedSignature(v.keyring, data, bytes.NewReader(sig), nil)
	}
	if err != nil {
		return "", fmt.Errorf("signature verification failed: %w", err)
	}

	return fingerprint(signer), nil
}

// VerifySignatureFromFile verifies a detached signature file over filePath
// and returns the signer's primary key fingerprint.
func (v *Verifier) VerifySignatureFromFile(filePath, sigPath string) (string, error) {
	if len(v.keyring) == 0 {
		return "", ErrNoKeys
	}

	//nolint:gosec // G304: sigPath is an operator-supplied signature
	sigFile, err := os.Open(sigPath)
	if err != nil {
		return "", fmt.Errorf("failed to open signature file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer sigFile.Close()

	sig, err := io.ReadAll(io.LimitReader(sigFile, maxSignatureSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read signature file: %w", err)
	}

	//nolint:gosec // G304: filePath is the policy being verified
	dataFile, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open data file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer dataFile.Close()

	return v.VerifySignature(dataFile, sig)
}

// GetKeyringSize returns the number of keys in the keyring
func (v *Verifier) GetKeyringSize() int {
	return len(v.keyring)
}

// ClearKeyring clears all imported keys
func (v *Verifier) ClearKeyring() {
	v.keyring = make(openpgp.EntityList, 0)
}

func fingerprint(e *openpgp.Entity) string {
	if e == nil || e.PrimaryKey == nil {
		return ""
	}
	return fmt.Sprintf("%X", e.PrimaryKey.Fingerprint)
}
