package entities

import "time"

// SignatureReport is a detached snapshot of a verified signature context
type SignatureReport struct {
	Target      string            `json:"target" yaml:"target"`
	PID         int               `json:"pid,omitempty" yaml:"pid,omitempty"`
	Requirement string            `json:"requirement,omitempty" yaml:"requirement,omitempty"`
	Subject     Name              `json:"subject" yaml:"subject"`
	Issuer      Name              `json:"issuer" yaml:"issuer"`
	Thumbprint  string            `json:"sha256_thumbprint" yaml:"sha256_thumbprint"`
	Serial      string            `json:"serial,omitempty" yaml:"serial,omitempty"`
	Properties  map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
	VerifiedAt  time.Time         `json:"verified_at" yaml:"verified_at"`
}

// VerificationTarget identifies what to verify: a path or a running process
type VerificationTarget struct {
	Path string
	PID  int
}

// IsProcess reports whether the target names a process. Any non-zero PID
// selects the process path so invalid pids are rejected there.
func (t VerificationTarget) IsProcess() bool {
	return t.PID != 0
}
