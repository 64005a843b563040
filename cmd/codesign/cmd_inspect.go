package main

import (
	"context"
	"encoding/pem"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ochairo/codesign"
	"github.com/ochairo/codesign/internal/domain-adapters/gateways"
	"github.com/ochairo/codesign/internal/domain/entities"
)

// inspectOutput is the machine-readable form of inspect
type inspectOutput struct {
	entities.SignatureReport `yaml:",inline"`

	Binary         *entities.BinaryInfo `json:"binary,omitempty" yaml:"binary,omitempty"`
	CertificatePEM string               `json:"certificate_pem,omitempty" yaml:"certificate_pem,omitempty"`
}

func runInspect(_ context.Context, args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	var (
		pid         = fs.Int("pid", 0, "Inspect the running process with this PID instead of a path")
		requirement = fs.String("requirement", "", "Code requirement (darwin); empty uses the platform default")
		output      = fs.String("output", outputText, "Output format (text, json, yaml)")
		withPEM     = fs.Bool("pem", false, "Include the PEM-encoded leaf certificate")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codesign inspect <path> [options]
       codesign inspect --pid <pid> [options]

Verify the code signature and print every field of the signer's leaf
certificate, including the additional signing properties.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  codesign inspect /sbin/ping
  codesign inspect C:\Windows\explorer.exe --output json
  codesign inspect --pid 4242 --pem
`)
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if *pid == 0 && fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: path or --pid is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	if err := validOutput(*output); err != nil {
		fail(err)
	}

	var (
		verifier *codesign.CodeSignVerifier
		err      error
	)
	if *pid != 0 {
		verifier, err = codesign.ForPID(*pid)
	} else {
		verifier, err = codesign.ForFile(fs.Arg(0))
	}
	if err != nil {
		fail(describeVerificationError(err))
	}

	var binary *entities.BinaryInfo
	if *pid == 0 {
		// Best effort; the trust subsystem has the final word
		binary, _ = gateways.NewBinaryProbe().Probe(verifier.Target())
	}

	if err := executeInspect(os.Stdout, verifier, binary, *requirement, *output, *withPEM); err != nil {
		if binary != nil && binary.Format != entities.FormatBundle && !binary.EmbeddedSignature {
			err = fmt.Errorf("%w (%s file has no embedded signature)", err, binary.Format)
		}
		fail(describeVerificationError(err))
	}
}

func executeInspect(w io.Writer, verifier *codesign.CodeSignVerifier, binary *entities.BinaryInfo, requirement, output string, withPEM bool) error {
	target := verifier.Target()

	sigCtx, err := verifier.Verify(requirement)
	if err != nil {
		return err
	}
	//nolint:errcheck // Close only releases native handles
	defer sigCtx.Close()

	out := inspectOutput{
		SignatureReport: entities.SignatureReport{
			Target:      target,
			Requirement: requirement,
			Subject:     sigCtx.SubjectName(),
			Issuer:      sigCtx.IssuerName(),
			Thumbprint:  sigCtx.SHA256Thumbprint(),
			VerifiedAt:  time.Now().UTC(),
		},
		Binary: binary,
	}
	if serial, ok := sigCtx.Serial(); ok {
		out.Serial = serial
	}
	if props, ok := sigCtx.AdditionalProperties(); ok {
		out.Properties = props
	}
	der := sigCtx.Certificate()
	if withPEM && der != nil {
		out.CertificatePEM = string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	}

	return writeOutput(w, output, out, renderInspect(out, len(der)))
}

func renderInspect(out inspectOutput, derSize int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🔍 %s\n\n", out.Target)
	writeName(&b, "Subject", out.Subject)
	writeName(&b, "Issuer", out.Issuer)

	fmt.Fprintf(&b, "SHA-256 thumbprint: %s\n", out.Thumbprint)
	if out.Serial != "" {
		fmt.Fprintf(&b, "Serial:             %s\n", out.Serial)
	} else {
		fmt.Fprintf(&b, "Serial:             (unavailable)\n")
	}
	fmt.Fprintf(&b, "Certificate:        %d bytes DER\n", derSize)
	if out.Binary != nil {
		fmt.Fprintf(&b, "Format:             %s", out.Binary.Format)
		if len(out.Binary.Architectures) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(out.Binary.Architectures, ", "))
		}
		b.WriteByte('\n')
	}

	if len(out.Properties) > 0 {
		fmt.Fprintf(&b, "\nProperties:\n")
		for _, key := range slices.Sorted(maps.Keys(out.Properties)) {
			fmt.Fprintf(&b, "  %-16s %s\n", key, out.Properties[key])
		}
	} else {
		fmt.Fprintf(&b, "\nProperties: (unavailable)\n")
	}

	if out.CertificatePEM != "" {
		fmt.Fprintf(&b, "\n%s", out.CertificatePEM)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeName(b *strings.Builder, label string, name entities.Name) {
	fmt.Fprintf(b, "%s:\n", label)
	for _, attr := range []struct {
		label string
		value *string
	}{
		{"Common name", name.CommonName},
		{"Organization", name.Organization},
		{"Org. unit", name.OrganizationUnit},
		{"Country", name.Country},
	} {
		value := "(absent)"
		if attr.value != nil {
			value = *attr.value
		}
		fmt.Fprintf(b, "  %-13s %s\n", attr.label+":", value)
	}
	b.WriteByte('\n')
}
