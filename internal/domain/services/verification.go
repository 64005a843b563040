// Package services implements domain business logic and use cases.
package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ochairo/codesign/internal/domain/entities"
	"github.com/ochairo/codesign/internal/domain/interfaces"
	"github.com/ochairo/codesign/internal/domain/interfaces/gateways"
	"github.com/ochairo/codesign/internal/domain/interfaces/services"
)

// verificationService implements VerificationService on top of a platform trust provider
type verificationService struct {
	provider gateways.TrustProvider
	logger   interfaces.Logger
	now      func() time.Time
}

// NewVerificationService creates a new verification service with dependency injection
func NewVerificationService(provider gateways.TrustProvider, logger interfaces.Logger) services.VerificationService {
	return &verificationService{
		provider: provider,
		logger:   interfaces.EnsureLogger(logger),
		now:      time.Now,
	}
}

// VerifyFile verifies the code signature of a file or bundle
func (s *verificationService) VerifyFile(ctx context.Context, path, requirement string) (*entities.SignatureReport, error) {
	return s.Verify(ctx, entities.VerificationTarget{Path: path}, requirement)
}

// VerifyPID verifies the code signature of a running process
func (s *verificationService) VerifyPID(ctx context.Context, pid int, requirement string) (*entities.SignatureReport, error) {
	return s.Verify(ctx, entities.VerificationTarget{PID: pid}, requirement)
}

type verifyOutcome struct {
	report *entities.SignatureReport
	err    error
}

// Verify runs the blocking provider call on a worker goroutine. If ctx ends
// first the worker is abandoned; it still releases whatever it produces.
func (s *verificationService) Verify(ctx context.Context, target entities.VerificationTarget, requirement string) (*entities.SignatureReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug("verifying code signature",
		interfaces.F("platform", s.provider.Platform()),
		interfaces.F("target", describeTarget(target)),
		interfaces.F("requirement", requirement),
	)

	// Buffered so an abandoned worker never blocks on send
	done := make(chan verifyOutcome, 1)
	go func() {
		report, err := s.verifyBlocking(target, requirement)
		done <- verifyOutcome{report: report, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			s.logger.Warn("code signature verification failed",
				interfaces.F("target", describeTarget(target)),
				interfaces.F("error", out.err),
			)
			return nil, out.err
		}
		s.logger.Info("code signature verified",
			interfaces.F("target", out.report.Target),
			interfaces.F("subject", out.report.Subject.String()),
			interfaces.F("thumbprint", out.report.Thumbprint),
		)
		return out.report, nil
	case <-ctx.Done():
		s.logger.Warn("abandoning code signature verification",
			interfaces.F("target", describeTarget(target)),
			interfaces.F("reason", ctx.Err()),
		)
		return nil, fmt.Errorf("verification of %s abandoned: %w", describeTarget(target), ctx.Err())
	}
}

func (s *verificationService) verifyBlocking(target entities.VerificationTarget, requirement string) (*entities.SignatureReport, error) {
	var (
		verifier gateways.Verifier
		err      error
	)
	if target.IsProcess() {
		verifier, err = s.provider.ForPID(target.PID)
	} else {
		verifier, err = s.provider.ForFile(target.Path)
	}
	if err != nil {
		return nil, err
	}

	sigCtx, err := verifier.Verify(requirement)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // Close only releases native handles
	defer sigCtx.Close()

	report := Snapshot(sigCtx)
	report.Target = verifier.Target()
	report.PID = target.PID
	report.Requirement = requirement
	report.VerifiedAt = s.now()

	return report, nil
}

// Snapshot copies every accessor of a certificate context into a report
func Snapshot(sigCtx gateways.CertificateContext) *entities.SignatureReport {
	report := &entities.SignatureReport{
		Subject:    sigCtx.SubjectName(),
		Issuer:     sigCtx.IssuerName(),
		Thumbprint: sigCtx.SHA256Thumbprint(),
	}
	if serial, ok := sigCtx.Serial(); ok {
		report.Serial = serial
	}
	if props, ok := sigCtx.AdditionalProperties(); ok {
		report.Properties = props
	}
	return report
}

func describeTarget(target entities.VerificationTarget) string {
	if target.IsProcess() {
		return "pid:" + strconv.Itoa(target.PID)
	}
	return target.Path
}
