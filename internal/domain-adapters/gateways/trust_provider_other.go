//go:build !darwin && !windows

package gateways

import (
	"runtime"

	"github.com/ochairo/codesign/internal/domain/entities"
	"github.com/ochairo/codesign/internal/domain/interfaces"
	"github.com/ochairo/codesign/internal/domain/interfaces/gateways"
)

// unsupportedTrustProvider is compiled on platforms without a signing standard
// to delegate to. Paths are still validated so callers get InvalidPath first.
type unsupportedTrustProvider struct {
	logger interfaces.Logger
}

func newPlatformTrustProvider(logger interfaces.Logger) gateways.TrustProvider {
	return &unsupportedTrustProvider{logger: logger}
}

func (p *unsupportedTrustProvider) Platform() string {
	return runtime.GOOS
}

func (p *unsupportedTrustProvider) ForFile(path string) (gateways.Verifier, error) {
	if _, err := canonicalPath(path); err != nil {
		return nil, err
	}
	p.logger.Debug("no trust provider for platform", interfaces.F("os", runtime.GOOS))
	return nil, entities.ErrUnsupportedPlatform
}

func (p *unsupportedTrustProvider) ForPID(pid int) (gateways.Verifier, error) {
	if err := validPID(pid); err != nil {
		return nil, err
	}
	return nil, entities.ErrUnsupportedPlatform
}
