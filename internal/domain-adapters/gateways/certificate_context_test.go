//go:build darwin || windows

package gateways

import (
	"maps"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ochairo/codesign/internal/domain/interfaces/gateways"
)

// readConcurrently reads one context from several goroutines and checks every
// reader sees the same values. Run the platform tests with -race.
func readConcurrently(t *testing.T, ctx gateways.CertificateContext) {
	t.Helper()

	wantSubject := ctx.SubjectName()
	wantThumbprint := ctx.SHA256Thumbprint()
	wantProps, wantOK := ctx.AdditionalProperties()

	const readers = 8
	var (
		wg       sync.WaitGroup
		mismatch atomic.Int32
	)
	for range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 16 {
				if !ctx.SubjectName().Equal(wantSubject) {
					mismatch.Add(1)
				}
				if ctx.SHA256Thumbprint() != wantThumbprint {
					mismatch.Add(1)
				}
				props, ok := ctx.AdditionalProperties()
				if ok != wantOK || !maps.Equal(props, wantProps) {
					mismatch.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if n := mismatch.Load(); n != 0 {
		t.Errorf("%d concurrent reads disagreed with the first read", n)
	}
}
