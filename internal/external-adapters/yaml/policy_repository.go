package yaml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochairo/codesign/internal/domain/entities"
	"github.com/ochairo/codesign/internal/domain/interfaces"
)

// ErrPolicyNotFound is returned when no policy file exists for a name
var ErrPolicyNotFound = errors.New("policy not found")

// PolicyRepository implements repositories.PolicyRepository using YAML files
type PolicyRepository struct {
	policiesDir string
	parser      *PolicyParser
	logger      interfaces.Logger
}

// NewPolicyRepository creates a new YAML-based policy repository
func NewPolicyRepository(policiesDir string, logger interfaces.Logger) *PolicyRepository {
	return &PolicyRepository{
		policiesDir: policiesDir,
		parser:      NewPolicyParser(),
		logger:      interfaces.EnsureLogger(logger),
	}
}

// PolicyPath returns the file a policy name maps to
func (r *PolicyRepository) PolicyPath(name string) string {
	return filepath.Join(r.policiesDir, name+".yml")
}

// GetPolicy retrieves a trust policy by name
func (r *PolicyRepository) GetPolicy(_ context.Context, name string) (*entities.TrustPolicy, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid policy name %q", name)
	}

	filePath := r.PolicyPath(name)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, name)
	}

	return r.parser.ParseFile(filePath)
}

// ListPolicies returns all parseable policies in the directory
func (r *PolicyRepository) ListPolicies(_ context.Context) ([]*entities.TrustPolicy, error) {
	entries, err := os.ReadDir(r.policiesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read policies directory: %w", err)
	}

	policies := make([]*entities.TrustPolicy, 0)
	for _, entry := range entries {
		// Skip non-YAML files
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}

		filePath := filepath.Join(r.policiesDir, entry.Name())
		policy, err := r.parser.ParseFile(filePath)
		if err != nil {
			// Log warning but continue processing other files
			r.logger.Warn("skipping unparseable policy",
				interfaces.F("file", entry.Name()),
				interfaces.F("error", err),
			)
			continue
		}

		policies = append(policies, policy)
	}

	return policies, nil
}
