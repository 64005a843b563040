// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/codesign/internal/domain/entities"
)

// PolicyRepository defines the interface for accessing trust policies
type PolicyRepository interface {
	// GetPolicy retrieves a trust policy by name
	GetPolicy(ctx context.Context, name string) (*entities.TrustPolicy, error)

	// ListPolicies returns all available trust policies
	ListPolicies(ctx context.Context) ([]*entities.TrustPolicy, error)
}
