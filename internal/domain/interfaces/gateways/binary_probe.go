package gateways

import "github.com/ochairo/codesign/internal/domain/entities"

// BinaryProbe reads executable container metadata from disk
type BinaryProbe interface {
	Probe(path string) (*entities.BinaryInfo, error)
}
