// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/yukibtc/keechain-dist/internal/domain/entities"
)

// ManifestRepository loads the authored descriptor values of a project
type ManifestRepository interface {
	// Load returns the descriptor config for the project rooted at rootDir.
	// Projects without a manifest get the keechain defaults.
	Load(ctx context.Context, rootDir string) (*entities.DescriptorConfig, error)
}
