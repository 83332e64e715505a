package gateways

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yukibtc/keechain-dist/internal/domain/entities"
	"github.com/yukibtc/keechain-dist/internal/domain/services"
)

// ArtifactFinder provides utilities for locating build artifacts
type ArtifactFinder struct{}

// NewArtifactFinder creates a new artifact finder
func NewArtifactFinder() *ArtifactFinder {
	return &ArtifactFinder{}
}

// FindRecursive searches artifactsDir and its subdirectories for the wheels
// and sdist of desc. CI jobs usually download one subdirectory per platform.
func (f *ArtifactFinder) FindRecursive(artifactsDir string, desc *entities.PackageDescriptor) ([]string, error) {
	if _, err := os.Stat(artifactsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("artifacts directory does not exist: %s", artifactsDir)
	}

	wheelPrefix := fmt.Sprintf("%s-%s-", services.EscapeComponent(desc.Name), services.EscapeComponent(desc.Version))
	sdistName := services.SourceFilename(desc)

	var artifacts []string
	err := filepath.WalkDir(artifactsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		basename := d.Name()
		if (strings.HasPrefix(basename, wheelPrefix) && strings.HasSuffix(basename, ".whl")) || basename == sdistName {
			artifacts = append(artifacts, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(artifacts)
	return artifacts, nil
}

// FindByGlob lists the artifacts of desc directly inside distDir
func (f *ArtifactFinder) FindByGlob(distDir string, desc *entities.PackageDescriptor) ([]string, error) {
	if _, err := os.Stat(distDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("artifacts directory does not exist: %s", distDir)
	}

	patterns := []string{
		fmt.Sprintf("%s-%s-*.whl", services.EscapeComponent(desc.Name), services.EscapeComponent(desc.Version)),
		services.SourceFilename(desc),
	}

	var artifacts []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(distDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to glob pattern %s: %w", pattern, err)
		}
		artifacts = append(artifacts, matches...)
	}

	sort.Strings(artifacts)
	return artifacts, nil
}
