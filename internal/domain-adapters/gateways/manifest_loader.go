package gateways

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yukibtc/keechain-dist/internal/domain/entities"
	"github.com/yukibtc/keechain-dist/internal/domain/interfaces"
	"github.com/yukibtc/keechain-dist/internal/domain/interfaces/repositories"
)

// ManifestParser decodes one manifest format into descriptor overrides
type ManifestParser interface {
	Parse(data []byte) (*entities.ManifestOverrides, error)
}

// manifestLoader implements repositories.ManifestRepository by composing
// one parser per manifest format
type manifestLoader struct {
	yaml   ManifestParser
	toml   ManifestParser
	logger interfaces.Logger
}

// NewManifestLoader creates a manifest repository over the YAML and TOML parsers
func NewManifestLoader(yamlParser, tomlParser ManifestParser, logger interfaces.Logger) repositories.ManifestRepository {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &manifestLoader{yaml: yamlParser, toml: tomlParser, logger: logger}
}

// Load reads the first of dist.yml, dist.yaml, dist.toml found in rootDir.
// Without a manifest the keechain defaults are returned.
func (l *manifestLoader) Load(_ context.Context, rootDir string) (*entities.DescriptorConfig, error) {
	for _, name := range ManifestFileNames {
		manifestPath := filepath.Join(rootDir, name)
		if _, err := os.Stat(manifestPath); err != nil {
			continue
		}
		return l.LoadFile(manifestPath)
	}

	l.logger.Debug("no manifest found, using defaults", interfaces.F("root", rootDir))
	config := entities.DefaultDescriptorConfig()
	return &config, nil
}

// LoadFile parses a manifest file, choosing the parser by extension
func (l *manifestLoader) LoadFile(manifestPath string) (*entities.DescriptorConfig, error) {
	var parser ManifestParser
	switch filepath.Ext(manifestPath) {
	case ".yml", ".yaml":
		parser = l.yaml
	case ".toml":
		parser = l.toml
	}
	if parser == nil {
		return nil, fmt.Errorf("unsupported manifest format: %s", manifestPath)
	}

	//nolint:gosec // G304: manifestPath is the project's manifest file
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", manifestPath, err)
	}

	overrides, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", manifestPath, err)
	}

	config := overrides.Apply(entities.DefaultDescriptorConfig())
	l.logger.Debug("loaded manifest", interfaces.F("path", manifestPath), interfaces.F("name", config.Name))
	return &config, nil
}
