// Package yaml provides YAML-based manifest parsing.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/yukibtc/keechain-dist/internal/domain/entities"
)

// yamlManifest represents the raw YAML structure of dist.yml.
// Pointer fields distinguish "absent" from zero values.
type yamlManifest struct {
	Name                  *string           `yaml:"name"`
	Version               *string           `yaml:"version"`
	Description           *string           `yaml:"description"`
	LongDescriptionFormat *string           `yaml:"long_description_content_type"`
	DocumentationFile     *string           `yaml:"readme"`
	Packages              []string          `yaml:"packages"`
	PackageDir            map[string]string `yaml:"package_dir"`
	IncludePackageData    *bool             `yaml:"include_package_data"`
	ZipSafe               *bool             `yaml:"zip_safe"`
	URL                   *string           `yaml:"url"`
	Author                *string           `yaml:"author"`
	License               *string           `yaml:"license"`
	HasExtModules         *bool             `yaml:"has_ext_modules"`
	Build                 yamlBuild         `yaml:"build"`
}

type yamlBuild struct {
	PythonTag       *string  `yaml:"python_tag"`
	ABITag          *string  `yaml:"abi_tag"`
	MacOSMinimum    *string  `yaml:"macos_minimum"`
	ManylinuxPolicy *string  `yaml:"manylinux"`
	NativeLibraries []string `yaml:"native_libraries"`
	Targets         []string `yaml:"targets"`
	NativeCommand   *string  `yaml:"native_command"`
	TimeoutMinutes  *int     `yaml:"timeout_minutes"`
}

// ManifestParser parses dist.yml manifests
type ManifestParser struct{}

// NewManifestParser creates a new YAML parser
func NewManifestParser() *ManifestParser {
	return &ManifestParser{}
}

// Parse parses YAML bytes into descriptor overrides. Unknown keys are rejected
// so that typos do not silently fall back to defaults.
func (p *ManifestParser) Parse(data []byte) (*entities.ManifestOverrides, error) {
	var raw yamlManifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if raw.Name != nil && *raw.Name == "" {
		return nil, fmt.Errorf("manifest name cannot be empty")
	}
	if raw.DocumentationFile != nil && *raw.DocumentationFile == "" {
		return nil, fmt.Errorf("manifest readme cannot be empty")
	}

	overrides := &entities.ManifestOverrides{
		Name:                raw.Name,
		Version:             raw.Version,
		ShortDescription:    raw.Description,
		DocumentationFile:   raw.DocumentationFile,
		Packages:            raw.Packages,
		PackageDirectoryMap: raw.PackageDir,
		IncludePackageData:  raw.IncludePackageData,
		IsZipSafe:           raw.ZipSafe,
		URL:                 raw.URL,
		Author:              raw.Author,
		License:             raw.License,
		HasNativeExtensions: raw.HasExtModules,
		Build:               convertBuild(raw.Build),
	}

	if raw.LongDescriptionFormat != nil {
		format, err := entities.ParseDescriptionFormat(*raw.LongDescriptionFormat)
		if err != nil {
			return nil, err
		}
		overrides.LongDescriptionFormat = &format
	}

	return overrides, nil
}

func convertBuild(yb yamlBuild) entities.BuildOverrides {
	return entities.BuildOverrides{
		PythonTag:             yb.PythonTag,
		ABITag:                yb.ABITag,
		MacOSMinimum:          yb.MacOSMinimum,
		ManylinuxPolicy:       yb.ManylinuxPolicy,
		NativeLibraryPatterns: yb.NativeLibraries,
		Targets:               yb.Targets,
		NativeCommand:         yb.NativeCommand,
		TimeoutMinutes:        yb.TimeoutMinutes,
	}
}
