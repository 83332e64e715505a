// Package toml provides TOML-based manifest parsing.
package toml

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/yukibtc/keechain-dist/internal/domain/entities"
)

// tomlManifest represents dist.toml. Package metadata lives in [package],
// tag settings in [build].
type tomlManifest struct {
	Package tomlPackage `toml:"package"`
	Build   tomlBuild   `toml:"build"`
}

type tomlPackage struct {
	Name                  *string           `toml:"name"`
	Version               *string           `toml:"version"`
	Description           *string           `toml:"description"`
	LongDescriptionFormat *string           `toml:"long_description_content_type"`
	Readme                *string           `toml:"readme"`
	Packages              []string          `toml:"packages"`
	PackageDir            map[string]string `toml:"package_dir"`
	IncludePackageData    *bool             `toml:"include_package_data"`
	ZipSafe               *bool             `toml:"zip_safe"`
	URL                   *string           `toml:"url"`
	Author                *string           `toml:"author"`
	License               *string           `toml:"license"`
	HasExtModules         *bool             `toml:"has_ext_modules"`
}

type tomlBuild struct {
	PythonTag       *string  `toml:"python_tag"`
	ABITag          *string  `toml:"abi_tag"`
	MacOSMinimum    *string  `toml:"macos_minimum"`
	ManylinuxPolicy *string  `toml:"manylinux"`
	NativeLibraries []string `toml:"native_libraries"`
	Targets         []string `toml:"targets"`
	NativeCommand   *string  `toml:"native_command"`
	TimeoutMinutes  *int     `toml:"timeout_minutes"`
}

// ManifestParser parses dist.toml manifests
type ManifestParser struct{}

// NewManifestParser creates a new TOML parser
func NewManifestParser() *ManifestParser {
	return &ManifestParser{}
}

// Parse parses TOML bytes into descriptor overrides. Unknown keys are rejected
// so that typos do not silently fall back to defaults.
func (p *ManifestParser) Parse(data []byte) (*entities.ManifestOverrides, error) {
	var raw tomlManifest
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown manifest key %q", undecoded[0].String())
	}

	pkg := raw.Package
	if pkg.Name != nil && *pkg.Name == "" {
		return nil, fmt.Errorf("manifest name cannot be empty")
	}
	if pkg.Readme != nil && *pkg.Readme == "" {
		return nil, fmt.Errorf("manifest readme cannot be empty")
	}

	overrides := &entities.ManifestOverrides{
		Name:                pkg.Name,
		Version:             pkg.Version,
		ShortDescription:    pkg.Description,
		DocumentationFile:   pkg.Readme,
		Packages:            pkg.Packages,
		PackageDirectoryMap: pkg.PackageDir,
		IncludePackageData:  pkg.IncludePackageData,
		IsZipSafe:           pkg.ZipSafe,
		URL:                 pkg.URL,
		Author:              pkg.Author,
		License:             pkg.License,
		HasNativeExtensions: pkg.HasExtModules,
		Build: entities.BuildOverrides{
			PythonTag:             raw.Build.PythonTag,
			ABITag:                raw.Build.ABITag,
			MacOSMinimum:          raw.Build.MacOSMinimum,
			ManylinuxPolicy:       raw.Build.ManylinuxPolicy,
			NativeLibraryPatterns: raw.Build.NativeLibraries,
			Targets:               raw.Build.Targets,
			NativeCommand:         raw.Build.NativeCommand,
			TimeoutMinutes:        raw.Build.TimeoutMinutes,
		},
	}

	if pkg.LongDescriptionFormat != nil {
		format, err := entities.ParseDescriptionFormat(*pkg.LongDescriptionFormat)
		if err != nil {
			return nil, err
		}
		overrides.LongDescriptionFormat = &format
	}

	return overrides, nil
}
