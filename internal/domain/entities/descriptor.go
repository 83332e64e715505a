package entities

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DescriptionFormat declares how LongDescription is rendered by an index
type DescriptionFormat string

const (
	FormatPlain    DescriptionFormat = "plain"
	FormatMarkdown DescriptionFormat = "markdown"
	FormatRST      DescriptionFormat = "rst"
)

// ContentType returns the core-metadata content type for the format
func (f DescriptionFormat) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown"
	case FormatRST:
		return "text/x-rst"
	default:
		return "text/plain"
	}
}

// Valid reports whether f is one of the known formats
func (f DescriptionFormat) Valid() bool {
	switch f {
	case FormatPlain, FormatMarkdown, FormatRST:
		return true
	}
	return false
}

// PackageDescriptor is the distributable metadata of a module wrapping native code.
// It is built once per invocation and treated as read-only afterwards.
type PackageDescriptor struct {
	Name                  string
	Version               string
	ShortDescription      string
	LongDescription       string
	LongDescriptionFormat DescriptionFormat
	Packages              []string
	PackageDirectoryMap   map[string]string
	IncludePackageData    bool
	IsZipSafe             bool
	URL                   string
	Author                string
	License               string
	HasNativeExtensions   bool
}

// ShouldTagPlatform reports whether artifacts must carry interpreter, ABI and platform tags
func (d *PackageDescriptor) ShouldTagPlatform() bool {
	return d.HasNativeExtensions
}

// DescriptorConfig holds the authored values of a descriptor, everything but
// the long description, which is read from DocumentationFile at describe time.
type DescriptorConfig struct {
	Name                  string
	Version               string
	ShortDescription      string
	LongDescriptionFormat DescriptionFormat
	DocumentationFile     string
	Packages              []string
	PackageDirectoryMap   map[string]string
	IncludePackageData    bool
	IsZipSafe             bool
	URL                   string
	Author                string
	License               string
	HasNativeExtensions   bool
	Build                 BuildConfig
}

// BuildConfig controls how platform tags are computed for native artifacts
type BuildConfig struct {
	PythonTag             string
	ABITag                string
	MacOSMinimum          string
	ManylinuxPolicy       string
	NativeLibraryPatterns []string
	Targets               []string // os-arch pairs built by --all-platforms
	NativeCommand         string   // shell command compiling the native library for $TARGET
	TimeoutMinutes        int
}

// DefaultDescriptorConfig returns the descriptor of the keechain Python binding
func DefaultDescriptorConfig() DescriptorConfig {
	return DescriptorConfig{
		Name:                  "keechain",
		Version:               "0.0.1",
		ShortDescription:      "Keechain Core",
		LongDescriptionFormat: FormatMarkdown,
		DocumentationFile:     "README.md",
		Packages:              []string{"keechain"},
		PackageDirectoryMap:   map[string]string{"keechain": "./src/keechain"},
		IncludePackageData:    true,
		IsZipSafe:             false,
		URL:                   "https://github.com/yukibtc/keechain",
		Author:                "Yuki Kishimoto <yukikishimoto@protonmail.com>",
		License:               "MIT",
		HasNativeExtensions:   true,
		Build:                 DefaultBuildConfig(),
	}
}

// DefaultBuildConfig returns the tag settings used when a manifest leaves them out
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		PythonTag:             "cp311",
		MacOSMinimum:          "11_0",
		NativeLibraryPatterns: []string{"*.so", "*.dylib", "*.dll", "*.pyd"},
		TimeoutMinutes:        30,
		Targets: []string{
			"linux-x86_64",
			"linux-aarch64",
			"darwin-x86_64",
			"darwin-arm64",
			"windows-x86_64",
		},
	}
}

// ResolvePackageDirectory returns the source directory of a logical module.
// Unmapped modules resolve to the directory named after the module, relative
// to the project root; a missing entry is never an error.
func (d *PackageDescriptor) ResolvePackageDirectory(logicalName string) string {
	if dir, ok := d.PackageDirectoryMap[logicalName]; ok {
		return dir
	}
	return filepath.FromSlash(strings.ReplaceAll(logicalName, ".", "/"))
}

// ParseDescriptionFormat accepts a format name or its content type
func ParseDescriptionFormat(s string) (DescriptionFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain", "text/plain", "txt":
		return FormatPlain, nil
	case "markdown", "md", "text/markdown":
		return FormatMarkdown, nil
	case "rst", "text/x-rst", "restructuredtext":
		return FormatRST, nil
	}
	return "", fmt.Errorf("unknown long description format %q", s)
}
