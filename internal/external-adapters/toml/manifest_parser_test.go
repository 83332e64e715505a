package toml

import (
	"strings"
	"testing"

	"github.com/yukibtc/keechain-dist/internal/domain/entities"
)

func TestManifestParser_Parse_Valid(t *testing.T) {
	data := []byte(`
[package]
name = "keechain"
version = "0.3.0"
description = "Keechain Core"
long_description_content_type = "rst"
readme = "README.rst"
packages = ["keechain", "keechain.ffi"]
include_package_data = false
has_ext_modules = true

[package.package_dir]
keechain = "./src/keechain"

[build]
python_tag = "cp38"
abi_tag = "abi3"
macos_minimum = "10.15"
targets = ["linux-x86_64", "windows-x86_64"]
native_command = "cargo build --release"
`)

	overrides, err := NewManifestParser().Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	config := overrides.Apply(entities.DefaultDescriptorConfig())

	if config.Version != "0.3.0" {
		t.Errorf("Version = %v, want 0.3.0", config.Version)
	}
	if config.LongDescriptionFormat != entities.FormatRST {
		t.Errorf("LongDescriptionFormat = %v, want rst", config.LongDescriptionFormat)
	}
	if config.DocumentationFile != "README.rst" {
		t.Errorf("DocumentationFile = %v", config.DocumentationFile)
	}
	if len(config.Packages) != 2 || config.IncludePackageData {
		t.Errorf("Packages = %v, IncludePackageData = %v", config.Packages, config.IncludePackageData)
	}
	if config.Build.ABITag != "abi3" || config.Build.MacOSMinimum != "10.15" {
		t.Errorf("Build = %+v", config.Build)
	}
	if config.Build.NativeCommand != "cargo build --release" || config.Build.TimeoutMinutes != 30 {
		t.Errorf("native build = %q, %d minutes", config.Build.NativeCommand, config.Build.TimeoutMinutes)
	}
	if config.License != "MIT" {
		t.Errorf("License default lost: %v", config.License)
	}
}

func TestManifestParser_Parse_UnknownKey(t *testing.T) {
	_, err := NewManifestParser().Parse([]byte(`
[package]
nmae = "typo"
`))
	if err == nil || !strings.Contains(err.Error(), "package.nmae") {
		t.Errorf("Parse() error = %v, want unknown key package.nmae", err)
	}
}

func TestManifestParser_Parse_Invalid(t *testing.T) {
	if _, err := NewManifestParser().Parse([]byte(`[package`)); err == nil {
		t.Error("Parse() should return error for invalid TOML")
	}
	if _, err := NewManifestParser().Parse([]byte("[package]\nname = \"\"\n")); err == nil {
		t.Error("Parse() should reject an empty name")
	}
	if _, err := NewManifestParser().Parse([]byte("[package]\nreadme = \"\"\n")); err == nil {
		t.Error("Parse() should reject an empty readme")
	}
}
