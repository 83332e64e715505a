package entities

import "testing"

func ptr[T any](v T) *T { return &v }

func TestManifestOverrides_ApplyKeepsDefaults(t *testing.T) {
	base := DefaultDescriptorConfig()
	got := ManifestOverrides{Version: ptr("0.2.0")}.Apply(base)

	if got.Version != "0.2.0" {
		t.Errorf("Version = %s, want 0.2.0", got.Version)
	}
	if got.Name != "keechain" || got.License != "MIT" || !got.HasNativeExtensions || got.IsZipSafe {
		t.Errorf("defaults not preserved: %+v", got)
	}
	if got.PackageDirectoryMap["keechain"] != "./src/keechain" {
		t.Errorf("package map lost: %v", got.PackageDirectoryMap)
	}
}

func TestManifestOverrides_DerivesZipSafety(t *testing.T) {
	base := DefaultDescriptorConfig()

	pure := ManifestOverrides{HasNativeExtensions: ptr(false)}.Apply(base)
	if !pure.IsZipSafe {
		t.Error("pure packages default to zip safe")
	}

	explicit := ManifestOverrides{HasNativeExtensions: ptr(false), IsZipSafe: ptr(false)}.Apply(base)
	if explicit.IsZipSafe {
		t.Error("explicit zip_safe must win")
	}
}

func TestManifestOverrides_PackagesPruneStaleMappings(t *testing.T) {
	base := DefaultDescriptorConfig()
	got := ManifestOverrides{Packages: []string{"wallet"}}.Apply(base)

	if _, ok := got.PackageDirectoryMap["keechain"]; ok {
		t.Errorf("stale mapping kept: %v", got.PackageDirectoryMap)
	}
	if len(got.Packages) != 1 || got.Packages[0] != "wallet" {
		t.Errorf("Packages = %v", got.Packages)
	}
}

func TestManifestOverrides_DoesNotMutateBase(t *testing.T) {
	base := DefaultDescriptorConfig()
	_ = ManifestOverrides{
		Packages:            []string{"a"},
		PackageDirectoryMap: map[string]string{"a": "lib/a"},
		Build:               BuildOverrides{Targets: []string{"linux-x86_64"}},
	}.Apply(base)

	if base.Packages[0] != "keechain" || base.PackageDirectoryMap["keechain"] != "./src/keechain" {
		t.Errorf("base mutated: %+v", base)
	}
	if len(base.Build.Targets) != 5 {
		t.Errorf("base targets mutated: %v", base.Build.Targets)
	}
}

func TestDescriptionFormat_ContentType(t *testing.T) {
	cases := map[DescriptionFormat]string{
		FormatPlain:    "text/plain",
		FormatMarkdown: "text/markdown",
		FormatRST:      "text/x-rst",
	}
	for format, want := range cases {
		if got := format.ContentType(); got != want {
			t.Errorf("%s.ContentType() = %s, want %s", format, got, want)
		}
	}
}
