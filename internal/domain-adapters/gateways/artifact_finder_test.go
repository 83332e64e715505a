package gateways

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestArtifactFinder_FindRecursive(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"linux/keechain-0.1.0-cp311-cp311-linux_x86_64.whl":        "",
		"linux/keechain-0.1.0-cp311-cp311-linux_x86_64.whl.sha256": "",
		"macos/keechain-0.1.0-cp311-cp311-macosx_11_0_arm64.whl":   "",
		"keechain-0.1.0.tar.gz":                                    "",
		"keechain-0.0.9-cp311-cp311-linux_x86_64.whl":              "",
		"other/keechain_extras-0.1.0-cp311-cp311-linux_x86_64.whl": "",
		"SHA256SUMS":                                               "",
	})

	found, err := NewArtifactFinder().FindRecursive(dir, keechainDescriptor())
	if err != nil {
		t.Fatalf("FindRecursive() error = %v", err)
	}

	var names []string
	for _, path := range found {
		rel, _ := filepath.Rel(dir, path)
		names = append(names, filepath.ToSlash(rel))
	}
	want := []string{
		"keechain-0.1.0.tar.gz",
		"linux/keechain-0.1.0-cp311-cp311-linux_x86_64.whl",
		"macos/keechain-0.1.0-cp311-cp311-macosx_11_0_arm64.whl",
	}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("FindRecursive() = %v, want %v", names, want)
	}
}

func TestArtifactFinder_FindRecursive_MissingDir(t *testing.T) {
	_, err := NewArtifactFinder().FindRecursive(filepath.Join(t.TempDir(), "nope"), keechainDescriptor())
	if err == nil {
		t.Error("FindRecursive() should fail for a missing directory")
	}
}

func TestArtifactFinder_FindByGlob(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"keechain-0.1.0-cp311-cp311-linux_x86_64.whl":     "",
		"keechain-0.1.0.tar.gz":                           "",
		"nested/keechain-0.1.0-cp311-cp311-win_amd64.whl": "",
	})

	found, err := NewArtifactFinder().FindByGlob(dir, keechainDescriptor())
	if err != nil {
		t.Fatalf("FindByGlob() error = %v", err)
	}
	if len(found) != 2 {
		t.Errorf("FindByGlob() = %v, want the two top-level artifacts", found)
	}
}

func TestArtifactFinder_FindByGlob_MissingDir(t *testing.T) {
	_, err := NewArtifactFinder().FindByGlob(filepath.Join(t.TempDir(), "nope"), keechainDescriptor())
	if err == nil {
		t.Error("FindByGlob() should fail for a missing directory")
	}
}
