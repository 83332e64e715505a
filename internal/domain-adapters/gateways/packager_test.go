package gateways

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yukibtc/keechain-dist/internal/domain/services"
)

// readTarball returns the contents of a tar.gz keyed by entry name
func readTarball(t *testing.T, tarballPath string) map[string]string {
	t.Helper()

	//nolint:gosec // G304: test file path
	f, err := os.Open(tarballPath)
	if err != nil {
		t.Fatalf("Failed to open tarball: %v", err)
	}
	defer func() { _ = f.Close() }()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("Failed to create gzip reader: %v", err)
	}
	tr := tar.NewReader(gzr)

	files := make(map[string]string)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Failed to read tar: %v", err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatalf("Failed to read %s: %v", header.Name, err)
		}
		files[header.Name] = string(data)
	}
	return files
}

func TestSourcePackager_PackageSource(t *testing.T) {
	root, _ := newKeechainProject(t)
	writeTree(t, root, map[string]string{"dist.yml": "name: keechain\n"})

	artifact, err := NewSourcePackager(nil).PackageSource(context.Background(), keechainDescriptor(), root, "README.md", filepath.Join(root, "dist"))
	if err != nil {
		t.Fatalf("PackageSource() error = %v", err)
	}

	if got := filepath.Base(artifact.Path); got != "keechain-0.1.0.tar.gz" {
		t.Errorf("sdist name = %s", got)
	}

	files := readTarball(t, artifact.Path)
	for _, want := range []string{
		"keechain-0.1.0/PKG-INFO",
		"keechain-0.1.0/README.md",
		"keechain-0.1.0/dist.yml",
		"keechain-0.1.0/src/keechain/__init__.py",
		"keechain-0.1.0/src/keechain/keechain.py",
		"keechain-0.1.0/src/keechain/py.typed",
	} {
		if _, ok := files[want]; !ok {
			t.Errorf("sdist is missing %s", want)
		}
	}
	for name := range files {
		if strings.Contains(name, "__pycache__") || strings.HasPrefix(name, "keechain-0.1.0/target/") {
			t.Errorf("sdist should not contain %s", name)
		}
	}

	pkgInfo := files["keechain-0.1.0/PKG-INFO"]
	if !strings.HasPrefix(pkgInfo, "Metadata-Version: 2.1\nName: keechain\nVersion: 0.1.0\n") {
		t.Errorf("PKG-INFO = %q", pkgInfo)
	}
	if !strings.HasSuffix(pkgInfo, "\n\n# Keechain\n") {
		t.Errorf("PKG-INFO should end with the long description, got %q", pkgInfo)
	}
}

func TestSourcePackager_PackageSource_Deterministic(t *testing.T) {
	root, _ := newKeechainProject(t)
	packager := NewSourcePackager(nil)

	first, err := packager.PackageSource(context.Background(), keechainDescriptor(), root, "README.md", filepath.Join(root, "a"))
	if err != nil {
		t.Fatalf("first PackageSource() error = %v", err)
	}
	second, err := packager.PackageSource(context.Background(), keechainDescriptor(), root, "README.md", filepath.Join(root, "b"))
	if err != nil {
		t.Fatalf("second PackageSource() error = %v", err)
	}

	a, _ := os.ReadFile(first.Path)  //nolint:gosec // test file
	b, _ := os.ReadFile(second.Path) //nolint:gosec // test file
	if string(a) != string(b) {
		t.Error("rebuilding the same tree produced a different sdist")
	}
}

func TestSourcePackager_PackageSource_MissingDocumentation(t *testing.T) {
	root, _ := newKeechainProject(t)

	_, err := NewSourcePackager(nil).PackageSource(context.Background(), keechainDescriptor(), root, "MISSING.md", filepath.Join(root, "dist"))
	if !errors.Is(err, services.ErrMissingDocumentationFile) {
		t.Errorf("error = %v, want ErrMissingDocumentationFile", err)
	}
}

func TestSourcePackager_PackageSource_InvalidMapping(t *testing.T) {
	root, _ := newKeechainProject(t)
	desc := keechainDescriptor()
	desc.PackageDirectoryMap = map[string]string{"keechain": "./nowhere"}

	_, err := NewSourcePackager(nil).PackageSource(context.Background(), desc, root, "README.md", filepath.Join(root, "dist"))
	if !errors.Is(err, services.ErrInvalidPackageDirectoryMapping) {
		t.Errorf("error = %v, want ErrInvalidPackageDirectoryMapping", err)
	}
}

func TestSourcePackager_PackageSource_Cancelled(t *testing.T) {
	root, _ := newKeechainProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outDir := filepath.Join(root, "dist")
	_, err := NewSourcePackager(nil).PackageSource(ctx, keechainDescriptor(), root, "README.md", outDir)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if _, statErr := os.Stat(filepath.Join(outDir, "keechain-0.1.0.tar.gz")); statErr == nil {
		t.Error("a cancelled build must not leave an artifact behind")
	}
}
