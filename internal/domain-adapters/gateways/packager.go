package gateways

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yukibtc/keechain-dist/internal/domain/entities"
	"github.com/yukibtc/keechain-dist/internal/domain/interfaces"
	"github.com/yukibtc/keechain-dist/internal/domain/services"
)

// ManifestFileNames are copied into source distributions when present
var ManifestFileNames = []string{"dist.yml", "dist.yaml", "dist.toml"}

// SourcePackager packages the project sources into a tar.gz source distribution
type SourcePackager struct {
	logger interfaces.Logger
}

// NewSourcePackager creates a new source packager
func NewSourcePackager(logger interfaces.Logger) *SourcePackager {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &SourcePackager{logger: logger}
}

// PackageSource writes {name}-{version}.tar.gz into outputDir. Every entry
// lives under a {name}-{version}/ prefix, next to a generated PKG-INFO.
func (p *SourcePackager) PackageSource(
	ctx context.Context,
	desc *entities.PackageDescriptor,
	rootDir, documentationFile, outputDir string,
) (*entities.Artifact, error) {
	entries, err := p.collect(ctx, desc, rootDir, documentationFile)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(services.SourceFilename(desc), ".tar.gz")
	entries = append(entries, archiveEntry{name: "PKG-INFO", data: []byte(services.RenderMetadata(desc)), mode: 0644})
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	if outputDir == "" {
		outputDir = "dist"
	}
	tarballPath := filepath.Join(outputDir, services.SourceFilename(desc))

	if err := writeAtomically(tarballPath, func(w io.Writer) error {
		return p.createTarball(w, base, entries)
	}); err != nil {
		return nil, fmt.Errorf("failed to create tarball: %w", err)
	}

	p.logger.Info("built source distribution", interfaces.F("path", tarballPath), interfaces.F("files", len(entries)))

	return &entities.Artifact{
		Name:    desc.Name,
		Version: desc.Version,
		Path:    tarballPath,
		Kind:    entities.KindSdist,
	}, nil
}

// collect gathers the documentation file, any manifest and every file of the package directories
func (p *SourcePackager) collect(
	ctx context.Context,
	desc *entities.PackageDescriptor,
	rootDir, documentationFile string,
) ([]archiveEntry, error) {
	seen := make(map[string]bool)
	var entries []archiveEntry

	addFile := func(filePath string) error {
		rel, err := filepath.Rel(rootDir, filePath)
		if err != nil || strings.HasPrefix(rel, "..") {
			// Outside the project root: keep it under its base name
			rel = filepath.Base(filePath)
		}
		name := filepath.ToSlash(rel)
		if seen[name] {
			return nil
		}

		info, err := os.Stat(filePath)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", filePath, err)
		}
		seen[name] = true
		entries = append(entries, archiveEntry{name: name, source: filePath, mode: info.Mode().Perm()})
		return nil
	}

	if documentationFile != "" {
		docPath := documentationFile
		if !filepath.IsAbs(docPath) {
			docPath = filepath.Join(rootDir, docPath)
		}
		if err := addFile(docPath); err != nil {
			return nil, fmt.Errorf("%w: %s", services.ErrMissingDocumentationFile, docPath)
		}
	}

	for _, name := range ManifestFileNames {
		manifestPath := filepath.Join(rootDir, name)
		if _, err := os.Stat(manifestPath); err == nil {
			if err := addFile(manifestPath); err != nil {
				return nil, err
			}
		}
	}

	for _, pkg := range desc.Packages {
		dir, err := packageDir(desc, rootDir, pkg)
		if err != nil {
			return nil, err
		}

		err = filepath.WalkDir(dir, func(filePath string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				if d.Name() == "__pycache__" {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(d.Name(), ".pyc") || d.Type()&fs.ModeSymlink != 0 {
				return nil
			}
			return addFile(filePath)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to collect package %s: %w", pkg, err)
		}
	}

	return entries, nil
}

// createTarball writes entries as a gzipped tar archive under prefix
func (p *SourcePackager) createTarball(w io.Writer, prefix string, entries []archiveEntry) error {
	gzipWriter := gzip.NewWriter(w)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, entry := range entries {
		data, err := entry.content()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", entry.name, err)
		}

		header := &tar.Header{
			Name:     path.Join(prefix, entry.name),
			Mode:     int64(entry.mode),
			Size:     int64(len(data)),
			ModTime:  archiveEpoch,
			Typeflag: tar.TypeReg,
			Format:   tar.FormatPAX,
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write tar header: %w", err)
		}
		if _, err := tarWriter.Write(data); err != nil {
			return fmt.Errorf("failed to write file to tar: %w", err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	return gzipWriter.Close()
}
