package gateways

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yukibtc/keechain-dist/internal/domain/entities"
	"github.com/yukibtc/keechain-dist/internal/domain/interfaces"
	"github.com/yukibtc/keechain-dist/internal/domain/services"
)

// archiveEpoch is stamped on every archive entry so rebuilds are byte-identical.
// Zip cannot represent anything earlier.
var archiveEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// archiveEntry is one file destined for an archive, either read from disk or generated
type archiveEntry struct {
	name   string // slash-separated path inside the archive
	source string
	data   []byte
	mode   os.FileMode
}

func (e archiveEntry) content() ([]byte, error) {
	if e.data != nil || e.source == "" {
		return e.data, nil
	}
	//nolint:gosec // G304: source comes from walking a package directory
	return os.ReadFile(e.source)
}

// WheelPackager builds wheel archives from a descriptor and the project tree
type WheelPackager struct {
	nativePatterns []string
	logger         interfaces.Logger
}

// NewWheelPackager creates a wheel packager recognising native libraries by the build's patterns
func NewWheelPackager(build entities.BuildConfig, logger interfaces.Logger) *WheelPackager {
	patterns := build.NativeLibraryPatterns
	if len(patterns) == 0 {
		patterns = entities.DefaultBuildConfig().NativeLibraryPatterns
	}
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &WheelPackager{nativePatterns: patterns, logger: logger}
}

// PackageWheel writes {name}-{version}-{tag}.whl into outputDir.
//
// Native libraries come only from nativeDir, the output of the separate native
// build step. Libraries lying in the package directories are leftovers of
// earlier builds and are never packaged. A platform-tagged wheel without a
// library in nativeDir is refused and nothing is written.
func (p *WheelPackager) PackageWheel(
	ctx context.Context,
	desc *entities.PackageDescriptor,
	rootDir, nativeDir string,
	tag entities.WheelTag,
	outputDir string,
) (*entities.Artifact, error) {
	if desc.ShouldTagPlatform() && tag.IsPure() {
		return nil, fmt.Errorf("package %s has native extensions and cannot use tag %s", desc.Name, tag)
	}

	entries, nativeCount, err := p.collect(ctx, desc, rootDir, nativeDir)
	if err != nil {
		return nil, err
	}
	if desc.ShouldTagPlatform() && nativeCount == 0 {
		return nil, fmt.Errorf("%w: package %s, native dir %q", services.ErrUnresolvedNativeBuildArtifact, desc.Name, nativeDir)
	}

	distInfo := services.DistInfoDir(desc)
	entries = append(entries,
		archiveEntry{name: distInfo + "/METADATA", data: []byte(services.RenderMetadata(desc)), mode: 0644},
		archiveEntry{name: distInfo + "/WHEEL", data: []byte(services.RenderWheelFile(desc, tag)), mode: 0644},
		archiveEntry{name: distInfo + "/top_level.txt", data: []byte(services.RenderTopLevel(desc)), mode: 0644},
	)
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	if outputDir == "" {
		outputDir = "dist"
	}
	wheelPath := filepath.Join(outputDir, services.WheelFilename(desc, tag))

	if err := writeAtomically(wheelPath, func(w io.Writer) error {
		return writeWheel(w, entries, distInfo+"/RECORD")
	}); err != nil {
		return nil, fmt.Errorf("failed to create wheel: %w", err)
	}

	p.logger.Info("built wheel",
		interfaces.F("path", wheelPath),
		interfaces.F("tag", tag.String()),
		interfaces.F("files", len(entries)),
		interfaces.F("native", nativeCount),
	)

	return &entities.Artifact{
		Name:     desc.Name,
		Version:  desc.Version,
		Platform: tag.Platform,
		Path:     wheelPath,
		Kind:     entities.KindWheel,
	}, nil
}

// collect gathers package modules, data files and the native libraries of nativeDir
func (p *WheelPackager) collect(
	ctx context.Context,
	desc *entities.PackageDescriptor,
	rootDir, nativeDir string,
) ([]archiveEntry, int, error) {
	seen := make(map[string]bool)
	var entries []archiveEntry
	nativeCount := 0

	add := func(e archiveEntry, native bool) {
		if seen[e.name] {
			return
		}
		seen[e.name] = true
		entries = append(entries, e)
		if native {
			nativeCount++
		}
	}

	packageDirs := make(map[string]bool, len(desc.Packages))
	for _, pkg := range desc.Packages {
		dir, err := packageDir(desc, rootDir, pkg)
		if err != nil {
			return nil, 0, err
		}
		packageDirs[filepath.Clean(dir)] = true
	}

	for _, pkg := range desc.Packages {
		dir, _ := packageDir(desc, rootDir, pkg)
		prefix := strings.ReplaceAll(pkg, ".", "/")

		err := filepath.WalkDir(dir, func(filePath string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if d.IsDir() {
				if filePath == dir {
					return nil
				}
				// Sub-packages are collected under their own name
				if d.Name() == "__pycache__" || packageDirs[filepath.Clean(filePath)] {
					return filepath.SkipDir
				}
				return nil
			}

			rel, err := filepath.Rel(dir, filePath)
			if err != nil {
				return fmt.Errorf("failed to get relative path: %w", err)
			}
			name := path.Join(prefix, filepath.ToSlash(rel))
			isModule := filepath.Dir(rel) == "." && strings.HasSuffix(d.Name(), ".py")
			isNative := p.isNativeLibrary(d.Name())

			switch {
			case strings.HasSuffix(d.Name(), ".pyc"):
				return nil
			case isNative:
				p.logger.Debug("ignoring native library outside the native directory", interfaces.F("path", filePath))
				return nil
			case isModule:
				add(archiveEntry{name: name, source: filePath, mode: 0644}, false)
			case desc.IncludePackageData:
				add(archiveEntry{name: name, source: filePath, mode: 0644}, false)
			}
			return nil
		})
		if err != nil {
			return nil, 0, fmt.Errorf("failed to collect package %s: %w", pkg, err)
		}
	}

	if nativeDir != "" && len(desc.Packages) > 0 {
		native, err := p.nativeLibraries(nativeDir)
		if err != nil {
			return nil, 0, err
		}
		prefix := strings.ReplaceAll(desc.Packages[0], ".", "/")
		for _, lib := range native {
			add(archiveEntry{name: path.Join(prefix, filepath.Base(lib)), source: lib, mode: 0755}, true)
		}
	}

	return entries, nativeCount, nil
}

// nativeLibraries lists the native build outputs directly inside dir
func (p *WheelPackager) nativeLibraries(dir string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: native directory %s does not exist", services.ErrUnresolvedNativeBuildArtifact, dir)
		}
		return nil, fmt.Errorf("failed to read native directory: %w", err)
	}

	var libs []string
	for _, entry := range dirEntries {
		if entry.IsDir() || !p.isNativeLibrary(entry.Name()) {
			continue
		}
		libs = append(libs, filepath.Join(dir, entry.Name()))
	}
	return libs, nil
}

func (p *WheelPackager) isNativeLibrary(name string) bool {
	for _, pattern := range p.nativePatterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
		// Versioned shared objects such as libfoo.so.1
		if strings.HasPrefix(pattern, "*.") && strings.Contains(name, pattern[1:]+".") {
			return true
		}
	}
	return false
}

// packageDir resolves a logical package to an existing directory on disk
func packageDir(desc *entities.PackageDescriptor, rootDir, pkg string) (string, error) {
	dir := desc.ResolvePackageDirectory(pkg)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(rootDir, dir)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: package %s -> %s", services.ErrInvalidPackageDirectoryMapping, pkg, dir)
	}
	return dir, nil
}

// writeWheel writes entries as a zip archive followed by the RECORD file
func writeWheel(w io.Writer, entries []archiveEntry, recordName string) error {
	zw := zip.NewWriter(w)

	var record bytes.Buffer
	rw := csv.NewWriter(&record)

	for _, entry := range entries {
		data, err := entry.content()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", entry.name, err)
		}
		if err := writeZipEntry(zw, entry.name, entry.mode, data); err != nil {
			return err
		}

		sum := sha256.Sum256(data)
		if err := rw.Write([]string{
			entry.name,
			"sha256=" + base64.RawURLEncoding.EncodeToString(sum[:]),
			strconv.Itoa(len(data)),
		}); err != nil {
			return fmt.Errorf("failed to write RECORD line: %w", err)
		}
	}

	if err := rw.Write([]string{recordName, "", ""}); err != nil {
		return fmt.Errorf("failed to write RECORD line: %w", err)
	}
	rw.Flush()
	if err := rw.Error(); err != nil {
		return fmt.Errorf("failed to write RECORD: %w", err)
	}

	if err := writeZipEntry(zw, recordName, 0644, record.Bytes()); err != nil {
		return err
	}

	return zw.Close()
}

func writeZipEntry(zw *zip.Writer, name string, mode os.FileMode, data []byte) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: archiveEpoch,
	}
	header.SetMode(mode)

	fw, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create zip entry %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("failed to write zip entry %s: %w", name, err)
	}
	return nil
}

// writeAtomically writes to a temporary file next to dst and renames it into
// place, so a failed build never leaves a truncated artifact behind.
func writeAtomically(dst string, write func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	//nolint:gosec // G302: artifacts are published files
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set artifact permissions: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return nil
}
