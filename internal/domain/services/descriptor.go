package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/mod/semver"

	"github.com/yukibtc/keechain-dist/internal/domain/entities"
	"github.com/yukibtc/keechain-dist/internal/domain/interfaces"
)

// DescriptorService turns authored descriptor values into a PackageDescriptor
type DescriptorService struct {
	config entities.DescriptorConfig
	logger interfaces.Logger
}

// NewDescriptorService creates a descriptor service for the given authored values
func NewDescriptorService(config entities.DescriptorConfig, logger interfaces.Logger) *DescriptorService {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &DescriptorService{config: config, logger: logger}
}

// Describe builds the descriptor of the project rooted at rootDir.
//
// The documentation file is read once, in full, and becomes the long
// description verbatim. Nothing is returned on error.
func (s *DescriptorService) Describe(rootDir string) (*entities.PackageDescriptor, error) {
	docPath := s.config.DocumentationFile
	if !filepath.IsAbs(docPath) {
		docPath = filepath.Join(rootDir, docPath)
	}

	if info, statErr := os.Stat(docPath); statErr == nil && info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrMissingDocumentationFile, docPath)
	}

	//nolint:gosec // G304: docPath is the project's documentation file
	data, err := os.ReadFile(docPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingDocumentationFile, docPath)
		}
		return nil, fmt.Errorf("failed to read documentation file %s: %w", docPath, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s", ErrUnreadableDocumentationEncoding, docPath)
	}

	desc := &entities.PackageDescriptor{
		Name:                  s.config.Name,
		Version:               s.config.Version,
		ShortDescription:      s.config.ShortDescription,
		LongDescription:       string(data),
		LongDescriptionFormat: s.config.LongDescriptionFormat,
		Packages:              append([]string(nil), s.config.Packages...),
		PackageDirectoryMap:   make(map[string]string, len(s.config.PackageDirectoryMap)),
		IncludePackageData:    s.config.IncludePackageData,
		IsZipSafe:             s.config.IsZipSafe,
		URL:                   s.config.URL,
		Author:                s.config.Author,
		License:               s.config.License,
		HasNativeExtensions:   s.config.HasNativeExtensions,
	}
	for k, v := range s.config.PackageDirectoryMap {
		desc.PackageDirectoryMap[k] = v
	}

	if err := Validate(desc); err != nil {
		return nil, err
	}

	s.logger.Debug("described package",
		interfaces.F("name", desc.Name),
		interfaces.F("version", desc.Version),
		interfaces.F("documentation", docPath),
		interfaces.F("native", desc.HasNativeExtensions),
	)

	return desc, nil
}

// Validate checks the descriptor invariants and reports every violation at once
func Validate(desc *entities.PackageDescriptor) error {
	var problems []string

	if desc.Name == "" {
		problems = append(problems, "name is required")
	}
	if !semver.IsValid("v" + strings.TrimPrefix(desc.Version, "v")) {
		problems = append(problems, fmt.Sprintf("version %q is not a semantic version", desc.Version))
	}
	if !desc.LongDescriptionFormat.Valid() {
		problems = append(problems, fmt.Sprintf("unknown long description format %q", desc.LongDescriptionFormat))
	}
	if desc.HasNativeExtensions && desc.IsZipSafe {
		problems = append(problems, "packages with native extensions cannot be zip safe")
	}
	if len(desc.Packages) == 0 {
		problems = append(problems, "at least one package is required")
	}

	declared := make(map[string]bool, len(desc.Packages))
	for _, pkg := range desc.Packages {
		if pkg == "" {
			problems = append(problems, "package names cannot be empty")
			continue
		}
		if declared[pkg] {
			problems = append(problems, fmt.Sprintf("package %q listed twice", pkg))
		}
		declared[pkg] = true
	}

	unknown := make([]string, 0)
	for name := range desc.PackageDirectoryMap {
		if !declared[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		problems = append(problems, fmt.Sprintf("directory mapping for undeclared packages: %s", strings.Join(unknown, ", ")))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDescriptor, strings.Join(problems, "; "))
	}
	return nil
}
