package services

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yukibtc/keechain-dist/internal/domain/entities"
)

// ReleaseStatus represents the readiness of a distribution directory for upload
type ReleaseStatus string

// Release validation statuses
const (
	StatusReady               ReleaseStatus = "ready"
	StatusNoArtifacts         ReleaseStatus = "no_artifacts"
	StatusPlatformMismatch    ReleaseStatus = "platform_mismatch"
	StatusUnexpectedPlatforms ReleaseStatus = "unexpected_platforms"
	StatusPureWheelPresent    ReleaseStatus = "pure_wheel_present"
)

// ReleaseValidation contains the validation result for a set of built wheels.
// Tags are full python-abi-platform tags, so wheels built for another
// interpreter do not count as present.
type ReleaseValidation struct {
	Status         ReleaseStatus
	ExpectedTags   []string
	AvailableTags  []string
	MissingTags    []string
	UnexpectedTags []string
	ExpectedCount  int
	AvailableCount int
}

// IsReady returns true if every expected wheel is present and nothing else is
func (rv *ReleaseValidation) IsReady() bool {
	return rv.Status == StatusReady
}

// ErrorMessage returns a human-readable error message if not ready
func (rv *ReleaseValidation) ErrorMessage() string {
	switch rv.Status {
	case StatusReady:
		return ""
	case StatusNoArtifacts:
		return fmt.Sprintf("No wheels found (expected: %d wheels)", rv.ExpectedCount)
	case StatusPlatformMismatch:
		msg := fmt.Sprintf("Wheel tag mismatch (expected: %d, have: %d)", rv.ExpectedCount, rv.AvailableCount)
		if len(rv.MissingTags) > 0 {
			msg += fmt.Sprintf("\n   Missing: %s", strings.Join(rv.MissingTags, ", "))
		}
		if len(rv.UnexpectedTags) > 0 {
			msg += fmt.Sprintf("\n   Unexpected: %s", strings.Join(rv.UnexpectedTags, ", "))
		}
		return msg
	case StatusUnexpectedPlatforms:
		return fmt.Sprintf("Unexpected wheels found: %s", strings.Join(rv.UnexpectedTags, ", "))
	case StatusPureWheelPresent:
		return "A universal py3-none-any wheel was found for a package with native extensions"
	default:
		return "Unknown status"
	}
}

// ReleaseService checks that a distribution directory holds exactly the expected wheels
type ReleaseService struct {
	tags *TagResolver
}

// NewReleaseService creates a new release service
func NewReleaseService(tags *TagResolver) *ReleaseService {
	return &ReleaseService{tags: tags}
}

// ValidateRelease compares the wheels among artifactPaths against the wheels
// expected for targets. Non-wheel files and wheels of other packages are ignored.
func (s *ReleaseService) ValidateRelease(desc *entities.PackageDescriptor, targets []string, artifactPaths []string) (*ReleaseValidation, error) {
	validation := &ReleaseValidation{}

	expected, err := s.expectedTags(desc, targets)
	if err != nil {
		return nil, err
	}
	validation.ExpectedTags = expected
	validation.ExpectedCount = len(expected)

	available, hasPure := s.availableTags(desc, artifactPaths)
	validation.AvailableTags = available
	validation.AvailableCount = len(available)

	validation.MissingTags = difference(expected, available)
	validation.UnexpectedTags = difference(available, expected)

	switch {
	case validation.AvailableCount == 0:
		validation.Status = StatusNoArtifacts
	case hasPure && desc.ShouldTagPlatform():
		validation.Status = StatusPureWheelPresent
	case len(validation.MissingTags) > 0 || validation.AvailableCount != validation.ExpectedCount:
		validation.Status = StatusPlatformMismatch
	case len(validation.UnexpectedTags) > 0:
		validation.Status = StatusUnexpectedPlatforms
	default:
		validation.Status = StatusReady
	}

	return validation, nil
}

func (s *ReleaseService) expectedTags(desc *entities.PackageDescriptor, targets []string) ([]string, error) {
	if !desc.ShouldTagPlatform() {
		return []string{entities.PureTag.String()}, nil
	}

	set := make(map[string]bool)
	for _, target := range targets {
		tag, err := s.tags.ResolveTag(desc, target)
		if err != nil {
			return nil, err
		}
		set[tag.String()] = true
	}
	return sortedKeys(set), nil
}

// availableTags extracts the tags of wheel filenames of the form
// name-version-python-abi-platform.whl
func (s *ReleaseService) availableTags(desc *entities.PackageDescriptor, artifactPaths []string) ([]string, bool) {
	prefix := fmt.Sprintf("%s-%s-", EscapeComponent(desc.Name), EscapeComponent(desc.Version))
	set := make(map[string]bool)
	hasPure := false

	for _, path := range artifactPaths {
		basename := filepath.Base(path)
		if !strings.HasSuffix(basename, ".whl") || !strings.HasPrefix(basename, prefix) {
			continue
		}

		tagPart := strings.TrimSuffix(strings.TrimPrefix(basename, prefix), ".whl")
		parts := strings.SplitN(tagPart, "-", 3)
		if len(parts) != 3 {
			continue
		}

		tag := entities.WheelTag{Python: parts[0], ABI: parts[1], Platform: parts[2]}
		if tag.IsPure() {
			hasPure = true
		}
		set[tag.String()] = true
	}

	return sortedKeys(set), hasPure
}

// difference returns the elements of a that are not in b
func difference(a, b []string) []string {
	in := make(map[string]bool, len(b))
	for _, v := range b {
		in[v] = true
	}

	var out []string
	for _, v := range a {
		if !in[v] {
			out = append(out, v)
		}
	}
	return out
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
