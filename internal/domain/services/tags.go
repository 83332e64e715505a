package services

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"github.com/yukibtc/keechain-dist/internal/domain/entities"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.]+`)

// TagResolver computes wheel tags for a descriptor and a target platform
type TagResolver struct {
	build entities.BuildConfig
}

// NewTagResolver creates a resolver, filling unset fields from the defaults
func NewTagResolver(build entities.BuildConfig) *TagResolver {
	defaults := entities.DefaultBuildConfig()
	if build.PythonTag == "" {
		build.PythonTag = defaults.PythonTag
	}
	if build.ABITag == "" {
		build.ABITag = build.PythonTag
	}
	if build.MacOSMinimum == "" {
		build.MacOSMinimum = defaults.MacOSMinimum
	}
	return &TagResolver{build: build}
}

// ResolveTag returns the tag an artifact for target must carry. Descriptors
// without native extensions always get the pure tag, whatever the target.
func (r *TagResolver) ResolveTag(desc *entities.PackageDescriptor, target string) (entities.WheelTag, error) {
	if !desc.ShouldTagPlatform() {
		return entities.PureTag, nil
	}

	platform, err := r.PlatformTag(target)
	if err != nil {
		return entities.WheelTag{}, err
	}

	return entities.WheelTag{
		Python:   r.build.PythonTag,
		ABI:      r.build.ABITag,
		Platform: platform,
	}, nil
}

// PlatformTag maps an os-arch target (e.g. linux-x86_64, darwin-arm64) to a wheel platform tag
func (r *TagResolver) PlatformTag(target string) (string, error) {
	goos, arch, ok := strings.Cut(strings.ToLower(target), "-")
	if !ok || goos == "" || arch == "" {
		return "", fmt.Errorf("%w: %q (expected os-arch)", ErrUnsupportedPlatform, target)
	}

	switch normalizeArch(arch) {
	case "x86_64":
		switch goos {
		case "linux":
			return r.linuxPrefix() + "_x86_64", nil
		case "darwin", "macos":
			return r.macosPrefix() + "_x86_64", nil
		case "windows":
			return "win_amd64", nil
		}
	case "arm64":
		switch goos {
		case "linux":
			return r.linuxPrefix() + "_aarch64", nil
		case "darwin", "macos":
			return r.macosPrefix() + "_arm64", nil
		case "windows":
			return "win_arm64", nil
		}
	case "i686":
		switch goos {
		case "linux":
			return r.linuxPrefix() + "_i686", nil
		case "windows":
			return "win32", nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, target)
}

func (r *TagResolver) linuxPrefix() string {
	if r.build.ManylinuxPolicy != "" {
		return r.build.ManylinuxPolicy
	}
	return "linux"
}

func (r *TagResolver) macosPrefix() string {
	return "macosx_" + strings.ReplaceAll(r.build.MacOSMinimum, ".", "_")
}

func normalizeArch(arch string) string {
	switch arch {
	case "amd64", "x86_64", "x64":
		return "x86_64"
	case "arm64", "aarch64":
		return "arm64"
	case "386", "i386", "i686", "x86":
		return "i686"
	default:
		return arch
	}
}

// EscapeComponent makes a name or version safe for use in an artifact filename
func EscapeComponent(s string) string {
	return unsafeFilenameChars.ReplaceAllString(s, "_")
}

// WheelFilename returns {name}-{version}-{python}-{abi}-{platform}.whl
func WheelFilename(desc *entities.PackageDescriptor, tag entities.WheelTag) string {
	return fmt.Sprintf("%s-%s-%s.whl", EscapeComponent(desc.Name), EscapeComponent(desc.Version), tag)
}

// SourceFilename returns {name}-{version}.tar.gz
func SourceFilename(desc *entities.PackageDescriptor) string {
	return fmt.Sprintf("%s-%s.tar.gz", EscapeComponent(desc.Name), EscapeComponent(desc.Version))
}

// DistInfoDir returns the metadata directory name used inside wheels
func DistInfoDir(desc *entities.PackageDescriptor) string {
	return fmt.Sprintf("%s-%s.dist-info", EscapeComponent(desc.Name), EscapeComponent(desc.Version))
}

// DetectPlatform returns the host platform in os-arch form
func DetectPlatform() string {
	arch := runtime.GOARCH

	// Map Go's GOARCH to the names used in target lists
	archMap := map[string]string{
		"amd64": "x86_64",
		"arm64": "arm64",
		"386":   "i386",
	}
	if mapped := archMap[arch]; mapped != "" {
		arch = mapped
	}

	return fmt.Sprintf("%s-%s", runtime.GOOS, arch)
}
