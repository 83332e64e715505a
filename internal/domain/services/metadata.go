package services

import (
	"sort"
	"strings"

	"github.com/yukibtc/keechain-dist/internal/domain/entities"
)

// GeneratorName is written to the WHEEL file of every artifact
const GeneratorName = "keechain-dist (0.1.0)"

// RenderMetadata renders core metadata 2.1 (METADATA in wheels, PKG-INFO in sdists).
// The long description is appended verbatim as the message body.
func RenderMetadata(desc *entities.PackageDescriptor) string {
	var b strings.Builder

	header := func(key, value string) {
		if value == "" {
			return
		}
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\n")
	}

	header("Metadata-Version", "2.1")
	header("Name", desc.Name)
	header("Version", desc.Version)
	header("Summary", desc.ShortDescription)
	header("Home-page", desc.URL)
	header("Author", desc.Author)
	header("License", desc.License)
	header("Description-Content-Type", desc.LongDescriptionFormat.ContentType())
	b.WriteString("\n")
	b.WriteString(desc.LongDescription)

	return b.String()
}

// RenderWheelFile renders the WHEEL file for the given tag
func RenderWheelFile(desc *entities.PackageDescriptor, tag entities.WheelTag) string {
	purelib := "true"
	if desc.HasNativeExtensions {
		purelib = "false"
	}

	var b strings.Builder
	b.WriteString("Wheel-Version: 1.0\n")
	b.WriteString("Generator: " + GeneratorName + "\n")
	b.WriteString("Root-Is-Purelib: " + purelib + "\n")
	b.WriteString("Tag: " + tag.String() + "\n")
	return b.String()
}

// RenderTopLevel lists the top-level import names, one per line, sorted
func RenderTopLevel(desc *entities.PackageDescriptor) string {
	seen := make(map[string]bool)
	names := make([]string, 0, len(desc.Packages))
	for _, pkg := range desc.Packages {
		top, _, _ := strings.Cut(pkg, ".")
		if !seen[top] {
			seen[top] = true
			names = append(names, top)
		}
	}
	sort.Strings(names)
	return strings.Join(names, "\n") + "\n"
}
