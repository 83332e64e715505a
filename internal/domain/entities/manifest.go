package entities

// ManifestOverrides carries the values a manifest file sets explicitly.
// Nil fields keep the value of the config they are applied to.
type ManifestOverrides struct {
	Name                  *string
	Version               *string
	ShortDescription      *string
	LongDescriptionFormat *DescriptionFormat
	DocumentationFile     *string
	Packages              []string
	PackageDirectoryMap   map[string]string
	IncludePackageData    *bool
	IsZipSafe             *bool
	URL                   *string
	Author                *string
	License               *string
	HasNativeExtensions   *bool
	Build                 BuildOverrides
}

// BuildOverrides are the build section counterparts of ManifestOverrides
type BuildOverrides struct {
	PythonTag             *string
	ABITag                *string
	MacOSMinimum          *string
	ManylinuxPolicy       *string
	NativeLibraryPatterns []string
	Targets               []string
	NativeCommand         *string
	TimeoutMinutes        *int
}

// Apply returns base with the overrides applied.
//
// A manifest that flips HasNativeExtensions without saying anything about
// zip safety gets IsZipSafe derived as its negation. Replacing Packages
// without a directory map drops mappings for packages no longer listed.
func (o ManifestOverrides) Apply(base DescriptorConfig) DescriptorConfig {
	out := base
	out.Packages = append([]string(nil), base.Packages...)
	out.PackageDirectoryMap = make(map[string]string, len(base.PackageDirectoryMap))
	for k, v := range base.PackageDirectoryMap {
		out.PackageDirectoryMap[k] = v
	}

	setString(&out.Name, o.Name)
	setString(&out.Version, o.Version)
	setString(&out.ShortDescription, o.ShortDescription)
	setString(&out.DocumentationFile, o.DocumentationFile)
	setString(&out.URL, o.URL)
	setString(&out.Author, o.Author)
	setString(&out.License, o.License)
	if o.LongDescriptionFormat != nil {
		out.LongDescriptionFormat = *o.LongDescriptionFormat
	}
	setBool(&out.IncludePackageData, o.IncludePackageData)
	setBool(&out.HasNativeExtensions, o.HasNativeExtensions)

	switch {
	case o.IsZipSafe != nil:
		out.IsZipSafe = *o.IsZipSafe
	case o.HasNativeExtensions != nil:
		out.IsZipSafe = !*o.HasNativeExtensions
	}

	if o.Packages != nil {
		out.Packages = append([]string(nil), o.Packages...)
		if o.PackageDirectoryMap == nil {
			listed := make(map[string]bool, len(out.Packages))
			for _, pkg := range out.Packages {
				listed[pkg] = true
			}
			for name := range out.PackageDirectoryMap {
				if !listed[name] {
					delete(out.PackageDirectoryMap, name)
				}
			}
		}
	}
	if o.PackageDirectoryMap != nil {
		out.PackageDirectoryMap = make(map[string]string, len(o.PackageDirectoryMap))
		for k, v := range o.PackageDirectoryMap {
			out.PackageDirectoryMap[k] = v
		}
	}

	out.Build = o.Build.apply(base.Build)
	return out
}

func (o BuildOverrides) apply(base BuildConfig) BuildConfig {
	out := base
	setString(&out.PythonTag, o.PythonTag)
	setString(&out.ABITag, o.ABITag)
	setString(&out.MacOSMinimum, o.MacOSMinimum)
	setString(&out.ManylinuxPolicy, o.ManylinuxPolicy)
	if o.NativeLibraryPatterns != nil {
		out.NativeLibraryPatterns = append([]string(nil), o.NativeLibraryPatterns...)
	}
	if o.Targets != nil {
		out.Targets = append([]string(nil), o.Targets...)
	}
	setString(&out.NativeCommand, o.NativeCommand)
	if o.TimeoutMinutes != nil {
		out.TimeoutMinutes = *o.TimeoutMinutes
	}
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
