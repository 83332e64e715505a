// Package entities defines core domain models and data structures.
package entities

import "fmt"

// ArtifactKind distinguishes the distributable archive formats
type ArtifactKind string

const (
	KindWheel ArtifactKind = "wheel"
	KindSdist ArtifactKind = "sdist"
)

// Artifact represents a distributable archive emitted by a build
type Artifact struct {
	Name     string
	Version  string
	Platform string // wheel platform tag, empty for sdists
	Path     string
	Kind     ArtifactKind
}

// PureTag is the interpreter-agnostic tag used when no native code is bundled
var PureTag = WheelTag{Python: "py3", ABI: "none", Platform: "any"}

// WheelTag identifies the interpreter, ABI and platform an artifact is valid for
type WheelTag struct {
	Python   string
	ABI      string
	Platform string
}

func (t WheelTag) String() string {
	return fmt.Sprintf("%s-%s-%s", t.Python, t.ABI, t.Platform)
}

// IsPure reports whether the tag is the universal py3-none-any tag
func (t WheelTag) IsPure() bool {
	return t == PureTag
}
