package services

import "errors"

// Packaging failures. All of them are fatal to a build and never retried.
var (
	ErrMissingDocumentationFile        = errors.New("documentation file not found")
	ErrUnreadableDocumentationEncoding = errors.New("documentation file is not valid UTF-8 text")
	ErrInvalidPackageDirectoryMapping  = errors.New("package directory does not exist")
	ErrUnresolvedNativeBuildArtifact   = errors.New("no compiled native extension found")
	ErrInvalidDescriptor               = errors.New("invalid package descriptor")
	ErrUnsupportedPlatform             = errors.New("unsupported target platform")
	ErrSharedNativeDirectory           = errors.New("native directory is shared by several targets")
)
