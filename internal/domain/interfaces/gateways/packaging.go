// Package gateways defines contracts for components that touch the filesystem
// or external tooling on behalf of the domain.
package gateways

import (
	"context"

	"github.com/yukibtc/keechain-dist/internal/domain/entities"
)

// WheelPackager emits a tagged wheel archive for a descriptor
type WheelPackager interface {
	PackageWheel(
		ctx context.Context,
		desc *entities.PackageDescriptor,
		rootDir, nativeDir string,
		tag entities.WheelTag,
		outputDir string,
	) (*entities.Artifact, error)
}

// SourcePackager emits a source distribution for a descriptor.
// documentationFile is the README the descriptor was built from.
type SourcePackager interface {
	PackageSource(
		ctx context.Context,
		desc *entities.PackageDescriptor,
		rootDir, documentationFile, outputDir string,
	) (*entities.Artifact, error)
}

// Signer produces detached signatures for emitted artifacts
type Signer interface {
	// SignDetached writes an armored signature next to filePath and returns its path
	SignDetached(ctx context.Context, filePath string) (string, error)
}

// NativeBuilder compiles the native library for one target before it is packaged
type NativeBuilder interface {
	BuildNative(ctx context.Context, build entities.BuildConfig, rootDir, target, nativeDir string) error
}
