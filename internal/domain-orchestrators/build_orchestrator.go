// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yukibtc/keechain-dist/internal/domain/entities"
	"github.com/yukibtc/keechain-dist/internal/domain/interfaces"
	"github.com/yukibtc/keechain-dist/internal/domain/interfaces/gateways"
	"github.com/yukibtc/keechain-dist/internal/domain/interfaces/repositories"
	"github.com/yukibtc/keechain-dist/internal/domain/services"
)

// TargetPlaceholder in BuildRequest.NativeDir is replaced by each target,
// e.g. "target/{target}/release".
const TargetPlaceholder = "{target}"

// BuildOrchestratorDeps wires the orchestrator to its collaborators.
// Packagers are created per build since their settings come from the manifest.
type BuildOrchestratorDeps struct {
	Manifests         repositories.ManifestRepository
	NewWheelPackager  func(build entities.BuildConfig) gateways.WheelPackager
	NewSourcePackager func() gateways.SourcePackager
	NativeBuilder     gateways.NativeBuilder // optional
	Digests           *services.DigestService
	Signer            gateways.Signer // optional
	Logger            interfaces.Logger
}

// BuildOrchestrator coordinates the complete distribution build workflow
type BuildOrchestrator struct {
	deps BuildOrchestratorDeps
}

// NewBuildOrchestrator creates a new build orchestrator
func NewBuildOrchestrator(deps BuildOrchestratorDeps) *BuildOrchestrator {
	if deps.Logger == nil {
		deps.Logger = &interfaces.NoOpLogger{}
	}
	if deps.Digests == nil {
		deps.Digests = services.NewDigestService(deps.Logger)
	}
	return &BuildOrchestrator{deps: deps}
}

// BuildRequest describes one invocation of the build
type BuildRequest struct {
	RootDir      string
	NativeDir    string
	OutputDir    string
	Targets      []string
	AllPlatforms bool
	Sdist        bool
	SkipNative   bool // do not run the manifest's native build command
	PythonTag    string
	ABITag       string
	Concurrency  int
}

// BuildResult contains the result of a build operation
type BuildResult struct {
	Descriptor    *entities.PackageDescriptor
	Artifacts     []*entities.Artifact
	Signatures    []string
	ChecksumsPath string
	TotalDuration time.Duration
}

type wheelJob struct {
	target string
	tag    entities.WheelTag
}

// Build describes the project, then emits wheels, an optional sdist, digests
// and optional signatures. The first failure aborts the build.
func (o *BuildOrchestrator) Build(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	startTime := time.Now()
	logger := o.deps.Logger

	if req.OutputDir == "" {
		req.OutputDir = "dist"
	}

	// Step 1: Load the manifest
	config, err := o.deps.Manifests.Load(ctx, req.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	if req.PythonTag != "" {
		config.Build.PythonTag = req.PythonTag
	}
	if req.ABITag != "" {
		config.Build.ABITag = req.ABITag
	}

	// Step 2: Describe
	desc, err := services.NewDescriptorService(*config, logger).Describe(req.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to describe package: %w", err)
	}

	// Step 3: Resolve every tag before writing anything
	jobs, err := o.planWheels(desc, config.Build, req)
	if err != nil {
		return nil, err
	}

	logger.Info("building distribution",
		interfaces.F("name", desc.Name),
		interfaces.F("version", desc.Version),
		interfaces.F("wheels", len(jobs)),
		interfaces.F("sdist", req.Sdist),
	)

	// Step 4: Native builds, sequentially
	if o.deps.NativeBuilder != nil && config.Build.NativeCommand != "" && desc.ShouldTagPlatform() && !req.SkipNative {
		for _, job := range jobs {
			nativeDir := strings.ReplaceAll(req.NativeDir, TargetPlaceholder, job.target)
			if err := o.deps.NativeBuilder.BuildNative(ctx, config.Build, req.RootDir, job.target, nativeDir); err != nil {
				return nil, err
			}
		}
	}

	// Step 5: Wheels, one goroutine per target
	wheels := make([]*entities.Artifact, len(jobs))
	packager := o.deps.NewWheelPackager(config.Build)

	g, gctx := errgroup.WithContext(ctx)
	if req.Concurrency > 0 {
		g.SetLimit(req.Concurrency)
	}
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			nativeDir := strings.ReplaceAll(req.NativeDir, TargetPlaceholder, job.target)
			artifact, err := packager.PackageWheel(gctx, desc, req.RootDir, nativeDir, job.tag, req.OutputDir)
			if err != nil {
				return fmt.Errorf("packaging wheel for %s failed: %w", job.tag, err)
			}
			wheels[i] = artifact
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &BuildResult{Descriptor: desc, Artifacts: wheels}

	// Step 6: Source distribution
	if req.Sdist {
		sdist, err := o.deps.NewSourcePackager().PackageSource(ctx, desc, req.RootDir, config.DocumentationFile, req.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("packaging source distribution failed: %w", err)
		}
		result.Artifacts = append(result.Artifacts, sdist)
	}

	// Step 7: Digests
	for _, artifact := range result.Artifacts {
		if _, err := o.deps.Digests.GenerateAll(artifact.Path); err != nil {
			return nil, fmt.Errorf("digest generation failed for %s: %w", filepath.Base(artifact.Path), err)
		}
	}
	checksumsPath, err := o.deps.Digests.WriteChecksumsFile(req.OutputDir, result.Artifacts)
	if err != nil {
		return nil, err
	}
	result.ChecksumsPath = checksumsPath

	// Step 8: Signatures
	if o.deps.Signer != nil {
		for _, artifact := range result.Artifacts {
			sigPath, err := o.deps.Signer.SignDetached(ctx, artifact.Path)
			if err != nil {
				return nil, fmt.Errorf("signing failed: %w", err)
			}
			result.Signatures = append(result.Signatures, sigPath)
		}
	}

	result.TotalDuration = time.Since(startTime)
	return result, nil
}

// planWheels decides which wheels to build. Pure packages get exactly one
// py3-none-any wheel; native packages get one wheel per distinct platform
// tag and never a universal one.
// Several platform wheels need a per-target native directory.
func (o *BuildOrchestrator) planWheels(desc *entities.PackageDescriptor, build entities.BuildConfig, req BuildRequest) ([]wheelJob, error) {
	if !desc.ShouldTagPlatform() {
		return []wheelJob{{target: "any", tag: entities.PureTag}}, nil
	}

	targets := req.Targets
	switch {
	case req.AllPlatforms:
		targets = build.Targets
	case len(targets) == 0:
		targets = []string{services.DetectPlatform()}
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no target platforms configured")
	}

	resolver := services.NewTagResolver(build)
	seen := make(map[entities.WheelTag]bool)
	jobs := make([]wheelJob, 0, len(targets))
	for _, target := range targets {
		tag, err := resolver.ResolveTag(desc, target)
		if err != nil {
			return nil, err
		}
		if seen[tag] {
			continue
		}
		seen[tag] = true
		jobs = append(jobs, wheelJob{target: target, tag: tag})
	}

	// One native directory would hand the last target's library to every wheel
	if len(jobs) > 1 && !strings.Contains(req.NativeDir, TargetPlaceholder) {
		return nil, fmt.Errorf("%w: %d targets need %s in the native directory %q",
			services.ErrSharedNativeDirectory, len(jobs), TargetPlaceholder, req.NativeDir)
	}

	return jobs, nil
}

// GetBuildSummary returns a human-readable summary of the build
func (r *BuildResult) GetBuildSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Build successful!\nPackage: %s %s\n", r.Descriptor.Name, r.Descriptor.Version)
	for _, artifact := range r.Artifacts {
		fmt.Fprintf(&b, "  %-6s %s\n", artifact.Kind, filepath.Base(artifact.Path))
	}
	if r.ChecksumsPath != "" {
		fmt.Fprintf(&b, "Checksums: %s\n", r.ChecksumsPath)
	}
	if len(r.Signatures) > 0 {
		fmt.Fprintf(&b, "Signatures: %d\n", len(r.Signatures))
	}
	fmt.Fprintf(&b, "Total: %v", r.TotalDuration.Round(time.Millisecond))
	return b.String()
}
