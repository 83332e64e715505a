package orchestrators

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/yukibtc/keechain-dist/internal/domain/entities"
	"github.com/yukibtc/keechain-dist/internal/domain/interfaces/gateways"
	"github.com/yukibtc/keechain-dist/internal/domain/services"
)

// Mock implementations for testing
type mockManifestRepository struct {
	config *entities.DescriptorConfig
	err    error
}

func (m *mockManifestRepository) Load(_ context.Context, _ string) (*entities.DescriptorConfig, error) {
	if m.err != nil {
		return nil, m.err
	}
	config := *m.config
	return &config, nil
}

type mockWheelPackager struct {
	mu         sync.Mutex
	tags       []entities.WheelTag
	nativeDirs []string
	failOn     string
}

func (m *mockWheelPackager) PackageWheel(_ context.Context, desc *entities.PackageDescriptor, _, nativeDir string, tag entities.WheelTag, outputDir string) (*entities.Artifact, error) {
	if m.failOn != "" && tag.Platform == m.failOn {
		return nil, errors.New("native library missing")
	}

	m.mu.Lock()
	m.tags = append(m.tags, tag)
	m.nativeDirs = append(m.nativeDirs, nativeDir)
	m.mu.Unlock()

	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return nil, err
	}
	path := filepath.Join(outputDir, services.WheelFilename(desc, tag))
	if err := os.WriteFile(path, []byte(tag.String()), 0600); err != nil {
		return nil, err
	}
	return &entities.Artifact{Name: desc.Name, Version: desc.Version, Platform: tag.Platform, Path: path, Kind: entities.KindWheel}, nil
}

type mockSourcePackager struct {
	docFile string
	err     error
}

func (m *mockSourcePackager) PackageSource(_ context.Context, desc *entities.PackageDescriptor, _, documentationFile, outputDir string) (*entities.Artifact, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.docFile = documentationFile
	path := filepath.Join(outputDir, services.SourceFilename(desc))
	if err := os.WriteFile(path, []byte("sdist"), 0600); err != nil {
		return nil, err
	}
	return &entities.Artifact{Name: desc.Name, Version: desc.Version, Path: path, Kind: entities.KindSdist}, nil
}

type mockNativeBuilder struct {
	targets    []string
	nativeDirs []string
	err        error
}

func (m *mockNativeBuilder) BuildNative(_ context.Context, _ entities.BuildConfig, _, target, nativeDir string) error {
	m.targets = append(m.targets, target)
	m.nativeDirs = append(m.nativeDirs, nativeDir)
	return m.err
}

type mockSigner struct {
	signed []string
}

func (m *mockSigner) SignDetached(_ context.Context, filePath string) (string, error) {
	m.signed = append(m.signed, filePath)
	return filePath + ".asc", nil
}

func newTestProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte("# Keechain\n"), 0600); err != nil {
		t.Fatalf("failed to write README: %v", err)
	}
	return root
}

func newTestOrchestrator(config entities.DescriptorConfig, wheels *mockWheelPackager, sdist *mockSourcePackager, signer gateways.Signer) *BuildOrchestrator {
	return NewBuildOrchestrator(BuildOrchestratorDeps{
		Manifests: &mockManifestRepository{config: &config},
		NewWheelPackager: func(entities.BuildConfig) gateways.WheelPackager {
			return wheels
		},
		NewSourcePackager: func() gateways.SourcePackager {
			return sdist
		},
		Signer: signer,
	})
}

func TestBuildOrchestrator_Build_AllPlatforms(t *testing.T) {
	root := newTestProject(t)
	out := filepath.Join(root, "dist")
	wheels := &mockWheelPackager{}
	sdist := &mockSourcePackager{}

	orch := newTestOrchestrator(entities.DefaultDescriptorConfig(), wheels, sdist, nil)
	result, err := orch.Build(context.Background(), BuildRequest{
		RootDir:      root,
		NativeDir:    filepath.Join(root, "target", TargetPlaceholder),
		OutputDir:    out,
		AllPlatforms: true,
		Sdist:        true,
		Concurrency:  2,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(result.Artifacts) != 6 {
		t.Fatalf("got %d artifacts, want 5 wheels and 1 sdist", len(result.Artifacts))
	}
	for _, tag := range wheels.tags {
		if tag.IsPure() {
			t.Errorf("native package produced pure wheel %s", tag)
		}
	}
	for _, dir := range wheels.nativeDirs {
		if strings.Contains(dir, TargetPlaceholder) {
			t.Errorf("native dir %q still contains the target placeholder", dir)
		}
	}
	if sdist.docFile != "README.md" {
		t.Errorf("sdist documentation file = %q, want README.md", sdist.docFile)
	}

	data, err := os.ReadFile(result.ChecksumsPath) //nolint:gosec // test file
	if err != nil {
		t.Fatalf("failed to read checksums: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 6 {
		t.Errorf("SHA256SUMS has %d lines, want 6", len(lines))
	}
	for _, artifact := range result.Artifacts {
		if _, err := os.Stat(artifact.Path + ".sha256"); err != nil {
			t.Errorf("missing sha256 sidecar for %s", artifact.Path)
		}
	}
}

func TestBuildOrchestrator_Build_PureSingleWheel(t *testing.T) {
	root := newTestProject(t)
	config := entities.DefaultDescriptorConfig()
	config.HasNativeExtensions = false
	wheels := &mockWheelPackager{}

	orch := newTestOrchestrator(config, wheels, &mockSourcePackager{}, nil)
	result, err := orch.Build(context.Background(), BuildRequest{
		RootDir:      root,
		OutputDir:    filepath.Join(root, "dist"),
		AllPlatforms: true,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(wheels.tags) != 1 || wheels.tags[0] != entities.PureTag {
		t.Errorf("tags = %v, want a single %s", wheels.tags, entities.PureTag)
	}
	if got := filepath.Base(result.Artifacts[0].Path); got != "keechain-0.0.1-py3-none-any.whl" {
		t.Errorf("wheel = %s", got)
	}
}

func TestBuildOrchestrator_Build_DeduplicatesTags(t *testing.T) {
	root := newTestProject(t)
	wheels := &mockWheelPackager{}

	orch := newTestOrchestrator(entities.DefaultDescriptorConfig(), wheels, &mockSourcePackager{}, nil)
	_, err := orch.Build(context.Background(), BuildRequest{
		RootDir:   root,
		NativeDir: filepath.Join(root, "target", TargetPlaceholder),
		OutputDir: filepath.Join(root, "dist"),
		Targets:   []string{"darwin-arm64", "macos-aarch64", "linux-x86_64"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	platforms := make([]string, 0, len(wheels.tags))
	for _, tag := range wheels.tags {
		platforms = append(platforms, tag.Platform)
	}
	sort.Strings(platforms)
	want := []string{"linux_x86_64", "macosx_11_0_arm64"}
	if strings.Join(platforms, ",") != strings.Join(want, ",") {
		t.Errorf("platforms = %v, want %v", platforms, want)
	}
}

func TestBuildOrchestrator_Build_TagOverrides(t *testing.T) {
	root := newTestProject(t)
	wheels := &mockWheelPackager{}

	orch := newTestOrchestrator(entities.DefaultDescriptorConfig(), wheels, &mockSourcePackager{}, nil)
	_, err := orch.Build(context.Background(), BuildRequest{
		RootDir:   root,
		OutputDir: filepath.Join(root, "dist"),
		Targets:   []string{"linux-x86_64"},
		PythonTag: "cp312",
		ABITag:    "abi3",
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got := wheels.tags[0].String(); got != "cp312-abi3-linux_x86_64" {
		t.Errorf("tag = %s, want cp312-abi3-linux_x86_64", got)
	}
}

func TestBuildOrchestrator_Build_SignsEveryArtifact(t *testing.T) {
	root := newTestProject(t)
	signer := &mockSigner{}

	orch := newTestOrchestrator(entities.DefaultDescriptorConfig(), &mockWheelPackager{}, &mockSourcePackager{}, signer)
	result, err := orch.Build(context.Background(), BuildRequest{
		RootDir:   root,
		OutputDir: filepath.Join(root, "dist"),
		Targets:   []string{"linux-x86_64"},
		Sdist:     true,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(signer.signed) != 2 || len(result.Signatures) != 2 {
		t.Errorf("signed %d artifacts, want 2", len(signer.signed))
	}
}

func TestBuildOrchestrator_Build_RunsNativeBuildPerTarget(t *testing.T) {
	root := newTestProject(t)
	config := entities.DefaultDescriptorConfig()
	config.Build.NativeCommand = "cargo build --release"
	native := &mockNativeBuilder{}

	orch := newTestOrchestrator(config, &mockWheelPackager{}, &mockSourcePackager{}, nil)
	orch.deps.NativeBuilder = native

	_, err := orch.Build(context.Background(), BuildRequest{
		RootDir:   root,
		NativeDir: "target/" + TargetPlaceholder + "/release",
		OutputDir: filepath.Join(root, "dist"),
		Targets:   []string{"linux-x86_64", "darwin-arm64"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if strings.Join(native.targets, ",") != "linux-x86_64,darwin-arm64" {
		t.Errorf("native builds = %v", native.targets)
	}
	if native.nativeDirs[1] != "target/darwin-arm64/release" {
		t.Errorf("native dir = %s", native.nativeDirs[1])
	}
}

func TestBuildOrchestrator_Build_NativeBuildFailure(t *testing.T) {
	root := newTestProject(t)
	config := entities.DefaultDescriptorConfig()
	config.Build.NativeCommand = "cargo build --release"
	wheels := &mockWheelPackager{}

	orch := newTestOrchestrator(config, wheels, &mockSourcePackager{}, nil)
	orch.deps.NativeBuilder = &mockNativeBuilder{err: errors.New("cargo failed")}

	_, err := orch.Build(context.Background(), BuildRequest{
		RootDir:   root,
		OutputDir: filepath.Join(root, "dist"),
		Targets:   []string{"linux-x86_64"},
	})
	if err == nil || !strings.Contains(err.Error(), "cargo failed") {
		t.Errorf("Expected native build error, got: %v", err)
	}
	if len(wheels.tags) != 0 {
		t.Error("no wheel should be packaged after a failed native build")
	}
}

func TestBuildOrchestrator_Build_SkipNative(t *testing.T) {
	root := newTestProject(t)
	config := entities.DefaultDescriptorConfig()
	config.Build.NativeCommand = "cargo build --release"
	native := &mockNativeBuilder{}

	orch := newTestOrchestrator(config, &mockWheelPackager{}, &mockSourcePackager{}, nil)
	orch.deps.NativeBuilder = native

	_, err := orch.Build(context.Background(), BuildRequest{
		RootDir:    root,
		OutputDir:  filepath.Join(root, "dist"),
		Targets:    []string{"linux-x86_64"},
		SkipNative: true,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(native.targets) != 0 {
		t.Errorf("native build ran despite SkipNative: %v", native.targets)
	}
}

func TestBuildOrchestrator_Build_ManifestError(t *testing.T) {
	orch := NewBuildOrchestrator(BuildOrchestratorDeps{
		Manifests: &mockManifestRepository{err: errors.New("bad yaml")},
	})

	_, err := orch.Build(context.Background(), BuildRequest{RootDir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "failed to load manifest") {
		t.Errorf("Expected manifest error, got: %v", err)
	}
}

func TestBuildOrchestrator_Build_MissingDocumentation(t *testing.T) {
	root := t.TempDir()
	wheels := &mockWheelPackager{}

	orch := newTestOrchestrator(entities.DefaultDescriptorConfig(), wheels, &mockSourcePackager{}, nil)
	_, err := orch.Build(context.Background(), BuildRequest{RootDir: root, OutputDir: filepath.Join(root, "dist")})

	if !errors.Is(err, services.ErrMissingDocumentationFile) {
		t.Errorf("error = %v, want ErrMissingDocumentationFile", err)
	}
	if len(wheels.tags) != 0 {
		t.Error("no wheel should be built when the descriptor cannot be produced")
	}
}

func TestBuildOrchestrator_Build_UnsupportedTargetBuildsNothing(t *testing.T) {
	root := newTestProject(t)
	wheels := &mockWheelPackager{}

	orch := newTestOrchestrator(entities.DefaultDescriptorConfig(), wheels, &mockSourcePackager{}, nil)
	_, err := orch.Build(context.Background(), BuildRequest{
		RootDir:   root,
		OutputDir: filepath.Join(root, "dist"),
		Targets:   []string{"linux-x86_64", "plan9-mips"},
	})

	if !errors.Is(err, services.ErrUnsupportedPlatform) {
		t.Errorf("error = %v, want ErrUnsupportedPlatform", err)
	}
	if len(wheels.tags) != 0 {
		t.Errorf("built %d wheels before tag resolution failed", len(wheels.tags))
	}
}

func TestBuildOrchestrator_Build_SharedNativeDirectory(t *testing.T) {
	tests := []struct {
		name      string
		nativeDir string
		targets   []string
		wantErr   bool
	}{
		{name: "several targets share one dir", nativeDir: "target/release", targets: []string{"linux-x86_64", "darwin-arm64"}, wantErr: true},
		{name: "several targets without a dir", nativeDir: "", targets: []string{"linux-x86_64", "windows-x86_64"}, wantErr: true},
		{name: "per-target dirs", nativeDir: "target/" + TargetPlaceholder + "/release", targets: []string{"linux-x86_64", "darwin-arm64"}},
		{name: "aliases collapse to one wheel", nativeDir: "target/release", targets: []string{"darwin-arm64", "macos-aarch64"}},
		{name: "single target", nativeDir: "target/release", targets: []string{"linux-x86_64"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newTestProject(t)
			config := entities.DefaultDescriptorConfig()
			config.Build.NativeCommand = "cargo build --release"
			wheels := &mockWheelPackager{}
			native := &mockNativeBuilder{}

			orch := newTestOrchestrator(config, wheels, &mockSourcePackager{}, nil)
			orch.deps.NativeBuilder = native

			_, err := orch.Build(context.Background(), BuildRequest{
				RootDir:   root,
				NativeDir: tt.nativeDir,
				OutputDir: filepath.Join(root, "dist"),
				Targets:   tt.targets,
			})

			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Build() error = %v", err)
				}
				return
			}
			if !errors.Is(err, services.ErrSharedNativeDirectory) {
				t.Fatalf("error = %v, want ErrSharedNativeDirectory", err)
			}
			if len(native.targets) != 0 || len(wheels.tags) != 0 {
				t.Errorf("ran %d native builds and %d wheels before refusing", len(native.targets), len(wheels.tags))
			}
		})
	}
}

func TestBuildOrchestrator_Build_WheelFailure(t *testing.T) {
	root := newTestProject(t)

	orch := newTestOrchestrator(entities.DefaultDescriptorConfig(), &mockWheelPackager{failOn: "win_amd64"}, &mockSourcePackager{}, nil)
	_, err := orch.Build(context.Background(), BuildRequest{
		RootDir:      root,
		NativeDir:    filepath.Join(root, "target", TargetPlaceholder),
		OutputDir:    filepath.Join(root, "dist"),
		AllPlatforms: true,
	})

	if err == nil || !strings.Contains(err.Error(), "native library missing") {
		t.Errorf("Expected wheel error, got: %v", err)
	}
}

func TestBuildOrchestrator_Build_SdistFailure(t *testing.T) {
	root := newTestProject(t)

	orch := newTestOrchestrator(entities.DefaultDescriptorConfig(), &mockWheelPackager{}, &mockSourcePackager{err: errors.New("tar failed")}, nil)
	_, err := orch.Build(context.Background(), BuildRequest{
		RootDir:   root,
		OutputDir: filepath.Join(root, "dist"),
		Targets:   []string{"linux-x86_64"},
		Sdist:     true,
	})

	if err == nil || !strings.Contains(err.Error(), "source distribution") {
		t.Errorf("Expected sdist error, got: %v", err)
	}
}

func TestBuildResult_GetBuildSummary(t *testing.T) {
	result := &BuildResult{
		Descriptor: &entities.PackageDescriptor{Name: "keechain", Version: "0.1.0"},
		Artifacts: []*entities.Artifact{
			{Path: "dist/keechain-0.1.0-cp311-cp311-linux_x86_64.whl", Kind: entities.KindWheel},
		},
		ChecksumsPath: "dist/SHA256SUMS",
	}

	summary := result.GetBuildSummary()

	for _, want := range []string{"Build successful", "keechain 0.1.0", "linux_x86_64.whl", "SHA256SUMS"} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary should contain %q, got: %s", want, summary)
		}
	}
}
