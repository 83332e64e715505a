package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	adapters "github.com/yukibtc/keechain-dist/internal/domain-adapters/gateways"
	orchestrators "github.com/yukibtc/keechain-dist/internal/domain-orchestrators"
	"github.com/yukibtc/keechain-dist/internal/domain/entities"
	"github.com/yukibtc/keechain-dist/internal/domain/interfaces"
	"github.com/yukibtc/keechain-dist/internal/domain/interfaces/gateways"
	"github.com/yukibtc/keechain-dist/internal/domain/services"
	"github.com/yukibtc/keechain-dist/internal/external-adapters/gpg"
)

// BuildReport is written by build --json
type BuildReport struct {
	Name            string           `json:"name"`
	Version         string           `json:"version"`
	Artifacts       []ArtifactReport `json:"artifacts"`
	Checksums       string           `json:"checksums"`
	Signatures      []string         `json:"signatures,omitempty"`
	DurationSeconds float64          `json:"duration_seconds"`
}

// ArtifactReport describes one emitted file
type ArtifactReport struct {
	Kind     string `json:"kind"`
	Platform string `json:"platform,omitempty"`
	Path     string `json:"path"`
	SHA256   string `json:"sha256"`
}

type buildOptions struct {
	platforms     []string
	allPlatforms  bool
	nativeDir     string
	outputDir     string
	sdist         bool
	skipNative    bool
	pythonTag     string
	abiTag        string
	concurrency   int
	signKey       string
	passphraseEnv string
	jsonOutput    bool
}

func newBuildCommand(a *app) *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build wheels and an optional source distribution",
		Long: `Build distributable artifacts for the package.

Packages with native extensions get one wheel per target platform, tagged
with the interpreter, ABI and platform. The native library is taken from
--native-dir, where {target} is replaced by each os-arch target. Packages
without native extensions get a single py3-none-any wheel.

When the manifest sets build.native_command, it runs in the project root
before each wheel is packaged, with TARGET and NATIVE_DIR in its environment.

Every artifact gets .sha256 and .sha512 files, and SHA256SUMS lists them all.
With --sign-key, each artifact also gets an armored detached signature.`,
		Example: `  # Wheel for the host platform
  keechain-dist build --native-dir target/release

  # Every configured platform plus an sdist
  keechain-dist build --all-platforms --native-dir target/{target}/release --sdist

  # Signed release build
  KEECHAIN_GPG_PASSPHRASE=... keechain-dist build --all-platforms --sign-key release.asc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, a, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&opts.platforms, "platform", nil, "Target platform as os-arch (repeatable, default: host)")
	flags.BoolVar(&opts.allPlatforms, "all-platforms", false, "Build every target configured in the manifest")
	flags.StringVar(&opts.nativeDir, "native-dir", "", "Directory holding the compiled native library ({target} is substituted)")
	flags.StringVar(&opts.outputDir, "output-dir", "dist", "Directory to write artifacts to")
	flags.BoolVar(&opts.sdist, "sdist", false, "Also build a source distribution")
	flags.BoolVar(&opts.skipNative, "skip-native-build", false, "Do not run the manifest's native_command before packaging")
	flags.StringVar(&opts.pythonTag, "python-tag", "", "Override the interpreter tag (e.g. cp312)")
	flags.StringVar(&opts.abiTag, "abi-tag", "", "Override the ABI tag (e.g. abi3)")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "Maximum wheels built in parallel (0 = unlimited)")
	flags.StringVar(&opts.signKey, "sign-key", "", "Armored private key used to sign artifacts")
	flags.StringVar(&opts.passphraseEnv, "passphrase-env", "KEECHAIN_GPG_PASSPHRASE", "Environment variable holding the signing key passphrase")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print a JSON build report instead of a summary")
	cmd.MarkFlagsMutuallyExclusive("platform", "all-platforms")

	return cmd
}

func runBuild(cmd *cobra.Command, a *app, opts *buildOptions) error {
	logger := a.logger

	var signer gateways.Signer
	if opts.signKey != "" {
		s, err := gpg.NewSignerFromFile(opts.signKey, []byte(os.Getenv(opts.passphraseEnv)))
		if err != nil {
			return fmt.Errorf("failed to load signing key: %w", err)
		}
		logger.Info("signing artifacts", interfaces.F("fingerprint", s.Fingerprint()))
		signer = s
	}

	orch := orchestrators.NewBuildOrchestrator(orchestrators.BuildOrchestratorDeps{
		Manifests: a.manifests(),
		NewWheelPackager: func(build entities.BuildConfig) gateways.WheelPackager {
			return adapters.NewWheelPackager(build, logger)
		},
		NewSourcePackager: func() gateways.SourcePackager {
			return adapters.NewSourcePackager(logger)
		},
		NativeBuilder: adapters.NewScriptExecutor(logger),
		Digests:       services.NewDigestService(logger),
		Signer:        signer,
		Logger:        logger,
	})

	nativeDir := opts.nativeDir
	if nativeDir != "" && !filepath.IsAbs(nativeDir) {
		nativeDir = filepath.Join(a.rootDir, nativeDir)
	}

	result, err := orch.Build(cmd.Context(), orchestrators.BuildRequest{
		RootDir:      a.rootDir,
		NativeDir:    nativeDir,
		OutputDir:    opts.outputDir,
		Targets:      opts.platforms,
		AllPlatforms: opts.allPlatforms,
		Sdist:        opts.sdist,
		SkipNative:   opts.skipNative,
		PythonTag:    opts.pythonTag,
		ABITag:       opts.abiTag,
		Concurrency:  opts.concurrency,
	})
	if err != nil {
		a.logger.Debug("build aborted", interfaces.F("root", a.rootDir), interfaces.F("native_dir", nativeDir), interfaces.Err(err))
		return fmt.Errorf("build failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if !opts.jsonOutput {
		fmt.Fprintln(out, result.GetBuildSummary())
		return nil
	}

	report, err := newBuildReport(result)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func newBuildReport(result *orchestrators.BuildResult) (*BuildReport, error) {
	verifier := adapters.NewChecksumVerifier()
	report := &BuildReport{
		Name:            result.Descriptor.Name,
		Version:         result.Descriptor.Version,
		Checksums:       result.ChecksumsPath,
		Signatures:      result.Signatures,
		DurationSeconds: result.TotalDuration.Seconds(),
	}

	for _, artifact := range result.Artifacts {
		sum, err := verifier.CalculateChecksum(artifact.Path)
		if err != nil {
			return nil, err
		}
		report.Artifacts = append(report.Artifacts, ArtifactReport{
			Kind:     string(artifact.Kind),
			Platform: artifact.Platform,
			Path:     artifact.Path,
			SHA256:   sum,
		})
	}
	return report, nil
}
