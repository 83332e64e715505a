package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	adapters "github.com/yukibtc/keechain-dist/internal/domain-adapters/gateways"
	"github.com/yukibtc/keechain-dist/internal/domain/entities"
	"github.com/yukibtc/keechain-dist/internal/domain/interfaces"
	"github.com/yukibtc/keechain-dist/internal/domain/interfaces/repositories"
	"github.com/yukibtc/keechain-dist/internal/domain/services"
	"github.com/yukibtc/keechain-dist/internal/external-adapters/console"
	"github.com/yukibtc/keechain-dist/internal/external-adapters/toml"
	"github.com/yukibtc/keechain-dist/internal/external-adapters/yaml"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// app holds the global flags and the dependencies built from them
type app struct {
	rootDir  string
	logLevel string
	noColor  bool

	logger interfaces.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{logger: &interfaces.NoOpLogger{}}

	rootCmd := &cobra.Command{
		Use:   "keechain-dist",
		Short: "Package the keechain Python binding for distribution",
		Long: `keechain-dist describes the keechain Python package and builds its
distributable artifacts: platform-tagged wheels wrapping the native library,
an optional source distribution, checksums and detached signatures.

Package metadata comes from dist.yml, dist.yaml or dist.toml in the project
root; without a manifest the keechain defaults are used.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.logger = console.NewLogger(cmd.ErrOrStderr(), console.ParseLevel(a.logLevel), a.noColor)
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))

	rootCmd.PersistentFlags().StringVar(&a.rootDir, "root", ".", "Project root containing the manifest and README")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable styled log output")

	rootCmd.AddCommand(newDescribeCommand(a))
	rootCmd.AddCommand(newBuildCommand(a))
	rootCmd.AddCommand(newVerifyCommand(a))
	rootCmd.AddCommand(newTagCommand(a))
	rootCmd.AddCommand(newValidateReleaseCommand(a))

	return rootCmd
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

func (a *app) manifests() repositories.ManifestRepository {
	return adapters.NewManifestLoader(yaml.NewManifestParser(), toml.NewManifestParser(), a.logger)
}

// describe loads the manifest and builds the descriptor of the project
func (a *app) describe(cmd *cobra.Command) (*entities.PackageDescriptor, *entities.DescriptorConfig, error) {
	config, err := a.manifests().Load(cmd.Context(), a.rootDir)
	if err != nil {
		return nil, nil, err
	}

	desc, err := services.NewDescriptorService(*config, a.logger).Describe(a.rootDir)
	if err != nil {
		return nil, nil, err
	}
	return desc, config, nil
}
