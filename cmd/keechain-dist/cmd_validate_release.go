package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	adapters "github.com/yukibtc/keechain-dist/internal/domain-adapters/gateways"
	"github.com/yukibtc/keechain-dist/internal/domain/interfaces"
	"github.com/yukibtc/keechain-dist/internal/domain/services"
)

func newValidateReleaseCommand(a *app) *cobra.Command {
	var (
		distDir     string
		targets     []string
		quiet       bool
		noRecursive bool
	)

	cmd := &cobra.Command{
		Use:   "validate-release",
		Short: "Check that a dist directory holds exactly the expected wheels",
		Long: `Validate that every expected platform wheel is present in the dist
directory or its subdirectories (only the directory itself with
--no-recursive), and that no unexpected or universal wheel slipped in for a
package with native extensions.`,
		Example: `  keechain-dist validate-release
  keechain-dist validate-release --dist ./artifacts --targets linux-x86_64,darwin-arm64
  keechain-dist validate-release --quiet`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			desc, config, err := a.describe(cmd)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				targets = config.Build.Targets
			}

			finder := adapters.NewArtifactFinder()
			find := finder.FindRecursive
			if noRecursive {
				find = finder.FindByGlob
			}
			paths, err := find(distDir, desc)
			if err != nil {
				return fmt.Errorf("failed to find artifacts: %w", err)
			}
			a.logger.Debug("found artifacts", interfaces.F("count", len(paths)))

			release := services.NewReleaseService(services.NewTagResolver(config.Build))
			validation, err := release.ValidateRelease(desc, targets, paths)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !quiet {
				fmt.Fprintf(out, "Validating release for %s %s\n", desc.Name, desc.Version)
				fmt.Fprintf(out, "  Expected:  %d wheels (%s)\n", validation.ExpectedCount, strings.Join(validation.ExpectedTags, ", "))
				fmt.Fprintf(out, "  Available: %d wheels (%s)\n", validation.AvailableCount, strings.Join(validation.AvailableTags, ", "))
			}

			if !validation.IsReady() {
				a.logger.Debug("release not ready", interfaces.F("status", validation.Status), interfaces.Err(fmt.Errorf("%s", validation.ErrorMessage())))
				return fmt.Errorf("%s", validation.ErrorMessage())
			}
			if !quiet {
				fmt.Fprintln(out, "READY: all expected wheels present")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&distDir, "dist", "dist", "Directory containing built artifacts")
	cmd.Flags().StringSliceVar(&targets, "targets", nil, "Expected os-arch targets (default: manifest targets)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only report errors")
	cmd.Flags().BoolVar(&noRecursive, "no-recursive", false, "Only look at the top level of the dist directory")

	return cmd
}
