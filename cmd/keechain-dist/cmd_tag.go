package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yukibtc/keechain-dist/internal/domain/entities"
	"github.com/yukibtc/keechain-dist/internal/domain/services"
)

func newTagCommand(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "tag [os-arch]...",
		Short: "Print the wheel tag and filename for target platforms",
		Long: `Resolve the wheel tag for each os-arch target (default: the host platform).

Packages without native extensions always resolve to py3-none-any.`,
		Example: `  keechain-dist tag
  keechain-dist tag linux-x86_64 darwin-arm64
  keechain-dist tag --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := a.manifests().Load(cmd.Context(), a.rootDir)
			if err != nil {
				return err
			}

			targets := args
			switch {
			case all:
				targets = config.Build.Targets
			case len(targets) == 0:
				targets = []string{services.DetectPlatform()}
			}

			desc := &entities.PackageDescriptor{
				Name:                config.Name,
				Version:             config.Version,
				HasNativeExtensions: config.HasNativeExtensions,
			}
			resolver := services.NewTagResolver(config.Build)

			out := cmd.OutOrStdout()
			for _, target := range targets {
				tag, err := resolver.ResolveTag(desc, target)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-16s %-32s %s\n", target, tag, services.WheelFilename(desc, tag))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Resolve every target configured in the manifest")

	return cmd
}
