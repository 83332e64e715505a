package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/yukibtc/keechain-dist/internal/domain/entities"
)

// DescriptorReport is the machine-readable form of a package descriptor
type DescriptorReport struct {
	Name                       string            `json:"name" yaml:"name"`
	Version                    string            `json:"version" yaml:"version"`
	Description                string            `json:"description" yaml:"description"`
	LongDescription            string            `json:"long_description" yaml:"long_description"`
	LongDescriptionContentType string            `json:"long_description_content_type" yaml:"long_description_content_type"`
	Packages                   []string          `json:"packages" yaml:"packages"`
	PackageDir                 map[string]string `json:"package_dir" yaml:"package_dir"`
	IncludePackageData         bool              `json:"include_package_data" yaml:"include_package_data"`
	ZipSafe                    bool              `json:"zip_safe" yaml:"zip_safe"`
	URL                        string            `json:"url,omitempty" yaml:"url,omitempty"`
	Author                     string            `json:"author,omitempty" yaml:"author,omitempty"`
	License                    string            `json:"license,omitempty" yaml:"license,omitempty"`
	HasExtModules              bool              `json:"has_ext_modules" yaml:"has_ext_modules"`
}

func newDescriptorReport(desc *entities.PackageDescriptor) DescriptorReport {
	return DescriptorReport{
		Name:                       desc.Name,
		Version:                    desc.Version,
		Description:                desc.ShortDescription,
		LongDescription:            desc.LongDescription,
		LongDescriptionContentType: desc.LongDescriptionFormat.ContentType(),
		Packages:                   desc.Packages,
		PackageDir:                 desc.PackageDirectoryMap,
		IncludePackageData:         desc.IncludePackageData,
		ZipSafe:                    desc.IsZipSafe,
		URL:                        desc.URL,
		Author:                     desc.Author,
		License:                    desc.License,
		HasExtModules:              desc.HasNativeExtensions,
	}
}

func newDescribeCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the package descriptor",
		Long: `Build the package descriptor from the manifest and the README and print it.

The long description is the README content, unmodified.`,
		Example: `  keechain-dist describe
  keechain-dist describe --root ./bindings/python --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			desc, _, err := a.describe(cmd)
			if err != nil {
				return err
			}
			return writeDescriptor(cmd.OutOrStdout(), desc, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, yaml)")

	return cmd
}

func writeDescriptor(w io.Writer, desc *entities.PackageDescriptor, format string) error {
	report := newDescriptorReport(desc)

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yamlv3.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case "text":
	default:
		return fmt.Errorf("unknown format %q (expected text, json or yaml)", format)
	}

	mapped := make([]string, 0, len(desc.PackageDirectoryMap))
	for pkg, dir := range desc.PackageDirectoryMap {
		mapped = append(mapped, pkg+" -> "+dir)
	}
	sort.Strings(mapped)

	fmt.Fprintf(w, "Name:                 %s\n", report.Name)
	fmt.Fprintf(w, "Version:              %s\n", report.Version)
	fmt.Fprintf(w, "Description:          %s\n", report.Description)
	fmt.Fprintf(w, "Content type:         %s\n", report.LongDescriptionContentType)
	fmt.Fprintf(w, "Packages:             %s\n", strings.Join(report.Packages, ", "))
	fmt.Fprintf(w, "Package directories:  %s\n", strings.Join(mapped, ", "))
	fmt.Fprintf(w, "Include package data: %t\n", report.IncludePackageData)
	fmt.Fprintf(w, "Zip safe:             %t\n", report.ZipSafe)
	fmt.Fprintf(w, "Native extensions:    %t\n", report.HasExtModules)
	if report.URL != "" {
		fmt.Fprintf(w, "URL:                  %s\n", report.URL)
	}
	if report.Author != "" {
		fmt.Fprintf(w, "Author:               %s\n", report.Author)
	}
	if report.License != "" {
		fmt.Fprintf(w, "License:              %s\n", report.License)
	}
	fmt.Fprintf(w, "Long description:     %d bytes\n", len(report.LongDescription))
	return nil
}
