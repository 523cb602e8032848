// Package main provides the CLI for ercat, the entity/relation catalog
// compiler. ercat reads YAML declarations of entity types and relation types,
// builds the catalog and answers questions about it.
//
// Usage:
//
//	ercat check                  # Load and build the declarations
//	ercat entities               # List entity types
//	ercat show <type>            # Show the attributes and relations of a type
//	ercat relations              # List relation types
//	ercat hash                   # Print the catalog fingerprint
//	ercat diff <file>            # Compare with an exported catalog
//	ercat export -o <file>       # Export catalog metadata as JSON
//	ercat watch                  # Rebuild on declaration change
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hlop3z/ercat/internal/cli"
)

// version is set via ldflags during build: -ldflags="-X main.version=v1.0.0"
var version = "dev"

// Global flags
var (
	configFile string
	schemasDir string
	verbose    bool
	jsonOutput bool
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ercat",
		Short:         "Entity/relation catalog compiler",
		Long:          `ercat compiles YAML declarations of entity types and relation types into a validated catalog.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	// schemas_dir and schemas-dir are the same flag, matching the config keys
	root.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "ercat.yaml", "Path to config file")
	root.PersistentFlags().StringVarP(&schemasDir, "schemas-dir", "s", "", "Declaration directory (default: ./schemas)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	root.AddCommand(
		checkCmd(),
		entitiesCmd(),
		showCmd(),
		relationsCmd(),
		hashCmd(),
		diffCmd(),
		exportCmd(),
		watchCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ercat %s\n", version)
		},
	}
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		if jsonOutput {
			writeJSON(os.Stdout, map[string]any{"valid": false, "error": err.Error()})
		} else {
			fmt.Fprint(os.Stderr, cli.FormatError(err))
		}
		os.Exit(1)
	}
}
