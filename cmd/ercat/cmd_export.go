package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/cli"
	"github.com/hlop3z/ercat/internal/metadata"
)

// exportCmd writes the catalog metadata as JSON.
func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export catalog metadata to JSON",
		Long: `Export the built catalog to a versioned JSON document: entity types with
their flags, permissions and specialization, relation types with their
flags, permissions, physical mode and pairs.

External tools can read it without parsing the YAML declarations, and
'ercat diff' can compare it with the current declarations.`,
		Example: `  # Print to stdout
  ercat export

  # Write to a file
  ercat export -o ercat.meta.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			catalog, _, err := sess.build()
			if err != nil {
				return err
			}
			meta := metadata.Encode(catalog)

			if output == "" || output == "-" {
				data, err := meta.Marshal()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			absPath, err := filepath.Abs(output)
			if err != nil {
				return alerr.Wrap(alerr.EInternalError, err, "failed to resolve output path")
			}
			if err := meta.SaveToFile(absPath); err != nil {
				return err
			}
			info, err := os.Stat(absPath)
			if err != nil {
				return alerr.Wrap(alerr.EInternalError, err, "failed to read metadata file")
			}

			w := cmd.OutOrStdout()
			if sess.cfg.JSON() {
				return writeJSON(w, map[string]any{"path": absPath, "size": info.Size()})
			}
			fmt.Fprint(w, cli.FormatSuccess("metadata exported"))
			fmt.Fprintln(w, "  "+cli.KeyValue("path", absPath))
			fmt.Fprintln(w, "  "+cli.KeyValue("size", fmt.Sprintf("%d bytes", info.Size())))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: stdout)")
	return cmd
}
