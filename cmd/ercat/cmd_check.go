package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hlop3z/ercat/internal/cli"
	"github.com/hlop3z/ercat/internal/digest"
)

// checkCmd loads and builds the declarations.
func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the declarations",
		Long: `Load every declaration file of the schemas directory and build the catalog.
Files and directories starting with '_' are skipped. The first error stops
the build and is reported with its source location.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			catalog, files, err := sess.build()
			if err != nil {
				return err
			}
			hash, err := digest.Compute(catalog)
			if err != nil {
				return err
			}

			var entities int
			for _, e := range catalog.Entities() {
				if !e.IsFinal() {
					entities++
				}
			}
			relations := len(catalog.NonFinalRelations())
			attributes := len(catalog.FinalRelations())

			w := cmd.OutOrStdout()
			if sess.cfg.JSON() {
				return writeJSON(w, map[string]any{
					"valid":      true,
					"files":      len(files),
					"entities":   entities,
					"relations":  relations,
					"attributes": attributes,
					"hash":       hash.Root,
				})
			}

			fmt.Fprint(w, cli.FormatSuccess("catalog "+catalog.Name()+" is valid"))
			fmt.Fprintln(w, "  "+cli.KeyValue("files", cli.FormatCount(len(files), "file", "files")))
			fmt.Fprintln(w, "  "+cli.KeyValue("entities", cli.FormatCount(entities, "entity type", "entity types")))
			fmt.Fprintln(w, "  "+cli.KeyValue("relations", cli.FormatCount(relations, "relation type", "relation types")))
			fmt.Fprintln(w, "  "+cli.KeyValue("attributes", cli.FormatCount(attributes, "attribute", "attributes")))
			fmt.Fprintln(w, "  "+cli.KeyValue("hash", truncateHash(hash.Root)))
			return nil
		},
	}
}
