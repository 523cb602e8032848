package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hlop3z/ercat/internal/cli"
)

// relationsCmd lists the relation types.
func relationsCmd() *cobra.Command {
	var attributes bool

	cmd := &cobra.Command{
		Use:   "relations",
		Short: "List relation types",
		Long: `List the relation types of the catalog with their flags, the physical
mode a storage backend would use and the number of pairs. Attributes
(relations to final types) are only listed with --attributes.`,
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

			type relationRow struct {
				Name      string `json:"name"`
				Final     bool   `json:"final"`
				Symmetric bool   `json:"symmetric"`
				Inlined   bool   `json:"inlined"`
				Mode      string `json:"physical_mode"`
				Pairs     int    `json:"pairs"`
				Infered   int    `json:"infered"`
			}
			rels := catalog.NonFinalRelations()
			if attributes {
				rels = catalog.Relations()
			}
			rows := make([]relationRow, 0, len(rels))
			for _, r := range rels {
				rows = append(rows, relationRow{
					Name:      r.Name(),
					Final:     r.IsFinal(),
					Symmetric: r.IsSymmetric(),
					Inlined:   r.IsInlined(),
					Mode:      string(r.PhysicalMode()),
					Pairs:     len(r.RDefs()),
					Infered:   len(r.InferedPairs()),
				})
			}

			w := cmd.OutOrStdout()
			if sess.cfg.JSON() {
				return writeJSON(w, rows)
			}
			tbl := cli.NewTable("NAME", "FINAL", "SYMMETRIC", "INLINED", "MODE", "PAIRS")
			for i, r := range rows {
				pairs := strconv.Itoa(r.Pairs)
				if r.Infered > 0 {
					pairs += cli.Dim(fmt.Sprintf(" (%d infered)", r.Infered))
				}
				tbl.AddRow(r.Name, cli.YesNo(r.Final), cli.YesNo(r.Symmetric), cli.YesNo(r.Inlined),
					physicalMode(rels[i]), pairs)
			}
			fmt.Fprint(w, tbl.String())
			fmt.Fprintln(w, cli.Dim(cli.FormatCount(len(rows), "relation type", "relation types")))
			return nil
		},
	}

	cmd.Flags().BoolVar(&attributes, "attributes", false, "Include attributes")
	return cmd
}
