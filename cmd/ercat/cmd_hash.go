package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/builder"
	"github.com/hlop3z/ercat/internal/cli"
	"github.com/hlop3z/ercat/internal/digest"
	"github.com/hlop3z/ercat/internal/metadata"
)

// hashCmd prints the merkle fingerprint of the catalog.
func hashCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Print the catalog fingerprint",
		Long: `Print the merkle root of the catalog. Two catalogs with the same root
declare the same entity types, relation types, pairs and properties, in
whatever order they were declared.`,
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
			hash, err := digest.Compute(catalog)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if sess.cfg.JSON() {
				return writeJSON(w, hash)
			}
			if !full {
				fmt.Fprintln(w, hash.Root)
				return nil
			}
			fmt.Fprintln(w, cli.KeyValue("root", hash.Root))
			tbl := cli.NewTable("TYPE", "KIND", "HASH")
			for _, name := range sortedKeys(hash.Entities) {
				tbl.AddRow(name, "entity", truncateHash(hash.Entities[name]))
			}
			for _, name := range sortedKeys(hash.Relations) {
				tbl.AddRow(name, "relation", truncateHash(hash.Relations[name].Hash))
			}
			fmt.Fprint(w, tbl.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Print the hash of every type")
	return cmd
}

// diffCmd compares the declarations with an exported catalog.
func diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <metadata.json>",
		Short: "Compare the declarations with an exported catalog",
		Long: `Rebuild the catalog stored in a file written by 'ercat export' and compare
its fingerprint with the one of the current declarations. Exits with an
error when they differ.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			meta, err := metadata.Load(args[0])
			if err != nil {
				return err
			}
			defs, err := meta.Definitions()
			if err != nil {
				return err
			}
			exported, err := builder.Build(meta.Catalog, defs, builder.WithLogger(sess.logger))
			if err != nil {
				return err
			}
			current, _, err := sess.build()
			if err != nil {
				return err
			}

			want, err := digest.Compute(exported)
			if err != nil {
				return err
			}
			got, err := digest.Compute(current)
			if err != nil {
				return err
			}
			result := digest.Compare(want, got)

			w := cmd.OutOrStdout()
			if sess.cfg.JSON() {
				if err := writeJSON(w, result); err != nil {
					return err
				}
			} else {
				printComparison(w, result)
			}
			if !result.Match {
				return alerr.New(alerr.ErrDefinitionConflict, "declarations differ from the exported catalog").
					WithLocation(args[0], 0, 0).
					WithHelp("run `ercat export -o " + args[0] + "` to refresh the export")
			}
			return nil
		},
	}
}

func printComparison(w io.Writer, c *digest.Comparison) {
	if c.Match {
		fmt.Fprint(w, cli.FormatSuccess("declarations match the exported catalog"))
		return
	}
	fmt.Fprintf(w, "  Expected: %s\n", cli.Dim(truncateHash(c.ExpectedRoot)))
	fmt.Fprintf(w, "  Actual:   %s\n", cli.Dim(truncateHash(c.ActualRoot)))
	fmt.Fprintln(w)

	section := func(mark, kind string, items []string) {
		for _, item := range items {
			fmt.Fprintf(w, "  %s %s %s\n", mark, kind, item)
		}
	}
	section(cli.Error("-"), "entity", c.MissingEntities)
	section(cli.Warning("+"), "entity", c.ExtraEntities)
	section(cli.Highlight("~"), "entity", c.ModifiedEntities)
	section(cli.Error("-"), "relation", c.MissingRelations)
	section(cli.Warning("+"), "relation", c.ExtraRelations)
	for _, name := range c.ChangedRelations() {
		fmt.Fprintf(w, "  %s relation %s\n", cli.Highlight("~"), name)
		d := c.ModifiedRelations[name]
		section("    "+cli.Error("-"), "pair", d.Missing)
		section("    "+cli.Warning("+"), "pair", d.Extra)
		section("    "+cli.Highlight("~"), "pair", d.Modified)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
