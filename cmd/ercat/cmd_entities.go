package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/cli"
	"github.com/hlop3z/ercat/internal/decl"
)

// entitiesCmd lists the non final entity types.
func entitiesCmd() *cobra.Command {
	var withFinal bool

	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List entity types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			catalog, _, err := sess.build()
			if err != nil {
				return err
			}

			type entityRow struct {
				Name        string `json:"name"`
				Final       bool   `json:"final"`
				Meta        bool   `json:"meta"`
				Specializes string `json:"specializes,omitempty"`
				Attributes  int    `json:"attributes"`
				Relations   int    `json:"relations"`
			}
			var rows []entityRow
			for _, e := range catalog.Entities() {
				if e.IsFinal() && !withFinal {
					continue
				}
				rows = append(rows, entityRow{
					Name:        e.Name(),
					Final:       e.IsFinal(),
					Meta:        e.IsMeta(),
					Specializes: e.SpecializesName(),
					Attributes:  len(e.AttributeDefinitions()),
					Relations:   len(e.RelationDefinitions()),
				})
			}

			w := cmd.OutOrStdout()
			if sess.cfg.JSON() {
				return writeJSON(w, rows)
			}
			tbl := cli.NewTable("NAME", "FINAL", "META", "SPECIALIZES", "ATTRIBUTES", "RELATIONS")
			for _, r := range rows {
				tbl.AddRow(r.Name, cli.YesNo(r.Final), cli.YesNo(r.Meta), r.Specializes,
					strconv.Itoa(r.Attributes), strconv.Itoa(r.Relations))
			}
			fmt.Fprint(w, tbl.String())
			fmt.Fprintln(w, cli.Dim(cli.FormatCount(len(rows), "entity type", "entity types")))
			return nil
		},
	}

	cmd.Flags().BoolVar(&withFinal, "final", false, "Include the final (scalar) types")
	return cmd
}

// showCmd prints the attributes and relations of one entity type.
func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <type>",
		Short: "Show the attributes and relations of an entity type",
		Example: `  ercat show Person
  ercat show Person --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			catalog, _, err := sess.build()
			if err != nil {
				return err
			}
			e, err := catalog.EntitySchema(args[0])
			if err != nil {
				return err
			}
			if e.IsFinal() {
				return alerr.New(alerr.ErrFinalEntity, "final types have no attributes").
					WithEntity(e.Name()).
					WithHelp("run `ercat entities` to list the entity types")
			}

			type attrRow struct {
				Name        string `json:"name"`
				Type        string `json:"type"`
				Cardinality string `json:"cardinality"`
				Constraints string `json:"constraints,omitempty"`
				Default     any    `json:"default,omitempty"`
			}
			type relRow struct {
				Name        string   `json:"name"`
				Role        string   `json:"role"`
				Targets     []string `json:"targets"`
				Cardinality string   `json:"cardinality"`
			}

			var attrs []attrRow
			for _, a := range e.AttributeDefinitions() {
				p, err := a.Relation.RProperties(e.Name(), a.Type.Name())
				if err != nil {
					return err
				}
				attrs = append(attrs, attrRow{
					Name:        a.Relation.Name(),
					Type:        a.Type.Name(),
					Cardinality: p.Cardinality,
					Constraints: constraintText(p.Constraints),
					Default:     p.Default,
				})
			}
			var rels []relRow
			for _, r := range e.RelationDefinitions() {
				targets := names(r.Targets)
				row := relRow{Name: r.Relation.Name(), Role: string(r.Role), Targets: targets}
				// the cardinality shown is the one of the first pair
				if len(targets) > 0 {
					subj, obj := e.Name(), targets[0]
					if r.Role == decl.Object {
						subj, obj = obj, subj
					}
					if p, err := r.Relation.RProperties(subj, obj); err == nil {
						row.Cardinality = p.Cardinality
					}
				}
				rels = append(rels, row)
			}

			w := cmd.OutOrStdout()
			if sess.cfg.JSON() {
				return writeJSON(w, map[string]any{
					"name":        e.Name(),
					"description": e.Description(),
					"specializes": e.SpecializesName(),
					"attributes":  attrs,
					"relations":   rels,
				})
			}

			fmt.Fprintln(w, cli.Bold(e.Name()))
			if d := e.Description(); d != "" {
				fmt.Fprintln(w, "  "+cli.Dim(d))
			}
			if ancestors := e.Ancestors(); len(ancestors) > 0 {
				fmt.Fprintln(w, "  "+cli.KeyValue("specializes", strings.Join(ancestors, " -> ")))
			}
			if mainAttr := e.MainAttribute(); mainAttr != "" {
				fmt.Fprintln(w, "  "+cli.KeyValue("main attribute", mainAttr))
			}
			fmt.Fprintln(w)

			at := cli.NewTable("ATTRIBUTE", "TYPE", "CARD", "CONSTRAINTS", "DEFAULT")
			for _, a := range attrs {
				def := ""
				if a.Default != nil {
					def = fmt.Sprint(a.Default)
				}
				at.AddRow(a.Name, a.Type, a.Cardinality, a.Constraints, def)
			}
			fmt.Fprint(w, cli.Section("Attributes", at.String()))
			fmt.Fprintln(w)

			rt := cli.NewTable("RELATION", "ROLE", "TARGETS", "CARD")
			for _, r := range rels {
				rt.AddRow(r.Name, r.Role, strings.Join(r.Targets, ", "), r.Cardinality)
			}
			fmt.Fprint(w, cli.Section("Relations", rt.String()))
			return nil
		},
	}
}
