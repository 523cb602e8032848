package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/hlop3z/ercat/internal/constraint"
	"github.com/hlop3z/ercat/internal/schema"
)

// writeJSON writes v to w as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// truncateHash returns the first 12 characters of a hash.
func truncateHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}

func names(es []*schema.EntitySchema) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Name()
	}
	return out
}

func constraintText(cs constraint.Set) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

func physicalMode(r *schema.RelationSchema) string {
	if r.IsFinal() {
		return ""
	}
	if m := r.PhysicalMode(); m != schema.JoinTable {
		return string(m)
	}
	return "join table"
}
