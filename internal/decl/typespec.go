package decl

import (
	"slices"
	"strings"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/validate"
)

// Wildcard markers accepted as a subject or object.
const (
	// AnyType stands for every non-final, non-meta entity type.
	AnyType = "*"
	// AnyTypeWithMeta stands for every non-final entity type.
	AnyTypeWithMeta = "**"
)

// TypeSpec names the subject or object side of a relation: a list of entity
// type names or one of the wildcards. Wildcards are resolved against the
// catalog when relations are expanded, so types registered later in the
// same build are included.
type TypeSpec struct {
	wildcard string
	names    []string
}

// Types returns a spec listing concrete type names.
func Types(names ...string) TypeSpec {
	return TypeSpec{names: slices.Clone(names)}
}

// Any returns the strict wildcard spec.
func Any() TypeSpec { return TypeSpec{wildcard: AnyType} }

// AnyWithMeta returns the wildcard spec including meta types.
func AnyWithMeta() TypeSpec { return TypeSpec{wildcard: AnyTypeWithMeta} }

// ParseTypeSpec accepts "*", "**", "A" and "A,B".
func ParseTypeSpec(s string) (TypeSpec, error) {
	s = strings.TrimSpace(s)
	switch s {
	case AnyType:
		return Any(), nil
	case AnyTypeWithMeta:
		return AnyWithMeta(), nil
	case "":
		return TypeSpec{}, alerr.New(alerr.ErrInvalidIdentifier, "empty type specifier")
	}
	var names []string
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(part)
		if err := validate.EntityName(name); err != nil {
			return TypeSpec{}, err
		}
		names = append(names, name)
	}
	return TypeSpec{names: names}, nil
}

// IsZero reports whether the spec is unset.
func (t TypeSpec) IsZero() bool {
	return t.wildcard == "" && len(t.names) == 0
}

// IsWildcard reports whether the spec is "*" or "**".
func (t TypeSpec) IsWildcard() bool {
	return t.wildcard != ""
}

// Names returns the concrete names; nil for a wildcard.
func (t TypeSpec) Names() []string {
	return slices.Clone(t.names)
}

// Single returns the name of a spec listing exactly one concrete type.
func (t TypeSpec) Single() (string, bool) {
	if t.wildcard == "" && len(t.names) == 1 {
		return t.names[0], true
	}
	return "", false
}

// Key renders the spec as used in composite registry keys.
func (t TypeSpec) Key() string {
	if t.wildcard != "" {
		return t.wildcard
	}
	return strings.Join(t.names, ",")
}

func (t TypeSpec) String() string { return t.Key() }

func (t TypeSpec) clone() TypeSpec {
	return TypeSpec{wildcard: t.wildcard, names: slices.Clone(t.names)}
}

// Replace returns a copy where every occurrence of old is renamed to repl.
func (t TypeSpec) Replace(old, repl string) TypeSpec {
	out := t.clone()
	for i, n := range out.names {
		if n == old {
			out.names[i] = repl
		}
	}
	return out
}

// Resolve returns the concrete type names the spec denotes in tg, in
// catalog (name-sorted) order for wildcards.
func (t TypeSpec) Resolve(tg Target) []string {
	switch t.wildcard {
	case AnyType, AnyTypeWithMeta:
		var out []string
		for _, name := range tg.EntityNames() {
			if tg.IsFinalType(name) {
				continue
			}
			if t.wildcard == AnyType && tg.IsMetaType(name) {
				continue
			}
			out = append(out, name)
		}
		return out
	}
	return slices.Clone(t.names)
}
