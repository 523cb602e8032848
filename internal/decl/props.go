package decl

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/constraint"
)

// Role designates one end of a relation.
type Role string

const (
	Subject Role = "subject"
	Object  Role = "object"
)

func (r Role) validate(property string) error {
	switch r {
	case "", Subject, Object:
		return nil
	}
	return alerr.New(alerr.ErrMalformedProperty, "expected 'subject' or 'object'").
		WithProperty(property).
		With("value", string(r))
}

// Ptr returns a pointer to v, for the tri-state fields of RelationTypeProps.
func Ptr[T any](v T) *T { return &v }

// Cardinality characters: exactly one, zero or one, one or more, any.
const cardinalityChars = "1?+*"

// Default cardinalities applied when a definition leaves it unset.
const (
	DefaultFinalCardinality    = "?1"
	DefaultNonFinalCardinality = "**"
)

// ValidateCardinality checks a two character cardinality code.
func ValidateCardinality(c string) error {
	if len(c) != 2 || !strings.ContainsRune(cardinalityChars, rune(c[0])) || !strings.ContainsRune(cardinalityChars, rune(c[1])) {
		return alerr.New(alerr.ErrMalformedProperty, "invalid cardinality").
			WithProperty("cardinality").
			With("value", c).
			WithHelp("cardinality is two characters, each one of 1 ? + *")
	}
	return nil
}

// RelationTypeProps are shared by every pair of a relation type. Unset
// fields are nil; declarations contributing to the same relation must agree
// on every field they set.
type RelationTypeProps struct {
	Symmetric         *bool
	Inlined           *bool
	Meta              *bool
	FulltextContainer *Role
	Permissions       Permissions
	Description       *string
}

// MergeInto copies the set fields of p into dst. A field set on both with
// different values is a definition conflict naming the property, both
// values and the relation.
func (p RelationTypeProps) MergeInto(dst *RelationTypeProps, relation string) error {
	if err := mergeField(&dst.Symmetric, p.Symmetric, "symmetric", relation); err != nil {
		return err
	}
	if err := mergeField(&dst.Inlined, p.Inlined, "inlined", relation); err != nil {
		return err
	}
	if err := mergeField(&dst.Meta, p.Meta, "meta", relation); err != nil {
		return err
	}
	if err := mergeField(&dst.FulltextContainer, p.FulltextContainer, "fulltext_container", relation); err != nil {
		return err
	}
	if err := mergeField(&dst.Description, p.Description, "description", relation); err != nil {
		return err
	}
	if p.Permissions != nil {
		if dst.Permissions != nil && !dst.Permissions.Equal(p.Permissions) {
			return conflict("permissions", dst.Permissions, p.Permissions, relation)
		}
		dst.Permissions = p.Permissions.Clone()
	}
	return nil
}

func (p RelationTypeProps) validate() error {
	if p.FulltextContainer != nil {
		if err := p.FulltextContainer.validate("fulltext_container"); err != nil {
			return err
		}
	}
	return p.Permissions.Validate(RelationActions)
}

// IsSymmetric, IsInlined and IsMeta read the tri-state flags as false when
// unset.
func (p RelationTypeProps) IsSymmetric() bool { return p.Symmetric != nil && *p.Symmetric }
func (p RelationTypeProps) IsInlined() bool   { return p.Inlined != nil && *p.Inlined }
func (p RelationTypeProps) IsMeta() bool      { return p.Meta != nil && *p.Meta }

func mergeField[T comparable](dst **T, src *T, property, relation string) error {
	if src == nil {
		return nil
	}
	if *dst != nil && **dst != *src {
		return conflict(property, **dst, *src, relation)
	}
	v := *src
	*dst = &v
	return nil
}

func conflict(property string, prev, next any, relation string) error {
	return alerr.New(alerr.ErrDefinitionConflict, "conflicting values for shared relation property").
		WithProperty(property).
		WithRelation(relation).
		With("values", fmt.Sprintf("%v/%v", prev, next))
}

// RelationDefProps are the per pair properties of a relation definition.
// Default, UID, Indexed, FulltextIndexed and Internationalizable only make
// sense when the object is a final type.
type RelationDefProps struct {
	Cardinality         string
	Constraints         constraint.Set
	Composite           Role
	Order               int
	Description         string
	Default             any
	UID                 bool
	Indexed             bool
	FulltextIndexed     bool
	Internationalizable bool
	Permissions         Permissions
}

// Clone returns a copy that shares no mutable state with d.
func (d RelationDefProps) Clone() RelationDefProps {
	d.Constraints = d.Constraints.Clone()
	d.Permissions = d.Permissions.Clone()
	return d
}

// Equal compares every property.
func (d RelationDefProps) Equal(o RelationDefProps) bool {
	return d.Cardinality == o.Cardinality &&
		d.Constraints.Equal(o.Constraints) &&
		d.Composite == o.Composite &&
		d.Order == o.Order &&
		d.Description == o.Description &&
		reflect.DeepEqual(d.Default, o.Default) &&
		d.UID == o.UID &&
		d.Indexed == o.Indexed &&
		d.FulltextIndexed == o.FulltextIndexed &&
		d.Internationalizable == o.Internationalizable &&
		d.Permissions.Equal(o.Permissions)
}

// withDefaults fills the unset fields of d from the relation type level
// properties. Flags are or-ed.
func (d RelationDefProps) withDefaults(from RelationDefProps) RelationDefProps {
	out := d.Clone()
	if out.Cardinality == "" {
		out.Cardinality = from.Cardinality
	}
	if out.Constraints == nil {
		out.Constraints = from.Constraints.Clone()
	}
	if out.Composite == "" {
		out.Composite = from.Composite
	}
	if out.Description == "" {
		out.Description = from.Description
	}
	if out.Default == nil {
		out.Default = from.Default
	}
	if out.Permissions == nil {
		out.Permissions = from.Permissions.Clone()
	}
	out.UID = out.UID || from.UID
	out.Indexed = out.Indexed || from.Indexed
	out.FulltextIndexed = out.FulltextIndexed || from.FulltextIndexed
	out.Internationalizable = out.Internationalizable || from.Internationalizable
	return out
}

// mergeInto folds relation type level pair properties of several relation
// type declarations together. Cardinality and composite must agree.
func (d RelationDefProps) mergeInto(dst *RelationDefProps, relation string) error {
	if d.Cardinality != "" && dst.Cardinality != "" && d.Cardinality != dst.Cardinality {
		return conflict("cardinality", dst.Cardinality, d.Cardinality, relation)
	}
	if d.Composite != "" && dst.Composite != "" && d.Composite != dst.Composite {
		return conflict("composite", dst.Composite, d.Composite, relation)
	}
	*dst = dst.withDefaults(d)
	return nil
}

func (d RelationDefProps) validate() error {
	if d.Cardinality != "" {
		if err := ValidateCardinality(d.Cardinality); err != nil {
			return err
		}
	}
	if err := d.Composite.validate("composite"); err != nil {
		return err
	}
	return d.Permissions.Validate(RelationActions)
}

// finalOnly lists the set properties that require a final object.
func (d RelationDefProps) finalOnly() []string {
	var keys []string
	if d.Default != nil {
		keys = append(keys, "default")
	}
	if d.UID {
		keys = append(keys, "uid")
	}
	if d.Indexed {
		keys = append(keys, "indexed")
	}
	keys = append(keys, d.stringOnly()...)
	return keys
}

// stringOnly lists the set properties that require a String object.
func (d RelationDefProps) stringOnly() []string {
	var keys []string
	if d.FulltextIndexed {
		keys = append(keys, "fulltextindexed")
	}
	if d.Internationalizable {
		keys = append(keys, "internationalizable")
	}
	return keys
}
