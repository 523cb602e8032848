package decl

import (
	"fmt"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/validate"
)

// Definition is a top level declaration consumed by the builder in two
// passes: type registration, then relation expansion.
type Definition interface {
	DefName() string
	Location() Location
	// ExpandTypeDefinitions registers the declared types into reg.
	ExpandTypeDefinitions(reg *Registry) error
	// ExpandRelationDefinitions materializes the declared relation pairs
	// into t. reg holds every type registered by the first pass.
	ExpandRelationDefinitions(reg *Registry, t Target) error
}

var (
	_ Definition = (*EntityType)(nil)
	_ Definition = (*RelationType)(nil)
	_ Definition = (*RelationDefinition)(nil)
)

// RelationType declares a relation type and its shared properties. When
// Subject and Object are both set it also defines the pairs they denote,
// with Def as their properties; Def also provides defaults for every other
// pair of the relation.
type RelationType struct {
	Name    string
	Props   RelationTypeProps
	Subject TypeSpec
	Object  TypeSpec
	Def     RelationDefProps
	Source  Location
}

// NewRelationType returns a relation type declaration without pairs.
func NewRelationType(name string, props RelationTypeProps) *RelationType {
	return &RelationType{Name: name, Props: props}
}

// ApplyPreset sets the preset's permissions and meta flag.
func (r *RelationType) ApplyPreset(p Preset) error {
	if !p.Relation {
		return alerr.New(alerr.ErrInvalidPermission, "entity preset applied to a relation type").
			WithRelation(r.Name).
			With("preset", p.Name)
	}
	r.Props.Permissions = p.Permissions.Clone()
	if p.Meta {
		r.Props.Meta = Ptr(true)
	}
	return nil
}

func (r *RelationType) DefName() string    { return r.Name }
func (r *RelationType) Location() Location { return r.Source }
func (r *RelationType) String() string     { return "relation type " + r.Name }

func (r *RelationType) hasPairs() (bool, error) {
	switch {
	case r.Subject.IsZero() && r.Object.IsZero():
		return false, nil
	case r.Subject.IsZero() || r.Object.IsZero():
		return false, alerr.New(alerr.ErrMalformedProperty, "relation type needs both subject and object").
			WithRelation(r.Name)
	}
	return true, nil
}

// ExpandTypeDefinitions registers or merges the relation type entry and,
// with pairs, the (subject, name, object) key.
func (r *RelationType) ExpandTypeDefinitions(reg *Registry) error {
	if err := r.validate(); err != nil {
		return r.Source.Attach(err)
	}
	pairs, err := r.hasPairs()
	if err != nil {
		return r.Source.Attach(err)
	}
	if err := reg.MergeRelationType(r.Name, r.Props, &r.Def, r.Source); err != nil {
		return r.Source.Attach(err)
	}
	if pairs {
		return r.Source.Attach(reg.AddTriple(r.Subject, r.Name, r.Object, r.Source))
	}
	return nil
}

// ExpandRelationDefinitions resolves the declared pairs, if any.
func (r *RelationType) ExpandRelationDefinitions(reg *Registry, t Target) error {
	if pairs, _ := r.hasPairs(); !pairs {
		return nil
	}
	rd := &RelationDefinition{
		Subject: r.Subject,
		Name:    r.Name,
		Object:  r.Object,
		Def:     r.Def.Clone(),
		Source:  r.Source,
	}
	return r.Source.Attach(resolveDefinition(reg, t, rd))
}

func (r *RelationType) validate() error {
	if err := validate.RelationName(r.Name); err != nil {
		return err
	}
	if err := r.Props.validate(); err != nil {
		return err
	}
	return r.Def.validate()
}

// RelationDefinition is a fully qualified relation declaration.
type RelationDefinition struct {
	Subject TypeSpec
	Name    string
	Object  TypeSpec
	Type    RelationTypeProps
	Def     RelationDefProps
	Source  Location
}

func (d *RelationDefinition) DefName() string    { return d.Name }
func (d *RelationDefinition) Location() Location { return d.Source }

func (d *RelationDefinition) String() string {
	return fmt.Sprintf("relation definition (%s %s %s)", d.Subject, d.Name, d.Object)
}

// ExpandTypeDefinitions merges the relation type entry and registers the
// (subject, name, object) key; registering the same key twice is a
// definition conflict.
func (d *RelationDefinition) ExpandTypeDefinitions(reg *Registry) error {
	if err := d.validate(); err != nil {
		return d.Source.Attach(err)
	}
	if err := reg.MergeRelationType(d.Name, d.Type, nil, d.Source); err != nil {
		return d.Source.Attach(err)
	}
	return d.Source.Attach(reg.AddTriple(d.Subject, d.Name, d.Object, d.Source))
}

// ExpandRelationDefinitions resolves the definition against t.
func (d *RelationDefinition) ExpandRelationDefinitions(reg *Registry, t Target) error {
	return d.Source.Attach(resolveDefinition(reg, t, d))
}

func (d *RelationDefinition) validate() error {
	if err := validate.RelationName(d.Name); err != nil {
		return err
	}
	if d.Subject.IsZero() || d.Object.IsZero() {
		return alerr.New(alerr.ErrMalformedProperty, "relation definition needs both subject and object").
			WithRelation(d.Name)
	}
	if err := d.Type.validate(); err != nil {
		return err
	}
	return d.Def.validate()
}
