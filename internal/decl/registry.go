package decl

import (
	"fmt"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/constraint"
	"github.com/hlop3z/ercat/internal/types"
	"github.com/hlop3z/ercat/internal/validate"
)

// Target is the catalog relation definitions are expanded into.
type Target interface {
	// EntityNames returns every entity type name, sorted.
	EntityNames() []string
	HasEntity(name string) bool
	IsFinalType(name string) bool
	IsMetaType(name string) bool
	AddRelationDef(e *Edge) error
}

// Edge is a resolved (subject, relation, object) pair handed to the catalog,
// with every per pair property defaulted.
type Edge struct {
	Subject string
	Name    string
	Object  string
	Def     RelationDefProps
	// Infered marks pairs propagated by specialization rather than authored.
	Infered bool
	Source  Location
}

func (e *Edge) String() string {
	return fmt.Sprintf("%s %s %s", e.Subject, e.Name, e.Object)
}

// Registry is the first pass table of defined entity types, relation types
// and (subject, name, object) keys. Insertion order is kept so that the
// catalog is populated deterministically.
type Registry struct {
	entities  map[string]*EntityType
	entOrder  []string
	relations map[string]*RelationType
	relOrder  []string
	triples   map[string]Location
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entities:  make(map[string]*EntityType),
		relations: make(map[string]*RelationType),
		triples:   make(map[string]Location),
	}
}

// AddEntity registers an entity type. Names must be unique and must not
// shadow a final type.
func (r *Registry) AddEntity(e *EntityType) error {
	if err := validate.EntityName(e.Name); err != nil {
		return e.Source.Attach(err)
	}
	if types.IsFinal(e.Name) {
		return e.Source.Attach(alerr.New(alerr.ErrDefinitionConflict, "entity type is a built-in final type").
			WithEntity(e.Name))
	}
	if prev, ok := r.entities[e.Name]; ok {
		err := alerr.New(alerr.ErrDefinitionConflict, "duplicate registration of entity type").
			WithEntity(e.Name)
		if !prev.Source.IsZero() {
			err = err.WithNote("first defined at " + prev.Source.String())
		}
		return e.Source.Attach(err)
	}
	r.entities[e.Name] = e
	r.entOrder = append(r.entOrder, e.Name)
	return nil
}

// MergeRelationType creates the relation type entry for name or merges the
// shared properties into the existing one. def carries relation type level
// pair defaults and may be nil.
func (r *Registry) MergeRelationType(name string, props RelationTypeProps, def *RelationDefProps, src Location) error {
	if err := validate.RelationName(name); err != nil {
		return err
	}
	if err := props.validate(); err != nil {
		return err
	}
	entry, ok := r.relations[name]
	if !ok {
		entry = &RelationType{Name: name, Source: src}
		r.relations[name] = entry
		r.relOrder = append(r.relOrder, name)
	}
	if err := props.MergeInto(&entry.Props, name); err != nil {
		return err
	}
	if def != nil {
		return def.mergeInto(&entry.Def, name)
	}
	return nil
}

// AddTriple records a (subject, name, object) key; a key seen twice is a
// definition conflict.
func (r *Registry) AddTriple(subject TypeSpec, name string, object TypeSpec, src Location) error {
	key := subject.Key() + " " + name + " " + object.Key()
	if prev, ok := r.triples[key]; ok {
		err := alerr.New(alerr.ErrDefinitionConflict, "duplicated relation definition").
			WithRelation(name).
			With("definition", key)
		if !prev.IsZero() {
			err = err.WithNote("first defined at " + prev.String())
		}
		return err
	}
	r.triples[key] = src
	return nil
}

// Entity returns the registered entity type, or nil.
func (r *Registry) Entity(name string) *EntityType { return r.entities[name] }

// RelationType returns the merged relation type entry, or nil.
func (r *Registry) RelationType(name string) *RelationType { return r.relations[name] }

// Entities returns the entity types in registration order.
func (r *Registry) Entities() []*EntityType {
	out := make([]*EntityType, len(r.entOrder))
	for i, n := range r.entOrder {
		out[i] = r.entities[n]
	}
	return out
}

// RelationTypes returns the merged relation type entries in registration
// order.
func (r *Registry) RelationTypes() []*RelationType {
	out := make([]*RelationType, len(r.relOrder))
	for i, n := range r.relOrder {
		out[i] = r.relations[n]
	}
	return out
}

// resolveDefinition fills unset pair properties from the relation type
// entry, expands subject and object against t and adds one edge per pair.
// Unset cardinality defaults to "?1" for a final object and "**" otherwise;
// unset permissions come from the relation type, else the built-in relation
// defaults.
func resolveDefinition(reg *Registry, t Target, rd *RelationDefinition) error {
	rtype := reg.RelationType(rd.Name)
	if rtype == nil {
		return alerr.New(alerr.ErrUnknownRelation, "using unknown relation type").
			WithRelation(rd.Name)
	}
	def := rd.Def.withDefaults(rtype.Def)
	if def.Cardinality != "" {
		if err := ValidateCardinality(def.Cardinality); err != nil {
			if e, ok := alerr.As(err); ok {
				e.WithRelation(rd.Name)
			}
			return err
		}
	}
	for _, subj := range rd.Subject.Resolve(t) {
		for _, obj := range rd.Object.Resolve(t) {
			final := t.IsFinalType(obj)
			pair := def.Clone()
			if pair.Cardinality == "" {
				pair.Cardinality = DefaultNonFinalCardinality
				if final {
					pair.Cardinality = DefaultFinalCardinality
				}
			}
			if pair.Permissions == nil {
				pair.Permissions = rtype.Props.Permissions.Clone()
			}
			if pair.Permissions == nil {
				pair.Permissions = RelationDefaults(final, rtype.Props.IsMeta())
			}
			// unknown types are reported by the catalog
			if t.HasEntity(obj) {
				if err := checkPair(rd.Name, obj, final, pair); err != nil {
					return err
				}
			}
			edge := &Edge{Subject: subj, Name: rd.Name, Object: obj, Def: pair, Source: rd.Source}
			if err := t.AddRelationDef(edge); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkPair rejects properties and constraints that do not fit the object.
func checkPair(relation, object string, final bool, def RelationDefProps) error {
	if !final {
		if keys := def.finalOnly(); len(keys) > 0 {
			return alerr.New(alerr.ErrUnsupportedProperty, "property requires a final object type").
				WithRelation(relation).
				WithProperty(keys[0]).
				With("object", object)
		}
	} else if object != types.String {
		if keys := def.stringOnly(); len(keys) > 0 {
			return alerr.New(alerr.ErrUnsupportedProperty, "property requires a String object").
				WithRelation(relation).
				WithProperty(keys[0]).
				With("object", object)
		}
	}
	for _, c := range def.Constraints {
		if err := constraint.ApplicableTo(c, object); err != nil {
			if e, ok := alerr.As(err); ok {
				return e.WithRelation(relation)
			}
			return err
		}
	}
	return nil
}
