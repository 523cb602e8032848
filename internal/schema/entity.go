package schema

import (
	"math"
	"slices"
	"sort"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/constraint"
	"github.com/hlop3z/ercat/internal/decl"
)

// EntitySchema is the resolved form of an entity type.
type EntitySchema struct {
	access

	schema      *Schema
	name        string
	description string
	meta        bool
	final       bool
	specializes string
	children    []string
	source      decl.Location

	// relations where this type is a subject (symmetric relations included)
	// or an object, in registration order
	subjRels []*RelationSchema
	objRels  []*RelationSchema
}

func newEntitySchema(s *Schema, e *decl.EntityType) *EntitySchema {
	return &EntitySchema{
		access:      access{actions: decl.EntityActions, groups: e.Permissions.Clone()},
		schema:      s,
		name:        e.Name,
		description: e.Description,
		meta:        e.Meta,
		specializes: e.Specializes,
		source:      e.Source,
	}
}

func (e *EntitySchema) Name() string          { return e.name }
func (e *EntitySchema) Description() string   { return e.description }
func (e *EntitySchema) IsMeta() bool          { return e.meta }
func (e *EntitySchema) IsFinal() bool         { return e.final }
func (e *EntitySchema) Source() decl.Location { return e.source }
func (e *EntitySchema) String() string        { return e.name }

// SpecializesName returns the parent type name, or "".
func (e *EntitySchema) SpecializesName() string { return e.specializes }

// Specializes returns the parent entity schema, or nil.
func (e *EntitySchema) Specializes() *EntitySchema {
	if e.specializes == "" {
		return nil
	}
	return e.schema.entities[e.specializes]
}

// Ancestors returns the specialization chain from the parent upwards.
func (e *EntitySchema) Ancestors() []string {
	var out []string
	seen := map[string]bool{e.name: true}
	for p := e.Specializes(); p != nil && !seen[p.name]; p = p.Specializes() {
		seen[p.name] = true
		out = append(out, p.name)
	}
	return out
}

// SpecializedBy returns the types specializing this one, sorted. With
// recursive set the whole subtree is returned.
func (e *EntitySchema) SpecializedBy(recursive bool) []string {
	out := slices.Clone(e.children)
	if recursive {
		seen := map[string]bool{e.name: true}
		for i := 0; i < len(out); i++ {
			seen[out[i]] = true
			if c, ok := e.schema.entities[out[i]]; ok {
				for _, gc := range c.children {
					if !seen[gc] {
						out = append(out, gc)
					}
				}
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// -----------------------------------------------------------------------------
// Relations
// -----------------------------------------------------------------------------

// SubjectRelations returns the relations this type is subject of, in
// registration order.
func (e *EntitySchema) SubjectRelations() []*RelationSchema { return slices.Clone(e.subjRels) }

// ObjectRelations returns the relations this type is object of, in
// registration order.
func (e *EntitySchema) ObjectRelations() []*RelationSchema { return slices.Clone(e.objRels) }

// SubjectRelation returns the named relation this type is subject of.
func (e *EntitySchema) SubjectRelation(name string) (*RelationSchema, error) {
	return e.lookup(e.subjRels, name, decl.Subject)
}

// ObjectRelation returns the named relation this type is object of.
func (e *EntitySchema) ObjectRelation(name string) (*RelationSchema, error) {
	return e.lookup(e.objRels, name, decl.Object)
}

func (e *EntitySchema) lookup(rels []*RelationSchema, name string, role decl.Role) (*RelationSchema, error) {
	for _, r := range rels {
		if r.name == name {
			return r, nil
		}
	}
	names := make([]string, len(rels))
	for i, r := range rels {
		names[i] = r.name
	}
	return nil, alerr.Newf(alerr.ErrUnknownRelation, "%s is not %s of any relation called %s", e.name, role, name).
		WithEntity(e.name).
		WithRelation(name).
		WithHelp(alerr.SuggestSimilar(name, names))
}

// HasSubjectRelation reports whether this type is subject of name.
func (e *EntitySchema) HasSubjectRelation(name string) bool {
	_, err := e.SubjectRelation(name)
	return err == nil
}

// HasObjectRelation reports whether this type is object of name.
func (e *EntitySchema) HasObjectRelation(name string) bool {
	_, err := e.ObjectRelation(name)
	return err == nil
}

// OrderedRelations returns the subject relations sorted by the order
// property of their first pair for this type. Unordered relations come last
// and ties keep registration order.
func (e *EntitySchema) OrderedRelations() []*RelationSchema {
	out := slices.Clone(e.subjRels)
	order := make(map[string]int, len(out))
	for _, r := range out {
		order[r.name] = math.MaxInt
		if objs := r.ObjectTypes(e.name); len(objs) > 0 {
			if o := r.pairs[PairKey{e.name, objs[0]}].Order; o > 0 {
				order[r.name] = o
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return order[out[i].name] < order[out[j].name] })
	return out
}

// AttributeDef is a final relation of an entity and its scalar type.
type AttributeDef struct {
	Relation *RelationSchema
	Type     *EntitySchema
}

// RelationDef is a non final relation of an entity seen from one side, with
// the entity types at the other end.
type RelationDef struct {
	Relation *RelationSchema
	Role     decl.Role
	Targets  []*EntitySchema
}

// AttributeDefinitions returns the attributes in order.
func (e *EntitySchema) AttributeDefinitions() []AttributeDef {
	var out []AttributeDef
	for _, r := range e.OrderedRelations() {
		if !r.final {
			continue
		}
		if objs := r.Objects(e.name); len(objs) > 0 {
			out = append(out, AttributeDef{Relation: r, Type: objs[0]})
		}
	}
	return out
}

// RelationDefinitions returns the non final subject relations in order,
// followed by the object relations.
func (e *EntitySchema) RelationDefinitions() []RelationDef {
	var out []RelationDef
	for _, r := range e.OrderedRelations() {
		if !r.final {
			out = append(out, RelationDef{Relation: r, Role: decl.Subject, Targets: r.Objects(e.name)})
		}
	}
	for _, r := range e.objRels {
		out = append(out, RelationDef{Relation: r, Role: decl.Object, Targets: r.Subjects(e.name)})
	}
	return out
}

// DestinationType returns the scalar type of the attribute rtype.
func (e *EntitySchema) DestinationType(rtype string) (string, error) {
	r, err := e.SubjectRelation(rtype)
	if err != nil {
		return "", err
	}
	if !r.final {
		return "", alerr.New(alerr.ErrNotAttribute, "relation is not an attribute").
			WithEntity(e.name).
			WithRelation(rtype)
	}
	return r.ObjectTypes(e.name)[0], nil
}

// RProperties returns the pair of rtype linking this type to its single
// target. Non final relations with several targets are ambiguous.
func (e *EntitySchema) RProperties(rtype string) (*Pair, error) {
	r, err := e.SubjectRelation(rtype)
	if err != nil {
		return nil, err
	}
	objs := r.ObjectTypes(e.name)
	if len(objs) != 1 {
		return nil, alerr.New(alerr.ErrAmbiguousRelation, "relation has several object types").
			WithEntity(e.name).
			WithRelation(rtype).
			With("objects", joinNames(objs))
	}
	return r.RProperties(e.name, objs[0])
}

// RProperty returns one property of the pair returned by RProperties.
func (e *EntitySchema) RProperty(rtype, key string) (any, error) {
	p, err := e.RProperties(rtype)
	if err != nil {
		return nil, err
	}
	return p.Get(key)
}

// Constraints returns the constraints of the attribute rtype.
func (e *EntitySchema) Constraints(rtype string) (constraint.Set, error) {
	if e.final {
		return nil, alerr.New(alerr.ErrFinalEntity, "final types have no attributes").WithEntity(e.name)
	}
	if _, err := e.DestinationType(rtype); err != nil {
		return nil, err
	}
	p, err := e.RProperties(rtype)
	if err != nil {
		return nil, err
	}
	return p.Constraints.Clone(), nil
}

// Vocabulary returns the allowed values of the attribute rtype, or nil when
// it has no vocabulary constraint.
func (e *EntitySchema) Vocabulary(rtype string) ([]string, error) {
	cs, err := e.Constraints(rtype)
	if err != nil {
		return nil, err
	}
	if v, ok := cs.Vocabulary(); ok {
		return v.Vocabulary(e), nil
	}
	return nil, nil
}

// MainAttribute returns the first non meta attribute, or "" if none.
func (e *EntitySchema) MainAttribute() string {
	for _, a := range e.AttributeDefinitions() {
		if !a.Relation.meta {
			return a.Relation.name
		}
	}
	return ""
}

// IndexableAttributes returns the attributes flagged for full text indexing.
func (e *EntitySchema) IndexableAttributes() []string {
	var out []string
	for _, a := range e.AttributeDefinitions() {
		if p, _ := a.Relation.RProperties(e.name, a.Type.name); p != nil && p.FulltextIndexed {
			out = append(out, a.Relation.name)
		}
	}
	return out
}

// FulltextContainer is a relation through which this type collects the
// indexed text of the entities at the other end.
type FulltextContainer struct {
	Relation *RelationSchema
	Role     decl.Role
}

// FulltextContainers returns the relations naming this type's side as
// fulltext container.
func (e *EntitySchema) FulltextContainers() []FulltextContainer {
	var out []FulltextContainer
	for _, r := range e.OrderedRelations() {
		if !r.final && r.fulltextContainer == decl.Subject {
			out = append(out, FulltextContainer{Relation: r, Role: decl.Subject})
		}
	}
	for _, r := range e.objRels {
		if r.fulltextContainer == decl.Object {
			out = append(out, FulltextContainer{Relation: r, Role: decl.Object})
		}
	}
	return out
}
