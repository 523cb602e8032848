// Package schema implements the resolved entity/relation catalog.
//
// A Schema owns entity schemas and relation schemas indexed by name. It is
// seeded with the final types and filled by the builder; once built it is
// read-only and safe for concurrent readers. Mutations are not synchronized:
// callers changing a live catalog from several goroutines must serialize
// those calls themselves.
package schema

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/decl"
	"github.com/hlop3z/ercat/internal/types"
)

// Element is implemented by entity and relation schemas.
type Element interface {
	Name() string
	Description() string
	IsMeta() bool
	IsFinal() bool
}

// Schema is the catalog root.
type Schema struct {
	name      string
	entities  map[string]*EntitySchema
	relations map[string]*RelationSchema
	clock     func() time.Time
}

var _ decl.Target = (*Schema)(nil)

// Option configures a Schema.
type Option func(*Schema)

// WithClock sets the clock used to evaluate NOW/TODAY default keywords.
func WithClock(clock func() time.Time) Option {
	return func(s *Schema) { s.clock = clock }
}

// New returns a catalog seeded with the final types.
func New(name string, opts ...Option) *Schema {
	s := &Schema{
		name:      name,
		entities:  make(map[string]*EntitySchema),
		relations: make(map[string]*RelationSchema),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, n := range types.Names() {
		es := newEntitySchema(s, &decl.EntityType{Name: n, Meta: true})
		es.final = true
		es.groups = decl.EntityDefaults(true, true)
		s.entities[n] = es
	}
	return s
}

// Name returns the catalog name, usually the application identifier.
func (s *Schema) Name() string { return s.name }

// -----------------------------------------------------------------------------
// Building
// -----------------------------------------------------------------------------

// AddEntityType creates the entity schema for e. Names are unique.
func (s *Schema) AddEntityType(e *decl.EntityType) (*EntitySchema, error) {
	if _, ok := s.entities[e.Name]; ok {
		return nil, alerr.New(alerr.ErrDefinitionConflict, "entity type is already defined").
			WithEntity(e.Name)
	}
	es := newEntitySchema(s, e)
	s.entities[e.Name] = es
	return es, nil
}

// AddRelationType creates the relation schema for r. Names are unique.
func (s *Schema) AddRelationType(r *decl.RelationType) (*RelationSchema, error) {
	if _, ok := s.relations[r.Name]; ok {
		return nil, alerr.New(alerr.ErrDefinitionConflict, "relation type is already defined").
			WithRelation(r.Name)
	}
	rs := newRelationSchema(s, r)
	s.relations[r.Name] = rs
	return rs, nil
}

// AddRelationDef registers the pair e describes on its relation schema and
// updates the endpoint indexes.
func (s *Schema) AddRelationDef(e *decl.Edge) error {
	rs, ok := s.relations[e.Name]
	if !ok {
		return alerr.New(alerr.ErrUnknownRelation, "using unknown relation type").
			WithRelation(e.Name).
			WithHelp(alerr.SuggestSimilar(e.Name, s.RelationNames()))
	}
	subj, err := s.endpoint(e.Subject, e.Name)
	if err != nil {
		return err
	}
	obj, err := s.endpoint(e.Object, e.Name)
	if err != nil {
		return err
	}
	return rs.update(subj, obj, e)
}

func (s *Schema) endpoint(name, relation string) (*EntitySchema, error) {
	if es, ok := s.entities[name]; ok {
		return es, nil
	}
	return nil, alerr.Newf(alerr.ErrUnknownType, "using unknown type %s in relation %s", name, relation).
		WithEntity(name).
		WithRelation(relation).
		WithHelp(alerr.SuggestSimilar(name, s.EntityNames()))
}

// DelRelationDef removes a pair. Removing the last pair of a relation type
// removes the relation type itself.
func (s *Schema) DelRelationDef(subject, name, object string) error {
	rs, err := s.RelationSchema(name)
	if err != nil {
		return err
	}
	if err := rs.delPair(subject, object); err != nil {
		return err
	}
	if len(rs.pairs) == 0 {
		delete(s.relations, name)
	}
	return nil
}

// DelRelationType removes a relation type and all its pairs.
func (s *Schema) DelRelationType(name string) error {
	rs, err := s.RelationSchema(name)
	if err != nil {
		return err
	}
	for _, key := range rs.RDefs() {
		if _, ok := rs.pairs[key]; !ok {
			continue // removed with its symmetric reverse
		}
		if err := rs.delPair(key.Subject, key.Object); err != nil {
			return err
		}
	}
	delete(s.relations, name)
	return nil
}

// DelEntityType removes an entity type and every pair it takes part in. A
// type still specialized by other types cannot be removed.
func (s *Schema) DelEntityType(name string) error {
	es, err := s.EntitySchema(name)
	if err != nil {
		return err
	}
	if es.final {
		return alerr.New(alerr.ErrFinalEntity, "final types cannot be removed").WithEntity(name)
	}
	var specializedBy []string
	for _, n := range s.EntityNames() {
		if s.entities[n].specializes == name {
			specializedBy = append(specializedBy, n)
		}
	}
	if len(specializedBy) > 0 {
		return alerr.New(alerr.ErrDefinitionConflict, "entity type is specialized by other types").
			WithEntity(name).
			With("specialized_by", strings.Join(specializedBy, ", ")).
			WithHelp("remove or re-parent the specializing types first")
	}
	for _, rs := range slices.Concat(es.subjRels, es.objRels) {
		for _, key := range rs.RDefs() {
			if key.Subject != name && key.Object != name {
				continue
			}
			if _, ok := rs.pairs[key]; !ok {
				continue
			}
			if err := s.DelRelationDef(key.Subject, rs.name, key.Object); err != nil {
				return err
			}
		}
	}
	for _, other := range s.entities {
		other.children = slices.DeleteFunc(other.children, func(c string) bool { return c == name })
	}
	delete(s.entities, name)
	return nil
}

// SetDefaultPermissions gives the built-in defaults to every entity and
// relation schema without permissions.
func (s *Schema) SetDefaultPermissions() {
	for _, es := range s.entities {
		if es.groups == nil {
			es.groups = decl.EntityDefaults(es.final, es.meta)
		}
	}
	for _, rs := range s.relations {
		if rs.groups == nil {
			rs.groups = decl.RelationDefaults(rs.final, rs.meta)
		}
	}
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

// Entities returns the entity schemas sorted by name.
func (s *Schema) Entities() []*EntitySchema {
	out := make([]*EntitySchema, 0, len(s.entities))
	for _, n := range s.EntityNames() {
		out = append(out, s.entities[n])
	}
	return out
}

// EntityNames returns the entity type names, sorted.
func (s *Schema) EntityNames() []string {
	return slices.Sorted(maps.Keys(s.entities))
}

// Relations returns the relation schemas sorted by name.
func (s *Schema) Relations() []*RelationSchema {
	out := make([]*RelationSchema, 0, len(s.relations))
	for _, n := range s.RelationNames() {
		out = append(out, s.relations[n])
	}
	return out
}

// RelationNames returns the relation type names, sorted.
func (s *Schema) RelationNames() []string {
	return slices.Sorted(maps.Keys(s.relations))
}

// FinalRelations returns the attribute relations, sorted by name.
func (s *Schema) FinalRelations() []*RelationSchema {
	return slices.DeleteFunc(s.Relations(), func(r *RelationSchema) bool { return !r.final })
}

// NonFinalRelations returns the non attribute relations, sorted by name.
func (s *Schema) NonFinalRelations() []*RelationSchema {
	return slices.DeleteFunc(s.Relations(), func(r *RelationSchema) bool { return r.final })
}

// HasEntity reports whether name is an entity type.
func (s *Schema) HasEntity(name string) bool {
	_, ok := s.entities[name]
	return ok
}

// HasRelation reports whether name is a relation type.
func (s *Schema) HasRelation(name string) bool {
	_, ok := s.relations[name]
	return ok
}

// EntitySchema returns the named entity schema.
func (s *Schema) EntitySchema(name string) (*EntitySchema, error) {
	if es, ok := s.entities[name]; ok {
		return es, nil
	}
	return nil, alerr.New(alerr.ErrUnknownType, "unknown entity type").
		WithEntity(name).
		WithHelp(alerr.SuggestSimilar(name, s.EntityNames()))
}

// RelationSchema returns the named relation schema.
func (s *Schema) RelationSchema(name string) (*RelationSchema, error) {
	if rs, ok := s.relations[name]; ok {
		return rs, nil
	}
	return nil, alerr.New(alerr.ErrUnknownRelation, "unknown relation type").
		WithRelation(name).
		WithHelp(alerr.SuggestSimilar(name, s.RelationNames()))
}

// Get returns the entity or, failing that, the relation schema called name.
func (s *Schema) Get(name string) (Element, error) {
	if es, ok := s.entities[name]; ok {
		return es, nil
	}
	if rs, ok := s.relations[name]; ok {
		return rs, nil
	}
	return nil, alerr.New(alerr.ErrUnknownType, "unknown entity or relation type").
		With("name", name).
		WithHelp(alerr.SuggestSimilar(name, slices.Concat(s.EntityNames(), s.RelationNames())))
}

// IsFinalType reports whether name is a final entity type.
func (s *Schema) IsFinalType(name string) bool {
	es, ok := s.entities[name]
	return ok && es.final
}

// IsMetaType reports whether name is a meta entity type.
func (s *Schema) IsMetaType(name string) bool {
	es, ok := s.entities[name]
	return ok && es.meta
}
