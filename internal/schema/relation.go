package schema

import (
	"slices"
	"strings"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/decl"
)

// PhysicalMode tells storage backends where the relation lives.
type PhysicalMode string

const (
	// JoinTable: neither side is single valued.
	JoinTable PhysicalMode = ""
	// SubjectInline: the subject side is single valued, the object
	// reference can live on the subject row.
	SubjectInline PhysicalMode = "subjectinline"
	// ObjectInline: the object side is single valued.
	ObjectInline PhysicalMode = "objectinline"
)

// PairKey identifies a (subject, object) pair of a relation.
type PairKey struct {
	Subject string
	Object  string
}

func (k PairKey) reverse() PairKey { return PairKey{k.Object, k.Subject} }

// RelationSchema is the resolved form of a relation type, holding the
// properties of every registered (subject, object) pair.
type RelationSchema struct {
	access

	schema            *Schema
	name              string
	description       string
	symmetric         bool
	inlined           bool
	meta              bool
	final             bool
	fulltextContainer decl.Role
	source            decl.Location

	pairs map[PairKey]*Pair
	order []PairKey
	mode  PhysicalMode
}

func newRelationSchema(s *Schema, r *decl.RelationType) *RelationSchema {
	rs := &RelationSchema{
		access:    access{actions: decl.RelationActions, groups: r.Props.Permissions.Clone()},
		schema:    s,
		name:      r.Name,
		symmetric: r.Props.IsSymmetric(),
		inlined:   r.Props.IsInlined(),
		meta:      r.Props.IsMeta(),
		source:    r.Source,
		pairs:     make(map[PairKey]*Pair),
	}
	if r.Props.Description != nil {
		rs.description = *r.Props.Description
	}
	if r.Props.FulltextContainer != nil {
		rs.fulltextContainer = *r.Props.FulltextContainer
	}
	return rs
}

func (r *RelationSchema) Name() string                 { return r.name }
func (r *RelationSchema) Description() string          { return r.description }
func (r *RelationSchema) IsMeta() bool                 { return r.meta }
func (r *RelationSchema) IsFinal() bool                { return r.final }
func (r *RelationSchema) IsSymmetric() bool            { return r.symmetric }
func (r *RelationSchema) IsInlined() bool              { return r.inlined }
func (r *RelationSchema) FulltextContainer() decl.Role { return r.fulltextContainer }
func (r *RelationSchema) Source() decl.Location        { return r.source }
func (r *RelationSchema) String() string               { return r.name }

// PhysicalMode reports how the relation may be stored. Final relations are
// attribute columns and report JoinTable.
func (r *RelationSchema) PhysicalMode() PhysicalMode { return r.mode }

// RDefs returns the registered pairs in registration order.
func (r *RelationSchema) RDefs() []PairKey { return slices.Clone(r.order) }

// InferedPairs returns the pairs added by specialization inference.
func (r *RelationSchema) InferedPairs() []PairKey {
	var out []PairKey
	for _, k := range r.order {
		if r.pairs[k].Infered {
			out = append(out, k)
		}
	}
	return out
}

// SubjectTypes returns the subject type names, in registration order. A
// non empty object restricts them to the subjects of that object.
func (r *RelationSchema) SubjectTypes(object string) []string {
	var out []string
	for _, k := range r.order {
		if (object == "" || k.Object == object) && !slices.Contains(out, k.Subject) {
			out = append(out, k.Subject)
		}
	}
	return out
}

// ObjectTypes returns the object type names, in registration order. A non
// empty subject restricts them to the objects of that subject.
func (r *RelationSchema) ObjectTypes(subject string) []string {
	var out []string
	for _, k := range r.order {
		if (subject == "" || k.Subject == subject) && !slices.Contains(out, k.Object) {
			out = append(out, k.Object)
		}
	}
	return out
}

// Subjects is SubjectTypes returning entity schemas.
func (r *RelationSchema) Subjects(object string) []*EntitySchema {
	return r.schemas(r.SubjectTypes(object))
}

// Objects is ObjectTypes returning entity schemas.
func (r *RelationSchema) Objects(subject string) []*EntitySchema {
	return r.schemas(r.ObjectTypes(subject))
}

func (r *RelationSchema) schemas(names []string) []*EntitySchema {
	out := make([]*EntitySchema, 0, len(names))
	for _, n := range names {
		if es, ok := r.schema.entities[n]; ok {
			out = append(out, es)
		}
	}
	return out
}

// Association lists the object types of one subject type.
type Association struct {
	Subject string
	Objects []string
}

// AssociationTypes returns every subject with its objects, in registration
// order.
func (r *RelationSchema) AssociationTypes() []Association {
	subjects := r.SubjectTypes("")
	out := make([]Association, len(subjects))
	for i, s := range subjects {
		out[i] = Association{Subject: s, Objects: r.ObjectTypes(s)}
	}
	return out
}

// RProperties returns the pair (subject, object).
func (r *RelationSchema) RProperties(subject, object string) (*Pair, error) {
	if p, ok := r.pairs[PairKey{subject, object}]; ok {
		return p, nil
	}
	return nil, alerr.Newf(alerr.ErrUnknownRelation, "no relation definition %s %s %s", subject, r.name, object).
		WithRelation(r.name)
}

// RProperty returns one property of the pair (subject, object).
func (r *RelationSchema) RProperty(subject, object, key string) (any, error) {
	p, err := r.RProperties(subject, object)
	if err != nil {
		return nil, err
	}
	return p.Get(key)
}

// SetRProperty changes one property of the pair (subject, object).
func (r *RelationSchema) SetRProperty(subject, object, key string, value any) error {
	p, err := r.RProperties(subject, object)
	if err != nil {
		return err
	}
	if err := p.Set(key, value); err != nil {
		if e, ok := alerr.As(err); ok {
			e.WithRelation(r.name)
		}
		return err
	}
	r.computeMode()
	return nil
}

// -----------------------------------------------------------------------------
// Pair registration
// -----------------------------------------------------------------------------

// update registers the pair described by e. The first pair decides whether
// the relation is final; symmetric relations also register the reverse
// pair and list the relation as a subject relation of both ends.
func (r *RelationSchema) update(subj, obj *EntitySchema, e *decl.Edge) error {
	if subj.final {
		return alerr.New(alerr.ErrFinalSubject, "final type cannot be the subject of a relation").
			WithEntity(subj.name).
			WithRelation(r.name)
	}
	if len(r.pairs) > 0 && r.final != obj.final {
		return alerr.New(alerr.ErrAmbiguousRelation, "relation mixes final and non final object types").
			WithRelation(r.name).
			With("objects", obj.name+"/"+r.ObjectTypes("")[0])
	}
	p := &Pair{
		Subject:          subj.name,
		Object:           obj.name,
		RelationDefProps: e.Def.Clone(),
		Infered:          e.Infered,
		Source:           e.Source,
	}
	key := PairKey{subj.name, obj.name}
	if !r.symmetric {
		if _, ok := r.pairs[key]; ok {
			return alerr.New(alerr.ErrDefinitionConflict, "relation definition already registered").
				WithRelation(r.name).
				With("definition", e.String())
		}
		r.add(key, p)
		subj.subjRels = appendOnce(subj.subjRels, r)
		obj.objRels = appendOnce(obj.objRels, r)
	} else {
		if obj.final {
			return alerr.New(alerr.ErrFinalSubject, "symmetric relation cannot target a final type").
				WithEntity(obj.name).
				WithRelation(r.name)
		}
		rev := *p
		rev.Subject, rev.Object = p.Object, p.Subject
		rev.RelationDefProps = p.RelationDefProps.Clone()
		for _, q := range []*Pair{p, &rev} {
			k := PairKey{q.Subject, q.Object}
			if prev, ok := r.pairs[k]; ok {
				if !sameProps(prev.RelationDefProps, q.RelationDefProps) {
					return alerr.New(alerr.ErrDefinitionConflict, "symmetric relation definitions disagree").
						WithRelation(r.name).
						With("definition", e.String())
				}
				continue
			}
			r.add(k, q)
		}
		subj.subjRels = appendOnce(subj.subjRels, r)
		obj.subjRels = appendOnce(obj.subjRels, r)
	}
	r.final = obj.final
	r.computeMode()
	return nil
}

func (r *RelationSchema) add(k PairKey, p *Pair) {
	r.pairs[k] = p
	r.order = append(r.order, k)
}

// delPair removes (subject, object), and its reverse for symmetric
// relations, then drops the relation from endpoint indexes it no longer
// applies to.
func (r *RelationSchema) delPair(subject, object string) error {
	key := PairKey{subject, object}
	if _, ok := r.pairs[key]; !ok {
		return alerr.Newf(alerr.ErrUnknownRelation, "no relation definition %s %s %s", subject, r.name, object).
			WithRelation(r.name)
	}
	keys := []PairKey{key}
	if r.symmetric {
		keys = append(keys, key.reverse())
	}
	for _, k := range keys {
		delete(r.pairs, k)
		r.order = slices.DeleteFunc(r.order, func(o PairKey) bool { return o == k })
	}
	for _, name := range []string{subject, object} {
		es, ok := r.schema.entities[name]
		if !ok {
			continue
		}
		if len(r.ObjectTypes(name)) == 0 {
			es.subjRels = slices.DeleteFunc(es.subjRels, func(o *RelationSchema) bool { return o == r })
		}
		if len(r.SubjectTypes(name)) == 0 {
			es.objRels = slices.DeleteFunc(es.objRels, func(o *RelationSchema) bool { return o == r })
		}
	}
	if len(r.pairs) == 0 {
		r.final = false
	}
	r.computeMode()
	return nil
}

// computeMode derives the physical mode from the pair cardinalities.
func (r *RelationSchema) computeMode() {
	r.mode = JoinTable
	if r.final || len(r.pairs) == 0 {
		return
	}
	subject, object := true, true
	for _, p := range r.pairs {
		if len(p.Cardinality) != 2 {
			return
		}
		subject = subject && strings.ContainsRune("1?", rune(p.Cardinality[0]))
		object = object && strings.ContainsRune("1?", rune(p.Cardinality[1]))
	}
	switch {
	case subject:
		r.mode = SubjectInline
	case object:
		r.mode = ObjectInline
	}
}

// sameProps compares pair properties ignoring the declaration order.
func sameProps(a, b decl.RelationDefProps) bool {
	a.Order = b.Order
	return a.Equal(b)
}

func appendOnce(rels []*RelationSchema, r *RelationSchema) []*RelationSchema {
	if slices.Contains(rels, r) {
		return rels
	}
	return append(rels, r)
}

func joinNames(names []string) string { return strings.Join(names, ",") }
