package decl

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/constraint"
	"github.com/hlop3z/ercat/internal/types"
)

// Relation is a relation declared on an entity type. A subject side relation
// links the owning entity to Target; an object side relation links Target to
// the owning entity. The name is assigned when the relation is added to its
// entity type.
type Relation struct {
	Name   string
	Side   Role
	Target TypeSpec
	// Rank is the creation rank; relations of an entity type are ordered by it.
	Rank int
	// Override replaces an inherited relation of the same name and side while
	// keeping its rank.
	Override bool
	Type     RelationTypeProps
	Def      RelationDefProps
	Source   Location
}

// Clone returns a deep copy.
func (r *Relation) Clone() *Relation {
	c := *r
	c.Target = r.Target.clone()
	c.Def = r.Def.Clone()
	c.Type.Permissions = r.Type.Permissions.Clone()
	return &c
}

func (r *Relation) String() string {
	if r.Side == Object {
		return fmt.Sprintf("%s %s", r.Target, r.Name)
	}
	return fmt.Sprintf("%s %s", r.Name, r.Target)
}

// RelationOptions configures a generic subject or object relation.
type RelationOptions struct {
	Cardinality string
	Constraints []constraint.Constraint
	Composite   Role
	Order       int
	Description string

	// Final only properties, subject relations only.
	Default             any
	UID                 bool
	Indexed             bool
	FulltextIndexed     bool
	Internationalizable bool

	// Shared relation type properties.
	Symmetric         *bool
	Inlined           *bool
	Meta              *bool
	FulltextContainer Role
	Permissions       Permissions

	Override bool
	Source   Location
}

// SubjectRelation declares a relation from the owning entity to target.
func SubjectRelation(seq *Sequence, target TypeSpec, opts RelationOptions) (*Relation, error) {
	return newRelation(seq, Subject, target, opts)
}

// ObjectRelation declares a relation from target to the owning entity.
func ObjectRelation(seq *Sequence, target TypeSpec, opts RelationOptions) (*Relation, error) {
	return newRelation(seq, Object, target, opts)
}

func newRelation(seq *Sequence, side Role, target TypeSpec, opts RelationOptions) (*Relation, error) {
	if target.IsZero() {
		return nil, alerr.New(alerr.ErrMalformedProperty, "relation target is required").
			With("side", string(side))
	}
	r := &Relation{
		Side:     side,
		Target:   target,
		Rank:     seq.Next(),
		Override: opts.Override,
		Source:   opts.Source,
		Type: RelationTypeProps{
			Symmetric:   opts.Symmetric,
			Inlined:     opts.Inlined,
			Meta:        opts.Meta,
			Permissions: opts.Permissions.Clone(),
		},
		Def: RelationDefProps{
			Cardinality:         opts.Cardinality,
			Composite:           opts.Composite,
			Order:               opts.Order,
			Description:         opts.Description,
			Default:             opts.Default,
			UID:                 opts.UID,
			Indexed:             opts.Indexed,
			FulltextIndexed:     opts.FulltextIndexed,
			Internationalizable: opts.Internationalizable,
		},
	}
	if opts.FulltextContainer != "" {
		r.Type.FulltextContainer = Ptr(opts.FulltextContainer)
	}
	for _, c := range opts.Constraints {
		r.Def.Constraints.Add(c)
	}
	if side == Object {
		if keys := r.Def.finalOnly(); len(keys) > 0 {
			return nil, opts.Source.Attach(alerr.New(alerr.ErrUnsupportedProperty, "property is not accepted by object relations").
				WithProperty(keys[0]))
		}
	}
	if err := r.validate(); err != nil {
		return nil, opts.Source.Attach(err)
	}
	return r, nil
}

func (r *Relation) validate() error {
	if err := r.Def.validate(); err != nil {
		return err
	}
	return r.Type.validate()
}

// AttrOptions configures a typed attribute.
type AttrOptions struct {
	Required bool
	// MaxSize adds a size constraint when positive.
	MaxSize int
	// Vocabulary adds a static vocabulary constraint when non-nil.
	Vocabulary  []string
	Unique      bool
	Constraints []constraint.Constraint

	Default             any
	UID                 bool
	Indexed             bool
	FulltextIndexed     bool
	Internationalizable bool
	Description         string
	Order               int
	Meta                bool
	Permissions         Permissions

	Override bool
	Source   Location
}

// Attribute declares a subject relation to the final type scalar.
// Required gives cardinality "11", otherwise "?1". MaxSize, Vocabulary and
// Unique synthesize constraints, replacing any explicit constraint of the
// same kind. A String vocabulary also bounds the size to its longest entry
// unless MaxSize is set.
func Attribute(seq *Sequence, scalar string, opts AttrOptions) (*Relation, error) {
	if _, err := types.Lookup(scalar); err != nil {
		return nil, opts.Source.Attach(err)
	}
	if scalar != types.String {
		if r := (RelationDefProps{FulltextIndexed: opts.FulltextIndexed, Internationalizable: opts.Internationalizable}).stringOnly(); len(r) > 0 {
			return nil, opts.Source.Attach(alerr.New(alerr.ErrUnsupportedProperty, "property requires a String attribute").
				WithProperty(r[0]).
				With("type", scalar))
		}
	}

	card := DefaultFinalCardinality
	if opts.Required {
		card = "11"
	}
	var cstrs constraint.Set
	for _, c := range opts.Constraints {
		cstrs.Add(c)
	}
	if opts.MaxSize > 0 {
		cstrs.Add(constraint.MaxSize(opts.MaxSize))
	}
	if opts.Vocabulary != nil {
		v, err := constraint.NewStaticVocabulary(opts.Vocabulary...)
		if err != nil {
			return nil, opts.Source.Attach(err)
		}
		cstrs.Add(v)
		if scalar == types.String && opts.MaxSize <= 0 {
			longest := 0
			for _, s := range opts.Vocabulary {
				longest = max(longest, utf8.RuneCountInString(s))
			}
			cstrs.Add(constraint.MaxSize(longest))
		}
	}
	if opts.Unique {
		cstrs.Add(constraint.Unique{})
	}

	r := &Relation{
		Side:     Subject,
		Target:   Types(scalar),
		Rank:     seq.Next(),
		Override: opts.Override,
		Source:   opts.Source,
		Type:     RelationTypeProps{Permissions: opts.Permissions.Clone()},
		Def: RelationDefProps{
			Cardinality:         card,
			Constraints:         cstrs,
			Order:               opts.Order,
			Description:         opts.Description,
			Default:             opts.Default,
			UID:                 opts.UID,
			Indexed:             opts.Indexed,
			FulltextIndexed:     opts.FulltextIndexed,
			Internationalizable: opts.Internationalizable,
		},
	}
	if opts.Meta {
		r.Type.Meta = Ptr(true)
	}
	if err := r.validate(); err != nil {
		return nil, opts.Source.Attach(err)
	}
	return r, nil
}

// BothWayRelation bundles a subject side and an object side relation
// declared under one name.
type BothWayRelation struct {
	Subject *Relation
	Object  *Relation
}

// BothWay pairs a subject relation with an object relation. The object
// relation takes the subject's rank so both keep their position among
// sibling declarations.
func BothWay(subject, object *Relation) (BothWayRelation, error) {
	if subject == nil || object == nil || subject.Side != Subject || object.Side != Object {
		return BothWayRelation{}, alerr.New(alerr.ErrMalformedProperty, "both-way relation needs a subject and an object relation")
	}
	object.Rank = subject.Rank
	return BothWayRelation{Subject: subject, Object: object}, nil
}

func sortByRank(rels []*Relation) {
	slices.SortStableFunc(rels, func(a, b *Relation) int { return a.Rank - b.Rank })
}
