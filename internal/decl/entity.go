package decl

import (
	"slices"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/validate"
)

// EntityType declares an entity type and the relations attached to it.
type EntityType struct {
	Name        string
	Description string
	Meta        bool
	Permissions Permissions
	// Specializes names the parent entity type, if any.
	Specializes string
	Source      Location

	relations []*Relation
}

// NewEntityType returns an empty entity type declaration.
func NewEntityType(name string) *EntityType {
	return &EntityType{Name: name}
}

// ApplyPreset sets the preset's permissions and meta flag.
func (e *EntityType) ApplyPreset(p Preset) error {
	if p.Relation {
		return alerr.New(alerr.ErrInvalidPermission, "relation preset applied to an entity type").
			WithEntity(e.Name).
			With("preset", p.Name)
	}
	e.Permissions = p.Permissions.Clone()
	e.Meta = e.Meta || p.Meta
	return nil
}

// Add attaches rel under name. An empty name keeps the relation's own.
func (e *EntityType) Add(name string, rel *Relation) error {
	if rel == nil {
		return alerr.New(alerr.EInternalError, "nil relation").WithEntity(e.Name)
	}
	if name != "" {
		rel.Name = name
	}
	if err := validate.RelationName(rel.Name); err != nil {
		return rel.Source.Attach(alerr.Wrap(alerr.GetErrorCode(err), err, "invalid relation name").WithEntity(e.Name))
	}
	e.relations = append(e.relations, rel)
	return nil
}

// AddBothWay attaches both halves of bw under name.
func (e *EntityType) AddBothWay(name string, bw BothWayRelation) error {
	if err := e.Add(name, bw.Subject); err != nil {
		return err
	}
	return e.Add(name, bw.Object)
}

// Remove detaches every relation called name and returns how many were
// removed.
func (e *EntityType) Remove(name string) int {
	n := len(e.relations)
	e.relations = slices.DeleteFunc(e.relations, func(r *Relation) bool { return r.Name == name })
	return n - len(e.relations)
}

// Relations returns the attached relations sorted by creation rank.
func (e *EntityType) Relations() []*Relation {
	out := slices.Clone(e.relations)
	sortByRank(out)
	return out
}

// Relation returns the relation called name on the given side, or nil.
func (e *EntityType) Relation(name string, side Role) *Relation {
	for _, r := range e.relations {
		if r.Name == name && r.Side == side {
			return r
		}
	}
	return nil
}

// Inherit merges the relations of parents into e. Relations of e come first;
// each parent relation is then appended unless e re-declares it with
// Override, in which case the override takes the parent's rank. The result
// is sorted by rank.
func (e *EntityType) Inherit(parents ...*EntityType) {
	e.inherit(parents...)
}

func (e *EntityType) inherit(parents ...*EntityType) []*Relation {
	own := slices.Clone(e.relations)
	var inherited []*Relation
	for _, p := range parents {
		for _, rel := range p.Relations() {
			if o := overriding(own, rel); o != nil {
				o.Rank = rel.Rank
				continue
			}
			c := rel.Clone()
			e.relations = append(e.relations, c)
			inherited = append(inherited, c)
		}
	}
	sortByRank(e.relations)
	return inherited
}

func overriding(own []*Relation, rel *Relation) *Relation {
	for _, o := range own {
		if o.Override && o.Name == rel.Name && o.Side == rel.Side {
			return o
		}
	}
	return nil
}

// Specialize inherits from parent, records the specialization and renames
// the parent to e in the targets of the inherited relations, so that
// "Parent has_a Parent" becomes "Child has_a Child".
func (e *EntityType) Specialize(parent *EntityType) {
	for _, rel := range e.inherit(parent) {
		rel.Target = rel.Target.Replace(parent.Name, e.Name)
	}
	e.Specializes = parent.Name
}

func (e *EntityType) DefName() string    { return e.Name }
func (e *EntityType) Location() Location { return e.Source }
func (e *EntityType) String() string     { return "entity type " + e.Name }

// ExpandTypeDefinitions registers the entity type and a relation type entry
// for each attached relation.
func (e *EntityType) ExpandTypeDefinitions(reg *Registry) error {
	if err := e.Permissions.Validate(EntityActions); err != nil {
		return e.Source.Attach(err)
	}
	if e.Specializes != "" {
		if err := validate.EntityName(e.Specializes); err != nil {
			return e.Source.Attach(err)
		}
	}
	if err := reg.AddEntity(e); err != nil {
		return err
	}
	for _, rel := range e.Relations() {
		src := rel.Source
		if src.IsZero() {
			src = e.Source
		}
		if err := reg.MergeRelationType(rel.Name, rel.Type, nil, src); err != nil {
			return src.Attach(err)
		}
	}
	return nil
}

// ExpandRelationDefinitions turns each attached relation, in rank order,
// into a relation definition and resolves it. Subject side relations without
// an explicit order take their position; object side ones stay unordered.
func (e *EntityType) ExpandRelationDefinitions(reg *Registry, t Target) error {
	self := Types(e.Name)
	for i, rel := range e.Relations() {
		rd := &RelationDefinition{
			Name:   rel.Name,
			Def:    rel.Def.Clone(),
			Source: rel.Source,
		}
		if rd.Source.IsZero() {
			rd.Source = e.Source
		}
		if rel.Side == Object {
			rd.Subject, rd.Object = rel.Target, self
		} else {
			rd.Subject, rd.Object = self, rel.Target
		}
		if rd.Def.Order == 0 && rel.Side != Object {
			rd.Def.Order = i + 1
		}
		if err := resolveDefinition(reg, t, rd); err != nil {
			return rd.Source.Attach(err)
		}
	}
	return nil
}
