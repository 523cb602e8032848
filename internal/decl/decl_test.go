package decl

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/constraint"
	"github.com/hlop3z/ercat/internal/types"
)

// fakeTarget records edges instead of building a catalog.
type fakeTarget struct {
	names []string
	meta  map[string]bool
	edges []*Edge
}

func newFakeTarget(entities ...string) *fakeTarget {
	t := &fakeTarget{meta: map[string]bool{}}
	t.names = append(types.Names(), entities...)
	slices.Sort(t.names)
	return t
}

func (f *fakeTarget) EntityNames() []string        { return f.names }
func (f *fakeTarget) HasEntity(name string) bool   { return slices.Contains(f.names, name) }
func (f *fakeTarget) IsFinalType(name string) bool { return types.IsFinal(name) }
func (f *fakeTarget) IsMetaType(name string) bool  { return f.meta[name] }

func (f *fakeTarget) AddRelationDef(e *Edge) error {
	if !f.HasEntity(e.Object) || !f.HasEntity(e.Subject) {
		return alerr.New(alerr.ErrUnknownType, "using unknown type").WithRelation(e.Name)
	}
	f.edges = append(f.edges, e)
	return nil
}

func (f *fakeTarget) edge(subject, name, object string) *Edge {
	for _, e := range f.edges {
		if e.Subject == subject && e.Name == name && e.Object == object {
			return e
		}
	}
	return nil
}

// expand runs both passes over defs.
func expand(t *testing.T, target *fakeTarget, defs ...Definition) error {
	t.Helper()
	reg := NewRegistry()
	for _, d := range defs {
		if err := d.ExpandTypeDefinitions(reg); err != nil {
			return err
		}
	}
	for _, d := range defs {
		if err := d.ExpandRelationDefinitions(reg, target); err != nil {
			return err
		}
	}
	return nil
}

func mustAttr(t *testing.T, seq *Sequence, scalar string, opts AttrOptions) *Relation {
	t.Helper()
	r, err := Attribute(seq, scalar, opts)
	require.NoError(t, err)
	return r
}

func mustRel(t *testing.T, seq *Sequence, target string, opts RelationOptions) *Relation {
	t.Helper()
	spec, err := ParseTypeSpec(target)
	require.NoError(t, err)
	r, err := SubjectRelation(seq, spec, opts)
	require.NoError(t, err)
	return r
}

// -----------------------------------------------------------------------------
// Properties
// -----------------------------------------------------------------------------

func TestValidateCardinality(t *testing.T) {
	for _, ok := range []string{"11", "?1", "**", "+*", "1?", "*+"} {
		assert.NoError(t, ValidateCardinality(ok), ok)
	}
	for _, bad := range []string{"", "1", "111", "x1", "1x", "0*", "??1"} {
		err := ValidateCardinality(bad)
		assert.True(t, alerr.Is(err, alerr.ErrMalformedProperty), bad)
	}
}

func TestRelationTypeProps_MergeInto(t *testing.T) {
	var dst RelationTypeProps
	require.NoError(t, RelationTypeProps{Inlined: Ptr(true)}.MergeInto(&dst, "owns"))
	require.NoError(t, RelationTypeProps{Symmetric: Ptr(false)}.MergeInto(&dst, "owns"))
	require.NoError(t, RelationTypeProps{Inlined: Ptr(true)}.MergeInto(&dst, "owns"))
	assert.True(t, dst.IsInlined())
	assert.False(t, dst.IsSymmetric())

	err := RelationTypeProps{Inlined: Ptr(false)}.MergeInto(&dst, "owns")
	require.Error(t, err)
	e, ok := alerr.As(err)
	require.True(t, ok)
	assert.Equal(t, alerr.ErrDefinitionConflict, e.GetCode())
	assert.Equal(t, "inlined", e.GetContext()["property"])
	assert.Equal(t, "owns", e.GetContext()["relation"])
	assert.Equal(t, "true/false", e.GetContext()["values"])
}

func TestPermissions(t *testing.T) {
	p := Permissions{Read: {"managers"}, "write": {"users"}}
	err := p.Validate(EntityActions)
	require.Error(t, err)
	assert.True(t, alerr.Is(err, alerr.ErrInvalidPermission))

	assert.Error(t, Permissions{Update: {"managers"}}.Validate(RelationActions))
	assert.Error(t, Permissions{Read: {"bad group"}}.Validate(EntityActions))

	// with several bad actions the first in name order is reported
	bad := Permissions{"write": {"users"}, "copy": {"users"}, "move": {"users"}}
	for range 10 {
		e, ok := alerr.As(bad.Validate(EntityActions))
		require.True(t, ok)
		assert.Equal(t, "copy", e.GetContext()["action"])
	}

	q := Permissions{Read: {"a", "b"}, Add: {"a"}}
	assert.True(t, q.Equal(q.Clone()))
	assert.Equal(t, "add=a read=a,b", q.String())
}

func TestPresets(t *testing.T) {
	p, err := LookupPreset(PresetRestricted)
	require.NoError(t, err)
	assert.True(t, p.Meta)
	assert.Equal(t, []string{"managers", "users"}, p.Permissions[Read])

	p.Permissions[Read] = append(p.Permissions[Read], "guests")
	again, _ := LookupPreset(PresetRestricted)
	assert.Equal(t, []string{"managers", "users"}, again.Permissions[Read])

	_, err = LookupPreset("usr")
	e, ok := alerr.As(err)
	require.True(t, ok)
	assert.Contains(t, e.Helps(), "did you mean 'user'?")

	et := NewEntityType("Doc")
	rel, _ := LookupPreset(PresetUserRelation)
	assert.Error(t, et.ApplyPreset(rel))
	user, _ := LookupPreset(PresetMetaUser)
	require.NoError(t, et.ApplyPreset(user))
	assert.True(t, et.Meta)
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, []string{"managers", "users"}, EntityDefaults(true, true)[Update])
	assert.Equal(t, []string{"managers"}, EntityDefaults(false, true)[Delete])
	assert.Equal(t, []string{"managers", "owners"}, EntityDefaults(false, false)[Delete])
	assert.Equal(t, []string{"managers", "users", "guests"}, RelationDefaults(true, false)[Add])
	assert.Equal(t, []string{"managers"}, RelationDefaults(false, true)[Add])
	assert.NotContains(t, RelationDefaults(false, false), Update)
}

// -----------------------------------------------------------------------------
// Type specs and sequences
// -----------------------------------------------------------------------------

func TestParseTypeSpec(t *testing.T) {
	spec, err := ParseTypeSpec("Bug, Story")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bug", "Story"}, spec.Names())
	assert.Equal(t, "Bug,Story", spec.Key())

	star, err := ParseTypeSpec("*")
	require.NoError(t, err)
	assert.True(t, star.IsWildcard())
	assert.Nil(t, star.Names())

	_, err = ParseTypeSpec("")
	assert.Error(t, err)
	_, err = ParseTypeSpec("bug")
	assert.Error(t, err)

	one, ok := Types("A").Single()
	assert.True(t, ok)
	assert.Equal(t, "A", one)
	_, ok = Any().Single()
	assert.False(t, ok)
}

func TestTypeSpec_Resolve(t *testing.T) {
	target := newFakeTarget("Person", "Company", "State")
	target.meta["State"] = true

	assert.Equal(t, []string{"Company", "Person"}, Any().Resolve(target))
	assert.Equal(t, []string{"Company", "Person", "State"}, AnyWithMeta().Resolve(target))
	assert.Equal(t, []string{"Person"}, Types("Person").Resolve(target))
}

func TestSequence(t *testing.T) {
	seq := NewSequence()
	assert.Equal(t, 1, seq.Next())
	assert.Equal(t, 2, seq.Next())
	assert.Equal(t, 2, seq.Last())

	var none *Sequence
	assert.Equal(t, 0, none.Next())
}

// -----------------------------------------------------------------------------
// Relation declarations
// -----------------------------------------------------------------------------

func TestAttribute(t *testing.T) {
	seq := NewSequence()

	t.Run("required", func(t *testing.T) {
		assert.Equal(t, "11", mustAttr(t, seq, types.String, AttrOptions{Required: true}).Def.Cardinality)
		assert.Equal(t, "?1", mustAttr(t, seq, types.String, AttrOptions{}).Def.Cardinality)
	})

	t.Run("maxsize replaces explicit size", func(t *testing.T) {
		r := mustAttr(t, seq, types.String, AttrOptions{
			Constraints: []constraint.Constraint{constraint.MaxSize(3)},
			MaxSize:     10,
		})
		require.Len(t, r.Def.Constraints, 1)
		assert.Equal(t, "max=10", r.Def.Constraints[0].Serialize())
	})

	t.Run("string vocabulary bounds size", func(t *testing.T) {
		r := mustAttr(t, seq, types.String, AttrOptions{Vocabulary: []string{"draft", "published"}})
		require.Len(t, r.Def.Constraints, 2)
		assert.Equal(t, constraint.KindStaticVocabulary, r.Def.Constraints[0].Kind())
		assert.Equal(t, "max=9", r.Def.Constraints.Get(constraint.KindSize).Serialize())
	})

	t.Run("explicit maxsize wins over vocabulary", func(t *testing.T) {
		r := mustAttr(t, seq, types.String, AttrOptions{Vocabulary: []string{"a"}, MaxSize: 20})
		assert.Equal(t, "max=20", r.Def.Constraints.Get(constraint.KindSize).Serialize())
	})

	t.Run("non string vocabulary", func(t *testing.T) {
		r := mustAttr(t, seq, types.Int, AttrOptions{Vocabulary: []string{"1", "2"}})
		assert.False(t, r.Def.Constraints.Has(constraint.KindSize))
	})

	t.Run("unique", func(t *testing.T) {
		r := mustAttr(t, seq, types.String, AttrOptions{Unique: true, MaxSize: 5})
		assert.True(t, r.Def.Constraints.Has(constraint.KindUnique))
		assert.Len(t, r.Def.Constraints, 2)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := Attribute(seq, "Strin", AttrOptions{})
		assert.True(t, alerr.Is(err, alerr.ErrUnknownType))

		_, err = Attribute(seq, types.Int, AttrOptions{FulltextIndexed: true})
		assert.True(t, alerr.Is(err, alerr.ErrUnsupportedProperty))

		_, err = Attribute(seq, types.String, AttrOptions{Vocabulary: []string{}})
		assert.True(t, alerr.Is(err, alerr.ErrInvalidConstraint))
	})

	t.Run("ranks increase", func(t *testing.T) {
		a := mustAttr(t, seq, types.Int, AttrOptions{})
		b := mustAttr(t, seq, types.Int, AttrOptions{})
		assert.Less(t, a.Rank, b.Rank)
	})
}

func TestObjectRelation_RejectsFinalOnlyProperties(t *testing.T) {
	_, err := ObjectRelation(NewSequence(), Types("Person"), RelationOptions{Indexed: true})
	require.Error(t, err)
	e, _ := alerr.As(err)
	assert.Equal(t, alerr.ErrUnsupportedProperty, e.GetCode())
	assert.Equal(t, "indexed", e.GetContext()["property"])

	_, err = SubjectRelation(NewSequence(), Types("Person"), RelationOptions{Cardinality: "1x"})
	assert.True(t, alerr.Is(err, alerr.ErrMalformedProperty))

	_, err = SubjectRelation(NewSequence(), Types("Person"), RelationOptions{Composite: "both"})
	assert.True(t, alerr.Is(err, alerr.ErrMalformedProperty))

	_, err = SubjectRelation(NewSequence(), TypeSpec{}, RelationOptions{})
	assert.Error(t, err)
}

func TestBothWay(t *testing.T) {
	seq := NewSequence()
	subj := mustRel(t, seq, "Person", RelationOptions{})
	seq.Next()
	obj, err := ObjectRelation(seq, Types("Person"), RelationOptions{})
	require.NoError(t, err)

	bw, err := BothWay(subj, obj)
	require.NoError(t, err)
	assert.Equal(t, subj.Rank, bw.Object.Rank)

	_, err = BothWay(obj, subj)
	assert.Error(t, err)

	person := NewEntityType("Person")
	require.NoError(t, person.AddBothWay("knows", bw))
	assert.NotNil(t, person.Relation("knows", Subject))
	assert.NotNil(t, person.Relation("knows", Object))
	assert.Equal(t, 2, person.Remove("knows"))
	assert.Empty(t, person.Relations())
}

// -----------------------------------------------------------------------------
// Entity types
// -----------------------------------------------------------------------------

func TestEntityType_AddValidatesName(t *testing.T) {
	e := NewEntityType("Person")
	err := e.Add("FullName", mustAttr(t, NewSequence(), types.String, AttrOptions{}))
	assert.True(t, alerr.Is(err, alerr.ErrInvalidIdentifier))
}

func TestEntityType_Inherit(t *testing.T) {
	seq := NewSequence()
	base := NewEntityType("Base")
	require.NoError(t, base.Add("created", mustAttr(t, seq, types.Datetime, AttrOptions{})))
	require.NoError(t, base.Add("title", mustAttr(t, seq, types.String, AttrOptions{})))
	require.NoError(t, base.Add("owner", mustRel(t, seq, "Base", RelationOptions{})))

	doc := NewEntityType("Doc")
	require.NoError(t, doc.Add("body", mustAttr(t, seq, types.String, AttrOptions{})))
	require.NoError(t, doc.Add("title", mustAttr(t, seq, types.String, AttrOptions{Required: true, Override: true})))
	doc.Inherit(base)

	var names []string
	for _, r := range doc.Relations() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"created", "title", "owner", "body"}, names)
	assert.Equal(t, "11", doc.Relation("title", Subject).Def.Cardinality)

	owner := doc.Relation("owner", Subject)
	assert.Equal(t, "Base", owner.Target.Key())
	assert.NotSame(t, base.Relation("owner", Subject), owner)
	assert.Empty(t, doc.Specializes)
}

func TestEntityType_Specialize(t *testing.T) {
	seq := NewSequence()
	parent := NewEntityType("Parent")
	require.NoError(t, parent.Add("has_a", mustRel(t, seq, "Parent", RelationOptions{})))
	require.NoError(t, parent.Add("knows", mustRel(t, seq, "Other", RelationOptions{})))

	child := NewEntityType("Child")
	child.Specialize(parent)

	assert.Equal(t, "Parent", child.Specializes)
	assert.Equal(t, "Child", child.Relation("has_a", Subject).Target.Key())
	assert.Equal(t, "Other", child.Relation("knows", Subject).Target.Key())
	assert.Equal(t, "Parent", parent.Relation("has_a", Subject).Target.Key())
}

// -----------------------------------------------------------------------------
// Registry and resolution
// -----------------------------------------------------------------------------

func TestRegistry_Duplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.AddEntity(NewEntityType("Person")))

	err := reg.AddEntity(NewEntityType("Person"))
	assert.True(t, alerr.Is(err, alerr.ErrDefinitionConflict))

	err = reg.AddEntity(NewEntityType("String"))
	assert.True(t, alerr.Is(err, alerr.ErrDefinitionConflict))

	err = reg.AddEntity(NewEntityType("person"))
	assert.True(t, alerr.Is(err, alerr.ErrInvalidIdentifier))

	require.NoError(t, reg.AddTriple(Types("Bug"), "see_also", Types("Bug"), Location{File: "a.yaml", Line: 3}))
	err = reg.AddTriple(Types("Bug"), "see_also", Types("Bug"), Location{})
	require.Error(t, err)
	e, _ := alerr.As(err)
	assert.Equal(t, alerr.ErrDefinitionConflict, e.GetCode())
	assert.Contains(t, e.Notes(), "first defined at a.yaml:3")
}

func TestRegistry_SharedPropertyConflict(t *testing.T) {
	seq := NewSequence()
	a := NewEntityType("Alice")
	require.NoError(t, a.Add("owns", mustRel(t, seq, "Thing", RelationOptions{Inlined: Ptr(true)})))
	b := NewEntityType("Bob")
	require.NoError(t, b.Add("owns", mustRel(t, seq, "Thing", RelationOptions{Inlined: Ptr(false)})))

	err := expand(t, newFakeTarget("Alice", "Bob", "Thing"), a, b)
	require.Error(t, err)
	e, _ := alerr.As(err)
	assert.Equal(t, alerr.ErrDefinitionConflict, e.GetCode())
	assert.Equal(t, "inlined", e.GetContext()["property"])
	assert.Equal(t, "true/false", e.GetContext()["values"])
}

func TestResolve_Defaults(t *testing.T) {
	seq := NewSequence()
	person := NewEntityType("Person")
	require.NoError(t, person.Add("name", mustAttr(t, seq, types.String, AttrOptions{})))
	require.NoError(t, person.Add("works_for", mustRel(t, seq, "Company", RelationOptions{})))
	company := NewEntityType("Company")

	target := newFakeTarget("Person", "Company")
	require.NoError(t, expand(t, target, person, company))

	name := target.edge("Person", "name", "String")
	require.NotNil(t, name)
	assert.Equal(t, "?1", name.Def.Cardinality)
	assert.Equal(t, 1, name.Def.Order)
	assert.Equal(t, RelationDefaults(true, false), name.Def.Permissions)

	works := target.edge("Person", "works_for", "Company")
	require.NotNil(t, works)
	assert.Equal(t, "**", works.Def.Cardinality)
	assert.Equal(t, 2, works.Def.Order)
	assert.Equal(t, RelationDefaults(false, false), works.Def.Permissions)
}

func TestResolve_RelationTypeDefaults(t *testing.T) {
	rtype := &RelationType{
		Name:    "works_for",
		Props:   RelationTypeProps{Permissions: Permissions{Read: {"managers"}}},
		Subject: Types("Person"),
		Object:  Types("Company"),
		Def:     RelationDefProps{Cardinality: "?*"},
	}
	seq := NewSequence()
	intern := NewEntityType("Intern")
	require.NoError(t, intern.Add("works_for", mustRel(t, seq, "Company", RelationOptions{})))

	target := newFakeTarget("Person", "Company", "Intern")
	require.NoError(t, expand(t, target, rtype, intern))

	for _, subj := range []string{"Person", "Intern"} {
		e := target.edge(subj, "works_for", "Company")
		require.NotNil(t, e, subj)
		assert.Equal(t, "?*", e.Def.Cardinality)
		assert.Equal(t, []string{"managers"}, e.Def.Permissions[Read])
	}
}

func TestResolve_Wildcards(t *testing.T) {
	target := newFakeTarget("Bug", "Story", "State")
	target.meta["State"] = true

	rd := &RelationDefinition{Subject: Any(), Name: "see_also", Object: Types("Bug")}
	require.NoError(t, expand(t, target, rd))

	var subjects []string
	for _, e := range target.edges {
		subjects = append(subjects, e.Subject)
	}
	assert.Equal(t, []string{"Bug", "Story"}, subjects)
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
		code alerr.Code
	}{
		{
			name: "bad cardinality",
			def:  &RelationDefinition{Subject: Types("A"), Name: "r", Object: Types("B"), Def: RelationDefProps{Cardinality: "1"}},
			code: alerr.ErrMalformedProperty,
		},
		{
			name: "final only property on non-final object",
			def:  &RelationDefinition{Subject: Types("A"), Name: "r", Object: Types("B"), Def: RelationDefProps{Indexed: true}},
			code: alerr.ErrUnsupportedProperty,
		},
		{
			name: "string only property on Int",
			def:  &RelationDefinition{Subject: Types("A"), Name: "r", Object: Types("Int"), Def: RelationDefProps{Internationalizable: true}},
			code: alerr.ErrUnsupportedProperty,
		},
		{
			name: "size constraint on Int",
			def: &RelationDefinition{Subject: Types("A"), Name: "r", Object: Types("Int"),
				Def: RelationDefProps{Constraints: constraint.Set{constraint.MaxSize(3)}}},
			code: alerr.ErrInvalidConstraint,
		},
		{
			name: "unknown object",
			def:  &RelationDefinition{Subject: Types("A"), Name: "r", Object: Types("Missing")},
			code: alerr.ErrUnknownType,
		},
		{
			name: "missing subject",
			def:  &RelationDefinition{Name: "r", Object: Types("B")},
			code: alerr.ErrMalformedProperty,
		},
		{
			name: "half relation type",
			def:  &RelationType{Name: "r", Subject: Types("A")},
			code: alerr.ErrMalformedProperty,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := expand(t, newFakeTarget("A", "B"), tt.def)
			assert.True(t, alerr.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestResolve_AttachesSource(t *testing.T) {
	rd := &RelationDefinition{
		Subject: Types("A"), Name: "r", Object: Types("B"),
		Def:    RelationDefProps{Cardinality: "zz"},
		Source: Location{File: "schema.yaml", Line: 12, Column: 5},
	}
	err := expand(t, newFakeTarget("A", "B"), rd)
	e, ok := alerr.As(err)
	require.True(t, ok)
	file, line, col, ok := e.Location()
	assert.True(t, ok)
	assert.Equal(t, "schema.yaml", file)
	assert.Equal(t, 12, line)
	assert.Equal(t, 5, col)
}
