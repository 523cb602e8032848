package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/constraint"
	"github.com/hlop3z/ercat/internal/decl"
	"github.com/hlop3z/ercat/internal/types"
)

var fixedNow = time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)

func newCatalog(t *testing.T, entities ...string) *Schema {
	t.Helper()
	s := New("test", WithClock(func() time.Time { return fixedNow }))
	for _, n := range entities {
		_, err := s.AddEntityType(decl.NewEntityType(n))
		require.NoError(t, err)
	}
	return s
}

func relType(t *testing.T, s *Schema, name string, props decl.RelationTypeProps) *RelationSchema {
	t.Helper()
	rs, err := s.AddRelationType(&decl.RelationType{Name: name, Props: props})
	require.NoError(t, err)
	return rs
}

// def registers a pair, creating a plain relation type on first use.
func def(t *testing.T, s *Schema, subject, name, object string, d decl.RelationDefProps) {
	t.Helper()
	if !s.HasRelation(name) {
		relType(t, s, name, decl.RelationTypeProps{})
	}
	require.NoError(t, s.AddRelationDef(&decl.Edge{Subject: subject, Name: name, Object: object, Def: d}))
}

func card(c string, order int) decl.RelationDefProps {
	return decl.RelationDefProps{Cardinality: c, Order: order}
}

func TestNew_SeedsFinalTypes(t *testing.T) {
	s := newCatalog(t)
	assert.Equal(t, types.Names(), s.EntityNames())
	for _, n := range types.Names() {
		es, err := s.EntitySchema(n)
		require.NoError(t, err)
		assert.True(t, es.IsFinal())
		assert.True(t, es.IsMeta())
		assert.Equal(t, decl.EntityDefaults(true, true), es.Permissions())
	}
	assert.Empty(t, s.RelationNames())
}

func TestAddEntityType(t *testing.T) {
	s := newCatalog(t, "Person")

	es, err := s.EntitySchema("Person")
	require.NoError(t, err)
	assert.Equal(t, "Person", es.Name())
	assert.False(t, es.IsFinal())

	_, err = s.AddEntityType(decl.NewEntityType("Person"))
	assert.True(t, alerr.Is(err, alerr.ErrDefinitionConflict))

	_, err = s.AddEntityType(decl.NewEntityType(types.String))
	assert.True(t, alerr.Is(err, alerr.ErrDefinitionConflict))

	_, err = s.EntitySchema("Persn")
	require.Error(t, err)
	e, _ := alerr.As(err)
	assert.Equal(t, alerr.ErrUnknownType, e.GetCode())
	assert.Contains(t, e.Helps(), "did you mean 'Person'?")
}

func TestAddRelationType_Duplicate(t *testing.T) {
	s := newCatalog(t)
	relType(t, s, "owns", decl.RelationTypeProps{})
	_, err := s.AddRelationType(&decl.RelationType{Name: "owns"})
	assert.True(t, alerr.Is(err, alerr.ErrDefinitionConflict))
}

func TestAddRelationDef(t *testing.T) {
	s := newCatalog(t, "Person", "Company")
	def(t, s, "Person", "works_for", "Company", card("**", 1))

	rs, err := s.RelationSchema("works_for")
	require.NoError(t, err)
	assert.False(t, rs.IsFinal())
	assert.Equal(t, []PairKey{{"Person", "Company"}}, rs.RDefs())

	c, err := rs.RProperty("Person", "Company", "cardinality")
	require.NoError(t, err)
	assert.Equal(t, "**", c)

	person, _ := s.EntitySchema("Person")
	company, _ := s.EntitySchema("Company")
	assert.True(t, person.HasSubjectRelation("works_for"))
	assert.False(t, person.HasObjectRelation("works_for"))
	assert.True(t, company.HasObjectRelation("works_for"))

	err = s.AddRelationDef(&decl.Edge{Subject: "Person", Name: "works_for", Object: "Company"})
	assert.True(t, alerr.Is(err, alerr.ErrDefinitionConflict))
}

func TestAddRelationDef_Errors(t *testing.T) {
	s := newCatalog(t, "Person", "Company")
	def(t, s, "Person", "name", types.String, card("?1", 1))
	relType(t, s, "works_for", decl.RelationTypeProps{})

	t.Run("unknown relation", func(t *testing.T) {
		err := s.AddRelationDef(&decl.Edge{Subject: "Person", Name: "work_for", Object: "Company"})
		require.Error(t, err)
		e, _ := alerr.As(err)
		assert.Equal(t, alerr.ErrUnknownRelation, e.GetCode())
		assert.Contains(t, e.Helps(), "did you mean 'works_for'?")
	})

	t.Run("unknown type", func(t *testing.T) {
		err := s.AddRelationDef(&decl.Edge{Subject: "Persn", Name: "works_for", Object: "Company"})
		require.Error(t, err)
		e, _ := alerr.As(err)
		assert.Equal(t, alerr.ErrUnknownType, e.GetCode())
		assert.Contains(t, e.Helps(), "did you mean 'Person'?")
	})

	t.Run("final subject", func(t *testing.T) {
		err := s.AddRelationDef(&decl.Edge{Subject: types.String, Name: "works_for", Object: "Company", Def: card("**", 1)})
		assert.True(t, alerr.Is(err, alerr.ErrFinalSubject))
	})

	t.Run("ambiguous", func(t *testing.T) {
		err := s.AddRelationDef(&decl.Edge{Subject: "Company", Name: "name", Object: "Person", Def: card("**", 1)})
		assert.True(t, alerr.Is(err, alerr.ErrAmbiguousRelation))
	})
}

func TestSymmetricRelation(t *testing.T) {
	s := newCatalog(t, "Bug", "Story")
	relType(t, s, "see_also", decl.RelationTypeProps{Symmetric: decl.Ptr(true)})
	def(t, s, "Bug", "see_also", "Bug", card("**", 1))
	def(t, s, "Bug", "see_also", "Story", card("**", 2))

	rs, _ := s.RelationSchema("see_also")
	assert.Equal(t, []Association{
		{Subject: "Bug", Objects: []string{"Bug", "Story"}},
		{Subject: "Story", Objects: []string{"Bug"}},
	}, rs.AssociationTypes())

	for _, k := range rs.RDefs() {
		_, err := rs.RProperties(k.Object, k.Subject)
		assert.NoError(t, err, "reverse of %v", k)
	}
	for _, n := range []string{"Bug", "Story"} {
		es, _ := s.EntitySchema(n)
		assert.True(t, es.HasSubjectRelation("see_also"), n)
		assert.Empty(t, es.ObjectRelations(), n)
	}

	// the reverse declaration agrees with the registered pair
	def(t, s, "Story", "see_also", "Bug", card("**", 7))

	err := s.AddRelationDef(&decl.Edge{Subject: "Story", Name: "see_also", Object: "Bug", Def: card("11", 1)})
	assert.True(t, alerr.Is(err, alerr.ErrDefinitionConflict))

	err = s.AddRelationDef(&decl.Edge{Subject: "Bug", Name: "see_also", Object: types.String, Def: card("?1", 1)})
	assert.Error(t, err)
}

func TestPhysicalMode(t *testing.T) {
	s := newCatalog(t, "Ticket", "Project", "Person")
	def(t, s, "Ticket", "owner", "Person", card("?*", 1))
	def(t, s, "Person", "name", types.String, card("?1", 1))

	owner, _ := s.RelationSchema("owner")
	assert.Equal(t, SubjectInline, owner.PhysicalMode())

	def(t, s, "Project", "owner", "Person", card("*?", 1))
	assert.Equal(t, JoinTable, owner.PhysicalMode())

	require.NoError(t, s.DelRelationDef("Project", "owner", "Person"))
	assert.Equal(t, SubjectInline, owner.PhysicalMode())

	require.NoError(t, owner.SetRProperty("Ticket", "Person", "cardinality", "*1"))
	assert.Equal(t, ObjectInline, owner.PhysicalMode())

	name, _ := s.RelationSchema("name")
	assert.True(t, name.IsFinal())
	assert.Equal(t, JoinTable, name.PhysicalMode())
}

func TestDelRelationDef(t *testing.T) {
	s := newCatalog(t, "Person", "Company")
	def(t, s, "Person", "works_for", "Company", card("**", 1))
	def(t, s, "Company", "works_for", "Company", card("**", 1))

	err := s.DelRelationDef("Company", "works_for", "Person")
	assert.True(t, alerr.Is(err, alerr.ErrUnknownRelation))

	require.NoError(t, s.DelRelationDef("Company", "works_for", "Company"))
	company, _ := s.EntitySchema("Company")
	assert.False(t, company.HasSubjectRelation("works_for"))
	assert.True(t, company.HasObjectRelation("works_for"))

	require.NoError(t, s.DelRelationDef("Person", "works_for", "Company"))
	assert.False(t, s.HasRelation("works_for"))
	person, _ := s.EntitySchema("Person")
	assert.Empty(t, person.SubjectRelations())
	assert.Empty(t, company.ObjectRelations())
}

func TestDelRelationType(t *testing.T) {
	s := newCatalog(t, "Bug", "Story")
	relType(t, s, "see_also", decl.RelationTypeProps{Symmetric: decl.Ptr(true)})
	def(t, s, "Bug", "see_also", "Bug", card("**", 1))
	def(t, s, "Bug", "see_also", "Story", card("**", 1))

	require.NoError(t, s.DelRelationType("see_also"))
	assert.False(t, s.HasRelation("see_also"))
	bug, _ := s.EntitySchema("Bug")
	story, _ := s.EntitySchema("Story")
	assert.Empty(t, bug.SubjectRelations())
	assert.Empty(t, story.SubjectRelations())

	assert.True(t, alerr.Is(s.DelRelationType("see_also"), alerr.ErrUnknownRelation))
}

func TestDelEntityType(t *testing.T) {
	s := newCatalog(t, "Person", "Company")
	def(t, s, "Person", "works_for", "Company", card("**", 1))
	def(t, s, "Person", "name", types.String, card("?1", 2))

	require.NoError(t, s.DelEntityType("Company"))
	assert.False(t, s.HasEntity("Company"))
	assert.False(t, s.HasRelation("works_for"))
	assert.True(t, s.HasRelation("name"))

	assert.True(t, alerr.Is(s.DelEntityType(types.String), alerr.ErrFinalEntity))
}

func TestDelEntityType_Specialized(t *testing.T) {
	s := newCatalog(t, "Party")
	_, err := s.AddEntityType(&decl.EntityType{Name: "Person", Specializes: "Party"})
	require.NoError(t, err)
	_, err = s.AddEntityType(&decl.EntityType{Name: "Org", Specializes: "Party"})
	require.NoError(t, err)
	require.NoError(t, s.InferSpecializations())

	err = s.DelEntityType("Party")
	require.Error(t, err)
	e, _ := alerr.As(err)
	assert.Equal(t, alerr.ErrDefinitionConflict, e.GetCode())
	assert.Equal(t, "Org, Person", e.GetContext()["specialized_by"])
	assert.True(t, s.HasEntity("Party"))

	// leaves first, then the parent
	require.NoError(t, s.DelEntityType("Person"))
	require.NoError(t, s.DelEntityType("Org"))
	require.NoError(t, s.DelEntityType("Party"))
	require.NoError(t, s.InferSpecializations())
}

func TestSchema_Queries(t *testing.T) {
	s := newCatalog(t, "Person", "Company")
	def(t, s, "Person", "works_for", "Company", card("**", 1))
	def(t, s, "Person", "name", types.String, card("?1", 2))

	assert.Equal(t, []string{"name", "works_for"}, s.RelationNames())
	require.Len(t, s.FinalRelations(), 1)
	assert.Equal(t, "name", s.FinalRelations()[0].Name())
	require.Len(t, s.NonFinalRelations(), 1)
	assert.Equal(t, "works_for", s.NonFinalRelations()[0].Name())

	el, err := s.Get("Person")
	require.NoError(t, err)
	assert.IsType(t, &EntitySchema{}, el)
	el, err = s.Get("works_for")
	require.NoError(t, err)
	assert.IsType(t, &RelationSchema{}, el)
	_, err = s.Get("nothing")
	assert.True(t, alerr.Is(err, alerr.ErrUnknownType))

	assert.True(t, s.IsFinalType(types.Int))
	assert.False(t, s.IsFinalType("Person"))
	assert.True(t, s.IsMetaType(types.Int))
	assert.False(t, s.IsMetaType("Missing"))
}

func TestEntitySchema_Definitions(t *testing.T) {
	s := newCatalog(t, "Person", "Company")
	def(t, s, "Person", "works_for", "Company", card("**", 3))
	def(t, s, "Person", "name", types.String, card("11", 1))
	def(t, s, "Person", "age", types.Int, card("?1", 2))

	person, _ := s.EntitySchema("Person")
	var ordered []string
	for _, r := range person.OrderedRelations() {
		ordered = append(ordered, r.Name())
	}
	assert.Equal(t, []string{"name", "age", "works_for"}, ordered)

	// unordered relations follow the ordered ones
	def(t, s, "Person", "nickname", types.String, card("?1", 0))
	ordered = ordered[:0]
	for _, r := range person.OrderedRelations() {
		ordered = append(ordered, r.Name())
	}
	assert.Equal(t, []string{"name", "age", "works_for", "nickname"}, ordered)

	attrs := person.AttributeDefinitions()
	require.Len(t, attrs, 3)
	assert.Equal(t, "name", attrs[0].Relation.Name())
	assert.Equal(t, types.String, attrs[0].Type.Name())
	assert.Equal(t, types.Int, attrs[1].Type.Name())
	assert.Equal(t, "nickname", attrs[2].Relation.Name())

	rels := person.RelationDefinitions()
	require.Len(t, rels, 1)
	assert.Equal(t, decl.Subject, rels[0].Role)
	assert.Equal(t, "Company", rels[0].Targets[0].Name())

	company, _ := s.EntitySchema("Company")
	rels = company.RelationDefinitions()
	require.Len(t, rels, 1)
	assert.Equal(t, decl.Object, rels[0].Role)
	assert.Equal(t, "Person", rels[0].Targets[0].Name())

	dest, err := person.DestinationType("age")
	require.NoError(t, err)
	assert.Equal(t, types.Int, dest)

	_, err = person.DestinationType("works_for")
	assert.True(t, alerr.Is(err, alerr.ErrNotAttribute))

	_, err = person.DestinationType("nme")
	require.Error(t, err)
	e, _ := alerr.As(err)
	assert.Contains(t, e.Helps(), "did you mean 'name'?")

	c, err := person.RProperty("name", "cardinality")
	require.NoError(t, err)
	assert.Equal(t, "11", c)
}

func TestEntitySchema_Constraints(t *testing.T) {
	s := newCatalog(t, "A")
	d := card("?1", 1)
	d.Constraints = constraint.Set{constraint.MaxSize(5)}
	def(t, s, "A", "description", types.String, d)

	a, _ := s.EntitySchema("A")
	cs, err := a.Constraints("description")
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, "max=5", cs[0].Serialize())

	str, _ := s.EntitySchema(types.String)
	_, err = str.Constraints("description")
	assert.True(t, alerr.Is(err, alerr.ErrFinalEntity))
}

func TestEntitySchema_Vocabulary(t *testing.T) {
	s := newCatalog(t, "Ticket")
	voc, err := constraint.NewStaticVocabulary("open", "closed")
	require.NoError(t, err)
	d := card("11", 1)
	d.Constraints = constraint.Set{voc}
	def(t, s, "Ticket", "state", types.String, d)
	def(t, s, "Ticket", "title", types.String, card("?1", 2))

	ticket, _ := s.EntitySchema("Ticket")
	values, err := ticket.Vocabulary("state")
	require.NoError(t, err)
	assert.Equal(t, []string{"open", "closed"}, values)

	values, err = ticket.Vocabulary("title")
	require.NoError(t, err)
	assert.Nil(t, values)
}

func TestEntitySchema_MainAndIndexable(t *testing.T) {
	s := newCatalog(t, "Doc", "File")
	relType(t, s, "eid", decl.RelationTypeProps{Meta: decl.Ptr(true)})
	def(t, s, "Doc", "eid", types.Int, card("11", 1))
	title := card("?1", 2)
	title.FulltextIndexed = true
	def(t, s, "Doc", "title", types.String, title)
	relType(t, s, "attached_to", decl.RelationTypeProps{FulltextContainer: decl.Ptr(decl.Object)})
	def(t, s, "File", "attached_to", "Doc", card("?*", 1))

	doc, _ := s.EntitySchema("Doc")
	assert.Equal(t, "title", doc.MainAttribute())
	assert.Equal(t, []string{"title"}, doc.IndexableAttributes())

	containers := doc.FulltextContainers()
	require.Len(t, containers, 1)
	assert.Equal(t, "attached_to", containers[0].Relation.Name())
	assert.Equal(t, decl.Object, containers[0].Role)

	file, _ := s.EntitySchema("File")
	assert.Empty(t, file.FulltextContainers())
	assert.Equal(t, "", file.MainAttribute())
}

func TestEntitySchema_Defaults(t *testing.T) {
	s := newCatalog(t, "Task", "Person")
	withDefault := func(order int, v any) decl.RelationDefProps {
		d := card("?1", order)
		d.Default = v
		return d
	}
	def(t, s, "Task", "active", types.Boolean, withDefault(1, "True"))
	def(t, s, "Task", "born", types.Date, withDefault(2, "TODAY"))
	def(t, s, "Task", "seen", types.Datetime, withDefault(3, "NOW"))
	def(t, s, "Task", "score", types.Int, withDefault(4, 3))
	def(t, s, "Task", "note", types.String, card("?1", 5))
	def(t, s, "Task", "assignee", "Person", card("?*", 6))

	task, _ := s.EntitySchema("Task")
	v, err := task.Default("active")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = task.Default("born")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), v)

	v, err = task.Default("note")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = task.Default("assignee")
	assert.True(t, alerr.Is(err, alerr.ErrNotAttribute))

	assert.Equal(t, []DefaultValue{
		{Name: "active", Value: true},
		{Name: "born", Value: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)},
		{Name: "seen", Value: fixedNow},
		{Name: "score", Value: 3},
	}, task.Defaults())
}

func TestEntitySchema_Check(t *testing.T) {
	s := newCatalog(t, "Person")
	name := card("11", 1)
	name.Constraints = constraint.Set{constraint.MaxSize(5)}
	def(t, s, "Person", "name", types.String, name)
	age := card("?1", 2)
	age.Constraints = constraint.Set{constraint.Between(0, 150)}
	def(t, s, "Person", "age", types.Int, age)

	person, _ := s.EntitySchema("Person")
	assert.NoError(t, person.Check(map[string]any{"name": "Bob"}, true))
	assert.NoError(t, person.Check(map[string]any{"age": 3}, false))

	err := person.Check(map[string]any{"name": 7, "age": 200}, true)
	require.Error(t, err)
	e, _ := alerr.As(err)
	assert.Equal(t, alerr.ErrInvalidEntity, e.GetCode())
	assert.Len(t, e.Fields(), 2)
	assert.Contains(t, e.Fields()["name"], "incorrect value")
	assert.Contains(t, e.Fields(), "age")

	err = person.Check(map[string]any{"name": "Robert"}, true)
	e, _ = alerr.As(err)
	require.NotNil(t, e)
	assert.Contains(t, e.Fields(), "name")

	err = person.Check(map[string]any{"age": 3}, true)
	e, _ = alerr.As(err)
	require.NotNil(t, e)
	assert.Equal(t, "required attribute", e.Fields()["name"])

	str, _ := s.EntitySchema(types.String)
	assert.True(t, alerr.Is(str.Check(nil, true), alerr.ErrFinalEntity))
}

func TestPermissions(t *testing.T) {
	s := newCatalog(t, "Person", "Company")
	_, err := s.AddEntityType(&decl.EntityType{Name: "Audit", Permissions: decl.Permissions{decl.Read: {"managers"}}})
	require.NoError(t, err)
	def(t, s, "Person", "works_for", "Company", card("**", 1))
	def(t, s, "Person", "name", types.String, card("?1", 2))
	s.SetDefaultPermissions()

	person, _ := s.EntitySchema("Person")
	assert.Equal(t, decl.EntityDefaults(false, false), person.Permissions())
	audit, _ := s.EntitySchema("Audit")
	assert.Equal(t, decl.Permissions{decl.Read: {"managers"}}, audit.Permissions())

	worksFor, _ := s.RelationSchema("works_for")
	assert.Equal(t, decl.RelationDefaults(false, false), worksFor.Permissions())
	name, _ := s.RelationSchema("name")
	assert.Equal(t, decl.RelationDefaults(true, false), name.Permissions())

	assert.Error(t, worksFor.SetGroups(decl.Update, []string{"users"}))
	require.NoError(t, worksFor.SetGroups(decl.Read, []string{"guests"}))
	assert.Equal(t, []string{"guests"}, worksFor.Groups(decl.Read))
	assert.True(t, worksFor.HasGroup(decl.Read, "guests"))
	assert.True(t, worksFor.HasAccess([]string{"staff", "guests"}, decl.Read))
	assert.False(t, worksFor.HasAccess([]string{"guests"}, decl.Delete))
}

func TestSetRProperty(t *testing.T) {
	s := newCatalog(t, "Person")
	def(t, s, "Person", "name", types.String, card("?1", 1))
	rs, _ := s.RelationSchema("name")

	assert.True(t, alerr.Is(rs.SetRProperty("Person", types.String, "cardinality", "1x"), alerr.ErrMalformedProperty))
	assert.True(t, alerr.Is(rs.SetRProperty("Person", types.String, "order", "x"), alerr.ErrMalformedProperty))
	assert.True(t, alerr.Is(rs.SetRProperty("Person", types.String, "bogus", 1), alerr.ErrUnsupportedProperty))
	assert.True(t, alerr.Is(rs.SetRProperty("Person", types.Int, "order", 1), alerr.ErrUnknownRelation))

	require.NoError(t, rs.SetRProperty("Person", types.String, "indexed", true))
	v, err := rs.RProperty("Person", types.String, "indexed")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	o, err := rs.RProperty("Person", types.String, "order")
	require.NoError(t, err)
	assert.Equal(t, 1, o)
}
