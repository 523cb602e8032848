package loader

import (
	"gopkg.in/yaml.v3"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/decl"
)

// Allowed keys per declaration kind.
var (
	documentKeys = []string{"entities", "relation_types", "relations"}

	entityKeys = []string{
		"name", "description", "meta", "preset", "permissions",
		"extends", "specializes", "attributes", "relations",
	}

	attributeKeys = []string{
		"name", "type", "required", "maxsize", "vocabulary", "unique", "constraints",
		"default", "uid", "indexed", "fulltextindexed", "internationalizable",
		"description", "order", "meta", "permissions", "override",
	}

	relationKeys = []string{
		"name", "object", "subject", "cardinality", "constraints", "composite", "order",
		"description", "default", "uid", "indexed", "fulltextindexed", "internationalizable",
		"symmetric", "inlined", "meta", "fulltext_container", "permissions", "preset", "override",
	}

	relationTypeKeys = []string{
		"name", "description", "symmetric", "inlined", "meta", "fulltext_container",
		"permissions", "preset", "subject", "object", "cardinality", "constraints", "composite",
		"default",
	}

	relationDefinitionKeys = []string{
		"subject", "name", "object", "cardinality", "constraints", "composite", "order",
		"description", "default", "uid", "indexed", "fulltextindexed", "internationalizable",
		"symmetric", "inlined", "meta", "fulltext_container", "permissions",
	}
)

// entityDoc is a decoded entity declaration whose parents are applied once
// every file is loaded.
type entityDoc struct {
	entity      *decl.EntityType
	extends     []string
	specializes string
	loc         decl.Location
}

func (d *entityDoc) parents() []string {
	if d.specializes == "" {
		return d.extends
	}
	return append(append([]string(nil), d.extends...), d.specializes)
}

// decodeDocument decodes one YAML document into l.
func (l *Loader) decodeDocument(file string, root *yaml.Node) error {
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil
		}
		root = root.Content[0]
	}
	if root.Kind == 0 || (root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null") {
		return nil
	}
	doc, err := newMapping(file, "document", root, documentKeys)
	if err != nil {
		return err
	}

	entities, err := doc.sequence("entities")
	if err != nil {
		return err
	}
	for _, n := range entities {
		ed, err := l.decodeEntity(file, n)
		if err != nil {
			return err
		}
		l.entities = append(l.entities, ed)
		l.defs = append(l.defs, ed.entity)
	}

	rtypes, err := doc.sequence("relation_types")
	if err != nil {
		return err
	}
	for _, n := range rtypes {
		rt, err := decodeRelationType(file, n)
		if err != nil {
			return err
		}
		l.defs = append(l.defs, rt)
	}

	rdefs, err := doc.sequence("relations")
	if err != nil {
		return err
	}
	for _, n := range rdefs {
		rd, err := decodeRelationDefinition(file, n)
		if err != nil {
			return err
		}
		l.defs = append(l.defs, rd)
	}
	return nil
}

func (l *Loader) decodeEntity(file string, n *yaml.Node) (*entityDoc, error) {
	m, err := newMapping(file, "entity", n, entityKeys)
	if err != nil {
		return nil, err
	}
	name, err := m.required("name")
	if err != nil {
		return nil, err
	}
	e := decl.NewEntityType(name)
	e.Source = m.loc()
	if e.Description, err = m.str("description"); err != nil {
		return nil, err
	}
	if e.Meta, err = m.boolean("meta"); err != nil {
		return nil, err
	}
	preset, err := m.preset("preset")
	if err != nil {
		return nil, err
	}
	if preset != nil {
		if err := e.ApplyPreset(*preset); err != nil {
			return nil, m.fail("preset", err)
		}
	}
	if m.has("permissions") {
		if e.Permissions, err = m.permissions("permissions"); err != nil {
			return nil, err
		}
	}

	ed := &entityDoc{entity: e, loc: e.Source}
	if ed.extends, err = m.strs("extends"); err != nil {
		return nil, err
	}
	if ed.specializes, err = m.str("specializes"); err != nil {
		return nil, err
	}

	attrs, err := m.sequence("attributes")
	if err != nil {
		return nil, err
	}
	for _, an := range attrs {
		if err := l.decodeAttribute(file, an, e); err != nil {
			return nil, err
		}
	}
	rels, err := m.sequence("relations")
	if err != nil {
		return nil, err
	}
	for _, rn := range rels {
		if err := l.decodeRelation(file, rn, e); err != nil {
			return nil, err
		}
	}
	return ed, nil
}

func (l *Loader) decodeAttribute(file string, n *yaml.Node, e *decl.EntityType) error {
	m, err := newMapping(file, "attribute", n, attributeKeys)
	if err != nil {
		return err
	}
	name, err := m.required("name")
	if err != nil {
		return err
	}
	scalar, err := m.required("type")
	if err != nil {
		return err
	}
	opts := decl.AttrOptions{Source: m.loc()}
	steps := []func() error{
		func() (err error) { opts.Required, err = m.boolean("required"); return },
		func() (err error) { opts.MaxSize, err = m.integer("maxsize"); return },
		func() (err error) { opts.Unique, err = m.boolean("unique"); return },
		func() (err error) { opts.Constraints, err = m.constraints("constraints"); return },
		func() (err error) { opts.Default, err = m.value("default"); return },
		func() (err error) { opts.UID, err = m.boolean("uid"); return },
		func() (err error) { opts.Indexed, err = m.boolean("indexed"); return },
		func() (err error) { opts.FulltextIndexed, err = m.boolean("fulltextindexed"); return },
		func() (err error) { opts.Internationalizable, err = m.boolean("internationalizable"); return },
		func() (err error) { opts.Description, err = m.str("description"); return },
		func() (err error) { opts.Order, err = m.integer("order"); return },
		func() (err error) { opts.Meta, err = m.boolean("meta"); return },
		func() (err error) { opts.Permissions, err = m.permissions("permissions"); return },
		func() (err error) { opts.Override, err = m.boolean("override"); return },
	}
	if m.has("vocabulary") {
		steps = append(steps, func() (err error) {
			opts.Vocabulary, err = m.strs("vocabulary")
			if err == nil && opts.Vocabulary == nil {
				opts.Vocabulary = []string{}
			}
			return
		})
	}
	if err := run(steps); err != nil {
		return err
	}
	rel, err := decl.Attribute(l.seq, scalar, opts)
	if err != nil {
		return err
	}
	return e.Add(name, rel)
}

// decodeRelation decodes an entity relation. "object" declares a subject
// side relation, "subject" an object side one, both together a both-way
// relation.
func (l *Loader) decodeRelation(file string, n *yaml.Node, e *decl.EntityType) error {
	m, err := newMapping(file, "relation", n, relationKeys)
	if err != nil {
		return err
	}
	name, err := m.required("name")
	if err != nil {
		return err
	}
	object, err := m.typeSpec("object")
	if err != nil {
		return err
	}
	subject, err := m.typeSpec("subject")
	if err != nil {
		return err
	}
	opts := decl.RelationOptions{Source: m.loc()}
	steps := []func() error{
		func() (err error) { opts.Cardinality, err = m.str("cardinality"); return },
		func() (err error) { opts.Constraints, err = m.constraints("constraints"); return },
		func() (err error) { opts.Composite, err = m.role("composite"); return },
		func() (err error) { opts.Order, err = m.integer("order"); return },
		func() (err error) { opts.Description, err = m.str("description"); return },
		func() (err error) { opts.Default, err = m.value("default"); return },
		func() (err error) { opts.UID, err = m.boolean("uid"); return },
		func() (err error) { opts.Indexed, err = m.boolean("indexed"); return },
		func() (err error) { opts.FulltextIndexed, err = m.boolean("fulltextindexed"); return },
		func() (err error) { opts.Internationalizable, err = m.boolean("internationalizable"); return },
		func() (err error) { opts.Symmetric, err = m.flag("symmetric"); return },
		func() (err error) { opts.Inlined, err = m.flag("inlined"); return },
		func() (err error) { opts.Meta, err = m.flag("meta"); return },
		func() (err error) { opts.FulltextContainer, err = m.role("fulltext_container"); return },
		func() (err error) { opts.Permissions, err = m.permissions("permissions"); return },
		func() (err error) { opts.Override, err = m.boolean("override"); return },
	}
	if err := run(steps); err != nil {
		return err
	}
	preset, err := m.preset("preset")
	if err != nil {
		return err
	}
	if preset != nil {
		if !preset.Relation {
			return m.fail("preset", alerr.New(alerr.ErrInvalidPermission, "entity preset applied to a relation").
				WithRelation(name).
				With("preset", preset.Name))
		}
		if opts.Permissions == nil {
			opts.Permissions = preset.Permissions.Clone()
		}
		if preset.Meta {
			opts.Meta = decl.Ptr(true)
		}
	}

	switch {
	case !object.IsZero() && !subject.IsZero():
		subj, err := decl.SubjectRelation(l.seq, object, opts)
		if err != nil {
			return err
		}
		back := opts
		back.Default, back.UID, back.Indexed = nil, false, false
		back.FulltextIndexed, back.Internationalizable = false, false
		obj, err := decl.ObjectRelation(l.seq, subject, back)
		if err != nil {
			return err
		}
		bw, err := decl.BothWay(subj, obj)
		if err != nil {
			return m.fail("subject", err)
		}
		return e.AddBothWay(name, bw)
	case !object.IsZero():
		rel, err := decl.SubjectRelation(l.seq, object, opts)
		if err != nil {
			return err
		}
		return e.Add(name, rel)
	case !subject.IsZero():
		rel, err := decl.ObjectRelation(l.seq, subject, opts)
		if err != nil {
			return err
		}
		return e.Add(name, rel)
	}
	return m.fail("", alerr.New(alerr.ErrMalformedProperty, "relation requires object or subject").
		WithEntity(e.Name).
		WithRelation(name))
}

// typeProps decodes the shared relation type properties.
func typeProps(m *mapping) (decl.RelationTypeProps, error) {
	var p decl.RelationTypeProps
	var container decl.Role
	var desc string
	steps := []func() error{
		func() (err error) { p.Symmetric, err = m.flag("symmetric"); return },
		func() (err error) { p.Inlined, err = m.flag("inlined"); return },
		func() (err error) { p.Meta, err = m.flag("meta"); return },
		func() (err error) { container, err = m.role("fulltext_container"); return },
		func() (err error) { p.Permissions, err = m.permissions("permissions"); return },
		func() (err error) { desc, err = m.str("description"); return },
	}
	if err := run(steps); err != nil {
		return p, err
	}
	if container != "" {
		p.FulltextContainer = decl.Ptr(container)
	}
	if desc != "" {
		p.Description = decl.Ptr(desc)
	}
	return p, nil
}

// defProps decodes the per pair properties present in m.
func defProps(m *mapping) (decl.RelationDefProps, error) {
	var d decl.RelationDefProps
	steps := []func() error{
		func() (err error) { d.Cardinality, err = m.str("cardinality"); return },
		func() (err error) {
			cs, err := m.constraints("constraints")
			for _, c := range cs {
				d.Constraints.Add(c)
			}
			return err
		},
		func() (err error) { d.Composite, err = m.role("composite"); return },
		func() (err error) { d.Default, err = m.value("default"); return },
	}
	if m.has("order") {
		steps = append(steps, func() (err error) { d.Order, err = m.integer("order"); return })
	}
	for _, key := range []struct {
		name string
		dst  *bool
	}{
		{"uid", &d.UID},
		{"indexed", &d.Indexed},
		{"fulltextindexed", &d.FulltextIndexed},
		{"internationalizable", &d.Internationalizable},
	} {
		if m.has(key.name) {
			steps = append(steps, func() (err error) { *key.dst, err = m.boolean(key.name); return })
		}
	}
	return d, run(steps)
}

func decodeRelationType(file string, n *yaml.Node) (*decl.RelationType, error) {
	m, err := newMapping(file, "relation_type", n, relationTypeKeys)
	if err != nil {
		return nil, err
	}
	name, err := m.required("name")
	if err != nil {
		return nil, err
	}
	props, err := typeProps(m)
	if err != nil {
		return nil, err
	}
	rt := decl.NewRelationType(name, props)
	rt.Source = m.loc()
	preset, err := m.preset("preset")
	if err != nil {
		return nil, err
	}
	if preset != nil {
		perms := rt.Props.Permissions
		if err := rt.ApplyPreset(*preset); err != nil {
			return nil, m.fail("preset", err)
		}
		if perms != nil {
			rt.Props.Permissions = perms
		}
	}
	if rt.Subject, err = m.typeSpec("subject"); err != nil {
		return nil, err
	}
	if rt.Object, err = m.typeSpec("object"); err != nil {
		return nil, err
	}
	if rt.Def, err = defProps(m); err != nil {
		return nil, err
	}
	return rt, nil
}

func decodeRelationDefinition(file string, n *yaml.Node) (*decl.RelationDefinition, error) {
	m, err := newMapping(file, "relation_definition", n, relationDefinitionKeys)
	if err != nil {
		return nil, err
	}
	rd := &decl.RelationDefinition{Source: m.loc()}
	if rd.Name, err = m.required("name"); err != nil {
		return nil, err
	}
	for _, key := range []string{"subject", "object"} {
		if _, err := m.required(key); err != nil {
			return nil, err
		}
	}
	if rd.Subject, err = m.typeSpec("subject"); err != nil {
		return nil, err
	}
	if rd.Object, err = m.typeSpec("object"); err != nil {
		return nil, err
	}
	if rd.Type, err = typeProps(m); err != nil {
		return nil, err
	}
	if rd.Def, err = defProps(m); err != nil {
		return nil, err
	}
	return rd, nil
}

func run(steps []func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
