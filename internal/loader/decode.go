package loader

import (
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/constraint"
	"github.com/hlop3z/ercat/internal/decl"
)

// mapping is a YAML mapping whose keys were checked against an allow-list.
type mapping struct {
	file   string
	kind   string
	node   *yaml.Node
	fields map[string]*yaml.Node
}

func locate(file string, n *yaml.Node) decl.Location {
	return decl.Location{File: file, Line: n.Line, Column: n.Column}
}

func parseError(file string, n *yaml.Node, msg string) *alerr.Error {
	loc := locate(file, n)
	return alerr.New(alerr.ErrParse, msg).WithLocation(loc.File, loc.Line, loc.Column)
}

func newMapping(file, kind string, n *yaml.Node, allowed []string) (*mapping, error) {
	if n.Kind != yaml.MappingNode {
		return nil, parseError(file, n, "expected a mapping").With("kind", kind)
	}
	m := &mapping{file: file, kind: kind, node: n, fields: make(map[string]*yaml.Node, len(n.Content)/2)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if !slices.Contains(allowed, k.Value) {
			loc := locate(file, k)
			return nil, alerr.Newf(alerr.ErrUnsupportedProperty, "unsupported %s property", kind).
				WithProperty(k.Value).
				WithLocation(loc.File, loc.Line, loc.Column).
				WithHelp(alerr.SuggestSimilar(k.Value, allowed))
		}
		if _, dup := m.fields[k.Value]; dup {
			return nil, parseError(file, k, "duplicate key").WithProperty(k.Value)
		}
		m.fields[k.Value] = v
	}
	return m, nil
}

func (m *mapping) loc() decl.Location { return locate(m.file, m.node) }

func (m *mapping) has(key string) bool {
	_, ok := m.fields[key]
	return ok
}

// decode decodes the value of key into out. Missing keys leave out as is.
func (m *mapping) decode(key string, out any) error {
	n, ok := m.fields[key]
	if !ok {
		return nil
	}
	if err := n.Decode(out); err != nil {
		return alerr.Wrap(alerr.ErrMalformedProperty, err, "invalid property value").
			WithProperty(key).
			WithLocation(m.file, n.Line, n.Column)
	}
	return nil
}

// fail locates err at key, or at the mapping when key is absent.
func (m *mapping) fail(key string, err error) error {
	n, ok := m.fields[key]
	if !ok {
		n = m.node
	}
	return locate(m.file, n).Attach(err)
}

func (m *mapping) required(key string) (string, error) {
	var s string
	if err := m.decode(key, &s); err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		loc := m.loc()
		return "", alerr.Newf(alerr.ErrMalformedProperty, "%s requires %s", m.kind, key).
			WithProperty(key).
			WithLocation(loc.File, loc.Line, loc.Column)
	}
	return s, nil
}

func (m *mapping) str(key string) (string, error) {
	var s string
	err := m.decode(key, &s)
	return s, err
}

func (m *mapping) boolean(key string) (bool, error) {
	var b bool
	err := m.decode(key, &b)
	return b, err
}

// flag returns nil when key is absent, for the tri-state relation type
// properties.
func (m *mapping) flag(key string) (*bool, error) {
	if !m.has(key) {
		return nil, nil
	}
	b, err := m.boolean(key)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (m *mapping) integer(key string) (int, error) {
	var i int
	err := m.decode(key, &i)
	return i, err
}

// strs accepts a single scalar or a sequence of scalars.
func (m *mapping) strs(key string) ([]string, error) {
	n, ok := m.fields[key]
	if !ok {
		return nil, nil
	}
	if n.Kind == yaml.ScalarNode {
		return []string{n.Value}, nil
	}
	var out []string
	err := m.decode(key, &out)
	return out, err
}

func (m *mapping) value(key string) (any, error) {
	var v any
	err := m.decode(key, &v)
	return v, err
}

func (m *mapping) typeSpec(key string) (decl.TypeSpec, error) {
	s, err := m.str(key)
	if err != nil || s == "" {
		return decl.TypeSpec{}, err
	}
	spec, err := decl.ParseTypeSpec(s)
	if err != nil {
		return decl.TypeSpec{}, m.fail(key, err)
	}
	return spec, nil
}

func (m *mapping) role(key string) (decl.Role, error) {
	s, err := m.str(key)
	if err != nil {
		return "", err
	}
	switch r := decl.Role(s); r {
	case "", decl.Subject, decl.Object:
		return r, nil
	}
	return "", m.fail(key, alerr.New(alerr.ErrMalformedProperty, "expected 'subject' or 'object'").
		WithProperty(key).
		With("value", s))
}

func (m *mapping) permissions(key string) (decl.Permissions, error) {
	var raw map[string][]string
	if err := m.decode(key, &raw); err != nil || raw == nil {
		return nil, err
	}
	p := make(decl.Permissions, len(raw))
	for action, groups := range raw {
		p[decl.Action(action)] = groups
	}
	return p, nil
}

func (m *mapping) preset(key string) (*decl.Preset, error) {
	name, err := m.str(key)
	if err != nil || name == "" {
		return nil, err
	}
	p, err := decl.LookupPreset(name)
	if err != nil {
		return nil, m.fail(key, err)
	}
	return &p, nil
}

var constraintKeys = []string{"kind", "value"}

// constraints decodes a sequence of {kind, value} mappings, value being the
// persisted text form.
func (m *mapping) constraints(key string) ([]constraint.Constraint, error) {
	n, ok := m.fields[key]
	if !ok {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, parseError(m.file, n, "expected a sequence of constraints").WithProperty(key)
	}
	out := make([]constraint.Constraint, 0, len(n.Content))
	for _, item := range n.Content {
		cm, err := newMapping(m.file, "constraint", item, constraintKeys)
		if err != nil {
			return nil, err
		}
		kind, err := cm.required("kind")
		if err != nil {
			return nil, err
		}
		text, err := cm.str("value")
		if err != nil {
			return nil, err
		}
		c, err := constraint.Deserialize(constraint.Kind(kind), text)
		if err != nil {
			return nil, cm.fail("value", err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *mapping) sequence(key string) ([]*yaml.Node, error) {
	n, ok := m.fields[key]
	if !ok || n.ShortTag() == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, parseError(m.file, n, "expected a sequence").WithProperty(key)
	}
	return n.Content, nil
}
