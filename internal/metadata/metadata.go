// Package metadata exports a finished catalog as a versioned JSON document.
// The document lists entity types with their flags and permissions, and
// relation types with their pairs. It is meant for external tooling, and
// can be turned back into declarations that rebuild the same catalog.
package metadata

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/constraint"
	"github.com/hlop3z/ercat/internal/decl"
	"github.com/hlop3z/ercat/internal/schema"
)

// Version of the document format.
const Version = "1.0"

// Metadata is the exported form of a catalog.
type Metadata struct {
	// Version of the metadata format
	Version string `json:"version"`

	// Catalog name
	Catalog string `json:"catalog"`

	// Generated timestamp
	GeneratedAt time.Time `json:"generated_at"`

	// Entity types, final ones included, sorted by name
	Entities []*EntityMeta `json:"entities"`

	// Relation types sorted by name
	Relations []*RelationMeta `json:"relations"`
}

// EntityMeta holds one entity type.
type EntityMeta struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Meta        bool             `json:"meta"`
	Final       bool             `json:"final"`
	Specializes string           `json:"specializes,omitempty"`
	Permissions decl.Permissions `json:"permissions"`
}

// RelationMeta holds one relation type and its pairs in registration order.
type RelationMeta struct {
	Name              string           `json:"name"`
	Description       string           `json:"description,omitempty"`
	Symmetric         bool             `json:"symmetric"`
	Inlined           bool             `json:"inlined"`
	Meta              bool             `json:"meta"`
	Final             bool             `json:"final"`
	FulltextContainer string           `json:"fulltext_container,omitempty"`
	PhysicalMode      string           `json:"physical_mode,omitempty"`
	Permissions       decl.Permissions `json:"permissions"`
	Pairs             []*PairMeta      `json:"pairs"`
}

// PairMeta holds the properties of one (subject, object) pair.
type PairMeta struct {
	Subject             string           `json:"subject"`
	Object              string           `json:"object"`
	Cardinality         string           `json:"cardinality"`
	Constraints         []ConstraintMeta `json:"constraints,omitempty"`
	Composite           string           `json:"composite,omitempty"`
	Order               int              `json:"order"`
	Description         string           `json:"description,omitempty"`
	Default             any              `json:"default,omitempty"`
	UID                 bool             `json:"uid,omitempty"`
	Indexed             bool             `json:"indexed,omitempty"`
	FulltextIndexed     bool             `json:"fulltextindexed,omitempty"`
	Internationalizable bool             `json:"internationalizable,omitempty"`
	Permissions         decl.Permissions `json:"permissions,omitempty"`
	Infered             bool             `json:"infered,omitempty"`
}

// ConstraintMeta is a constraint in its persisted text form.
type ConstraintMeta struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Encode captures s.
func Encode(s *schema.Schema) *Metadata {
	m := &Metadata{
		Version:     Version,
		Catalog:     s.Name(),
		GeneratedAt: time.Now().UTC(),
		Entities:    make([]*EntityMeta, 0, len(s.EntityNames())),
		Relations:   make([]*RelationMeta, 0, len(s.RelationNames())),
	}
	for _, e := range s.Entities() {
		m.Entities = append(m.Entities, &EntityMeta{
			Name:        e.Name(),
			Description: e.Description(),
			Meta:        e.IsMeta(),
			Final:       e.IsFinal(),
			Specializes: e.SpecializesName(),
			Permissions: e.Permissions(),
		})
	}
	for _, r := range s.Relations() {
		rm := &RelationMeta{
			Name:              r.Name(),
			Description:       r.Description(),
			Symmetric:         r.IsSymmetric(),
			Inlined:           r.IsInlined(),
			Meta:              r.IsMeta(),
			Final:             r.IsFinal(),
			FulltextContainer: string(r.FulltextContainer()),
			PhysicalMode:      string(r.PhysicalMode()),
			Permissions:       r.Permissions(),
		}
		for _, k := range r.RDefs() {
			p, err := r.RProperties(k.Subject, k.Object)
			if err != nil {
				continue
			}
			rm.Pairs = append(rm.Pairs, encodePair(p))
		}
		m.Relations = append(m.Relations, rm)
	}
	return m
}

func encodePair(p *schema.Pair) *PairMeta {
	pm := &PairMeta{
		Subject:             p.Subject,
		Object:              p.Object,
		Cardinality:         p.Cardinality,
		Composite:           string(p.Composite),
		Order:               p.Order,
		Description:         p.Description,
		Default:             p.Default,
		UID:                 p.UID,
		Indexed:             p.Indexed,
		FulltextIndexed:     p.FulltextIndexed,
		Internationalizable: p.Internationalizable,
		Permissions:         p.Permissions.Clone(),
		Infered:             p.Infered,
	}
	for _, c := range p.Constraints {
		pm.Constraints = append(pm.Constraints, ConstraintMeta{Kind: string(c.Kind()), Value: c.Serialize()})
	}
	return pm
}

// Marshal renders m as indented JSON.
func (m *Metadata) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, alerr.Wrap(alerr.EInternalError, err, "failed to encode metadata")
	}
	return append(data, '\n'), nil
}

// SaveToFile writes the metadata to a JSON file at the specified path.
func (m *Metadata) SaveToFile(filePath string) error {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(filePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return alerr.Wrap(alerr.ErrLoadFailed, err, "failed to create metadata directory").
				With("path", dir)
		}
	}

	data, err := m.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return alerr.Wrap(alerr.ErrLoadFailed, err, "failed to write metadata").
			With("path", filePath)
	}
	return nil
}

// Parse decodes a metadata document. Numbers in default values decode to
// int64 when integral, float64 otherwise.
func Parse(data []byte) (*Metadata, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m Metadata
	if err := dec.Decode(&m); err != nil {
		return nil, alerr.Wrap(alerr.ErrParse, err, "invalid metadata document")
	}
	if m.Version != Version {
		return nil, alerr.New(alerr.ErrParse, "unsupported metadata version").
			With("version", m.Version).
			With("expected", Version)
	}
	for _, r := range m.Relations {
		for _, p := range r.Pairs {
			p.Default = normalizeNumber(p.Default)
		}
	}
	return &m, nil
}

// Load reads a metadata document from a JSON file.
func Load(filePath string) (*Metadata, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, alerr.Wrap(alerr.ErrLoadFailed, err, "failed to read metadata").
			With("path", filePath)
	}
	m, err := Parse(data)
	if err != nil {
		if e, ok := alerr.As(err); ok {
			e.WithLocation(filePath, 0, 0)
		}
		return nil, err
	}
	return m, nil
}

func normalizeNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// Definitions turns the document back into declarations. Final entity types
// are skipped since every catalog is seeded with them, and infered pairs are
// left to the builder to infer again.
func (m *Metadata) Definitions() ([]decl.Definition, error) {
	var defs []decl.Definition
	for _, e := range m.Entities {
		if e.Final {
			continue
		}
		defs = append(defs, &decl.EntityType{
			Name:        e.Name,
			Description: e.Description,
			Meta:        e.Meta,
			Permissions: e.Permissions.Clone(),
			Specializes: e.Specializes,
		})
	}
	for _, r := range m.Relations {
		props := decl.RelationTypeProps{
			Symmetric:   decl.Ptr(r.Symmetric),
			Inlined:     decl.Ptr(r.Inlined),
			Meta:        decl.Ptr(r.Meta),
			Permissions: r.Permissions.Clone(),
		}
		if r.FulltextContainer != "" {
			props.FulltextContainer = decl.Ptr(decl.Role(r.FulltextContainer))
		}
		if r.Description != "" {
			props.Description = decl.Ptr(r.Description)
		}
		defs = append(defs, decl.NewRelationType(r.Name, props))

		for _, p := range r.Pairs {
			if p.Infered {
				continue
			}
			def, err := p.props()
			if err != nil {
				if e, ok := alerr.As(err); ok {
					e.WithRelation(r.Name)
				}
				return nil, err
			}
			defs = append(defs, &decl.RelationDefinition{
				Subject: decl.Types(p.Subject),
				Name:    r.Name,
				Object:  decl.Types(p.Object),
				Def:     def,
			})
		}
	}
	return defs, nil
}

func (p *PairMeta) props() (decl.RelationDefProps, error) {
	d := decl.RelationDefProps{
		Cardinality:         p.Cardinality,
		Composite:           decl.Role(p.Composite),
		Order:               p.Order,
		Description:         p.Description,
		Default:             p.Default,
		UID:                 p.UID,
		Indexed:             p.Indexed,
		FulltextIndexed:     p.FulltextIndexed,
		Internationalizable: p.Internationalizable,
		Permissions:         p.Permissions.Clone(),
	}
	for _, cm := range p.Constraints {
		c, err := constraint.Deserialize(constraint.Kind(cm.Kind), cm.Value)
		if err != nil {
			return d, err
		}
		d.Constraints.Add(c)
	}
	return d, nil
}
