package schema

import (
	"slices"
	"strings"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/decl"
)

// InferSpecializations links every entity type to its parent and copies
// relation definitions down the specialization tree.
//
// For each authored pair (S, O) of a relation, pairs (S', O') are added for
// S' in S and the descendants inheriting from it, and O' in O and its
// descendants. A descendant with its own authored pairs for the relation
// overrides S for itself and its whole subtree. Existing pairs are kept;
// added pairs are marked Infered.
func (s *Schema) InferSpecializations() error {
	if err := s.linkSpecializations(); err != nil {
		return err
	}
	for _, rs := range s.Relations() {
		if err := rs.inferPairs(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) linkSpecializations() error {
	for _, es := range s.entities {
		es.children = nil
	}
	names := s.EntityNames()
	for _, name := range names {
		es := s.entities[name]
		if es.specializes == "" {
			continue
		}
		parent, ok := s.entities[es.specializes]
		if !ok {
			return es.source.Attach(alerr.New(alerr.ErrUnknownType, "specialization of an unknown type").
				WithEntity(name).
				With("specializes", es.specializes).
				WithHelp(alerr.SuggestSimilar(es.specializes, names)))
		}
		if parent.final {
			return es.source.Attach(alerr.New(alerr.ErrFinalEntity, "final types cannot be specialized").
				WithEntity(name).
				With("specializes", parent.name))
		}
		parent.children = append(parent.children, name)
	}
	for _, name := range names {
		chain := []string{name}
		for p := s.entities[name].specializes; p != ""; p = s.entities[p].specializes {
			if p == name {
				return s.entities[name].source.Attach(alerr.New(alerr.ErrCircularSpecialization, "circular specialization").
					WithEntity(name).
					With("chain", strings.Join(append(chain, p), " -> ")))
			}
			if slices.Contains(chain, p) {
				break // reported from a type on the cycle
			}
			chain = append(chain, p)
		}
	}
	return nil
}

func (r *RelationSchema) inferPairs() error {
	authored := slices.DeleteFunc(r.RDefs(), func(k PairKey) bool { return r.pairs[k].Infered })
	owners := make(map[string]bool, len(authored))
	for _, k := range authored {
		owners[k.Subject] = true
	}
	for _, k := range authored {
		p := r.pairs[k]
		subj, obj := r.schema.entities[k.Subject], r.schema.entities[k.Object]
		subjects := append([]string{k.Subject}, subj.heirs(owners)...)
		objects := append([]string{k.Object}, obj.SpecializedBy(true)...)
		for _, sn := range subjects {
			for _, on := range objects {
				if _, ok := r.pairs[PairKey{sn, on}]; ok {
					continue
				}
				edge := &decl.Edge{
					Subject: sn,
					Name:    r.name,
					Object:  on,
					Def:     p.RelationDefProps.Clone(),
					Infered: true,
					Source:  p.Source,
				}
				if err := r.update(r.schema.entities[sn], r.schema.entities[on], edge); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// heirs returns the descendants of e that inherit its pairs, top-down. The
// walk does not enter the subtree of an owner.
func (e *EntitySchema) heirs(owners map[string]bool) []string {
	var out []string
	for _, c := range e.children {
		if owners[c] {
			continue
		}
		out = append(out, c)
		out = append(out, e.schema.entities[c].heirs(owners)...)
	}
	return out
}
