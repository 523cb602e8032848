// Package digest fingerprints catalogs with a merkle tree.
//
// Every entity type and relation type is hashed from a canonical text form
// (sorted, independent of declaration order); the per-type hashes are the
// leaves of the tree. Two catalogs with the same root describe the same
// entities, relations, pairs and properties.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/cbergoon/merkletree"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/schema"
)

// Hash is the fingerprint of a catalog.
type Hash struct {
	Root      string                   `json:"root"`      // Root hash of the whole catalog
	Entities  map[string]string        `json:"entities"`  // Entity type name -> hash
	Relations map[string]*RelationHash `json:"relations"` // Relation type name -> hash, for drill-down
}

// RelationHash is the hash of one relation type.
type RelationHash struct {
	Name  string            `json:"name"`
	Hash  string            `json:"hash"`  // Hash of the type and all its pairs
	Pairs map[string]string `json:"pairs"` // "Subject Object" -> pair hash
}

// leaf implements merkletree.Content.
type leaf struct {
	key  string
	hash string
}

func (l leaf) CalculateHash() ([]byte, error) {
	h := sha256.Sum256([]byte(l.key + "=" + l.hash))
	return h[:], nil
}

func (l leaf) Equals(other merkletree.Content) (bool, error) {
	o, ok := other.(leaf)
	if !ok {
		return false, nil
	}
	return l.key == o.key && l.hash == o.hash, nil
}

// Compute fingerprints s.
func Compute(s *schema.Schema) (*Hash, error) {
	result := &Hash{
		Entities:  make(map[string]string),
		Relations: make(map[string]*RelationHash),
	}
	var leaves []merkletree.Content
	for _, e := range s.Entities() {
		h := entityHash(e)
		result.Entities[e.Name()] = h
		leaves = append(leaves, leaf{key: "entity:" + e.Name(), hash: h})
	}
	for _, r := range s.Relations() {
		rh := relationHash(r)
		result.Relations[r.Name()] = rh
		leaves = append(leaves, leaf{key: "relation:" + r.Name(), hash: rh.Hash})
	}
	if len(leaves) == 0 {
		result.Root = hashString("empty_catalog")
		return result, nil
	}

	tree, err := merkletree.NewTree(leaves)
	if err != nil {
		return nil, alerr.Wrap(alerr.EInternalError, err, "failed to build merkle tree")
	}
	result.Root = hex.EncodeToString(tree.MerkleRoot())
	return result, nil
}

func entityHash(e *schema.EntitySchema) string {
	return hashString(fmt.Sprintf("entity:%s|meta:%v|final:%v|specializes:%s|description:%s|permissions:%s",
		e.Name(),
		e.IsMeta(),
		e.IsFinal(),
		e.SpecializesName(),
		e.Description(),
		e.Permissions(),
	))
}

func relationHash(r *schema.RelationSchema) *RelationHash {
	result := &RelationHash{Name: r.Name(), Pairs: make(map[string]string)}

	keys := r.RDefs()
	slices.SortFunc(keys, func(a, b schema.PairKey) int {
		return strings.Compare(pairName(a), pairName(b))
	})
	pairHashes := make([]string, 0, len(keys))
	for _, k := range keys {
		p, err := r.RProperties(k.Subject, k.Object)
		if err != nil {
			continue
		}
		h := pairHash(p)
		result.Pairs[pairName(k)] = h
		pairHashes = append(pairHashes, pairName(k)+":"+h)
	}

	result.Hash = hashString(fmt.Sprintf("relation:%s|symmetric:%v|inlined:%v|meta:%v|final:%v|container:%s|mode:%s|description:%s|permissions:%s|pairs:[%s]",
		r.Name(),
		r.IsSymmetric(),
		r.IsInlined(),
		r.IsMeta(),
		r.IsFinal(),
		r.FulltextContainer(),
		r.PhysicalMode(),
		r.Description(),
		r.Permissions(),
		strings.Join(pairHashes, ","),
	))
	return result
}

func pairHash(p *schema.Pair) string {
	cstrs := make([]string, 0, len(p.Constraints))
	for _, c := range p.Constraints {
		cstrs = append(cstrs, string(c.Kind())+"="+c.Serialize())
	}
	slices.Sort(cstrs)

	data := fmt.Sprintf("cardinality:%s|constraints:[%s]|composite:%s|order:%d|description:%s|uid:%v|indexed:%v|fulltext:%v|i18n:%v|infered:%v|permissions:%s",
		p.Cardinality,
		strings.Join(cstrs, ","),
		p.Composite,
		p.Order,
		p.Description,
		p.UID,
		p.Indexed,
		p.FulltextIndexed,
		p.Internationalizable,
		p.Infered,
		p.Permissions,
	)
	if p.Default != nil {
		data += fmt.Sprintf("|default:%v", p.Default)
	}
	return hashString(data)
}

func pairName(k schema.PairKey) string { return k.Subject + " " + k.Object }

// hashString computes SHA256 hash of a string and returns hex encoding.
func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Comparison is the result of comparing two fingerprints.
type Comparison struct {
	Match             bool
	ExpectedRoot      string
	ActualRoot        string
	MissingEntities   []string             // Entity types only in expected
	ExtraEntities     []string             // Entity types only in actual
	ModifiedEntities  []string             // Entity types whose definition differs
	MissingRelations  []string             // Relation types only in expected
	ExtraRelations    []string             // Relation types only in actual
	ModifiedRelations map[string]*PairDiff // Relation types whose definition differs
}

// PairDiff lists the pair level differences of a relation type. All lists
// may be empty when only type level properties changed.
type PairDiff struct {
	Name     string
	Missing  []string
	Extra    []string
	Modified []string
}

// Compare compares two fingerprints.
func Compare(expected, actual *Hash) *Comparison {
	result := &Comparison{
		Match:             expected.Root == actual.Root,
		ExpectedRoot:      expected.Root,
		ActualRoot:        actual.Root,
		ModifiedRelations: make(map[string]*PairDiff),
	}
	if result.Match {
		return result
	}

	result.MissingEntities, result.ExtraEntities, result.ModifiedEntities = diffMaps(expected.Entities, actual.Entities)

	for name, exp := range expected.Relations {
		act, ok := actual.Relations[name]
		if !ok {
			result.MissingRelations = append(result.MissingRelations, name)
			continue
		}
		if exp.Hash == act.Hash {
			continue
		}
		d := &PairDiff{Name: name}
		d.Missing, d.Extra, d.Modified = diffMaps(exp.Pairs, act.Pairs)
		result.ModifiedRelations[name] = d
	}
	for name := range actual.Relations {
		if _, ok := expected.Relations[name]; !ok {
			result.ExtraRelations = append(result.ExtraRelations, name)
		}
	}
	slices.Sort(result.MissingRelations)
	slices.Sort(result.ExtraRelations)
	return result
}

// ChangedRelations returns the names of modified relation types, sorted.
func (c *Comparison) ChangedRelations() []string {
	names := make([]string, 0, len(c.ModifiedRelations))
	for name := range c.ModifiedRelations {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func diffMaps(expected, actual map[string]string) (missing, extra, modified []string) {
	for k, h := range expected {
		a, ok := actual[k]
		switch {
		case !ok:
			missing = append(missing, k)
		case a != h:
			modified = append(modified, k)
		}
	}
	for k := range actual {
		if _, ok := expected[k]; !ok {
			extra = append(extra, k)
		}
	}
	slices.Sort(missing)
	slices.Sort(extra)
	slices.Sort(modified)
	return missing, extra, modified
}
