// Package constraint provides the value validators attachable to attributes
// and relations of a catalog.
//
// Constraints are plain values with no back-reference to the schema. Every
// constraint serializes to a compact text form that Deserialize turns back
// into an equivalent constraint; the text form is stable because it is
// persisted alongside schema metadata.
package constraint

import (
	"fmt"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/types"
)

// Kind identifies a constraint implementation. Kinds are the persisted
// discriminator of the text form and the deduplication key of a Set.
type Kind string

const (
	KindSize                     Kind = "SizeConstraint"
	KindInterval                 Kind = "IntervalBoundConstraint"
	KindStaticVocabulary         Kind = "StaticVocabularyConstraint"
	KindMultipleStaticVocabulary Kind = "MultipleStaticVocabularyConstraint"
	KindUnique                   Kind = "UniqueConstraint"
)

// Kinds lists every known kind in a stable order.
var Kinds = []Kind{KindSize, KindInterval, KindStaticVocabulary, KindMultipleStaticVocabulary, KindUnique}

// Constraint validates a candidate value.
type Constraint interface {
	Kind() Kind
	// Check reports whether v satisfies the constraint.
	Check(v any) bool
	// Serialize returns the persisted text form.
	Serialize() string
	String() string
}

// Vocabulary is implemented by constraints that enumerate allowed values.
type Vocabulary interface {
	Constraint
	// Vocabulary returns the allowed values. ctx is the entity the values
	// are computed for; static vocabularies ignore it.
	Vocabulary(ctx any) []string
}

// Deserialize rebuilds a constraint of the given kind from its text form.
func Deserialize(kind Kind, text string) (Constraint, error) {
	var (
		c   Constraint
		err error
	)
	switch kind {
	case KindSize:
		c, err = ParseSize(text)
	case KindInterval:
		c, err = ParseInterval(text)
	case KindStaticVocabulary:
		c, err = ParseVocabulary(text)
	case KindMultipleStaticVocabulary:
		var v *StaticVocabulary
		if v, err = ParseVocabulary(text); err == nil {
			c = &MultipleStaticVocabulary{StaticVocabulary: *v}
		}
	case KindUnique:
		c, err = ParseUnique(text)
	default:
		return nil, unknownKind(kind)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func unknownKind(kind Kind) error {
	kinds := make([]string, len(Kinds))
	for i, k := range Kinds {
		kinds[i] = string(k)
	}
	return alerr.New(alerr.ErrInvalidConstraint, "unknown constraint kind").
		With("kind", string(kind)).
		WithHelp(alerr.SuggestSimilar(string(kind), kinds))
}

// ApplicableTo checks that c makes sense on a relation whose object is the
// named entity type. Size needs a sizable final type, interval a numeric one,
// vocabularies a String/Int/Float; unique applies everywhere.
func ApplicableTo(c Constraint, objectType string) error {
	if c.Kind() == KindUnique {
		return nil
	}
	td := types.Get(objectType)
	ok := false
	if td != nil {
		switch c.Kind() {
		case KindSize:
			ok = td.Sizable
		case KindInterval:
			ok = td.Numeric
		case KindStaticVocabulary, KindMultipleStaticVocabulary:
			ok = td.Name == types.String || td.Numeric
		}
	}
	if ok {
		return nil
	}
	return alerr.New(alerr.ErrInvalidConstraint, "constraint is not applicable to the target type").
		With("constraint", c.String()).
		With("type", objectType)
}

func invalid(kind Kind, text string, reason string) *alerr.Error {
	return alerr.New(alerr.ErrInvalidConstraint, fmt.Sprintf("invalid %s", kind)).
		With("value", text).
		With("reason", reason)
}
