package schema

import (
	"fmt"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/constraint"
	"github.com/hlop3z/ercat/internal/decl"
)

// Pair holds the properties of one (subject, object) pair of a relation.
type Pair struct {
	Subject string
	Object  string
	decl.RelationDefProps
	// Infered is set on pairs propagated from a more general type.
	Infered bool
	Source  decl.Location
}

// PropertyKeys lists the keys accepted by Pair.Get and Pair.Set.
var PropertyKeys = []string{
	"cardinality", "constraints", "composite", "order", "description",
	"default", "uid", "indexed", "fulltextindexed", "internationalizable",
	"permissions", "infered",
}

func unknownProperty(key string) error {
	return alerr.New(alerr.ErrUnsupportedProperty, "unknown relation definition property").
		WithProperty(key).
		WithHelp(alerr.SuggestSimilar(key, PropertyKeys))
}

// Get returns the property called key.
func (p *Pair) Get(key string) (any, error) {
	switch key {
	case "cardinality":
		return p.Cardinality, nil
	case "constraints":
		return p.Constraints.Clone(), nil
	case "composite":
		return p.Composite, nil
	case "order":
		return p.Order, nil
	case "description":
		return p.Description, nil
	case "default":
		return p.Default, nil
	case "uid":
		return p.UID, nil
	case "indexed":
		return p.Indexed, nil
	case "fulltextindexed":
		return p.FulltextIndexed, nil
	case "internationalizable":
		return p.Internationalizable, nil
	case "permissions":
		return p.Permissions.Clone(), nil
	case "infered":
		return p.Infered, nil
	}
	return nil, unknownProperty(key)
}

// Set changes the property called key. The value must have the property's
// Go type; cardinality and composite are validated.
func (p *Pair) Set(key string, value any) error {
	var ok bool
	switch key {
	case "cardinality":
		var c string
		if c, ok = value.(string); ok {
			if err := decl.ValidateCardinality(c); err != nil {
				return err
			}
			p.Cardinality = c
		}
	case "constraints":
		var cs constraint.Set
		if cs, ok = value.(constraint.Set); ok {
			p.Constraints = cs.Clone()
		}
	case "composite":
		var r decl.Role
		if r, ok = value.(decl.Role); ok {
			if r != "" && r != decl.Subject && r != decl.Object {
				return alerr.New(alerr.ErrMalformedProperty, "expected 'subject' or 'object'").
					WithProperty(key).
					With("value", string(r))
			}
			p.Composite = r
		}
	case "order":
		ok = assign(&p.Order, value)
	case "description":
		ok = assign(&p.Description, value)
	case "default":
		p.Default, ok = value, true
	case "uid":
		ok = assign(&p.UID, value)
	case "indexed":
		ok = assign(&p.Indexed, value)
	case "fulltextindexed":
		ok = assign(&p.FulltextIndexed, value)
	case "internationalizable":
		ok = assign(&p.Internationalizable, value)
	case "permissions":
		var perms decl.Permissions
		if perms, ok = value.(decl.Permissions); ok {
			if err := perms.Validate(decl.RelationActions); err != nil {
				return err
			}
			p.Permissions = perms.Clone()
		}
	case "infered":
		ok = assign(&p.Infered, value)
	default:
		return unknownProperty(key)
	}
	if !ok {
		return alerr.New(alerr.ErrMalformedProperty, "wrong value type for property").
			WithProperty(key).
			With("value", fmt.Sprintf("%T", value))
	}
	return nil
}

func assign[T any](dst *T, value any) bool {
	v, ok := value.(T)
	if ok {
		*dst = v
	}
	return ok
}
