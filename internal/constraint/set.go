package constraint

import "slices"

// Set is an ordered collection holding at most one constraint per kind.
type Set []Constraint

// Add replaces the constraint of the same kind in place, or appends c.
func (s *Set) Add(c Constraint) {
	for i, existing := range *s {
		if existing.Kind() == c.Kind() {
			(*s)[i] = c
			return
		}
	}
	*s = append(*s, c)
}

// Get returns the constraint of the given kind, or nil.
func (s Set) Get(kind Kind) Constraint {
	for _, c := range s {
		if c.Kind() == kind {
			return c
		}
	}
	return nil
}

// Has reports whether a constraint of the given kind is present.
func (s Set) Has(kind Kind) bool {
	return s.Get(kind) != nil
}

// Clone returns a shallow copy; constraints themselves are values.
func (s Set) Clone() Set {
	return slices.Clone(s)
}

// Equal compares kinds and text forms, in order.
func (s Set) Equal(o Set) bool {
	return slices.EqualFunc(s, o, func(a, b Constraint) bool {
		return a.Kind() == b.Kind() && a.Serialize() == b.Serialize()
	})
}

// Vocabulary returns the first vocabulary constraint of the set, if any.
func (s Set) Vocabulary() (Vocabulary, bool) {
	for _, c := range s {
		if v, ok := c.(Vocabulary); ok {
			return v, true
		}
	}
	return nil, false
}
