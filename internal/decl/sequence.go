package decl

// Sequence hands out monotonically increasing creation ranks. The loader (or
// whoever builds declarations) owns one per build so that declaration order
// determines catalog iteration order.
type Sequence struct {
	last int
}

// NewSequence returns a sequence whose first rank is 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next rank. A nil sequence always returns 0.
func (s *Sequence) Next() int {
	if s == nil {
		return 0
	}
	s.last++
	return s.last
}

// Last returns the most recently issued rank.
func (s *Sequence) Last() int {
	if s == nil {
		return 0
	}
	return s.last
}
