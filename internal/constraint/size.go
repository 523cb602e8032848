package constraint

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Size bounds the length of a string (in runes) or a byte slice.
type Size struct {
	Min *int
	Max *int
}

// NewSize returns a size constraint. At least one bound is required and
// bounds must be non-negative with min <= max.
func NewSize(min, max *int) (*Size, error) {
	s := &Size{Min: min, Max: max}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// MaxSize returns a size constraint with only an upper bound.
func MaxSize(n int) *Size {
	return &Size{Max: &n}
}

// SizeRange returns a size constraint with both bounds.
func SizeRange(min, max int) *Size {
	return &Size{Min: &min, Max: &max}
}

func (s *Size) validate() error {
	switch {
	case s.Min == nil && s.Max == nil:
		return invalid(KindSize, s.Serialize(), "min or max is required")
	case s.Min != nil && *s.Min < 0, s.Max != nil && *s.Max < 0:
		return invalid(KindSize, s.Serialize(), "bounds must not be negative")
	case s.Min != nil && s.Max != nil && *s.Min > *s.Max:
		return invalid(KindSize, s.Serialize(), "min is greater than max")
	}
	return nil
}

func (s *Size) Kind() Kind { return KindSize }

// Check fails if the length is above Max or below Min. Values without a
// length never satisfy a size constraint.
func (s *Size) Check(v any) bool {
	var n int
	switch x := v.(type) {
	case string:
		n = utf8.RuneCountInString(x)
	case []byte:
		n = len(x)
	default:
		return false
	}
	if s.Max != nil && n > *s.Max {
		return false
	}
	if s.Min != nil && n < *s.Min {
		return false
	}
	return true
}

// Serialize renders "min=<n>,max=<n>" with either half omitted when unset.
func (s *Size) Serialize() string {
	var parts []string
	if s.Min != nil {
		parts = append(parts, "min="+strconv.Itoa(*s.Min))
	}
	if s.Max != nil {
		parts = append(parts, "max="+strconv.Itoa(*s.Max))
	}
	return strings.Join(parts, ",")
}

func (s *Size) String() string {
	res := "size"
	if s.Max != nil {
		res = fmt.Sprintf("%s <= %d", res, *s.Max)
	}
	if s.Min != nil {
		res = fmt.Sprintf("%d <= %s", *s.Min, res)
	}
	return res
}

// ParseSize is the inverse of (*Size).Serialize.
func ParseSize(text string) (*Size, error) {
	s := &Size{}
	for _, part := range strings.Split(text, ",") {
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return nil, invalid(KindSize, text, "expected key=value")
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return nil, invalid(KindSize, text, "bound is not an integer")
		}
		switch strings.TrimSpace(key) {
		case "min":
			s.Min = &n
		case "max":
			s.Max = &n
		default:
			return nil, invalid(KindSize, text, "unknown key "+strings.TrimSpace(key))
		}
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}
