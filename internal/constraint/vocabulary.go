package constraint

import (
	"fmt"
	"slices"
	"strings"
)

// StaticVocabulary restricts a value to a fixed, ordered set of literals.
type StaticVocabulary struct {
	Values []string
}

// NewStaticVocabulary returns a vocabulary constraint over values.
func NewStaticVocabulary(values ...string) (*StaticVocabulary, error) {
	if len(values) == 0 {
		return nil, invalid(KindStaticVocabulary, "", "vocabulary is empty")
	}
	return &StaticVocabulary{Values: slices.Clone(values)}, nil
}

func (c *StaticVocabulary) Kind() Kind { return KindStaticVocabulary }

// Vocabulary returns a copy of the allowed values in declaration order.
func (c *StaticVocabulary) Vocabulary(ctx any) []string {
	return slices.Clone(c.Values)
}

// Check accepts strings in the vocabulary. Scalars are compared through
// their fmt rendering so that numeric vocabularies work.
func (c *StaticVocabulary) Check(v any) bool {
	return slices.Contains(c.Values, literal(v))
}

// Serialize renders the values as ", "-joined quoted literals.
func (c *StaticVocabulary) Serialize() string {
	quoted := make([]string, len(c.Values))
	for i, v := range c.Values {
		quoted[i] = quote(v)
	}
	return strings.Join(quoted, ", ")
}

func (c *StaticVocabulary) String() string {
	return fmt.Sprintf("value in (%s)", c.Serialize())
}

// MultipleStaticVocabulary requires every element of a list value to be in
// the vocabulary.
type MultipleStaticVocabulary struct {
	StaticVocabulary
}

// NewMultipleStaticVocabulary returns a list-valued vocabulary constraint.
func NewMultipleStaticVocabulary(values ...string) (*MultipleStaticVocabulary, error) {
	v, err := NewStaticVocabulary(values...)
	if err != nil {
		return nil, err
	}
	return &MultipleStaticVocabulary{StaticVocabulary: *v}, nil
}

func (c *MultipleStaticVocabulary) Kind() Kind { return KindMultipleStaticVocabulary }

func (c *MultipleStaticVocabulary) Check(v any) bool {
	switch xs := v.(type) {
	case []string:
		for _, x := range xs {
			if !slices.Contains(c.Values, x) {
				return false
			}
		}
		return true
	case []any:
		for _, x := range xs {
			if !slices.Contains(c.Values, literal(x)) {
				return false
			}
		}
		return true
	}
	return false
}

// ParseVocabulary is the inverse of (*StaticVocabulary).Serialize. It also
// accepts u'..' prefixed and double-quoted literals.
func ParseVocabulary(text string) (*StaticVocabulary, error) {
	var values []string
	rest := strings.TrimSpace(text)
	for rest != "" {
		v, tail, err := unquote(rest)
		if err != nil {
			return nil, invalid(KindStaticVocabulary, text, err.Error())
		}
		values = append(values, v)
		tail = strings.TrimSpace(tail)
		if tail == "" {
			break
		}
		if tail[0] != ',' {
			return nil, invalid(KindStaticVocabulary, text, "expected ',' between literals")
		}
		rest = strings.TrimSpace(tail[1:])
		if rest == "" {
			return nil, invalid(KindStaticVocabulary, text, "trailing ','")
		}
	}
	if len(values) == 0 {
		return nil, invalid(KindStaticVocabulary, text, "vocabulary is empty")
	}
	return &StaticVocabulary{Values: values}, nil
}

func literal(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		if r == '\'' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}

// unquote reads one quoted literal at the start of s and returns the
// remaining text.
func unquote(s string) (string, string, error) {
	if strings.HasPrefix(s, "u'") || strings.HasPrefix(s, `u"`) {
		s = s[1:]
	}
	if s == "" || (s[0] != '\'' && s[0] != '"') {
		return "", "", fmt.Errorf("expected a quoted literal")
	}
	q := s[0]
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s):
			i++
			b.WriteByte(s[i])
		case c == q:
			return b.String(), s[i+1:], nil
		default:
			b.WriteByte(c)
		}
	}
	return "", "", fmt.Errorf("unterminated literal")
}
