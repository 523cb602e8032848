// Package validate provides validation helpers for catalog identifiers.
// Entity type names are CamelCase, relation type names are snake_case and
// permission groups are plain identifiers.
package validate

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/hlop3z/ercat/internal/alerr"
)

// MaxLength is the longest accepted identifier.
const MaxLength = 63

var (
	identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	entityRegex     = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)
	snakeCaseRegex  = regexp.MustCompile(`^[a-z_][a-z0-9]*(_[a-z0-9]+)*$`)
)

// IsSnakeCase checks if the given string is valid snake_case.
func IsSnakeCase(s string) bool {
	return s != "" && snakeCaseRegex.MatchString(s)
}

// Identifier validates a bare identifier: letters, digits and underscores,
// not starting with a digit, at most MaxLength bytes.
func Identifier(s string) error {
	if s == "" {
		return alerr.New(alerr.ErrInvalidIdentifier, "name cannot be empty")
	}
	if len(s) > MaxLength {
		return alerr.New(alerr.ErrInvalidIdentifier, "name exceeds maximum length of 63 characters").
			With("name", s).
			With("length", len(s))
	}
	if !identifierRegex.MatchString(s) {
		return alerr.New(alerr.ErrInvalidIdentifier, "name contains invalid characters").
			With("name", s)
	}
	return nil
}

// EntityName validates an entity type name.
func EntityName(s string) error {
	if err := Identifier(s); err != nil {
		return prefix(err, "entity type ")
	}
	if !entityRegex.MatchString(s) {
		err := alerr.New(alerr.ErrInvalidIdentifier, "entity type name must start with an uppercase letter").
			With("name", s)
		if suggestion := toCamelCase(s); suggestion != s && entityRegex.MatchString(suggestion) {
			err = err.WithHelp("did you mean '" + suggestion + "'?")
		}
		return err
	}
	return nil
}

// RelationName validates a relation type name.
func RelationName(s string) error {
	if err := Identifier(s); err != nil {
		return prefix(err, "relation type ")
	}
	if !IsSnakeCase(s) {
		err := alerr.New(alerr.ErrInvalidIdentifier, "relation type name must be snake_case").
			With("name", s)
		if suggestion := toSnakeCase(s); suggestion != s && IsSnakeCase(suggestion) {
			err = err.WithHelp("did you mean '" + suggestion + "'?")
		}
		return err
	}
	return nil
}

// GroupName validates a permission group name.
func GroupName(s string) error {
	if err := Identifier(s); err != nil {
		return prefix(err, "group ")
	}
	return nil
}

func prefix(err error, p string) error {
	if e, ok := alerr.As(err); ok {
		e.SetMessage(p + e.GetMessage())
	}
	return err
}

// toSnakeCase converts a string to snake_case.
// This is a simplified version for generating suggestions.
func toSnakeCase(s string) string {
	var sb strings.Builder
	for i, r := range s {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
		case r == '-' || r == ' ' || r == '.':
			sb.WriteByte('_')
		default:
			sb.WriteRune(r)
		}
	}
	return strings.ReplaceAll(sb.String(), "__", "_")
}

// toCamelCase converts snake_case or lowercase names to CamelCase.
func toCamelCase(s string) string {
	var sb strings.Builder
	upper := true
	for _, r := range s {
		if r == '_' || r == '-' || r == ' ' {
			upper = true
			continue
		}
		if upper {
			sb.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
