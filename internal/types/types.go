// Package types defines the fixed set of final (scalar) entity types.
//
// Final types act as attribute value holders: they are seeded into every
// catalog, can be the object of a relation but never its subject. Each type
// carries a value checker used by data validation and SQL type hints for
// storage backends that read the catalog.
package types

import (
	"io"
	"reflect"
	"slices"
	"strconv"
	"time"

	"github.com/hlop3z/ercat/internal/alerr"
)

// Names of the built-in final types.
const (
	String   = "String"
	Int      = "Int"
	Float    = "Float"
	Boolean  = "Boolean"
	Date     = "Date"
	Time     = "Time"
	Datetime = "Datetime"
	Interval = "Interval"
	Password = "Password"
	Bytes    = "Bytes"
)

// -----------------------------------------------------------------------------
// TypeDef - Type definition
// -----------------------------------------------------------------------------

// TypeDef represents a final type definition.
type TypeDef struct {
	Name     string           // Type name as used in declarations (e.g., "String")
	Sizable  bool             // Values have a length (size constraints apply)
	Numeric  bool             // Values are ordered numbers (interval constraints apply)
	SQLTypes SQLTypeMap       // Database-specific SQL type hints
	check    func(v any) bool // Value checker
}

// SQLTypeMap holds database-specific SQL type strings.
type SQLTypeMap struct {
	Postgres string
	SQLite   string
}

// Check reports whether v is an acceptable value for the type.
func (t *TypeDef) Check(v any) bool {
	if t == nil || t.check == nil {
		return true
	}
	return t.check(v)
}

// -----------------------------------------------------------------------------
// Type Registry
// -----------------------------------------------------------------------------

// registry holds all registered types indexed by name.
var registry = make(map[string]*TypeDef)

// register adds a type to the registry.
// Panics if a type with the same name is already registered.
func register(t *TypeDef) {
	if _, exists := registry[t.Name]; exists {
		panic("type already registered: " + t.Name)
	}
	registry[t.Name] = t
}

// Get returns the type definition for the given name.
// Returns nil if the type is not found.
func Get(name string) *TypeDef {
	return registry[name]
}

// IsFinal returns true if name is one of the built-in final types.
func IsFinal(name string) bool {
	return registry[name] != nil
}

// Names returns the sorted names of all final types.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the type definition or an ErrUnknownType error with a
// suggestion for near misses.
func Lookup(name string) (*TypeDef, error) {
	if t := registry[name]; t != nil {
		return t, nil
	}
	return nil, alerr.New(alerr.ErrUnknownType, "unknown final type").
		With("type", name).
		WithHelp(alerr.SuggestSimilar(name, Names()))
}

// -----------------------------------------------------------------------------
// Built-in Types
// -----------------------------------------------------------------------------

func init() {
	register(&TypeDef{
		Name:     String,
		Sizable:  true,
		SQLTypes: SQLTypeMap{Postgres: "TEXT", SQLite: "TEXT"},
		check:    isString,
	})
	register(&TypeDef{
		Name:     Int,
		Numeric:  true,
		SQLTypes: SQLTypeMap{Postgres: "INTEGER", SQLite: "INTEGER"},
		check:    checkInt,
	})
	register(&TypeDef{
		Name:     Float,
		Numeric:  true,
		SQLTypes: SQLTypeMap{Postgres: "DOUBLE PRECISION", SQLite: "REAL"},
		check:    checkFloat,
	})
	register(&TypeDef{
		Name:     Boolean,
		SQLTypes: SQLTypeMap{Postgres: "BOOLEAN", SQLite: "INTEGER"},
		check: func(v any) bool {
			_, ok := v.(bool)
			return ok
		},
	})
	register(&TypeDef{
		Name:     Date,
		SQLTypes: SQLTypeMap{Postgres: "DATE", SQLite: "TEXT"},
		check:    timeChecker("2006-01-02"),
	})
	register(&TypeDef{
		Name:     Time,
		SQLTypes: SQLTypeMap{Postgres: "TIME", SQLite: "TEXT"},
		check:    timeChecker("15:04", "15:04:05"),
	})
	register(&TypeDef{
		Name:     Datetime,
		SQLTypes: SQLTypeMap{Postgres: "TIMESTAMP", SQLite: "TEXT"},
		check:    timeChecker("2006-01-02 15:04", "2006-01-02 15:04:05", time.RFC3339),
	})
	register(&TypeDef{
		Name:     Interval,
		SQLTypes: SQLTypeMap{Postgres: "INTERVAL", SQLite: "INTEGER"},
		check: func(v any) bool {
			switch x := v.(type) {
			case time.Duration:
				return true
			case string:
				_, err := time.ParseDuration(x)
				return err == nil
			}
			return false
		},
	})
	register(&TypeDef{
		Name:     Password,
		Sizable:  true,
		SQLTypes: SQLTypeMap{Postgres: "BYTEA", SQLite: "BLOB"},
		check: func(v any) bool {
			switch v.(type) {
			case string, []byte:
				return true
			}
			return false
		},
	})
	register(&TypeDef{
		Name:     Bytes,
		Sizable:  true,
		SQLTypes: SQLTypeMap{Postgres: "BYTEA", SQLite: "BLOB"},
		check: func(v any) bool {
			switch v.(type) {
			case []byte, io.Reader:
				return true
			}
			return false
		},
	})
}

// -----------------------------------------------------------------------------
// Value checkers
// -----------------------------------------------------------------------------

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func checkInt(v any) bool {
	if s, ok := v.(string); ok {
		_, err := strconv.ParseInt(s, 10, 64)
		return err == nil
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func checkFloat(v any) bool {
	if s, ok := v.(string); ok {
		_, err := strconv.ParseFloat(s, 64)
		return err == nil
	}
	_, ok := ToFloat(v)
	return ok
}

// ToFloat converts any Go numeric value to float64.
func ToFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func timeChecker(layouts ...string) func(v any) bool {
	return func(v any) bool {
		switch x := v.(type) {
		case time.Time:
			return true
		case string:
			for _, layout := range layouts {
				if _, err := time.Parse(layout, x); err == nil {
					return true
				}
			}
		}
		return false
	}
}
