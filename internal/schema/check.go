package schema

import (
	"fmt"
	"strings"
	"time"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/types"
)

// Default value keywords for temporal attributes.
const (
	KeywordNow   = "NOW"
	KeywordToday = "TODAY"
)

// Default returns the default value of the attribute rtype, or nil. Boolean
// defaults given as text are coerced; temporal defaults given as NOW or
// TODAY are evaluated with the catalog clock.
func (e *EntitySchema) Default(rtype string) (any, error) {
	dest, err := e.DestinationType(rtype)
	if err != nil {
		return nil, err
	}
	p, err := e.RProperties(rtype)
	if err != nil {
		return nil, err
	}
	return e.schema.evalDefault(dest, p.Default), nil
}

func (s *Schema) evalDefault(dest string, v any) any {
	text, ok := v.(string)
	if !ok {
		return v
	}
	switch dest {
	case types.Boolean:
		return strings.EqualFold(text, "true")
	case types.Date, types.Datetime, types.Time:
		now := s.clock()
		switch strings.ToUpper(text) {
		case KeywordNow:
			return now
		case KeywordToday:
			y, m, d := now.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		}
	}
	return v
}

// DefaultValue is an attribute name with its evaluated default.
type DefaultValue struct {
	Name  string
	Value any
}

// Defaults returns the attributes having a default, in declared order.
func (e *EntitySchema) Defaults() []DefaultValue {
	var out []DefaultValue
	for _, a := range e.AttributeDefinitions() {
		p, err := a.Relation.RProperties(e.name, a.Type.name)
		if err != nil || p.Default == nil {
			continue
		}
		out = append(out, DefaultValue{Name: a.Relation.name, Value: e.schema.evalDefault(a.Type.name, p.Default)})
	}
	return out
}

// Check validates attribute values of an entity of this type. With creation
// set, missing required attributes are reported. Every failing attribute is
// reported at once in the error fields.
func (e *EntitySchema) Check(values map[string]any, creation bool) error {
	if e.final {
		return alerr.New(alerr.ErrFinalEntity, "final types have no attributes").WithEntity(e.name)
	}
	failed := map[string]string{}
	for _, a := range e.AttributeDefinitions() {
		name := a.Relation.name
		p, err := a.Relation.RProperties(e.name, a.Type.name)
		if err != nil {
			return err
		}
		required := p.Cardinality[0] == '1'
		v, present := values[name]
		switch {
		case !present:
			if creation && required {
				failed[name] = "required attribute"
			}
			continue
		case v == nil:
			if required {
				failed[name] = "required attribute"
			}
			continue
		}
		if !types.Get(a.Type.name).Check(v) {
			failed[name] = fmt.Sprintf("incorrect value (%v) for type %q", v, a.Type.name)
			continue
		}
		for _, c := range p.Constraints {
			if !c.Check(v) {
				failed[name] = fmt.Sprintf("value %v does not satisfy %s", v, c)
				break
			}
		}
	}
	if len(failed) > 0 {
		return alerr.New(alerr.ErrInvalidEntity, "invalid entity values").
			WithEntity(e.name).
			WithFields(failed)
	}
	return nil
}
