// Package builder turns declarations into a schema catalog.
//
// Building runs in three steps that must happen in order:
//
//	RegisterTypes   every entity type and relation type is registered
//	ExpandRelations relation definitions are expanded into catalog pairs
//	Finalize        specializations are inferred, default permissions set
//
// Relation expansion needs the complete set of types (wildcards, final
// object detection), so no relation is expanded before every type is known.
package builder

import (
	"log/slog"
	"time"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/decl"
	"github.com/hlop3z/ercat/internal/schema"
)

// Phase is the builder state.
type Phase int

const (
	PhaseNew Phase = iota
	PhaseTypes
	PhaseRelations
	PhaseFinal
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseNew:
		return "new"
	case PhaseTypes:
		return "types"
	case PhaseRelations:
		return "relations"
	case PhaseFinal:
		return "final"
	default:
		return "unknown"
	}
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for build progress. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithClock sets the clock the catalog evaluates NOW and TODAY defaults
// with.
func WithClock(clock func() time.Time) Option {
	return func(b *Builder) { b.clock = clock }
}

// Builder drives declarations through the build phases. The first failure
// is kept and returned by every later call.
type Builder struct {
	logger *slog.Logger
	clock  func() time.Time
	phase  Phase
	err    error
	defs   []decl.Definition
	reg    *decl.Registry
	schema *schema.Schema
}

// New returns a builder for a catalog called name.
func New(name string, opts ...Option) *Builder {
	b := &Builder{
		logger: slog.Default(),
		clock:  time.Now,
		reg:    decl.NewRegistry(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.schema = schema.New(name, schema.WithClock(b.clock))
	return b
}

// Phase returns the last completed phase.
func (b *Builder) Phase() Phase { return b.phase }

// Err returns the error that stopped the build, if any.
func (b *Builder) Err() error { return b.err }

// Build runs every phase over defs and returns the finished catalog.
func Build(name string, defs []decl.Definition, opts ...Option) (*schema.Schema, error) {
	b := New(name, opts...)
	if err := b.RegisterTypes(defs); err != nil {
		return nil, err
	}
	if err := b.ExpandRelations(); err != nil {
		return nil, err
	}
	return b.Finalize()
}

// RegisterTypes runs the first pass over defs and creates the entity and
// relation schemas.
func (b *Builder) RegisterTypes(defs []decl.Definition) error {
	if err := b.enter(PhaseTypes); err != nil {
		return err
	}
	b.defs = defs
	for _, d := range defs {
		if d == nil {
			return b.fail(alerr.New(alerr.EInternalError, "nil definition"))
		}
		if err := d.ExpandTypeDefinitions(b.reg); err != nil {
			return b.fail(decorate(err, d))
		}
	}
	for _, e := range b.reg.Entities() {
		if _, err := b.schema.AddEntityType(e); err != nil {
			return b.fail(e.Source.Attach(err))
		}
	}
	for _, r := range b.reg.RelationTypes() {
		if _, err := b.schema.AddRelationType(r); err != nil {
			return b.fail(r.Source.Attach(err))
		}
	}
	b.logger.Debug("registered types",
		"catalog", b.schema.Name(),
		"entities", len(b.reg.Entities()),
		"relations", len(b.reg.RelationTypes()))
	b.phase = PhaseTypes
	return nil
}

// ExpandRelations runs the second pass, adding every relation definition
// pair to the catalog. Relation types left without any pair are dropped.
func (b *Builder) ExpandRelations() error {
	if err := b.enter(PhaseRelations); err != nil {
		return err
	}
	for _, d := range b.defs {
		if err := d.ExpandRelationDefinitions(b.reg, b.schema); err != nil {
			return b.fail(decorate(err, d))
		}
	}
	for _, rs := range b.schema.Relations() {
		if len(rs.RDefs()) > 0 {
			continue
		}
		b.logger.Warn("relation type has no definition", "relation", rs.Name(), "source", rs.Source().String())
		if err := b.schema.DelRelationType(rs.Name()); err != nil {
			return b.fail(err)
		}
	}
	b.phase = PhaseRelations
	return nil
}

// Finalize fills default permissions and infers specialized relations, then
// returns the catalog.
func (b *Builder) Finalize() (*schema.Schema, error) {
	if err := b.enter(PhaseFinal); err != nil {
		return nil, err
	}
	b.schema.SetDefaultPermissions()
	if err := b.schema.InferSpecializations(); err != nil {
		return nil, b.fail(err)
	}
	b.phase = PhaseFinal
	b.logger.Info("catalog built",
		"catalog", b.schema.Name(),
		"entities", len(b.schema.EntityNames()),
		"relations", len(b.schema.RelationNames()))
	return b.schema, nil
}

// Schema returns the catalog once the build is final, nil before.
func (b *Builder) Schema() *schema.Schema {
	if b.phase != PhaseFinal {
		return nil
	}
	return b.schema
}

func (b *Builder) enter(next Phase) error {
	if b.err != nil {
		return b.err
	}
	if b.phase != next-1 {
		return alerr.Newf(alerr.ErrBuildPhase, "cannot enter phase %s from phase %s", next, b.phase).
			With("phase", b.phase.String())
	}
	return nil
}

func (b *Builder) fail(err error) error {
	b.err = err
	b.logger.Debug("build failed", "phase", (b.phase + 1).String(), "error", err)
	return err
}

// decorate adds the declaration's location and name to err.
func decorate(err error, d decl.Definition) error {
	e, ok := alerr.As(err)
	if !ok {
		return d.Location().Attach(alerr.Wrap(alerr.EInternalError, err, "build failed").
			With("definition", d.DefName()))
	}
	if _, set := e.GetContext()["definition"]; !set {
		e.With("definition", d.DefName())
	}
	return d.Location().Attach(e)
}
