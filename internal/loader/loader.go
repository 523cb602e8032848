// Package loader reads YAML catalog declarations.
//
// A declaration file holds one or more YAML documents, each with optional
// entities, relation_types and relations lists:
//
//	entities:
//	  - name: Person
//	    specializes: Party
//	    attributes:
//	      - {name: name, type: String, required: true, maxsize: 64}
//	    relations:
//	      - {name: works_for, object: Company, cardinality: "?*"}
//	relation_types:
//	  - {name: see_also, symmetric: true}
//	relations:
//	  - {subject: Bug, name: see_also, object: "Bug,Story"}
//
// Entity parents (extends and specializes) may live in any loaded file; they
// are applied by Definitions once everything is loaded.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hlop3z/ercat/internal/alerr"
	"github.com/hlop3z/ercat/internal/decl"
)

// Extensions lists the file extensions LoadDir reads.
var Extensions = []string{".yaml", ".yml"}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used to report loaded files.
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) { ld.logger = l }
}

// Loader accumulates declarations from several sources. Relation order is
// shared across every source, following load order.
type Loader struct {
	logger   *slog.Logger
	seq      *decl.Sequence
	entities []*entityDoc
	defs     []decl.Definition
	files    []string
	resolved bool
}

// New returns an empty loader.
func New(opts ...Option) *Loader {
	l := &Loader{logger: slog.Default(), seq: decl.NewSequence()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadDir loads every declaration file under dir and returns the resolved
// definitions.
func LoadDir(dir string, opts ...Option) ([]decl.Definition, error) {
	l := New(opts...)
	if err := l.LoadDir(dir); err != nil {
		return nil, err
	}
	return l.Definitions()
}

// LoadDir loads every .yaml and .yml file below dir in lexical order. Files
// and directories whose name starts with an underscore are skipped.
func (l *Loader) LoadDir(dir string) error {
	if err := validateDir(dir); err != nil {
		return err
	}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), "_") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !slices.Contains(Extensions, filepath.Ext(path)) {
			return nil
		}
		return l.LoadFile(path)
	})
	if err == nil {
		return nil
	}
	if _, ok := alerr.As(err); ok {
		return err
	}
	return alerr.Wrap(alerr.ErrLoadFailed, err, "failed to walk declaration directory").
		With("path", dir)
}

// LoadFile loads one declaration file.
func (l *Loader) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return alerr.Wrap(alerr.ErrLoadFailed, err, "failed to read declaration file").
			With("path", path)
	}
	return l.Load(path, data)
}

// Load decodes data, naming it file in error locations.
func (l *Loader) Load(file string, data []byte) error {
	if l.resolved {
		return alerr.New(alerr.ErrLoadFailed, "declarations were already resolved").
			With("path", file)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	docs := 0
	for {
		var root yaml.Node
		err := dec.Decode(&root)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return alerr.Wrap(alerr.ErrParse, err, "invalid YAML").
				WithLocation(file, yamlLine(err), 0)
		}
		if err := l.decodeDocument(file, &root); err != nil {
			return err
		}
		docs++
	}
	l.files = append(l.files, file)
	l.logger.Debug("loaded declarations", "file", file, "documents", docs)
	return nil
}

// Files returns the loaded sources in load order.
func (l *Loader) Files() []string { return slices.Clone(l.files) }

// Definitions applies entity parents and returns every definition in load
// order. Parents are applied before their children, so inherited relations
// include the parent's own inherited ones.
func (l *Loader) Definitions() ([]decl.Definition, error) {
	if !l.resolved {
		if err := l.resolveParents(); err != nil {
			return nil, err
		}
		l.resolved = true
	}
	return slices.Clone(l.defs), nil
}

func (l *Loader) resolveParents() error {
	byName := make(map[string]*entityDoc, len(l.entities))
	names := make([]string, 0, len(l.entities))
	for _, ed := range l.entities {
		if _, dup := byName[ed.entity.Name]; dup {
			// the builder reports the duplicate with both locations
			continue
		}
		byName[ed.entity.Name] = ed
		names = append(names, ed.entity.Name)
	}

	const (
		visiting = 1
		done     = 2
	)
	state := make(map[*entityDoc]int, len(l.entities))
	var stack []string

	var visit func(ed *entityDoc) error
	visit = func(ed *entityDoc) error {
		switch state[ed] {
		case done:
			return nil
		case visiting:
			start := slices.Index(stack, ed.entity.Name)
			chain := append(slices.Clone(stack[start:]), ed.entity.Name)
			return ed.loc.Attach(alerr.New(alerr.ErrCircularSpecialization, "entity type inherits from itself").
				WithEntity(ed.entity.Name).
				With("chain", strings.Join(chain, " -> ")))
		}
		state[ed] = visiting
		stack = append(stack, ed.entity.Name)

		for _, name := range ed.parents() {
			parent, ok := byName[name]
			if !ok {
				return ed.loc.Attach(alerr.New(alerr.ErrUnknownType, "unknown parent entity type").
					WithEntity(ed.entity.Name).
					With("parent", name).
					WithHelp(alerr.SuggestSimilar(name, names)))
			}
			if err := visit(parent); err != nil {
				return err
			}
		}

		var extends []*decl.EntityType
		for _, name := range ed.extends {
			extends = append(extends, byName[name].entity)
		}
		if len(extends) > 0 {
			ed.entity.Inherit(extends...)
		}
		if ed.specializes != "" {
			ed.entity.Specialize(byName[ed.specializes].entity)
		}

		stack = stack[:len(stack)-1]
		state[ed] = done
		return nil
	}

	for _, ed := range l.entities {
		if err := visit(ed); err != nil {
			return err
		}
	}
	return nil
}

func validateDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return alerr.New(alerr.ErrLoadFailed, "declaration directory does not exist").
				With("path", dir)
		}
		return alerr.Wrap(alerr.ErrLoadFailed, err, "failed to access declaration directory").
			With("path", dir)
	}
	if !info.IsDir() {
		return alerr.New(alerr.ErrLoadFailed, "path is not a directory").
			With("path", dir)
	}
	return nil
}

// yamlLine extracts the line number from a yaml.v3 error message.
func yamlLine(err error) int {
	var line int
	msg := err.Error()
	if i := strings.Index(msg, "line "); i >= 0 {
		fmt.Sscanf(msg[i:], "line %d", &line)
	}
	return line
}
