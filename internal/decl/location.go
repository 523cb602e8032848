package decl

import (
	"fmt"

	"github.com/hlop3z/ercat/internal/alerr"
)

// Location is the source position of a declaration, when the loader knows it.
type Location struct {
	File   string
	Line   int
	Column int
}

// IsZero reports whether no position is known.
func (l Location) IsZero() bool {
	return l.File == "" && l.Line == 0
}

func (l Location) String() string {
	switch {
	case l.IsZero():
		return ""
	case l.Column > 0:
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	case l.Line > 0:
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
	return l.File
}

// Attach decorates err with the location unless it already carries one.
// Non-alerr errors are returned unchanged.
func (l Location) Attach(err error) error {
	if err == nil || l.IsZero() {
		return err
	}
	if e, ok := alerr.As(err); ok && !e.HasLocation() {
		e.WithLocation(l.File, l.Line, l.Column)
	}
	return err
}
