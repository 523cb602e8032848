package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlop3z/ercat/internal/alerr"
)

func init() {
	// plain mode keeps the style helpers free of ANSI codes
	SetDefault(&Config{Mode: ModePlain})
}

func TestFormatError_SourceLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.yaml")
	src := "entities:\n  - name: Person\n    attributes:\n      - {name: age, type: Int, colour: red}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	err := alerr.New(alerr.ErrUnsupportedProperty, "unsupported attribute property").
		WithLocation(path, 4, 33).
		WithProperty("colour").
		WithEntity("Person").
		WithHelp("did you mean 'cardinality'?")

	out := FormatError(err)
	assert.True(t, strings.HasPrefix(out, "error[E2002]: unsupported attribute property\n"))
	assert.Contains(t, out, "--> "+path+":4:33")
	assert.Contains(t, out, "4 |       - {name: age, type: Int, colour: red}")
	assert.Contains(t, out, "  | "+strings.Repeat(" ", 32)+"^")
	assert.Contains(t, out, "= entity: Person")
	assert.Contains(t, out, "= property: colour")
	assert.Contains(t, out, "help: did you mean 'cardinality'?")

	// details are sorted
	assert.Less(t, strings.Index(out, "entity:"), strings.Index(out, "property:"))
	assert.NotContains(t, out, "= file")
	assert.NotContains(t, out, "= line")
}

func TestFormatError_MissingFile(t *testing.T) {
	err := alerr.New(alerr.ErrParse, "invalid YAML").WithLocation("nowhere.yaml", 2, 0)

	out := FormatError(err)
	assert.Contains(t, out, "--> nowhere.yaml:2")
	assert.NotContains(t, out, "^")
}

func TestFormatError_FieldsNotesCause(t *testing.T) {
	err := alerr.Wrap(alerr.ErrInvalidEntity, errors.New("boom"), "invalid entity").
		WithFields(map[string]string{"name": "required", "age": "value 200 out of range"}).
		WithNote("checked against Person")

	out := FormatError(err)
	assert.Contains(t, out, "| age: value 200 out of range")
	assert.Contains(t, out, "| name: required")
	assert.Less(t, strings.Index(out, "age:"), strings.Index(out, "name:"))
	assert.Contains(t, out, "note: checked against Person")
	assert.Contains(t, out, "cause: boom")
	assert.NotContains(t, out, "= fields")
}

func TestFormatError_Plain(t *testing.T) {
	assert.Equal(t, "", FormatError(nil))
	assert.Equal(t, "error: plain failure\n", FormatError(errors.New("plain failure")))
}

func TestFormatMessages(t *testing.T) {
	assert.Equal(t, "warning: relation type empty dropped\n", FormatWarning("relation type empty dropped"))
	assert.Equal(t, "success: catalog is valid\n", FormatSuccess("catalog is valid"))
}
