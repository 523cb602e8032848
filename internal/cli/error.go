package cli

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/hlop3z/ercat/internal/alerr"
)

// shown elsewhere in a diagnostic, not as a context detail
var diagnosticKeys = []string{"file", "line", "column", "notes", "helps", "fields"}

// FormatError formats an error for CLI display in rustc style:
//
//	error[E2002]: unsupported attribute property
//	  --> schema/people.yaml:4:27
//	   |
//	 4 |       - {name: a, type: Int, requred: true}
//	   |                           ^
//	   = property: requred
//	help: did you mean 'required'?
//
// The source line is read from the error's file when it exists.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	e, ok := alerr.As(err)
	if !ok {
		return Error("error") + ": " + err.Error() + "\n"
	}

	var b strings.Builder
	b.WriteString(Error("error"))
	b.WriteString("[")
	b.WriteString(Code(string(e.GetCode())))
	b.WriteString("]: ")
	b.WriteString(e.GetMessage())
	b.WriteString("\n")

	file, line, col, hasLoc := e.Location()
	gutter := "   "
	if hasLoc {
		b.WriteString(RenderFileHeader(file, line, col))
		if src, ok := sourceLine(file, line); ok {
			gutter = strings.Repeat(" ", len(fmt.Sprint(line))+1)
			b.WriteString(renderSourceLine(line, src, col))
		}
	}

	ctx := e.GetContext()
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		if !slices.Contains(diagnosticKeys, k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s= %s: %v\n", gutter, Dim(k), ctx[k])
	}

	fields := e.Fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(&b, "%s%s %s: %s\n", gutter, Pipe(), Bold(name), fields[name])
	}

	for _, note := range e.Notes() {
		b.WriteString(Note("note"))
		b.WriteString(": ")
		b.WriteString(note)
		b.WriteString("\n")
	}
	for _, help := range e.Helps() {
		b.WriteString(Help("help"))
		b.WriteString(": ")
		b.WriteString(help)
		b.WriteString("\n")
	}
	if cause := e.GetCause(); cause != nil {
		b.WriteString(Note("cause"))
		b.WriteString(": ")
		b.WriteString(cause.Error())
		b.WriteString("\n")
	}
	return b.String()
}

// RenderFileHeader renders the location line (e.g. "--> file.yaml:15:3").
func RenderFileHeader(file string, line, col int) string {
	loc := file
	if line > 0 {
		loc = fmt.Sprintf("%s:%d", file, line)
		if col > 0 {
			loc = fmt.Sprintf("%s:%d:%d", file, line, col)
		}
	}
	return "  " + Arrow() + " " + FilePath(loc) + "\n"
}

// renderSourceLine renders one numbered source line with a pointer under
// col when known.
func renderSourceLine(line int, source string, col int) string {
	var b strings.Builder
	num := fmt.Sprint(line)
	pad := strings.Repeat(" ", len(num))

	fmt.Fprintf(&b, "%s %s\n", pad, Pipe())
	fmt.Fprintf(&b, "%s %s %s\n", LineNum(num), Pipe(), source)
	if col > 0 {
		fmt.Fprintf(&b, "%s %s %s%s\n", pad, Pipe(), strings.Repeat(" ", col-1), Pointer("^"))
	}
	return b.String()
}

// sourceLine reads line (1-indexed) of file.
func sourceLine(file string, line int) (string, bool) {
	if line <= 0 {
		return "", false
	}
	f, err := os.Open(file)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		if n == line {
			return strings.TrimRight(scanner.Text(), "\r"), true
		}
	}
	return "", false
}

// FormatWarning formats a warning message.
func FormatWarning(msg string) string {
	return Warning("warning") + ": " + msg + "\n"
}

// FormatSuccess formats a success message.
func FormatSuccess(msg string) string {
	return Success("success") + ": " + msg + "\n"
}
