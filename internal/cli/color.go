package cli

import "github.com/charmbracelet/lipgloss"

// ANSI 256 palette.
var (
	colorPrimary   = lipgloss.Color("12")
	colorSuccess   = lipgloss.Color("10")
	colorWarning   = lipgloss.Color("11")
	colorError     = lipgloss.Color("9")
	colorMuted     = lipgloss.Color("8")
	colorHighlight = lipgloss.Color("14")
)

var (
	styleError     = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	styleWarning   = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	styleNote      = lipgloss.NewStyle().Foreground(colorHighlight).Bold(true)
	styleHelp      = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleSuccess   = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	stylePipe      = lipgloss.NewStyle().Foreground(colorPrimary)
	styleFilePath  = lipgloss.NewStyle().Bold(true)
	styleHeader    = lipgloss.NewStyle().Bold(true).Foreground(colorHighlight)
	styleDim       = lipgloss.NewStyle().Foreground(colorMuted)
	styleHighlight = lipgloss.NewStyle().Foreground(colorHighlight)
	styleBold      = lipgloss.NewStyle().Bold(true)
)

func render(style lipgloss.Style, s string) string {
	if !EnableColors() {
		return s
	}
	return style.Render(s)
}

// Error returns text styled as an error label.
func Error(s string) string { return render(styleError, s) }

// Warning returns text styled as a warning label.
func Warning(s string) string { return render(styleWarning, s) }

// Note returns text styled as a note label.
func Note(s string) string { return render(styleNote, s) }

// Help returns text styled as a help label.
func Help(s string) string { return render(styleHelp, s) }

// Success returns text styled as a success message.
func Success(s string) string { return render(styleSuccess, s) }

// Code returns text styled as an error code.
func Code(s string) string { return render(styleError, s) }

// Pipe returns the gutter character of source snippets.
func Pipe() string { return render(stylePipe, "|") }

// Arrow returns the location arrow of diagnostics.
func Arrow() string { return render(stylePipe, "-->") }

// LineNum returns text styled as a line number.
func LineNum(s string) string { return render(stylePipe, s) }

// Pointer returns text styled as a pointer (^^^^).
func Pointer(s string) string { return render(styleError, s) }

// FilePath returns text styled as a file path.
func FilePath(s string) string { return render(styleFilePath, s) }

// Header returns text styled as a table header.
func Header(s string) string { return render(styleHeader, s) }

// Dim returns text styled as dim/muted.
func Dim(s string) string { return render(styleDim, s) }

// Highlight returns text styled as highlighted.
func Highlight(s string) string { return render(styleHighlight, s) }

// Bold returns bold text.
func Bold(s string) string { return render(styleBold, s) }
