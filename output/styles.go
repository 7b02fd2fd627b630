// Package output provides styling helpers for terminal output.
package output

import (
	"io"

	"github.com/muesli/termenv"
	"github.com/shopspring/decimal"
)

// Styles provides styled output helpers for the CLI. Styling degrades to
// plain text when the writer is not a color terminal.
type Styles struct {
	output *termenv.Output
}

// NewStyles creates a new Styles instance for the given writer.
func NewStyles(w io.Writer) *Styles {
	return &Styles{
		output: termenv.NewOutput(w),
	}
}

// Plain returns styles that never emit escape codes.
func Plain(w io.Writer) *Styles {
	return &Styles{
		output: termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii)),
	}
}

func (s *Styles) color(text, code string) termenv.Style {
	return s.output.String(text).Foreground(s.output.Color(code))
}

// Success returns green bold text.
func (s *Styles) Success(text string) string {
	return s.color(text, "2").Bold().String()
}

// Error returns red bold text.
func (s *Styles) Error(text string) string {
	return s.color(text, "1").Bold().String()
}

// Warning returns yellow bold text.
func (s *Styles) Warning(text string) string {
	return s.color(text, "3").Bold().String()
}

// FilePath styles a path or DSN (cyan).
func (s *Styles) FilePath(text string) string {
	return s.color(text, "6").String()
}

// Keyword returns bold text, used for headers and record ids.
func (s *Styles) Keyword(text string) string {
	return s.output.String(text).Bold().String()
}

// Dim returns dimmed text for secondary information.
func (s *Styles) Dim(text string) string {
	return s.output.String(text).Faint().String()
}

// Quantity styles a bushel quantity (magenta).
func (s *Styles) Quantity(text string) string {
	return s.color(text, "5").String()
}

// Money colors an already formatted amount by the sign of value: green for
// zero and gains, red for losses.
func (s *Styles) Money(text string, value decimal.Decimal) string {
	if value.IsNegative() {
		return s.color(text, "1").String()
	}
	return s.color(text, "2").String()
}

// Action styles a row action label.
func (s *Styles) Action(label string) string {
	switch label {
	case "Set":
		return s.color(label, "2").String()
	case "Rolled":
		return s.color(label, "4").String()
	case "Pending":
		return s.color(label, "3").String()
	default:
		return s.Dim(label)
	}
}

// Output returns the underlying termenv Output for advanced usage.
func (s *Styles) Output() *termenv.Output {
	return s.output
}
