package cli

import (
	stdErrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/robinvdvleuten/salesledger/errors"
	"github.com/robinvdvleuten/salesledger/ledger"
)

var errContextStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})

// ErrorRenderer renders ledger errors with terminal styling. Errors about a
// stored record are followed by that record, dimmed.
type ErrorRenderer struct {
	formatter *errors.TextFormatter
}

// NewErrorRenderer creates a renderer that resolves record context in l.
// l may be nil.
func NewErrorRenderer(l *ledger.Ledger) *ErrorRenderer {
	var opts []errors.TextFormatterOption
	if l != nil {
		opts = append(opts, errors.WithRecords(errors.LedgerLookup(l)))
	}
	return &ErrorRenderer{formatter: errors.NewTextFormatter(opts...)}
}

// Render formats a single error. The first line is the message, any
// further lines are context.
func (r *ErrorRenderer) Render(err error) string {
	lines := strings.Split(r.formatter.Format(err), "\n")

	var buf strings.Builder
	buf.WriteString(errorStyle.Render(lines[0]))
	for _, line := range lines[1:] {
		buf.WriteByte('\n')
		buf.WriteString(errContextStyle.Render(line))
	}
	return buf.String()
}

// RenderAll formats multiple errors, one block per error.
func (r *ErrorRenderer) RenderAll(errs []error) string {
	errs = errors.Flatten(errs...)
	if len(errs) == 0 {
		return ""
	}

	var buf strings.Builder
	for i, err := range errs {
		buf.WriteString(r.Render(err))

		if i < len(errs)-1 {
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// reportFailure prints a failed submission and converts it into a
// CommandError. Errors that are not ledger errors are returned unchanged.
func reportFailure(w io.Writer, l *ledger.Ledger, err error) error {
	renderer := NewErrorRenderer(l)

	var (
		verr     *ledger.ValidationErrors
		notFound *ledger.NotFoundError
		persist  *ledger.PersistError
	)
	switch {
	case stdErrors.As(err, &verr):
		_, _ = fmt.Fprintln(w, renderer.RenderAll(verr.Errors))
		_, _ = fmt.Fprintln(w)
		printError(w, fmt.Sprintf("%d validation error(s) found", len(verr.Errors)))
	case stdErrors.As(err, &notFound):
		printError(w, notFound.Error())
	case stdErrors.As(err, &persist):
		printError(w, persist.Error())
	default:
		return err
	}
	return NewCommandError(ExitFailure)
}
