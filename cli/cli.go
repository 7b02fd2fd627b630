// Package cli implements the salesledger command-line interface.
package cli

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/robinvdvleuten/salesledger/ledger"
	"github.com/robinvdvleuten/salesledger/market"
	"github.com/robinvdvleuten/salesledger/output"
	"github.com/robinvdvleuten/salesledger/store"
	"github.com/robinvdvleuten/salesledger/telemetry"
)

var (
	successSymbol = "✓"
	errorSymbol   = "✗"
	infoSymbol    = "→"

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D7D7", Dark: "#00D7D7"})
)

func printSuccess(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		successStyle.Render(successSymbol),
		message,
	)
}

func printError(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		errorStyle.Render(errorSymbol),
		errorStyle.Render(message),
	)
}

func printInfof(w io.Writer, format string, args ...interface{}) {
	formatted := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(w, "%s %s\n",
		infoStyle.Render(infoSymbol),
		formatted,
	)
}

// confirmFunc asks a yes/no question. Tests replace it.
var confirmFunc = promptYesNo

// promptYesNo prompts the user with a yes/no question.
// Returns false by default if stdin is not a terminal.
func promptYesNo(question string) (bool, error) {
	if !isTerminal() {
		return false, nil
	}

	var confirm bool

	form := huh.NewConfirm().
		Title(question).
		WithButtonAlignment(lipgloss.Left).
		Value(&confirm)

	err := form.Run()
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}

	return confirm, nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newLogger builds the logger shared by the store, ledger, market lookup
// and web server.
func newLogger(w io.Writer, level, format string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(w)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return log, nil
}

// session is everything a command needs: the opened store and ledger, the
// futures lookup and the output writers.
type session struct {
	ctx    context.Context
	log    *logrus.Logger
	store  store.Store
	ledger *ledger.Ledger
	lookup *market.Lookup
	crop   string

	stdout io.Writer
	stderr io.Writer
	styles *output.Styles

	collector *telemetry.TimingCollector
	root      telemetry.Timer
}

// openSession opens the configured store and loads the ledger. Callers
// must call close.
func openSession(kctx *kong.Context, globals *Globals, name string) (*session, error) {
	log, err := newLogger(kctx.Stderr, globals.LogLevel, globals.LogFormat)
	if err != nil {
		return nil, err
	}

	s := &session{
		ctx:    context.Background(),
		log:    log,
		crop:   strings.ToUpper(globals.Crop),
		stdout: kctx.Stdout,
		stderr: kctx.Stderr,
		styles: output.NewStyles(kctx.Stdout),
	}

	if globals.Telemetry {
		s.collector = telemetry.NewTimingCollector()
		s.ctx = telemetry.WithCollector(s.ctx, s.collector)
		s.root = s.collector.Start(name)
		s.ctx = telemetry.WithRootTimer(s.ctx, s.root)
	}

	st, err := store.Open(s.ctx, globals.Store, store.WithLogger(log.WithField("dsn", globals.Store)))
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	s.store = st

	s.ledger, err = openLedger(s.ctx, st, log)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	if globals.Futures != "" {
		s.lookup = market.NewLookup(market.NewSource(globals.Futures), market.WithLogger(log))
	}
	return s, nil
}

// openLedger loads the ledger from st. A failed backfill save is logged by
// the ledger and otherwise ignored: the loaded records stay usable and the
// next write saves them again.
func openLedger(ctx context.Context, st ledger.Store, log logrus.FieldLogger) (*ledger.Ledger, error) {
	l, err := ledger.Open(ctx, st, ledger.WithLogger(log))
	var perr *ledger.PersistError
	if l != nil && stdErrors.As(err, &perr) {
		return l, nil
	}
	return l, err
}

// close releases the store and prints the telemetry report.
func (s *session) close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.log.WithError(err).Warn("failed to close store")
		}
	}
	if s.collector != nil {
		s.root.End()
		_, _ = fmt.Fprintln(s.stderr)
		s.collector.Report(s.stderr)
	}
}

// board returns the futures board of the session crop. It is empty when no
// futures source is configured.
func (s *session) board() *market.Board {
	return s.lookup.Board(s.ctx, s.crop)
}
