package cli

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/salesledger/errors"
)

type CheckCmd struct {
	JSON bool `help:"Print problems as JSON."`
}

func (cmd *CheckCmd) Run(ctx *kong.Context, globals *Globals) error {
	s, err := openSession(ctx, globals, "check")
	if err != nil {
		return err
	}
	defer s.close()

	problems := s.ledger.Check(s.ctx)

	if cmd.JSON {
		if err := writeJSON(s.stdout, errors.NewJSONFormatter().FormatAllToSlice(problems)); err != nil {
			return err
		}
	} else if len(problems) > 0 {
		_, _ = fmt.Fprintln(s.stderr, NewErrorRenderer(s.ledger).RenderAll(problems))
		_, _ = fmt.Fprintln(s.stderr)
	}

	if len(problems) > 0 {
		printError(s.stderr, fmt.Sprintf("%d problem(s) found", len(problems)))
		return NewCommandError(ExitFailure)
	}

	printSuccess(s.stdout, fmt.Sprintf("Check passed: %d record(s)", s.ledger.Len()))
	return nil
}
