package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/salesledger/formatter"
	"github.com/robinvdvleuten/salesledger/ledger"
	"github.com/robinvdvleuten/salesledger/sales"
)

type ListCmd struct {
	JSON bool `help:"Print the summaries as JSON."`
}

func (cmd *ListCmd) Run(ctx *kong.Context, globals *Globals) error {
	s, err := openSession(ctx, globals, "list")
	if err != nil {
		return err
	}
	defer s.close()

	summaries, err := s.ledger.Summaries(s.ctx)
	if err != nil {
		return err
	}

	if cmd.JSON {
		return writeJSON(s.stdout, summaries)
	}
	return s.formatter().FormatSummaries(s.stdout, summaries)
}

type ShowCmd struct {
	ID   int64 `arg:"" help:"Origin record id."`
	JSON bool  `help:"Print the rows and valuation as JSON."`
}

func (cmd *ShowCmd) Run(ctx *kong.Context, globals *Globals) error {
	s, err := openSession(ctx, globals, fmt.Sprintf("show %d", cmd.ID))
	if err != nil {
		return err
	}
	defer s.close()

	id := sales.ID(cmd.ID)
	rows, err := s.ledger.Rows(id)
	if err != nil {
		return reportFailure(s.stderr, s.ledger, err)
	}
	v, err := s.ledger.Valuate(s.ctx, id)
	if err != nil {
		return reportFailure(s.stderr, s.ledger, err)
	}

	if cmd.JSON {
		return writeJSON(s.stdout, struct {
			Rows      []ledger.Row      `json:"rows"`
			Valuation *ledger.Valuation `json:"valuation"`
		}{rows, v})
	}

	f := s.formatter()
	if err := f.FormatLineage(s.stdout, rows); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(s.stdout)
	return f.FormatValuation(s.stdout, v)
}

func (s *session) formatter() *formatter.Formatter {
	return formatter.New(formatter.WithStyles(s.styles))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
