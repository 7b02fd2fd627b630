package cli

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/salesledger/market"
	"github.com/robinvdvleuten/salesledger/sales"
)

type FuturesCmd struct {
	After string `help:"Only list months after this futures month (YYYY-MM), as offered for a Roll."`
	JSON  bool   `help:"Print the quotes as JSON."`
}

func (cmd *FuturesCmd) Run(ctx *kong.Context, globals *Globals) error {
	s, err := openSession(ctx, globals, "futures")
	if err != nil {
		return err
	}
	defer s.close()

	if s.lookup == nil {
		printInfof(s.stderr, "No futures source configured, set --futures or SALESLEDGER_FUTURES")
	}

	board := s.board()
	quotes := board.Quotes()
	if cmd.After != "" {
		after, err := sales.NewMonth(cmd.After)
		if err != nil {
			return fmt.Errorf("invalid --after: %w", err)
		}
		quotes = board.MonthsAfter(after)
	}

	if cmd.JSON {
		if quotes == nil {
			quotes = []market.Quote{}
		}
		return writeJSON(s.stdout, quotes)
	}
	return s.formatter().FormatQuotes(s.stdout, quotes)
}
