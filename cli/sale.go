package cli

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/salesledger/formatter"
	"github.com/robinvdvleuten/salesledger/ledger"
	"github.com/robinvdvleuten/salesledger/sales"
)

type AddCmd struct {
	FieldFlags `embed:""`
}

func (cmd *AddCmd) Run(ctx *kong.Context, globals *Globals) error {
	s, err := openSession(ctx, globals, "add")
	if err != nil {
		return err
	}
	defer s.close()

	var fields ledger.Fields
	return s.submit(fields, cmd.FieldFlags, ledger.ActionContext{Mode: ledger.ModeCreate})
}

type SetCmd struct {
	ID int64 `arg:"" help:"Record to Set from: the origin or a rolled record."`

	FieldFlags `embed:""`
}

func (cmd *SetCmd) Run(ctx *kong.Context, globals *Globals) error {
	return runAction(ctx, globals, ledger.ModeSet, sales.ID(cmd.ID), cmd.FieldFlags)
}

type RollCmd struct {
	ID int64 `arg:"" help:"Record to Roll from: the origin or a rolled record."`

	FieldFlags `embed:""`
}

func (cmd *RollCmd) Run(ctx *kong.Context, globals *Globals) error {
	return runAction(ctx, globals, ledger.ModeRoll, sales.ID(cmd.ID), cmd.FieldFlags)
}

// runAction starts a Set or Roll from the target's defaults: its pricing
// and months, and its whole remaining quantity.
func runAction(ctx *kong.Context, globals *Globals, mode ledger.Mode, id sales.ID, flags FieldFlags) error {
	s, err := openSession(ctx, globals, fmt.Sprintf("%s %d", mode, id))
	if err != nil {
		return err
	}
	defer s.close()

	target, ok := s.ledger.Get(id)
	if !ok {
		return reportFailure(s.stderr, s.ledger, &ledger.NotFoundError{ID: id})
	}

	fields := s.ledger.ActionDefaults(target, mode)
	ac := ledger.ActionContext{Mode: mode, TargetID: id}
	return s.submit(fields, flags, ac)
}

type EditCmd struct {
	ID int64 `arg:"" help:"Record to edit."`

	FieldFlags `embed:""`
}

func (cmd *EditCmd) Run(ctx *kong.Context, globals *Globals) error {
	s, err := openSession(ctx, globals, fmt.Sprintf("edit %d", cmd.ID))
	if err != nil {
		return err
	}
	defer s.close()

	id := sales.ID(cmd.ID)
	target, ok := s.ledger.Get(id)
	if !ok {
		return reportFailure(s.stderr, s.ledger, &ledger.NotFoundError{ID: id})
	}
	return s.submit(ledger.FieldsOf(target), cmd.FieldFlags, ledger.ActionContext{Mode: ledger.ModeEdit, TargetID: id})
}

// submit overlays the flags onto fields and submits them. A missing futures
// price is looked up on the futures board.
func (s *session) submit(fields ledger.Fields, flags FieldFlags, ac ledger.ActionContext) error {
	if err := flags.apply(&fields); err != nil {
		return reportFailure(s.stderr, s.ledger, err)
	}
	if ac.Mode == ledger.ModeSet || ac.Mode == ledger.ModeRoll {
		ac.Quantity = fields.Quantity.Int64()
	}
	if !flags.priceChanged() && fields.FuturesPrice == nil && fields.FuturesMonth != nil {
		if price, ok := s.board().Price(fields.FuturesMonth); ok {
			ac.ReferencePrice = price
		}
	}

	rec, err := s.ledger.Submit(s.ctx, fields, ac)
	if err != nil {
		return reportFailure(s.stderr, s.ledger, err)
	}

	verb := map[ledger.Mode]string{
		ledger.ModeCreate: "Created",
		ledger.ModeEdit:   "Updated",
		ledger.ModeSet:    "Set",
		ledger.ModeRoll:   "Rolled",
	}[ac.Mode]
	printSuccess(s.stdout, fmt.Sprintf("%s %s", verb, formatter.FormatRecord(rec, s.ledger.Action(rec))))

	origin := s.ledger.ResolveOrigin(rec)
	if status, err := s.ledger.LineageStatus(origin.ID); err == nil {
		printInfof(s.stdout, "%s %s", formatter.ID(origin.ID), status)
	}
	return nil
}

type DeleteCmd struct {
	ID  int64 `arg:"" help:"Record to delete. Deleting an origin deletes all its records."`
	Yes bool  `help:"Delete without asking for confirmation." short:"y"`
}

func (cmd *DeleteCmd) Run(ctx *kong.Context, globals *Globals) error {
	s, err := openSession(ctx, globals, fmt.Sprintf("delete %d", cmd.ID))
	if err != nil {
		return err
	}
	defer s.close()

	id := sales.ID(cmd.ID)
	ids, err := s.ledger.PlanDelete(id)
	if err != nil {
		return reportFailure(s.stderr, s.ledger, err)
	}

	if !cmd.Yes {
		question := fmt.Sprintf("Delete %s?", formatter.ID(id))
		if len(ids) > 1 {
			question = fmt.Sprintf("Delete %s and its %d linked record(s)?", formatter.ID(id), len(ids)-1)
		}
		confirmed, err := confirmFunc(question)
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if !confirmed {
			printInfof(s.stdout, "Nothing deleted")
			return nil
		}
	}

	deleted, err := s.ledger.Delete(s.ctx, id)
	if err != nil {
		return reportFailure(s.stderr, s.ledger, err)
	}
	printSuccess(s.stdout, fmt.Sprintf("Deleted %d record(s)", len(deleted)))
	return nil
}
