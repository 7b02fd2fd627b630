package ledger

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/robinvdvleuten/salesledger/sales"
	"github.com/robinvdvleuten/salesledger/telemetry"
)

// Mode is the kind of mutation being submitted.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
	ModeSet
	ModeRoll
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeEdit:
		return "edit"
	case ModeSet:
		return "set"
	case ModeRoll:
		return "roll"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ActionContext describes what a submission does.
type ActionContext struct {
	Mode Mode

	// TargetID is the record being edited, or the source of a Set or Roll.
	TargetID sales.ID

	// Quantity is the requested quantity of a Set or Roll.
	Quantity int64

	// ReferencePrice is the market price of the submitted futures month. It
	// fills in a missing futures price.
	ReferencePrice *sales.Price
}

// Fields are the finalized values of a submitted record. Identity, lineage
// links, status and timestamps are assigned by the ledger.
type Fields struct {
	SaleType sales.SaleType `json:"sale_type"`
	SaleDate *sales.Date    `json:"sale_date"`
	Quantity sales.Bushels  `json:"quantity"`

	FuturesMonth       *sales.Month `json:"futures_month"`
	NearbyFuturesMonth *sales.Month `json:"nearby_futures_month"`
	DeliveryMonth      *sales.Month `json:"delivery_month"`

	FuturesPrice       *sales.Price `json:"futures_price"`
	BasisPrice         *sales.Price `json:"basis_price"`
	InitialBasisPrice  *sales.Price `json:"initial_basis_price"`
	ServiceFee         *sales.Price `json:"service_fee"`
	CashPrice          *sales.Price `json:"cash_price"`
	Carry              *sales.Price `json:"carry"`
	MerchGain          *sales.Price `json:"merch_gain"`
	NearbyFuturesPrice *sales.Price `json:"nearby_futures_price"`

	DeliveryLocation    *string `json:"delivery_location"`
	HTAContractHolder   *string `json:"hta_contract_holder"`
	BasisContractHolder *string `json:"basis_contract_holder"`
	Comments            *string `json:"comments"`
}

// FieldsOf returns the submittable fields of r, as an edit form would be
// prefilled.
func FieldsOf(r sales.Record) Fields {
	c := r.Clone()
	return Fields{
		SaleType:            c.SaleType,
		SaleDate:            c.SaleDate,
		Quantity:            c.Quantity,
		FuturesMonth:        c.FuturesMonth,
		NearbyFuturesMonth:  c.NearbyFuturesMonth,
		DeliveryMonth:       c.DeliveryMonth,
		FuturesPrice:        c.FuturesPrice,
		BasisPrice:          c.BasisPrice,
		InitialBasisPrice:   c.InitialBasisPrice,
		ServiceFee:          c.ServiceFee,
		CashPrice:           c.CashPrice,
		Carry:               c.Carry,
		MerchGain:           c.MerchGain,
		NearbyFuturesPrice:  c.NearbyFuturesPrice,
		DeliveryLocation:    c.DeliveryLocation,
		HTAContractHolder:   c.HTAContractHolder,
		BasisContractHolder: c.BasisContractHolder,
		Comments:            c.Comments,
	}
}

func (f Fields) record() sales.Record {
	return sales.Record{
		SaleType:            f.SaleType,
		SaleDate:            f.SaleDate,
		Quantity:            f.Quantity,
		FuturesMonth:        f.FuturesMonth,
		NearbyFuturesMonth:  f.NearbyFuturesMonth,
		DeliveryMonth:       f.DeliveryMonth,
		FuturesPrice:        f.FuturesPrice,
		BasisPrice:          f.BasisPrice,
		InitialBasisPrice:   f.InitialBasisPrice,
		ServiceFee:          f.ServiceFee,
		CashPrice:           f.CashPrice,
		Carry:               f.Carry,
		MerchGain:           f.MerchGain,
		NearbyFuturesPrice:  f.NearbyFuturesPrice,
		DeliveryLocation:    f.DeliveryLocation,
		HTAContractHolder:   f.HTAContractHolder,
		BasisContractHolder: f.BasisContractHolder,
		Comments:            f.Comments,
	}.Clone()
}

// Build validates a submission and returns the finalized record without
// changing the ledger. Field problems are returned as *ValidationErrors and
// a missing target as *NotFoundError.
func (l *Ledger) Build(ctx context.Context, fields Fields, ac ActionContext) (*RecordDelta, error) {
	v := newValidator(l, l.config.now())
	errs, delta := v.validateRecord(ctx, fields, ac)
	if len(errs) == 1 {
		if nf, ok := errs[0].(*NotFoundError); ok {
			return nil, nf
		}
	}
	if len(errs) > 0 {
		return nil, &ValidationErrors{Errors: errs}
	}
	return delta, nil
}

// Submit builds the record, applies it and persists the collection as one
// unit. On validation failure nothing changes. When only the save fails the
// record stays applied in memory and a *PersistError is returned alongside
// it.
func (l *Ledger) Submit(ctx context.Context, fields Fields, ac ActionContext) (sales.Record, error) {
	timer := telemetry.StartTimer(ctx, fmt.Sprintf("ledger.submit %s", ac.Mode))
	defer timer.End()

	delta, err := l.Build(ctx, fields, ac)
	if err != nil {
		return sales.Record{}, err
	}

	l.applyRecordDelta(delta)
	l.log.WithFields(logrus.Fields{
		"mode":      ac.Mode.String(),
		"record_id": delta.Record.ID,
	}).Debug(delta.String())

	if err := l.persist(ctx); err != nil {
		return delta.Record, err
	}
	return delta.Record, nil
}

// Delete removes the record with the given id. Deleting an origin removes
// its whole lineage; deleting any other record removes only that record.
// The removed ids are returned in deletion order.
func (l *Ledger) Delete(ctx context.Context, id sales.ID) ([]sales.ID, error) {
	timer := telemetry.StartTimer(ctx, fmt.Sprintf("ledger.delete %d", id))
	defer timer.End()

	delta, err := l.planDelete(id)
	if err != nil {
		return nil, err
	}

	l.applyDeleteDelta(delta)
	l.log.WithField("record_id", id).Debug(delta.String())

	if err := l.persist(ctx); err != nil {
		return delta.IDs, err
	}
	return delta.IDs, nil
}

// PlanDelete reports which ids Delete would remove.
func (l *Ledger) PlanDelete(id sales.ID) ([]sales.ID, error) {
	delta, err := l.planDelete(id)
	if err != nil {
		return nil, err
	}
	return delta.IDs, nil
}

func (l *Ledger) planDelete(id sales.ID) (*DeleteDelta, error) {
	target, ok := l.Get(id)
	if !ok {
		return nil, &NotFoundError{ID: id}
	}

	delta := &DeleteDelta{Target: id, IDs: []sales.ID{id}}
	if target.IsOrigin() {
		delta.IDs = append(delta.IDs, l.children[id]...)
	}
	return delta, nil
}

// ActionDefaults returns the fields a Set or Roll of target starts from:
// the target's pricing, months and contract details. Sale date, carry,
// service fee and merch gain are cleared as they belong to the new action.
// A Roll also clears the futures price so it can be priced off the board.
func (l *Ledger) ActionDefaults(target sales.Record, mode Mode) Fields {
	f := FieldsOf(target)
	f.SaleType = l.ResolveOrigin(target).SaleType
	f.Quantity = sales.Bushels(l.Remaining(target))
	f.SaleDate = nil
	f.Carry = nil
	f.ServiceFee = nil
	f.MerchGain = nil
	f.CashPrice = nil
	f.Comments = nil
	if mode == ModeRoll {
		f.FuturesPrice = nil
	}
	return f
}
