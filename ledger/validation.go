package ledger

import (
	"context"
	stdErrors "errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	playground "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/salesledger/sales"
	"github.com/robinvdvleuten/salesledger/telemetry"
)

// Validation Architecture
//
// Mutations are processed in two phases:
//
// 1. Validation Phase (pure)
//   - validator.validateRecord reads the ledger through stateView only
//   - presence rules run through go-playground/validator struct tags on a
//     submission, which encodes the mode and sale type the rules depend on
//   - relational rules (quantities, month and date ordering, sources) are
//     checked by hand against the current lineage
//   - all errors are collected; nothing short-circuits except a missing target
//   - on success a RecordDelta describes the finalized record
//
// 2. Mutation Phase
//   - Ledger.applyRecordDelta inserts or replaces the record and updates the
//     parent index
//   - Ledger.persist saves the full collection
//
// Flow:
//
//	Ledger.Submit(fields, action)
//	  ↓
//	validator.validateRecord(ctx, fields, action) → ([]error, *RecordDelta)
//	  ├─ resolveTarget()        // edit/set/roll target must exist
//	  ├─ normalize()            // reference price, clearing, carry, cash price
//	  ├─ validatePresence()     // struct tags on submission
//	  ├─ validateQuantity()     // 1 <= q <= remaining, edits >= consumed
//	  └─ validateOrdering()     // roll months, action dates, eligible sources
//	  ↓
//	Ledger.applyRecordDelta(delta) → Ledger.persist()

// stateView is the read-only slice of the ledger the validator may use.
type stateView interface {
	Get(id sales.ID) (sales.Record, bool)
	ResolveOrigin(r sales.Record) sales.Record
	SourceOf(r sales.Record) (sales.Record, bool)
	Remaining(r sales.Record) int64
	Consumed(r sales.Record) int64
	Lineage(originID sales.ID) []sales.Record
	nextID() sales.ID
}

// kind selects the rule set applied to a submission.
type kind string

const (
	kindOrigin kind = "origin"
	kindSet    kind = "set"
	kindRoll   kind = "roll"
	kindChild  kind = "child"
)

// submission carries the normalized values checked by struct tags. Origin
// and Set hold the sale type only when the matching rule set applies, which
// lets required_if express "required for Cash origins" and similar rules.
type submission struct {
	Kind   kind           `json:"-"`
	Origin sales.SaleType `json:"-"`
	Set    sales.SaleType `json:"-"`

	SaleType            sales.SaleType `json:"sale_type" validate:"required_if=Kind origin,omitempty,oneof=Cash HTA Basis"`
	SaleDate            *sales.Date    `json:"sale_date" validate:"required"`
	FuturesMonth        *sales.Month   `json:"futures_month" validate:"required"`
	DeliveryMonth       *sales.Month   `json:"delivery_month" validate:"required_if=Origin Cash,required_if=Kind set"`
	DeliveryLocation    string         `json:"delivery_location" validate:"required_if=Origin Cash,required_if=Kind set"`
	FuturesPrice        *sales.Price   `json:"futures_price" validate:"required_if=Origin Cash,required_if=Origin HTA,required_if=Set Basis"`
	BasisPrice          *sales.Price   `json:"basis_price" validate:"required_if=Origin Cash,required_if=Origin Basis,required_if=Set HTA"`
	NearbyFuturesMonth  *sales.Month   `json:"nearby_futures_month" validate:"required_if=Origin HTA"`
	InitialBasisPrice   *sales.Price   `json:"initial_basis_price" validate:"required_if=Origin HTA"`
	HTAContractHolder   string         `json:"hta_contract_holder" validate:"required_if=Origin HTA"`
	BasisContractHolder string         `json:"basis_contract_holder" validate:"required_if=Origin Basis"`
	Carry               *sales.Price   `json:"carry" validate:"required_if=Kind roll"`
}

// fieldLabels are the human names used in validation messages.
var fieldLabels = map[string]string{
	"sale_type":             "Sales Type",
	"sale_date":             "Sale Date",
	"futures_month":         "Futures Month",
	"delivery_month":        "Delivery Month",
	"delivery_location":     "Delivery Location",
	"futures_price":         "Futures Price",
	"basis_price":           "Basis Price",
	"nearby_futures_month":  "Comp. Fut. Month",
	"initial_basis_price":   "Initial Basis Price",
	"hta_contract_holder":   "HTA Contract Holder",
	"basis_contract_holder": "Basis Contract Holder",
	"carry":                 "Carry",
	"quantity":              "Quantity",
}

var rules = newRules()

func newRules() *playground.Validate {
	v := playground.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type validator struct {
	state stateView
	now   time.Time
}

func newValidator(state stateView, now time.Time) *validator {
	return &validator{state: state, now: now}
}

// plan is the resolved context of one submission.
type plan struct {
	mode     Mode
	kind     kind
	target   sales.Record // edit target, or Set/Roll source
	origin   sales.Record
	source   *sales.Record // source of an edited Set/Roll child
	saleType sales.SaleType
}

// validateRecord checks a submission and returns the finalized record as a
// delta. A missing target is returned as the only error.
func (v *validator) validateRecord(ctx context.Context, fields Fields, ac ActionContext) ([]error, *RecordDelta) {
	timer := telemetry.StartTimer(ctx, fmt.Sprintf("ledger.validate %s", ac.Mode))
	defer timer.End()

	p, err := v.resolveTarget(fields, ac)
	if err != nil {
		return []error{err}, nil
	}

	rec := v.normalize(fields, ac, p)

	var errs []error
	errs = append(errs, v.validatePresence(rec, p)...)
	errs = append(errs, v.validateQuantity(rec, ac, p)...)
	errs = append(errs, v.validateOrdering(rec, p)...)
	if len(errs) > 0 {
		return errs, nil
	}

	return nil, &RecordDelta{
		Mode:     ac.Mode,
		Record:   rec,
		Replaces: ac.Mode == ModeEdit,
	}
}

func (v *validator) resolveTarget(fields Fields, ac ActionContext) (*plan, error) {
	p := &plan{mode: ac.Mode}

	switch ac.Mode {
	case ModeCreate:
		p.kind = kindOrigin
		p.saleType = fields.SaleType
		return p, nil
	case ModeEdit, ModeSet, ModeRoll:
	default:
		return nil, fmt.Errorf("unknown mode %d", ac.Mode)
	}

	target, ok := v.state.Get(ac.TargetID)
	if !ok {
		return nil, &NotFoundError{ID: ac.TargetID}
	}
	p.target = target
	p.origin = v.state.ResolveOrigin(target)
	p.saleType = p.origin.SaleType

	switch {
	case ac.Mode == ModeSet:
		p.kind = kindSet
	case ac.Mode == ModeRoll:
		p.kind = kindRoll
	case target.IsOrigin():
		p.kind = kindOrigin
		p.saleType = fields.SaleType
	default:
		switch {
		case target.Status.IsSetLike():
			p.kind = kindSet
		case target.Status == sales.StatusRolled:
			p.kind = kindRoll
		default:
			p.kind = kindChild
		}
		if src, ok := v.state.SourceOf(target); ok {
			p.source = &src
		}
	}
	return p, nil
}

// normalize builds the candidate record: inherited and preserved fields,
// the market reference price fallback, sale type clearing, the roll carry
// default and the derived cash price. Edits that change a price component
// but keep the stored cash price get it derived again.
func (v *validator) normalize(fields Fields, ac ActionContext, p *plan) sales.Record {
	rec := fields.record()
	rec.SaleType = p.saleType
	rec.UpdatedAt = v.now

	switch p.mode {
	case ModeCreate:
		rec.ID = v.state.nextID()
		rec.Status = sales.StatusCreated
	case ModeSet, ModeRoll:
		rec.ID = v.state.nextID()
		parent := p.origin.ID
		source := p.target.ID
		rec.ParentID = &parent
		rec.SourceID = &source
		rec.Quantity = sales.Bushels(ac.Quantity)
		rec.Status = sales.StatusSet
		if p.mode == ModeRoll {
			rec.Status = sales.StatusRolled
		}
	case ModeEdit:
		rec.ID = p.target.ID
		rec.ParentID = p.target.ParentID
		rec.SourceID = p.target.SourceID
		rec.Status = editStatus(p)
		if !p.target.IsOrigin() {
			rec.Quantity = p.target.Quantity
		}
	}

	if rec.FuturesPrice == nil && ac.ReferencePrice != nil {
		rec.FuturesPrice = sales.PriceOf(ac.ReferencePrice.Decimal)
	}

	clearForSaleType(&rec, p.kind == kindSet)

	if p.kind == kindRoll && rec.Carry == nil && rec.FuturesPrice != nil && p.origin.FuturesPrice != nil {
		rec.Carry = sales.PriceOf(rec.FuturesPrice.Sub(p.origin.FuturesPrice.Decimal))
	}

	if p.mode == ModeEdit && samePrice(rec.CashPrice, p.target.CashPrice) && pricingChanged(rec, p.target) {
		rec.CashPrice = nil
	}
	if rec.CashPrice == nil {
		rec.CashPrice = CashPrice(rec)
	}
	return rec
}

// pricingChanged reports whether any cash price component of rec differs
// from target.
func pricingChanged(rec, target sales.Record) bool {
	return !samePrice(rec.FuturesPrice, target.FuturesPrice) ||
		!samePrice(rec.BasisPrice, target.BasisPrice) ||
		!samePrice(rec.Carry, target.Carry) ||
		!samePrice(rec.ServiceFee, target.ServiceFee)
}

func samePrice(a, b *sales.Price) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b.Decimal)
}

// editStatus keeps origins Created (Cash origins become Updated) and keeps
// Set and Rolled children as they were.
func editStatus(p *plan) sales.Status {
	switch {
	case p.target.IsOrigin() && p.saleType != sales.Cash:
		return sales.StatusCreated
	case p.target.IsOrigin():
		return sales.StatusUpdated
	case p.kind == kindSet:
		return sales.StatusSet
	case p.kind == kindRoll:
		return sales.StatusRolled
	default:
		return sales.StatusUpdated
	}
}

// clearForSaleType drops the fields that do not apply to the record's sale
// type. Delivery months of HTA and Basis records are only kept on Set.
func clearForSaleType(rec *sales.Record, isSet bool) {
	switch rec.SaleType {
	case sales.Cash:
		rec.NearbyFuturesMonth = nil
		rec.NearbyFuturesPrice = nil
		rec.InitialBasisPrice = nil
		rec.HTAContractHolder = nil
		rec.BasisContractHolder = nil
		rec.Carry = nil
	case sales.HTA:
		rec.BasisContractHolder = nil
		if !isSet {
			rec.DeliveryMonth = nil
		}
	case sales.Basis:
		rec.NearbyFuturesMonth = nil
		rec.NearbyFuturesPrice = nil
		rec.InitialBasisPrice = nil
		rec.HTAContractHolder = nil
		if !isSet {
			rec.DeliveryMonth = nil
		}
	}
}

// CashPrice derives futures + basis + carry - service fee. It returns nil
// when none of the components is present.
func CashPrice(r sales.Record) *sales.Price {
	if r.FuturesPrice == nil && r.BasisPrice == nil && r.Carry == nil && r.ServiceFee == nil {
		return nil
	}
	total := decimal.Sum(r.FuturesPrice.Value(), r.BasisPrice.Value(), r.Carry.Value()).
		Sub(r.ServiceFee.Value())
	return sales.PriceOf(total.Round(sales.PricePlaces))
}

func (v *validator) validatePresence(rec sales.Record, p *plan) []error {
	sub := submission{
		Kind:                p.kind,
		SaleType:            rec.SaleType,
		SaleDate:            rec.SaleDate,
		FuturesMonth:        rec.FuturesMonth,
		DeliveryMonth:       rec.DeliveryMonth,
		DeliveryLocation:    trimmed(rec.DeliveryLocation),
		FuturesPrice:        rec.FuturesPrice,
		BasisPrice:          rec.BasisPrice,
		NearbyFuturesMonth:  rec.NearbyFuturesMonth,
		InitialBasisPrice:   rec.InitialBasisPrice,
		HTAContractHolder:   trimmed(rec.HTAContractHolder),
		BasisContractHolder: trimmed(rec.BasisContractHolder),
		Carry:               rec.Carry,
	}
	switch p.kind {
	case kindOrigin:
		sub.Origin = rec.SaleType
	case kindSet:
		sub.Set = rec.SaleType
	}

	err := rules.Struct(sub)
	if err == nil {
		return nil
	}

	var verrs playground.ValidationErrors
	if !stdErrors.As(err, &verrs) {
		return []error{err}
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fieldErrorFromRule(fe))
	}
	return errs
}

func fieldErrorFromRule(fe playground.FieldError) *FieldError {
	field := fe.Field()
	label := fieldLabels[field]
	if label == "" {
		label = field
	}
	switch fe.Tag() {
	case "oneof":
		return newFieldError(field, "%s must be one of %s.", label, strings.Join(strings.Fields(fe.Param()), ", "))
	default:
		return newFieldError(field, "%s is required.", label)
	}
}

func (v *validator) validateQuantity(rec sales.Record, ac ActionContext, p *plan) []error {
	switch p.mode {
	case ModeSet, ModeRoll:
		if ac.Quantity < 1 {
			return []error{newFieldError("quantity", "Quantity is required.")}
		}
		if remaining := v.state.Remaining(p.target); ac.Quantity > remaining {
			return []error{newFieldError("quantity", "Quantity cannot exceed the remaining %s bu.", commas(remaining))}
		}
	case ModeCreate:
		if rec.Quantity <= 0 {
			return []error{newFieldError("quantity", "Quantity is required.")}
		}
	case ModeEdit:
		if !p.target.IsOrigin() {
			return nil
		}
		if rec.Quantity <= 0 {
			return []error{newFieldError("quantity", "Quantity is required.")}
		}
		if consumed := v.state.Consumed(p.target); rec.Quantity.Int64() < consumed {
			return []error{newFieldError("quantity", "Quantity cannot be less than the %s bu. already Set or Rolled.", commas(consumed))}
		}
	}
	return nil
}

func (v *validator) validateOrdering(rec sales.Record, p *plan) []error {
	var errs []error

	if p.mode == ModeEdit && p.target.IsOrigin() && rec.SaleType != p.target.SaleType &&
		len(v.state.Lineage(p.target.ID)) > 1 {
		errs = append(errs, newFieldError("sale_type", "Sales Type cannot change once the sale has Set or Roll records."))
	}

	source := p.source
	if p.mode == ModeSet || p.mode == ModeRoll {
		source = &p.target
		if p.origin.SaleType == sales.Cash {
			errs = append(errs, newFieldError("source_id", "Cash sales cannot be Set or Rolled."))
		}
		if !p.target.IsOrigin() && p.target.Status.IsSetLike() {
			errs = append(errs, newFieldError("source_id", "Only the origin or a rolled record can be Set or Rolled."))
		}
	}
	if source == nil {
		return errs
	}

	switch p.kind {
	case kindRoll:
		if rec.FuturesMonth != nil && p.origin.FuturesMonth != nil && !rec.FuturesMonth.After(p.origin.FuturesMonth) {
			errs = append(errs, newFieldError("futures_month", "Futures Month must be later than the originating record Futures Month."))
		}
		if rec.FuturesMonth != nil && source.FuturesMonth != nil && rec.FuturesMonth.Before(source.FuturesMonth) {
			errs = append(errs, newFieldError("futures_month", "Futures Month cannot be earlier than the selected tracking record's futures month."))
		}
		if rec.SaleDate != nil && source.SaleDate != nil && rec.SaleDate.Before(source.SaleDate) {
			errs = append(errs, newFieldError("sale_date", "Roll Date must be on or after the tracking record Sale Date."))
		}
	case kindSet:
		if rec.SaleDate != nil && source.SaleDate != nil && rec.SaleDate.Before(source.SaleDate) {
			errs = append(errs, newFieldError("sale_date", "Delivery Date must be on or after the tracking record Sale Date."))
		}
	}
	return errs
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
