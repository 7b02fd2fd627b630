package cli

import (
	"fmt"
	"strings"

	"github.com/robinvdvleuten/salesledger/ledger"
	"github.com/robinvdvleuten/salesledger/sales"
)

// FieldFlags are the record fields accepted by add, set, roll and edit.
// An empty flag keeps the prefilled value; "-" clears it.
type FieldFlags struct {
	Type          string `name:"type" help:"Sale type (Cash, HTA, Basis)."`
	Date          string `help:"Sale date (YYYY-MM-DD)."`
	Quantity      string `help:"Quantity in bushels."`
	FuturesMonth  string `help:"Futures month (YYYY-MM)."`
	NearbyMonth   string `help:"Comparison (nearby) futures month (YYYY-MM)."`
	DeliveryMonth string `help:"Delivery month (YYYY-MM)."`
	FuturesPrice  string `help:"Futures price. Looked up on the futures board when omitted."`
	Basis         string `help:"Basis price."`
	InitialBasis  string `help:"Initial basis price."`
	ServiceFee    string `help:"Service fee per bushel."`
	Cash          string `help:"Cash price. Derived from futures, basis, carry and fee when omitted."`
	Carry         string `help:"Roll carry. Derived from the futures spread when omitted."`
	MerchGain     string `help:"Merch gain per bushel."`
	Location      string `help:"Delivery location."`
	HTAHolder     string `name:"hta-holder" help:"HTA contract holder."`
	BasisHolder   string `help:"Basis contract holder."`
	Comments      string `help:"Free-form comments."`
}

const clearValue = "-"

// apply overlays the provided flags onto f. Unparsable values are reported
// together as validation errors.
func (ff FieldFlags) apply(f *ledger.Fields) error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, &ledger.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if v := strings.TrimSpace(ff.Type); v != "" {
		t, err := sales.ParseSaleType(v)
		if err != nil {
			fail("sale_type", "Sales Type must be one of Cash, HTA, Basis.")
		}
		f.SaleType = t
	}

	if v := strings.TrimSpace(ff.Quantity); v != "" {
		f.Quantity = sales.ParseBushels(v)
	}

	date := func(field, raw string, dst **sales.Date) {
		switch raw = strings.TrimSpace(raw); raw {
		case "":
		case clearValue:
			*dst = nil
		default:
			d, err := sales.NewDate(raw)
			if err != nil {
				fail(field, "%q is not a valid date.", raw)
				return
			}
			*dst = d
		}
	}
	month := func(field, raw string, dst **sales.Month) {
		switch raw = strings.TrimSpace(raw); raw {
		case "":
		case clearValue:
			*dst = nil
		default:
			m, err := sales.NewMonth(raw)
			if err != nil {
				fail(field, "%q is not a valid month.", raw)
				return
			}
			*dst = m
		}
	}
	price := func(field, raw string, dst **sales.Price) {
		switch raw = strings.TrimSpace(raw); raw {
		case "":
		case clearValue:
			*dst = nil
		default:
			p, err := sales.NewPrice(raw)
			if err != nil {
				fail(field, "%q is not a valid price.", raw)
				return
			}
			*dst = p
		}
	}
	text := func(raw string, dst **string) {
		switch raw {
		case "":
		case clearValue:
			*dst = nil
		default:
			s := raw
			*dst = &s
		}
	}

	date("sale_date", ff.Date, &f.SaleDate)
	month("futures_month", ff.FuturesMonth, &f.FuturesMonth)
	month("nearby_futures_month", ff.NearbyMonth, &f.NearbyFuturesMonth)
	month("delivery_month", ff.DeliveryMonth, &f.DeliveryMonth)
	price("futures_price", ff.FuturesPrice, &f.FuturesPrice)
	price("basis_price", ff.Basis, &f.BasisPrice)
	price("initial_basis_price", ff.InitialBasis, &f.InitialBasisPrice)
	price("service_fee", ff.ServiceFee, &f.ServiceFee)
	price("cash_price", ff.Cash, &f.CashPrice)
	price("carry", ff.Carry, &f.Carry)
	price("merch_gain", ff.MerchGain, &f.MerchGain)
	text(ff.Location, &f.DeliveryLocation)
	text(ff.HTAHolder, &f.HTAContractHolder)
	text(ff.BasisHolder, &f.BasisContractHolder)
	text(ff.Comments, &f.Comments)

	if len(errs) > 0 {
		return &ledger.ValidationErrors{Errors: errs}
	}
	return nil
}

// priceChanged reports whether the futures price was given on the command
// line, in which case no market reference price is looked up.
func (ff FieldFlags) priceChanged() bool {
	return strings.TrimSpace(ff.FuturesPrice) != ""
}
