package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/salesledger/sales"
)

func TestSubmitCreate(t *testing.T) {
	tests := []struct {
		name      string
		fields    Fields
		wantCash  string
		checkRecd func(t *testing.T, r sales.Record)
	}{
		{
			name:     "hta origin",
			fields:   htaOrigin(),
			wantCash: "4.4000",
			checkRecd: func(t *testing.T, r sales.Record) {
				assert.Equal(t, sales.HTA, r.SaleType)
				assert.Equal(t, "ADM", *r.HTAContractHolder)
			},
		},
		{
			name:     "cash origin",
			fields:   cashOrigin(),
			wantCash: "4.5000",
			checkRecd: func(t *testing.T, r sales.Record) {
				assert.Equal(t, sales.Cash, r.SaleType)
				assert.Equal(t, "2025-04", r.DeliveryMonth.String())
			},
		},
		{
			name: "explicit cash price wins",
			fields: func() Fields {
				f := cashOrigin()
				f.CashPrice = sales.MustPrice("4.61")
				return f
			}(),
			wantCash: "4.6100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, st := newTestLedger(t)
			rec := mustSubmit(t, l, tt.fields, ActionContext{Mode: ModeCreate})

			assert.Equal(t, sales.ID(1), rec.ID)
			assert.True(t, rec.IsOrigin())
			assert.Zero(t, rec.SourceID)
			assert.Equal(t, sales.StatusCreated, rec.Status)
			assert.Equal(t, fixedNow, rec.UpdatedAt)
			assert.Equal(t, tt.wantCash, rec.CashPrice.String())
			if tt.checkRecd != nil {
				tt.checkRecd(t, rec)
			}

			assert.Equal(t, 1, st.saves)
			assert.Equal(t, 1, len(st.records))
		})
	}
}

func TestSubmitClearsFieldsBySaleType(t *testing.T) {
	t.Run("cash", func(t *testing.T) {
		f := cashOrigin()
		f.Carry = sales.MustPrice("0.10")
		f.NearbyFuturesMonth = sales.MustMonth("2025-05")
		f.InitialBasisPrice = sales.MustPrice("-0.30")
		f.HTAContractHolder = strp("ADM")
		f.BasisContractHolder = strp("CHS")

		l, _ := newTestLedger(t)
		rec := mustSubmit(t, l, f, ActionContext{Mode: ModeCreate})
		assert.Zero(t, rec.Carry)
		assert.Zero(t, rec.NearbyFuturesMonth)
		assert.Zero(t, rec.InitialBasisPrice)
		assert.Zero(t, rec.HTAContractHolder)
		assert.Zero(t, rec.BasisContractHolder)
		assert.Equal(t, "4.5000", rec.CashPrice.String())
	})

	t.Run("hta", func(t *testing.T) {
		f := htaOrigin()
		f.DeliveryMonth = sales.MustMonth("2025-04")
		f.BasisContractHolder = strp("CHS")

		l, _ := newTestLedger(t)
		rec := mustSubmit(t, l, f, ActionContext{Mode: ModeCreate})
		assert.Zero(t, rec.DeliveryMonth)
		assert.Zero(t, rec.BasisContractHolder)
		assert.NotZero(t, rec.NearbyFuturesMonth)
	})

	t.Run("basis", func(t *testing.T) {
		f := Fields{
			SaleType:            sales.Basis,
			SaleDate:            sales.MustDate("2025-01-10"),
			Quantity:            8000,
			FuturesMonth:        sales.MustMonth("2025-07"),
			NearbyFuturesMonth:  sales.MustMonth("2025-05"),
			DeliveryMonth:       sales.MustMonth("2025-08"),
			BasisPrice:          sales.MustPrice("-0.35"),
			InitialBasisPrice:   sales.MustPrice("-0.40"),
			HTAContractHolder:   strp("ADM"),
			BasisContractHolder: strp("CHS"),
		}

		l, _ := newTestLedger(t)
		rec := mustSubmit(t, l, f, ActionContext{Mode: ModeCreate})
		assert.Zero(t, rec.NearbyFuturesMonth)
		assert.Zero(t, rec.InitialBasisPrice)
		assert.Zero(t, rec.HTAContractHolder)
		assert.Zero(t, rec.DeliveryMonth)
		assert.Equal(t, "CHS", *rec.BasisContractHolder)
		assert.Equal(t, "-0.3500", rec.CashPrice.String())
	})
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name       string
		fields     Fields
		wantFields []string
	}{
		{
			name:       "missing everything",
			fields:     Fields{},
			wantFields: []string{"sale_type", "sale_date", "futures_month", "quantity"},
		},
		{
			name: "cash without pricing and delivery",
			fields: Fields{
				SaleType:     sales.Cash,
				SaleDate:     sales.MustDate("2025-01-10"),
				Quantity:     100,
				FuturesMonth: sales.MustMonth("2025-03"),
			},
			wantFields: []string{"delivery_month", "delivery_location", "futures_price", "basis_price"},
		},
		{
			name: "hta without contract details",
			fields: Fields{
				SaleType:     sales.HTA,
				SaleDate:     sales.MustDate("2025-01-10"),
				Quantity:     100,
				FuturesMonth: sales.MustMonth("2025-03"),
				FuturesPrice: sales.MustPrice("4.40"),
			},
			wantFields: []string{"nearby_futures_month", "initial_basis_price", "hta_contract_holder"},
		},
		{
			name: "basis without basis price and holder",
			fields: Fields{
				SaleType:            sales.Basis,
				SaleDate:            sales.MustDate("2025-01-10"),
				Quantity:            100,
				FuturesMonth:        sales.MustMonth("2025-03"),
				BasisContractHolder: strp("   "),
			},
			wantFields: []string{"basis_price", "basis_contract_holder"},
		},
		{
			name: "unknown sale type",
			fields: func() Fields {
				f := htaOrigin()
				f.SaleType = "Futures"
				return f
			}(),
			wantFields: []string{"sale_type"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, st := newTestLedger(t)
			_, err := l.Submit(context.Background(), tt.fields, ActionContext{Mode: ModeCreate})
			assert.Equal(t, tt.wantFields, fieldNames(t, err))
			assert.Equal(t, 0, l.Len())
			assert.Equal(t, 0, st.saves)
		})
	}
}

func TestSubmitSet(t *testing.T) {
	l, _ := newTestLedger(t)
	origin := mustSubmit(t, l, htaOrigin(), ActionContext{Mode: ModeCreate})

	fields := setFields("2025-02-01")
	fields.SaleType = sales.Cash // ignored, the origin decides
	rec := mustSubmit(t, l, fields, ActionContext{Mode: ModeSet, TargetID: origin.ID, Quantity: 4000})

	assert.Equal(t, sales.ID(2), rec.ID)
	assert.Equal(t, origin.ID, *rec.ParentID)
	assert.Equal(t, origin.ID, *rec.SourceID)
	assert.Equal(t, sales.StatusSet, rec.Status)
	assert.Equal(t, sales.Bushels(4000), rec.Quantity)
	assert.Equal(t, sales.HTA, rec.SaleType)
	assert.Equal(t, "2025-04", rec.DeliveryMonth.String())
	assert.Equal(t, "4.2000", rec.CashPrice.String())
}

func TestSubmitRoll(t *testing.T) {
	tests := []struct {
		name      string
		fields    Fields
		wantCarry string
	}{
		{
			name:      "carry defaults to the futures spread",
			fields:    rollFields("2025-02-01", "2025-05", "4.45"),
			wantCarry: "0.0500",
		},
		{
			name: "explicit carry is kept",
			fields: func() Fields {
				f := rollFields("2025-02-01", "2025-05", "4.45")
				f.Carry = sales.MustPrice("0.08")
				return f
			}(),
			wantCarry: "0.0800",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newTestLedger(t)
			origin := mustSubmit(t, l, htaOrigin(), ActionContext{Mode: ModeCreate})
			rec := mustSubmit(t, l, tt.fields, ActionContext{Mode: ModeRoll, TargetID: origin.ID, Quantity: 10000})

			assert.Equal(t, sales.StatusRolled, rec.Status)
			assert.Equal(t, origin.ID, *rec.SourceID)
			assert.Equal(t, tt.wantCarry, rec.Carry.String())
			assert.Zero(t, rec.DeliveryMonth)
		})
	}
}

func TestSubmitUsesReferencePrice(t *testing.T) {
	l, _ := newTestLedger(t)
	origin := mustSubmit(t, l, htaOrigin(), ActionContext{Mode: ModeCreate})

	fields := rollFields("2025-02-01", "2025-05", "0")
	fields.FuturesPrice = nil
	rec := mustSubmit(t, l, fields, ActionContext{
		Mode:           ModeRoll,
		TargetID:       origin.ID,
		Quantity:       5000,
		ReferencePrice: sales.MustPrice("4.52"),
	})

	assert.Equal(t, "4.5200", rec.FuturesPrice.String())
	assert.Equal(t, "0.1200", rec.Carry.String())
}

func TestSubmitActionRules(t *testing.T) {
	type setup struct {
		l      *Ledger
		origin sales.Record
		set    sales.Record
		roll   sales.Record
		cash   sales.Record
	}

	newSetup := func(t *testing.T) (setup, *memStore) {
		l, st := newTestLedger(t)
		s := setup{l: l}
		s.origin = mustSubmit(t, l, htaOrigin(), ActionContext{Mode: ModeCreate})
		s.set = mustSubmit(t, l, setFields("2025-02-01"), ActionContext{Mode: ModeSet, TargetID: s.origin.ID, Quantity: 4000})
		s.roll = mustSubmit(t, l, rollFields("2025-02-01", "2025-05", "4.45"), ActionContext{Mode: ModeRoll, TargetID: s.origin.ID, Quantity: 3000})
		s.cash = mustSubmit(t, l, cashOrigin(), ActionContext{Mode: ModeCreate})
		return s, st
	}

	tests := []struct {
		name       string
		fields     Fields
		action     func(s setup) ActionContext
		wantFields []string
	}{
		{
			name:   "quantity above remaining",
			fields: setFields("2025-02-01"),
			action: func(s setup) ActionContext {
				return ActionContext{Mode: ModeSet, TargetID: s.origin.ID, Quantity: 3001}
			},
			wantFields: []string{"quantity"},
		},
		{
			name:   "zero quantity",
			fields: setFields("2025-02-01"),
			action: func(s setup) ActionContext {
				return ActionContext{Mode: ModeSet, TargetID: s.origin.ID, Quantity: 0}
			},
			wantFields: []string{"quantity"},
		},
		{
			name:   "set missing delivery and basis",
			fields: rollFields("2025-02-01", "2025-03", "4.40"),
			action: func(s setup) ActionContext {
				return ActionContext{Mode: ModeSet, TargetID: s.origin.ID, Quantity: 100}
			},
			wantFields: []string{"delivery_month", "delivery_location", "basis_price"},
		},
		{
			name:   "set dated before its source",
			fields: setFields("2025-01-01"),
			action: func(s setup) ActionContext {
				return ActionContext{Mode: ModeSet, TargetID: s.origin.ID, Quantity: 100}
			},
			wantFields: []string{"sale_date"},
		},
		{
			name:   "roll into the origin month",
			fields: rollFields("2025-02-01", "2025-03", "4.45"),
			action: func(s setup) ActionContext {
				return ActionContext{Mode: ModeRoll, TargetID: s.origin.ID, Quantity: 100}
			},
			wantFields: []string{"futures_month"},
		},
		{
			name:   "roll before the source month",
			fields: rollFields("2025-03-01", "2025-04", "4.45"),
			action: func(s setup) ActionContext {
				return ActionContext{Mode: ModeRoll, TargetID: s.roll.ID, Quantity: 100}
			},
			wantFields: []string{"futures_month"},
		},
		{
			name:   "roll dated before its source",
			fields: rollFields("2025-01-20", "2025-07", "4.50"),
			action: func(s setup) ActionContext {
				return ActionContext{Mode: ModeRoll, TargetID: s.roll.ID, Quantity: 100}
			},
			wantFields: []string{"sale_date"},
		},
		{
			name:   "set record cannot be a source",
			fields: setFields("2025-03-01"),
			action: func(s setup) ActionContext {
				return ActionContext{Mode: ModeSet, TargetID: s.set.ID, Quantity: 100}
			},
			wantFields: []string{"source_id"},
		},
		{
			name:   "cash sales cannot be set",
			fields: setFields("2025-03-01"),
			action: func(s setup) ActionContext {
				return ActionContext{Mode: ModeSet, TargetID: s.cash.ID, Quantity: 100}
			},
			wantFields: []string{"source_id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, st := newSetup(t)
			before := s.l.Len()
			saves := st.saves

			_, err := s.l.Submit(context.Background(), tt.fields, tt.action(s))
			assert.Equal(t, tt.wantFields, fieldNames(t, err))
			assert.Equal(t, before, s.l.Len())
			assert.Equal(t, saves, st.saves)
		})
	}
}

func TestSubmitScenarioD(t *testing.T) {
	l, st := newTestLedger(t)
	origin := mustSubmit(t, l, htaOrigin(), ActionContext{Mode: ModeCreate})
	snapshot := st.records

	_, err := l.Submit(context.Background(), setFields("2025-02-01"),
		ActionContext{Mode: ModeSet, TargetID: origin.ID, Quantity: 10001})

	var verr *ValidationErrors
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "quantity: Quantity cannot exceed the remaining 10,000 bu.", verr.Error())
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 1, st.saves)
	assert.Equal(t, snapshot, st.records)
}

func TestSubmitEdit(t *testing.T) {
	t.Run("origin keeps id and created status", func(t *testing.T) {
		l, _ := newTestLedger(t)
		origin := mustSubmit(t, l, htaOrigin(), ActionContext{Mode: ModeCreate})

		f := FieldsOf(origin)
		f.Quantity = 12000
		f.Comments = strp("bumped")
		rec := mustSubmit(t, l, f, ActionContext{Mode: ModeEdit, TargetID: origin.ID})

		assert.Equal(t, origin.ID, rec.ID)
		assert.Equal(t, sales.StatusCreated, rec.Status)
		assert.Equal(t, sales.Bushels(12000), rec.Quantity)
		assert.Equal(t, 1, l.Len())
		got, _ := l.Get(origin.ID)
		assert.Equal(t, "bumped", *got.Comments)
	})

	t.Run("cash origin becomes updated", func(t *testing.T) {
		l, _ := newTestLedger(t)
		origin := mustSubmit(t, l, cashOrigin(), ActionContext{Mode: ModeCreate})
		rec := mustSubmit(t, l, FieldsOf(origin), ActionContext{Mode: ModeEdit, TargetID: origin.ID})
		assert.Equal(t, sales.StatusUpdated, rec.Status)
	})

	t.Run("set child keeps links and quantity", func(t *testing.T) {
		l, _ := newTestLedger(t)
		origin := mustSubmit(t, l, htaOrigin(), ActionContext{Mode: ModeCreate})
		set := mustSubmit(t, l, setFields("2025-02-01"), ActionContext{Mode: ModeSet, TargetID: origin.ID, Quantity: 4000})

		f := FieldsOf(set)
		f.Quantity = 1
		f.BasisPrice = sales.MustPrice("-0.10")
		f.CashPrice = nil
		rec := mustSubmit(t, l, f, ActionContext{Mode: ModeEdit, TargetID: set.ID})

		assert.Equal(t, set.ID, rec.ID)
		assert.Equal(t, sales.StatusSet, rec.Status)
		assert.Equal(t, origin.ID, *rec.ParentID)
		assert.Equal(t, origin.ID, *rec.SourceID)
		assert.Equal(t, sales.Bushels(4000), rec.Quantity)
		assert.Equal(t, "4.3000", rec.CashPrice.String())

		origin, _ = l.Get(origin.ID)
		assert.Equal(t, int64(6000), l.Remaining(origin))
	})

	t.Run("origin quantity below consumed", func(t *testing.T) {
		l, _ := newTestLedger(t)
		origin := mustSubmit(t, l, htaOrigin(), ActionContext{Mode: ModeCreate})
		mustSubmit(t, l, setFields("2025-02-01"), ActionContext{Mode: ModeSet, TargetID: origin.ID, Quantity: 4000})

		f := FieldsOf(origin)
		f.Quantity = 3999
		_, err := l.Submit(context.Background(), f, ActionContext{Mode: ModeEdit, TargetID: origin.ID})
		assert.Equal(t, []string{"quantity"}, fieldNames(t, err))

		got, _ := l.Get(origin.ID)
		assert.Equal(t, sales.Bushels(10000), got.Quantity)
	})

	t.Run("sale type is fixed once the lineage has children", func(t *testing.T) {
		l, _ := newTestLedger(t)
		origin := mustSubmit(t, l, htaOrigin(), ActionContext{Mode: ModeCreate})
		mustSubmit(t, l, setFields("2025-02-01"), ActionContext{Mode: ModeSet, TargetID: origin.ID, Quantity: 4000})

		f := FieldsOf(origin)
		f.SaleType = sales.Basis
		f.BasisPrice = sales.MustPrice("-0.30")
		f.BasisContractHolder = strp("CHS")
		_, err := l.Submit(context.Background(), f, ActionContext{Mode: ModeEdit, TargetID: origin.ID})
		assert.Equal(t, []string{"sale_type"}, fieldNames(t, err))
	})

	t.Run("missing target", func(t *testing.T) {
		l, st := newTestLedger(t)
		_, err := l.Submit(context.Background(), htaOrigin(), ActionContext{Mode: ModeEdit, TargetID: 42})

		var nf *NotFoundError
		assert.True(t, errors.As(err, &nf))
		assert.Equal(t, sales.ID(42), nf.GetID())
		assert.Equal(t, 0, st.saves)
	})
}

func TestEditRederivesCashPrice(t *testing.T) {
	tests := []struct {
		name   string
		change func(f *Fields)
		want   string
	}{
		{
			name:   "basis change",
			change: func(f *Fields) { f.BasisPrice = sales.MustPrice("-0.10") },
			want:   "4.3000",
		},
		{
			name:   "futures change",
			change: func(f *Fields) { f.FuturesPrice = sales.MustPrice("4.50") },
			want:   "4.3000",
		},
		{
			name:   "service fee added",
			change: func(f *Fields) { f.ServiceFee = sales.MustPrice("0.05") },
			want:   "4.1500",
		},
		{
			name:   "no pricing change",
			change: func(f *Fields) { f.DeliveryLocation = strp("River Terminal") },
			want:   "4.2000",
		},
		{
			name: "explicit cash price wins",
			change: func(f *Fields) {
				f.BasisPrice = sales.MustPrice("-0.10")
				f.CashPrice = sales.MustPrice("4.50")
			},
			want: "4.5000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newTestLedger(t)
			origin := mustSubmit(t, l, htaOrigin(), ActionContext{Mode: ModeCreate})
			set := mustSubmit(t, l, setFields("2025-02-01"), ActionContext{Mode: ModeSet, TargetID: origin.ID, Quantity: 4000})
			assert.Equal(t, "4.2000", set.CashPrice.String())

			f := FieldsOf(set)
			tt.change(&f)
			rec := mustSubmit(t, l, f, ActionContext{Mode: ModeEdit, TargetID: set.ID})
			assert.Equal(t, tt.want, rec.CashPrice.String())
		})
	}
}

func TestSubmitPersistFailure(t *testing.T) {
	l, st := newTestLedger(t)
	st.saveErr = errors.New("read-only file system")

	rec, err := l.Submit(context.Background(), htaOrigin(), ActionContext{Mode: ModeCreate})

	var perr *PersistError
	assert.True(t, errors.As(err, &perr))
	assert.EqualError(t, errors.Unwrap(perr), "read-only file system")
	assert.Equal(t, sales.ID(1), rec.ID)
	assert.Equal(t, 1, l.Len())
}

func TestBuildDoesNotApply(t *testing.T) {
	l, st := newTestLedger(t)
	delta, err := l.Build(context.Background(), htaOrigin(), ActionContext{Mode: ModeCreate})
	assert.NoError(t, err)
	assert.False(t, delta.Replaces)
	assert.Equal(t, "insert create #1 HTA Created 10000 bu.", delta.String())
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 0, st.saves)
}

func TestDelete(t *testing.T) {
	build := func(t *testing.T) (*Ledger, *memStore) {
		l, st := newTestLedger(t)
		origin := mustSubmit(t, l, htaOrigin(), ActionContext{Mode: ModeCreate})
		roll := mustSubmit(t, l, rollFields("2025-02-01", "2025-05", "4.45"), ActionContext{Mode: ModeRoll, TargetID: origin.ID, Quantity: 6000})
		mustSubmit(t, l, setFields("2025-03-01"), ActionContext{Mode: ModeSet, TargetID: roll.ID, Quantity: 2000})
		mustSubmit(t, l, cashOrigin(), ActionContext{Mode: ModeCreate})
		return l, st
	}

	tests := []struct {
		name      string
		id        sales.ID
		wantIDs   []sales.ID
		wantLeft  []sales.ID
		wantError bool
	}{
		{name: "origin cascades to the lineage", id: 1, wantIDs: []sales.ID{1, 2, 3}, wantLeft: []sales.ID{4}},
		{name: "non-origin removes only itself", id: 2, wantIDs: []sales.ID{2}, wantLeft: []sales.ID{1, 3, 4}},
		{name: "unrelated origin", id: 4, wantIDs: []sales.ID{4}, wantLeft: []sales.ID{1, 2, 3}},
		{name: "missing id", id: 42, wantLeft: []sales.ID{1, 2, 3, 4}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, st := build(t)
			saves := st.saves

			planned, planErr := l.PlanDelete(tt.id)
			ids, err := l.Delete(context.Background(), tt.id)

			if tt.wantError {
				var nf *NotFoundError
				assert.True(t, errors.As(err, &nf))
				assert.True(t, errors.As(planErr, &nf))
				assert.Equal(t, saves, st.saves)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantIDs, ids)
				assert.Equal(t, tt.wantIDs, planned)
				assert.Equal(t, saves+1, st.saves)
			}

			var left []sales.ID
			for _, r := range l.Records() {
				left = append(left, r.ID)
			}
			assert.Equal(t, tt.wantLeft, left)
		})
	}
}

func TestIDsAreNotReused(t *testing.T) {
	l, _ := newTestLedger(t)
	mustSubmit(t, l, htaOrigin(), ActionContext{Mode: ModeCreate})
	last := mustSubmit(t, l, cashOrigin(), ActionContext{Mode: ModeCreate})

	_, err := l.Delete(context.Background(), last.ID)
	assert.NoError(t, err)

	rec := mustSubmit(t, l, cashOrigin(), ActionContext{Mode: ModeCreate})
	assert.Equal(t, sales.ID(3), rec.ID)
}

func TestActionDefaults(t *testing.T) {
	l, _ := newTestLedger(t)
	origin := mustSubmit(t, l, htaOrigin(), ActionContext{Mode: ModeCreate})
	f := setFields("2025-02-01")
	f.ServiceFee = sales.MustPrice("0.02")
	f.MerchGain = sales.MustPrice("0.03")
	mustSubmit(t, l, f, ActionContext{Mode: ModeSet, TargetID: origin.ID, Quantity: 4000})

	origin, _ = l.Get(origin.ID)

	set := l.ActionDefaults(origin, ModeSet)
	assert.Equal(t, sales.HTA, set.SaleType)
	assert.Equal(t, sales.Bushels(6000), set.Quantity)
	assert.Equal(t, "4.4000", set.FuturesPrice.String())
	assert.Equal(t, "ADM", *set.HTAContractHolder)
	assert.Zero(t, set.ServiceFee)
	assert.Zero(t, set.MerchGain)
	assert.Zero(t, set.CashPrice)
	assert.Zero(t, set.SaleDate)

	roll := l.ActionDefaults(origin, ModeRoll)
	assert.Zero(t, roll.FuturesPrice)
	assert.Zero(t, roll.Carry)
	assert.Zero(t, roll.SaleDate)
}

func TestSetFromRollDefaultsCountsCarryOnce(t *testing.T) {
	l, _ := newTestLedger(t)
	origin := mustSubmit(t, l, htaOrigin(), ActionContext{Mode: ModeCreate})
	roll := mustSubmit(t, l, rollFields("2025-02-01", "2025-05", "4.45"),
		ActionContext{Mode: ModeRoll, TargetID: origin.ID, Quantity: 10000})
	assert.Equal(t, "0.0500", roll.Carry.String())

	f := l.ActionDefaults(roll, ModeSet)
	assert.Zero(t, f.Carry)
	assert.Zero(t, f.SaleDate)
	assert.Equal(t, "4.4500", f.FuturesPrice.String())

	f.SaleDate = sales.MustDate("2025-03-01")
	f.DeliveryMonth = sales.MustMonth("2025-06")
	f.DeliveryLocation = strp("Elevator")
	f.BasisPrice = sales.MustPrice("-0.20")
	set := mustSubmit(t, l, f, ActionContext{Mode: ModeSet, TargetID: roll.ID, Quantity: f.Quantity.Int64()})
	assert.Zero(t, set.Carry)
	assert.Equal(t, "4.2500", set.CashPrice.String())

	v, err := l.Valuate(context.Background(), origin.ID)
	assert.NoError(t, err)
	var carries []sales.ID
	for _, d := range v.MerchValue.Drivers {
		if d.Name == DriverCarry {
			carries = append(carries, d.RecordID)
		}
	}
	assert.Equal(t, []sales.ID{roll.ID}, carries)
	assert.Equal(t, "0.1500", v.MerchValue.Total.String())
}
