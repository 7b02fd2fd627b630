// Package sales defines the record model of the grain sales ledger: sale
// records, their identifiers, sale types and statuses, and the month, date,
// price and quantity value types they are built from.
//
// A lineage is an origin record (no parent) plus every record whose
// ParentID points at it. Set and Roll records draw their quantity from a
// source record, which is either the origin or an earlier Roll.
package sales

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ID identifies a sale record. IDs are positive and assigned as max+1.
type ID int64

// String returns the decimal representation of the id.
func (id ID) String() string {
	return fmt.Sprintf("%d", int64(id))
}

// SaleType is the contract type of a lineage. The origin's sale type is
// authoritative for every record in its lineage.
type SaleType string

const (
	Cash  SaleType = "Cash"
	HTA   SaleType = "HTA"
	Basis SaleType = "Basis"
)

// SaleTypes lists the known sale types in display order.
var SaleTypes = []SaleType{Cash, HTA, Basis}

// Valid reports whether t is a known sale type.
func (t SaleType) Valid() bool {
	switch t {
	case Cash, HTA, Basis:
		return true
	}
	return false
}

// ParseSaleType parses a sale type name, accepting any letter case.
func ParseSaleType(s string) (SaleType, error) {
	for _, t := range SaleTypes {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown sale type %q", s)
}

// Status is the business action that produced a record.
type Status string

const (
	StatusCreated Status = "Created"
	StatusUpdated Status = "Updated"
	StatusSet     Status = "Set"
	StatusRolled  Status = "Rolled"
	// StatusPending only appears in legacy data.
	StatusPending Status = "Pending"
)

// IsSetLike reports whether the status counts as a priced Set position.
// Updated is stored by older editors for edited Set records and is treated
// as Set everywhere.
func (s Status) IsSetLike() bool {
	return s == StatusSet || s == StatusUpdated
}

// Consumes reports whether a record with this status draws quantity from
// its source. Only Set and Rolled records do; legacy Updated rows are priced
// but not counted against the source.
func (s Status) Consumes() bool {
	return s == StatusSet || s == StatusRolled
}

// Action is the display label derived for a record from its status and its
// position in the lineage.
type Action string

const (
	ActionCreated Action = "Created"
	ActionSet     Action = "Set"
	ActionRolled  Action = "Rolled"
	ActionPending Action = "Pending"
)

// Record is a single sale record. Nullable fields are pointers; a nil
// pointer means the value was never provided.
type Record struct {
	ID       ID  `json:"id"`
	ParentID *ID `json:"parent_id"`
	SourceID *ID `json:"source_id"`

	SaleDate *Date    `json:"sale_date"`
	SaleType SaleType `json:"sale_type"`
	Status   Status   `json:"status"`
	Quantity Bushels  `json:"quantity"`

	FuturesMonth       *Month `json:"futures_month"`
	NearbyFuturesMonth *Month `json:"nearby_futures_month"`
	DeliveryMonth      *Month `json:"delivery_month"`

	FuturesPrice       *Price `json:"futures_price"`
	BasisPrice         *Price `json:"basis_price"`
	InitialBasisPrice  *Price `json:"initial_basis_price"`
	ServiceFee         *Price `json:"service_fee"`
	CashPrice          *Price `json:"cash_price"`
	Carry              *Price `json:"carry"`
	MerchGain          *Price `json:"merch_gain"`
	NearbyFuturesPrice *Price `json:"nearby_futures_price"`

	DeliveryLocation    *string `json:"delivery_location"`
	HTAContractHolder   *string `json:"hta_contract_holder"`
	BasisContractHolder *string `json:"basis_contract_holder"`
	Comments            *string `json:"comments"`

	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// IsOrigin reports whether r is the top-level record of its lineage.
func (r Record) IsOrigin() bool {
	return r.ParentID == nil
}

// Source returns the id of the record r's quantity was drawn from. Records
// without a usable source_id (nil or 0) fall back to their parent id.
func (r Record) Source() (ID, bool) {
	if r.SourceID != nil && *r.SourceID != 0 {
		return *r.SourceID, true
	}
	if r.ParentID != nil {
		return *r.ParentID, true
	}
	return 0, false
}

// Clone returns a deep copy of r so callers can mutate it freely.
func (r Record) Clone() Record {
	c := r
	c.ParentID = cloneID(r.ParentID)
	c.SourceID = cloneID(r.SourceID)
	c.SaleDate = clonePtr(r.SaleDate)
	c.FuturesMonth = clonePtr(r.FuturesMonth)
	c.NearbyFuturesMonth = clonePtr(r.NearbyFuturesMonth)
	c.DeliveryMonth = clonePtr(r.DeliveryMonth)
	c.FuturesPrice = clonePtr(r.FuturesPrice)
	c.BasisPrice = clonePtr(r.BasisPrice)
	c.InitialBasisPrice = clonePtr(r.InitialBasisPrice)
	c.ServiceFee = clonePtr(r.ServiceFee)
	c.CashPrice = clonePtr(r.CashPrice)
	c.Carry = clonePtr(r.Carry)
	c.MerchGain = clonePtr(r.MerchGain)
	c.NearbyFuturesPrice = clonePtr(r.NearbyFuturesPrice)
	c.DeliveryLocation = clonePtr(r.DeliveryLocation)
	c.HTAContractHolder = clonePtr(r.HTAContractHolder)
	c.BasisContractHolder = clonePtr(r.BasisContractHolder)
	c.Comments = clonePtr(r.Comments)
	return c
}

// UnmarshalJSON decodes a stored record. Nullable fields holding empty or
// unparseable values decode as nil instead of failing the whole record.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	aux := struct {
		*plain
		SaleDate           optional[Date]      `json:"sale_date"`
		FuturesMonth       optional[Month]     `json:"futures_month"`
		NearbyFuturesMonth optional[Month]     `json:"nearby_futures_month"`
		DeliveryMonth      optional[Month]     `json:"delivery_month"`
		FuturesPrice       optional[Price]     `json:"futures_price"`
		BasisPrice         optional[Price]     `json:"basis_price"`
		InitialBasisPrice  optional[Price]     `json:"initial_basis_price"`
		ServiceFee         optional[Price]     `json:"service_fee"`
		CashPrice          optional[Price]     `json:"cash_price"`
		Carry              optional[Price]     `json:"carry"`
		MerchGain          optional[Price]     `json:"merch_gain"`
		NearbyFuturesPrice optional[Price]     `json:"nearby_futures_price"`
		UpdatedAt          optional[time.Time] `json:"updated_at"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.SaleDate = aux.SaleDate.v
	r.FuturesMonth = aux.FuturesMonth.v
	r.NearbyFuturesMonth = aux.NearbyFuturesMonth.v
	r.DeliveryMonth = aux.DeliveryMonth.v
	r.FuturesPrice = aux.FuturesPrice.v
	r.BasisPrice = aux.BasisPrice.v
	r.InitialBasisPrice = aux.InitialBasisPrice.v
	r.ServiceFee = aux.ServiceFee.v
	r.CashPrice = aux.CashPrice.v
	r.Carry = aux.Carry.v
	r.MerchGain = aux.MerchGain.v
	r.NearbyFuturesPrice = aux.NearbyFuturesPrice.v
	r.UpdatedAt = time.Time{}
	if aux.UpdatedAt.v != nil {
		r.UpdatedAt = *aux.UpdatedAt.v
	}
	return nil
}

// optional decodes a nullable value, leaving it nil when the stored value
// is null, empty or malformed.
type optional[T any] struct {
	v *T
}

func (o *optional[T]) UnmarshalJSON(data []byte) error {
	if isEmptyJSON(data) {
		return nil
	}
	v := new(T)
	u, ok := any(v).(json.Unmarshaler)
	if !ok {
		return fmt.Errorf("%T does not implement json.Unmarshaler", v)
	}
	if err := u.UnmarshalJSON(data); err != nil {
		return nil
	}
	o.v = v
	return nil
}

func isEmptyJSON(data []byte) bool {
	s := string(data)
	return s == "null" || s == `""` || s == ""
}

func cloneID(id *ID) *ID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
