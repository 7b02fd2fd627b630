package sales

// RecordOption is a functional option for configuring a Record.
type RecordOption func(*Record)

// NewRecord creates a record with the given id, sale type and quantity.
// Additional fields can be set using functional options.
//
// Example:
//
//	origin := sales.NewRecord(1, sales.HTA, 10000,
//	    sales.WithSaleDate("2025-01-10"),
//	    sales.WithFuturesMonth("2025-03"),
//	    sales.WithInitialBasisPrice("-0.35"),
//	)
func NewRecord(id ID, saleType SaleType, quantity Bushels, opts ...RecordOption) Record {
	r := Record{
		ID:       id,
		SaleType: saleType,
		Status:   StatusCreated,
		Quantity: quantity,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// WithParent sets the origin id.
func WithParent(id ID) RecordOption {
	return func(r *Record) {
		r.ParentID = &id
	}
}

// WithSource sets the id of the record this one draws quantity from.
func WithSource(id ID) RecordOption {
	return func(r *Record) {
		r.SourceID = &id
	}
}

// WithStatus sets the stored status.
func WithStatus(status Status) RecordOption {
	return func(r *Record) {
		r.Status = status
	}
}

// WithSaleDate sets the sale date from a YYYY-MM-DD string.
func WithSaleDate(s string) RecordOption {
	return func(r *Record) {
		r.SaleDate = MustDate(s)
	}
}

// WithFuturesMonth sets the futures month from a YYYY-MM string.
func WithFuturesMonth(s string) RecordOption {
	return func(r *Record) {
		r.FuturesMonth = MustMonth(s)
	}
}

// WithNearbyFuturesMonth sets the comparison futures month of an HTA sale.
func WithNearbyFuturesMonth(s string) RecordOption {
	return func(r *Record) {
		r.NearbyFuturesMonth = MustMonth(s)
	}
}

// WithDeliveryMonth sets the delivery month.
func WithDeliveryMonth(s string) RecordOption {
	return func(r *Record) {
		r.DeliveryMonth = MustMonth(s)
	}
}

// WithFuturesPrice sets the futures price.
func WithFuturesPrice(s string) RecordOption {
	return func(r *Record) {
		r.FuturesPrice = MustPrice(s)
	}
}

// WithBasisPrice sets the basis price.
func WithBasisPrice(s string) RecordOption {
	return func(r *Record) {
		r.BasisPrice = MustPrice(s)
	}
}

// WithInitialBasisPrice sets the initial basis price of an HTA sale.
func WithInitialBasisPrice(s string) RecordOption {
	return func(r *Record) {
		r.InitialBasisPrice = MustPrice(s)
	}
}

// WithServiceFee sets the service fee.
func WithServiceFee(s string) RecordOption {
	return func(r *Record) {
		r.ServiceFee = MustPrice(s)
	}
}

// WithCashPrice sets the cash price.
func WithCashPrice(s string) RecordOption {
	return func(r *Record) {
		r.CashPrice = MustPrice(s)
	}
}

// WithCarry sets the carry captured by a roll.
func WithCarry(s string) RecordOption {
	return func(r *Record) {
		r.Carry = MustPrice(s)
	}
}

// WithMerchGain sets the merchandising gain.
func WithMerchGain(s string) RecordOption {
	return func(r *Record) {
		r.MerchGain = MustPrice(s)
	}
}

// WithDeliveryLocation sets the delivery location.
func WithDeliveryLocation(s string) RecordOption {
	return func(r *Record) {
		r.DeliveryLocation = &s
	}
}

// WithHTAContractHolder sets the HTA contract holder.
func WithHTAContractHolder(s string) RecordOption {
	return func(r *Record) {
		r.HTAContractHolder = &s
	}
}

// WithBasisContractHolder sets the basis contract holder.
func WithBasisContractHolder(s string) RecordOption {
	return func(r *Record) {
		r.BasisContractHolder = &s
	}
}

// WithComments sets free-form comments.
func WithComments(s string) RecordOption {
	return func(r *Record) {
		r.Comments = &s
	}
}
