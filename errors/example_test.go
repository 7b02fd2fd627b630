package errors_test

import (
	"fmt"

	"github.com/robinvdvleuten/salesledger/errors"
	"github.com/robinvdvleuten/salesledger/ledger"
)

// Example showing how to use TextFormatter for CLI output
func ExampleTextFormatter() {
	err := &ledger.ValidationErrors{Errors: []error{
		&ledger.FieldError{Field: "delivery_month", Message: "Delivery month is required"},
		&ledger.FieldError{Field: "basis_price", Message: "Basis price is required"},
	}}

	formatter := errors.NewTextFormatter()
	fmt.Println(formatter.Format(err))
	// Output:
	// delivery_month: Delivery month is required
	// basis_price: Basis price is required
}

// Example showing how to use JSONFormatter for API output
func ExampleJSONFormatter() {
	errs := []error{
		&ledger.FieldError{Field: "quantity", Message: "Quantity is required"},
		&ledger.NotFoundError{ID: 7},
	}

	formatter := errors.NewJSONFormatter()
	fmt.Println(formatter.FormatAll(errs))
	// Output:
	// [
	//   {
	//     "type": "validation",
	//     "message": "Quantity is required",
	//     "field": "quantity"
	//   },
	//   {
	//     "type": "not_found",
	//     "message": "sale 7 not found",
	//     "record_id": 7
	//   }
	// ]
}
