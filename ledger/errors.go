package ledger

import (
	"fmt"

	"github.com/robinvdvleuten/salesledger/sales"
)

// ValidationErrors wraps multiple validation errors
type ValidationErrors struct {
	Errors []error
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d validation errors occurred", len(e.Errors))
}

// Unwrap returns the underlying errors for error unwrapping
func (e *ValidationErrors) Unwrap() []error {
	return e.Errors
}

// FieldErrors returns the field errors among e.Errors.
func (e *ValidationErrors) FieldErrors() []*FieldError {
	out := make([]*FieldError, 0, len(e.Errors))
	for _, err := range e.Errors {
		if fe, ok := err.(*FieldError); ok {
			out = append(out, fe)
		}
	}
	return out
}

// FieldError is returned when a submitted field is missing or violates a
// rule. Field is the persisted field name, e.g. "delivery_month".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func newFieldError(field, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) GetField() string {
	return e.Field
}

func (e *FieldError) GetMessage() string {
	return e.Message
}

// NotFoundError is returned when an edit, delete or lookup targets an id
// that does not exist. No state is changed.
type NotFoundError struct {
	ID sales.ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("sale %d not found", e.ID)
}

func (e *NotFoundError) GetID() sales.ID {
	return e.ID
}

// PersistError is returned when a mutation was applied in memory but the
// store rejected the save. The in-memory collection stays authoritative for
// the session.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist records: %v", e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// IntegrityError reports stored data that breaks a ledger invariant, such
// as a source consumed beyond its quantity. Returned by Check.
type IntegrityError struct {
	RecordID sales.ID
	Message  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("sale %d: %s", e.RecordID, e.Message)
}

func (e *IntegrityError) GetID() sales.ID {
	return e.RecordID
}
