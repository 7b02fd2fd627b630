// Package errors provides error formatting for sales ledger errors. It
// separates presentation from domain logic, allowing errors to be rendered
// in multiple formats (text, JSON) for different consumers (CLI, web API).
//
// The package defines a Formatter interface and provides two implementations:
//   - TextFormatter: one line per error, with the offending record as context
//   - JSONFormatter: structured objects for the HTTP API
//
// Domain error types stay in the ledger package; this package only reads
// them through their accessor methods.
package errors

import (
	"bytes"
	"encoding/json"
	stdErrors "errors"

	"github.com/robinvdvleuten/salesledger/formatter"
	"github.com/robinvdvleuten/salesledger/ledger"
	"github.com/robinvdvleuten/salesledger/sales"
)

// Formatter formats errors for output in different formats.
type Formatter interface {
	// Format formats a single error.
	Format(err error) string

	// FormatAll formats multiple errors.
	FormatAll(errs []error) string
}

// RecordLookup resolves a record id to the record and its action label.
type RecordLookup func(id sales.ID) (sales.Record, sales.Action, bool)

// LedgerLookup returns a RecordLookup backed by l.
func LedgerLookup(l *ledger.Ledger) RecordLookup {
	return func(id sales.ID) (sales.Record, sales.Action, bool) {
		r, ok := l.Get(id)
		if !ok {
			return sales.Record{}, "", false
		}
		return r, l.Action(r), true
	}
}

// Flatten expands aggregate errors such as *ledger.ValidationErrors into
// their parts. Other errors are returned as is.
func Flatten(errs ...error) []error {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		if err == nil {
			continue
		}
		var verr *ledger.ValidationErrors
		if stdErrors.As(err, &verr) {
			out = append(out, verr.Errors...)
			continue
		}
		out = append(out, err)
	}
	return out
}

// TextFormatter formats errors for command-line output.
type TextFormatter struct {
	lookup RecordLookup
}

// TextFormatterOption is an option for configuring TextFormatter.
type TextFormatterOption func(*TextFormatter)

// WithRecords shows the record an error refers to below its message.
func WithRecords(lookup RecordLookup) TextFormatterOption {
	return func(tf *TextFormatter) {
		tf.lookup = lookup
	}
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(opts ...TextFormatterOption) *TextFormatter {
	tf := &TextFormatter{}
	for _, opt := range opts {
		opt(tf)
	}
	return tf
}

// Format formats a single error. Validation errors render one field error
// per line; errors about an existing record are followed by that record.
func (tf *TextFormatter) Format(err error) string {
	var verr *ledger.ValidationErrors
	if stdErrors.As(err, &verr) {
		return tf.FormatAll(verr.Errors)
	}

	if e, ok := err.(interface {
		GetID() sales.ID
		Error() string
	}); ok && tf.lookup != nil {
		if r, action, found := tf.lookup(e.GetID()); found {
			return tf.formatWithContext(e.Error(), r, action)
		}
	}

	return err.Error()
}

// FormatAll formats multiple errors, one per line.
func (tf *TextFormatter) FormatAll(errs []error) string {
	errs = Flatten(errs...)
	if len(errs) == 0 {
		return ""
	}

	var buf bytes.Buffer
	for i, err := range errs {
		buf.WriteString(tf.Format(err))
		if i < len(errs)-1 {
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

func (tf *TextFormatter) formatWithContext(message string, r sales.Record, action sales.Action) string {
	var buf bytes.Buffer
	buf.WriteString(message)
	buf.WriteString("\n   ")
	buf.WriteString(formatter.FormatRecord(r, action))
	return buf.String()
}

// JSONFormatter formats errors as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// ErrorJSON represents an error in JSON format.
type ErrorJSON struct {
	Type     string    `json:"type"`
	Message  string    `json:"message"`
	Field    string    `json:"field,omitempty"`
	RecordID *sales.ID `json:"record_id,omitempty"`
}

// Error types reported in ErrorJSON.Type.
const (
	TypeValidation = "validation"
	TypeNotFound   = "not_found"
	TypePersist    = "persist"
	TypeIntegrity  = "integrity"
	TypeInternal   = "internal"
)

// Format formats a single error as JSON. Aggregates become an array.
func (jf *JSONFormatter) Format(err error) string {
	var verr *ledger.ValidationErrors
	if stdErrors.As(err, &verr) {
		return jf.FormatAll(verr.Errors)
	}
	data, _ := json.Marshal(jf.toJSON(err))
	return string(data)
}

// FormatAll formats multiple errors as a JSON array.
func (jf *JSONFormatter) FormatAll(errs []error) string {
	data, _ := json.MarshalIndent(jf.FormatAllToSlice(errs), "", "  ")
	return string(data)
}

// FormatAllToSlice returns errors as a slice of ErrorJSON structs.
func (jf *JSONFormatter) FormatAllToSlice(errs []error) []ErrorJSON {
	errs = Flatten(errs...)
	result := make([]ErrorJSON, 0, len(errs))
	for _, err := range errs {
		result = append(result, jf.toJSON(err))
	}
	return result
}

func (jf *JSONFormatter) toJSON(err error) ErrorJSON {
	out := ErrorJSON{
		Type:    TypeInternal,
		Message: err.Error(),
	}

	var (
		field     *ledger.FieldError
		notFound  *ledger.NotFoundError
		persist   *ledger.PersistError
		integrity *ledger.IntegrityError
	)
	switch {
	case stdErrors.As(err, &field):
		out.Type = TypeValidation
		out.Field = field.GetField()
		out.Message = field.GetMessage()
	case stdErrors.As(err, &notFound):
		out.Type = TypeNotFound
		id := notFound.GetID()
		out.RecordID = &id
	case stdErrors.As(err, &persist):
		out.Type = TypePersist
	case stdErrors.As(err, &integrity):
		out.Type = TypeIntegrity
		id := integrity.GetID()
		out.RecordID = &id
		out.Message = integrity.Message
	}
	return out
}
