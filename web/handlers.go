package web

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/robinvdvleuten/salesledger/errors"
	"github.com/robinvdvleuten/salesledger/ledger"
	"github.com/robinvdvleuten/salesledger/market"
	"github.com/robinvdvleuten/salesledger/sales"
)

// maxBodySize bounds submitted JSON bodies.
const maxBodySize = 1 << 20

// writeJSONResponse writes a JSON response to the http.ResponseWriter.
// If encoding fails, it writes an error response.
func writeJSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Errors []errors.ErrorJSON `json:"errors"`
}

// writeError maps ledger errors to status codes: validation errors are 422,
// unknown ids 404, failed saves 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var (
		verr     *ledger.ValidationErrors
		notFound *ledger.NotFoundError
		persist  *ledger.PersistError
		badReq   *requestError
	)
	switch {
	case stdErrors.As(err, &verr):
		status = http.StatusUnprocessableEntity
	case stdErrors.As(err, &notFound):
		status = http.StatusNotFound
	case stdErrors.As(err, &badReq):
		status = http.StatusBadRequest
	case stdErrors.As(err, &persist):
		s.log.WithError(err).Error("failed to persist records")
	default:
		s.log.WithError(err).Error("request failed")
	}

	writeJSONResponse(w, status, ErrorResponse{
		Errors: errors.NewJSONFormatter().FormatAllToSlice([]error{err}),
	})
}

// requestError reports a malformed request.
type requestError struct {
	msg string
}

func (e *requestError) Error() string {
	return e.msg
}

func pathID(r *http.Request) (sales.ID, error) {
	raw := r.PathValue("id")
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, &requestError{msg: fmt.Sprintf("invalid sale id %q", raw)}
	}
	return sales.ID(n), nil
}

func decodeFields(w http.ResponseWriter, r *http.Request) (ledger.Fields, error) {
	var fields ledger.Fields
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(&fields); err != nil {
		return fields, &requestError{msg: fmt.Sprintf("invalid request body: %v", err)}
	}
	return fields, nil
}

// SaleResponse is the detail view of one lineage.
type SaleResponse struct {
	Summary *ledger.Summary `json:"summary"`
	Rows    []ledger.Row    `json:"rows"`
	Sources []sales.ID      `json:"sources"`
}

// MutationResponse is returned by create, edit, Set and Roll.
type MutationResponse struct {
	Record  sales.Record    `json:"record"`
	Summary *ledger.Summary `json:"summary"`
}

// DeleteResponse lists the removed ids.
type DeleteResponse struct {
	Deleted []sales.ID `json:"deleted"`
}

// FuturesResponse is the futures board of a crop.
type FuturesResponse struct {
	Crop   string         `json:"crop"`
	Quotes []market.Quote `json:"quotes"`
}

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries, err := s.ledger.Summaries(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, summaries)
}

func (s *Server) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	resp, err := s.saleResponse(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// saleResponse builds the detail view. Caller must hold the mutex.
func (s *Server) saleResponse(ctx context.Context, id sales.ID) (*SaleResponse, error) {
	summary, err := s.ledger.Summarize(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.ledger.Rows(id)
	if err != nil {
		return nil, err
	}

	resp := &SaleResponse{Summary: summary, Rows: rows, Sources: []sales.ID{}}
	for _, r := range s.ledger.Sources(id) {
		resp.Sources = append(resp.Sources, r.ID)
	}
	return resp, nil
}

func (s *Server) handleGetValuation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, err := s.ledger.Valuate(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, v)
}

// handleGetDefaults returns the prefilled fields of a Set (?mode=set) or
// Roll (?mode=roll) of the record.
func (s *Server) handleGetDefaults(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var mode ledger.Mode
	switch r.URL.Query().Get("mode") {
	case "set", "":
		mode = ledger.ModeSet
	case "roll":
		mode = ledger.ModeRoll
	default:
		s.writeError(w, &requestError{msg: fmt.Sprintf("unknown mode %q", r.URL.Query().Get("mode"))})
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	target, ok := s.ledger.Get(id)
	if !ok {
		s.writeError(w, &ledger.NotFoundError{ID: id})
		return
	}
	writeJSONResponse(w, http.StatusOK, s.ledger.ActionDefaults(target, mode))
}

func (s *Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.submit(w, r, fields, ledger.ActionContext{Mode: ledger.ModeCreate}, http.StatusCreated)
}

func (s *Server) handleEditSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	fields, err := decodeFields(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.submit(w, r, fields, ledger.ActionContext{Mode: ledger.ModeEdit, TargetID: id}, http.StatusOK)
}

// handleAction serves Set and Roll submissions. The body carries the new
// record's fields; its quantity is the quantity drawn from the source.
func (s *Server) handleAction(mode ledger.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		fields, err := decodeFields(w, r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		ac := ledger.ActionContext{
			Mode:     mode,
			TargetID: id,
			Quantity: fields.Quantity.Int64(),
		}
		s.submit(w, r, fields, ac, http.StatusCreated)
	}
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, fields ledger.Fields, ac ledger.ActionContext, status int) {
	ctx := r.Context()
	if ac.ReferencePrice == nil && fields.FuturesPrice == nil {
		ac.ReferencePrice = s.referencePrice(ctx, r.URL.Query().Get("crop"), fields.FuturesMonth)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.ledger.Submit(ctx, fields, ac)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.mutations.WithLabelValues(ac.Mode.String()).Inc()
	s.log.WithFields(logrus.Fields{
		"mode":      ac.Mode.String(),
		"record_id": rec.ID,
	}).Info("sale saved")

	origin := s.ledger.ResolveOrigin(rec)
	summary, err := s.ledger.Summarize(ctx, origin.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSONResponse(w, status, MutationResponse{Record: rec, Summary: summary})
}

// referencePrice looks up the market price of month. It returns nil when
// no lookup is configured or the board has no quote for the month.
func (s *Server) referencePrice(ctx context.Context, crop string, month *sales.Month) *sales.Price {
	if s.lookup == nil || month == nil {
		return nil
	}
	if crop == "" {
		crop = s.Crop
	}
	price, ok := s.lookup.Board(ctx, crop).Price(month)
	if !ok {
		return nil
	}
	return price
}

func (s *Server) handleDeleteSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.ledger.Delete(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.mutations.WithLabelValues("delete").Inc()
	s.log.WithFields(logrus.Fields{
		"record_id": id,
		"deleted":   len(ids),
	}).Info("sale deleted")
	writeJSONResponse(w, http.StatusOK, DeleteResponse{Deleted: ids})
}

// handleGetFutures serves the futures board. With ?after=YYYY-MM only the
// months a record in that month can be rolled into are listed. With
// ?purpose=... a response superseded by a newer request for the same
// purpose is answered with 409 Conflict.
func (s *Server) handleGetFutures(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	crop := strings.ToUpper(strings.TrimSpace(q.Get("crop")))
	if crop == "" {
		crop = strings.ToUpper(s.Crop)
	}

	var after *sales.Month
	if raw := q.Get("after"); raw != "" {
		m, err := sales.NewMonth(raw)
		if err != nil {
			s.writeError(w, &requestError{msg: err.Error()})
			return
		}
		after = m
	}

	board := market.EmptyBoard()
	if s.lookup != nil {
		if purpose := q.Get("purpose"); purpose != "" {
			b, err := s.lookup.Request(r.Context(), purpose, crop)
			if stdErrors.Is(err, market.ErrStale) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			board = b
		} else {
			board = s.lookup.Board(r.Context(), crop)
		}
	}

	quotes := board.Quotes()
	if after != nil {
		quotes = board.MonthsAfter(after)
	}
	if quotes == nil {
		quotes = []market.Quote{}
	}
	writeJSONResponse(w, http.StatusOK, FuturesResponse{Crop: crop, Quotes: quotes})
}
