// Package market provides daily futures prices. A Source fetches raw daily
// rows for a crop, a Board reduces them to one quote per futures month, and
// a Lookup fetches boards without ever failing the caller: an unreachable
// market is reported as an empty board.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/robinvdvleuten/salesledger/sales"
)

// NormalContract is the specific commodity of the standard 5,000 bu.
// contract, the only one quoted on a board.
const NormalContract = "NORMAL"

// Row is one daily futures row as served by the market API. Prices are
// decimal strings.
type Row struct {
	Date              string `json:"date"`
	Crop              string `json:"crop"`
	SpecificCommodity string `json:"specific_commodity"`
	FuturesMonth      string `json:"futures_month"`
	Open              string `json:"open"`
	High              string `json:"high"`
	Low               string `json:"low"`
	Last              string `json:"last"`
	CommodityCode     string `json:"commodity_code"`
}

// MonthKey returns the YYYY-MM prefix of the futures month.
func (r Row) MonthKey() string {
	if len(r.FuturesMonth) < 7 {
		return r.FuturesMonth
	}
	return r.FuturesMonth[:7]
}

// LastPrice returns the last traded price, or nil when it is not a number.
func (r Row) LastPrice() *sales.Price {
	p, err := sales.NewPrice(r.Last)
	if err != nil {
		return nil
	}
	return p
}

// Source fetches the daily rows of a crop.
type Source interface {
	Fetch(ctx context.Context, crop string) ([]Row, error)
}

// HTTPSource fetches rows from {base}/api/external/market/futures/crop/{CROP}/daily.
type HTTPSource struct {
	base   string
	client *http.Client
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.client = c
	}
}

// NewHTTPSource creates a source for the market API at base.
func NewHTTPSource(base string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		base:   strings.TrimRight(base, "/"),
		client: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URL returns the daily endpoint for crop.
func (s *HTTPSource) URL(crop string) string {
	return fmt.Sprintf("%s/api/external/market/futures/crop/%s/daily", s.base, url.PathEscape(strings.ToUpper(crop)))
}

func (s *HTTPSource) Fetch(ctx context.Context, crop string) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(crop), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch futures: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to fetch futures: %s", resp.Status)
	}
	return decodeRows(resp.Body)
}

// FileSource reads rows from a JSON file in the API format. Rows of other
// crops are skipped.
type FileSource struct {
	path string
}

// NewFileSource creates a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Fetch(ctx context.Context, crop string) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	rows, err := decodeRows(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	if crop == "" {
		return rows, nil
	}

	out := rows[:0]
	for _, r := range rows {
		if strings.EqualFold(r.Crop, crop) {
			out = append(out, r)
		}
	}
	return out, nil
}

// NewSource picks a source for location: URLs are served over HTTP,
// anything else is read as a file.
func NewSource(location string, opts ...HTTPOption) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(location, opts...)
	}
	return NewFileSource(location)
}

func decodeRows(r io.Reader) ([]Row, error) {
	var rows []Row
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode futures: %w", err)
	}
	return rows, nil
}
