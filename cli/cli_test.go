package cli

import (
	"bytes"
	"context"
	"encoding/json"
	stdErrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/salesledger/ledger"
	"github.com/robinvdvleuten/salesledger/sales"
	"github.com/robinvdvleuten/salesledger/store"
)

type result struct {
	stdout string
	stderr string
	err    error
}

func run(t *testing.T, args ...string) result {
	t.Helper()

	var cmds Commands
	var stdout, stderr bytes.Buffer
	parser, err := kong.New(&cmds,
		kong.Name("salesledger"),
		kong.Writers(&stdout, &stderr),
		kong.Bind(&cmds.Globals),
		kong.Exit(func(int) { t.Fatalf("unexpected exit for %v", args) }),
	)
	assert.NoError(t, err)

	kctx, err := parser.Parse(args)
	assert.NoError(t, err)

	err = kctx.Run()
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func exitCode(err error) int {
	var cmdErr *CommandError
	if stdErrors.As(err, &cmdErr) {
		return cmdErr.ExitCode()
	}
	return -1
}

const futuresJSON = `[
  {"date": "2025-06-01", "crop": "CORN", "specific_commodity": "NORMAL", "futures_month": "2025-03-14", "last": "4.40"},
  {"date": "2025-06-01", "crop": "CORN", "specific_commodity": "NORMAL", "futures_month": "2025-05-14", "last": "4.52"},
  {"date": "2025-06-01", "crop": "CORN", "specific_commodity": "MINI", "futures_month": "2025-05-14", "last": "9.99"},
  {"date": "2025-06-01", "crop": "SOYBEANS", "specific_commodity": "NORMAL", "futures_month": "2025-05-14", "last": "10.10"}
]`

type fixture struct {
	store   string
	futures string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	futures := filepath.Join(dir, "futures.json")
	assert.NoError(t, os.WriteFile(futures, []byte(futuresJSON), 0o600))
	return fixture{store: filepath.Join(dir, "sales.json"), futures: futures}
}

func (f fixture) run(t *testing.T, args ...string) result {
	t.Helper()
	return run(t, append([]string{"--store", f.store, "--futures", f.futures}, args...)...)
}

func (f fixture) addOrigin(t *testing.T) {
	t.Helper()
	res := f.run(t, "add",
		"--type", "HTA",
		"--date", "2025-01-10",
		"--quantity", "10000",
		"--futures-month", "2025-03",
		"--nearby-month", "2025-03",
		"--futures-price", "4.40",
		"--initial-basis=-0.30",
		"--hta-holder", "ADM",
	)
	assert.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Created #1 2025-01-10 HTA Created 10,000 bu. Mar 2025")
}

func TestSaleWorkflow(t *testing.T) {
	f := newFixture(t)
	f.addOrigin(t)

	t.Run("Set", func(t *testing.T) {
		res := f.run(t, "set", "1",
			"--date", "2025-02-01",
			"--quantity", "4000",
			"--delivery-month", "2025-04",
			"--location", "Elevator",
			"--basis=-0.20",
		)
		assert.NoError(t, res.err, res.stderr)
		assert.Contains(t, res.stdout, "Set #2 2025-02-01 HTA Set 4,000 bu. Mar 2025")
		assert.Contains(t, res.stdout, "#1 Set: 4,000 bu. / Pending: 6,000 bu.")
	})

	t.Run("RollUsesBoardPrice", func(t *testing.T) {
		res := f.run(t, "roll", "1",
			"--date", "2025-02-15",
			"--quantity", "3000",
			"--futures-month", "2025-05",
		)
		assert.NoError(t, res.err, res.stderr)
		assert.Contains(t, res.stdout, "Rolled #3 2025-02-15 HTA Rolled 3,000 bu. May 2025")

		res = f.run(t, "show", "3", "--json")
		assert.NotEqual(t, 0, exitCode(res.err))
		assert.Contains(t, res.stderr, "sale 3 not found")

		res = f.run(t, "show", "1", "--json")
		assert.NoError(t, res.err)
		var detail struct {
			Rows []ledger.Row `json:"rows"`
		}
		assert.NoError(t, json.Unmarshal([]byte(res.stdout), &detail))
		assert.Equal(t, 3, len(detail.Rows))
		rolled := detail.Rows[2].Record
		assert.Equal(t, "4.5200", rolled.FuturesPrice.String())
		assert.Equal(t, "0.1200", rolled.Carry.String())
	})

	t.Run("Show", func(t *testing.T) {
		res := f.run(t, "show", "1")
		assert.NoError(t, res.err)
		assert.Contains(t, res.stdout, "Average cash price:")
		assert.Contains(t, res.stdout, "Apr 2025")
		assert.Contains(t, res.stdout, "May 2025")
	})

	t.Run("List", func(t *testing.T) {
		res := f.run(t, "list")
		assert.NoError(t, res.err)
		assert.Contains(t, res.stdout, "#1")
		assert.Contains(t, res.stdout, "ADM")

		res = f.run(t, "list", "--json")
		assert.NoError(t, res.err)
		var summaries []ledger.Summary
		assert.NoError(t, json.Unmarshal([]byte(res.stdout), &summaries))
		assert.Equal(t, 1, len(summaries))
		assert.Equal(t, int64(3000), summaries[0].Remaining)
	})

	t.Run("Edit", func(t *testing.T) {
		res := f.run(t, "edit", "2", "--location", "River Terminal")
		assert.NoError(t, res.err, res.stderr)
		assert.Contains(t, res.stdout, "Updated #2")

		res = f.run(t, "edit", "2", "--basis=-0.10")
		assert.NoError(t, res.err, res.stderr)
		res = f.run(t, "show", "1", "--json")
		assert.NoError(t, res.err)
		var detail struct {
			Rows []ledger.Row `json:"rows"`
		}
		assert.NoError(t, json.Unmarshal([]byte(res.stdout), &detail))
		edited := detail.Rows[1].Record
		assert.Equal(t, "-0.1000", edited.BasisPrice.String())
		assert.Equal(t, "4.3000", edited.CashPrice.String())

		res = f.run(t, "edit", "1", "--quantity", "5000")
		assert.Equal(t, 1, exitCode(res.err))
		assert.Contains(t, res.stderr, "Quantity cannot be less than the 7,000 bu. already Set or Rolled.")
	})

	t.Run("Check", func(t *testing.T) {
		res := f.run(t, "check")
		assert.NoError(t, res.err)
		assert.Contains(t, res.stdout, "Check passed: 3 record(s)")
	})

	t.Run("Delete", func(t *testing.T) {
		var asked string
		confirmFunc = func(question string) (bool, error) {
			asked = question
			return false, nil
		}
		t.Cleanup(func() { confirmFunc = promptYesNo })

		res := f.run(t, "delete", "1")
		assert.NoError(t, res.err)
		assert.Equal(t, "Delete #1 and its 2 linked record(s)?", asked)
		assert.Contains(t, res.stdout, "Nothing deleted")

		res = f.run(t, "delete", "1", "--yes")
		assert.NoError(t, res.err)
		assert.Contains(t, res.stdout, "Deleted 3 record(s)")

		res = f.run(t, "list")
		assert.NoError(t, res.err)
		assert.Contains(t, res.stdout, "No sales recorded.")
	})
}

func TestSubmitFailures(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "MissingFields",
			args: []string{"add", "--type", "Cash"},
			want: "validation error(s) found",
		},
		{
			name: "InvalidDate",
			args: []string{"add", "--type", "Cash", "--date", "tomorrow"},
			want: `"tomorrow" is not a valid date.`,
		},
		{
			name: "UnknownSaleType",
			args: []string{"add", "--type", "Forward"},
			want: "Sales Type must be one of Cash, HTA, Basis.",
		},
		{
			name: "UnknownSource",
			args: []string{"set", "42", "--quantity", "10"},
			want: "sale 42 not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.run(t, tt.args...)
			assert.Equal(t, 1, exitCode(res.err))
			assert.Contains(t, res.stderr, tt.want)
		})
	}

	_, err := os.Stat(f.store)
	assert.True(t, os.IsNotExist(err), "nothing should have been saved")
}

func TestCheckReportsProblems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.json")
	data := `[
  {"id": 1, "parent_id": 9, "sale_type": "Cash", "status": "Set", "quantity": 100, "updated_at": "2025-01-01T00:00:00Z"}
]`
	assert.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	res := run(t, "--store", path, "check")
	assert.Equal(t, 1, exitCode(res.err))
	assert.Contains(t, res.stderr, "sale 1: parent 9 does not exist")
	assert.Contains(t, res.stderr, "problem(s) found")

	res = run(t, "--store", path, "check", "--json")
	assert.Equal(t, 1, exitCode(res.err))
	assert.Contains(t, res.stdout, `"type": "integrity"`)
}

func TestFutures(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, "futures")
	assert.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Mar 2025")
	assert.Contains(t, res.stdout, "4.5200")
	assert.False(t, strings.Contains(res.stdout, "9.99"))

	res = f.run(t, "futures", "--after", "2025-03")
	assert.NoError(t, res.err)
	assert.False(t, strings.Contains(res.stdout, "Mar 2025"))
	assert.Contains(t, res.stdout, "May 2025")

	res = f.run(t, "--crop", "soybeans", "futures", "--json")
	assert.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"price": 10.1000`)

	res = run(t, "--store", f.store, "futures")
	assert.NoError(t, res.err)
	assert.Contains(t, res.stdout, "No futures available.")
	assert.Contains(t, res.stderr, "No futures source configured")
}

func TestOpenLedgerKeepsRecordsWhenBackfillSaveFails(t *testing.T) {
	st := store.NewMemoryStore(sales.NewRecord(1, sales.HTA, 10000))
	st.FailSaves(stdErrors.New("read-only file system"))

	var buf bytes.Buffer
	log, err := newLogger(&buf, "error", "text")
	assert.NoError(t, err)

	l, err := openLedger(context.Background(), st, log)
	assert.NoError(t, err)
	assert.Equal(t, 1, l.Len())
	r, _ := l.Get(1)
	assert.False(t, r.UpdatedAt.IsZero())
	assert.Contains(t, buf.String(), "Failed to persist records")
	assert.Equal(t, 0, st.Saves())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(&buf, "info", "json")
	assert.NoError(t, err)
	log.WithField("crop", "CORN").Info("board fetched")

	var entry map[string]any
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal[any](t, "CORN", entry["crop"])
	assert.Equal[any](t, "board fetched", entry["msg"])

	_, err = newLogger(&buf, "loud", "text")
	assert.Error(t, err)
}

func TestPromptYesNo(t *testing.T) {
	t.Run("NonTTYReturnsFalse", func(t *testing.T) {
		if isTerminal() {
			t.Skip("stdin is a terminal")
		}
		confirmed, err := promptYesNo("Delete?")
		assert.NoError(t, err)
		assert.False(t, confirmed)
	})
}
