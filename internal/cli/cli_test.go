package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/salescope/internal/store"
)

// executeCommand runs the root command with the given args and captures
// its output streams.
func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeRequest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "request.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// seedDatabase creates a database file with two suppliers selling
// through March, plus a February baseline.
func seedDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.db")

	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	stmts := []string{
		`INSERT INTO shop_groups (id, name) VALUES (1, 'All Shops')`,
		`INSERT INTO shops (id, name, group_id) VALUES (1, 'Central', 1)`,
		`INSERT INTO terminals (id, name, shop_id) VALUES (1, 'T-1', 1)`,
		`INSERT INTO categories (id, name, parent_id) VALUES (1, 'Food', NULL)`,
		`INSERT INTO products (id, name, category_id, article) VALUES (1, 'Milk', 1, 'A-100')`,
		`INSERT INTO suppliers (id, name) VALUES (1, 'FreshCo'), (2, 'BakeCo')`,
		`INSERT INTO receipts (id, date, shop_id, terminal_id) VALUES
		 (1, '2023-03-05', 1, 1), (2, '2023-02-05', 1, 1)`,
		`INSERT INTO cart_items (id, receipt_id, product_id, supplier_id, date,
		   price, original_price, qty, total_price, margin_price_total) VALUES
		 (1, 1, 1, 1, '2023-03-05', 50, 45, 2, 100, 10),
		 (2, 1, 1, 2, '2023-03-05', 30, 25, 1, 30, 5),
		 (3, 2, 1, 1, '2023-02-05', 50, 45, 1, 60, 5)`,
	}
	for _, stmt := range stmts {
		_, err := st.DB().ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	require.NoError(t, st.RebuildClosures(ctx))
	return path
}

const supplierTurnoverRequest = `{
  "dimensions": [{"name": "supplier"}],
  "metrics": [{"name": "turnover"}],
  "date_range": ["2023-03-01", "2023-03-31"]
}`

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, _, err := executeCommand(t, "--format", "yaml", "catalog")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCatalogCommand_Text(t *testing.T) {
	stdout, _, err := executeCommand(t, "catalog")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Dimensions:")
	assert.Contains(t, stdout, "supplier")
	assert.Contains(t, stdout, "hour, day, month, year")
	assert.Contains(t, stdout, "turnover")
	assert.Contains(t, stdout, "(diffable)")
}

func TestCatalogCommand_JSON(t *testing.T) {
	stdout, _, err := executeCommand(t, "--format", "json", "catalog")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   CatalogListing `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"hour", "day", "month", "year"}, resp.Data.Intervals)

	names := map[string]bool{}
	for _, d := range resp.Data.Dimensions {
		names[d.Name] = true
	}
	assert.True(t, names["product"])
	assert.True(t, names["shop_group"])
}

func TestValidateCommand_Valid(t *testing.T) {
	path := writeRequest(t, t.TempDir(), supplierTurnoverRequest)

	stdout, _, err := executeCommand(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Request valid")
}

func TestValidateCommand_Violations(t *testing.T) {
	path := writeRequest(t, t.TempDir(), `{
	  "dimensions": [{"name": "warehouse"}],
	  "metrics": [{"name": "turnover"}],
	  "date_range": ["2023-03-01", "2023-03-31"]
	}`)

	stdout, _, err := executeCommand(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ Validation failed")
	assert.Contains(t, stdout, "UNKNOWN_DIMENSION")
}

func TestValidateCommand_ViolationsJSON(t *testing.T) {
	path := writeRequest(t, t.TempDir(), `{
	  "dimensions": [{"name": "supplier"}],
	  "metrics": [],
	  "date_range": ["2023-03-01", "2023-03-31"]
	}`)

	stdout, _, err := executeCommand(t, "--format", "json", "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string           `json:"code"`
			Details ValidationResult `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeBadRequest, resp.Error.Code)
	assert.False(t, resp.Error.Details.Valid)
	require.Len(t, resp.Error.Details.Violations, 1)
	assert.Equal(t, "EMPTY_METRICS", string(resp.Error.Details.Violations[0].Code))
}

func TestValidateCommand_MissingFile(t *testing.T) {
	_, _, err := executeCommand(t, "validate", filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestQueryCommand_Text(t *testing.T) {
	db := seedDatabase(t)
	path := writeRequest(t, t.TempDir(), supplierTurnoverRequest)

	stdout, _, err := executeCommand(t, "query", "--db", db, path)
	require.NoError(t, err)

	assert.Contains(t, stdout, "supplier__name")
	assert.Contains(t, stdout, "BakeCo")
	assert.Contains(t, stdout, "FreshCo")
	assert.Contains(t, stdout, "(2 rows)")
}

func TestQueryCommand_JSON(t *testing.T) {
	db := seedDatabase(t)
	path := writeRequest(t, t.TempDir(), supplierTurnoverRequest)

	stdout, _, err := executeCommand(t, "--format", "json", "query", "--db", db, path)
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Token   string           `json:"token"`
			Columns []string         `json:"columns"`
			Rows    []map[string]any `json:"rows"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Data.Token)
	assert.Equal(t, []string{"supplier__name", "turnover"}, resp.Data.Columns)
	require.Len(t, resp.Data.Rows, 2)
	assert.Equal(t, "BakeCo", resp.Data.Rows[0]["supplier__name"])
	assert.Equal(t, 30.0, resp.Data.Rows[0]["turnover"])
}

func TestQueryCommand_DerivedMetrics(t *testing.T) {
	db := seedDatabase(t)
	path := writeRequest(t, t.TempDir(), `{
	  "dimensions": [{"name": "supplier"}],
	  "metrics": [{"name": "turnover"}, {"name": "turnover_diff"}],
	  "date_range": ["2023-03-01", "2023-03-31"],
	  "prev_date_range": ["2023-02-01", "2023-02-28"]
	}`)

	stdout, _, err := executeCommand(t, "--format", "json", "query", "--db", db, path)
	require.NoError(t, err)

	var resp struct {
		Data struct {
			Rows []map[string]any `json:"rows"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data.Rows, 2)

	// BakeCo sold nothing in February, so the diff is its base value.
	assert.Equal(t, 30.0, resp.Data.Rows[0]["turnover_diff"])
	// FreshCo: 100 now vs 60 before.
	assert.Equal(t, 40.0, resp.Data.Rows[1]["turnover_diff"])
}

func TestQueryCommand_OrderAndTotals(t *testing.T) {
	db := seedDatabase(t)
	path := writeRequest(t, t.TempDir(), supplierTurnoverRequest)

	stdout, _, err := executeCommand(t,
		"--format", "json", "query", "--db", db, path, "--order-by", "-turnover", "--totals")
	require.NoError(t, err)

	var resp struct {
		Data struct {
			Rows []map[string]any `json:"rows"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data.Rows, 3)
	assert.Equal(t, "FreshCo", resp.Data.Rows[0]["supplier__name"])
	assert.Equal(t, "Totals", resp.Data.Rows[2]["supplier__name"])
	assert.Equal(t, 130.0, resp.Data.Rows[2]["turnover"])
}

func TestQueryCommand_SearchFlagsRequireEachOther(t *testing.T) {
	db := seedDatabase(t)
	path := writeRequest(t, t.TempDir(), supplierTurnoverRequest)

	_, _, err := executeCommand(t, "query", "--db", db, path, "--search", "Fresh")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestQueryCommand_InvalidRequest(t *testing.T) {
	db := seedDatabase(t)
	path := writeRequest(t, t.TempDir(), `{
	  "dimensions": [],
	  "metrics": [{"name": "turnover"}],
	  "date_range": ["2023-03-31", "2023-03-01"]
	}`)

	stdout, _, err := executeCommand(t, "--format", "json", "query", "--db", db, path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeBadRequest, resp.Error.Code)
}

func TestLoadCommand(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "sales.db")

	csvs := map[string]string{
		"suppliers.csv": "id,name\n1,FreshCo\n2,BakeCo\n",
		"producers.csv": "id,name\n1,Acme\n",
	}
	for name, content := range csvs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	manifest := writeManifest(t, dir, `
dataset: {
	name: "fixtures"
	sources: [
		{table: "suppliers", file: "suppliers.csv"},
		{table: "producers", file: "producers.csv"},
	]
}
`)

	stdout, _, err := executeCommand(t, "load", "--db", db, manifest)
	require.NoError(t, err)
	assert.Contains(t, stdout, "suppliers: 2 rows")
	assert.Contains(t, stdout, "producers: 1 rows")
	assert.Contains(t, stdout, `Dataset "fixtures" loaded.`)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	var count int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM suppliers`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestLoadCommand_BadManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := writeManifest(t, dir, `dataset: {name: "x", sources: [{table: "nope", file: "n.csv"}]}`)

	_, _, err := executeCommand(t, "load", "--db", filepath.Join(dir, "sales.db"), manifest)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
