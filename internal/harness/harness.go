// Package harness runs YAML conformance scenarios against a real
// in-memory database.
//
// Each scenario gets a fresh store seeded with plain SQL, runs one
// analytics request through the full pipeline, and asserts on the
// result table or on the validation violations. Golden snapshots of
// the result are available for scenarios where the whole table is the
// assertion.
package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/roach88/salescope/internal/engine"
	"github.com/roach88/salescope/internal/queryplan"
	"github.com/roach88/salescope/internal/request"
	"github.com/roach88/salescope/internal/store"
)

// Outcome is what one scenario run produced.
type Outcome struct {
	// Columns and Rows are the result table when the run succeeded.
	Columns []string
	Rows    queryplan.Table

	// Violations are the validation violation codes when the request
	// was rejected.
	Violations []string

	// Failures lists assertion failures. Empty means the scenario
	// passed.
	Failures []string
}

// Passed reports whether all assertions held.
func (o *Outcome) Passed() bool {
	return len(o.Failures) == 0
}

// Run executes a scenario in a fresh in-memory database.
func Run(scenario *Scenario) (*Outcome, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	for i, stmt := range scenario.Seed {
		if _, err := st.DB().ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("seed[%d]: %w", i, err)
		}
	}
	if err := st.RebuildClosures(ctx); err != nil {
		return nil, fmt.Errorf("rebuilding closures: %w", err)
	}

	req, err := decodeRequest(scenario.Request)
	if err != nil {
		return nil, err
	}

	opts := engine.Options{OrderBy: scenario.OrderBy, Totals: scenario.Totals}
	if scenario.Search != nil {
		opts.SearchField = scenario.Search.Field
		opts.SearchValue = scenario.Search.Value
	}

	outcome := &Outcome{}
	result, err := engine.New(st).Run(ctx, *req, opts)
	if err != nil {
		verr, ok := request.IsValidationError(err)
		if !ok {
			return nil, err
		}
		for _, v := range verr.Violations {
			outcome.Violations = append(outcome.Violations, string(v.Code))
		}
		assertViolations(scenario, outcome)
		return outcome, nil
	}

	outcome.Columns = result.Columns
	outcome.Rows = result.Rows
	assertResult(scenario, outcome)
	return outcome, nil
}

// decodeRequest converts the YAML request map into a typed request by
// way of JSON, so scenarios share the wire field names.
func decodeRequest(raw map[string]interface{}) (*request.Request, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding scenario request: %w", err)
	}
	var req request.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding scenario request: %w", err)
	}
	return &req, nil
}

func assertViolations(scenario *Scenario, outcome *Outcome) {
	if len(scenario.Expect.Violations) == 0 {
		outcome.Failures = append(outcome.Failures,
			fmt.Sprintf("expected a result table, got violations %v", outcome.Violations))
		return
	}
	for _, want := range scenario.Expect.Violations {
		if !containsString(outcome.Violations, want) {
			outcome.Failures = append(outcome.Failures,
				fmt.Sprintf("expected violation %s, got %v", want, outcome.Violations))
		}
	}
}

func assertResult(scenario *Scenario, outcome *Outcome) {
	expect := scenario.Expect
	if len(expect.Violations) > 0 {
		outcome.Failures = append(outcome.Failures,
			fmt.Sprintf("expected violations %v, request succeeded", expect.Violations))
		return
	}

	if len(expect.Columns) > 0 && !equalStrings(expect.Columns, outcome.Columns) {
		outcome.Failures = append(outcome.Failures,
			fmt.Sprintf("columns: expected %v, got %v", expect.Columns, outcome.Columns))
	}
	if expect.RowCount != nil && *expect.RowCount != len(outcome.Rows) {
		outcome.Failures = append(outcome.Failures,
			fmt.Sprintf("row count: expected %d, got %d", *expect.RowCount, len(outcome.Rows)))
	}
	if len(expect.Rows) == 0 {
		return
	}

	if len(expect.Rows) != len(outcome.Rows) {
		outcome.Failures = append(outcome.Failures,
			fmt.Sprintf("row count: expected %d, got %d", len(expect.Rows), len(outcome.Rows)))
		return
	}
	for i, want := range expect.Rows {
		got := outcome.Rows[i]
		for column, wantVal := range want {
			gotVal, ok := got[column]
			if !ok {
				outcome.Failures = append(outcome.Failures,
					fmt.Sprintf("row %d: missing column %q", i, column))
				continue
			}
			if !cellsEqual(wantVal, gotVal) {
				outcome.Failures = append(outcome.Failures,
					fmt.Sprintf("row %d, column %q: expected %v, got %v", i, column, wantVal, gotVal))
			}
		}
	}
}

// cellsEqual compares an expected YAML cell against an actual result
// cell. Numbers compare with a small absolute tolerance because money
// metrics round to two places.
func cellsEqual(want, got any) bool {
	if want == nil || got == nil {
		return want == nil && got == nil
	}
	wf, wok := asFloat(want)
	gf, gok := asFloat(got)
	if wok && gok {
		return math.Abs(wf-gf) < 1e-9
	}
	return fmt.Sprint(want) == fmt.Sprint(got)
}

func asFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}

func containsString(list []string, item string) bool {
	for _, s := range list {
		if s == item {
			return true
		}
	}
	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
