// Package engine orchestrates one analytics run: validate the request,
// resolve it into query plans, execute the plans against a QueryEngine,
// diff the two tables, and post-process the result.
//
// The engine holds no per-request state; a single Engine value is safe
// for concurrent use.
package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/roach88/salescope/internal/diff"
	"github.com/roach88/salescope/internal/post"
	"github.com/roach88/salescope/internal/queryplan"
	"github.com/roach88/salescope/internal/request"
	"github.com/roach88/salescope/internal/resolve"
)

// QueryEngine executes one aggregation plan and returns its table. Row
// order must be deterministic for identical inputs: the diff pass aligns
// time-bucket-only tables positionally.
//
// Implementations: the SQLite store (production), testutil.FakeQueryEngine
// (tests).
type QueryEngine interface {
	Execute(ctx context.Context, plan queryplan.Plan) (queryplan.Table, error)
}

// Engine runs analytics requests against a QueryEngine.
type Engine struct {
	qe QueryEngine
}

// New creates an Engine over the given QueryEngine.
func New(qe QueryEngine) *Engine {
	return &Engine{qe: qe}
}

// Options are the presentation knobs of one run, owned by the caller
// boundary (the CLI here; pagination and HTTP semantics stay outside).
type Options struct {
	// SearchField/SearchValue keep rows whose field contains the value.
	SearchField string
	SearchValue string

	// OrderBy sorts by a metric column, "-" prefix for descending.
	OrderBy string

	// Totals appends the synthetic totals row.
	Totals bool
}

// Result is one completed analytics run.
type Result struct {
	// Token identifies the run in diagnostics.
	Token string `json:"token"`

	// Columns is the ordered output column list, display names applied.
	Columns []string `json:"columns"`

	// Rows is the final table, display names applied.
	Rows queryplan.Table `json:"rows"`

	// Renames records the applied column renames (qualified → display).
	Renames map[string]string `json:"renames,omitempty"`
}

// Run executes one analytics request end to end.
//
// The two QueryEngine calls are independent, so they run concurrently;
// correctness does not depend on their ordering. Cancellation is the
// caller's concern via ctx.
func (e *Engine) Run(ctx context.Context, req request.Request, opts Options) (*Result, error) {
	token := uuid.NewString()

	validated, err := request.Validate(req)
	if err != nil {
		return nil, err
	}

	plans, err := resolve.BuildPlans(validated)
	if err != nil {
		return nil, newInternalError(ErrCodeResolver, token, "resolution failed after validation", err)
	}

	current, previous, err := e.executePlans(ctx, token, plans)
	if err != nil {
		return nil, err
	}

	diffed, err := diff.Apply(diff.Input{
		Current:       current,
		Previous:      previous,
		Derived:       plans.Metric.Derived,
		GroupingKeys:  plans.Current.GroupingKeys,
		MetricColumns: plans.Current.MetricColumns(),
		TimeBucket:    plans.Current.TimeBucket,
		CurrentRange:  plans.Ranges.Current,
		PreviousRange: plans.Ranges.Previous,
	})
	if err != nil {
		return nil, newInternalError(ErrCodeTableMismatch, token, "temporal diff failed", err)
	}

	renames := plans.Dimension.RenameMap
	rows := post.Rename(diffed, renames)
	columns := post.RenameColumns(outputColumns(plans), renames)

	if opts.SearchField != "" {
		if rows, err = post.Search(rows, opts.SearchField, opts.SearchValue); err != nil {
			return nil, err
		}
	}
	if opts.OrderBy != "" {
		if rows, err = post.Sort(rows, opts.OrderBy); err != nil {
			return nil, err
		}
	}
	if opts.Totals {
		if totals := post.Totals(rows, columns); totals != nil {
			rows = append(rows, totals)
		}
	}

	return &Result{Token: token, Columns: columns, Rows: rows, Renames: renames}, nil
}

// executePlans runs the current plan, and the previous plan when one
// exists, as two parallel queries.
func (e *Engine) executePlans(ctx context.Context, token string, plans resolve.Plans) (current, previous queryplan.Table, err error) {
	type answer struct {
		table queryplan.Table
		err   error
	}

	currentCh := make(chan answer, 1)
	go func() {
		t, err := e.qe.Execute(ctx, plans.Current)
		currentCh <- answer{t, err}
	}()

	var previousCh chan answer
	if plans.Previous != nil {
		previousCh = make(chan answer, 1)
		go func() {
			t, err := e.qe.Execute(ctx, *plans.Previous)
			previousCh <- answer{t, err}
		}()
	}

	curr := <-currentCh
	if curr.err != nil {
		err = newInternalError(ErrCodeQueryEngine, token, "current-range query failed", curr.err)
	}
	if previousCh != nil {
		prev := <-previousCh
		if prev.err != nil && err == nil {
			err = newInternalError(ErrCodeQueryEngine, token, "previous-range query failed", prev.err)
		}
		previous = prev.table
	}
	if err != nil {
		return nil, nil, err
	}
	return curr.table, previous, nil
}

// outputColumns assembles the ordered, path-qualified output column list:
// grouping columns, then base metrics, then derived metrics. Bases
// synthesized for a derived metric stay visible; hiding them is a
// presentation concern this core deliberately does not take on.
func outputColumns(plans resolve.Plans) []string {
	cols := make([]string, 0,
		len(plans.Current.GroupingKeys)+len(plans.Current.Aggregations)+len(plans.Metric.Derived))
	cols = append(cols, plans.Current.GroupingKeys...)
	cols = append(cols, plans.Current.MetricColumns()...)
	for _, d := range plans.Metric.Derived {
		cols = append(cols, d.Name)
	}
	return cols
}
