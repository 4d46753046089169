// Package testutil provides shared test doubles for engine and CLI tests.
package testutil

import (
	"context"
	"sync"

	"github.com/roach88/salescope/internal/queryplan"
)

// FakeQueryEngine serves canned tables in plan order.
//
// Each Execute call records the plan it received and pops the next
// table from the queue; when Err is set every call fails with it.
// Engine tests dispatch the current and previous plans concurrently,
// so the fake keys responses on the plan's date filter rather than on
// call order when Keyed responses are configured.
//
// Thread-safety: safe for concurrent Execute calls.
type FakeQueryEngine struct {
	mu sync.Mutex

	// Tables are served in order for unkeyed use.
	Tables []queryplan.Table

	// Keyed maps a pre-filter value (the range start date) to a table.
	// Takes precedence over Tables when non-nil.
	Keyed map[string]queryplan.Table

	// Err fails every call when set.
	Err error

	// Plans records every plan Execute received.
	Plans []queryplan.Plan

	next int
}

// Execute implements engine.QueryEngine.
func (f *FakeQueryEngine) Execute(_ context.Context, plan queryplan.Plan) (queryplan.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Plans = append(f.Plans, plan)
	if f.Err != nil {
		return nil, f.Err
	}

	if f.Keyed != nil {
		for _, filter := range plan.PreFilters {
			if filter.Operator != queryplan.OpGTE {
				continue
			}
			if s, ok := filter.Value.(string); ok {
				if t, found := f.Keyed[s]; found {
					return t.Clone(), nil
				}
			}
		}
		return queryplan.Table{}, nil
	}

	if f.next >= len(f.Tables) {
		return queryplan.Table{}, nil
	}
	t := f.Tables[f.next]
	f.next++
	return t.Clone(), nil
}
