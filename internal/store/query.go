package store

import (
	"context"
	"fmt"

	"github.com/roach88/salescope/internal/queryplan"
	"github.com/roach88/salescope/internal/querysql"
)

// Execute compiles a plan to SQL and runs it, satisfying the engine's
// QueryEngine interface. Rows come back in the compiled ORDER BY order,
// so results are deterministic run-to-run for the same inputs.
func (s *Store) Execute(ctx context.Context, plan queryplan.Plan) (queryplan.Table, error) {
	query, params, err := querysql.Compile(plan)
	if err != nil {
		return nil, fmt.Errorf("compile plan: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("execute plan: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	table := queryplan.Table{}
	for rows.Next() {
		values := make([]any, len(columns))
		scans := make([]any, len(columns))
		for i := range values {
			scans[i] = &values[i]
		}
		if err := rows.Scan(scans...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(queryplan.Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeScalar(values[i])
		}
		table = append(table, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return table, nil
}

// normalizeScalar converts driver values to the row scalar set: []byte
// becomes string, everything else (int64, float64, string, nil) passes
// through.
func normalizeScalar(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
