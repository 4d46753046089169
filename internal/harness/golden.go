package harness

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// ResultSnapshot is the golden-file view of one scenario outcome.
// Rows serialize with sorted keys through encoding/json, so snapshots
// are byte-stable across runs.
type ResultSnapshot struct {
	ScenarioName string                   `json:"scenario_name"`
	Columns      []string                 `json:"columns,omitempty"`
	Rows         []map[string]interface{} `json:"rows,omitempty"`
	Violations   []string                 `json:"violations,omitempty"`
}

// AssertGolden compares a scenario outcome against its golden file in
// testdata/golden/{name}.golden.
//
// Regenerate with:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, outcome *Outcome) {
	t.Helper()

	snapshot := ResultSnapshot{
		ScenarioName: name,
		Columns:      outcome.Columns,
		Violations:   outcome.Violations,
	}
	for _, row := range outcome.Rows {
		m := make(map[string]interface{}, len(row))
		for k, v := range row {
			m[k] = v
		}
		snapshot.Rows = append(snapshot.Rows, m)
	}
	sort.Strings(snapshot.Violations)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		t.Fatalf("marshaling snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
