package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario: seed data, an analytics
// request, and the expected outcome.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description"`

	// Seed lists SQL statements executed in order against a fresh
	// in-memory database before the request runs.
	Seed []string `yaml:"seed,omitempty"`

	// Request is the analytics request in its wire shape. It is
	// decoded through JSON so scenarios use the same field names as
	// request files.
	Request map[string]interface{} `yaml:"request"`

	// Search, OrderBy and Totals mirror the CLI presentation flags.
	Search  *SearchClause `yaml:"search,omitempty"`
	OrderBy string        `yaml:"order_by,omitempty"`
	Totals  bool          `yaml:"totals,omitempty"`

	// Expect describes the outcome: either a result table or a set of
	// validation violation codes.
	Expect Expectation `yaml:"expect"`
}

// SearchClause filters rows by a substring on a display column.
type SearchClause struct {
	Field string `yaml:"field"`
	Value string `yaml:"value"`
}

// Expectation is the asserted outcome of a scenario. Exactly one of
// Rows/Violations applies: a scenario either succeeds with a table or
// fails validation.
type Expectation struct {
	// Columns is the expected output column list, in order. Optional;
	// when empty only rows are checked.
	Columns []string `yaml:"columns,omitempty"`

	// Rows are the expected result rows, in order. Numeric cells
	// compare with a small tolerance; everything else compares exactly.
	// Each expected row is a subset match over the actual row.
	Rows []map[string]interface{} `yaml:"rows,omitempty"`

	// RowCount asserts the number of result rows. Useful alone when
	// exact cell values do not matter.
	RowCount *int `yaml:"row_count,omitempty"`

	// Violations lists expected validation violation codes.
	Violations []string `yaml:"violations,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Request == nil {
		return fmt.Errorf("request is required")
	}
	hasTable := len(s.Expect.Rows) > 0 || len(s.Expect.Columns) > 0 || s.Expect.RowCount != nil
	hasViolations := len(s.Expect.Violations) > 0
	if hasTable == hasViolations {
		return fmt.Errorf("expect must carry either a result table or violations")
	}
	if s.Search != nil && (s.Search.Field == "" || s.Search.Value == "") {
		return fmt.Errorf("search requires both field and value")
	}
	return nil
}
