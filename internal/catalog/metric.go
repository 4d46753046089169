package catalog

import (
	"strings"

	"github.com/roach88/salescope/internal/queryplan"
)

// ValueDomain is the value type a metric aggregates to. It decides which
// option operators a metric accepts and how option values are coerced.
type ValueDomain string

const (
	DomainNumeric ValueDomain = "numeric"
	DomainDate    ValueDomain = "date"
	DomainString  ValueDomain = "string"
)

// Metric describes one base metric: an aggregation over the fact table.
type Metric struct {
	Name   string
	Family queryplan.AggFamily

	// Field is the fact-table column the aggregation folds, or for
	// literal metrics the dimension field they project.
	Field string

	// Round is the decimal rounding applied inside the query (money
	// metrics round to 2 places at the source).
	Round int

	Domain ValueDomain
}

// Diffable reports whether _diff/_diff_percent variants exist for the
// metric. Only numeric aggregates can be subtracted across ranges.
func (m Metric) Diffable() bool {
	return m.Domain == DomainNumeric
}

// metrics is the closed registry of base metrics, in a stable order.
var metrics = []Metric{
	{Name: "turnover", Family: queryplan.AggSum, Field: "total_price", Round: 2, Domain: DomainNumeric},
	{Name: "average_price", Family: queryplan.AggAvg, Field: "price", Round: 2, Domain: DomainNumeric},
	{Name: "income", Family: queryplan.AggSum, Field: "margin_price_total", Round: 2, Domain: DomainNumeric},
	{Name: "sold_product_amount", Family: queryplan.AggSum, Field: "qty", Domain: DomainNumeric},
	{Name: "receipt_amount", Family: queryplan.AggCountDistinct, Field: "receipt_id", Domain: DomainNumeric},
	{Name: "first_product_date", Family: queryplan.AggMin, Field: "date", Domain: DomainDate},
	{Name: "last_product_date", Family: queryplan.AggMax, Field: "date", Domain: DomainDate},
	{Name: "product_article", Family: queryplan.AggLiteral, Field: "product__article", Domain: DomainString},
	{Name: "product_barcode", Family: queryplan.AggLiteral, Field: "product__barcode", Domain: DomainString},
}

var metricIndex = func() map[string]Metric {
	idx := make(map[string]Metric, len(metrics))
	for _, m := range metrics {
		idx[m.Name] = m
	}
	return idx
}()

// MetricByName looks up a base metric by name.
func MetricByName(name string) (Metric, bool) {
	m, ok := metricIndex[name]
	return m, ok
}

// Metrics returns the base registry in listing order.
func Metrics() []Metric {
	out := make([]Metric, len(metrics))
	copy(out, metrics)
	return out
}

const (
	diffSuffix    = "_diff"
	percentSuffix = "_diff_percent"
)

// ParseDerived splits a derived metric name into its base metric and the
// percent flag. Returns ok == false when the name is not a derived form
// or its base does not exist or cannot be diffed.
func ParseDerived(name string) (base Metric, percent bool, ok bool) {
	var baseName string
	switch {
	case strings.HasSuffix(name, percentSuffix):
		baseName, percent = strings.TrimSuffix(name, percentSuffix), true
	case strings.HasSuffix(name, diffSuffix):
		baseName = strings.TrimSuffix(name, diffSuffix)
	default:
		return Metric{}, false, false
	}

	m, found := MetricByName(baseName)
	if !found || !m.Diffable() {
		return Metric{}, false, false
	}
	return m, percent, true
}

// IsMetricColumn reports whether a column name is a known base or derived
// metric. The post-processor uses this to validate sort fields.
func IsMetricColumn(column string) bool {
	if _, ok := MetricByName(column); ok {
		return true
	}
	_, _, ok := ParseDerived(column)
	return ok
}

// OptionOperators returns the option operators a metric's value domain
// accepts on post-aggregation filters.
func OptionOperators(domain ValueDomain) []queryplan.Operator {
	switch domain {
	case DomainString:
		return []queryplan.Operator{queryplan.OpIContains, queryplan.OpIExact}
	default:
		return []queryplan.Operator{
			queryplan.OpLT, queryplan.OpLTE, queryplan.OpGT, queryplan.OpGTE, queryplan.OpExact,
		}
	}
}

// DerivedOptionOperators returns the operators accepted on a derived
// metric's options. These apply to the diffed column as row predicates,
// so exclude is additionally available.
func DerivedOptionOperators() []queryplan.Operator {
	return []queryplan.Operator{
		queryplan.OpLT, queryplan.OpLTE, queryplan.OpGT, queryplan.OpGTE,
		queryplan.OpExact, queryplan.OpExclude,
	}
}
