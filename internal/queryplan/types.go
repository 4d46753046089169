package queryplan

// AggFamily identifies the aggregation family of a metric expression.
//
// The set is closed: the QueryEngine contract (sum, avg, count-distinct,
// min, max, literal) is the full list, and backend compilers switch
// exhaustively over it.
type AggFamily string

const (
	AggSum           AggFamily = "sum"
	AggAvg           AggFamily = "avg"
	AggCountDistinct AggFamily = "count_distinct"
	AggMin           AggFamily = "min"
	AggMax           AggFamily = "max"

	// AggLiteral projects a constant or a functionally dependent field
	// (e.g. product_article when grouping by product) instead of folding
	// rows. Field == "" means the literal placeholder "-".
	AggLiteral AggFamily = "literal"
)

// Granularity is the truncation unit of the time-bucket pseudo-dimension.
type Granularity string

const (
	GranularityHour  Granularity = "hour"
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

// Operator is a filter comparison operator.
//
// Pre-aggregation filters may use the full set; post-aggregation filters
// are restricted by the metric's value domain at validation time, so by
// the time a Plan exists every operator in it is known-good.
type Operator string

const (
	OpExact     Operator = "exact"
	OpExclude   Operator = "exclude"
	OpLT        Operator = "lt"
	OpLTE       Operator = "lte"
	OpGT        Operator = "gt"
	OpGTE       Operator = "gte"
	OpIn        Operator = "in"
	OpIContains Operator = "icontains"
	OpIExact    Operator = "iexact"
)

// AggregationExpr describes one output column computed by the QueryEngine.
type AggregationExpr struct {
	// Name is the output column, which is also the metric name.
	Name string `json:"name"`

	// Family selects the aggregation.
	Family AggFamily `json:"family"`

	// Field is the path-qualified input field. For fact-table columns the
	// path is empty (e.g. "total_price"); literal expressions may name a
	// dimension field (e.g. "product__article") or be empty for the
	// placeholder value.
	Field string `json:"field,omitempty"`

	// Round, when positive, asks the engine to round the aggregate to
	// that many decimal places.
	Round int `json:"round,omitempty"`
}

// Filter is a single comparison, either pre-aggregation (Field is a
// path-qualified column) or post-aggregation (Field is an aggregation
// output name).
type Filter struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// TimeBucket describes the synthetic interval dimension: the fact date
// truncated to a granularity and grouped on.
type TimeBucket struct {
	// Column is the output column name, by convention the granularity
	// name itself ("day", "month", ...).
	Column      string      `json:"column"`
	Granularity Granularity `json:"granularity"`
}

// Plan is the complete description of one aggregation query, handed to a
// QueryEngine implementation. Plans are immutable once built; the
// resolvers return fresh values rather than mutating shared state.
//
// Two plans are produced per request when derived metrics are present:
// the full plan for the current range and an adapted plan for the
// previous range that carries only the base metrics some derived metric
// depends on.
type Plan struct {
	// GroupingKeys are the path-qualified dimension columns, in request
	// order. The time-bucket column, when present, is included here too
	// so the key order matches the output column order.
	GroupingKeys []string `json:"grouping_keys"`

	// TimeBucket is set when one of the grouping keys is the interval
	// pseudo-dimension.
	TimeBucket *TimeBucket `json:"time_bucket,omitempty"`

	// PreFilters restrict fact rows before grouping. Date-range bounds
	// are carried here as inclusive gte/lte pairs on the fact date.
	PreFilters []Filter `json:"pre_filters,omitempty"`

	// Aggregations are the metric expressions, in request order.
	Aggregations []AggregationExpr `json:"aggregations"`

	// PostFilters restrict groups after aggregation, keyed by
	// aggregation output name.
	PostFilters []Filter `json:"post_filters,omitempty"`

	// JoinHints lists the relationship paths the engine will have to
	// traverse. Advisory: correctness does not depend on them, they only
	// let a backend prepare its joins up front.
	JoinHints []string `json:"join_hints,omitempty"`
}

// HasTimeBucket reports whether the plan groups on the interval dimension.
func (p Plan) HasTimeBucket() bool {
	return p.TimeBucket != nil
}

// MetricColumns returns the aggregation output names in plan order.
func (p Plan) MetricColumns() []string {
	cols := make([]string, 0, len(p.Aggregations))
	for _, agg := range p.Aggregations {
		cols = append(cols, agg.Name)
	}
	return cols
}
