// Package querysql compiles query plans to parameterized SQL for the
// SQLite retail schema.
//
// The relationship paths the resolvers emit ("receipt__shop__name") are
// translated through a closed join table to qualified column references;
// the compiler never interpolates values, every comparison is a ?
// placeholder. Output SQL is deterministic for a given plan, including a
// mandatory ORDER BY over the grouping columns so the engine's positional
// alignment is safe.
package querysql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/salescope/internal/queryplan"
)

// factTable is the aggregation base: one row per sold cart item.
const factTable = "cart_items"

// joinSpec describes how one relationship path reaches its table.
type joinSpec struct {
	table    string // joined table
	on       string // join condition, tables fully qualified
	requires string // path that must be joined first ("" = fact table)
}

// joins is the closed path registry. Auxiliary closure tables
// (full_category_product, full_shop_group_shop) appear as ordinary hops:
// the path through them is baked into the dimension catalog.
var joins = map[string]joinSpec{
	"product":  {table: "products", on: "products.id = cart_items.product_id"},
	"supplier": {table: "suppliers", on: "suppliers.id = cart_items.supplier_id"},
	"receipt":  {table: "receipts", on: "receipts.id = cart_items.receipt_id"},
	"product__producer": {
		table: "producers", on: "producers.id = products.producer_id", requires: "product"},
	"product__fullcategoryproduct": {
		table: "full_category_product", on: "full_category_product.product_id = products.id", requires: "product"},
	"product__fullcategoryproduct__category": {
		table: "categories", on: "categories.id = full_category_product.category_id", requires: "product__fullcategoryproduct"},
	"receipt__shop": {
		table: "shops", on: "shops.id = receipts.shop_id", requires: "receipt"},
	"receipt__terminal": {
		table: "terminals", on: "terminals.id = receipts.terminal_id", requires: "receipt"},
	"receipt__shop__fullshopgroupshop": {
		table: "full_shop_group_shop", on: "full_shop_group_shop.shop_id = shops.id", requires: "receipt__shop"},
	"receipt__shop__fullshopgroupshop__group": {
		table: "shop_groups", on: "shop_groups.id = full_shop_group_shop.group_id", requires: "receipt__shop__fullshopgroupshop"},
}

// bucketFormats maps a granularity to its strftime format. The formats
// produce ISO-prefix strings, so lexical order equals time order.
var bucketFormats = map[queryplan.Granularity]string{
	queryplan.GranularityHour:  "%Y-%m-%d %H:00",
	queryplan.GranularityDay:   "%Y-%m-%d",
	queryplan.GranularityMonth: "%Y-%m",
	queryplan.GranularityYear:  "%Y",
}

// Compile converts a plan to (sql, params). The params line up with the
// placeholders in order: WHERE first, then HAVING.
func Compile(plan queryplan.Plan) (string, []any, error) {
	c := &compiler{plan: plan, paths: map[string]bool{}}
	return c.compile()
}

type compiler struct {
	plan   queryplan.Plan
	paths  map[string]bool // relationship paths needing a join
	params []any
}

func (c *compiler) compile() (string, []any, error) {
	selects, groupBys, orderBys, err := c.compileProjection()
	if err != nil {
		return "", nil, err
	}

	where, err := c.compileFilters(c.plan.PreFilters, c.columnExpr)
	if err != nil {
		return "", nil, err
	}
	having, err := c.compileFilters(c.plan.PostFilters, c.aliasExpr)
	if err != nil {
		return "", nil, err
	}

	joinClause, err := c.compileJoins()
	if err != nil {
		return "", nil, err
	}

	var sql strings.Builder
	sql.WriteString("SELECT " + strings.Join(selects, ", "))
	sql.WriteString(" FROM " + factTable)
	sql.WriteString(joinClause)
	if where != "" {
		sql.WriteString(" WHERE " + where)
	}
	if len(groupBys) > 0 {
		sql.WriteString(" GROUP BY " + strings.Join(groupBys, ", "))
	}
	if having != "" {
		sql.WriteString(" HAVING " + having)
	}
	if len(orderBys) > 0 {
		sql.WriteString(" ORDER BY " + strings.Join(orderBys, ", "))
	}

	return sql.String(), c.params, nil
}

// compileProjection builds the select list, the grouping expressions and
// the deterministic ordering, all in plan order.
func (c *compiler) compileProjection() (selects, groupBys, orderBys []string, err error) {
	bucketColumn := ""
	if c.plan.TimeBucket != nil {
		bucketColumn = c.plan.TimeBucket.Column
	}

	for _, key := range c.plan.GroupingKeys {
		var expr string
		if key == bucketColumn {
			format, ok := bucketFormats[c.plan.TimeBucket.Granularity]
			if !ok {
				return nil, nil, nil, fmt.Errorf("unknown granularity %q", c.plan.TimeBucket.Granularity)
			}
			expr = fmt.Sprintf("strftime('%s', %s.date)", format, factTable)
		} else {
			expr, err = c.columnExpr(key)
			if err != nil {
				return nil, nil, nil, err
			}
		}
		selects = append(selects, fmt.Sprintf("%s AS %q", expr, key))
		groupBys = append(groupBys, expr)
		orderBys = append(orderBys, fmt.Sprintf("%q ASC", key))
	}

	for _, agg := range c.plan.Aggregations {
		expr, err := c.aggregateExpr(agg)
		if err != nil {
			return nil, nil, nil, err
		}
		selects = append(selects, fmt.Sprintf("%s AS %q", expr, agg.Name))
	}

	// Advisory hints still register their joins, so a hinted path is
	// joined even when only filtered on.
	for _, hint := range c.plan.JoinHints {
		if _, ok := joins[hint]; ok {
			c.requirePath(hint)
		}
	}

	return selects, groupBys, orderBys, nil
}

// aggregateExpr renders one aggregation.
func (c *compiler) aggregateExpr(agg queryplan.AggregationExpr) (string, error) {
	if agg.Family == queryplan.AggLiteral {
		if agg.Field == "" {
			return "'-'", nil
		}
		// A literal over a grouped dimension is functionally dependent
		// on the grouping key; MIN keeps the projection deterministic.
		col, err := c.columnExpr(agg.Field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("MIN(%s)", col), nil
	}

	col, err := c.columnExpr(agg.Field)
	if err != nil {
		return "", err
	}
	if agg.Field == "date" {
		// The sale date aggregates to an ISO day string.
		col = fmt.Sprintf("strftime('%%Y-%%m-%%d', %s)", col)
	}

	var expr string
	switch agg.Family {
	case queryplan.AggSum:
		expr = fmt.Sprintf("SUM(%s)", col)
	case queryplan.AggAvg:
		expr = fmt.Sprintf("AVG(%s)", col)
	case queryplan.AggCountDistinct:
		expr = fmt.Sprintf("COUNT(DISTINCT %s)", col)
	case queryplan.AggMin:
		expr = fmt.Sprintf("MIN(%s)", col)
	case queryplan.AggMax:
		expr = fmt.Sprintf("MAX(%s)", col)
	default:
		return "", fmt.Errorf("unsupported aggregation family %q", agg.Family)
	}
	if agg.Round > 0 {
		expr = fmt.Sprintf("ROUND(%s, %d)", expr, agg.Round)
	}
	return expr, nil
}

// columnExpr resolves a path-qualified field to a table.column reference,
// registering the joins its path needs. Fields without a path live on the
// fact table.
func (c *compiler) columnExpr(qualified string) (string, error) {
	path, column := splitQualified(qualified)
	if path == "" {
		return fmt.Sprintf("%s.%s", factTable, column), nil
	}

	spec, ok := joins[path]
	if !ok {
		return "", fmt.Errorf("unknown relationship path %q", path)
	}
	c.requirePath(path)
	return fmt.Sprintf("%s.%s", spec.table, column), nil
}

// aliasExpr resolves a post-filter field: an aggregation output alias.
func (c *compiler) aliasExpr(field string) (string, error) {
	for _, agg := range c.plan.Aggregations {
		if agg.Name == field {
			return fmt.Sprintf("%q", field), nil
		}
	}
	return "", fmt.Errorf("post filter on unknown aggregation %q", field)
}

// splitQualified splits "receipt__shop__name" into its longest known
// path prefix and the trailing column.
func splitQualified(qualified string) (path, column string) {
	idx := strings.LastIndex(qualified, "__")
	for idx > 0 {
		prefix := qualified[:idx]
		if _, ok := joins[prefix]; ok {
			return prefix, qualified[idx+2:]
		}
		idx = strings.LastIndex(prefix, "__")
	}
	return "", qualified
}

func (c *compiler) requirePath(path string) {
	for path != "" {
		if c.paths[path] {
			return
		}
		c.paths[path] = true
		path = joins[path].requires
	}
}

// compileJoins renders the collected paths as INNER JOINs, dependencies
// first, ties broken lexically for deterministic SQL.
func (c *compiler) compileJoins() (string, error) {
	paths := make([]string, 0, len(c.paths))
	for path := range c.paths {
		paths = append(paths, path)
	}
	sort.Slice(paths, func(i, j int) bool {
		di, dj := strings.Count(paths[i], "__"), strings.Count(paths[j], "__")
		if di != dj {
			return di < dj
		}
		return paths[i] < paths[j]
	})

	var b strings.Builder
	for _, path := range paths {
		spec := joins[path]
		b.WriteString(fmt.Sprintf(" JOIN %s ON %s", spec.table, spec.on))
	}
	return b.String(), nil
}

// compileFilters renders a filter list as an AND-joined condition,
// appending parameters in order. resolveField maps a filter's field to
// its SQL expression.
func (c *compiler) compileFilters(filters []queryplan.Filter, resolveField func(string) (string, error)) (string, error) {
	var conds []string
	for _, f := range filters {
		expr, err := resolveField(f.Field)
		if err != nil {
			return "", err
		}
		if isDateField(f.Field) {
			expr = fmt.Sprintf("strftime('%%Y-%%m-%%d', %s)", expr)
		}

		cond, err := c.condition(expr, f)
		if err != nil {
			return "", err
		}
		conds = append(conds, cond)
	}
	return strings.Join(conds, " AND "), nil
}

// isDateField reports whether a pre-filter binds the fact sale date.
func isDateField(field string) bool {
	return field == "date"
}

func (c *compiler) condition(expr string, f queryplan.Filter) (string, error) {
	switch f.Operator {
	case queryplan.OpExact:
		c.params = append(c.params, f.Value)
		return expr + " = ?", nil
	case queryplan.OpExclude:
		c.params = append(c.params, f.Value)
		return expr + " <> ?", nil
	case queryplan.OpLT:
		c.params = append(c.params, f.Value)
		return expr + " < ?", nil
	case queryplan.OpLTE:
		c.params = append(c.params, f.Value)
		return expr + " <= ?", nil
	case queryplan.OpGT:
		c.params = append(c.params, f.Value)
		return expr + " > ?", nil
	case queryplan.OpGTE:
		c.params = append(c.params, f.Value)
		return expr + " >= ?", nil
	case queryplan.OpIn:
		values, ok := f.Value.([]any)
		if !ok || len(values) == 0 {
			return "", fmt.Errorf("operator %q requires a non-empty list", f.Operator)
		}
		c.params = append(c.params, values...)
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		return fmt.Sprintf("%s IN (%s)", expr, placeholders), nil
	case queryplan.OpIContains:
		c.params = append(c.params, f.Value)
		return fmt.Sprintf("instr(lower(%s), lower(?)) > 0", expr), nil
	case queryplan.OpIExact:
		c.params = append(c.params, f.Value)
		return fmt.Sprintf("lower(%s) = lower(?)", expr), nil
	default:
		return "", fmt.Errorf("unsupported filter operator %q", f.Operator)
	}
}
