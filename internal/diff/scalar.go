package diff

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/salescope/internal/queryplan"
	"github.com/roach88/salescope/internal/request"
)

// round2 rounds to two decimal places through decimal arithmetic, so
// results like 0.1+0.2 come out as 0.3 and not a float artifact.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// subtract computes current − previous, rounded.
func subtract(current, previous float64) float64 {
	return round2(current - previous)
}

// percentDiff computes (current − previous) × 100 / previous, rounded.
// A zero baseline degrades to the raw scaled delta instead of dividing:
// division by zero is a defined fallback here, never an error.
func percentDiff(current, previous float64) float64 {
	delta := decimal.NewFromFloat(current).Sub(decimal.NewFromFloat(previous)).Mul(decimal.NewFromInt(100))
	if previous != 0 {
		delta = delta.Div(decimal.NewFromFloat(previous))
	}
	return delta.Round(2).InexactFloat64()
}

// matchesOption evaluates one derived-metric option against a diffed
// value. Numeric comparison when both sides coerce; exact/exclude fall
// back to string equality otherwise; ordering operators on non-numeric
// values never match.
func matchesOption(value any, opt request.MetricOption) bool {
	v, vOK := request.CoerceFloat(value)
	w, wOK := request.CoerceFloat(opt.Value)

	if vOK && wOK {
		switch queryplan.Operator(opt.Operator) {
		case queryplan.OpExact:
			return v == w
		case queryplan.OpExclude:
			return v != w
		case queryplan.OpLT:
			return v < w
		case queryplan.OpLTE:
			return v <= w
		case queryplan.OpGT:
			return v > w
		case queryplan.OpGTE:
			return v >= w
		default:
			return false
		}
	}

	switch queryplan.Operator(opt.Operator) {
	case queryplan.OpExact:
		return fmt.Sprint(value) == fmt.Sprint(opt.Value)
	case queryplan.OpExclude:
		return fmt.Sprint(value) != fmt.Sprint(opt.Value)
	default:
		return false
	}
}

// matchesAllOptions applies every option of a derived metric.
func matchesAllOptions(value any, opts []request.MetricOption) bool {
	for _, opt := range opts {
		if !matchesOption(value, opt) {
			return false
		}
	}
	return true
}
