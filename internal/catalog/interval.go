package catalog

import (
	"time"

	"github.com/roach88/salescope/internal/queryplan"
)

// granularities maps the interval pseudo-dimension names to their bucket
// layout (Go time layout producing the bucket's string form).
var granularities = map[string]struct {
	gran   queryplan.Granularity
	layout string
}{
	"hour":  {queryplan.GranularityHour, "2006-01-02 15:00"},
	"day":   {queryplan.GranularityDay, "2006-01-02"},
	"month": {queryplan.GranularityMonth, "2006-01"},
	"year":  {queryplan.GranularityYear, "2006"},
}

// ParseGranularity resolves an interval pseudo-dimension name ("hour",
// "day", "month", "year") to its granularity.
func ParseGranularity(name string) (queryplan.Granularity, bool) {
	g, ok := granularities[name]
	if !ok {
		return "", false
	}
	return g.gran, true
}

// Granularities returns the interval names in coarseness order.
func Granularities() []string {
	return []string{"hour", "day", "month", "year"}
}

// BucketLayout returns the time layout of a granularity's bucket values.
// Bucket columns carry strings in this layout, so lexical order equals
// chronological order.
func BucketLayout(g queryplan.Granularity) string {
	for _, spec := range granularities {
		if spec.gran == g {
			return spec.layout
		}
	}
	return "2006-01-02"
}

// TruncateToBucket floors a time to the start of its bucket.
func TruncateToBucket(t time.Time, g queryplan.Granularity) time.Time {
	switch g {
	case queryplan.GranularityHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	case queryplan.GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case queryplan.GranularityYear:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}

// FormatBucket renders a time as the bucket string of a granularity,
// flooring first.
func FormatBucket(t time.Time, g queryplan.Granularity) string {
	return TruncateToBucket(t, g).Format(BucketLayout(g))
}
