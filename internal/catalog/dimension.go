// Package catalog holds the static dimension and metric registries.
//
// The registries are closed tagged variants: every dimension and metric the
// system knows is declared here with its metadata (relationship path, field
// set, aggregation family, value domain), and lookups go through plain
// tables instead of any reflective dispatch. The catalogs are read-only
// after init and safe to share across concurrent requests.
package catalog

import "strings"

// FieldKind is the scalar type of a filterable dimension field.
type FieldKind string

const (
	FieldNumeric FieldKind = "numeric"
	FieldString  FieldKind = "string"
)

// Dimension describes one grouping axis over the sales ledger.
type Dimension struct {
	// Name is the request-facing dimension name.
	Name string

	// Path is the relationship path from the fact table (cart items) to
	// the dimension's entity, segments joined with "__". For auxiliary
	// dimensions the path already routes through the closure relation.
	Path string

	// KeyFields are grouped and projected for this dimension.
	KeyFields []string

	// FilterFields are accepted in a dimension filter. A superset of
	// KeyFields for product, identical otherwise.
	FilterFields map[string]FieldKind

	// Auxiliary marks dimensions reached through a precomputed
	// transitive-closure relation rather than a direct foreign key.
	Auxiliary bool
}

// QualifiedField returns the path-qualified column for one of the
// dimension's fields, e.g. shop + "name" → "receipt__shop__name".
func (d Dimension) QualifiedField(field string) string {
	return d.Path + "__" + field
}

// DisplayField returns the short output column for one of the dimension's
// fields: the last two path segments of the qualified name. A qualified
// name that is already two segments long is its own display name.
func (d Dimension) DisplayField(field string) string {
	parts := strings.Split(d.QualifiedField(field), "__")
	return parts[len(parts)-2] + "__" + parts[len(parts)-1]
}

// dimensions is the closed registry, in a stable listing order.
var dimensions = []Dimension{
	{
		Name:      "product",
		Path:      "product",
		KeyFields: []string{"id", "name"},
		FilterFields: map[string]FieldKind{
			"id": FieldNumeric, "name": FieldString,
			"article": FieldString, "barcode": FieldString,
		},
	},
	{
		Name:      "category",
		Path:      "product__fullcategoryproduct__category",
		KeyFields: []string{"id", "name"},
		FilterFields: map[string]FieldKind{
			"id": FieldNumeric, "name": FieldString,
		},
		Auxiliary: true,
	},
	{
		Name:      "producer",
		Path:      "product__producer",
		KeyFields: []string{"name"},
		FilterFields: map[string]FieldKind{
			"name": FieldString,
		},
	},
	{
		Name:      "supplier",
		Path:      "supplier",
		KeyFields: []string{"name"},
		FilterFields: map[string]FieldKind{
			"name": FieldString,
		},
	},
	{
		Name:      "terminal",
		Path:      "receipt__terminal",
		KeyFields: []string{"name"},
		FilterFields: map[string]FieldKind{
			"name": FieldString,
		},
	},
	{
		Name:      "shop",
		Path:      "receipt__shop",
		KeyFields: []string{"id", "name"},
		FilterFields: map[string]FieldKind{
			"id": FieldNumeric, "name": FieldString,
		},
	},
	{
		Name:      "shop_group",
		Path:      "receipt__shop__fullshopgroupshop__group",
		KeyFields: []string{"id", "name"},
		FilterFields: map[string]FieldKind{
			"id": FieldNumeric, "name": FieldString,
		},
		Auxiliary: true,
	},
}

var dimensionIndex = func() map[string]Dimension {
	idx := make(map[string]Dimension, len(dimensions))
	for _, d := range dimensions {
		idx[d.Name] = d
	}
	return idx
}()

// DimensionByName looks up a dimension. The boolean is false for unknown
// names, including time-bucket names (those are not entity dimensions).
func DimensionByName(name string) (Dimension, bool) {
	d, ok := dimensionIndex[name]
	return d, ok
}

// Dimensions returns the registry in listing order.
func Dimensions() []Dimension {
	out := make([]Dimension, len(dimensions))
	copy(out, dimensions)
	return out
}

// DisplayFieldKnown reports whether a short output column (e.g.
// "shop__name" or a bucket column like "day") names a dimension-exposed
// field. The post-processor uses this to validate search fields.
func DisplayFieldKnown(column string) bool {
	if _, ok := ParseGranularity(column); ok {
		return true
	}
	for _, d := range dimensions {
		for field := range d.FilterFields {
			if d.DisplayField(field) == column {
				return true
			}
		}
	}
	return false
}
