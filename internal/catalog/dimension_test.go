package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimensionByName_Known(t *testing.T) {
	dim, ok := DimensionByName("shop")
	require.True(t, ok)
	assert.Equal(t, "receipt__shop", dim.Path)
	assert.Equal(t, []string{"id", "name"}, dim.KeyFields)
}

func TestDimensionByName_Unknown(t *testing.T) {
	_, ok := DimensionByName("warehouse")
	assert.False(t, ok)

	// Interval names are not entity dimensions.
	_, ok = DimensionByName("day")
	assert.False(t, ok)
}

func TestQualifiedField(t *testing.T) {
	shop, _ := DimensionByName("shop")
	assert.Equal(t, "receipt__shop__name", shop.QualifiedField("name"))

	product, _ := DimensionByName("product")
	assert.Equal(t, "product__id", product.QualifiedField("id"))
}

func TestDisplayField_LastTwoSegments(t *testing.T) {
	shop, _ := DimensionByName("shop")
	assert.Equal(t, "shop__name", shop.DisplayField("name"))

	category, _ := DimensionByName("category")
	assert.Equal(t, "category__name", category.DisplayField("name"))
	assert.Equal(t, "category__id", category.DisplayField("id"))

	// A two-segment qualified name is its own display name.
	product, _ := DimensionByName("product")
	assert.Equal(t, "product__name", product.DisplayField("name"))
}

func TestAuxiliaryDimensions(t *testing.T) {
	category, _ := DimensionByName("category")
	assert.True(t, category.Auxiliary)

	shopGroup, _ := DimensionByName("shop_group")
	assert.True(t, shopGroup.Auxiliary)

	shop, _ := DimensionByName("shop")
	assert.False(t, shop.Auxiliary)
}

func TestProductFilterFieldsExceedKeyFields(t *testing.T) {
	product, _ := DimensionByName("product")
	assert.Contains(t, product.FilterFields, "article")
	assert.Contains(t, product.FilterFields, "barcode")
	assert.NotContains(t, product.KeyFields, "article")
}

func TestDisplayFieldKnown(t *testing.T) {
	assert.True(t, DisplayFieldKnown("shop__name"))
	assert.True(t, DisplayFieldKnown("product__article"))
	assert.True(t, DisplayFieldKnown("category__name"))

	// Bucket columns are searchable display columns too.
	assert.True(t, DisplayFieldKnown("day"))
	assert.True(t, DisplayFieldKnown("month"))

	assert.False(t, DisplayFieldKnown("turnover"))
	assert.False(t, DisplayFieldKnown("receipt__shop__name"))
	assert.False(t, DisplayFieldKnown("nonsense"))
}
