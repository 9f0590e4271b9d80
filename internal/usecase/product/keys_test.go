package product

import (
	"testing"

	domain "catalog/backend/internal/domain/product"

	"github.com/stretchr/testify/assert"
)

func TestListKeySeparatesValuesContainingColons(t *testing.T) {
	a := listKey(domain.ListFilter{Limit: 100, Search: "a:b", Category: "c"})
	b := listKey(domain.ListFilter{Limit: 100, Search: "a", Category: "b:c"})
	assert.NotEqual(t, a, b)

	c := listKey(domain.ListFilter{Limit: 100, Region: "x:", SortBy: "price"})
	d := listKey(domain.ListFilter{Limit: 100, Region: "x", Order: "price"})
	assert.NotEqual(t, c, d)

	assert.Equal(t, "products_list:0:100::::::price:asc",
		listKey(domain.ListFilter{Limit: 100, SortBy: "price", Order: "asc"}))
	assert.Equal(t, "products_list:0:100:blue+tooth%3Apro:Audio::10:500.5::",
		listKey(domain.ListFilter{Limit: 100, Search: "blue tooth:pro", Category: "Audio", MinPrice: ptr(10.0), MaxPrice: ptr(500.5)}))
}

func TestModeKeyEscapesMode(t *testing.T) {
	assert.Equal(t, "products_list:mode:a%3A0:1:2", modeKey("a:0", 1, 2))
	assert.Equal(t, "products_list:mode:general:0:100", modeKey("general", 0, 100))
}

func ptr(v float64) *float64 { return &v }
