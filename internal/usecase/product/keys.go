package product

import (
	"fmt"
	"net/url"
	"strconv"

	domain "catalog/backend/internal/domain/product"
)

// Cache key families. Every successful write evicts all of them.
const (
	listPrefix   = "products_list"
	trendingKey  = "trending_products"
	statsKey     = "products_stats"
	searchPrefix = "smart_search:"
	detailPrefix = "product:"
)

// listKey encodes every filter, sort and pagination parameter in a fixed order.
// Absent values render as empty segments. Free-text segments are query-escaped so a
// ":" inside a value cannot shift it into the next segment.
func listKey(f domain.ListFilter) string {
	return fmt.Sprintf("%s:%d:%d:%s:%s:%s:%s:%s:%s:%s",
		listPrefix,
		f.Skip,
		f.Limit,
		url.QueryEscape(f.Search),
		url.QueryEscape(f.Category),
		url.QueryEscape(f.Region),
		formatBound(f.MinPrice),
		formatBound(f.MaxPrice),
		url.QueryEscape(f.SortBy),
		url.QueryEscape(f.Order),
	)
}

func modeKey(mode string, skip, limit int) string {
	return fmt.Sprintf("%s:mode:%s:%d:%d", listPrefix, url.QueryEscape(mode), skip, limit)
}

func detailKey(id int64) string {
	return detailPrefix + strconv.FormatInt(id, 10)
}

func searchKey(normalized string) string {
	return searchPrefix + normalized
}

func formatBound(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
