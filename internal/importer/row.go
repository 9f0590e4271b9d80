// Package importer loads products from a CSV file into a running catalog API.
package importer

import (
	"strconv"
	"strings"

	productusecase "catalog/backend/internal/usecase/product"
)

const (
	defaultDescription = "No description provided"
	defaultBrand       = "Unknown"
	defaultCategory    = "Misc"
	defaultRegion      = "India"
	defaultMode        = "general"
	placeholderImage   = "https://via.placeholder.com/300"

	defaultStock = 50
	inStockValue = 100
)

// record gives by-name access to one CSV row. Missing columns read as "".
type record struct {
	columns map[string]int
	fields  []string
}

func (r record) get(name string) string {
	i, ok := r.columns[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func columnIndex(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return columns
}

// buildInput converts a row into a create payload. It returns a non-empty reason
// when the row has to be skipped.
func buildInput(r record) (productusecase.CreateInput, string) {
	name := r.get("name")
	if name == "" {
		return productusecase.CreateInput{}, "missing name"
	}
	price, err := strconv.ParseFloat(r.get("price"), 64)
	if err != nil || price <= 0 {
		return productusecase.CreateInput{}, "invalid price " + strconv.Quote(r.get("price"))
	}

	imageURL := r.get("image_url")
	if !strings.HasPrefix(imageURL, "http") {
		imageURL = placeholderImage
	}
	rating, err := strconv.ParseFloat(r.get("rating"), 64)
	if err != nil {
		rating = 0
	}

	return productusecase.CreateInput{
		Name:        name,
		Description: orDefault(r.get("description"), defaultDescription),
		Brand:       orDefault(r.get("brand"), defaultBrand),
		Category:    orDefault(r.get("category"), defaultCategory),
		Region:      orDefault(r.get("region"), defaultRegion),
		Price:       price,
		Rating:      rating,
		Stock:       parseStock(r.get("stock")),
		Tags:        r.get("tags"),
		ImageURL:    imageURL,
		Mode:        strings.ToLower(orDefault(r.get("mode"), defaultMode)),
	}, ""
}

func parseStock(raw string) int {
	if strings.Contains(strings.ToLower(raw), "in stock") {
		return inStockValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultStock
	}
	return n
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
