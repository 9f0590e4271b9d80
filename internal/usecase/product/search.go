package product

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"catalog/backend/internal/cache"
	domain "catalog/backend/internal/domain/product"

	"go.uber.org/zap"
)

const (
	searchCandidateLimit = 50
	searchResultLimit    = 20
)

var (
	// Filler phrases must stand alone; letters and digits of any script count as word characters.
	fillerPattern = regexp.MustCompile(`(^|[^\p{L}\p{N}_])(?:i want to|want|need|looking for|please)([^\p{L}\p{N}_]|$)`)
	tokenPattern  = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// SearchResult is one ranked match for a problem description.
type SearchResult struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Rating      float64 `json:"rating"`
	Stock       int     `json:"stock"`
	ImageURL    string  `json:"image_url"`
	Description string  `json:"description"`
	// Reason lists the keywords found in the product, or is null when none matched literally.
	Reason *string `json:"reason"`
	Score  float64 `json:"score"`
}

// Search ranks products against a free-text problem description such as
// "I want to clean my dirty earbuds". Input that reduces to no keywords returns an
// empty result without touching the store. A store failure returns an empty result
// together with an error wrapping domain.ErrStoreUnavailable.
func (s *Service) Search(ctx context.Context, description string) ([]SearchResult, error) {
	normalized := normalizeQuery(description)
	tokens := tokenize(normalized)
	if len(tokens) == 0 {
		return []SearchResult{}, nil
	}

	results, _, err := cache.Remember(ctx, s.cache, searchKey(normalized), s.ttl,
		func(ctx context.Context) ([]SearchResult, error) {
			keywords := expandKeywords(tokens)
			candidates, err := s.repo.SearchCandidates(ctx, keywords, searchCandidateLimit)
			if err != nil {
				return nil, err
			}
			return rank(candidates, keywords), nil
		})
	if err != nil {
		s.logger.Error("search failed", zap.String("query", normalized), zap.Error(err))
		return []SearchResult{}, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if results == nil {
		results = []SearchResult{}
	}
	return results, nil
}

// normalizeQuery lowercases the input, strips filler phrases and collapses whitespace.
func normalizeQuery(description string) string {
	q := strings.ToLower(strings.TrimSpace(description))
	// A match consumes its boundary characters, so adjacent fillers take another pass.
	for {
		next := fillerPattern.ReplaceAllString(q, "${1} ${2}")
		if next == q {
			break
		}
		q = next
	}
	return strings.Join(strings.Fields(q), " ")
}

// tokenize extracts distinct word runs longer than two characters, in input order.
func tokenize(normalized string) []string {
	var tokens []string
	seen := make(map[string]struct{})
	for _, w := range tokenPattern.FindAllString(normalized, -1) {
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		tokens = append(tokens, w)
	}
	return tokens
}

// expandKeywords adds the synonyms of every token, one level deep. Tokens come first,
// then synonyms in table order, without duplicates.
func expandKeywords(tokens []string) []string {
	keywords := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	add := func(w string) {
		if _, dup := seen[w]; !dup {
			seen[w] = struct{}{}
			keywords = append(keywords, w)
		}
	}
	for _, t := range tokens {
		add(t)
	}
	for _, t := range tokens {
		for _, syn := range synonyms[t] {
			add(syn)
		}
	}
	return keywords
}

type scored struct {
	product *domain.Product
	matched []string
	score   float64
}

// rank scores candidates, orders them by descending score keeping retrieval order for
// ties, and projects the top results.
func rank(candidates []*domain.Product, keywords []string) []SearchResult {
	items := make([]scored, 0, len(candidates))
	for _, p := range candidates {
		text := strings.ToLower(strings.Join([]string{p.Name, p.Description, p.Tags, p.Category, p.Brand}, " "))
		var matched []string
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				matched = append(matched, kw)
			}
		}
		score := 2*float64(len(matched)) + p.Rating
		if p.Stock > 0 {
			score++
		}
		items = append(items, scored{product: p, matched: matched, score: score})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })
	if len(items) > searchResultLimit {
		items = items[:searchResultLimit]
	}

	results := make([]SearchResult, 0, len(items))
	for _, it := range items {
		p := it.product
		r := SearchResult{
			ID:          p.ID,
			Name:        p.Name,
			Price:       p.Price,
			Rating:      p.Rating,
			Stock:       p.Stock,
			ImageURL:    p.ImageURL,
			Description: p.Description,
			Score:       it.score,
		}
		if len(it.matched) > 0 {
			reason := "Matched: " + strings.Join(it.matched, ", ")
			r.Reason = &reason
		}
		results = append(results, r)
	}
	return results
}
