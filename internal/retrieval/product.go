package retrieval

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/omnireply-ai/messaging-platform/internal/model"
)

// ProductRepository is the catalog surface the product service reads.
type ProductRepository interface {
	ActiveProducts(ctx context.Context, companyID string) ([]model.Product, error)
}

// DefaultProductIntentKeywords is the multilingual keyword list gating
// product retrieval. English plus Spanish and Indonesian; operators extend
// it per market through configuration.
var DefaultProductIntentKeywords = []string{
	// English
	"price", "cost", "how much", "buy", "order", "purchase", "product",
	"catalog", "stock", "available", "availability", "discount",
	// Spanish
	"precio", "cuánto", "cuanto", "comprar", "pedido", "producto",
	"disponible", "descuento",
	// Indonesian
	"harga", "berapa", "beli", "pesan", "produk", "stok", "tersedia",
	"diskon", "promo",
}

// DefaultShortQueryThreshold is the length under which a query is assumed
// to need antecedent context from the conversation ("how much?").
const DefaultShortQueryThreshold = 30

// DefaultProductLimit caps returned products.
const DefaultProductLimit = 5

// ProductService performs keyword product search with structured filters.
type ProductService struct {
	repo            ProductRepository
	intentKeywords  []string
	shortQueryChars int
}

// NewProductService creates a product service. Nil or empty keyword lists
// fall back to the defaults.
func NewProductService(repo ProductRepository, intentKeywords []string, shortQueryChars int) *ProductService {
	if len(intentKeywords) == 0 {
		intentKeywords = DefaultProductIntentKeywords
	}
	if shortQueryChars <= 0 {
		shortQueryChars = DefaultShortQueryThreshold
	}
	return &ProductService{
		repo:            repo,
		intentKeywords:  intentKeywords,
		shortQueryChars: shortQueryChars,
	}
}

// HasPurchaseIntent reports whether any of the given texts contains a
// product-intent keyword.
func (s *ProductService) HasPurchaseIntent(texts ...string) bool {
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, kw := range s.intentKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// ExpandShortQuery prepends recent conversation text when the query is too
// short to stand alone.
func (s *ProductService) ExpandShortQuery(query, recentContext string) string {
	if len(query) >= s.shortQueryChars || recentContext == "" {
		return query
	}
	return strings.TrimSpace(recentContext + " " + query)
}

// Search returns active products matching the query and filters, ranked by
// priority then name, capped at limit.
func (s *ProductService) Search(ctx context.Context, companyID, query string, filters model.ProductFilters, limit int) ([]model.Product, error) {
	if limit <= 0 {
		limit = DefaultProductLimit
	}

	products, err := s.repo.ActiveProducts(ctx, companyID)
	if err != nil {
		return nil, err
	}

	terms := searchTerms(query)
	var matched []model.Product
	for _, p := range products {
		if filters.InStockOnly && !p.InStock {
			continue
		}
		if filters.MinPrice > 0 && p.Price < filters.MinPrice {
			continue
		}
		if filters.MaxPrice > 0 && p.Price > filters.MaxPrice {
			continue
		}
		if len(terms) > 0 && !productMatches(p, terms) {
			continue
		}
		matched = append(matched, p)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority > matched[j].Priority
		}
		return matched[i].Name < matched[j].Name
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func searchTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".,!?¿¡\"'")
		if len(f) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}

func productMatches(p model.Product, terms []string) bool {
	haystack := strings.ToLower(p.Name + " " + p.Description)
	for _, spec := range p.Specs {
		haystack += " " + strings.ToLower(spec)
	}
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

var (
	maxPricePattern = regexp.MustCompile(`(?i)(?:under|below|less than|cheaper than|at most|max(?:imum)?|menos de|por debajo de|di bawah|kurang dari)\s*[$€£]?\s*([\d.,]+)\s*(k|rb)?`)
	minPricePattern = regexp.MustCompile(`(?i)(?:over|above|more than|at least|min(?:imum)?|más de|por encima de|di atas|lebih dari)\s*[$€£]?\s*([\d.,]+)\s*(k|rb)?`)
	inStockPattern  = regexp.MustCompile(`(?i)\b(?:in stock|available now|ready stock|en stock|disponible ya|stok tersedia|ready)\b`)
)

// ExtractFilters pulls price and stock bounds out of free text. It is a
// best-effort heuristic and never fails: malformed input yields empty
// filters.
func ExtractFilters(query string) model.ProductFilters {
	var filters model.ProductFilters

	if m := maxPricePattern.FindStringSubmatch(query); m != nil {
		filters.MaxPrice = parseAmount(m[1], m[2])
	}
	if m := minPricePattern.FindStringSubmatch(query); m != nil {
		filters.MinPrice = parseAmount(m[1], m[2])
	}
	if inStockPattern.MatchString(query) {
		filters.InStockOnly = true
	}
	return filters
}

// parseAmount tolerates thousands separators and a k/rb suffix. It returns
// 0 when the text does not parse as a number.
func parseAmount(digits, suffix string) float64 {
	cleaned := strings.ReplaceAll(digits, ",", "")
	// Strip a trailing dot left over from sentence punctuation.
	cleaned = strings.TrimRight(cleaned, ".")
	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	if suffix != "" {
		val *= 1000
	}
	return val
}
