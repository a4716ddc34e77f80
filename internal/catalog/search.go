package catalog

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/imrishuroy/storefront-checkout/internal/money"
)

const all = "all"

// Sort orders accepted by search.
const (
	SortPriceLowToHigh  = "price-low-to-high"
	SortPriceHighToLow  = "price-high-to-low"
	SortNewestArrivals  = "newest-arrivals"
	SortAvgReview       = "avg-customer-review"
	SortBestSelling     = "best-selling"
	defaultSort         = SortBestSelling
	defaultView         = "grid"
	maxSearchPageNumber = 10000
)

// SortOption is one entry of the sort selector.
type SortOption struct {
	Value string `json:"value"`
	Name  string `json:"name"`
}

var SortOrders = []SortOption{
	{Value: SortPriceLowToHigh, Name: "Price: Low to high"},
	{Value: SortPriceHighToLow, Name: "Price: High to low"},
	{Value: SortNewestArrivals, Name: "Newest arrivals"},
	{Value: SortAvgReview, Name: "Avg. customer review"},
	{Value: SortBestSelling, Name: "Best selling"},
}

// SearchParams are the search page query parameters. Every filter
// defaults to "all".
type SearchParams struct {
	Q        string `json:"q"`
	Category string `json:"category"`
	Tag      string `json:"tag"`
	Price    string `json:"price"`
	Rating   string `json:"rating"`
	Sort     string `json:"sort"`
	Page     int    `json:"page"`
	View     string `json:"view"`
}

// ParseSearchParams reads the query string, applying defaults to missing
// or malformed values.
func ParseSearchParams(q url.Values) SearchParams {
	p := SearchParams{
		Q:        orDefault(q.Get("q"), all),
		Category: orDefault(q.Get("category"), all),
		Tag:      orDefault(q.Get("tag"), all),
		Price:    orDefault(q.Get("price"), all),
		Rating:   orDefault(q.Get("rating"), all),
		Sort:     orDefault(q.Get("sort"), defaultSort),
		Page:     1,
		View:     orDefault(q.Get("view"), defaultView),
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 && n <= maxSearchPageNumber {
		p.Page = n
	}
	if p.View != "list" {
		p.View = defaultView
	}
	return p
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Filtered reports whether any filter narrows the search.
func (p SearchParams) Filtered() bool {
	return p.Q != all || p.Category != all || p.Tag != all || p.Price != all || p.Rating != all
}

// Title is the search page title.
func (p SearchParams) Title() string {
	if !p.Filtered() {
		return "Search Products"
	}
	parts := []string{"Search"}
	if p.Q != all {
		parts = append(parts, p.Q)
	}
	title := strings.Join(parts, " ")
	for _, f := range []struct{ label, value string }{
		{"Category", p.Category},
		{"Tag", p.Tag},
		{"Price", p.Price},
		{"Rating", p.Rating},
	} {
		if f.value != all {
			title += " : " + f.label + " " + f.value
		}
	}
	return title
}

// FilterURL returns the search URL with the given parameters replaced.
// Changing a filter resets the page unless the page itself is set.
func (p SearchParams) FilterURL(overrides map[string]string) string {
	v := url.Values{}
	v.Set("q", p.Q)
	v.Set("category", p.Category)
	v.Set("tag", p.Tag)
	v.Set("price", p.Price)
	v.Set("rating", p.Rating)
	v.Set("sort", p.Sort)
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("view", p.View)
	for k, val := range overrides {
		v.Set(k, val)
	}
	if _, ok := overrides["page"]; !ok && len(overrides) > 0 {
		v.Set("page", "1")
	}
	return "/search?" + v.Encode()
}

type priceRange struct {
	lo, hi money.Amount
}

func parsePriceRange(s string) (priceRange, bool) {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return priceRange{}, false
	}
	from, err := money.Parse(lo)
	if err != nil {
		return priceRange{}, false
	}
	to, err := money.Parse(hi)
	if err != nil {
		return priceRange{}, false
	}
	return priceRange{lo: from, hi: to}, true
}

// match reports whether a published product passes every filter.
func (p SearchParams) match(pr Product) bool {
	if p.Q != all && !strings.Contains(strings.ToLower(pr.Name), strings.ToLower(p.Q)) {
		return false
	}
	if p.Category != all && pr.Category != p.Category {
		return false
	}
	if p.Tag != all && !pr.hasTag(p.Tag) {
		return false
	}
	if p.Price != all {
		if r, ok := parsePriceRange(p.Price); ok {
			if pr.Price.Cmp(r.lo) < 0 || pr.Price.Cmp(r.hi) > 0 {
				return false
			}
		}
	}
	if p.Rating != all {
		if floor, err := strconv.ParseFloat(p.Rating, 64); err == nil && pr.AvgRating < floor {
			return false
		}
	}
	return true
}

func sortProducts(products []Product, order string) {
	less := func(i, j int) bool {
		a, b := products[i], products[j]
		switch order {
		case SortPriceLowToHigh:
			return a.Price.Cmp(b.Price) < 0
		case SortPriceHighToLow:
			return a.Price.Cmp(b.Price) > 0
		case SortNewestArrivals:
			return a.CreatedAt.After(b.CreatedAt)
		case SortAvgReview:
			return a.AvgRating > b.AvgRating
		default:
			return a.NumSales > b.NumSales
		}
	}
	sort.SliceStable(products, less)
}

// SearchResult is one page of search results.
type SearchResult struct {
	Products      []Product `json:"products"`
	TotalProducts int       `json:"total_products"`
	TotalPages    int       `json:"total_pages"`
	From          int       `json:"from"`
	To            int       `json:"to"`
}

// Search filters, sorts and pages products.
func Search(products []Product, p SearchParams, pageSize int) SearchResult {
	matched := make([]Product, 0)
	for _, pr := range products {
		if pr.IsPublished && p.match(pr) {
			matched = append(matched, pr)
		}
	}
	sortProducts(matched, p.Sort)

	page, total := paginate(matched, p.Page, pageSize)
	res := SearchResult{
		Products:      page,
		TotalProducts: len(matched),
		TotalPages:    total,
	}
	if len(page) > 0 {
		res.From = pageSize*(p.Page-1) + 1
		res.To = res.From + len(page) - 1
	}
	return res
}

func paginate(products []Product, page, limit int) ([]Product, int) {
	if limit <= 0 {
		limit = len(products)
	}
	if page < 1 {
		page = 1
	}
	totalPages := 0
	if limit > 0 {
		totalPages = (len(products) + limit - 1) / limit
	}
	start := (page - 1) * limit
	if start >= len(products) {
		return []Product{}, totalPages
	}
	end := min(start+limit, len(products))
	return products[start:end], totalPages
}

// Categories lists the distinct categories of published products.
func Categories(products []Product) []string {
	return distinct(products, func(p Product) []string { return []string{p.Category} })
}

// Tags lists the distinct tags of published products.
func Tags(products []Product) []string {
	return distinct(products, func(p Product) []string { return p.Tags })
}

func distinct(products []Product, values func(Product) []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, p := range products {
		if !p.IsPublished {
			continue
		}
		for _, v := range values(p) {
			if _, ok := seen[v]; ok || v == "" {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
