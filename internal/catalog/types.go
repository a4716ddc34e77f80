// Package catalog serves products, search and static content pages, and
// keeps each visitor's browsing history.
package catalog

import (
	"fmt"
	"time"

	"github.com/imrishuroy/storefront-checkout/internal/money"
)

// Product represents the item stored in the products DynamoDB table.
type Product struct {
	Slug         string       `json:"slug" dynamodbav:"slug"` // PK
	ProductID    string       `json:"product_id" dynamodbav:"product_id"`
	Name         string       `json:"name" dynamodbav:"name"`
	Category     string       `json:"category" dynamodbav:"category"`
	Brand        string       `json:"brand" dynamodbav:"brand"`
	Description  string       `json:"description" dynamodbav:"description"`
	Images       []string     `json:"images" dynamodbav:"images"`
	Price        money.Amount `json:"price" dynamodbav:"price"`
	ListPrice    money.Amount `json:"list_price" dynamodbav:"list_price"`
	CountInStock int          `json:"count_in_stock" dynamodbav:"count_in_stock"`
	Tags         []string     `json:"tags" dynamodbav:"tags"`
	Colors       []string     `json:"colors" dynamodbav:"colors"`
	Sizes        []string     `json:"sizes" dynamodbav:"sizes"`
	AvgRating    float64      `json:"avg_rating" dynamodbav:"avg_rating"`
	NumReviews   int          `json:"num_reviews" dynamodbav:"num_reviews"`
	NumSales     int          `json:"num_sales" dynamodbav:"num_sales"`
	IsPublished  bool         `json:"is_published" dynamodbav:"is_published"`
	CreatedAt    time.Time    `json:"created_at" dynamodbav:"created_at"`
}

func (p Product) hasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// StockBadge is the availability line on the product page.
func StockBadge(countInStock int) string {
	switch {
	case countInStock > 3:
		return "In Stock"
	case countInStock > 0:
		return fmt.Sprintf("Only %d left in stock", countInStock)
	default:
		return "Out of Stock"
	}
}

// WebPage is a static content page such as "about-us".
type WebPage struct {
	Slug        string    `json:"slug" dynamodbav:"slug"` // PK
	Title       string    `json:"title" dynamodbav:"title"`
	Content     string    `json:"content" dynamodbav:"content"` // markdown
	IsPublished bool      `json:"is_published" dynamodbav:"is_published"`
	CreatedAt   time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" dynamodbav:"updated_at"`
}
