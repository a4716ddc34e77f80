package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/storefront-checkout/internal/aws/awstest"
)

func seed(t *testing.T, db *awstest.DynamoDB, table string, items ...any) {
	t.Helper()
	for _, it := range items {
		av, err := attributevalue.MarshalMap(it)
		require.NoError(t, err)
		_, err = db.PutItem(context.Background(), &dynamodb.PutItemInput{TableName: &table, Item: av})
		require.NoError(t, err)
	}
}

func TestProductStore(t *testing.T) {
	db := awstest.NewDynamoDB().AddTable("products", "slug")
	for _, p := range sampleProducts() {
		seed(t, db, "products", p)
	}
	s := NewProductStore(db, "products")
	ctx := context.Background()

	p, err := s.GetBySlug(ctx, "blue-shirt")
	require.NoError(t, err)
	assert.Equal(t, "Blue Shirt", p.Name)
	assert.Equal(t, "4500.00", p.Price.String())

	_, err = s.GetBySlug(ctx, "draft")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetBySlug(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	published, err := s.Published(ctx)
	require.NoError(t, err)
	assert.Len(t, published, 3)

	related, total, err := s.Related(ctx, "Shirts", "p1", 1, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"red-shirt"}, slugs(related))
	assert.Equal(t, 1, total)

	res, err := s.Search(ctx, SearchParams{Q: "all", Category: "Shirts", Tag: "all", Price: "all", Rating: "all", Sort: SortBestSelling, Page: 1}, 9)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalProducts)
}

func TestPageStore(t *testing.T) {
	db := awstest.NewDynamoDB().AddTable("web_pages", "slug")
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, db, "web_pages",
		WebPage{Slug: "about-us", Title: "About Us", Content: "# Hello", IsPublished: true, CreatedAt: now, UpdatedAt: now},
		WebPage{Slug: "hidden", Title: "Hidden"},
	)
	s := NewPageStore(db, "web_pages")

	p, err := s.GetBySlug(context.Background(), "about-us")
	require.NoError(t, err)
	assert.Equal(t, "# Hello", p.Content)
	assert.True(t, p.CreatedAt.Equal(now))

	_, err = s.GetBySlug(context.Background(), "hidden")
	require.ErrorIs(t, err, ErrNotFound)
}
