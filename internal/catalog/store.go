package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/storefront-checkout/internal/aws"
)

var ErrNotFound = errors.New("not found")

// ProductStore reads the products table. Listings scan the table and
// filter in memory.
type ProductStore struct {
	client aws.DynamoDBAPI
	table  string
}

func NewProductStore(client aws.DynamoDBAPI, table string) *ProductStore {
	return &ProductStore{client: client, table: table}
}

// GetBySlug returns a published product or ErrNotFound.
func (s *ProductStore) GetBySlug(ctx context.Context, slug string) (*Product, error) {
	var p Product
	found, err := getItem(ctx, s.client, s.table, slug, &p)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if !found || !p.IsPublished {
		return nil, fmt.Errorf("product %q: %w", slug, ErrNotFound)
	}
	return &p, nil
}

// Published returns every published product.
func (s *ProductStore) Published(ctx context.Context) ([]Product, error) {
	var out []Product
	var start map[string]types.AttributeValue
	for {
		res, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         &s.table,
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("scan products: %w", err)
		}
		var page []Product
		if err := attributevalue.UnmarshalListOfMaps(res.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal products: %w", err)
		}
		for _, p := range page {
			if p.IsPublished {
				out = append(out, p)
			}
		}
		if len(res.LastEvaluatedKey) == 0 {
			return out, nil
		}
		start = res.LastEvaluatedKey
	}
}

// Search runs a search page query.
func (s *ProductStore) Search(ctx context.Context, p SearchParams, pageSize int) (SearchResult, error) {
	products, err := s.Published(ctx)
	if err != nil {
		return SearchResult{}, err
	}
	return Search(products, p, pageSize), nil
}

// Related returns other products of the same category, best sellers first.
func (s *ProductStore) Related(ctx context.Context, category, excludeID string, page, limit int) ([]Product, int, error) {
	products, err := s.Published(ctx)
	if err != nil {
		return nil, 0, err
	}
	out, total := RelatedFrom(products, category, excludeID, page, limit)
	return out, total, nil
}

// RelatedFrom is Related over an already loaded product list.
func RelatedFrom(products []Product, category, excludeID string, page, limit int) ([]Product, int) {
	related := make([]Product, 0)
	for _, p := range products {
		if p.Category == category && p.ProductID != excludeID {
			related = append(related, p)
		}
	}
	sortProducts(related, SortBestSelling)
	return paginate(related, page, limit)
}

// PageStore reads the web_pages table.
type PageStore struct {
	client aws.DynamoDBAPI
	table  string
}

func NewPageStore(client aws.DynamoDBAPI, table string) *PageStore {
	return &PageStore{client: client, table: table}
}

// GetBySlug returns a published content page or ErrNotFound.
func (s *PageStore) GetBySlug(ctx context.Context, slug string) (*WebPage, error) {
	var p WebPage
	found, err := getItem(ctx, s.client, s.table, slug, &p)
	if err != nil {
		return nil, fmt.Errorf("get web page: %w", err)
	}
	if !found || !p.IsPublished {
		return nil, fmt.Errorf("web page %q: %w", slug, ErrNotFound)
	}
	return &p, nil
}

func getItem(ctx context.Context, client aws.DynamoDBAPI, table, slug string, out any) (bool, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"slug": slug})
	if err != nil {
		return false, err
	}
	res, err := client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &table,
		Key:       key,
	})
	if err != nil {
		return false, err
	}
	if res.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return false, err
	}
	return true, nil
}
