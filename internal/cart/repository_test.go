package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/storefront-checkout/internal/aws"
	"github.com/imrishuroy/storefront-checkout/internal/money"
)

// mockDynamo is a single-table fake understanding the two cart conditions.
type mockDynamo struct {
	aws.DynamoDBAPI
	items map[string]map[string]types.AttributeValue
	err   error
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func (m *mockDynamo) GetItem(ctx context.Context, in *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	k := in.Key["cart_id"].(*types.AttributeValueMemberS).Value
	return &dyn.GetItemOutput{Item: m.items[k]}, nil
}

func (m *mockDynamo) PutItem(ctx context.Context, in *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	k := in.Item["cart_id"].(*types.AttributeValueMemberS).Value
	existing, ok := m.items[k]
	switch *in.ConditionExpression {
	case "attribute_not_exists(cart_id)":
		if ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	case "version = :v":
		want := in.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberN).Value
		if !ok || existing["version"].(*types.AttributeValueMemberN).Value != want {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.items[k] = in.Item
	return &dyn.PutItemOutput{}, nil
}

func TestDynamoRepository_RoundTrip(t *testing.T) {
	mock := newMockDynamo()
	repo := NewDynamoRepository(mock, "carts")
	ctx := context.Background()

	shipping := money.Zero
	c := &Cart{
		CartID:          "c1",
		Items:           []Item{{ClientID: "l1", ProductID: "p1", Quantity: 2, Price: money.MustParse("2500"), CountInStock: 9}},
		ItemsPrice:      money.MustParse("5000"),
		ShippingPrice:   &shipping,
		TotalPrice:      money.MustParse("5000"),
		ShippingAddress: &ShippingAddress{FullName: "Ada Obi", City: "Lagos"},
		PaymentMethod:   "Paystack",
		CheckoutStep:    StepPaymentMethod,
		FurthestStep:    StepPaymentMethod,
		Version:         1,
		UpdatedAt:       time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, repo.Save(ctx, c, 0))

	got, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2500.00", got.Items[0].Price.String())
	require.NotNil(t, got.ShippingPrice)
	assert.True(t, got.ShippingPrice.IsZero())
	assert.Nil(t, got.TaxPrice)
	assert.Equal(t, "Ada Obi", got.ShippingAddress.FullName)
	assert.Equal(t, StepPaymentMethod, got.CheckoutStep)
	assert.Equal(t, int64(1), got.Version)

	missing, err := repo.Get(ctx, "c2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDynamoRepository_VersionConflict(t *testing.T) {
	mock := newMockDynamo()
	repo := NewDynamoRepository(mock, "carts")
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &Cart{CartID: "c1", Version: 1}, 0))
	assert.ErrorIs(t, repo.Save(ctx, &Cart{CartID: "c1", Version: 1}, 0), ErrConcurrentUpdate)
	require.NoError(t, repo.Save(ctx, &Cart{CartID: "c1", Version: 2}, 1))
	assert.ErrorIs(t, repo.Save(ctx, &Cart{CartID: "c1", Version: 2}, 1), ErrConcurrentUpdate)
}

func TestDynamoRepository_Errors(t *testing.T) {
	mock := newMockDynamo()
	mock.err = errors.New("throttled")
	repo := NewDynamoRepository(mock, "carts")

	_, err := repo.Get(context.Background(), "c1")
	assert.ErrorContains(t, err, "throttled")
	err = repo.Save(context.Background(), &Cart{CartID: "c1", Version: 1}, 0)
	assert.ErrorContains(t, err, "throttled")
	assert.NotErrorIs(t, err, ErrConcurrentUpdate)
}
