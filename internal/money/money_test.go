package money

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount_Arithmetic(t *testing.T) {
	price := MustParse("19.99")
	assert.Equal(t, "59.97", price.Mul(3).String())
	assert.Equal(t, "20.09", price.Add(New(0.1)).String())
	assert.Equal(t, "750.00", MustParse("10000").MulRate(0.075).String())
	assert.True(t, New(0.1).Add(New(0.2)).Equal(MustParse("0.3")), "no float drift")
}

func TestAmount_MinorUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"10750", 1075000},
		{"0.01", 1},
		{"19.995", 2000},
		{"0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MustParse(tt.in).MinorUnits())
		})
	}
	assert.Equal(t, "10750.00", FromMinorUnits(1075000).String())
}

func TestAmount_JSON(t *testing.T) {
	type wrapper struct {
		Total Amount  `json:"total"`
		Tax   *Amount `json:"tax,omitempty"`
	}
	b, err := json.Marshal(wrapper{Total: MustParse("10750")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":10750.00}`, string(b))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"total":"12.5","tax":1.875}`), &w))
	assert.Equal(t, "12.50", w.Total.String())
	require.NotNil(t, w.Tax)
	assert.Equal(t, "1.88", w.Tax.String())
}

func TestAmount_DynamoDB(t *testing.T) {
	type item struct {
		Price Amount  `dynamodbav:"price"`
		Tax   *Amount `dynamodbav:"tax,omitempty"`
	}
	av, err := attributevalue.MarshalMap(item{Price: MustParse("99.90")})
	require.NoError(t, err)
	assert.NotContains(t, av, "tax")

	var out item
	require.NoError(t, attributevalue.UnmarshalMap(av, &out))
	assert.Equal(t, "99.90", out.Price.String())
	assert.Nil(t, out.Tax)
}
