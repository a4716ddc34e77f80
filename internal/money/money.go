// Package money holds the decimal amount type used for every price in the
// storefront. Amounts are always kept at two decimal places.
package money

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// Amount is a monetary value in major currency units.
type Amount struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Amount{}

// New returns an amount from a float, rounded to two places.
func New(v float64) Amount {
	return Amount{d: decimal.NewFromFloat(v).Round(2)}
}

// Parse reads a decimal string such as "10750.00".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount{d: d.Round(2)}, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d).Round(2)} }

// Mul multiplies by an integer quantity.
func (a Amount) Mul(qty int) Amount {
	return Amount{d: a.d.Mul(decimal.NewFromInt(int64(qty))).Round(2)}
}

// MulRate multiplies by a fractional rate (tax, currency conversion).
func (a Amount) MulRate(rate float64) Amount {
	return Amount{d: a.d.Mul(decimal.NewFromFloat(rate)).Round(2)}
}

// MinorUnits converts to the smallest currency unit (kobo, cents),
// rounding half away from zero.
func (a Amount) MinorUnits() int64 {
	return a.d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromMinorUnits is the inverse of MinorUnits.
func FromMinorUnits(v int64) Amount {
	return Amount{d: decimal.New(v, -2)}
}

func (a Amount) IsZero() bool { return a.d.IsZero() }

func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }

// Cmp returns -1, 0 or +1 as a is less than, equal to or greater than b.
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

func (a Amount) GreaterThanOrEqual(b Amount) bool { return a.d.GreaterThanOrEqual(b.d) }

func (a Amount) Float64() float64 {
	f, _ := a.d.Float64()
	return f
}

func (a Amount) String() string { return a.d.StringFixed(2) }

// MarshalJSON writes the amount as a JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.d.StringFixed(2)), nil
}

// UnmarshalJSON accepts numbers and quoted numbers.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	a.d = d.Round(2)
	return nil
}

// MarshalDynamoDBAttributeValue stores the amount as a DynamoDB number.
func (a Amount) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: a.d.StringFixed(2)}, nil
}

// UnmarshalDynamoDBAttributeValue reads a DynamoDB number.
func (a *Amount) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	if _, null := av.(*types.AttributeValueMemberNULL); null {
		*a = Zero
		return nil
	}
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return fmt.Errorf("amount: expected number attribute, got %T", av)
	}
	parsed, err := Parse(n.Value)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
