package cart

import (
	"github.com/imrishuroy/storefront-checkout/internal/money"
	"github.com/imrishuroy/storefront-checkout/internal/settings"
)

// Prices is the derived order summary of a cart.
type Prices struct {
	ItemsPrice    money.Amount
	ShippingPrice *money.Amount // unset until a shipping address exists
	TaxPrice      *money.Amount // unset until a shipping address exists
	TotalPrice    money.Amount
}

// Calculate derives the cart prices. delivery may be nil when the selected
// index has no matching option, in which case shipping stays unset.
func Calculate(items []Item, addr *ShippingAddress, delivery *settings.DeliveryDate, taxRate float64) Prices {
	itemsPrice := money.Zero
	for _, it := range items {
		itemsPrice = itemsPrice.Add(it.Price.Mul(it.Quantity))
	}

	p := Prices{ItemsPrice: itemsPrice}
	if addr != nil && delivery != nil {
		shipping := delivery.ShippingPrice
		if !delivery.FreeShippingMinPrice.IsZero() && itemsPrice.GreaterThanOrEqual(delivery.FreeShippingMinPrice) {
			shipping = money.Zero
		}
		p.ShippingPrice = &shipping
	}
	if addr != nil {
		tax := itemsPrice.MulRate(taxRate)
		p.TaxPrice = &tax
	}

	total := itemsPrice
	if p.ShippingPrice != nil {
		total = total.Add(*p.ShippingPrice)
	}
	if p.TaxPrice != nil {
		total = total.Add(*p.TaxPrice)
	}
	p.TotalPrice = total
	return p
}

func (c *Cart) apply(p Prices) {
	c.ItemsPrice = p.ItemsPrice
	c.ShippingPrice = p.ShippingPrice
	c.TaxPrice = p.TaxPrice
	c.TotalPrice = p.TotalPrice
}
