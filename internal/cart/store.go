package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/imrishuroy/storefront-checkout/internal/settings"
)

var (
	ErrNotFound             = errors.New("cart not found")
	ErrConcurrentUpdate     = errors.New("cart was modified concurrently")
	ErrItemNotFound         = errors.New("cart item not found")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrNotEnoughStock       = errors.New("not enough items in stock")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	ErrInvalidDeliveryDate  = errors.New("invalid delivery date")
	ErrInvalidStep          = errors.New("invalid checkout step")
)

// Repository persists carts. Save must reject the write with
// ErrConcurrentUpdate unless the stored version equals expectedVersion
// (zero meaning "not stored yet").
type Repository interface {
	Get(ctx context.Context, cartID string) (*Cart, error)
	Save(ctx context.Context, c *Cart, expectedVersion int64) error
}

// Store is the only writer of carts. Every operation loads the cart,
// mutates it, recomputes prices and saves it conditionally.
type Store struct {
	repo     Repository
	settings *settings.Store
	ttl      time.Duration
	nowFunc  func() time.Time
	newID    func() string
}

// NewStore creates a cart Store. ttl bounds how long an idle cart is kept.
func NewStore(repo Repository, st *settings.Store, ttl time.Duration) *Store {
	return &Store{
		repo:     repo,
		settings: st,
		ttl:      ttl,
		nowFunc:  time.Now,
		newID:    uuid.NewString,
	}
}

// NewCartID returns a fresh cart identifier for the visitor cookie.
func (s *Store) NewCartID() string { return s.newID() }

// Get returns the visitor's cart, or a new empty cart if none is stored.
// The new cart is not persisted until the first mutation.
func (s *Store) Get(ctx context.Context, cartID string) (*Cart, error) {
	c, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if c == nil {
		return s.newCart(cartID), nil
	}
	return c, nil
}

func (s *Store) newCart(cartID string) *Cart {
	c := &Cart{
		CartID:            cartID,
		Items:             []Item{},
		DeliveryDateIndex: s.settings.DefaultDeliveryDateIndex(),
		PaymentMethod:     s.settings.DefaultPaymentMethod(),
		CheckoutStep:      StepShippingAddress,
		FurthestStep:      StepShippingAddress,
	}
	s.reprice(c)
	return c
}

// AddItem adds quantity of a product variant. An existing line for the same
// product, size and color is merged. It returns the line's client id.
func (s *Store) AddItem(ctx context.Context, cartID string, item Item) (*Cart, string, error) {
	if item.Quantity <= 0 {
		return nil, "", ErrInvalidQuantity
	}
	var clientID string
	c, err := s.update(ctx, cartID, func(c *Cart) error {
		for i := range c.Items {
			if !c.Items[i].sameLine(item) {
				continue
			}
			if c.Items[i].CountInStock < c.Items[i].Quantity+item.Quantity {
				return ErrNotEnoughStock
			}
			c.Items[i].Quantity += item.Quantity
			clientID = c.Items[i].ClientID
			return nil
		}
		if item.CountInStock < item.Quantity {
			return ErrNotEnoughStock
		}
		if item.ClientID == "" {
			item.ClientID = s.newID()
		}
		clientID = item.ClientID
		c.Items = append(c.Items, item)
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return c, clientID, nil
}

// UpdateItem sets the quantity of a line. Removal is explicit, so a zero
// quantity is rejected.
func (s *Store) UpdateItem(ctx context.Context, cartID, clientID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return s.update(ctx, cartID, func(c *Cart) error {
		i := c.findLine(clientID)
		if i < 0 {
			return ErrItemNotFound
		}
		if c.Items[i].CountInStock < quantity {
			return ErrNotEnoughStock
		}
		c.Items[i].Quantity = quantity
		return nil
	})
}

// RemoveItem deletes a line.
func (s *Store) RemoveItem(ctx context.Context, cartID, clientID string) (*Cart, error) {
	return s.update(ctx, cartID, func(c *Cart) error {
		i := c.findLine(clientID)
		if i < 0 {
			return ErrItemNotFound
		}
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return nil
	})
}

// SetShippingAddress stores the address. Callers validate it first.
func (s *Store) SetShippingAddress(ctx context.Context, cartID string, addr ShippingAddress) (*Cart, error) {
	return s.update(ctx, cartID, func(c *Cart) error {
		c.ShippingAddress = &addr
		return nil
	})
}

// SetPaymentMethod selects one of the configured payment methods.
func (s *Store) SetPaymentMethod(ctx context.Context, cartID, method string) (*Cart, error) {
	if !s.settings.HasPaymentMethod(method) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, method)
	}
	return s.update(ctx, cartID, func(c *Cart) error {
		c.PaymentMethod = method
		return nil
	})
}

// SetDeliveryDateIndex selects a delivery option.
func (s *Store) SetDeliveryDateIndex(ctx context.Context, cartID string, index int) (*Cart, error) {
	if _, ok := s.settings.DeliveryDate(index); !ok {
		return nil, fmt.Errorf("%w: index %d", ErrInvalidDeliveryDate, index)
	}
	return s.update(ctx, cartID, func(c *Cart) error {
		c.DeliveryDateIndex = index
		return nil
	})
}

// SetCheckoutStep moves the wizard to step and records it as reached.
func (s *Store) SetCheckoutStep(ctx context.Context, cartID string, step Step) (*Cart, error) {
	if !step.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStep, step)
	}
	return s.update(ctx, cartID, func(c *Cart) error {
		c.CheckoutStep = step
		if step > c.FurthestStep {
			c.FurthestStep = step
		}
		return nil
	})
}

// Clear empties the cart after an order is placed. The address and payment
// method are kept for the next checkout; the wizard restarts.
func (s *Store) Clear(ctx context.Context, cartID string) (*Cart, error) {
	return s.update(ctx, cartID, func(c *Cart) error {
		c.Items = []Item{}
		c.CheckoutStep = StepShippingAddress
		c.FurthestStep = StepShippingAddress
		return nil
	})
}

func (s *Store) update(ctx context.Context, cartID string, mutate func(*Cart) error) (*Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	expected := c.Version
	if err := mutate(c); err != nil {
		return nil, err
	}
	s.reprice(c)

	now := s.nowFunc()
	c.Version = expected + 1
	c.UpdatedAt = now
	if s.ttl > 0 {
		c.ExpiresAt = now.Add(s.ttl).Unix()
	}
	if err := s.repo.Save(ctx, c, expected); err != nil {
		if errors.Is(err, ErrConcurrentUpdate) {
			return nil, err
		}
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

func (s *Store) reprice(c *Cart) {
	var delivery *settings.DeliveryDate
	if d, ok := s.settings.DeliveryDate(c.DeliveryDateIndex); ok {
		delivery = &d
	}
	c.apply(Calculate(c.Items, c.ShippingAddress, delivery, s.settings.TaxRate()))
}
