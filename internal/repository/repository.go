package repository

import (
	"context"
	"errors"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	// ErrCartInUse is returned when a claim targets a cart that is active
	// and bound to a different user.
	ErrCartInUse = errors.New("cart is already in use")
)

// CartRepository defines the persistence operations for physical carts.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	// Create provisions an inactive cart with the given physical code.
	Create(ctx context.Context, code string) (*domain.Cart, error)

	FindByCode(ctx context.Context, code string) (*domain.Cart, error)
	FindByUser(ctx context.Context, userID string) (*domain.Cart, error)

	// Claim binds the cart to the user and marks it active. Claiming a cart
	// already held by the same user succeeds; a cart held by another user
	// returns ErrCartInUse.
	Claim(ctx context.Context, code, userID string) (*domain.Cart, error)

	// ApplyDelta adds qty to the line for the given product on the user's
	// cart, creating the line if absent and removing it when the quantity
	// drops to zero or below. TotalPrice is recomputed from the items before
	// the write. The read-modify-write is atomic with respect to concurrent
	// calls against the same cart.
	ApplyDelta(ctx context.Context, userID string, product *domain.Product, qty int) (*domain.Cart, error)

	// Clear empties the cart, zeroes the total, unbinds the user and marks
	// the cart inactive.
	Clear(ctx context.Context, code string) (*domain.Cart, error)
}
