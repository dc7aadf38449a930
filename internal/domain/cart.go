package domain

import "time"

// Cart is the persistent record of one physical shopping cart. Code is the
// identifier printed on the cart itself; UserID is set only while a shopper
// has the cart claimed.
type Cart struct {
	ID         string     `bson:"_id,omitempty" json:"id"`
	Code       string     `bson:"code" json:"code"`
	UserID     string     `bson:"user_id,omitempty" json:"userId,omitempty"`
	Items      []CartItem `bson:"items" json:"items"`
	TotalPrice float64    `bson:"total_price" json:"totalPrice"`
	Active     bool       `bson:"active" json:"active"`
	CreatedAt  time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updatedAt"`

	// Version guards read-modify-write cycles; every persisted mutation
	// increments it.
	Version int64 `bson:"version" json:"-"`
}

type CartItem struct {
	ProductID string    `bson:"product_id" json:"productId"`
	Title     string    `bson:"title" json:"title"`
	Barcode   string    `bson:"barcode" json:"barcode"`
	UnitPrice float64   `bson:"unit_price" json:"unitPrice"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	AddedAt   time.Time `bson:"added_at" json:"addedAt"`
}

// Item returns the line for the given product, or nil.
func (c *Cart) Item(productID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// RecomputeTotal recalculates TotalPrice from the line items. Totals are
// never adjusted incrementally, so replayed deltas cannot drift the sum.
func (c *Cart) RecomputeTotal() {
	var total float64
	for _, item := range c.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	c.TotalPrice = total
}
