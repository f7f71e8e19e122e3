package shop

import "time"

// Product is a catalog entry. Prices are integer cents so arithmetic
// stays exact.
type Product struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Stock      int    `json:"stock"`
}

// CartItem is one line of the cart
type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Order is a placed checkout
type Order struct {
	ID         string     `json:"id"`
	Items      []CartItem `json:"items"`
	TotalCents int64      `json:"total_cents"`
	PlacedAt   time.Time  `json:"placed_at"`
}

// State is everything the shop knows. It is only ever touched inside
// Apply, so none of it needs locking of its own.
type State struct {
	Products        map[string]Product `json:"products"`
	Cart            []CartItem         `json:"cart"`
	Orders          []Order            `json:"orders"`
	LastCatalogSync time.Time          `json:"last_catalog_sync"`
	Revision        uint64             `json:"revision"`
}

// NewState returns an empty state ready for messages
func NewState() State {
	return State{
		Products: make(map[string]Product),
	}
}

// CartTotalCents prices the current cart against the catalog. Lines
// whose product has left the catalog price at zero.
func (s State) CartTotalCents() int64 {
	var total int64
	for _, item := range s.Cart {
		if p, ok := s.Products[item.ProductID]; ok {
			total += p.PriceCents * int64(item.Quantity)
		}
	}
	return total
}
