package shop

import "time"

// Msg is the closed set of state mutations. The unexported method
// keeps the set closed to this package; Apply's type switch is
// exhaustive over it.
type Msg interface {
	isMsg()
}

// CatalogSynced replaces the product catalog with a fresh fetch
type CatalogSynced struct {
	Products []Product
	SyncedAt time.Time
}

// AddToCart adds quantity of a product to the cart, merging with an
// existing line for the same product
type AddToCart struct {
	ProductID string
	Quantity  int
}

// RemoveFromCart drops a product's line from the cart
type RemoveFromCart struct {
	ProductID string
}

// Checkout turns the current cart into an order
type Checkout struct {
	OrderID  string
	PlacedAt time.Time
}

// RestoreState replaces the whole state, used when loading a snapshot
// at startup
type RestoreState struct {
	State State
}

func (CatalogSynced) isMsg()  {}
func (AddToCart) isMsg()      {}
func (RemoveFromCart) isMsg() {}
func (Checkout) isMsg()       {}
func (RestoreState) isMsg()   {}
