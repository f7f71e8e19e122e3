// Package shop is the demo application embedded around the world
// container: an in-memory storefront whose entire state lives in a
// single World mutated only by messages.
package shop

import (
	"fmt"

	"github.com/psantana5/appworld/pkg/logging"
	"github.com/psantana5/appworld/pkg/store"
)

// Resources are the side-effect capabilities the world owns. They are
// mutated only under exclusive access; read views may call their
// non-mutating operations.
type Resources struct {
	Snapshots store.Store
	Catalog   *CatalogClient
	Log       *logging.Logger
}

// ShopWorld implements world.World[Msg]
type ShopWorld struct {
	State State
	Res   Resources
}

// NewShopWorld creates a world over the given state and resources.
// A nil logger is replaced with a quiet one so Apply can always log.
func NewShopWorld(initial State, res Resources) *ShopWorld {
	if initial.Products == nil {
		initial.Products = make(map[string]Product)
	}
	if res.Log == nil {
		res.Log = logging.NewLogger("shop", logging.ERROR, false)
	}
	return &ShopWorld{State: initial, Res: res}
}

// Apply executes one message against the state. Messages with nothing
// to do (unknown product, empty cart) leave the state untouched;
// Revision only moves when the state does.
func (w *ShopWorld) Apply(msg Msg) {
	switch m := msg.(type) {
	case CatalogSynced:
		products := make(map[string]Product, len(m.Products))
		for _, p := range m.Products {
			products[p.ID] = p
		}
		w.State.Products = products
		w.State.LastCatalogSync = m.SyncedAt
		w.bump()
		w.Res.Log.Debug("catalog synced", map[string]interface{}{
			"products": len(products),
			"revision": w.State.Revision,
		})

	case AddToCart:
		if m.Quantity <= 0 {
			w.Res.Log.Debug("add to cart ignored", map[string]interface{}{
				"product_id": m.ProductID,
				"quantity":   m.Quantity,
			})
			return
		}
		if _, ok := w.State.Products[m.ProductID]; !ok {
			w.Res.Log.Debug("add to cart ignored", map[string]interface{}{
				"product_id": m.ProductID,
				"reason":     "unknown product",
			})
			return
		}
		for i, item := range w.State.Cart {
			if item.ProductID == m.ProductID {
				w.State.Cart[i].Quantity += m.Quantity
				w.bump()
				return
			}
		}
		w.State.Cart = append(w.State.Cart, CartItem{ProductID: m.ProductID, Quantity: m.Quantity})
		w.bump()

	case RemoveFromCart:
		for i, item := range w.State.Cart {
			if item.ProductID == m.ProductID {
				w.State.Cart = append(w.State.Cart[:i], w.State.Cart[i+1:]...)
				w.bump()
				return
			}
		}

	case Checkout:
		if len(w.State.Cart) == 0 {
			return
		}
		order := Order{
			ID:         m.OrderID,
			Items:      w.State.Cart,
			TotalCents: w.State.CartTotalCents(),
			PlacedAt:   m.PlacedAt,
		}
		for _, item := range order.Items {
			if p, ok := w.State.Products[item.ProductID]; ok {
				p.Stock -= item.Quantity
				w.State.Products[item.ProductID] = p
			}
		}
		w.State.Orders = append(w.State.Orders, order)
		w.State.Cart = nil
		w.bump()
		w.Res.Log.Info("order placed", map[string]interface{}{
			"order_id":    order.ID,
			"total_cents": order.TotalCents,
			"items":       len(order.Items),
		})

	case RestoreState:
		// Snapshots carry their own revision
		if m.State.Products == nil {
			m.State.Products = make(map[string]Product)
		}
		w.State = m.State

	default:
		// The Msg set is closed; an unknown type is a programming
		// error, not bad input.
		panic(fmt.Sprintf("shop: unknown message type %T", msg))
	}
}

func (w *ShopWorld) bump() {
	w.State.Revision++
}

// Close releases the world's owned resources. The wrapper calls it
// when the last handle is closed.
func (w *ShopWorld) Close() error {
	if w.Res.Catalog != nil {
		w.Res.Catalog.Close()
	}
	return nil
}
