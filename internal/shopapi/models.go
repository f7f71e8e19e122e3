package shopapi

import (
	"time"

	"github.com/psantana5/appworld/internal/shop"
	"github.com/psantana5/appworld/pkg/world"
)

// AddItemRequest is the body of POST /api/cart/items
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CartResponse returns the cart after a mutation
type CartResponse struct {
	Cart     []shop.CartItem `json:"cart"`
	Revision uint64          `json:"revision"`
}

// ProductListResponse is the body of GET /api/products
type ProductListResponse struct {
	Total    int            `json:"total"`
	Products []shop.Product `json:"products"`
}

// SnapshotInfo describes a persisted snapshot without its payload
type SnapshotInfo struct {
	ID      string    `json:"id"`
	WorldID string    `json:"world_id"`
	Seq     int64     `json:"seq"`
	TakenAt time.Time `json:"taken_at"`
	Bytes   int       `json:"bytes"`
}

// SnapshotListResponse is the body of GET /api/snapshots
type SnapshotListResponse struct {
	Total     int            `json:"total"`
	Snapshots []SnapshotInfo `json:"snapshots"`
}

// HostStatus is the gopsutil-derived part of the status report
type HostStatus struct {
	Hostname      string  `json:"hostname"`
	Platform      string  `json:"platform"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsed    uint64  `json:"memory_used_bytes"`
	MemoryTotal   uint64  `json:"memory_total_bytes"`
	MemoryPercent float64 `json:"memory_percent"`
}

// StatusResponse is the body of GET /api/status
type StatusResponse struct {
	Service       string            `json:"service"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	WorldID       string            `json:"world_id"`
	WorldState    world.AccessState `json:"world_state"`
	World         world.Stats       `json:"world"`
	Host          HostStatus        `json:"host"`
}

// ErrorResponse is the JSON body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}
