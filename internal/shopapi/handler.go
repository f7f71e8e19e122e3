// Package shopapi is the HTTP surface of the shop demo: every route is
// either a read view or a message dispatch against the shared world.
package shopapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/psantana5/appworld/internal/shop"
	"github.com/psantana5/appworld/pkg/auth"
	"github.com/psantana5/appworld/pkg/logging"
	"github.com/psantana5/appworld/pkg/ratelimit"
	"github.com/psantana5/appworld/pkg/store"
	"github.com/psantana5/appworld/pkg/tracing"
	"github.com/psantana5/appworld/pkg/world"
)

// worldOpTimeout bounds how long a request waits for world access.
// Contention past this maps to 503, not a hung connection.
const worldOpTimeout = 5 * time.Second

// HandlerConfig wires the handler's collaborators
type HandlerConfig struct {
	World      shop.Handle
	Store      store.Store
	Tokens     *auth.TokenManager
	AdminToken string
	Limiter    *ratelimit.Limiter
	Log        *logging.Logger
	WorldID    string
	Version    string
}

// Handler serves the shop HTTP API
type Handler struct {
	world      shop.Handle
	store      store.Store
	tokens     *auth.TokenManager
	adminToken string
	limiter    *ratelimit.Limiter
	log        *logging.Logger
	worldID    string
	version    string
	startedAt  time.Time
}

// NewHandler creates the API handler
func NewHandler(cfg HandlerConfig) *Handler {
	log := cfg.Log
	if log == nil {
		log = logging.NewLogger("shopapi", logging.INFO, false)
	}
	return &Handler{
		world:      cfg.World,
		store:      cfg.Store,
		tokens:     cfg.Tokens,
		adminToken: cfg.AdminToken,
		limiter:    cfg.Limiter,
		log:        log,
		worldID:    cfg.WorldID,
		version:    cfg.Version,
		startedAt:  time.Now(),
	}
}

// Routes registers all endpoints on the router
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", h.GetState).Methods("GET")
	api.HandleFunc("/products", h.ListProducts).Methods("GET")
	api.HandleFunc("/snapshots", h.ListSnapshots).Methods("GET")
	api.HandleFunc("/status", h.Status).Methods("GET")

	// Mutations require auth and are rate limited
	api.Handle("/cart/items", h.protect(h.AddCartItem)).Methods("POST")
	api.Handle("/cart/items/{id}", h.protect(h.RemoveCartItem)).Methods("DELETE")
	api.Handle("/checkout", h.protect(h.Checkout)).Methods("POST")
	api.Handle("/snapshots", h.protect(h.TakeSnapshot)).Methods("POST")
	api.Handle("/world/clear-poison", h.protect(h.ClearPoison)).Methods("POST")
}

func (h *Handler) protect(fn http.HandlerFunc) http.Handler {
	protected := h.requireAuth(fn)
	if h.limiter != nil {
		return h.limiter.Middleware(ratelimit.IPKeyFunc)(protected)
	}
	return protected
}

// requireAuth admits the admin bootstrap token or a token issued to a
// named client. With neither configured the API runs open, for
// development setups.
func (h *Handler) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.adminToken == "" && h.tokens == nil {
			next(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			h.writeError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}

		if h.adminToken != "" && auth.SecureCompare(token, h.adminToken) {
			next(w, r)
			return
		}

		if h.tokens != nil {
			client := r.Header.Get("X-Client-Name")
			if client != "" && h.tokens.ValidateToken(client, token) == nil {
				next(w, r)
				return
			}
		}

		h.writeError(w, r, http.StatusUnauthorized, "invalid token")
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

// Health handles liveness checks
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetState returns the full state under a read view
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), worldOpTimeout)
	defer cancel()

	var payload []byte
	var marshalErr error
	if err := h.world.ReadContext(ctx, func(sw *shop.ShopWorld) {
		payload, marshalErr = json.Marshal(sw.State)
	}); err != nil {
		h.worldError(w, r, err)
		return
	}
	if marshalErr != nil {
		h.log.Error("state serialization failed", map[string]interface{}{"error": marshalErr.Error()})
		h.writeError(w, r, http.StatusInternalServerError, "failed to serialize state")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// ListProducts returns the catalog sorted by product ID
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), worldOpTimeout)
	defer cancel()

	var products []shop.Product
	if err := h.world.ReadContext(ctx, func(sw *shop.ShopWorld) {
		products = make([]shop.Product, 0, len(sw.State.Products))
		for _, p := range sw.State.Products {
			products = append(products, p)
		}
	}); err != nil {
		h.worldError(w, r, err)
		return
	}

	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })

	h.writeJSON(w, http.StatusOK, ProductListResponse{
		Total:    len(products),
		Products: products,
	})
}

// AddCartItem dispatches an AddToCart message
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		h.writeError(w, r, http.StatusBadRequest, "product_id is required")
		return
	}
	if req.Quantity <= 0 {
		h.writeError(w, r, http.StatusBadRequest, "quantity must be positive")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), worldOpTimeout)
	defer cancel()

	var known bool
	if err := h.world.ReadContext(ctx, func(sw *shop.ShopWorld) {
		_, known = sw.State.Products[req.ProductID]
	}); err != nil {
		h.worldError(w, r, err)
		return
	}
	if !known {
		h.writeError(w, r, http.StatusNotFound, "unknown product")
		return
	}

	if err := h.world.MsgContext(ctx, shop.AddToCart{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	}); err != nil {
		h.worldError(w, r, err)
		return
	}

	h.respondWithCart(ctx, w, r)
}

// RemoveCartItem dispatches a RemoveFromCart message
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(r.Context(), worldOpTimeout)
	defer cancel()

	if err := h.world.MsgContext(ctx, shop.RemoveFromCart{ProductID: productID}); err != nil {
		h.worldError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Checkout turns the cart into an order
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), worldOpTimeout)
	defer cancel()

	var empty bool
	if err := h.world.ReadContext(ctx, func(sw *shop.ShopWorld) {
		empty = len(sw.State.Cart) == 0
	}); err != nil {
		h.worldError(w, r, err)
		return
	}
	if empty {
		h.writeError(w, r, http.StatusBadRequest, "cart is empty")
		return
	}

	orderID := uuid.New().String()
	if err := h.world.MsgContext(ctx, shop.Checkout{
		OrderID:  orderID,
		PlacedAt: time.Now().UTC(),
	}); err != nil {
		h.worldError(w, r, err)
		return
	}

	var order *shop.Order
	if err := h.world.ReadContext(ctx, func(sw *shop.ShopWorld) {
		for i := range sw.State.Orders {
			if sw.State.Orders[i].ID == orderID {
				o := sw.State.Orders[i]
				order = &o
				return
			}
		}
	}); err != nil {
		h.worldError(w, r, err)
		return
	}
	if order == nil {
		// Another handle emptied the cart between the check and the
		// dispatch; the message was a no-op.
		h.writeError(w, r, http.StatusConflict, "cart is empty")
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

// ListSnapshots lists persisted snapshots, newest first
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	snaps, err := h.store.ListSnapshots(h.worldID, limit)
	if err != nil {
		h.log.Error("snapshot listing failed", map[string]interface{}{"error": err.Error()})
		h.writeError(w, r, http.StatusInternalServerError, "failed to list snapshots")
		return
	}

	infos := make([]SnapshotInfo, 0, len(snaps))
	for _, s := range snaps {
		infos = append(infos, SnapshotInfo{
			ID:      s.ID,
			WorldID: s.WorldID,
			Seq:     s.Seq,
			TakenAt: s.TakenAt,
			Bytes:   len(s.Payload),
		})
	}

	h.writeJSON(w, http.StatusOK, SnapshotListResponse{
		Total:     len(infos),
		Snapshots: infos,
	})
}

// TakeSnapshot persists the state right now
func (h *Handler) TakeSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), worldOpTimeout)
	defer cancel()

	snap, err := shop.TakeSnapshot(ctx, h.world, h.store, h.worldID)
	if err != nil {
		if errors.Is(err, world.ErrPoisoned) || errors.Is(err, context.DeadlineExceeded) {
			h.worldError(w, r, err)
			return
		}
		h.log.Error("snapshot failed", map[string]interface{}{"error": err.Error()})
		h.writeError(w, r, http.StatusInternalServerError, "failed to take snapshot")
		return
	}

	h.writeJSON(w, http.StatusCreated, SnapshotInfo{
		ID:      snap.ID,
		WorldID: snap.WorldID,
		Seq:     snap.Seq,
		TakenAt: snap.TakenAt,
		Bytes:   len(snap.Payload),
	})
}

// ClearPoison overrides a poisoned world after manual verification
func (h *Handler) ClearPoison(w http.ResponseWriter, r *http.Request) {
	wasPoisoned := h.world.Poisoned()
	h.world.ClearPoison()

	if wasPoisoned {
		h.log.Warn("poison cleared via API", map[string]interface{}{
			"world_id": h.worldID,
			"remote":   r.RemoteAddr,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"cleared":  wasPoisoned,
		"poisoned": false,
	})
}

// Status reports daemon, host and world health
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	hostStatus := HostStatus{}
	if info, err := host.Info(); err == nil {
		hostStatus.Hostname = info.Hostname
		hostStatus.Platform = info.Platform
		hostStatus.UptimeSeconds = info.Uptime
	}
	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		hostStatus.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		hostStatus.MemoryUsed = vm.Used
		hostStatus.MemoryTotal = vm.Total
		hostStatus.MemoryPercent = vm.UsedPercent
	}

	h.writeJSON(w, http.StatusOK, StatusResponse{
		Service:       "shopd",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		WorldID:       h.worldID,
		WorldState:    h.world.State(),
		World:         h.world.Stats(),
		Host:          hostStatus,
	})
}

func (h *Handler) respondWithCart(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	var resp CartResponse
	if err := h.world.ReadContext(ctx, func(sw *shop.ShopWorld) {
		resp.Cart = append([]shop.CartItem(nil), sw.State.Cart...)
		resp.Revision = sw.State.Revision
	}); err != nil {
		h.worldError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if status >= http.StatusInternalServerError {
		tracing.SetError(r.Context(), errors.New(message))
	}
	h.writeJSON(w, status, ErrorResponse{Error: message})
}

// worldError maps wrapper failures onto HTTP statuses
func (h *Handler) worldError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, world.ErrPoisoned):
		h.writeError(w, r, http.StatusServiceUnavailable,
			"world poisoned by an aborted mutation; verify state and POST /api/world/clear-poison")
	case errors.Is(err, world.ErrBusy), errors.Is(err, context.DeadlineExceeded):
		w.Header().Set("Retry-After", "1")
		h.writeError(w, r, http.StatusServiceUnavailable, "world busy")
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send
		h.writeError(w, r, http.StatusServiceUnavailable, "request canceled")
	default:
		h.log.Error("world access failed", map[string]interface{}{"error": err.Error()})
		h.writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
