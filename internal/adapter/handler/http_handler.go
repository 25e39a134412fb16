package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory-cart/internal/core/domain"
	"github.com/rl1809/inventory-cart/internal/core/service"
	"github.com/rl1809/inventory-cart/internal/logger"
)

const (
	idempotencyHeader = "Idempotency-Key"
	healthTimeout     = 2 * time.Second
)

func init() {
	// prices are rendered as 599.99, not "599.99"
	decimal.MarshalJSONWithoutQuotes = true
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HTTPHandler struct {
	catalog  *service.CatalogService
	cart     *service.CartService
	logger   *logger.Logger
	checks   map[string]Pinger
	metrics  http.Handler
	validate *requestValidator
}

type itemRequest struct {
	Name        string           `json:"name"`
	Image       string           `json:"image"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Quantity    *int             `json:"quantity" validate:"required,min=0"`
}

func (r itemRequest) toItem(id int64) domain.InventoryItem {
	return domain.InventoryItem{
		ID:          id,
		Name:        r.Name,
		Image:       r.Image,
		Description: r.Description,
		Price:       *r.Price,
		Quantity:    *r.Quantity,
	}
}

type addToCartRequest struct {
	InventoryID int64 `json:"inventoryId"`
	Quantity    int   `json:"quantity" validate:"gt=0"`
}

// quantity may be zero or negative, which removes the line
type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func NewHTTPHandler(catalog *service.CatalogService, cart *service.CartService, logg *logger.Logger) *HTTPHandler {
	if logg == nil {
		logg = logger.Nop()
	}
	return &HTTPHandler{
		catalog:  catalog,
		cart:     cart,
		logger:   logg,
		checks:   map[string]Pinger{},
		validate: newRequestValidator(),
	}
}

// WithHealthCheck adds a dependency checked by GET /health.
func (h *HTTPHandler) WithHealthCheck(name string, p Pinger) *HTTPHandler {
	h.checks[name] = p
	return h
}

// WithMetrics exposes handler under GET /metrics.
func (h *HTTPHandler) WithMetrics(handler http.Handler) *HTTPHandler {
	h.metrics = handler
	return h
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logging(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/inventory", func(r chi.Router) {
		r.Get("/", h.ListItems)
		r.Post("/", h.CreateItem)
		r.Get("/{id}", h.GetItem)
		r.Put("/{id}", h.UpdateItem)
		r.Delete("/{id}", h.DeleteItem)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.ListCart)
		r.Post("/", h.AddToCart)
		r.Delete("/", h.ClearCart)
		r.Put("/{cartId}", h.SetCartLineQuantity)
		r.Delete("/{cartId}", h.RemoveCartLine)
	})

	return r
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListItems(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	item, err := h.catalog.GetItem(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := h.validate.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.catalog.CreateItem(r.Context(), req.toItem(0))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/inventory/"+strconv.FormatInt(created.ID, 10))
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req itemRequest
	if err := h.validate.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.catalog.UpdateItem(r.Context(), req.toItem(id)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteItem(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) ListCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cart.ListCart(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *HTTPHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := h.validate.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	requestID := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if err := h.cart.AddToCart(r.Context(), requestID, req.InventoryID, req.Quantity); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) SetCartLineQuantity(w http.ResponseWriter, r *http.Request) {
	lineID, ok := h.pathID(w, r, "cartId")
	if !ok {
		return
	}
	var req setQuantityRequest
	if err := h.validate.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.cart.SetCartLineQuantity(r.Context(), lineID, *req.Quantity); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) RemoveCartLine(w http.ResponseWriter, r *http.Request) {
	lineID, ok := h.pathID(w, r, "cartId")
	if !ok {
		return
	}
	if err := h.cart.RemoveCartLine(r.Context(), lineID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.ClearCart(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.logger.Error(h.logger.WithField(r.Context(), "dependency", name), "health check failed", err)
			status[name] = "unavailable"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	writeJSON(w, code, status)
}

func (h *HTTPHandler) pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: param + " must be a positive integer",
			Code:  "invalid_request",
		})
		return 0, false
	}
	return id, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", err)
		message = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict, "insufficient_stock"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrDuplicateRequest):
		return http.StatusConflict, "duplicate_request"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrStorageTimeout):
		return http.StatusInternalServerError, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
