package cart

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/lanches-api/internal/common"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc *Service
}

// NewHandler constructs the HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) clientID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := common.ClientID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "missing client id", nil)
	}
	return id, ok
}

func (h *Handler) respond(w http.ResponseWriter, out Outcome, err error) {
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, NewView(out.Cart), out.Notice)
}

func itemID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "itemId"), 10, 64)
	return id, err == nil
}

// Get returns cart contents and pricing.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}
	c, err := h.Svc.Load(r.Context(), clientID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, NewView(c), nil)
}

type addItemRequest struct {
	Name  string          `json:"name" validate:"required"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// AddItem handles POST /cart/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Svc.AddItem(r.Context(), clientID, req.Name, req.Price, req.Image)
	h.respond(w, out, err)
}

type adjustRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// AdjustItem handles PATCH /cart/items/{itemId}.
func (h *Handler) AdjustItem(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}
	id, ok := itemID(r)
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return
	}
	var req adjustRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Svc.AdjustQuantity(r.Context(), clientID, id, req.Delta)
	h.respond(w, out, err)
}

// RemoveItem handles DELETE /cart/items/{itemId}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}
	id, ok := itemID(r)
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return
	}
	out, err := h.Svc.RemoveItem(r.Context(), clientID, id)
	h.respond(w, out, err)
}

type couponRequest struct {
	Code string `json:"code"`
}

// ApplyCoupon handles POST /cart/coupon.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}
	var req couponRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Svc.ApplyCoupon(r.Context(), clientID, req.Code)
	h.respond(w, out, err)
}

// RemoveCoupon handles DELETE /cart/coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientID(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.RemoveCoupon(r.Context(), clientID)
	h.respond(w, out, err)
}

// Routes mounts the cart endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Get)
	r.Post("/items", h.AddItem)
	r.Patch("/items/{itemId}", h.AdjustItem)
	r.Delete("/items/{itemId}", h.RemoveItem)
	r.Post("/coupon", h.ApplyCoupon)
	r.Delete("/coupon", h.RemoveCoupon)
}
