package checkout

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/lanches-api/internal/common"
	"github.com/noah-isme/lanches-api/internal/pix"
)

const maxQRSize = 1024

// Handler wires the checkout wizard to HTTP.
type Handler struct {
	Svc *Service
}

// NewHandler constructs the HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func clientID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := common.ClientID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "missing client id", nil)
	}
	return id, ok
}

func respond(w http.ResponseWriter, out Outcome, err error) {
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out.State, out.Notice)
}

type action func(ctx context.Context, clientID string) (Outcome, error)

func (h *Handler) run(fn action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := clientID(w, r)
		if !ok {
			return
		}
		out, err := fn(r.Context(), id)
		respond(w, out, err)
	}
}

// Get returns the wizard state.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	st, err := h.Svc.State(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, st, nil)
}

// SaveAddress handles PUT /checkout/address.
func (h *Handler) SaveAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	var addr Address
	if err := common.DecodeJSON(r, &addr); err != nil {
		if appErr, isApp := common.AsAppError(err); isApp && appErr.Code == "VALIDATION_ERROR" {
			appErr.Message = msgRequiredField
		}
		common.WriteError(w, err)
		return
	}
	out, err := h.Svc.SaveAddress(r.Context(), id, addr)
	respond(w, out, err)
}

type selectionResponse struct {
	State
	Selection Selection `json:"selection"`
}

// SelectMethod handles POST /checkout/payment/{method}.
func (h *Handler) SelectMethod(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	out, sel, err := h.Svc.SelectMethod(r.Context(), id, chi.URLParam(r, "method"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, selectionResponse{State: out.State, Selection: sel}, out.Notice)
}

// Pix handles GET /checkout/pix.
func (h *Handler) Pix(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.Pix(id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, view, nil)
}

// PixQRCode handles GET /checkout/pix/qrcode.png.
func (h *Handler) PixQRCode(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	size := common.QueryInt(r, "size", pix.DefaultQRSize)
	if size <= 0 || size > maxQRSize {
		size = pix.DefaultQRSize
	}
	png, err := h.Svc.PixQRCode(id, size)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// ProcessCard handles POST /checkout/card.
func (h *Handler) ProcessCard(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	var in CardInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Svc.ProcessCard(r.Context(), id, in)
	respond(w, out, err)
}

type cashRequest struct {
	ChangeFor *decimal.Decimal `json:"changeFor"`
}

// ConfirmCash handles POST /checkout/cash.
func (h *Handler) ConfirmCash(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	var req cashRequest
	if r.ContentLength != 0 {
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(w, err)
			return
		}
	}
	if req.ChangeFor != nil && req.ChangeFor.IsZero() {
		req.ChangeFor = nil
	}
	out, err := h.Svc.ConfirmCash(r.Context(), id, req.ChangeFor)
	respond(w, out, err)
}

// CashSuggestions handles GET /checkout/cash/suggestions.
func (h *Handler) CashSuggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	values, err := h.Svc.CashSuggestions(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.StringFixed(2))
	}
	common.Data(w, http.StatusOK, out, nil)
}

// Confirmation handles GET /checkout/confirmation.
func (h *Handler) Confirmation(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	receipt, err := h.Svc.Confirmation(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, receipt, nil)
}

// ReceiptPDF handles GET /checkout/receipt.pdf.
func (h *Handler) ReceiptPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	receipt, data, err := h.Svc.ReceiptPDF(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=pedido-"+strconv.Itoa(receipt.OrderNumber)+".pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Routes mounts the checkout endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Get)
	r.Post("/open", h.run(h.Svc.Open))
	r.Post("/next", h.run(h.Svc.Next))
	r.Post("/back", h.run(h.Svc.Back))
	r.Post("/close", h.run(h.Svc.Close))
	r.Post("/finish", h.run(h.Svc.Finish))
	r.Put("/address", h.SaveAddress)
	r.Post("/payment/{method}", h.SelectMethod)
	r.Get("/pix", h.Pix)
	r.Get("/pix/qrcode.png", h.PixQRCode)
	r.Post("/pix/confirm", h.run(h.Svc.ConfirmPix))
	r.Post("/card", h.ProcessCard)
	r.Post("/cash", h.ConfirmCash)
	r.Get("/cash/suggestions", h.CashSuggestions)
	r.Get("/confirmation", h.Confirmation)
	r.Get("/receipt.pdf", h.ReceiptPDF)
}
