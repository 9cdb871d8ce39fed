package address

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/lanches-api/internal/common"
)

// Handler exposes the lookup over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler constructs the HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Lookup handles GET /address/cep/{cep}.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Lookup(r.Context(), chi.URLParam(r, "cep"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, res, common.NewNotice(common.NoticeSuccess, "Endereço encontrado!"))
}
