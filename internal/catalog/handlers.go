package catalog

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/lanches-api/internal/common"
)

// Handler exposes public menu endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{service: svc}
}

// Routes mounts the menu endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Menu)
	r.Get("/search", h.Search)
	r.Get("/{id}", h.Item)
}

// Menu handles GET /menu.
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	items := h.service.Menu()
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := items[:0]
		for _, it := range items {
			if it.Category == category {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}
	common.Data(w, http.StatusOK, items, nil)
}

// Search handles GET /menu/search?q=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	hits := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	w.Header().Set("X-Total-Count", strconv.Itoa(len(hits)))
	common.Data(w, http.StatusOK, hits, nil)
}

// Item handles GET /menu/{id}.
func (h *Handler) Item(w http.ResponseWriter, r *http.Request) {
	item, ok := h.service.Find(chi.URLParam(r, "id"))
	if !ok {
		common.WriteError(w, common.NotFoundError("ITEM_NOT_FOUND", "Item não encontrado", nil))
		return
	}
	common.Data(w, http.StatusOK, item, nil)
}
