package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/sokone/internal/model"
	"github.com/dukerupert/sokone/internal/store"
	"github.com/dukerupert/sokone/internal/view"
)

// ViewHandler serves the read-only screens.
type ViewHandler struct {
	productStore *store.ProductStore
	shopStore    *store.ShopStore
	logger       *slog.Logger
}

func NewViewHandler(ps *store.ProductStore, ss *store.ShopStore, logger *slog.Logger) *ViewHandler {
	return &ViewHandler{productStore: ps, shopStore: ss, logger: logger}
}

func (h *ViewHandler) load(w http.ResponseWriter, visibleOnly bool) ([]model.Product, []model.Shop, bool) {
	list := h.productStore.List
	if visibleOnly {
		list = h.productStore.ListVisible
	}
	products, err := list()
	if err != nil {
		h.logger.Error("list products", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return nil, nil, false
	}
	shops, err := h.shopStore.List()
	if err != nil {
		h.logger.Error("list shops", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list shops")
		return nil, nil, false
	}
	return products, shops, true
}

// Home searches every product, hidden ones included.
func (h *ViewHandler) Home(w http.ResponseWriter, r *http.Request) {
	products, shops, ok := h.load(w, false)
	if !ok {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("search"))
	writeJSON(w, http.StatusOK, view.BuildHome(query, products, shops))
}

// Inventory lists visible products unless all=1.
func (h *ViewHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all") == "1"
	products, shops, ok := h.load(w, !all)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view.BuildInventory(products, shops))
}

func (h *ViewHandler) Master(w http.ResponseWriter, r *http.Request) {
	products, shops, ok := h.load(w, false)
	if !ok {
		return
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, view.BuildMaster(q.Get("view"), strings.TrimSpace(q.Get("search")), products, shops))
}
