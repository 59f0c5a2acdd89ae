package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/sokone/internal/model"
	"github.com/dukerupert/sokone/internal/store"
	"github.com/dukerupert/sokone/internal/view"
	"github.com/dukerupert/sokone/internal/websocket"
)

type CartHandler struct {
	cartStore    *store.CartStore
	productStore *store.ProductStore
	shopStore    *store.ShopStore
	hub          *websocket.Hub
	logger       *slog.Logger
}

func NewCartHandler(cs *store.CartStore, ps *store.ProductStore, ss *store.ShopStore, hub *websocket.Hub, logger *slog.Logger) *CartHandler {
	return &CartHandler{cartStore: cs, productStore: ps, shopStore: ss, hub: hub, logger: logger}
}

func (h *CartHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type addToCartRequest struct {
	ProductID int64 `json:"product_id"`
}

type addToCartResponse struct {
	Outcome model.CartOutcome `json:"outcome"`
	Item    *model.CartItem   `json:"item"`
	Message string            `json:"message"`
}

// Add puts a product on the list. A product already listed under the same
// name and shop is reopened when checked and rejected with 409 otherwise.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	p, err := h.productStore.GetByID(req.ProductID)
	if err != nil {
		h.logger.Error("get product", "id", req.ProductID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	item, outcome, err := h.cartStore.AddProduct(*p)
	if errors.Is(err, store.ErrAlreadyInCart) {
		writeError(w, http.StatusConflict, msgAlreadyInCart)
		return
	}
	if err != nil {
		h.logger.Error("add to cart", "product_id", p.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add to list")
		return
	}

	status, action := http.StatusCreated, "created"
	if outcome == model.CartReopened {
		status, action = http.StatusOK, "updated"
	}
	h.broadcast(websocket.NewMessage(websocket.TableCartItems, action, item.ID, nil))
	writeJSON(w, status, addToCartResponse{Outcome: outcome, Item: item, Message: msgAddedToCart})
}

func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.cartStore.List()
	if err != nil {
		h.logger.Error("list cart", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list cart")
		return
	}
	shops, err := h.shopStore.List()
	if err != nil {
		h.logger.Error("list shops", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list shops")
		return
	}
	writeJSON(w, http.StatusOK, view.BuildCart(items, shops))
}

func (h *CartHandler) ToggleChecked(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	item, err := h.cartStore.ToggleChecked(id)
	if err != nil {
		h.logger.Error("toggle cart item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to toggle item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.TableCartItems, "updated", id, nil))
	writeJSON(w, http.StatusOK, item)
}

func (h *CartHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.cartStore.GetByID(id)
	if err != nil {
		h.logger.Error("get cart item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	if err := h.cartStore.Delete(id); err != nil {
		h.logger.Error("delete cart item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.TableCartItems, "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Purchase restocks the products behind every checked item and removes
// those items.
func (h *CartHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	res, err := h.cartStore.Purchase()
	if err != nil {
		h.logger.Error("purchase", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to confirm purchase")
		return
	}

	if res.Purchased > 0 {
		h.broadcast(websocket.NewMessage(websocket.TableCartItems, "purchased", 0, map[string]any{"count": res.Purchased}))
	}
	if len(res.Restocked) > 0 {
		h.broadcast(websocket.NewMessage(websocket.TableShoppingList, "restocked", 0, map[string]any{"ids": res.Restocked}))
	}
	if len(res.Unlinked) > 0 {
		h.logger.Warn("purchased items without a product", "cart_ids", res.Unlinked)
	}
	writeJSON(w, http.StatusOK, res)
}

type clearRequest struct {
	ConfirmAll bool `json:"confirm_all"`
}

// Clear removes checked items, or everything when nothing is checked and
// the caller confirmed.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	removed, err := h.cartStore.Clear(req.ConfirmAll)
	if errors.Is(err, store.ErrConfirmationRequired) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":                 msgConfirmClearAll,
			"confirmation_required": true,
		})
		return
	}
	if err != nil {
		h.logger.Error("clear cart", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear list")
		return
	}

	if removed > 0 {
		h.broadcast(websocket.NewMessage(websocket.TableCartItems, "cleared", 0, map[string]any{"count": removed}))
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}
