package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/sokone/internal/model"
	"github.com/dukerupert/sokone/internal/store"
	"github.com/dukerupert/sokone/internal/websocket"
)

type ShopHandler struct {
	shopStore *store.ShopStore
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewShopHandler(ss *store.ShopStore, hub *websocket.Hub, logger *slog.Logger) *ShopHandler {
	return &ShopHandler{shopStore: ss, hub: hub, logger: logger}
}

func (h *ShopHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type shopRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

func (h *ShopHandler) List(w http.ResponseWriter, r *http.Request) {
	shops, err := h.shopStore.List()
	if err != nil {
		h.logger.Error("list shops", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list shops")
		return
	}
	if shops == nil {
		shops = []model.Shop{}
	}
	writeJSON(w, http.StatusOK, shops)
}

func (h *ShopHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req shopRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, msgShopNameRequired)
		return
	}

	shop, err := h.shopStore.Create(req.Name, strings.TrimSpace(req.Location))
	if err != nil {
		h.logger.Error("create shop", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create shop")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.TableShops, "created", shop.ID, nil))
	writeJSON(w, http.StatusCreated, shop)
}

func (h *ShopHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req shopRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, msgShopNameRequired)
		return
	}

	shop, err := h.shopStore.Update(id, req.Name, strings.TrimSpace(req.Location))
	if err != nil {
		h.logger.Error("update shop", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update shop")
		return
	}
	if shop == nil {
		writeError(w, http.StatusNotFound, "shop not found")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.TableShops, "updated", shop.ID, nil))
	writeJSON(w, http.StatusOK, shop)
}

// Delete removes the shop. Products and cart items referring to it stay
// and show the unknown-shop label.
func (h *ShopHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.shopStore.GetByID(id)
	if err != nil {
		h.logger.Error("get shop", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get shop")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "shop not found")
		return
	}

	if err := h.shopStore.Delete(id); err != nil {
		h.logger.Error("delete shop", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete shop")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.TableShops, "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
