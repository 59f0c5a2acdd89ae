package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/sokone/internal/barcode"
	"github.com/dukerupert/sokone/internal/model"
	"github.com/dukerupert/sokone/internal/pricing"
	"github.com/dukerupert/sokone/internal/store"
	"github.com/dukerupert/sokone/internal/websocket"
)

// nextAfterSave is where the client goes after a product is saved.
const nextAfterSave = "/inventory"

type ProductHandler struct {
	productStore *store.ProductStore
	shopStore    *store.ShopStore
	hub          *websocket.Hub
	logger       *slog.Logger
	// newHidden makes freshly registered products start hidden from the
	// inventory screen.
	newHidden bool
}

func NewProductHandler(ps *store.ProductStore, ss *store.ShopStore, hub *websocket.Hub, newHidden bool, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{productStore: ps, shopStore: ss, hub: hub, newHidden: newHidden, logger: logger}
}

func (h *ProductHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type productRequest struct {
	Brand          string `json:"brand"`
	Name           string `json:"name"`
	Price          *int64 `json:"price"`
	ShopID         *int64 `json:"shop_id"`
	Stock          *int64 `json:"stock"`
	JAN            string `json:"jan"`
	Amount         string `json:"amount"`
	Unit           string `json:"unit"`
	CustomUnit     string `json:"custom_unit"`
	Size           string `json:"size"`
	QuantityInPack int64  `json:"quantity_in_pack"`
}

// formValues is the product form's field state. Unit holds the selected
// chip; a free-text unit shows as UnitOther plus CustomUnit.
type formValues struct {
	Brand          string `json:"brand"`
	Name           string `json:"name"`
	Price          string `json:"price"`
	ShopID         *int64 `json:"shop_id"`
	Stock          int64  `json:"stock"`
	JAN            string `json:"jan"`
	Amount         string `json:"amount"`
	Unit           string `json:"unit"`
	CustomUnit     string `json:"custom_unit"`
	Size           string `json:"size"`
	QuantityInPack int64  `json:"quantity_in_pack"`
}

type productForm struct {
	EditID *int64       `json:"edit_id"`
	Values formValues   `json:"values"`
	Shops  []model.Shop `json:"shops"`
	Units  []string     `json:"units"`
	Sizes  []string     `json:"sizes"`

	// Existing lists stored products that already carry the scanned code.
	Existing []model.Product `json:"existing,omitempty"`
}

func newFormValues() formValues {
	return formValues{Stock: 1, Unit: model.UnitGram, QuantityInPack: 1}
}

func formValuesOf(p *model.Product) formValues {
	v := formValues{
		Brand:          p.Brand,
		Name:           p.Name,
		Price:          strconv.FormatInt(p.Price, 10),
		ShopID:         p.ShopID,
		Stock:          p.Stock,
		JAN:            p.JAN,
		Amount:         p.Amount,
		Unit:           p.Unit,
		Size:           p.Size,
		QuantityInPack: max(p.QuantityInPack, 1),
	}
	if !model.IsStandardUnit(p.Unit) {
		v.Unit = model.UnitOther
		v.CustomUnit = p.Unit
	}
	return v
}

// Form returns the product form state. editId prefills from a stored
// product; jan prefills the barcode unless the stored product has one and
// reports the products already registered under that code.
func (h *ProductHandler) Form(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	form := productForm{
		Values: newFormValues(),
		Units:  append(append([]string{}, model.UnitOptions...), model.UnitOther),
		Sizes:  model.SizeOptions,
	}

	if raw := q.Get("editId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid editId")
			return
		}
		p, err := h.productStore.GetByID(id)
		if err != nil {
			h.logger.Error("get product", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get product")
			return
		}
		if p != nil {
			form.EditID = &p.ID
			form.Values = formValuesOf(p)
		}
	}

	if jan := barcode.Normalize(q.Get("jan")); jan != "" {
		if form.Values.JAN == "" {
			form.Values.JAN = jan
		}
		existing, err := h.productStore.FindByJAN(jan)
		if err != nil {
			h.logger.Error("find products by jan", "jan", jan, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to find products")
			return
		}
		form.Existing = existing
	}

	shops, err := h.shopStore.List()
	if err != nil {
		h.logger.Error("list shops", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list shops")
		return
	}
	if shops == nil {
		shops = []model.Shop{}
	}
	form.Shops = shops

	writeJSON(w, http.StatusOK, form)
}

// validate checks the request and converts it to store input. It returns
// a user-facing message when the request is rejected.
func (h *ProductHandler) validate(req productRequest) (model.ProductInput, string, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Price == nil {
		return model.ProductInput{}, msgNameAndPriceRequired, nil
	}
	if *req.Price < 0 || *req.Price > pricing.MaxPrice {
		return model.ProductInput{}, msgInvalidPrice, nil
	}
	if req.ShopID == nil {
		return model.ProductInput{}, msgShopRequired, nil
	}
	shop, err := h.shopStore.GetByID(*req.ShopID)
	if err != nil {
		return model.ProductInput{}, "", err
	}
	if shop == nil {
		return model.ProductInput{}, msgShopRequired, nil
	}

	// An omitted unit falls back to the form default; その他 stores the
	// custom text as typed, even when blank.
	unit := strings.TrimSpace(req.Unit)
	switch unit {
	case "":
		unit = model.UnitGram
	case model.UnitOther:
		unit = strings.TrimSpace(req.CustomUnit)
	}

	in := model.ProductInput{
		Brand:          strings.TrimSpace(req.Brand),
		Name:           req.Name,
		Price:          *req.Price,
		ShopID:         req.ShopID,
		JAN:            barcode.Normalize(req.JAN),
		Amount:         strings.TrimSpace(req.Amount),
		Unit:           unit,
		Size:           strings.TrimSpace(req.Size),
		QuantityInPack: 1,
		IsVisible:      !h.newHidden,
	}
	if req.Stock != nil {
		in.Stock = max(*req.Stock, 0)
	}
	if unit == model.UnitPack && req.QuantityInPack > 1 {
		in.QuantityInPack = req.QuantityInPack
	}
	return in, "", nil
}

type productSaved struct {
	Product *model.Product `json:"product"`
	Next    string         `json:"next"`
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	in, msg, err := h.validate(req)
	if err != nil {
		h.logger.Error("validate product", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to validate product")
		return
	}
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	p, err := h.productStore.Create(in)
	if err != nil {
		h.logger.Error("create product", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.TableShoppingList, "created", p.ID, nil))
	writeJSON(w, http.StatusCreated, productSaved{Product: p, Next: nextAfterSave})
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.productStore.GetByID(id)
	if err != nil {
		h.logger.Error("get product", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Stock == nil {
		req.Stock = &existing.Stock
	}

	in, msg, err := h.validate(req)
	if err != nil {
		h.logger.Error("validate product", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to validate product")
		return
	}
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	p, err := h.productStore.Update(id, in)
	if err != nil {
		h.logger.Error("update product", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.TableShoppingList, "updated", p.ID, nil))
	writeJSON(w, http.StatusOK, productSaved{Product: p, Next: nextAfterSave})
}

type pricePreview struct {
	Price        int64 `json:"price"`
	PriceWithTax int64 `json:"price_with_tax"`
	*pricing.UnitPrice
}

// Preview computes the tax-inclusive price shown under the price field,
// plus the unit price when amount and unit are given. Nothing is stored.
func (h *ProductHandler) Preview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	price, err := strconv.ParseInt(strings.TrimSpace(q.Get("price")), 10, 64)
	if err != nil || price < 0 {
		price = 0
	}

	resp := pricePreview{Price: price, PriceWithTax: pricing.WithTax(price)}
	if unit := q.Get("unit"); unit != "" {
		up := pricing.PerUnit(price, q.Get("amount"), unit)
		resp.UnitPrice = &up
	}
	writeJSON(w, http.StatusOK, resp)
}

type stockRequest struct {
	Delta int64 `json:"delta"`
}

type stockResponse struct {
	*store.StockChange
	SuggestCart bool `json:"suggest_cart"`
}

// AdjustStock applies a stock delta to every row sharing the product's
// name and brand. suggest_cart is set when a decrement emptied the stock.
func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	change, err := h.productStore.AdjustStock(id, req.Delta)
	if err != nil {
		h.logger.Error("adjust stock", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to adjust stock")
		return
	}
	if change == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.TableShoppingList, "updated", id, map[string]any{"affected": change.Affected}))
	writeJSON(w, http.StatusOK, stockResponse{
		StockChange: change,
		SuggestCart: req.Delta < 0 && change.ReachedZero(),
	})
}

func (h *ProductHandler) Hide(w http.ResponseWriter, r *http.Request) {
	h.setVisible(w, r, false)
}

func (h *ProductHandler) Show(w http.ResponseWriter, r *http.Request) {
	h.setVisible(w, r, true)
}

func (h *ProductHandler) setVisible(w http.ResponseWriter, r *http.Request, visible bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	p, err := h.productStore.SetVisible(id, visible)
	if err != nil {
		h.logger.Error("set visible", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update product")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.TableShoppingList, "updated", id, nil))
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.productStore.GetByID(id)
	if err != nil {
		h.logger.Error("get product", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	if err := h.productStore.Delete(id); err != nil {
		h.logger.Error("delete product", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.TableShoppingList, "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
