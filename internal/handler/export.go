package handler

import (
	"encoding/csv"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/dukerupert/sokone/internal/model"
	"github.com/dukerupert/sokone/internal/pricing"
)

var priceListHeader = []string{"商品名", "ブランド", "店舗", "価格", "税込価格", "内容量", "単位", "サイズ", "入数", "単価", "単価単位", "JAN", "在庫"}

// ExportCSV writes every product as a price list. encoding=sjis produces
// Shift_JIS for spreadsheet tools; characters it cannot represent are
// replaced.
func (h *ProductHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	products, err := h.productStore.List()
	if err != nil {
		h.logger.Error("list products", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	shops, err := h.shopStore.List()
	if err != nil {
		h.logger.Error("list shops", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list shops")
		return
	}

	var out io.Writer = w
	charset := "utf-8"
	if r.URL.Query().Get("encoding") == "sjis" {
		charset = "shift_jis"
		tw := transform.NewWriter(w, encoding.ReplaceUnsupported(japanese.ShiftJIS.NewEncoder()))
		defer tw.Close()
		out = tw
	}

	w.Header().Set("Content-Type", "text/csv; charset="+charset)
	w.Header().Set("Content-Disposition", `attachment; filename="price-list.csv"`)
	w.WriteHeader(http.StatusOK)

	if err := writePriceList(out, products, model.NewShopNames(shops)); err != nil {
		h.logger.Error("write price list", "error", err)
	}
}

func writePriceList(out io.Writer, products []model.Product, shops model.ShopNames) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(priceListHeader); err != nil {
		return err
	}
	for _, p := range products {
		up := pricing.PerUnit(p.Price, p.Amount, p.Unit)
		record := []string{
			p.Name,
			p.Brand,
			shops.Resolve(p.ShopID),
			strconv.FormatInt(p.Price, 10),
			strconv.FormatInt(pricing.WithTax(p.Price), 10),
			p.Amount,
			p.Unit,
			p.Size,
			strconv.FormatInt(p.PackQuantity(), 10),
			strconv.FormatFloat(up.Value, 'f', 1, 64),
			up.Label,
			p.JAN,
			strconv.FormatInt(p.Stock, 10),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
