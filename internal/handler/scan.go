package handler

import (
	"net/http"
	"strings"

	"github.com/dukerupert/sokone/internal/barcode"
	"github.com/dukerupert/sokone/internal/scan"
)

// ScanHandler turns a decoded barcode into the next screen's location.
type ScanHandler struct {
	baseURL string
}

func NewScanHandler(baseURL string) *ScanHandler {
	return &ScanHandler{baseURL: strings.TrimSuffix(baseURL, "/")}
}

type scanRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
}

func (h *ScanHandler) location(mode, text string) (string, bool) {
	text = barcode.Normalize(text)
	if text == "" {
		return "", false
	}
	return h.baseURL + scan.Route(mode, text), true
}

func (h *ScanHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	loc, ok := h.location(req.Mode, req.Text)
	if !ok {
		writeError(w, http.StatusBadRequest, msgNoBarcode)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"location": loc})
}

func (h *ScanHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc, ok := h.location(q.Get("mode"), q.Get("text"))
	if !ok {
		writeError(w, http.StatusBadRequest, msgNoBarcode)
		return
	}
	http.Redirect(w, r, loc, http.StatusSeeOther)
}
