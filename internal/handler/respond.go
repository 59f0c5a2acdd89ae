package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// User-facing messages.
const (
	msgNameAndPriceRequired = "商品名と価格は必須です"
	msgShopRequired         = "店舗を選択してください（マスタ登録が必要です）"
	msgShopNameRequired     = "店舗名を入力してください"
	msgAlreadyInCart        = "すでにリストにあります"
	msgAddedToCart          = "リストに追加しました"
	msgConfirmClearAll      = "リストをすべて空にしますか？"
	msgInvalidPrice         = "価格は0以上で入力してください"
	msgNoBarcode            = "バーコードを読み取れませんでした"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
