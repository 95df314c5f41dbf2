package handler

import "net/http"

// ReadinessChecker はストアの準備状態を返すインターフェース。
type ReadinessChecker interface {
	IsReady() bool
}

type healthResponse struct {
	Status string `json:"status"`
}

// NewHealthHandler はストアの準備状態を返すヘルスチェックハンドラーを生成する。
// 準備完了なら200、接続確立前は503を返す。
// GET /health
func NewHealthHandler(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !checker.IsReady() {
			w.Header().Set("Retry-After", "5")
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "starting"})
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
