package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
)

// maxBodyBytes はリクエストボディの最大サイズ。
const maxBodyBytes = 1 << 20

// handleServiceError はサービス層から返されたエラーを種別に応じたHTTPレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	middleware.WriteServiceError(w, err)
}

// writeJSON はvをJSONとして書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエストボディをvにデコードする。
// 空のボディや解釈できないJSONはInvalidInputとして返す。
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return model.NewInvalidRequestError("リクエストボディが空です")
		}
		return model.NewInvalidRequestError(err.Error())
	}
	return nil
}

// subjectID は認証済みユーザーIDを返す。ルートの認可ポリシーを通過していることが前提。
func subjectID(r *http.Request) (string, error) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		return "", model.NewUnauthenticatedError()
	}
	return userID, nil
}
