package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskman/internal/authz"
)

// RequireAuthorization はルートに宣言された認可ポリシーで判定するミドルウェアを返す。
// パスパラメータはchiのルーティング結果から取得するため、r.With()で個別ルートに適用する。
// 未認証は401、要件を満たさない場合は403を返す。
func RequireAuthorization(policy *authz.Policy) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := policy.Decide(AuthzRequest(r)); err != nil {
				WriteServiceError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthzRequest はHTTPリクエストから認可判定用のRequestを組み立てる。
func AuthzRequest(r *http.Request) authz.Request {
	req := authz.Request{Params: map[string]string{}}
	if userID, err := UserIDFromContext(r.Context()); err == nil {
		req.SubjectID = userID
	}

	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			if i < len(rctx.URLParams.Values) {
				req.Params[key] = rctx.URLParams.Values[i]
			}
		}
	}
	return req
}
