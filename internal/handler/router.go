package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskman/internal/authz"
	"github.com/hitoshi/taskman/internal/metrics"
	"github.com/hitoshi/taskman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.HTTPRecorder
	MetricsHandler    http.Handler

	// ヘルスチェック
	Readiness ReadinessChecker

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// リソース
	UserService UserServiceInterface
	TaskService TaskServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS → Session → RateLimit(General) → ルートごとの認可
//
// Sessionは有効なセッションのユーザーIDを付与するだけで拒否はしない。
// 認証・認可の判定は各ルートに宣言したauthz.Policyで行う。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	// --- 運用エンドポイント（セッション・レート制限の外） ---
	r.Get("/health", NewHealthHandler(deps.Readiness))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService)
	taskHandler := NewTaskHandler(deps.TaskService)

	authenticated := middleware.RequireAuthorization(authz.Authenticated())
	self := middleware.RequireAuthorization(authz.MustPolicy(authz.ModeAll, authz.IDMatchesParam("id")))

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 認証ルート（GitHub OAuthフロー）
		r.Get("/login", authHandler.Login)
		r.Get("/github/callback", authHandler.Callback)
		r.Get("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)

		// ユーザー管理
		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.List)
			r.Get("/email", userHandler.GetByEmail)
			r.With(deps.RateLimiter.RegistrationMiddleware()).Post("/", userHandler.Create)

			r.With(self).Get("/{id}", userHandler.Get)
			r.With(self).Put("/{id}", userHandler.Update)
			r.With(self).Delete("/{id}", userHandler.Delete)
		})

		// タスク管理
		r.Route("/tasks", func(r chi.Router) {
			r.With(self).Get("/user/{id}", taskHandler.ListByOwner)
			r.With(authenticated).Post("/", taskHandler.Create)

			// 所有者の確認はタスクを読み込んだ後にハンドラーで行う
			r.With(authenticated).Get("/{id}", taskHandler.Get)
			r.With(authenticated).Put("/{id}", taskHandler.Update)
			r.With(authenticated).Delete("/{id}", taskHandler.Delete)
		})
	})

	return r
}
