package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/taskman/internal/auth"
	"github.com/hitoshi/taskman/internal/config"
	"github.com/hitoshi/taskman/internal/database"
	"github.com/hitoshi/taskman/internal/handler"
	"github.com/hitoshi/taskman/internal/metrics"
	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/repository"
	"github.com/hitoshi/taskman/internal/security"
	"github.com/hitoshi/taskman/internal/task"
	"github.com/hitoshi/taskman/internal/user"
	"github.com/hitoshi/taskman/internal/worker/cleanup"
)

// server はAPIサーバーの依存関係を保持する。
type server struct {
	cfg         *config.Config
	db          *sql.DB
	gate        *database.Gate
	collector   *metrics.Collector
	rateLimiter *middleware.RateLimiter
	cleanupJob  *cleanup.SessionCleanupJob
	handler     http.Handler
}

// newServer はDBを開き（接続はまだ行わない）、全依存関係をワイヤリングする。
func newServer(cfg *config.Config) (*server, error) {
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	gate := database.NewGate()

	// メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// リポジトリ
	userRepo := repository.NewSQLUserRepo(db)
	taskRepo := repository.NewSQLTaskRepo(db)
	sessionRepo := repository.NewSQLSessionRepo(db)

	// ドメインサービス
	userService := user.NewService(gate, userRepo)
	taskService := task.NewService(gate, taskRepo, userRepo)

	oauthProvider := auth.NewGitHubOAuthProvider(auth.GitHubOAuthConfig{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  cfg.GitHubCallbackURL,
	})
	authService := auth.NewService(
		oauthProvider, userService, sessionRepo,
		security.NewProfileSanitizer(), gate,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitRegistration),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		SessionFinder:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(reg),

		Readiness: gate,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		UserService: userService,
		TaskService: taskService,
	})

	return &server{
		cfg:         cfg,
		db:          db,
		gate:        gate,
		collector:   collector,
		rateLimiter: rateLimiter,
		cleanupJob:  cleanup.NewSessionCleanupJob(sessionRepo, collector, slog.Default()),
		handler:     router,
	}, nil
}

// connect はストア接続を確立し、必要ならマイグレーションを適用してからGateを準備完了にする。
// 準備完了時にメトリクスの更新とセッション削除ジョブの起動を行う。
func (s *server) connect(ctx context.Context) error {
	s.gate.OnReady(func() {
		s.collector.SetStoreReady(true)
	})
	s.gate.OnReady(func() {
		go s.cleanupJob.Start(ctx, s.cfg.SessionCleanupInterval)
	})

	if err := database.Connect(ctx, s.db, s.cfg.DatabaseConnectTimeout); err != nil {
		return err
	}

	if s.cfg.DatabaseAutoMigrate {
		if err := database.RunMigrations(s.db, s.cfg.DatabaseDriver); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("database migrations applied")
	}

	s.gate.MarkReady()
	return nil
}

func (s *server) close() {
	s.rateLimiter.Stop()
	if err := s.db.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", err.Error()))
	}
}
