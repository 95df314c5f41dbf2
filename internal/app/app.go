// Package app はコマンドごとの依存関係の組み立てと起動処理を提供する。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/taskman/internal/config"
	"github.com/hitoshi/taskman/internal/database"
	"github.com/hitoshi/taskman/internal/logger"
	"github.com/hitoshi/taskman/internal/repository"
	"github.com/hitoshi/taskman/internal/worker/cleanup"
)

// shutdownTimeout はグレースフルシャットダウンの待機上限。
const shutdownTimeout = 30 * time.Second

// Init はログを初期化し、loadで設定を読み込む。
// 設定読み込み前はinfoレベルで出力し、読み込み後にLOG_LEVELを反映する。
func Init(w io.Writer, configPath string, load func(string) (*config.Config, error)) (*config.Config, error) {
	logger.SetupDefault(w, slog.LevelInfo)

	cfg, err := load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Warn("invalid log level, falling back to info", slog.String("error", err.Error()))
	}
	logger.SetupDefault(w, level)

	return cfg, nil
}

// runServe はAPIサーバーモードで起動する。
// HTTPサーバーはストア接続の確立を待たずに起動し、接続完了まではストアを
// 必要とするリクエストに503を返す。ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	srv, err := newServer(cfg)
	if err != nil {
		return err
	}
	defer srv.close()

	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 2)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", httpServer.Addr),
			slog.String("base_url", cfg.BaseURL),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server listen error: %w", err)
		}
	}()

	go func() {
		if err := srv.connect(ctx); err != nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		slog.Error("API server aborted", slog.String("error", runErr.Error()))
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if runErr != nil {
		return runErr
	}
	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// ストア接続を確立した後、期限切れセッションの削除をctxがキャンセルされるまで定期実行する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Connect(ctx, db, cfg.DatabaseConnectTimeout); err != nil {
		return err
	}

	job := cleanup.NewSessionCleanupJob(repository.NewSQLSessionRepo(db), nil, slog.Default())

	slog.Info("worker starting",
		slog.Duration("session_cleanup_interval", cfg.SessionCleanupInterval),
	)
	job.Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(ctx context.Context, cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("driver", cfg.DatabaseDriver),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Connect(ctx, db, cfg.DatabaseConnectTimeout); err != nil {
		return err
	}

	if err := database.RunMigrations(db, cfg.DatabaseDriver); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck は/healthエンドポイントにHTTPリクエストを送り、200以外をエラーとして返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
