package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// connectRetryInterval は接続確認の再試行間隔。
const connectRetryInterval = 500 * time.Millisecond

// Connect はtimeoutに達するまでPingを再試行し、ストアへの接続を確立する。
// timeout内に接続できなかった場合は最後のエラーを返す。呼び出し元はこれを
// 致命的エラーとして扱い、プロセスを終了すること。
func Connect(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(connectRetryInterval)
	defer ticker.Stop()

	attempts := 0
	for {
		attempts++
		err := db.PingContext(ctx)
		if err == nil {
			slog.Info("store connection established",
				slog.Int("attempts", attempts),
			)
			return nil
		}

		slog.Warn("store connection attempt failed",
			slog.Int("attempt", attempts),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
		case <-ticker.C:
		}
	}
}
