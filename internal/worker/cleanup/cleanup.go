// Package cleanup は期限切れセッションの定期削除ジョブを提供する。
// 期限切れのセッションは検索時に無効として扱われるため、
// このジョブはテーブルの肥大化を防ぐことだけを目的とする。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionStore は期限切れセッションを削除するストアのインターフェース。
type SessionStore interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Recorder は削除件数を記録するメトリクスのインターフェース。
type Recorder interface {
	RecordSessionsCleaned(count int64)
}

// DefaultInterval はセッション削除の既定の実行間隔。
const DefaultInterval = time.Hour

// SessionCleanupJob は期限切れセッションの削除ジョブ。
// 削除処理は冪等で、対象がない場合もエラーにならない。
type SessionCleanupJob struct {
	store    SessionStore
	recorder Recorder
	logger   *slog.Logger
}

// NewSessionCleanupJob は新しいSessionCleanupJobを生成する。recorderはnilでもよい。
func NewSessionCleanupJob(store SessionStore, recorder Recorder, logger *slog.Logger) *SessionCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionCleanupJob{
		store:    store,
		recorder: recorder,
		logger:   logger,
	}
}

// Run は期限切れセッションを1回削除する。
func (j *SessionCleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.store.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}

	if j.recorder != nil {
		j.recorder.RecordSessionsCleaned(deleted)
	}

	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start はctxがキャンセルされるまでintervalごとにRunを実行する。
// 起動直後に1回実行する。失敗はログに記録して次の周期で再試行する。
func (j *SessionCleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("セッションクリーンアップを開始しました",
		slog.Duration("interval", interval),
	)

	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("セッションクリーンアップを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
