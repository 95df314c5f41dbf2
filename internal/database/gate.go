package database

import (
	"log/slog"
	"sync"

	"github.com/hitoshi/taskman/internal/model"
)

// Gate はストア接続の準備状態を保持する。
// 状態は未準備から準備完了への一方向にのみ遷移し、逆方向には戻らない。
// プロセス起動時に1つだけ生成し、ストアを利用するサービスへ注入する。
type Gate struct {
	mu        sync.Mutex
	ready     bool
	callbacks []func()
}

// NewGate は未準備状態のGateを生成する。
func NewGate() *Gate {
	return &Gate{}
}

// IsReady は準備完了状態かどうかを返す。
func (g *Gate) IsReady() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

// OnReady は準備完了時に実行するコールバックを登録する。
// 既に準備完了の場合は登録せずに即座に同期実行する。
func (g *Gate) OnReady(cb func()) {
	g.mu.Lock()
	if !g.ready {
		g.callbacks = append(g.callbacks, cb)
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()

	cb()
}

// MarkReady は準備完了状態へ遷移し、登録済みのコールバックを登録順に1回ずつ実行する。
// 2回目以降の呼び出しは何もしない。
func (g *Gate) MarkReady() {
	g.mu.Lock()
	if g.ready {
		g.mu.Unlock()
		return
	}
	g.ready = true
	callbacks := g.callbacks
	g.callbacks = nil
	g.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}

	slog.Info("store ready callbacks executed",
		slog.Int("count", len(callbacks)),
	)
}

// Check は準備完了でなければStoreNotReadyエラーを返す。
// ストアにアクセスする全ての操作の先頭で呼び出す。
func (g *Gate) Check() error {
	if !g.IsReady() {
		return model.NewStoreNotReadyError()
	}
	return nil
}
