// Package testutil はテスト用の共通ヘルパーを提供する。
package testutil

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/hitoshi/taskman/internal/database"
)

// OpenSQLite はテストごとに独立したインメモリSQLiteデータベースを開き、
// マイグレーションを適用して返す。テスト終了時に自動で閉じられる。
func OpenSQLite(t *testing.T) *sql.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)

	db, err := database.Open(database.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.RunMigrations(db, database.DriverSQLite); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// ReadyGate は準備完了状態のGateを返す。
func ReadyGate() *database.Gate {
	g := database.NewGate()
	g.MarkReady()
	return g
}
