package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/hitoshi/taskman/internal/database"
)

// OpenPostgres はTEST_DATABASE_URLのPostgreSQLに接続し、マイグレーションを適用して返す。
// 未設定または接続できない場合はテストをスキップする。
// 前後で全テーブルを空にするため、同じデータベースを使うテストは並列実行しないこと。
func OpenPostgres(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	db, err := database.Open(database.DriverPostgres, url)
	if err != nil {
		t.Fatalf("failed to open postgres: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		t.Skipf("postgres is not reachable: %v", err)
	}

	if err := database.RunMigrations(db, database.DriverPostgres); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	truncate(t, db)
	t.Cleanup(func() {
		truncate(t, db)
		db.Close()
	})

	return db
}

func truncate(t *testing.T, db *sql.DB) {
	t.Helper()
	if _, err := db.Exec(`TRUNCATE sessions, tasks, users`); err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}
