// Package repository はデータ永続化のインターフェースとSQL実装を提供する。
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/hitoshi/taskman/internal/model"
)

// ErrNotFound は更新・削除の対象レコードが存在しなかったことを示す。
var ErrNotFound = errors.New("record not found")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)

	// FindByEmail はメールアドレスが完全一致するユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByGitHubID はGitHub IDに紐付くユーザーを取得する。見つからない場合はnilを返す。
	FindByGitHubID(ctx context.Context, githubID string) (*model.User, error)

	// List は全ユーザーを作成順に取得する。
	List(ctx context.Context) ([]*model.User, error)

	// Exists は指定IDのユーザーが存在するかを返す。
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// EmailExists はexcludeID以外のユーザーがemailを使用しているかを返す。
	// excludeIDにuuid.Nilを渡すと全ユーザーが対象となる。
	EmailExists(ctx context.Context, email string, excludeID uuid.UUID) (bool, error)

	// GitHubIDExists はexcludeID以外のユーザーがgithubIDに紐付いているかを返す。
	GitHubIDExists(ctx context.Context, githubID string, excludeID uuid.UUID) (bool, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// Update はユーザーの属性を更新する。対象が存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, user *model.User) error

	// DeleteWithOwnedTasks はユーザーが所有するタスクを削除した後にユーザーを削除する。
	// 2つの削除は同一トランザクションで実行され、ユーザーが存在しない場合は
	// ErrNotFoundを返してロールバックする。削除したタスク数を返す。
	// sessionsはON DELETE CASCADEで削除される。
	DeleteWithOwnedTasks(ctx context.Context, id uuid.UUID) (int64, error)
}

// TaskRepository はタスクデータの永続化インターフェース。
type TaskRepository interface {
	// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error)

	// ListByOwner は指定ユーザーが所有するタスクを作成順に取得する。
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.Task, error)

	// Exists は指定IDのタスクが存在するかを返す。
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// Create はタスクを作成する。所有者が存在しない場合は外部キー制約違反となる。
	Create(ctx context.Context, task *model.Task) error

	// Update は所有者以外のタスク属性を更新する。対象が存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, task *model.Task) error

	// DeleteByID は指定IDのタスクを削除する。対象が存在しない場合はErrNotFoundを返す。
	DeleteByID(ctx context.Context, id uuid.UUID) error

	// DeleteByOwner は指定ユーザーが所有する全タスクを削除し、削除件数を返す。
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	// DeleteExpired は期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// DBTX は*sql.DBと*sql.Txの共通インターフェース。
// トランザクション内外で同じクエリ関数を使うために用いる。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// nullString は空文字列をNULLとして扱う。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// exists はCOUNTクエリの結果が1以上かどうかを返す。
func exists(ctx context.Context, q DBTX, query string, args ...any) (bool, error) {
	var count int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// affectedOrNotFound は更新件数が0件の場合にErrNotFoundを返す。
func affectedOrNotFound(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
