package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/taskman/internal/model"
)

const userColumns = `id, name, email, github_id, created_at, updated_at`

// SQLUserRepo はSQLデータベースを使用したユーザーリポジトリ。
// PostgreSQLとSQLiteの両方で動作するクエリのみを使用する。
type SQLUserRepo struct {
	db *sql.DB
}

// NewSQLUserRepo はSQLUserRepoを生成する。
func NewSQLUserRepo(db *sql.DB) *SQLUserRepo {
	return &SQLUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *SQLUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
func (r *SQLUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// FindByGitHubID はGitHub IDでユーザーを取得する。見つからない場合はnilを返す。
func (r *SQLUserRepo) FindByGitHubID(ctx context.Context, githubID string) (*model.User, error) {
	user, err := r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE github_id = $1`, githubID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by GitHub ID: %w", err)
	}
	return user, nil
}

// List は全ユーザーを作成順に取得する。
func (r *SQLUserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// Exists は指定IDのユーザーが存在するかを返す。
func (r *SQLUserRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	found, err := exists(ctx, r.db, `SELECT COUNT(*) FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return found, nil
}

// EmailExists はexcludeID以外のユーザーがemailを使用しているかを返す。
func (r *SQLUserRepo) EmailExists(ctx context.Context, email string, excludeID uuid.UUID) (bool, error) {
	found, err := exists(ctx, r.db,
		`SELECT COUNT(*) FROM users WHERE email = $1 AND id <> $2`,
		email, excludeID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return found, nil
}

// GitHubIDExists はexcludeID以外のユーザーがgithubIDに紐付いているかを返す。
func (r *SQLUserRepo) GitHubIDExists(ctx context.Context, githubID string, excludeID uuid.UUID) (bool, error) {
	found, err := exists(ctx, r.db,
		`SELECT COUNT(*) FROM users WHERE github_id = $1 AND id <> $2`,
		githubID, excludeID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to check GitHub ID existence: %w", err)
	}
	return found, nil
}

// Create はユーザーを作成する。空のemail、github_idはNULLとして保存する。
func (r *SQLUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, github_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Name, nullString(user.Email), nullString(user.GitHubID), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Update はユーザーの名前、メールアドレス、GitHub ID、更新日時を更新する。
func (r *SQLUserRepo) Update(ctx context.Context, user *model.User) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $1, email = $2, github_id = $3, updated_at = $4 WHERE id = $5`,
		user.Name, nullString(user.Email), nullString(user.GitHubID), user.UpdatedAt, user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if err := affectedOrNotFound(result); err != nil {
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	return nil
}

// DeleteWithOwnedTasks は所有タスク、ユーザーの順に同一トランザクションで削除する。
func (r *SQLUserRepo) DeleteWithOwnedTasks(ctx context.Context, id uuid.UUID) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. 所有タスクを削除（0件でも成功）
	tasksDeleted, err := deleteTasksByOwner(ctx, tx, id)
	if err != nil {
		return 0, err
	}

	// 2. ユーザーを削除（sessionsはCASCADE削除）
	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user: %w", err)
	}
	if err := affectedOrNotFound(result); err != nil {
		return 0, fmt.Errorf("failed to delete user %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return tasksDeleted, nil
}

func (r *SQLUserRepo) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*model.User, error) {
	user := &model.User{}
	var email, githubID sql.NullString
	if err := s.Scan(&user.ID, &user.Name, &email, &githubID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	user.Email = email.String
	user.GitHubID = githubID.String
	return user, nil
}

// compile-time interface check
var _ UserRepository = (*SQLUserRepo)(nil)
