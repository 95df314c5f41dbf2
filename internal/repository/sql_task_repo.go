package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/taskman/internal/model"
)

const taskColumns = `id, title, description, status, priority, due_date, owner_user_id, created_at, updated_at`

// SQLTaskRepo はSQLデータベースを使用したタスクリポジトリ。
type SQLTaskRepo struct {
	db *sql.DB
}

// NewSQLTaskRepo はSQLTaskRepoを生成する。
func NewSQLTaskRepo(db *sql.DB) *SQLTaskRepo {
	return &SQLTaskRepo{db: db}
}

// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
func (r *SQLTaskRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	task, err := scanTask(r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task by ID: %w", err)
	}
	return task, nil
}

// ListByOwner は指定ユーザーが所有するタスクを作成順に取得する。
// 該当がない場合は空スライスを返す。
func (r *SQLTaskRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE owner_user_id = $1 ORDER BY created_at, id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// Exists は指定IDのタスクが存在するかを返す。
func (r *SQLTaskRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	found, err := exists(ctx, r.db, `SELECT COUNT(*) FROM tasks WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to check task existence: %w", err)
	}
	return found, nil
}

// Create はタスクを作成する。
func (r *SQLTaskRepo) Create(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, status, priority, due_date, owner_user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		task.ID, task.Title, task.Description, string(task.Status), task.Priority, task.DueDate,
		task.OwnerUserID, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// Update はタスクの属性と更新日時を更新する。owner_user_idは更新しない。
func (r *SQLTaskRepo) Update(ctx context.Context, task *model.Task) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks
		 SET title = $1, description = $2, status = $3, priority = $4, due_date = $5, updated_at = $6
		 WHERE id = $7`,
		task.Title, task.Description, string(task.Status), task.Priority, task.DueDate, task.UpdatedAt, task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if err := affectedOrNotFound(result); err != nil {
		return fmt.Errorf("failed to update task %s: %w", task.ID, err)
	}
	return nil
}

// DeleteByID は指定IDのタスクを削除する。
func (r *SQLTaskRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if err := affectedOrNotFound(result); err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return nil
}

// DeleteByOwner は指定ユーザーが所有する全タスクを削除する。
func (r *SQLTaskRepo) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return deleteTasksByOwner(ctx, r.db, ownerID)
}

// deleteTasksByOwner はトランザクション内外から共通で使うタスク一括削除。
func deleteTasksByOwner(ctx context.Context, q DBTX, ownerID uuid.UUID) (int64, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM tasks WHERE owner_user_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete owned tasks: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func scanTask(s rowScanner) (*model.Task, error) {
	task := &model.Task{}
	var status string
	err := s.Scan(
		&task.ID, &task.Title, &task.Description, &status, &task.Priority,
		&task.DueDate, &task.OwnerUserID, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	task.Status = model.TaskStatus(status)
	return task, nil
}

// compile-time interface check
var _ TaskRepository = (*SQLTaskRepo)(nil)
