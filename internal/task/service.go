// Package task はタスク管理のドメインロジックを提供する。
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskman/internal/database"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// Gate はストアの準備状態を確認するインターフェース。
type Gate interface {
	Check() error
}

// OwnerChecker はタスク所有者の存在確認インターフェース。
type OwnerChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service はタスク管理のサービス層。
type Service struct {
	gate     Gate
	taskRepo repository.TaskRepository
	owners   OwnerChecker
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(gate Gate, taskRepo repository.TaskRepository, owners OwnerChecker) *Service {
	return &Service{
		gate:     gate,
		taskRepo: taskRepo,
		owners:   owners,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Get は指定IDのタスクを取得する。
func (s *Service) Get(ctx context.Context, rawID string) (*model.Task, error) {
	if err := s.gate.Check(); err != nil {
		return nil, err
	}
	id, err := model.ParseID(rawID)
	if err != nil {
		return nil, err
	}

	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError()
	}
	return task, nil
}

// ListByOwner は指定ユーザーが所有するタスクを作成順に返す。
// 該当がない場合も空スライスを返し、NotFoundにはしない。
func (s *Service) ListByOwner(ctx context.Context, rawOwnerID string) ([]*model.Task, error) {
	if err := s.gate.Check(); err != nil {
		return nil, err
	}
	ownerID, err := model.ParseID(rawOwnerID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}
	return tasks, nil
}

// Exists は指定IDのタスクが存在するかを返す。
func (s *Service) Exists(ctx context.Context, rawID string) (bool, error) {
	if err := s.gate.Check(); err != nil {
		return false, err
	}
	id, err := model.ParseID(rawID)
	if err != nil {
		return false, err
	}

	found, err := s.taskRepo.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("タスクの存在確認に失敗しました: %w", err)
	}
	return found, nil
}

// Create はタスクを作成し、採番したIDを返す。
// 全フィールドのキーが必須で、所有者は作成時点で存在していなければならない。
func (s *Service) Create(ctx context.Context, fields model.TaskFields) (string, error) {
	if err := s.gate.Check(); err != nil {
		return "", err
	}
	if missing := fields.Missing(); len(missing) > 0 {
		return "", model.NewMissingFieldsError(missing)
	}
	ownerID, err := model.ParseID(fields.OwnerUserID.Value)
	if err != nil {
		return "", err
	}

	task := &model.Task{OwnerUserID: ownerID}
	fields.ApplyTo(task)
	if err := model.ValidateTask(task); err != nil {
		return "", err
	}

	found, err := s.owners.Exists(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("タスク所有者の存在確認に失敗しました: %w", err)
	}
	if !found {
		return "", model.NewOwnerNotFoundError()
	}

	now := s.now()
	task.ID = model.NewID()
	task.CreatedAt = now
	task.UpdatedAt = now

	if err := s.taskRepo.Create(ctx, task); err != nil {
		// 確認後に所有者が削除された場合は外部キー制約で拒否される
		if database.IsForeignKeyViolation(err) {
			return "", model.NewOwnerNotFoundError()
		}
		return "", fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}

	slog.Info("タスクを作成しました",
		slog.String("task_id", task.ID.String()),
		slog.String("owner_user_id", ownerID.String()),
	)

	return task.ID.String(), nil
}

// Update はpayloadに含まれるフィールドのみを反映してタスクを更新し、更新後のタスクを返す。
// ownerUserIdは指定されていても無視する。
func (s *Service) Update(ctx context.Context, rawID string, fields model.TaskFields) (*model.Task, error) {
	if err := s.gate.Check(); err != nil {
		return nil, err
	}
	id, err := model.ParseID(rawID)
	if err != nil {
		return nil, err
	}
	fields = fields.WithoutOwner()

	existing, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if existing == nil {
		return nil, model.NewTaskNotFoundError()
	}

	updated := *existing
	fields.ApplyTo(&updated)
	if err := model.ValidateTask(&updated); err != nil {
		return nil, err
	}

	updated.UpdatedAt = s.now()
	if err := s.taskRepo.Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewTaskNotFoundError()
		}
		return nil, fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}

	return &updated, nil
}

// Delete は指定IDのタスクを削除する。
func (s *Service) Delete(ctx context.Context, rawID string) error {
	if err := s.gate.Check(); err != nil {
		return err
	}
	id, err := model.ParseID(rawID)
	if err != nil {
		return err
	}

	if err := s.taskRepo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewTaskNotFoundError()
		}
		return fmt.Errorf("タスクの削除に失敗しました: %w", err)
	}

	slog.Info("タスクを削除しました", slog.String("task_id", id.String()))
	return nil
}
