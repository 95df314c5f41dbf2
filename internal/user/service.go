// Package user はユーザー管理のドメインロジックを提供する。
// ユーザーのCRUD、所有タスクを含む削除、外部IdPアカウントとの紐付けを扱う。
package user

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

// Service はユーザー管理のサービス層。
type Service struct {
	gate     Gate
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(gate Gate, userRepo repository.UserRepository) *Service {
	return &Service{
		gate:     gate,
		userRepo: userRepo,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Get は指定IDのユーザーを取得する。
func (s *Service) Get(ctx context.Context, rawID string) (*model.User, error) {
	if err := s.gate.Check(); err != nil {
		return nil, err
	}
	id, err := model.ParseID(rawID)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// List は全ユーザーを作成順に取得する。
func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	if err := s.gate.Check(); err != nil {
		return nil, err
	}

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// GetByEmail はメールアドレスが完全一致するユーザーを取得する。
func (s *Service) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := s.gate.Check(); err != nil {
		return nil, err
	}
	if email == "" {
		return nil, model.NewMissingFieldsError([]string{"email"})
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// Exists は指定IDのユーザーが存在するかを返す。
func (s *Service) Exists(ctx context.Context, rawID string) (bool, error) {
	if err := s.gate.Check(); err != nil {
		return false, err
	}
	id, err := model.ParseID(rawID)
	if err != nil {
		return false, err
	}

	found, err := s.userRepo.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("ユーザーの存在確認に失敗しました: %w", err)
	}
	return found, nil
}

// EmailExists はexcludeID以外のユーザーがemailを使用しているかを返す。
// rawExcludeIDが空の場合は全ユーザーを対象とする。
func (s *Service) EmailExists(ctx context.Context, email, rawExcludeID string) (bool, error) {
	if err := s.gate.Check(); err != nil {
		return false, err
	}
	excludeID, err := parseExcludeID(rawExcludeID)
	if err != nil {
		return false, err
	}

	found, err := s.userRepo.EmailExists(ctx, email, excludeID)
	if err != nil {
		return false, fmt.Errorf("メールアドレスの重複確認に失敗しました: %w", err)
	}
	return found, nil
}

// GitHubIDExists はexcludeID以外のユーザーがgithubIDに紐付いているかを返す。
func (s *Service) GitHubIDExists(ctx context.Context, githubID, rawExcludeID string) (bool, error) {
	if err := s.gate.Check(); err != nil {
		return false, err
	}
	excludeID, err := parseExcludeID(rawExcludeID)
	if err != nil {
		return false, err
	}

	found, err := s.userRepo.GitHubIDExists(ctx, githubID, excludeID)
	if err != nil {
		return false, fmt.Errorf("GitHub IDの重複確認に失敗しました: %w", err)
	}
	return found, nil
}

// Create はユーザーを作成し、採番したIDを返す。
// 必須キー（name）がない場合はInvalidInput、スキーマ違反はValidationFailed、
// email・GitHub IDが他ユーザーと重複する場合はConflictを返す。
func (s *Service) Create(ctx context.Context, fields model.UserFields) (string, error) {
	if err := s.gate.Check(); err != nil {
		return "", err
	}
	if missing := fields.Missing(); len(missing) > 0 {
		return "", model.NewMissingFieldsError(missing)
	}

	user := &model.User{}
	fields.ApplyTo(user)
	if err := model.ValidateUser(user); err != nil {
		return "", err
	}
	if err := s.checkUnique(ctx, user, uuid.Nil); err != nil {
		return "", err
	}

	now := s.now()
	user.ID = model.NewID()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := s.userRepo.Create(ctx, user); err != nil {
		return "", classifyWriteError("ユーザーの作成に失敗しました", err)
	}

	slog.Info("ユーザーを作成しました",
		slog.String("user_id", user.ID.String()),
	)

	return user.ID.String(), nil
}

// Update はpayloadに含まれるフィールドのみを反映してユーザーを更新し、更新後のユーザーを返す。
func (s *Service) Update(ctx context.Context, rawID string, fields model.UserFields) (*model.User, error) {
	if err := s.gate.Check(); err != nil {
		return nil, err
	}
	id, err := model.ParseID(rawID)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if existing == nil {
		return nil, model.NewUserNotFoundError()
	}

	updated := *existing
	fields.ApplyTo(&updated)
	if err := model.ValidateUser(&updated); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, &updated, id); err != nil {
		return nil, err
	}

	updated.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewUserNotFoundError()
		}
		return nil, classifyWriteError("ユーザーの更新に失敗しました", err)
	}

	return &updated, nil
}

// Delete はユーザーを削除する。
// 所有タスクの削除が成功した場合にのみユーザー本体を削除する（同一トランザクション）。
func (s *Service) Delete(ctx context.Context, rawID string) error {
	if err := s.gate.Check(); err != nil {
		return err
	}
	id, err := model.ParseID(rawID)
	if err != nil {
		return err
	}

	slog.Info("ユーザー削除を開始します",
		slog.String("user_id", id.String()),
	)

	tasksDeleted, err := s.userRepo.DeleteWithOwnedTasks(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError()
		}
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("ユーザー削除が完了しました",
		slog.String("user_id", id.String()),
		slog.Int64("tasks_deleted", tasksDeleted),
	)

	return nil
}

// checkUnique はemail・GitHub IDが他ユーザーに使用されていないかを確認する。
// 空の値は確認しない。
func (s *Service) checkUnique(ctx context.Context, user *model.User, excludeID uuid.UUID) error {
	if user.Email != "" {
		taken, err := s.userRepo.EmailExists(ctx, user.Email, excludeID)
		if err != nil {
			return fmt.Errorf("メールアドレスの重複確認に失敗しました: %w", err)
		}
		if taken {
			return model.NewEmailConflictError()
		}
	}
	if user.GitHubID != "" {
		taken, err := s.userRepo.GitHubIDExists(ctx, user.GitHubID, excludeID)
		if err != nil {
			return fmt.Errorf("GitHub IDの重複確認に失敗しました: %w", err)
		}
		if taken {
			return model.NewGitHubIDConflictError()
		}
	}
	return nil
}

// classifyWriteError は書き込み時の一意制約違反をConflictに変換する。
// 確認と書き込みの間に他のリクエストが同じ値を書き込んだ場合に発生する。
func classifyWriteError(msg string, err error) error {
	switch {
	case database.IsUniqueViolationOn(err, "email"):
		return model.NewEmailConflictError()
	case database.IsUniqueViolationOn(err, "github_id"):
		return model.NewGitHubIDConflictError()
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

func parseExcludeID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	return model.ParseID(raw)
}
