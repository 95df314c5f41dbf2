package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hitoshi/taskman/internal/database"
	"github.com/hitoshi/taskman/internal/model"
)

// FindOrCreateByGitHub は外部IdPのアカウントに紐付くユーザーを返す。
// 紐付け済みのユーザーが存在する場合は属性を上書きせずそのまま返す。
// 存在しない場合はprofileの属性で検証したうえでユーザーを作成し、再取得して返す。
//
// emailが既に他ユーザーに使用されている場合はemailなしで作成する。
// 同じアカウントで並行してログインし先に作成された場合は、そのユーザーを返す。
func (s *Service) FindOrCreateByGitHub(ctx context.Context, profile model.ExternalProfile) (*model.User, error) {
	if err := s.gate.Check(); err != nil {
		return nil, err
	}
	if profile.SubjectID == "" {
		return nil, model.NewMissingFieldsError([]string{"githubId"})
	}

	existing, err := s.userRepo.FindByGitHubID(ctx, profile.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("GitHub IDによるユーザー検索に失敗しました: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	user := &model.User{
		Name:     profile.Name,
		Email:    profile.Email,
		GitHubID: profile.SubjectID,
	}
	if err := model.ValidateUser(user); err != nil {
		return nil, err
	}

	if user.Email != "" {
		taken, err := s.userRepo.EmailExists(ctx, user.Email, uuid.Nil)
		if err != nil {
			return nil, fmt.Errorf("メールアドレスの重複確認に失敗しました: %w", err)
		}
		if taken {
			slog.Warn("メールアドレスが既に使用されているためemailなしで作成します",
				slog.String("provider", profile.Provider),
				slog.String("github_id", profile.SubjectID),
			)
			user.Email = ""
		}
	}

	if err := s.createLinked(ctx, user); err != nil {
		return nil, err
	}

	linked, err := s.userRepo.FindByGitHubID(ctx, profile.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("作成したユーザーの再取得に失敗しました: %w", err)
	}
	if linked == nil {
		return nil, fmt.Errorf("作成したユーザーが見つかりません: github_id=%s", profile.SubjectID)
	}

	return linked, nil
}

// createLinked はGitHub IDを紐付けたユーザーを作成する。
// GitHub IDの一意制約違反は並行ログインで先に作成されたものとして成功扱いにする。
func (s *Service) createLinked(ctx context.Context, user *model.User) error {
	now := s.now()
	user.ID = model.NewID()
	user.CreatedAt = now
	user.UpdatedAt = now

	err := s.userRepo.Create(ctx, user)
	if err == nil {
		slog.Info("GitHubアカウントに紐付くユーザーを作成しました",
			slog.String("user_id", user.ID.String()),
			slog.String("github_id", user.GitHubID),
		)
		return nil
	}

	switch {
	case database.IsUniqueViolationOn(err, "github_id"):
		slog.Info("GitHubアカウントは並行リクエストで紐付け済みです",
			slog.String("github_id", user.GitHubID),
		)
		return nil
	case database.IsUniqueViolationOn(err, "email") && user.Email != "":
		user.Email = ""
		return s.createLinked(ctx, user)
	default:
		return fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
}
