// Package auth はOAuth認証フロー、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*model.ExternalProfile, error)
}

// UserLinker は外部アカウントに紐付くユーザーを検索・作成するインターフェース。
type UserLinker interface {
	FindOrCreateByGitHub(ctx context.Context, profile model.ExternalProfile) (*model.User, error)
	Get(ctx context.Context, rawID string) (*model.User, error)
}

// NameSanitizer は外部IdPから受け取った表示名を無害化するインターフェース。
type NameSanitizer interface {
	SanitizeName(name string) string
}

// Gate はストアの準備状態を確認するインターフェース。
type Gate interface {
	Check() error
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	users       UserLinker
	sessionRepo repository.SessionRepository
	sanitizer   NameSanitizer
	gate        Gate
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	users UserLinker,
	sessionRepo repository.SessionRepository,
	sanitizer NameSanitizer,
	gate Gate,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		users:       users,
		sessionRepo: sessionRepo,
		sanitizer:   sanitizer,
		gate:        gate,
		config:      config,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 未登録のGitHubアカウントの場合はユーザーを自動作成する。
// 登録済みの場合は既存ユーザーの属性を変更せずにログインする。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	if err := s.gate.Check(); err != nil {
		return nil, err
	}

	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	profile, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}
	if s.sanitizer != nil {
		profile.Name = s.sanitizer.SanitizeName(profile.Name)
	}

	// 2. GitHub IDでユーザーを検索、なければ作成
	user, err := s.users.FindOrCreateByGitHub(ctx, *profile)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID.String()),
		slog.String("provider", profile.Provider),
	)

	// 3. セッションを発行
	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}
	if err := s.gate.Check(); err != nil {
		return err
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", maskSessionID(sessionID)))
	return nil
}

// FindSession は有効なセッションを取得する。存在しないか期限切れの場合はnilを返す。
func (s *Service) FindSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if err := s.gate.Check(); err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
// セッションが無効な場合やユーザーが削除済みの場合はUnauthenticatedを返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, model.NewUnauthenticatedError()
	}

	session, err := s.FindSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, model.NewUnauthenticatedError()
	}

	user, err := s.users.Get(ctx, session.UserID.String())
	if model.IsKind(err, model.KindNotFound) {
		return nil, model.NewUnauthenticatedError()
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID uuid.UUID) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now().UTC()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateState はOAuthのstateパラメータ用のランダム文字列を生成する。
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// maskSessionID はログ出力用にセッションIDの先頭のみを残す。
func maskSessionID(id string) string {
	if len(id) <= 8 {
		return "****"
	}
	return id[:8] + "****"
}
