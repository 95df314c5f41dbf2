package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskman/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Get(ctx context.Context, rawID string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, fields model.UserFields) (string, error)
	Update(ctx context.Context, rawID string, fields model.UserFields) (*model.User, error)
	// Delete はユーザーと所有タスクを削除する。
	Delete(ctx context.Context, rawID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

type createdResponse struct {
	ID string `json:"id"`
}

// List は全ユーザーを返す。
// GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if users == nil {
		users = []*model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// GetByEmail はメールアドレスでユーザーを検索する。
// GET /users/email?email=xxx
func (h *UserHandler) GetByEmail(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Create はユーザーを登録する。
// GitHub IDはログイン時の紐付けでのみ設定されるため、ボディの値は無視する。
// POST /users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var fields model.UserFields
	if err := decodeJSON(r, &fields); err != nil {
		handleServiceError(w, err)
		return
	}
	fields.GitHubID = model.Optional[string]{}

	id, err := h.service.Create(r.Context(), fields)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

// Get は指定ユーザーを返す。
// GET /users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Update はユーザーの属性を部分更新する。
// PUT /users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var fields model.UserFields
	if err := decodeJSON(r, &fields); err != nil {
		handleServiceError(w, err)
		return
	}
	fields.GitHubID = model.Optional[string]{}

	user, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), fields)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Delete はユーザーと所有タスクを削除する。
// DELETE /users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
