package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskman/internal/model"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	Get(ctx context.Context, rawID string) (*model.Task, error)
	ListByOwner(ctx context.Context, rawOwnerID string) ([]*model.Task, error)
	Create(ctx context.Context, fields model.TaskFields) (string, error)
	Update(ctx context.Context, rawID string, fields model.TaskFields) (*model.Task, error)
	Delete(ctx context.Context, rawID string) error
}

// taskRequest はタスクの作成・更新リクエストボディ。
// ownerUserIdは作成時は認証主体、更新時は既存の所有者が使われるため、値の型を問わず読み捨てる。
type taskRequest struct {
	model.TaskFields
	OwnerUserID json.RawMessage `json:"ownerUserId"`
}

// TaskHandler はタスク管理のHTTPハンドラー。
// 個別タスクへの操作は所有者本人のみに許可する。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{service: service}
}

// ListByOwner は指定ユーザーのタスク一覧を返す。
// GET /tasks/user/{id}
func (h *TaskHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.ListByOwner(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Get は指定タスクを返す。
// GET /tasks/{id}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.ownedTask(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Create はログインユーザーを所有者としてタスクを作成する。
// ボディのownerUserIdは認証主体で上書きする。
// POST /tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := subjectID(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	fields := req.TaskFields
	fields.OwnerUserID = model.Some(userID)

	id, err := h.service.Create(r.Context(), fields)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

// Update はタスクの属性を部分更新する。所有者は変更できない。
// PUT /tasks/{id}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, err := h.ownedTask(r); err != nil {
		handleServiceError(w, err)
		return
	}
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	task, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req.TaskFields)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Delete はタスクを削除する。
// DELETE /tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.ownedTask(r); err != nil {
		handleServiceError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownedTask はパスのタスクを取得し、認証主体が所有者であることを確認する。
func (h *TaskHandler) ownedTask(r *http.Request) (*model.Task, error) {
	userID, err := subjectID(r)
	if err != nil {
		return nil, err
	}
	task, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if task.OwnerUserID.String() != userID {
		return nil, model.NewForbiddenError()
	}
	return task, nil
}
