package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
)

type mockUserService struct {
	getFn        func(ctx context.Context, rawID string) (*model.User, error)
	listFn       func(ctx context.Context) ([]*model.User, error)
	getByEmailFn func(ctx context.Context, email string) (*model.User, error)
	createFn     func(ctx context.Context, fields model.UserFields) (string, error)
	updateFn     func(ctx context.Context, rawID string, fields model.UserFields) (*model.User, error)
	deleteFn     func(ctx context.Context, rawID string) error
}

func (m *mockUserService) Get(ctx context.Context, rawID string) (*model.User, error) {
	return m.getFn(ctx, rawID)
}

func (m *mockUserService) List(ctx context.Context) ([]*model.User, error) {
	return m.listFn(ctx)
}

func (m *mockUserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.getByEmailFn(ctx, email)
}

func (m *mockUserService) Create(ctx context.Context, fields model.UserFields) (string, error) {
	return m.createFn(ctx, fields)
}

func (m *mockUserService) Update(ctx context.Context, rawID string, fields model.UserFields) (*model.User, error) {
	return m.updateFn(ctx, rawID, fields)
}

func (m *mockUserService) Delete(ctx context.Context, rawID string) error {
	return m.deleteFn(ctx, rawID)
}

// newRequest はURLパラメータと認証主体を設定したリクエストを生成する。
func newRequest(method, target, body string, params map[string]string, subject string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if subject != "" {
		ctx = middleware.ContextWithUserID(ctx, subject)
	}
	return req.WithContext(ctx)
}

func TestUserHandler_List_EmptyIsArray(t *testing.T) {
	h := NewUserHandler(&mockUserService{
		listFn: func(ctx context.Context) ([]*model.User, error) { return nil, nil },
	})

	w := httptest.NewRecorder()
	h.List(w, newRequest(http.MethodGet, "/users", "", nil, ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestUserHandler_Create_IgnoresGitHubID(t *testing.T) {
	var received model.UserFields
	h := NewUserHandler(&mockUserService{
		createFn: func(ctx context.Context, fields model.UserFields) (string, error) {
			received = fields
			return "new-id", nil
		},
	})

	w := httptest.NewRecorder()
	h.Create(w, newRequest(http.MethodPost, "/users",
		`{"name":"Alice","email":"alice@example.com","githubId":"123"}`, nil, ""))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":"new-id"}`, w.Body.String())
	assert.Equal(t, model.Some("Alice"), received.Name)
	assert.Equal(t, model.Some("alice@example.com"), received.Email)
	assert.False(t, received.GitHubID.Set)
}

func TestUserHandler_Create_InvalidJSON(t *testing.T) {
	h := NewUserHandler(&mockUserService{
		createFn: func(ctx context.Context, fields model.UserFields) (string, error) {
			t.Fatal("service should not be called")
			return "", nil
		},
	})

	w := httptest.NewRecorder()
	h.Create(w, newRequest(http.MethodPost, "/users", `{"name":`, nil, ""))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserHandler_Get_PassesPathID(t *testing.T) {
	id := uuid.New()
	h := NewUserHandler(&mockUserService{
		getFn: func(ctx context.Context, rawID string) (*model.User, error) {
			if rawID != id.String() {
				return nil, model.NewUserNotFoundError()
			}
			return &model.User{ID: id, Name: "Alice"}, nil
		},
	})

	w := httptest.NewRecorder()
	h.Get(w, newRequest(http.MethodGet, "/users/"+id.String(), "", map[string]string{"id": id.String()}, id.String()))

	require.Equal(t, http.StatusOK, w.Code)
	var got model.User
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, id, got.ID)
}

func TestUserHandler_Update_IgnoresGitHubID(t *testing.T) {
	var received model.UserFields
	h := NewUserHandler(&mockUserService{
		updateFn: func(ctx context.Context, rawID string, fields model.UserFields) (*model.User, error) {
			received = fields
			return &model.User{Name: "Renamed"}, nil
		},
	})

	w := httptest.NewRecorder()
	h.Update(w, newRequest(http.MethodPut, "/users/u1", `{"name":"Renamed","githubId":"999"}`,
		map[string]string{"id": "u1"}, "u1"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.Some("Renamed"), received.Name)
	assert.False(t, received.Email.Set)
	assert.False(t, received.GitHubID.Set)
}

func TestUserHandler_Delete(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"成功", nil, http.StatusNoContent},
		{"存在しない", model.NewUserNotFoundError(), http.StatusNotFound},
		{"不正なID", model.NewInvalidIDError("x"), http.StatusBadRequest},
		{"ストア未接続", model.NewStoreNotReadyError(), http.StatusServiceUnavailable},
		{"内部エラー", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewUserHandler(&mockUserService{
				deleteFn: func(ctx context.Context, rawID string) error { return tt.err },
			})

			w := httptest.NewRecorder()
			h.Delete(w, newRequest(http.MethodDelete, "/users/x", "", map[string]string{"id": "x"}, "x"))

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestUserHandler_GetByEmail_PassesQuery(t *testing.T) {
	var received string
	h := NewUserHandler(&mockUserService{
		getByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			received = email
			return &model.User{Name: "Alice", Email: email}, nil
		},
	})

	w := httptest.NewRecorder()
	h.GetByEmail(w, newRequest(http.MethodGet, "/users/email?email=alice%40example.com", "", nil, ""))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice@example.com", received)
}
