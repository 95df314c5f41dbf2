package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskman/internal/model"
)

// --- モック定義 ---

type mockSessionFinder struct {
	findFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionFinder) FindSession(ctx context.Context, id string) (*model.Session, error) {
	if m.findFn != nil {
		return m.findFn(ctx, id)
	}
	return nil, nil
}

var testUserID = uuid.MustParse("0190a3c4-1111-7000-8000-000000000001")

func validSessionFinder() *mockSessionFinder {
	return &mockSessionFinder{
		findFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "valid-session-id" {
				return &model.Session{
					ID:        "valid-session-id",
					UserID:    testUserID,
					ExpiresAt: time.Now().Add(1 * time.Hour),
				}, nil
			}
			return nil, nil
		},
	}
}

// serveWithSession はセッションミドルウェアを通してリクエストを処理し、
// ハンドラーが観測したユーザーIDを返す。
func serveWithSession(t *testing.T, finder SessionFinder, cookie *http.Cookie) (*httptest.ResponseRecorder, string, bool) {
	t.Helper()

	var captured string
	called := false
	handler := NewSessionMiddleware(finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		captured, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w, captured, called
}

// --- テスト ---

func TestSessionMiddleware_ValidSession_InjectsUserID(t *testing.T) {
	w, userID, _ := serveWithSession(t, validSessionFinder(), &http.Cookie{Name: SessionCookieName, Value: "valid-session-id"})

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if userID != testUserID.String() {
		t.Errorf("userID = %q, want %q", userID, testUserID.String())
	}
}

// TestSessionMiddleware_Anonymous はセッションのないリクエストが未認証のまま通過することを検証する。
func TestSessionMiddleware_Anonymous(t *testing.T) {
	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"Cookieなし", nil},
		{"空のCookie", &http.Cookie{Name: SessionCookieName, Value: ""}},
		{"期限切れまたは存在しないセッション", &http.Cookie{Name: SessionCookieName, Value: "expired"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, userID, called := serveWithSession(t, validSessionFinder(), tt.cookie)
			if !called {
				t.Fatal("handler should be called")
			}
			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if userID != "" {
				t.Errorf("expected anonymous request, got user %q", userID)
			}
		})
	}
}

func TestSessionMiddleware_StoreNotReady_Returns503(t *testing.T) {
	finder := &mockSessionFinder{
		findFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, model.NewStoreNotReadyError()
		},
	}

	w, _, called := serveWithSession(t, finder, &http.Cookie{Name: SessionCookieName, Value: "any"})
	if called {
		t.Error("handler should not be called")
	}
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

// TestSessionMiddleware_RepositoryError_ContinuesAnonymous は検索エラー時に未認証として扱うことを検証する。
func TestSessionMiddleware_RepositoryError_ContinuesAnonymous(t *testing.T) {
	finder := &mockSessionFinder{
		findFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, context.DeadlineExceeded
		},
	}

	w, userID, called := serveWithSession(t, finder, &http.Cookie{Name: SessionCookieName, Value: "some-session"})
	if !called || w.Code != http.StatusOK {
		t.Fatalf("expected passthrough, status = %d", w.Code)
	}
	if userID != "" {
		t.Errorf("expected anonymous request, got user %q", userID)
	}
}

func TestUserIDFromContext_NoValue_ReturnsError(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for missing user ID in context")
	}
}

func TestUserIDFromContext_ValidValue_ReturnsUserID(t *testing.T) {
	ctx := ContextWithUserID(context.Background(), "user-456")
	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if userID != "user-456" {
		t.Errorf("userID = %q, want %q", userID, "user-456")
	}
}
