package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// TestParseID は正しいUUID文字列のみを受け付けることを検証する。
func TestParseID(t *testing.T) {
	valid := NewID()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"正しいUUID", valid.String(), false},
		{"大文字", strings.ToUpper(valid.String()), false},
		{"前後の空白", "  " + valid.String() + " ", true},
		{"末尾の改行", valid.String() + "\n", true},
		{"urn形式", "urn:uuid:" + valid.String(), true},
		{"波括弧付き", "{" + valid.String() + "}", true},
		{"ハイフンなし", strings.ReplaceAll(valid.String(), "-", ""), true},
		{"空文字列", "", true},
		{"空白のみ", "   ", true},
		{"24桁の16進数", "507f1f77bcf86cd799439011", true},
		{"16進数以外", "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz", true},
		{"nil UUID", "00000000-0000-0000-0000-000000000000", true},
		{"SQL断片", "1' OR '1'='1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseID(tt.input)
			if tt.wantErr {
				if !IsKind(err, KindInvalidInput) {
					t.Fatalf("expected InvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != valid {
				t.Errorf("expected %s, got %s", valid, id)
			}
		})
	}
}

// TestNewID_TimeOrdered はNewIDが生成順に並ぶことを検証する。
func TestNewID_TimeOrdered(t *testing.T) {
	a := NewID()
	b := NewID()
	if a == b {
		t.Fatal("expected distinct ids")
	}
	if a.Version() != 7 {
		t.Errorf("expected UUIDv7, got version %d", a.Version())
	}
	if a.String() >= b.String() {
		t.Errorf("expected %s < %s", a, b)
	}
}

// TestOptional_UnmarshalJSON はキーの有無とnullを区別して保持することを検証する。
func TestOptional_UnmarshalJSON(t *testing.T) {
	var f TaskFields
	body := `{"title":"","priority":3,"description":null}`
	if err := json.Unmarshal([]byte(body), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !f.Title.Set || f.Title.Value != "" {
		t.Errorf("title: expected set with empty value, got %+v", f.Title)
	}
	if !f.Priority.Set || f.Priority.Value != 3 {
		t.Errorf("priority: expected set with 3, got %+v", f.Priority)
	}
	if !f.Description.Set || f.Description.Value != "" {
		t.Errorf("description: expected set with zero value for null, got %+v", f.Description)
	}
	if f.Status.Set {
		t.Error("status: expected unset")
	}
	if f.OwnerUserID.Set {
		t.Error("ownerUserId: expected unset")
	}
}

// TestOptional_UnmarshalJSON_TypeMismatch は型不一致がエラーになることを検証する。
func TestOptional_UnmarshalJSON_TypeMismatch(t *testing.T) {
	var f TaskFields
	if err := json.Unmarshal([]byte(`{"priority":"high"}`), &f); err == nil {
		t.Fatal("expected error for string priority")
	}
}

// TestTaskFields_Missing は存在しないキーのみを欠落として報告することを検証する。
func TestTaskFields_Missing(t *testing.T) {
	f := TaskFields{
		Title:    Some(""),
		Priority: Some(0),
	}
	want := []string{"description", "status", "dueDate", "ownerUserId"}
	if got := f.Missing(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

// TestTaskFields_WithoutOwner は所有者フィールドが取り除かれることを検証する。
func TestTaskFields_WithoutOwner(t *testing.T) {
	f := TaskFields{Status: Some(TaskStatusDone), OwnerUserID: Some(NewID().String())}
	stripped := f.WithoutOwner()
	if stripped.OwnerUserID.Set {
		t.Error("expected ownerUserId to be unset")
	}
	if !stripped.Status.Set {
		t.Error("expected status to be kept")
	}
	if !f.OwnerUserID.Set {
		t.Error("expected original fields to be unchanged")
	}
}

// TestUserFields_ApplyTo は設定済みフィールドのみが反映されることを検証する。
func TestUserFields_ApplyTo(t *testing.T) {
	u := &User{Name: "Alice", Email: "alice@example.com", GitHubID: "42"}
	UserFields{Email: Some("")}.ApplyTo(u)

	if u.Name != "Alice" {
		t.Errorf("name changed: %q", u.Name)
	}
	if u.Email != "" {
		t.Errorf("expected email cleared, got %q", u.Email)
	}
	if u.GitHubID != "42" {
		t.Errorf("githubId changed: %q", u.GitHubID)
	}
}

// TestValidateUser は名前とメールアドレスの検証ルールを検証する。
func TestValidateUser(t *testing.T) {
	tests := []struct {
		name       string
		user       User
		wantFields []string
	}{
		{"正常", User{Name: "Alice", Email: "alice@example.com"}, nil},
		{"メールなし", User{Name: "Bob"}, nil},
		{"名前が短い", User{Name: "Jo"}, []string{"name"}},
		{"メール形式不正", User{Name: "Alice", Email: "not-an-email"}, []string{"email"}},
		{"複数違反", User{Name: "", Email: "x@"}, []string{"email", "name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUser(&tt.user)
			if tt.wantFields == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Kind != KindValidationFailed {
				t.Fatalf("expected ValidationFailed, got %v", err)
			}
			if !reflect.DeepEqual(apiErr.Fields, tt.wantFields) {
				t.Errorf("expected fields %v, got %v", tt.wantFields, apiErr.Fields)
			}
		})
	}
}

// TestValidateTask はステータスと優先度の検証ルールを検証する。
func TestValidateTask(t *testing.T) {
	base := Task{Title: "Buy groceries", Status: TaskStatusTodo, Priority: 2, DueDate: "2026-01-25"}

	if err := ValidateTask(&base); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, p := range []int{0, 6, -1} {
		task := base
		task.Priority = p
		err := ValidateTask(&task)
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !reflect.DeepEqual(apiErr.Fields, []string{"priority"}) {
			t.Errorf("priority %d: expected priority violation, got %v", p, err)
		}
	}

	task := base
	task.Status = "archived"
	task.Title = ""
	err := ValidateTask(&task)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !reflect.DeepEqual(apiErr.Fields, []string{"status", "title"}) {
		t.Errorf("expected status and title violations, got %v", err)
	}
}

// TestKindOf_Wrapped はラップされたAPIErrorの種別を取り出せることを検証する。
func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("failed to create user: %w", NewEmailConflictError())
	kind, ok := KindOf(err)
	if !ok || kind != KindConflict {
		t.Errorf("expected Conflict, got %q (ok=%v)", kind, ok)
	}

	if _, ok := KindOf(errors.New("boom")); ok {
		t.Error("expected plain error to have no kind")
	}
}

// TestAPIError_Error はフィールド付きのエラーメッセージ形式を検証する。
func TestAPIError_Error(t *testing.T) {
	err := NewValidationError([]string{"name", "email"})
	want := "[VALIDATION_FAILED] 入力値が不正です。 (name, email)"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}
