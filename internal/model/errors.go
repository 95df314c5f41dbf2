// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind はコア層が返すエラーの種別を表す。
// 全てのコア操作は成功するか、以下のいずれか1つの種別を返す。
// いずれにも該当しないエラーは内部エラーとして扱う。
type ErrorKind string

const (
	// KindStoreNotReady はストア接続が未確立であることを示す。再試行可能。
	KindStoreNotReady ErrorKind = "store_not_ready"
	// KindInvalidInput は不正なID、必須フィールドの欠落、解釈できないペイロードを示す。
	KindInvalidInput ErrorKind = "invalid_input"
	// KindNotFound は対象レコードが存在しないことを示す。
	KindNotFound ErrorKind = "not_found"
	// KindConflict は一意制約（email、GitHub ID）に違反することを示す。
	KindConflict ErrorKind = "conflict"
	// KindValidationFailed はスキーマ検証に失敗したことを示す。Fieldsに違反フィールドを持つ。
	KindValidationFailed ErrorKind = "validation_failed"
	// KindUnauthenticated は認証されていないことを示す。
	KindUnauthenticated ErrorKind = "unauthenticated"
	// KindForbidden は認証済みだが権限がないことを示す。
	KindForbidden ErrorKind = "forbidden"
)

// APIError は統一エラーフォーマットを表す。
// Kindで種別を判定し、UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Kind     ErrorKind // エラー種別
	Code     string    // エラーコード
	Message  string    // エラーメッセージ
	Category string    // カテゴリ: auth, validation, resource, system
	Action   string    // ユーザー向け対処方法
	Fields   []string  // 違反フィールド（ValidationFailed / 必須欠落時）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("[%s] %s (%s)", e.Code, e.Message, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// KindOf はerrに含まれるAPIErrorの種別を返す。
// APIErrorを含まない場合はfalseを返す。
func KindOf(err error) (ErrorKind, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return "", false
}

// IsKind はerrが指定種別のAPIErrorかどうかを返す。
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// 定義済みエラーコード
const (
	ErrCodeStoreNotReady    = "STORE_NOT_READY"
	ErrCodeInvalidID        = "INVALID_ID"
	ErrCodeMissingFields    = "MISSING_FIELDS"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeOwnerNotFound    = "OWNER_NOT_FOUND"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeTaskNotFound     = "TASK_NOT_FOUND"
	ErrCodeEmailConflict    = "EMAIL_CONFLICT"
	ErrCodeGitHubIDConflict = "GITHUB_ID_CONFLICT"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeUnauthenticated  = "UNAUTHENTICATED"
	ErrCodeForbidden        = "FORBIDDEN"
)

// NewStoreNotReadyError はストア未接続エラーを生成する。
func NewStoreNotReadyError() *APIError {
	return &APIError{
		Kind:     KindStoreNotReady,
		Code:     ErrCodeStoreNotReady,
		Message:  "データベースの準備がまだ完了していません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidIDError は不正なID形式のエラーを生成する。
func NewInvalidIDError(id string) *APIError {
	return &APIError{
		Kind:     KindInvalidInput,
		Code:     ErrCodeInvalidID,
		Message:  fmt.Sprintf("IDの形式が正しくありません: %q", id),
		Category: "validation",
		Action:   "正しいIDを指定してください。",
	}
}

// NewMissingFieldsError は必須フィールド欠落エラーを生成する。
func NewMissingFieldsError(fields []string) *APIError {
	return &APIError{
		Kind:     KindInvalidInput,
		Code:     ErrCodeMissingFields,
		Message:  "必須フィールドが不足しています。",
		Category: "validation",
		Action:   "必須フィールドをすべて指定してください。",
		Fields:   fields,
	}
}

// NewInvalidRequestError はリクエスト形式が解釈できない場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Kind:     KindInvalidInput,
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストの形式が正しくありません: %s", reason),
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewOwnerNotFoundError はタスクの所有者として指定されたユーザーが存在しない場合のエラーを生成する。
// 所有者の不在はリクエスト内容の誤りとしてInvalidInputに分類する。
func NewOwnerNotFoundError() *APIError {
	return &APIError{
		Kind:     KindInvalidInput,
		Code:     ErrCodeOwnerNotFound,
		Message:  "タスクの所有者が存在しません。",
		Category: "validation",
		Action:   "存在するユーザーを所有者として指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "resource",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewTaskNotFoundError はタスクが見つからない場合のエラーを生成する。
func NewTaskNotFoundError() *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeTaskNotFound,
		Message:  "タスクが見つかりません。",
		Category: "resource",
		Action:   "タスクIDを確認してください。",
	}
}

// NewEmailConflictError はメールアドレスが既に使用されている場合のエラーを生成する。
func NewEmailConflictError() *APIError {
	return &APIError{
		Kind:     KindConflict,
		Code:     ErrCodeEmailConflict,
		Message:  "このメールアドレスは既に使用されています。",
		Category: "validation",
		Action:   "別のメールアドレスを指定してください。",
	}
}

// NewGitHubIDConflictError はGitHub IDが既に別ユーザーに紐付いている場合のエラーを生成する。
func NewGitHubIDConflictError() *APIError {
	return &APIError{
		Kind:     KindConflict,
		Code:     ErrCodeGitHubIDConflict,
		Message:  "このGitHubアカウントは既に別のユーザーに紐付いています。",
		Category: "auth",
		Action:   "紐付け済みのアカウントでログインしてください。",
	}
}

// NewValidationError はスキーマ検証エラーを生成する。fieldsには違反したフィールド名を渡す。
func NewValidationError(fields []string) *APIError {
	return &APIError{
		Kind:     KindValidationFailed,
		Code:     ErrCodeValidationFailed,
		Message:  "入力値が不正です。",
		Category: "validation",
		Action:   "指定されたフィールドの値を確認してください。",
		Fields:   fields,
	}
}

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Kind:     KindUnauthenticated,
		Code:     ErrCodeUnauthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Kind:     KindForbidden,
		Code:     ErrCodeForbidden,
		Message:  "このリクエストを実行する権限がありません。",
		Category: "auth",
		Action:   "自分のリソースに対してのみ操作できます。",
	}
}
