package model

import (
	"time"

	"github.com/google/uuid"
)

// User はサービス利用ユーザーを表す。
// Email、GitHubIDは任意項目で、値がある場合はユーザー間で一意となる。
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name" validate:"min=3"`
	Email     string    `json:"email,omitempty" validate:"omitempty,email"`
	GitHubID  string    `json:"githubId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserFields はユーザーの作成・更新リクエストで受け取るフィールド群。
// キーの有無をOptionalで保持する。
type UserFields struct {
	Name     Optional[string] `json:"name"`
	Email    Optional[string] `json:"email"`
	GitHubID Optional[string] `json:"githubId"`
}

// Missing は作成時に必須のキーのうち、ペイロードに存在しないものを返す。
func (f UserFields) Missing() []string {
	var missing []string
	if !f.Name.Set {
		missing = append(missing, "name")
	}
	return missing
}

// ApplyTo は設定済みのフィールドのみをuに反映する。
func (f UserFields) ApplyTo(u *User) {
	if f.Name.Set {
		u.Name = f.Name.Value
	}
	if f.Email.Set {
		u.Email = f.Email.Value
	}
	if f.GitHubID.Set {
		u.GitHubID = f.GitHubID.Value
	}
}

// ExternalProfile は外部IdPから取得したユーザー情報を表す。
// SubjectIDはIdP内で安定した識別子、Name/Emailはベストエフォートの表示属性。
type ExternalProfile struct {
	Provider  string
	SubjectID string
	Name      string
	Email     string
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}
