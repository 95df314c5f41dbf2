package model

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus はタスクの進捗状態を表す。
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Task はユーザーが所有するタスクを表す。
// OwnerUserIDは作成時に一度だけ設定され、以降は変更されない。
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status" validate:"oneof=todo in_progress done"`
	Priority    int        `json:"priority" validate:"min=1,max=5"`
	DueDate     string     `json:"dueDate"`
	OwnerUserID uuid.UUID  `json:"ownerUserId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskFields はタスクの作成・更新リクエストで受け取るフィールド群。
// OwnerUserIDは未検証の文字列として受け取り、サービス層でParseIDする。
type TaskFields struct {
	Title       Optional[string]     `json:"title"`
	Description Optional[string]     `json:"description"`
	Status      Optional[TaskStatus] `json:"status"`
	Priority    Optional[int]        `json:"priority"`
	DueDate     Optional[string]     `json:"dueDate"`
	OwnerUserID Optional[string]     `json:"ownerUserId"`
}

// Missing は作成時に必須のキーのうち、ペイロードに存在しないものを返す。
// 空文字列やゼロ値でもキーが存在すれば欠落とはみなさない。
func (f TaskFields) Missing() []string {
	var missing []string
	if !f.Title.Set {
		missing = append(missing, "title")
	}
	if !f.Description.Set {
		missing = append(missing, "description")
	}
	if !f.Status.Set {
		missing = append(missing, "status")
	}
	if !f.Priority.Set {
		missing = append(missing, "priority")
	}
	if !f.DueDate.Set {
		missing = append(missing, "dueDate")
	}
	if !f.OwnerUserID.Set {
		missing = append(missing, "ownerUserId")
	}
	return missing
}

// WithoutOwner は所有者フィールドを取り除いたコピーを返す。
// 更新時は所有者の指定を黙って無視する。
func (f TaskFields) WithoutOwner() TaskFields {
	f.OwnerUserID = Optional[string]{}
	return f
}

// ApplyTo は設定済みのフィールドのみをtに反映する。OwnerUserIDは反映しない。
func (f TaskFields) ApplyTo(t *Task) {
	if f.Title.Set {
		t.Title = f.Title.Value
	}
	if f.Description.Set {
		t.Description = f.Description.Value
	}
	if f.Status.Set {
		t.Status = f.Status.Value
	}
	if f.Priority.Set {
		t.Priority = f.Priority.Value
	}
	if f.DueDate.Set {
		t.DueDate = f.DueDate.Value
	}
}
