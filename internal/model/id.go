package model

import "github.com/google/uuid"

// idLength はハイフン区切りの正規表記UUIDの文字数。
const idLength = 36

// NewID は新しいレコードIDを生成する。
// 時系列順に並ぶUUIDv7を使用し、生成に失敗した場合はUUIDv4にフォールバックする。
func NewID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// ParseID は外部から受け取ったID文字列をストアのキー型に変換する。
// 受け付けるのは正規表記（8-4-4-4-12）のみで、前後の空白やurn:uuid:、波括弧、ハイフンなしの表記は拒否する。
// 形式不正の場合はInvalidInput種別のAPIErrorを返し、ストアにはアクセスしない。
func ParseID(s string) (uuid.UUID, error) {
	if len(s) != idLength {
		return uuid.Nil, NewInvalidIDError(s)
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, NewInvalidIDError(s)
	}
	return id, nil
}
