package model

import (
	"bytes"
	"encoding/json"
)

// Optional はJSONペイロード中にキーが存在したかどうかを保持する値。
// 部分更新で「キーなし」と「値あり（ゼロ値を含む）」を区別するために使う。
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some は値が設定されたOptionalを返す。
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// UnmarshalJSON はキーが存在した時点でSetをtrueにする。
// nullはゼロ値として扱う。
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// Or は値が設定されていればその値を、なければfallbackを返す。
func (o Optional[T]) Or(fallback T) T {
	if o.Set {
		return o.Value
	}
	return fallback
}
