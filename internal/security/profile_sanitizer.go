// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ProfileSanitizer は外部IdPから受け取ったプロフィール文字列を無害化する。
// bluemondayのStrictPolicyで全てのタグを除去し、プレーンテキストのみを残す。
package security

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

// maxNameLength は無害化後の表示名の最大文字数。
const maxNameLength = 100

// ProfileSanitizer はプロフィール文字列の無害化を行う。
type ProfileSanitizer struct {
	policy *bluemonday.Policy
}

// NewProfileSanitizer はProfileSanitizerを生成する。
func NewProfileSanitizer() *ProfileSanitizer {
	return &ProfileSanitizer{policy: bluemonday.StrictPolicy()}
}

// SanitizeName は表示名からHTMLタグと制御文字を除去し、前後の空白を取り除く。
// bluemondayがエスケープした実体参照は元の文字に戻し、NFCに正規化してから文字数を制限する。
// 同一入力に対して常に同一出力を返す。
func (s *ProfileSanitizer) SanitizeName(name string) string {
	cleaned := html.UnescapeString(s.policy.Sanitize(name))
	cleaned = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, cleaned)
	cleaned = strings.TrimSpace(norm.NFC.String(cleaned))

	if runes := []rune(cleaned); len(runes) > maxNameLength {
		cleaned = string(runes[:maxNameLength])
	}
	return cleaned
}
