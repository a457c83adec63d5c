// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は予約者名などの自由入力テキストに含まれるHTMLマークアップを検出・除去する。
// 予約者名はマークアップを含む場合に拒否され、プレーンテキストのままタイトルへ埋め込まれる。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はプレーンテキスト化のインターフェースを定義する。
type TextSanitizerService interface {
	// Sanitize は入力から全てのHTMLタグを除去したプレーンテキストを返す。
	// script, styleタグは中身ごと除去される。前後の空白は取り除く。
	Sanitize(raw string) string
	// IsPlainText はSanitizeしても前後の空白以外が変わらない場合にtrueを返す。
	IsPlainText(raw string) bool
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのStrictPolicyはスレッドセーフに利用できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はHTMLタグを除去し、エスケープされた実体参照を元の文字に戻す。
// "Tom & Jerry" のような通常のテキストはそのまま残る。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// IsPlainText は入力がマークアップや実体参照を含まないプレーンテキストかを判定する。
// "A<B" のようにStrictPolicyが後続を落とす入力もfalseになる。
func (s *textSanitizer) IsPlainText(raw string) bool {
	return s.Sanitize(raw) == strings.TrimSpace(raw)
}

// コンパイル時にインターフェースの実装を検証する。
var _ TextSanitizerService = (*textSanitizer)(nil)
