package security

import (
	"strings"
	"testing"
)

// TestSanitize_StripsMarkup はHTMLタグが除去されることを検証する。
func TestSanitize_StripsMarkup(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま",
			input: "Alice",
			want:  "Alice",
		},
		{
			name:  "強調タグが除去される",
			input: "<b>Bob</b>",
			want:  "Bob",
		},
		{
			name:  "scriptタグは中身ごと除去される",
			input: "<script>alert('x')</script>Carol",
			want:  "Carol",
		},
		{
			name:  "属性付きタグも除去される",
			input: `<a href="javascript:alert(1)" onclick="x()">Dave</a>`,
			want:  "Dave",
		},
		{
			name:  "アンパサンドは元の文字のまま残る",
			input: "Tom & Jerry",
			want:  "Tom & Jerry",
		},
		{
			name:  "前後の空白が除去される",
			input: "  Eve  ",
			want:  "Eve",
		},
		{
			name:  "マルチバイト文字はそのまま",
			input: "山田 太郎",
			want:  "山田 太郎",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitize_EmptyInput は空文字列入力に対して空文字列を返すことを検証する。
func TestSanitize_EmptyInput(t *testing.T) {
	sanitizer := NewTextSanitizer()

	if got := sanitizer.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty", got)
	}
}

// TestSanitize_OnlyMarkup はタグのみの入力が空になることを検証する。
func TestSanitize_OnlyMarkup(t *testing.T) {
	sanitizer := NewTextSanitizer()

	got := sanitizer.Sanitize("<div><span></span></div>")
	if got != "" {
		t.Errorf("expected empty result, got %q", got)
	}
}

// TestSanitize_Idempotent は同一入力に対して同一出力を返すことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()

	input := "<i>Frank</i> & co"
	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(first)
	if first != second {
		t.Errorf("not idempotent: %q then %q", first, second)
	}
	if strings.Contains(first, "<") {
		t.Errorf("markup remained: %q", first)
	}
}

// TestIsPlainText はマークアップを含む入力だけがfalseになることを検証する。
func TestIsPlainText(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		input string
		want  bool
	}{
		{"Alice", true},
		{"  Eve  ", true},
		{"Tom & Jerry", true},
		{"O'Brien", true},
		{"Ravi <3 Priya", true},
		{"山田 太郎", true},
		{"<b>Bob</b>", false},
		{"A<B", false},
		{"Tom &amp; Jerry", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := sanitizer.IsPlainText(tt.input); got != tt.want {
				t.Errorf("IsPlainText(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
