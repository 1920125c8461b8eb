package security

import "testing"

// TestSanitize_StripsTags は全てのHTMLタグが除去されることを検証する。
func TestSanitize_StripsTags(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま通過する",
			input: "朝のランニング",
			want:  "朝のランニング",
		},
		{
			name:  "scriptタグが除去される",
			input: `Morning Run<script>alert("xss")</script>`,
			want:  "Morning Run",
		},
		{
			name:  "imgタグが除去される",
			input: `Ride <img src="https://example.com/x.png">home`,
			want:  "Ride home",
		},
		{
			name:  "強調タグが除去されテキストは残る",
			input: "<strong>Interval</strong> workout",
			want:  "Interval workout",
		},
		{
			name:  "前後の空白がトリムされる",
			input: "  Evening Walk  ",
			want:  "Evening Walk",
		},
		{
			name:  "空文字列は空文字列を返す",
			input: "",
			want:  "",
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

// TestSanitize_Idempotent は同一入力に対して常に同一出力を返すことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()

	input := `<b>Tempo</b> run <script>x</script>`
	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(first)

	if first != second {
		t.Errorf("Sanitizeが冪等ではありません: first=%q second=%q", first, second)
	}
}
