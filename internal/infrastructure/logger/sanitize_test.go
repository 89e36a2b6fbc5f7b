package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain string", "hello.mp4", "hello.mp4"},
		{"newline injection", "line1\nFAKE: injected", "line1\\nFAKE: injected"},
		{"carriage return", "a\rb", "a\\rb"},
		{"tab", "a\tb", "a\\tb"},
		{"null byte", "a\x00b", "a\\x00b"},
		{"ansi escape", "a\x1b[31mred", "a\\x1b[31mred"},
		{"control char", "a\x07b", "a\\x07b"},
		{"unicode preserved", "видео_файл.ogg", "видео_файл.ogg"},
		{"emoji preserved", "clip 🎬.mp4", "clip 🎬.mp4"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeForLog(tt.input))
		})
	}
}

func TestTruncateDiagnostic(t *testing.T) {
	t.Run("short passes through", func(t *testing.T) {
		assert.Equal(t, "err: no stream", TruncateDiagnostic("err: no stream", 100))
	})

	t.Run("long output is bounded", func(t *testing.T) {
		long := strings.Repeat("x", 10000)
		got := TruncateDiagnostic(long, 256)
		assert.LessOrEqual(t, len(got), 256+len("... [truncated]"))
		assert.True(t, strings.HasSuffix(got, "... [truncated]"))
	})

	t.Run("cuts on utf8 boundary", func(t *testing.T) {
		long := strings.Repeat("п", 300)
		got := TruncateDiagnostic(long, 101) // mid-rune byte offset
		assert.True(t, strings.HasSuffix(got, "... [truncated]"))
		assert.NotContains(t, got, "\\x")
	})

	t.Run("sanitizes control chars", func(t *testing.T) {
		assert.Equal(t, "a\\nb", TruncateDiagnostic("a\nb", 100))
	})

	t.Run("zero limit yields empty", func(t *testing.T) {
		assert.Equal(t, "", TruncateDiagnostic("anything", 0))
	})
}
