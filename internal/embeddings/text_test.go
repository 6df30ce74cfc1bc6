package embeddings

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/junyeong-ai/modmap/internal/rules"
)

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "camel case splits",
			text: "UserService",
			want: []string{"user", "service"},
		},
		{
			name: "acronym followed by word",
			text: "HTTPServer",
			want: []string{"http", "server"},
		},
		{
			name: "letter digit boundary",
			text: "http2 v15",
			want: []string{"http", "15"},
		},
		{
			name: "separators drop",
			text: "auth-service.handler_test",
			want: []string{"auth", "service", "handler", "test"},
		},
		{
			name: "single rune terms drop",
			text: "a b go",
			want: []string{"go"},
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Tokenize(tt.text))
		})
	}
}

func TestRuleText(t *testing.T) {
	t.Parallel()

	r := rules.FrameworkRule("gin-routing",
		[]string{"internal/api/**/*.go"},
		[]string{"routing", "middleware"},
		[]string{"# Gin", "Register routes in one place."})

	text := RuleText(r)
	assert.Contains(t, text, "gin-routing")
	assert.Contains(t, text, "framework")
	assert.Contains(t, text, "routing middleware")
	assert.Contains(t, text, "Register routes in one place.")
	assert.NotContains(t, text, "internal/api/**/*.go")
}

func TestRuleTextNil(t *testing.T) {
	t.Parallel()
	assert.Empty(t, RuleText(nil))
}
