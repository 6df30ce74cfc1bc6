package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Parallel()

	t.Run("BlockAndBody", func(t *testing.T) {
		t.Parallel()

		block, body, found, err := Split("---\nname: x\n---\n\n# Title\nline\n")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "name: x\n", block)
		assert.Equal(t, "# Title\nline\n", body)
	})

	t.Run("NoBlock", func(t *testing.T) {
		t.Parallel()

		block, body, found, err := Split("# Title\n")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, block)
		assert.Equal(t, "# Title\n", body)
	})

	t.Run("EmptyBody", func(t *testing.T) {
		t.Parallel()

		_, body, found, err := Split("---\nname: x\n---\n")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Empty(t, body)
	})

	t.Run("Unterminated", func(t *testing.T) {
		t.Parallel()

		_, _, _, err := Split("---\nname: x\n")
		require.Error(t, err)
	})

	t.Run("CRLF", func(t *testing.T) {
		t.Parallel()

		block, body, found, err := Split("---\r\nname: x\r\n---\r\nbody\r\n")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "name: x\r", block)
		assert.Equal(t, "body\r\n", body)
	})
}

func TestRender(t *testing.T) {
	t.Parallel()

	t.Run("WithBody", func(t *testing.T) {
		t.Parallel()

		out := Render([]byte("name: x\n"), "# Title")
		assert.Equal(t, "---\nname: x\n---\n\n# Title\n", string(out))
	})

	t.Run("EmptyBody", func(t *testing.T) {
		t.Parallel()

		out := Render([]byte("name: x\n"), "")
		assert.Equal(t, "---\nname: x\n---\n", string(out))
	})

	t.Run("RoundTrip", func(t *testing.T) {
		t.Parallel()

		out := Render([]byte("a: 1\nb: 2\n"), "body text")
		block, body, found, err := Split(string(out))
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "a: 1\nb: 2\n", block)
		assert.Equal(t, "body text\n", body)
	})
}
