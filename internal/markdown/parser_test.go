package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderWithFrontmatter(t *testing.T) {
	doc, err := NewParser().Render([]byte("---\ntitle: About\nlastUpdated: 2025-01-02\n---\n# Hello\n\nSome *text*.\n"))
	require.NoError(t, err)

	assert.Equal(t, "About", doc.Text("title"))
	assert.Equal(t, "", doc.Text("missing"))
	assert.Contains(t, string(doc.HTML), `<h1 id="hello">Hello</h1>`)
	assert.Contains(t, string(doc.HTML), "<em>text</em>")
	assert.NotContains(t, string(doc.HTML), "title: About")
}

func TestRenderWithoutFrontmatter(t *testing.T) {
	doc, err := NewParser().Render([]byte("plain"))
	require.NoError(t, err)

	assert.Empty(t, doc.Meta)
	assert.Contains(t, string(doc.HTML), "plain")
}

func TestRenderTables(t *testing.T) {
	doc, err := NewParser().Render([]byte("| a | b |\n|---|---|\n| 1 | 2 |\n"))
	require.NoError(t, err)
	assert.Contains(t, string(doc.HTML), "<table>")
}
