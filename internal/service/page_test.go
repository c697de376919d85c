package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageService(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pages"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pages", "about.md"),
		[]byte("---\ntitle: About Us\nlastUpdated: \"2025-01-02\"\n---\n# Hi\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pages", "terms-of-use.md"), []byte("Terms"), 0644))

	svc := NewPageService(dir, false)
	require.NoError(t, svc.LoadPages())

	page, err := svc.Page("about")
	require.NoError(t, err)
	assert.Equal(t, "About Us", page.Title)
	assert.Equal(t, "January 2, 2025", page.LastUpdated)
	assert.Contains(t, page.Content, "<h1")

	page, err = svc.Page("terms-of-use")
	require.NoError(t, err)
	assert.Equal(t, "Terms Of Use", page.Title)

	_, err = svc.Page("missing")
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestPageServiceMissingDir(t *testing.T) {
	svc := NewPageService(t.TempDir(), true)

	_, err := svc.Page("about")
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestShippedPages(t *testing.T) {
	svc := NewPageService(filepath.Join("..", "..", "content"), false)
	require.NoError(t, svc.LoadPages())

	for _, slug := range []string{"about", "privacy"} {
		_, err := svc.Page(slug)
		assert.NoError(t, err, slug)
	}
}
