package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	cfg "github.com/joshuanoeldeke/RespectCircle/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutBucketIsDisabled(t *testing.T) {
	s, err := New(context.Background(), &cfg.Config{})
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("http://files.test")

	require.NoError(t, m.Save(ctx, "exports/a.json", "application/json", strings.NewReader(`{"ok":true}`)))

	rc, err := m.Open(ctx, "exports/a.json")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))

	url, err := m.PresignedURL(ctx, "exports/a.json")
	require.NoError(t, err)
	assert.Equal(t, "http://files.test/exports/a.json", url)

	require.NoError(t, m.Delete(ctx, "exports/a.json"))
	_, err = m.Open(ctx, "exports/a.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
