package settingsstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "projectvoice/errors"
	"projectvoice/logging"
)

func openMemory(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLogger(logging.NewNoopLogger())}, opts...)
	s, err := Open(context.Background(), ":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SetGetOverwrite(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	_, ok, err := s.Get(ctx, "u1", "theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "u1", "theme", "dark"))
	require.NoError(t, s.Set(ctx, "u1", "theme", "light"))
	require.NoError(t, s.Set(ctx, "u2", "theme", "dark"))

	v, ok, err := s.Get(ctx, "u1", "theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "light", v)
}

func TestStore_AllAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	require.NoError(t, s.Set(ctx, "u1", "theme", "dark"))
	require.NoError(t, s.Set(ctx, "u1", "locale", "en-US"))

	all, err := s.All(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"theme": "dark", "locale": "en-US"}, all)

	require.NoError(t, s.Delete(ctx, "u1", "theme"))
	require.NoError(t, s.Delete(ctx, "u1", "missing"))
	all, err = s.All(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"locale": "en-US"}, all)

	empty, err := s.All(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_UpdatedAtUsesClock(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := openMemory(t, WithClock(func() time.Time { return fixed }))
	require.NoError(t, s.Set(ctx, "u1", "theme", "dark"))

	at, ok, err := s.UpdatedAt(ctx, "u1", "theme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, fixed.Equal(at))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "settings.db")

	s, err := Open(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "u1", "volume", "80"))
	require.NoError(t, s.Close())

	s, err = Open(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get(ctx, "u1", "volume")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "80", v)
}

func TestStore_Validation(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrCodeInvalidInput))

	s := openMemory(t)
	err = s.Set(context.Background(), "u1", "", "x")
	assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrCodeInvalidInput))
}
