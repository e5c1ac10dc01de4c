package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

func TestMemoryStore_LoadUnknownUser(t *testing.T) {
	s := NewMemoryStore()
	sc, err := s.Load(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, Context{UserID: "user_1"}, sc)
	assert.False(t, sc.HasImage())
}

func TestMemoryStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Save(ctx, Context{UserID: "user_1", UploadedImagePath: "img_a.png"}))

	sc, err := s.Load(ctx, "user_1")
	require.NoError(t, err)
	assert.True(t, sc.HasImage())
	assert.Equal(t, "img_a.png", sc.UploadedImagePath)

	require.NoError(t, s.Clear(ctx, "user_1"))
	sc, err = s.Load(ctx, "user_1")
	require.NoError(t, err)
	assert.False(t, sc.HasImage())
}

func TestMemoryStore_RequiresUser(t *testing.T) {
	s := NewMemoryStore()
	assert.ErrorIs(t, s.Save(context.Background(), Context{UploadedImagePath: "x.png"}), ErrNoUser)

	_, err := s.Load(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestMemoryStore_UsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Save(ctx, Context{UserID: "a", UploadedImagePath: "a.png"}))
	require.NoError(t, s.Save(ctx, Context{UserID: "b", UploadedImagePath: "b.png"}))
	require.NoError(t, s.Clear(ctx, "a"))

	sc, _ := s.Load(ctx, "b")
	assert.Equal(t, "b.png", sc.UploadedImagePath)
}
