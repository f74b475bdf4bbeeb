package service_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talksyhq/talksy/internal/apperr"
	"github.com/talksyhq/talksy/internal/repository"
	"github.com/talksyhq/talksy/internal/service"
)

// memStorage is an in-memory Storage double recording saves and deletes.
type memStorage struct {
	objects map[string][]byte
	deleted []string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (m *memStorage) Save(_ context.Context, path string, file io.Reader) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	m.objects[path] = data
	return nil
}

func (m *memStorage) Delete(_ context.Context, path string) error {
	m.deleted = append(m.deleted, path)
	delete(m.objects, path)
	return nil
}

func (m *memStorage) URL(path string) string {
	return "https://media.test/" + path
}

func newUserService(t *testing.T) (*service.UserService, *service.AuthService, *memStorage) {
	t.Helper()

	users := repository.NewUserRepository(newTestDB(t))
	auth := service.NewAuthService(users, &fakeMailer{}, "test-secret", false, 168*time.Hour, 24*time.Hour)
	store := newMemStorage()
	return service.NewUserService(users, store), auth, store
}

func TestUpdateProfileWithoutAvatar(t *testing.T) {
	userService, auth, store := newUserService(t)
	ctx := context.Background()
	userID := register(t, auth)

	updated, err := userService.UpdateProfile(ctx, userID, "Alice", "just vibing", "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, "just vibing", updated.About)
	assert.Nil(t, updated.AvatarPath, "no avatar payload leaves the reference untouched")
	assert.Empty(t, store.deleted)
}

func TestUpdateProfileAvatarReplacement(t *testing.T) {
	userService, auth, store := newUserService(t)
	ctx := context.Background()
	userID := register(t, auth)

	first, err := userService.UpdateProfile(ctx, userID, "Alice", "", "alice", &service.AvatarUpload{
		Reader: bytes.NewReader([]byte("png-bytes-1")),
		Ext:    ".png",
	})
	require.NoError(t, err)
	require.NotNil(t, first.AvatarPath)
	firstPath := *first.AvatarPath
	assert.True(t, strings.HasPrefix(firstPath, "avatars/"))
	assert.True(t, strings.HasSuffix(firstPath, ".png"))
	assert.Equal(t, "https://media.test/"+firstPath, first.AvatarURL)
	assert.Empty(t, store.deleted, "no prior avatar to delete")

	second, err := userService.UpdateProfile(ctx, userID, "Alice", "", "alice", &service.AvatarUpload{
		Reader: bytes.NewReader([]byte("png-bytes-2")),
		Ext:    ".webp",
	})
	require.NoError(t, err)
	require.NotNil(t, second.AvatarPath)
	assert.NotEqual(t, firstPath, *second.AvatarPath)

	// The prior remote object is deleted before the new one is stored
	require.Len(t, store.deleted, 1)
	assert.Equal(t, firstPath, store.deleted[0])
	assert.Contains(t, store.objects, *second.AvatarPath)
	assert.NotContains(t, store.objects, firstPath)

	// A follow-up text-only edit keeps the avatar reference
	third, err := userService.UpdateProfile(ctx, userID, "Alice", "new about", "alice", nil)
	require.NoError(t, err)
	require.NotNil(t, third.AvatarPath)
	assert.Equal(t, *second.AvatarPath, *third.AvatarPath)
	assert.Len(t, store.deleted, 1)
}

func TestUpdateProfileUsernameConflict(t *testing.T) {
	userService, auth, _ := newUserService(t)
	ctx := context.Background()
	userID := register(t, auth)

	_, err := auth.Register(ctx, service.RegisterInput{
		Email:    "bob@example.com",
		Username: "bob",
		Name:     "Bob",
		Password: "hunter22",
	})
	require.NoError(t, err)

	_, err = userService.UpdateProfile(ctx, userID, "Alice", "", "bob", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestUpdateProfileValidation(t *testing.T) {
	userService, auth, _ := newUserService(t)
	ctx := context.Background()
	userID := register(t, auth)

	_, err := userService.UpdateProfile(ctx, userID, "A", "", "alice", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = userService.UpdateProfile(ctx, userID, "Alice", "", "a!", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
