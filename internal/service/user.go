package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/talksyhq/talksy/internal/apperr"
	"github.com/talksyhq/talksy/internal/model"
	"github.com/talksyhq/talksy/internal/repository"
	"github.com/talksyhq/talksy/internal/storage"
	"github.com/talksyhq/talksy/internal/validation"
)

type UserService struct {
	users   repository.UserRepository
	storage storage.Storage
}

func NewUserService(users repository.UserRepository, storage storage.Storage) *UserService {
	return &UserService{
		users:   users,
		storage: storage,
	}
}

func (s *UserService) ByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.ResolveAvatar(user)
	return user, nil
}

// AvatarUpload carries a validated avatar payload into the profile update.
type AvatarUpload struct {
	Reader io.Reader
	Ext    string // File extension including the dot, e.g. ".png"
}

// UpdateProfile updates name, about and username, and optionally replaces
// the avatar. A present avatar payload deletes the prior stored object
// before the new one is uploaded; an absent payload leaves the stored
// reference untouched.
func (s *UserService) UpdateProfile(ctx context.Context, userID, name, about, username string, avatar *AvatarUpload) (*model.User, error) {
	name = strings.TrimSpace(name)
	username = strings.TrimSpace(username)

	err := validation.ValidateName(name)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	err = validation.ValidateUsername(username)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.Auth("Unauthorized")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to get user", err)
	}

	if avatar != nil {
		if user.HasAvatar() {
			delErr := s.storage.Delete(ctx, *user.AvatarPath)
			if delErr != nil {
				// The old object may already be gone; an orphan is preferable
				// to a failed profile update.
				slog.Warn("failed to delete old avatar", "error", delErr, "path", *user.AvatarPath, "user_id", userID)
			}
		}

		path := fmt.Sprintf("avatars/%s%s", uuid.New().String(), avatar.Ext)
		err = s.storage.Save(ctx, path, avatar.Reader)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to upload avatar", err)
		}

		user.AvatarPath = &path
	}

	user.Name = name
	user.About = about
	user.Username = username

	err = s.users.UpdateProfile(ctx, user)
	if errors.Is(err, repository.ErrDuplicateUser) {
		return nil, apperr.Conflict("Username is already taken")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to update profile", err)
	}

	slog.Info("profile updated", "user_id", user.ID, "username", user.Username, "avatar_changed", avatar != nil)

	s.ResolveAvatar(user)
	return user, nil
}

// ResolveAvatar fills the computed avatar URL from the stored reference.
func (s *UserService) ResolveAvatar(user *model.User) {
	if user.HasAvatar() {
		user.AvatarURL = s.storage.URL(*user.AvatarPath)
	}
}
