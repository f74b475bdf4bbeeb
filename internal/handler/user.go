package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/talksyhq/talksy/internal/apperr"
	"github.com/talksyhq/talksy/internal/ctxkeys"
	"github.com/talksyhq/talksy/internal/service"
	"github.com/talksyhq/talksy/internal/validation"
)

const maxUploadMemory = 8 << 20 // 8MB

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Update handles profile edits. The body is a multipart form with name,
// about and username fields plus an optional avatar file.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := r.ParseMultipartForm(maxUploadMemory)
	if err != nil && err != http.ErrNotMultipart {
		writeError(w, r, apperr.Validation("invalid form payload"))
		return
	}

	var avatar *service.AvatarUpload
	if r.MultipartForm != nil {
		file, header, err := r.FormFile("avatar")
		if err == nil {
			defer func() { _ = file.Close() }()

			err = validation.ValidateImage(header)
			if err != nil {
				writeError(w, r, apperr.Validation(err.Error()))
				return
			}

			avatar = &service.AvatarUpload{
				Reader: file,
				Ext:    strings.ToLower(filepath.Ext(header.Filename)),
			}
		} else if err != http.ErrMissingFile {
			writeError(w, r, apperr.Validation("invalid avatar upload"))
			return
		}
	}

	updated, err := h.userService.UpdateProfile(
		r.Context(),
		user.ID,
		r.FormValue("name"),
		r.FormValue("about"),
		r.FormValue("username"),
		avatar,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    updated.Public(),
	})
}
