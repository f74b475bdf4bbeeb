package handler

import (
	"encoding/json"
	"net/http"

	"github.com/talksyhq/talksy/internal/apperr"
	"github.com/talksyhq/talksy/internal/ctxkeys"
	"github.com/talksyhq/talksy/internal/model"
	"github.com/talksyhq/talksy/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	userService *service.UserService
}

func NewAuthHandler(authService *service.AuthService, userService *service.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	err := json.NewDecoder(r.Body).Decode(&in)
	if err != nil {
		writeError(w, r, apperr.Validation("invalid JSON body"))
		return
	}

	user, err := h.authService.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := h.authService.GenerateJWT(user)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindInternal, "failed to generate session", err))
		return
	}
	h.authService.SetSessionCookie(w, token)

	// Registration returns the minimal projection; the client fetches the
	// rest through /auth/me.
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Registration successful!",
		"user": map[string]string{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	err := json.NewDecoder(r.Body).Decode(&in)
	if err != nil {
		writeError(w, r, apperr.Validation("invalid JSON body"))
		return
	}

	user, err := h.authService.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		// Bad credentials are a 400 on this endpoint, not a 401: there is
		// no session to refresh, the caller just sent the wrong input.
		if apperr.Is(err, apperr.KindAuth) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: apperr.Message(err)})
			return
		}
		writeError(w, r, err)
		return
	}

	token, err := h.authService.GenerateJWT(user)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindInternal, "failed to generate session", err))
		return
	}
	h.authService.SetSessionCookie(w, token)

	h.userService.ResolveAvatar(user)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome back!",
		"user":    user.Public(),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Me reports the current session's user, or null when there is none.
// "Logged out" is a normal state here, never an error.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}

	h.userService.ResolveAvatar(user)
	writeJSON(w, http.StatusOK, map[string]model.PublicUser{"user": user.Public()})
}

func (h *AuthHandler) RequestVerification(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.authService.RequestVerification(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Verification email sent"})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	user, err := h.authService.ConfirmVerification(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.userService.ResolveAvatar(user)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Email verified successfully",
		"user":    user.Public(),
	})
}
