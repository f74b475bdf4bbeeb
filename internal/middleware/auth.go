package middleware

import (
	"net/http"

	"github.com/talksyhq/talksy/internal/ctxkeys"
	"github.com/talksyhq/talksy/internal/service"
)

// Auth resolves the session cookie to a user and adds it to the request
// context. An absent or invalid cookie is not an error: the request
// continues unauthenticated, and an invalid cookie is cleared to stop
// clients from replaying it forever.
func Auth(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(service.SessionCookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := authService.CurrentUser(r.Context(), cookie.Value)
			if err != nil || user == nil {
				authService.ClearSessionCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			// The hash never travels with the request context.
			user.PasswordHash = ""

			next.ServeHTTP(w, r.WithContext(ctxkeys.WithUser(r.Context(), user)))
		})
	}
}

// RequireAuth rejects unauthenticated requests with a 401.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := ctxkeys.User(r.Context())
		if user == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized: No session found. Please login."}`))
			return
		}

		next.ServeHTTP(w, r)
	}
}
