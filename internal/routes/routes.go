package routes

import (
	"net/http"

	"github.com/rs/cors"
	"github.com/talksyhq/talksy/internal/app"
	"github.com/talksyhq/talksy/internal/handler"
	"github.com/talksyhq/talksy/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	auth := handler.NewAuthHandler(app.AuthService, app.UserService)
	user := handler.NewUserHandler(app.UserService)
	health := handler.NewHealthHandler(app.DB)

	mux := http.NewServeMux()

	// Credential endpoints are rate limited per client IP
	rateLimiter := middleware.RateLimitAuth()

	mux.HandleFunc("POST /auth/signup", rateLimiter(auth.Signup))
	mux.HandleFunc("POST /auth/login", rateLimiter(auth.Login))
	mux.HandleFunc("POST /auth/logout", auth.Logout)
	mux.HandleFunc("GET /auth/me", auth.Me)
	mux.HandleFunc("POST /auth/request-verification", middleware.RequireAuth(auth.RequestVerification))
	mux.HandleFunc("GET /auth/verify", auth.VerifyEmail)

	mux.HandleFunc("PUT /user/update", middleware.RequireAuth(user.Update))

	mux.HandleFunc("GET /health", health.Health)

	// The SPA lives on its own origin and authenticates with cookies, so
	// CORS must allow credentials for exactly that origin.
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{app.Cfg.ClientOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	return middleware.Chain(
		mux,
		corsHandler.Handler,
		middleware.RequestLogging,
		middleware.Auth(app.AuthService),
	)
}
