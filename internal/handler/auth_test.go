package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talksyhq/talksy/internal/app"
	"github.com/talksyhq/talksy/internal/config"
	"github.com/talksyhq/talksy/internal/db"
	"github.com/talksyhq/talksy/internal/repository"
	"github.com/talksyhq/talksy/internal/routes"
	"github.com/talksyhq/talksy/internal/service"
)

// memStorage stands in for S3 during handler tests.
type memStorage struct {
	objects map[string][]byte
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
	delete(m.objects, path)
	return nil
}

func (m *memStorage) URL(path string) string {
	return "https://media.test/" + path
}

type testApp struct {
	server *httptest.Server
	client *http.Client
	users  repository.UserRepository
	store  *memStorage
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := sqlx.Connect("sqlite", dsn)
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	require.NoError(t, db.RunMigrations(conn.DB, "sqlite"))
	t.Cleanup(func() { _ = conn.Close() })

	cfg := &config.Config{
		AppName:           "Talksy",
		AppEnv:            "development",
		ClientOrigin:      "http://localhost:3000",
		JWTSecret:         "test-secret",
		SessionExpiry:     168 * time.Hour,
		VerifyTokenExpiry: 24 * time.Hour,
	}

	users := repository.NewUserRepository(conn)
	store := &memStorage{objects: make(map[string][]byte)}
	emailService := service.NewEmailService("", "noreply@talksy.test", cfg.ClientOrigin, cfg.AppName, true)
	authService := service.NewAuthService(users, emailService, cfg.JWTSecret, false, cfg.SessionExpiry, cfg.VerifyTokenExpiry)
	userService := service.NewUserService(users, store)

	server := httptest.NewServer(routes.SetupRoutes(&app.App{
		Cfg:          cfg,
		DB:           conn,
		AuthService:  authService,
		UserService:  userService,
		EmailService: emailService,
	}))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testApp{
		server: server,
		client: &http.Client{Jar: jar},
		users:  users,
		store:  store,
	}
}

func (a *testApp) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := a.client.Post(a.server.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func (a *testApp) get(t *testing.T, path string) *http.Response {
	t.Helper()

	resp, err := a.client.Get(a.server.URL + path)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func signupAlice(t *testing.T, a *testApp) string {
	t.Helper()

	resp := a.postJSON(t, "/auth/signup", map[string]string{
		"email":    "alice@example.com",
		"username": "alice",
		"name":     "Alice",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	user := body["user"].(map[string]any)
	return user["id"].(string)
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == service.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestSignup(t *testing.T) {
	a := newTestApp(t)

	resp := a.postJSON(t, "/auth/signup", map[string]string{
		"email":    "alice@example.com",
		"username": "alice",
		"name":     "Alice",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie, "signup establishes a session")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, int((168 * time.Hour).Seconds()), cookie.MaxAge)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.False(t, cookie.Secure, "not secure outside production")

	body := decodeBody(t, resp)
	assert.Equal(t, "Registration successful!", body["message"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "alice@example.com", user["email"])

	// The cookie jar carries the session to /auth/me
	me := a.get(t, "/auth/me")
	require.Equal(t, http.StatusOK, me.StatusCode)
	meBody := decodeBody(t, me)
	meUser := meBody["user"].(map[string]any)
	assert.Equal(t, "alice", meUser["username"])
	assert.Equal(t, false, meUser["isVerified"])
}

func TestSignupDuplicate(t *testing.T) {
	a := newTestApp(t)
	signupAlice(t, a)

	resp := a.postJSON(t, "/auth/signup", map[string]string{
		"email":    "alice@example.com",
		"username": "alice2",
		"name":     "Alice Again",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Email or Username already taken", decodeBody(t, resp)["error"])
}

func TestLoginIndistinguishableFailures(t *testing.T) {
	a := newTestApp(t)
	signupAlice(t, a)

	unknown := a.postJSON(t, "/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "hunter22",
	})
	wrong := a.postJSON(t, "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "wrongpass",
	})

	require.Equal(t, http.StatusBadRequest, unknown.StatusCode)
	require.Equal(t, http.StatusBadRequest, wrong.StatusCode)
	assert.Equal(t, decodeBody(t, unknown), decodeBody(t, wrong))
}

func TestLoginAndLogout(t *testing.T) {
	a := newTestApp(t)
	signupAlice(t, a)

	resp := a.postJSON(t, "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	sessionToken := cookie.Value

	body := decodeBody(t, resp)
	assert.Equal(t, "Welcome back!", body["message"])
	assert.Equal(t, "alice", body["user"].(map[string]any)["username"])

	logout := a.postJSON(t, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, logout.StatusCode)
	cleared := sessionCookie(logout)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0, "logout expires the cookie")

	// The jar dropped the cookie, so the session is gone client side
	me := a.get(t, "/auth/me")
	require.Equal(t, http.StatusOK, me.StatusCode)
	assert.Nil(t, decodeBody(t, me)["user"])

	// Logout is client side only. A kept copy of the JWT still works
	// until it expires.
	req, err := http.NewRequest(http.MethodGet, a.server.URL+"/auth/me", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: service.SessionCookieName, Value: sessionToken})
	replay, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, replay.StatusCode)
	assert.NotNil(t, decodeBody(t, replay)["user"])
}

func TestMeWithoutSession(t *testing.T) {
	a := newTestApp(t)

	resp := a.get(t, "/auth/me")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	_, present := body["user"]
	assert.True(t, present)
	assert.Nil(t, body["user"])
}

func TestVerificationFlow(t *testing.T) {
	a := newTestApp(t)
	userID := signupAlice(t, a)

	resp := a.postJSON(t, "/auth/request-verification", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Verification email sent", decodeBody(t, resp)["message"])

	// In dev mode the email is only logged, so read the token back
	stored, err := a.users.ByID(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, stored.VerifyToken)
	token := *stored.VerifyToken

	verify := a.get(t, "/auth/verify?token="+token)
	require.Equal(t, http.StatusOK, verify.StatusCode)
	body := decodeBody(t, verify)
	assert.Equal(t, "Email verified successfully", body["message"])
	assert.Equal(t, true, body["user"].(map[string]any)["isVerified"])

	// The token was consumed
	replay := a.get(t, "/auth/verify?token="+token)
	require.Equal(t, http.StatusBadRequest, replay.StatusCode)
	assert.Equal(t, "Invalid verification token", decodeBody(t, replay)["error"])
}

func TestRequestVerificationRequiresAuth(t *testing.T) {
	a := newTestApp(t)

	resp := a.postJSON(t, "/auth/request-verification", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, decodeBody(t, resp)["error"], "No session found")
}

func TestVerifyMissingToken(t *testing.T) {
	a := newTestApp(t)

	resp := a.get(t, "/auth/verify")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeBody(t, resp)["error"], "required")
}
