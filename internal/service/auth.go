package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/talksyhq/talksy/internal/apperr"
	"github.com/talksyhq/talksy/internal/model"
	"github.com/talksyhq/talksy/internal/repository"
	"github.com/talksyhq/talksy/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "token"

// verifyTokenBytes is the entropy of a verification token (256 bits).
const verifyTokenBytes = 32

// VerificationSender is the outbound mail capability the auth flow needs.
type VerificationSender interface {
	SendVerificationEmail(ctx context.Context, email, name, token string) error
	SendWelcomeEmail(ctx context.Context, email, name string) error
}

type AuthService struct {
	users         repository.UserRepository
	mailer        VerificationSender
	jwtSecret     string
	isProduction  bool
	sessionExpiry time.Duration
	verifyExpiry  time.Duration
}

func NewAuthService(
	users repository.UserRepository,
	mailer VerificationSender,
	jwtSecret string,
	isProduction bool,
	sessionExpiry time.Duration,
	verifyExpiry time.Duration,
) *AuthService {
	return &AuthService{
		users:         users,
		mailer:        mailer,
		jwtSecret:     jwtSecret,
		isProduction:  isProduction,
		sessionExpiry: sessionExpiry,
		verifyExpiry:  verifyExpiry,
	}
}

type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Register creates a new unverified user. Validation reports the first
// violated rule; the unique constraints in storage remain the final arbiter
// for concurrent registrations.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)

	err := validation.ValidateEmail(in.Email)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	err = validation.ValidateUsername(in.Username)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	err = validation.ValidateName(in.Name)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	err = validation.ValidatePassword(in.Password)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	_, err = s.users.ByEmailOrUsername(ctx, in.Email, in.Username)
	if err == nil {
		return nil, apperr.Conflict("Email or Username already taken")
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to check existing user", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        in.Email,
		Username:     in.Username,
		Name:         in.Name,
		PasswordHash: string(hashed),
		CreatedAt:    time.Now(),
	}

	err = s.users.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicateUser) {
		return nil, apperr.Conflict("Email or Username already taken")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create user", err)
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login authenticates by email and password. Unknown email and wrong
// password return the identical error so callers cannot tell which check
// failed.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	err := validation.ValidateEmail(email)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if password == "" {
		return nil, apperr.Validation("password is required")
	}

	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.Auth("Invalid credentials")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to get user", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return nil, apperr.Auth("Invalid credentials")
	}

	return user, nil
}

// GenerateJWT mints a stateless session token for the user. There is no
// server-side revocation: the token stays valid until exp even after logout.
func (s *AuthService) GenerateJWT(user *model.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": user.ID,
		"iat": now.Unix(),
		"exp": now.Add(s.sessionExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// VerifyJWT validates the signature and expiry and returns the subject user id.
func (s *AuthService) VerifyJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("missing subject claim")
	}

	return sub, nil
}

func (s *AuthService) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionExpiry.Seconds()),
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie clears the cookie with the same attributes used at
// issuance. It always succeeds, whether or not a valid session existed.
func (s *AuthService) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteStrictMode,
	})
}

// CurrentUser resolves a raw cookie value to a user. "Not logged in" is a
// normal outcome reported as (nil, nil), never an error.
func (s *AuthService) CurrentUser(ctx context.Context, tokenString string) (*model.User, error) {
	if tokenString == "" {
		return nil, nil
	}

	userID, err := s.VerifyJWT(tokenString)
	if err != nil {
		return nil, nil
	}

	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load session user", err)
	}

	return user, nil
}

// GenerateVerifyToken returns a cryptographically random hex token.
func GenerateVerifyToken() (string, error) {
	bytes := make([]byte, verifyTokenBytes)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// RequestVerification issues a fresh verification token for the user,
// overwriting any pending one, and mails the verification link. A send
// failure is reported but the persisted token is deliberately not rolled
// back; a new request overwrites it.
func (s *AuthService) RequestVerification(ctx context.Context, userID string) error {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.Auth("Unauthorized")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to get user", err)
	}

	token, err := GenerateVerifyToken()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to generate token", err)
	}

	expiresAt := time.Now().Add(s.verifyExpiry)
	err = s.users.SetVerifyToken(ctx, user.ID, token, expiresAt)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to persist token", err)
	}

	err = s.mailer.SendVerificationEmail(ctx, user.Email, user.Name, token)
	if err != nil {
		return apperr.Wrap(apperr.KindDelivery, "Failed to send verification email", err)
	}

	slog.Info("verification email sent", "user_id", user.ID, "email", user.Email)
	return nil
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}

// ConfirmVerification redeems a verification token. Redemption is a single
// conditional update in storage, so a token is consumed at most once even
// under concurrent requests. Expired tokens are reported as expired and left
// in place; only a new request overwrites them.
func (s *AuthService) ConfirmVerification(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperr.Validation("verification token is required")
	}
	if len(token) != verifyTokenBytes*2 || !isHex(token) {
		return nil, apperr.Validation("malformed verification token")
	}

	user, err := s.users.RedeemVerifyToken(ctx, token, time.Now())
	if err == nil {
		slog.Info("email verified", "user_id", user.ID, "email", user.Email)

		err = s.mailer.SendWelcomeEmail(ctx, user.Email, user.Name)
		if err != nil {
			slog.Warn("failed to send welcome email", "error", err, "user_id", user.ID)
		}
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to redeem token", err)
	}

	// No row matched the conditional update: distinguish expired from unknown.
	existing, lookupErr := s.users.ByVerifyToken(ctx, token)
	if lookupErr == nil && existing.VerifyExpiresAt != nil && existing.VerifyExpiresAt.Before(time.Now()) {
		return nil, apperr.New(apperr.KindExpiredToken, "Verification token has expired")
	}

	return nil, apperr.New(apperr.KindInvalidToken, "Invalid verification token")
}
