package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"calculations-service/internal/handlers"
	"calculations-service/internal/models"
	"calculations-service/internal/storage"
)

type RegisterRequest struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
}

// ValidateUsername checks the length bounds shared by registration and
// profile updates. Length is measured in runes so multibyte usernames are
// held to the same bounds.
func ValidateUsername(username string) error {
	if n := utf8.RuneCountInString(username); n < 3 || n > 50 {
		return fmt.Errorf("username must be between 3 and 50 characters")
	}
	return nil
}

// ValidateEmail rejects addresses the mail parser cannot make sense of.
func ValidateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// RegisterHandler handles POST /auth/register.
func RegisterHandler(users *storage.Users, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			handlers.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := ValidateUsername(req.Username); err != nil {
			handlers.WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err := ValidateEmail(req.Email); err != nil {
			handlers.WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err := ValidatePassword(req.Password); err != nil {
			handlers.WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if req.ConfirmPassword != req.Password {
			handlers.WriteError(w, http.StatusUnprocessableEntity, "passwords do not match")
			return
		}

		usernameTaken, err := users.UsernameTaken(req.Username, "")
		if err != nil {
			handlers.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}
		emailTaken, err := users.EmailTaken(req.Email, "")
		if err != nil {
			handlers.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if usernameTaken || emailTaken {
			handlers.WriteError(w, http.StatusBadRequest, "Username or email already exists")
			return
		}

		hash, err := HashPassword(req.Password)
		if err != nil {
			handlers.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}

		user := &models.User{
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        req.Email,
			Username:     req.Username,
			PasswordHash: hash,
			IsActive:     true,
		}
		if err := users.Create(user); err != nil {
			logger.Error("failed to create user", zap.Error(err))
			handlers.WriteError(w, http.StatusBadRequest, "Username or email already exists")
			return
		}

		logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
		handlers.WriteJSON(w, http.StatusCreated, user)
	}
}

// LoginHandler handles POST /auth/login. The username field accepts either
// a username or an email.
func LoginHandler(users *storage.Users, m *Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			handlers.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user, err := users.ByLogin(req.Username)
		if err != nil || !CheckPassword(user.PasswordHash, req.Password) {
			handlers.WriteError(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		if !user.IsActive {
			handlers.WriteError(w, http.StatusBadRequest, "User is not active")
			return
		}

		accessToken, expiresAt, err := m.Issue(user.ID, TokenAccess)
		if err != nil {
			handlers.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}
		refreshToken, _, err := m.Issue(user.ID, TokenRefresh)
		if err != nil {
			handlers.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}

		now := time.Now()
		user.LastLogin = &now
		if err := users.Save(user); err != nil {
			logger.Warn("failed to update last login", zap.Error(err))
		}

		handlers.WriteJSON(w, http.StatusOK, TokenResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    "bearer",
			ExpiresAt:    expiresAt,
			UserID:       user.ID,
			Username:     user.Username,
			Email:        user.Email,
			FirstName:    user.FirstName,
			LastName:     user.LastName,
			IsActive:     user.IsActive,
			IsVerified:   user.IsVerified,
		})
	}
}

// LogoutHandler handles POST /auth/logout: the presented token's jti is
// blacklisted until the token would have expired anyway.
func LogoutHandler(m *Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			handlers.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if err := m.Revoke(r.Context(), claims); err != nil {
			logger.Warn("failed to revoke token", zap.Error(err))
			handlers.WriteError(w, http.StatusInternalServerError, "failed to log out")
			return
		}
		handlers.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
	}
}
