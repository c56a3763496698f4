// Package auth covers password hashing, the JWT lifecycle and the password
// policy the registration and password-change flows enforce.
package auth

import (
	"context"
	"errors"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims are the JWT payload: the subject user, the token flavour and the
// registered claim set (jti is used for revocation).
type Claims struct {
	UserID    string    `json:"user_id"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// Manager issues, parses and revokes tokens.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	blacklist  Blacklist
}

func NewManager(secret []byte, accessTTL, refreshTTL time.Duration, blacklist Blacklist) *Manager {
	return &Manager{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		blacklist:  blacklist,
	}
}

// Issue signs an HS256 token of the given type for userID and returns the
// token with its expiry time.
func (m *Manager) Issue(userID string, tokenType TokenType) (string, time.Time, error) {
	ttl := m.accessTTL
	if tokenType == TokenRefresh {
		ttl = m.refreshTTL
	}
	expiresAt := time.Now().Add(ttl)

	claims := &Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse verifies the signature and expiry and rejects revoked tokens.
func (m *Manager) Parse(ctx context.Context, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if m.blacklist != nil && m.blacklist.Contains(ctx, claims.ID) {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke blacklists the token's jti for the remainder of its lifetime.
// An already-expired token is a no-op.
func (m *Manager) Revoke(ctx context.Context, claims *Claims) error {
	if claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return m.blacklist.Add(ctx, claims.ID, ttl)
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword enforces the password policy: at least 8 characters with
// an uppercase letter, a lowercase letter, a digit and a special character.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	switch {
	case !upper:
		return errors.New("password must contain at least one uppercase letter")
	case !lower:
		return errors.New("password must contain at least one lowercase letter")
	case !digit:
		return errors.New("password must contain at least one digit")
	case !special:
		return errors.New("password must contain at least one special character")
	}
	return nil
}
