package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes short-lived access tokens from refresh tokens.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// ErrInvalidToken covers malformed, badly signed, expired and wrong-type tokens.
var ErrInvalidToken = errors.New("token is invalid or expired")

// Claims is the JWT payload for both token types.
type Claims struct {
	TokenType TokenType `json:"token_type"`
	UserID    int64     `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenPair is returned by the token obtain endpoint.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenService issues and validates HS256 tokens.
type TokenService struct {
	secret          []byte
	accessLifetime  time.Duration
	refreshLifetime time.Duration
	now             func() time.Time
}

// NewTokenService creates a TokenService signing with secret.
func NewTokenService(secret string, accessLifetime, refreshLifetime time.Duration) *TokenService {
	return &TokenService{
		secret:          []byte(secret),
		accessLifetime:  accessLifetime,
		refreshLifetime: refreshLifetime,
		now:             time.Now,
	}
}

// WithClock replaces the time source used for issuing and validating tokens.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

func (s *TokenService) AccessLifetime() time.Duration { return s.accessLifetime }
func (s *TokenService) RefreshLifetime() time.Duration { return s.refreshLifetime }

// IssuePair creates a fresh access/refresh pair for userID.
func (s *TokenService) IssuePair(userID int64) (*TokenPair, error) {
	access, err := s.issue(userID, AccessToken, s.accessLifetime)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issue(userID, RefreshToken, s.refreshLifetime)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// IssueAccess creates a new access token for userID.
func (s *TokenService) IssueAccess(userID int64) (string, error) {
	return s.issue(userID, AccessToken, s.accessLifetime)
}

func (s *TokenService) issue(userID int64, typ TokenType, lifetime time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		TokenType: typ,
		UserID:    userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", typ, err)
	}
	return signed, nil
}

// Parse validates tokenString and requires it to be of type want.
// Every failure is reported as ErrInvalidToken wrapping the cause.
func (s *TokenService) Parse(tokenString string, want TokenType) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != want {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, want, claims.TokenType)
	}
	return claims, nil
}
