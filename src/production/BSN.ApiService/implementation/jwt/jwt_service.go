package jwt

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
	config "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Config"
)

// AccessClaims are the claims carried by an access token
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
	TokenID string `json:"token_id"`
}

// Token is an issued access token together with its identifiers
type Token struct {
	AccessToken string `json:"access_token"`
	TokenID     string `json:"token_id"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Service provides JWT operations
type Service struct {
	config config.AuthConfig

	// Revoked token IDs, pruned lazily by expiry. Logout revokes the
	// token ID server-side so a stolen token stops working immediately.
	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewService creates a new JWT service
func NewService(cfg config.AuthConfig) *Service {
	return &Service{
		config:  cfg,
		revoked: make(map[string]time.Time),
	}
}

// GenerateToken creates a new access token for the user
func (s *Service) GenerateToken(userID, role string) (*Token, error) {
	tokenID := uuid.New().String()
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenDuration)

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.JWTIssuer,
		},
		UserID:  userID,
		Role:    role,
		TokenID: tokenID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecretKey))
	if err != nil {
		return nil, err
	}

	return &Token{
		AccessToken: signed,
		TokenID:     tokenID,
		ExpiresAt:   expiresAt.Unix(),
	}, nil
}

// ValidateToken validates an access token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.JWTSecretKey), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	if s.isRevoked(claims.TokenID) {
		return nil, errors.New("token revoked")
	}

	return claims, nil
}

// RevokeToken invalidates a token ID until its natural expiry
func (s *Service) RevokeToken(tokenID string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[tokenID] = expiresAt
}

func (s *Service) isRevoked(tokenID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.revoked[tokenID]
	if !ok {
		return false
	}
	if exp.Before(time.Now()) {
		delete(s.revoked, tokenID)
		return false
	}
	return true
}
