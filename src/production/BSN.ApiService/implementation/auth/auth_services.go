package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	jwt "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.ApiService/implementation/jwt"
	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
	interfaces "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Repository/Interfaces"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any failed login, without
// distinguishing unknown users from wrong passwords.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService aggregates account and session operations
type AuthService struct {
	userRepo   interfaces.UserRepository
	jwtService *jwt.Service
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenID     string `json:"token_id"`
	ExpiresAt   int64  `json:"expires_at"`
	UserID      string `json:"user_ID"`
	Username    string `json:"username"`
	Role        string `json:"role"`
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo interfaces.UserRepository, jwtService *jwt.Service) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
	}
}

// Login authenticates a user and returns an access token
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}

	if !verifyPassword(user.Password, req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateToken(user.UserID, user.Role)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		AccessToken: token.AccessToken,
		TokenID:     token.TokenID,
		ExpiresAt:   token.ExpiresAt,
		UserID:      user.UserID,
		Username:    user.Username,
		Role:        user.Role,
	}, nil
}

// Logout revokes the session's token ID
func (s *AuthService) Logout(tokenID string, expiresAt time.Time) {
	s.jwtService.RevokeToken(tokenID, expiresAt)
}

// CreateUser hashes the password and stores a new account
func (s *AuthService) CreateUser(ctx context.Context, user bsnmodels.User) (*bsnmodels.User, error) {
	existing, err := s.userRepo.GetByUsername(ctx, user.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("username already exists")
	}

	hashed, err := HashPassword(user.Password)
	if err != nil {
		return nil, err
	}
	user.Password = hashed

	if user.UserID == "" {
		user.UserID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser updates an account, re-hashing the password when one is
// supplied. An empty password keeps the stored hash.
func (s *AuthService) UpdateUser(ctx context.Context, userID string, user bsnmodels.User) (bool, error) {
	if user.Password != "" {
		hashed, err := HashPassword(user.Password)
		if err != nil {
			return false, err
		}
		user.Password = hashed
	} else {
		existing, err := s.userRepo.GetByUserID(ctx, userID)
		if err != nil {
			return false, err
		}
		if existing == nil {
			return false, nil
		}
		user.Password = existing.Password
	}
	user.UpdatedAt = time.Now().UTC()
	return s.userRepo.Update(ctx, userID, user)
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// verifyPassword checks a password against the stored hash. Accounts migrated
// from the previous deployment carry unsalted SHA-256 hex digests instead of
// bcrypt hashes, so those are still accepted.
func verifyPassword(stored, password string) bool {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}

	sum := sha256.Sum256([]byte(password))
	digest := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(stored), []byte(digest)) == 1
}
