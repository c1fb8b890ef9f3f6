package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	jwt "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.ApiService/implementation/jwt"
	config "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Config"
	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepo struct {
	users map[string]*bsnmodels.User // keyed by username
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*bsnmodels.User)}
}

func (r *fakeUserRepo) List(_ context.Context) ([]bsnmodels.User, error) {
	var out []bsnmodels.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeUserRepo) GetByUserID(_ context.Context, userID string) (*bsnmodels.User, error) {
	for _, u := range r.users {
		if u.UserID == userID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*bsnmodels.User, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user bsnmodels.User) error {
	r.users[user.Username] = &user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, userID string, user bsnmodels.User) (bool, error) {
	for name, u := range r.users {
		if u.UserID == userID {
			user.UserID = userID
			delete(r.users, name)
			r.users[user.Username] = &user
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) Delete(_ context.Context, userID string) (bool, error) {
	for name, u := range r.users {
		if u.UserID == userID {
			delete(r.users, name)
			return true, nil
		}
	}
	return false, nil
}

func newTestAuthService(repo *fakeUserRepo) *AuthService {
	jwtService := jwt.NewService(config.AuthConfig{
		JWTSecretKey:        "test-secret",
		JWTIssuer:           "bsn-dashboard-test",
		AccessTokenDuration: time.Hour,
	})
	return NewAuthService(repo, jwtService)
}

func TestLoginBcryptHash(t *testing.T) {
	repo := newFakeUserRepo()
	hashed, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.users["alice"] = &bsnmodels.User{UserID: "u1", Username: "alice", Role: "admin", Password: string(hashed)}

	svc := newTestAuthService(repo)

	resp, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.UserID)
	assert.Equal(t, "admin", resp.Role)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestLoginLegacySHA256Hash(t *testing.T) {
	repo := newFakeUserRepo()
	sum := sha256.Sum256([]byte("hunter2"))
	repo.users["bob"] = &bsnmodels.User{UserID: "u2", Username: "bob", Role: "user", Password: hex.EncodeToString(sum[:])}

	svc := newTestAuthService(repo)

	resp, err := svc.Login(context.Background(), LoginRequest{Username: "bob", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "u2", resp.UserID)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newFakeUserRepo()
	hashed, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.users["alice"] = &bsnmodels.User{UserID: "u1", Username: "alice", Password: string(hashed)}

	svc := newTestAuthService(repo)

	_, err = svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "wrong"})
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestLoginUnknownUser(t *testing.T) {
	svc := newTestAuthService(newFakeUserRepo())

	_, err := svc.Login(context.Background(), LoginRequest{Username: "nobody", Password: "x"})
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(repo)

	user, err := svc.CreateUser(context.Background(), bsnmodels.User{Username: "carol", Password: "secret", Role: "user"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.UserID)
	assert.NotEqual(t, "secret", user.Password)

	stored := repo.users["carol"]
	require.NotNil(t, stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret")))
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	repo := newFakeUserRepo()
	repo.users["carol"] = &bsnmodels.User{UserID: "u3", Username: "carol"}
	svc := newTestAuthService(repo)

	_, err := svc.CreateUser(context.Background(), bsnmodels.User{Username: "carol", Password: "secret"})
	assert.Error(t, err)
}

func TestUpdateUserKeepsPasswordWhenEmpty(t *testing.T) {
	repo := newFakeUserRepo()
	hashed, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.users["alice"] = &bsnmodels.User{UserID: "u1", Username: "alice", Role: "user", Password: string(hashed)}

	svc := newTestAuthService(repo)

	updated, err := svc.UpdateUser(context.Background(), "u1", bsnmodels.User{Username: "alice", Role: "admin"})
	require.NoError(t, err)
	require.True(t, updated)

	stored := repo.users["alice"]
	assert.Equal(t, "admin", stored.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("hunter2")))
}

func TestUpdateUserRehashesNewPassword(t *testing.T) {
	repo := newFakeUserRepo()
	repo.users["alice"] = &bsnmodels.User{UserID: "u1", Username: "alice", Password: "old-hash"}

	svc := newTestAuthService(repo)

	updated, err := svc.UpdateUser(context.Background(), "u1", bsnmodels.User{Username: "alice", Password: "newpass"})
	require.NoError(t, err)
	require.True(t, updated)

	stored := repo.users["alice"]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("newpass")))
}
