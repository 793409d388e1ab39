package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/marketbay/storefront-api/internal/dto"
	"github.com/marketbay/storefront-api/internal/model"
)

type mockUserRepo struct {
	byEmail map[string]*model.User
	byID    map[int64]*model.User
	nextID  int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byEmail: make(map[string]*model.User), byID: make(map[int64]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	m.byEmail[user.Email] = user
	m.byID[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	return m.byID[id], nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return m.byEmail[email], nil
}

func newTestAuthService(repo *mockUserRepo) *AuthService {
	return NewAuthService(repo, "test-secret", time.Hour)
}

func TestAuthService_Register(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(repo)

	resp, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name:     "Jane",
		Email:    "jane@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Jane", resp.User.Name)
	assert.Equal(t, "jane@example.com", resp.User.Email)
	assert.Equal(t, "jane@example.com", resp.User.Username)
	assert.Equal(t, resp.User.ID, resp.User.LegacyID)
	assert.False(t, resp.User.IsAdmin)

	stored := repo.byEmail["jane@example.com"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "password123", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("password123")))
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(repo)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name: "Jane", Email: "jane@example.com", Password: "password123",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), dto.RegisterRequest{
		Name: "Imposter", Email: "jane@example.com", Password: "password456",
	})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestAuthService_Login(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(repo)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name: "Jane", Email: "jane@example.com", Password: "password123",
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		Email: "jane@example.com", Password: "password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "jane@example.com", resp.User.Email)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(repo)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name: "Jane", Email: "jane@example.com", Password: "password123",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Email: "jane@example.com", Password: "wrong-password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Email: "nobody@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserDisplayName(t *testing.T) {
	named := &model.User{Email: "jane@example.com", Name: "Jane"}
	assert.Equal(t, "Jane", named.DisplayName())

	unnamed := &model.User{Email: "anon@example.com"}
	assert.Equal(t, "anon@example.com", unnamed.DisplayName())
}
