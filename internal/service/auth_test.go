package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sc00tz/FridgeNotes/internal/domain"
	"github.com/Sc00tz/FridgeNotes/internal/repository"
	"github.com/Sc00tz/FridgeNotes/internal/repository/mocks"
	"github.com/Sc00tz/FridgeNotes/internal/service"
)

func TestAuthService_Register_Success(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, err := service.NewAuthService(mockUserRepo, "very-secret-key", 1)
	require.NoError(t, err, "创建 AuthService 不应失败")

	ctx := context.Background()
	username := "newbie"
	password := "StrongPass123"
	email := "newbie@example.com"

	// Register 返回前会清空同一指针上的密码字段，
	// 所以在 Run 钩子里按值捕获入库时的状态，调用后再断言
	var savedUsername, savedEmail, savedHash string
	mockUserRepo.On("Save", ctx, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) {
			user := args.Get(1).(*domain.User)
			savedUsername = user.Username
			savedEmail = user.Email
			savedHash = user.Password
			user.ID = 5
		}).Return(nil).Once()

	registeredUser, err := authService.Register(ctx, username, password, email)

	assert.NoError(t, err)
	require.NotNil(t, registeredUser)
	assert.Equal(t, uint(5), registeredUser.ID)
	assert.Equal(t, username, savedUsername)
	assert.Equal(t, email, savedEmail)
	// 密码必须以哈希形式入库
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(savedHash), []byte(password)))
	assert.Empty(t, registeredUser.Password, "返回的用户对象不应携带密码哈希")
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_DuplicateEntry(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)
	ctx := context.Background()

	mockUserRepo.On("Save", ctx, mock.AnythingOfType("*domain.User")).
		Return(repository.ErrDuplicateEntry).Once()

	_, err := authService.Register(ctx, "existingUser", "password", "email@test.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrRegistrationFailed))
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_EmptyCredentials(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)

	_, err := authService.Register(context.Background(), "", "", "email@test.com")

	require.Error(t, err)
	mockUserRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAuthService_Login_Success(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "test-secret", 24)
	ctx := context.Background()
	username := "testuser"
	password := "password123"
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	userInDb := &domain.User{ID: 1, Username: username, Password: string(hashedPassword)}

	mockUserRepo.On("FindByUsername", ctx, username).Return(userInDb, nil).Once()

	token, user, err := authService.Login(ctx, username, password)

	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	require.NotNil(t, user)
	assert.Empty(t, user.Password)
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Login_UserNotFound(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "test-secret", 24)
	ctx := context.Background()

	mockUserRepo.On("FindByUsername", ctx, "nonexistent").
		Return(nil, repository.ErrUserNotFound).Once()

	token, _, err := authService.Login(ctx, "nonexistent", "password")

	require.Error(t, err)
	assert.Empty(t, token)
	assert.True(t, errors.Is(err, service.ErrAuthenticationFailed))
}

func TestAuthService_Login_IncorrectPassword(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "test-secret", 24)
	ctx := context.Background()
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	userInDb := &domain.User{ID: 1, Username: "testuser", Password: string(hashedPassword)}

	mockUserRepo.On("FindByUsername", ctx, "testuser").Return(userInDb, nil).Once()

	token, _, err := authService.Login(ctx, "testuser", "wrongpassword")

	require.Error(t, err)
	assert.Empty(t, token)
	assert.True(t, errors.Is(err, service.ErrAuthenticationFailed))
}
