package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sc00tz/FridgeNotes/internal/domain"
	"github.com/Sc00tz/FridgeNotes/internal/repository"
)

// AuthService 负责用户注册、登录和 JWT 签发。
type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	jwtExpiry time.Duration
}

// NewAuthService 创建 AuthService 实例。
// jwtSecretKey 应从配置中获取，不能为空。
func NewAuthService(userRepo repository.UserRepository, jwtSecretKey string, jwtExpiryHours int) (*AuthService, error) {
	if userRepo == nil {
		panic("UserRepository cannot be nil for AuthService")
	}
	if jwtSecretKey == "" {
		return nil, fmt.Errorf("JWT secret key cannot be empty")
	}
	if jwtExpiryHours <= 0 {
		jwtExpiryHours = 24
	}
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecretKey),
		jwtExpiry: time.Duration(jwtExpiryHours) * time.Hour,
	}, nil
}

// Register 注册新用户，用户名和邮箱都必须未被占用。
func (s *AuthService) Register(ctx context.Context, username, password, email string) (*domain.User, error) {
	logCtx := logrus.WithFields(logrus.Fields{"username": username, "email": email})

	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	hashed, err := hashPassword(password)
	if err != nil {
		logCtx.WithError(err).Error("Failed to hash password during registration")
		return nil, ErrInternalServer
	}

	user := &domain.User{
		Username: username,
		Password: hashed,
		Email:    email,
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.Warn("Registration failed: username or email already exists")
			return nil, ErrRegistrationFailed
		}
		logCtx.WithError(err).Error("Database error during user creation")
		return nil, ErrInternalServer
	}

	logCtx.WithField("user_id", user.ID).Info("User registered successfully")
	user.Password = "" // 清除哈希再返回
	return user, nil
}

// Login 验证凭据并签发 JWT。
// 用户不存在和密码错误对客户端统一返回认证失败。
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	logCtx := logrus.WithField("username", username)

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logCtx.Warn("Login attempt failed: user not found")
		} else {
			logCtx.WithError(err).Warn("Login attempt failed: error finding user")
		}
		return "", nil, ErrAuthenticationFailed
	}
	if user == nil {
		logCtx.Warn("Login attempt failed: repo returned nil user without error")
		return "", nil, ErrAuthenticationFailed
	}

	if !checkPassword(password, user.Password) {
		logCtx.Warn("Login attempt failed: invalid password")
		return "", nil, ErrAuthenticationFailed
	}

	token, err := s.generateJWT(user.ID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate JWT token during login")
		return "", nil, ErrInternalServer
	}

	logCtx.WithField("user_id", user.ID).Info("User logged in successfully")
	user.Password = ""
	return token, user, nil
}

// CurrentUser 按 ID 加载用户，用于会话探测接口。
func (s *AuthService) CurrentUser(ctx context.Context, userID uint) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to load user")
		return nil, ErrInternalServer
	}
	user.Password = ""
	return user, nil
}

// --- 私有辅助函数 ---

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to generate hash from password: %w", err)
	}
	return string(bytes), nil
}

func checkPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *AuthService) generateJWT(userID uint) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(s.jwtExpiry).Unix(),
		"iat":     time.Now().Unix(),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}
