package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Sc00tz/FridgeNotes/internal/service"
)

// AuthHandler 封装用户认证相关的 HTTP 处理逻辑。
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler 创建 AuthHandler 实例。
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest 定义注册请求的结构。
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// Register 处理用户注册请求。
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.Register: invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	newUser, err := h.authService.Register(c.Request.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		logCtx := logrus.WithField("username", req.Username)
		if errors.Is(err, service.ErrRegistrationFailed) {
			logCtx.Warn("Handler.Register: registration failed (likely duplicate)")
			ErrorResponse(c, http.StatusBadRequest, err.Error())
		} else {
			logCtx.WithError(err).Error("Handler.Register: internal error during registration")
			ErrorResponse(c, http.StatusInternalServerError, "Registration failed due to server error")
		}
		return
	}

	logrus.WithField("user_id", newUser.ID).Info("Handler.Register: user registered successfully")
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    newUser.ToView(),
	})
}

// LoginRequest 定义登录请求的结构。
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 处理用户登录请求。
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.Login: invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: username and password required")
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		logCtx := logrus.WithField("username", req.Username)
		if errors.Is(err, service.ErrAuthenticationFailed) {
			logCtx.Warn("Handler.Login: authentication failed")
			ErrorResponse(c, http.StatusUnauthorized, err.Error())
		} else {
			logCtx.WithError(err).Error("Handler.Login: internal error during login")
			ErrorResponse(c, http.StatusInternalServerError, "Login failed due to server error")
		}
		return
	}

	logrus.WithField("username", req.Username).Info("Handler.Login: user logged in successfully")
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    user.ToView(),
	})
}

// Me 返回当前认证用户的信息，前端用来探测会话有效性。
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.authService.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, user.ToView())
}
