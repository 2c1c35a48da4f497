package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
)

// ErrMissingToken 表示请求既没有 Authorization 头也没有 token 查询参数。
var ErrMissingToken = errors.New("missing authentication token")

// Auth 返回验证 JWT 的 Gin 中间件。
// Token 取自 Authorization: Bearer 头；浏览器的 WebSocket API 无法
// 设置请求头，所以也接受 ?token= 查询参数。
// 验证通过后把用户 ID 写入上下文键 "userID"。
func Auth(jwtSecret string) gin.HandlerFunc {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty for Auth middleware")
	}

	return func(c *gin.Context) {
		tokenStr, err := extractToken(c)
		if err != nil {
			if errors.Is(err, ErrMissingToken) {
				logrus.Warn("Auth middleware: missing authentication token")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication token is required"})
			} else {
				logrus.WithError(err).Warn("Auth middleware: malformed token format")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			}
			c.Abort()
			return
		}

		claims, err := validateToken(tokenStr, jwtSecret)
		if err != nil {
			logCtx := logrus.WithError(err)
			logCtx.Warn("Auth middleware: invalid token")
			var validationError *jwt.ValidationError
			if errors.As(err, &validationError) {
				if validationError.Errors&jwt.ValidationErrorExpired != 0 {
					logCtx.Warn("Reason: token is expired")
				}
				if validationError.Errors&jwt.ValidationErrorSignatureInvalid != 0 {
					logCtx.Warn("Reason: token signature is invalid")
				}
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		userIDClaim, ok := claims["user_id"]
		if !ok {
			logrus.Error("Auth middleware: 'user_id' claim missing in token")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Token processing error: missing user_id"})
			c.Abort()
			return
		}

		// JWT 数字解码为 float64，转回 uint 前先校验
		userIDFloat, ok := userIDClaim.(float64)
		if !ok || userIDFloat <= 0 || userIDFloat != float64(uint(userIDFloat)) {
			logrus.Errorf("Auth middleware: 'user_id' claim is not a valid positive integer: %v", userIDClaim)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Token processing error: invalid user_id"})
			c.Abort()
			return
		}

		c.Set("userID", uint(userIDFloat))
		c.Next()
	}
}

// extractToken 从 Authorization 头或 token 查询参数提取 JWT。
func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", jwt.ErrTokenMalformed
		}
		return parts[1], nil
	}
	if token := c.Query("token"); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}

// validateToken 解析并验证 JWT 字符串，只接受 HMAC 签名。
func validateToken(tokenStr string, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token or claims type")
}
