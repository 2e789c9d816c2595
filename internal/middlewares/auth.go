package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sharetrust/sharetrust/pkg/jwt"
)

// AuthMiddleware JWT 认证中间件
// 校验签名、过期时间和受众，失败一律 401，不做仅解码的降级
func AuthMiddleware(tm *jwt.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string

		// 1. 尝试从请求头获取 token
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			}
		}

		// 2. 如果请求头没有，尝试从 Query 参数获取 (主要用于 WebSocket)
		if token == "" {
			token = c.Query("token")
		}

		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  "未提供认证 Token",
			})
			c.Abort()
			return
		}

		claims, err := tm.ParseToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  "Token 无效或已过期",
			})
			c.Abort()
			return
		}

		// 将 claims 存储在 context 中
		c.Set("user_id", claims.Subject)
		c.Set("line_user_id", claims.LineUserID)
		c.Set("display_name", claims.DisplayName)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// AdminOnly 管理员专用路由
// 必须挂在 AuthMiddleware 之后
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if role, _ := c.Get("role"); role != "admin" {
			c.JSON(http.StatusForbidden, gin.H{
				"status": "error",
				"error":  "需要管理员权限",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
