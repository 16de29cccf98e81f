// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"spark-chat-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// OwnerKey 是验证后的所有者标识在 gin 上下文中的键。
const OwnerKey = "ownerId"

// AuthMiddleware 创建一个 Gin 中间件，用于验证外部签发的身份令牌。
// 它从请求头中提取 token，验证有效性，并把其中的所有者标识存入上下文。
// 核心处理逻辑只看这个标识，从不接触原始凭证。
func AuthMiddleware(verifier *token.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 从 Authorization 请求头中获取 token
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请求未包含授权头"})
			return
		}

		// Token 以 "Bearer <token>" 的形式提供
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的授权头格式"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := verifier.VerifyToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效或已过期的 token"})
			return
		}

		// 将所有者标识存储在 context 中，供后续处理函数使用
		c.Set(OwnerKey, claims.Subject)
		c.Next()
	}
}

// OwnerID 从 gin 上下文取出已验证的所有者标识。
func OwnerID(c *gin.Context) string {
	return c.GetString(OwnerKey)
}
