package middleware

import (
	"net/http"
	"strings"

	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/redis"

	"github.com/gin-gonic/gin"
)

const ContextPersonIDKey = "person_id"

// Auth 校验 Bearer token，并要求与 redis 中的会话一致（单点登录）
func Auth(tokens *pkg.TokenIssuer, sessions *redis.SessionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "missing authorization header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid authorization format"})
			return
		}

		tokenStr := parts[1]
		claims, err := tokens.ParseAccess(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid or expired token"})
			return
		}

		// redis校验是否是正确的token
		current, err := sessions.GetToken(c.Request.Context(), claims.PersonID)
		if err != nil || current != tokenStr {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "account is logged in elsewhere"})
			return
		}

		// 校验通过后更新过期时间
		if err = sessions.ExtendToken(c.Request.Context(), claims.PersonID); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"msg": err.Error()})
			return
		}

		c.Set(ContextPersonIDKey, claims.PersonID)
		c.Next()
	}
}

// PersonID 取出 Auth 注入的当前用户
func PersonID(c *gin.Context) uint64 {
	if v, ok := c.Get(ContextPersonIDKey); ok {
		if id, ok2 := v.(uint64); ok2 {
			return id
		}
	}
	return 0
}
