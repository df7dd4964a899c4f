package middleware

import (
	"net/http"
	"strings"

	"github.com/BinLe1988/payday-server/models"
	"github.com/BinLe1988/payday-server/pkg/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// 上下文键
const (
	ContextUserID = "userID"
	ContextRole   = "role"
)

// Auth 验证JWT令牌中间件
//
// 用户令牌要求账号存在且未被封禁，管理员令牌要求账号处于启用状态。
func Auth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := utils.ParseToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		db := db.WithContext(c.Request.Context())
		switch claims.Role {
		case utils.RoleAdmin:
			var admin models.Admin
			if err := db.Where("id = ? AND is_active = ?", claims.UserID, true).First(&admin).Error; err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Admin not found or disabled"})
				return
			}
		default:
			var user models.User
			if err := db.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
				return
			}
			if user.Status == models.UserBanned {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "User is banned"})
				return
			}
		}

		// 将用户ID和角色存储在上下文中
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// RequireAdmin 仅允许管理员访问，需放在 Auth 之后
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != utils.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin privileges required"})
			return
		}
		c.Next()
	}
}

// UserID 当前请求的用户ID
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
