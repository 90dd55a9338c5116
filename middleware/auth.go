package middleware

import (
	"net/http"
	"os"
	"strings"

	"review-quorum-api/config"
	"review-quorum-api/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in token claims. Identity issuance lives in the platform's
// auth service; this middleware only verifies and trusts the wallet it is
// handed.
const (
	RoleReviewer = "reviewer"
	RoleAdmin    = "admin"
)

type Claims struct {
	Wallet string `json:"wallet"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates JWT token and resolves the reviewer wallet.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(os.Getenv("JWT_SECRET")), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || claims.Wallet == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		// Admins are platform operators and need no registry row;
		// everyone else must exist in the reviewer registry.
		if claims.Role != RoleAdmin {
			var reviewer models.Reviewer
			if err := config.DB.Where("wallet_address = ?", claims.Wallet).First(&reviewer).Error; err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Reviewer not found"})
				c.Abort()
				return
			}
		}

		c.Set("wallet", claims.Wallet)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// RequireRole checks that the authenticated caller holds one of the roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleValue, exists := c.Get("role")
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{"error": "Role not found"})
			c.Abort()
			return
		}

		role := roleValue.(string)
		allowed := false
		for _, r := range roles {
			if role == r {
				allowed = true
				break
			}
		}

		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			c.Abort()
			return
		}

		c.Next()
	}
}
