package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"anoa.com/voteledger/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const RoleAdmin = "admin"

// Claims is the bearer token payload. The subject carries the user ID.
type Claims struct {
	Role     string `json:"role,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	secret []byte
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

// RequireAuth rejects requests without a valid token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			abort(c, http.StatusUnauthorized, "authorization required", apperror.OutcomeUnauthorized)
			return
		}

		claims, err := m.parse(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid or expired token", apperror.OutcomeUnauthorized)
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and never rejects.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := extractToken(c); tokenString != "" {
			if claims, err := m.parse(tokenString); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get("user_id"); !exists {
			abort(c, http.StatusUnauthorized, "user not authenticated", apperror.OutcomeUnauthorized)
			return
		}

		if c.GetString("role") != RoleAdmin {
			abort(c, http.StatusForbidden, "admin access required", apperror.OutcomeForbidden)
			return
		}

		c.Next()
	}
}

// IssueToken signs a token for userID. Used by tests and local tooling.
func (m *AuthMiddleware) IssueToken(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *AuthMiddleware) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("subject is not a user id: %w", err)
	}
	return claims, nil
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}

	// Fallback to query parameter "token" (useful for WebSockets)
	return c.Query("token")
}

func setClaims(c *gin.Context, claims *Claims) {
	c.Set("user_id", claims.Subject)
	c.Set("role", claims.Role)
	c.Set("username", claims.Username)
}

func abort(c *gin.Context, code int, message, outcome string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message, "outcome": outcome})
}
