package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"checkout-service/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const (
	UserContextKey = "currentUser"

	HeaderUserID    = "X-User-ID"
	HeaderUserRole  = "X-User-Role"
	HeaderUserEmail = "X-User-Email"
)

var errNoIdentity = errors.New("no user identity on request")

// AuthMiddleware resolves the caller from a bearer token signed with
// jwtSecret, or from the identity headers set by the API gateway. Requests
// with neither are rejected with 401.
func AuthMiddleware(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := resolveUser(c, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": "Unauthorized"})
			return
		}
		c.Set(UserContextKey, user)
		c.Next()
	}
}

// AdminOnly must run after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetCurrentUser(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required", "code": "Forbidden"})
			return
		}
		c.Next()
	}
}

// GetCurrentUser returns the authenticated caller, or a zero CurrentUser.
func GetCurrentUser(c *gin.Context) models.CurrentUser {
	if val, ok := c.Get(UserContextKey); ok {
		if u, ok := val.(models.CurrentUser); ok {
			return u
		}
	}
	return models.CurrentUser{}
}

func resolveUser(c *gin.Context, jwtSecret []byte) (models.CurrentUser, error) {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return parseToken(strings.TrimPrefix(header, "Bearer "), jwtSecret)
	}

	id := strings.TrimSpace(c.GetHeader(HeaderUserID))
	if id == "" {
		return models.CurrentUser{}, errNoIdentity
	}
	return models.CurrentUser{
		ID:    id,
		Role:  c.GetHeader(HeaderUserRole),
		Email: c.GetHeader(HeaderUserEmail),
	}, nil
}

func parseToken(tokenStr string, secret []byte) (models.CurrentUser, error) {
	if len(secret) == 0 {
		return models.CurrentUser{}, fmt.Errorf("JWT secret not configured")
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return models.CurrentUser{}, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.CurrentUser{}, fmt.Errorf("invalid token claims")
	}

	user := models.CurrentUser{
		ID:    claimString(claims, "user_id"),
		Role:  claimString(claims, "role"),
		Email: claimString(claims, "email"),
	}
	if user.ID == "" {
		user.ID = claimString(claims, "sub")
	}
	if user.ID == "" {
		return models.CurrentUser{}, errNoIdentity
	}
	return user, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}
