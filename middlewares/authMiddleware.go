package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/sales_backend/utils"
)

type authString string

// AuthMiddleware attaches the caller's claims when a valid bearer token is sent.
// Requests without a token pass through; RequireRole rejects them where needed.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		if auth == "" {
			c.Next()
			return
		}

		bearer := "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			AbortWithError(c, http.StatusUnauthorized, "Invalid authorization header.")
			return
		}
		token := strings.TrimSpace(auth[len(bearer):])

		validate, err := utils.JwtValidate(token)
		if err != nil || !validate.Valid {
			AbortWithError(c, http.StatusUnauthorized, "Invalid or expired token.")
			return
		}
		customClaim, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok {
			AbortWithError(c, http.StatusUnauthorized, "Invalid or expired token.")
			return
		}

		ctx := context.WithValue(c.Request.Context(), authString("auth"), customClaim)
		ctx = utils.SetUserIdInContext(ctx, customClaim.ID)
		ctx = utils.SetUsernameInContext(ctx, customClaim.Username)
		ctx = utils.SetRolesInContext(ctx, customClaim.Roles)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func CtxValue(ctx context.Context) *utils.JwtCustomClaim {
	raw, _ := ctx.Value(authString("auth")).(*utils.JwtCustomClaim)
	return raw
}

// RequireRole answers 401 without claims and 403 when the role is missing.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claim := CtxValue(c.Request.Context())
		if claim == nil {
			AbortWithError(c, http.StatusUnauthorized, "Authentication is required.")
			return
		}
		if !claim.HasRole(role) {
			AbortWithError(c, http.StatusForbidden, "Access Denied: You do not have the required permissions to access this resource.")
			return
		}
		c.Next()
	}
}

// RequireAuth answers 401 unless AuthMiddleware attached claims.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CtxValue(c.Request.Context()) == nil {
			AbortWithError(c, http.StatusUnauthorized, "Authentication is required.")
			return
		}
		c.Next()
	}
}
