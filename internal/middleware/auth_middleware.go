package middleware

import (
	"errors"
	"net/http"
	"strings"

	"booknest_backend/internal/models"
	"booknest_backend/internal/services"
	"booknest_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middlewares.
const (
	ContextUserKey   = "currentUser"
	ContextUserIDKey = "userID"
)

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// CurrentUser returns the principal the auth middleware resolved, or nil for
// anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ContextUserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// RequireAuth resolves the bearer token and rejects the request when it is
// missing, invalid, or belongs to an inactive account.
func RequireAuth(authz services.AuthzService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized,
				"Authorization header required. Use Bearer <token>", ""))
			return
		}

		user, err := authz.RequireActivePrincipal(token)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrInactiveUser):
				utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest,
					"Inactive user", ""))
			case errors.Is(err, services.ErrInvalidToken):
				utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized,
					"Invalid or expired token", ""))
			default:
				utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError,
					"Failed to resolve user", ""))
			}
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextUserIDKey, user.ID)
		c.Next()
	}
}

// OptionalAuth resolves the bearer token when present but never rejects the
// request. Invalid tokens leave the request anonymous; account status is not
// checked here, so downstream visibility logic sees the principal either way.
func OptionalAuth(authz services.AuthzService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		if user, err := authz.ResolvePrincipal(token); err == nil {
			c.Set(ContextUserKey, user)
			c.Set(ContextUserIDKey, user.ID)
		}
		c.Next()
	}
}

// RequirePermission gates the route on a permission code. Admin-family roles
// bypass the code check entirely, even for codes that do not exist.
func RequirePermission(authz services.AuthzService, code string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		err := authz.Authorize(user, code)
		if err == nil {
			c.Next()
			return
		}
		switch {
		case errors.Is(err, services.ErrUnauthenticated):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized,
				"Authentication required", ""))
		case errors.Is(err, services.ErrInactiveUser):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest,
				"Inactive user", ""))
		default:
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden,
				"You do not have permission to perform this action. Required: "+code, ""))
		}
	}
}

// RequireAdminRole gates the route on the admin role family rather than a
// permission code.
func RequireAdminRole(authz services.AuthzService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized,
				"Authentication required", ""))
			return
		}
		if !authz.IsContentAdmin(user) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden,
				"Administrator access required", ""))
			return
		}
		c.Next()
	}
}
