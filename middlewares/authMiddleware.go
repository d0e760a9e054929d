package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mmdatafocus/sync_backend/config"
	"github.com/mmdatafocus/sync_backend/models"
	"github.com/mmdatafocus/sync_backend/utils"
)

// AuthMiddleware requires a valid bearer token and puts its subject, username
// and role on the request context. Preflight requests pass through.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token, ok := utils.BearerToken(c.Request.Header.Get("Authorization"))
		if !ok {
			config.GetLogger().WithField("path", c.Request.URL.Path).Warn("authorization header missing")
			utils.AbortWithError(c, http.StatusUnauthorized, "Authorization header missing or invalid.")
			return
		}

		validate, err := utils.JwtValidate(token)
		if err != nil || !validate.Valid {
			utils.AbortWithError(c, http.StatusUnauthorized, "Invalid or expired token.")
			return
		}

		customClaim, _ := validate.Claims.(*utils.JwtCustomClaim)
		role, err := models.ParseRole(customClaim.Role)
		if err != nil || customClaim.Username == "" {
			utils.AbortWithError(c, http.StatusUnauthorized, "Token does not carry a valid role and username.")
			return
		}

		ctx := utils.SetSubjectInContext(c.Request.Context(), customClaim.Subject)
		ctx = utils.SetUsernameInContext(ctx, customClaim.Username)
		ctx = utils.SetRoleInContext(ctx, role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
