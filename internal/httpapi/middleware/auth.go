package middleware

import (
	"net/http"
	"strings"

	"github.com/eatsome/printer-daemon/internal/auth"
	"github.com/eatsome/printer-daemon/internal/common"
	"github.com/gin-gonic/gin"
)

// ClaimsKey is the gin context key AuthRequired stores validated
// auth.Claims under, the way the teacher's middleware stores
// middleware.UserIDKey.
const ClaimsKey = "printer_claims"

// AuthRequired validates the Authorization: Bearer <JWT> header with
// manager and requires the "print" permission, matching spec.md §4.8's
// signature/expiry/permission checks. It does not check restaurant_id
// against the request body — the handler does that, since it needs
// the parsed body to compare against.
func AuthRequired(manager *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			common.Fail(c, http.StatusUnauthorized, 40101, "missing or malformed authorization header")
			c.Abort()
			return
		}

		token, err := auth.ExtractBearerToken(header)
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40101, "missing or malformed authorization header")
			c.Abort()
			return
		}

		claims, err := manager.ValidateWithPermission(token, "print")
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40102, "invalid, expired, or under-permissioned token")
			c.Abort()
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// ClaimsFromContext retrieves the claims AuthRequired stored, if any.
func ClaimsFromContext(c *gin.Context) (auth.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return auth.Claims{}, false
	}
	claims, ok := v.(auth.Claims)
	return claims, ok
}
