package middleware

import (
	"log"
	"net/http"

	"github.com/eatsome/printer-daemon/internal/common"
	"github.com/gin-gonic/gin"
)

// Recovery converts a panic in any handler into a 500 envelope instead
// of killing the process — the teacher's router wires this in place of
// gin's own gin.Recovery() (commented out at the call site).
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("component=httpapi panic recovered: %v", r)
				common.Fail(c, http.StatusInternalServerError, 50000, "internal server error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
