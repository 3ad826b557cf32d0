// Package common holds the shared HTTP response envelope every
// handler in internal/httpapi uses, grounded on the teacher's
// ok()/fail() helpers (internal/httpapi/handlers/chat.go).
package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OK writes the success envelope: {code: 0, message: "ok", data}.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "ok",
		"data":    data,
	})
}

// Fail writes the error envelope with an HTTP status and an
// application-level code, matching the teacher's fail() exactly.
func Fail(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
		"data":    nil,
	})
}
