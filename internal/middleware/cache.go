package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// CacheControl sets the Cache-Control header. Used with no-store on every
// exam endpoint so proxies never replay a stale gate decision, and with a
// long max-age on static assets.
func CacheControl(maxAgeSeconds int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxAgeSeconds <= 0 {
			c.Header("Cache-Control", "no-store")
		} else {
			c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAgeSeconds))
		}
		c.Next()
	}
}
