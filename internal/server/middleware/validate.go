package middleware

import (
	"net/http"
	"strings"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/server/resp"
	"github.com/gin-gonic/gin"
)

// RequireJSON 中继入口只接受 JSON 体
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		ct := c.Request.Header.Get("Content-Type")
		if !strings.Contains(ct, "application/json") {
			resp.Error(c, http.StatusUnsupportedMediaType, resp.ErrInvalidJSON)
			c.Abort()
			return
		}
		c.Next()
	}
}
