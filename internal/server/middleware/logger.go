package middleware

import (
	"time"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/utils/log"
	"github.com/gin-gonic/gin"
)

// Logger 调试模式下打印请求耗时
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugf("%s %s %d %v", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start))
	}
}
