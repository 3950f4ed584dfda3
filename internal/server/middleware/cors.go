package middleware

import (
	"strings"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/conf"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func Cors() gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowCredentials = true
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"*"}
	config.AllowOriginFunc = func(origin string) bool {
		allowed := strings.TrimSpace(conf.AppConfig.Server.CORSAllowOrigins)
		if allowed == "" {
			return false
		}
		if allowed == "*" {
			return true
		}
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		for _, item := range strings.Split(allowed, ",") {
			item = strings.TrimRight(strings.TrimSpace(item), "/")
			if item != "" && item == origin {
				return true
			}
		}
		return false
	}
	return cors.New(config)
}
