package middleware

import (
	"net/http"
	"strings"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/conf"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/op"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/server/resp"
	"github.com/gin-gonic/gin"
)

const groupKey = "relay_group"

// TokenAuth 按分组 token 鉴权，兼容 OpenAI 和 Anthropic 的头部习惯
func TokenAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if key := c.Request.Header.Get("x-api-key"); key != "" {
			token = key
		} else if auth := c.Request.Header.Get("Authorization"); auth != "" {
			token = strings.TrimPrefix(auth, "Bearer ")
		}
		if token == "" {
			resp.Error(c, http.StatusUnauthorized, resp.ErrUnauthorized)
			c.Abort()
			return
		}

		group, ok := op.GroupGetByToken(token)
		if !ok {
			resp.Error(c, http.StatusUnauthorized, resp.ErrUnauthorized)
			c.Abort()
			return
		}
		if !group.Enabled() {
			resp.Error(c, http.StatusUnauthorized, "group is disabled")
			c.Abort()
			return
		}

		c.Set(groupKey, &group)
		c.Next()
	}
}

// GroupFrom 取出鉴权中间件放入的分组
func GroupFrom(c *gin.Context) *model.Group {
	if v, ok := c.Get(groupKey); ok {
		if g, ok := v.(*model.Group); ok {
			return g
		}
	}
	return nil
}

// AdminAuth 管理接口用静态 token 鉴权
func AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.Request.Header.Get("Authorization"), "Bearer ")
		if conf.AppConfig.Server.AdminToken == "" ||
			token != conf.AppConfig.Server.AdminToken {
			resp.Error(c, http.StatusUnauthorized, resp.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}
