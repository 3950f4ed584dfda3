package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/op"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/relay"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/server/middleware"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/server/resp"
	"github.com/gin-gonic/gin"
)

// 请求体上限，超过直接拒绝
const maxRequestBody = 32 << 20

var exec *relay.Executor

// InitRelay 注入执行器，必须在路由注册前调用
func InitRelay(e *relay.Executor) {
	exec = e
}

func RegisterRelayRoutes(r *gin.Engine) {
	v1 := r.Group("/v1", middleware.TokenAuth(), middleware.RequireJSON())
	v1.POST("/chat/completions", relayHandler)
	v1.POST("/messages", relayHandler)
	v1.POST("/embeddings", relayHandler)
}

func relayHandler(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBody+1))
	if err != nil {
		resp.Error(c, http.StatusBadRequest, resp.ErrBadRequest)
		return
	}
	if len(body) > maxRequestBody {
		resp.Error(c, http.StatusRequestEntityTooLarge, resp.ErrBadRequest)
		return
	}

	var head struct {
		Model  string `json:"model"`
		Stream bool   `json:"stream"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		resp.Error(c, http.StatusBadRequest, resp.ErrInvalidJSON)
		return
	}
	if head.Model == "" {
		resp.Error(c, http.StatusBadRequest, "model is required")
		return
	}

	req := &relay.Request{
		RequestID: requestID(c),
		Group:     middleware.GroupFrom(c),
		Model:     head.Model,
		Body:      body,
		Header:    c.Request.Header,
		Stream:    head.Stream,
		IP:        c.ClientIP(),
	}

	var sink relay.Sink
	if head.Stream {
		sink = newSSESink(c)
	} else {
		sink = newJSONSink(c)
	}
	// 错误已经由 sink 渲染并随消费记录落库
	_ = exec.Relay(c.Request.Context(), req, sink)
}

func requestID(c *gin.Context) string {
	if id := c.Request.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return strconv.FormatInt(op.NextID(), 10)
}
