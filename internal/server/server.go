package server

import (
	"fmt"
	"net/http"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/conf"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/registry"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/relay"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/server/handlers"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/server/middleware"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/server/resp"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/utils/log"
	"github.com/gin-gonic/gin"
)

var httpSrv http.Server

// Setup 组装 gin 引擎，独立出来方便测试
func Setup(reg *registry.Registry, exec *relay.Executor) *gin.Engine {
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		resp.Error(c, http.StatusInternalServerError, resp.ErrInternalServer)
		c.Abort()
	}))

	if conf.IsDebug() {
		r.Use(middleware.Logger())
	}
	r.Use(middleware.Cors())

	handlers.InitRelay(exec)
	handlers.InitAdmin(reg)
	handlers.RegisterRelayRoutes(r)
	handlers.RegisterAdminRoutes(r)

	return r
}

func Start(reg *registry.Registry, exec *relay.Executor) error {
	if conf.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	httpSrv.Addr = fmt.Sprintf("%s:%d", conf.AppConfig.Server.Host, conf.AppConfig.Server.Port)
	httpSrv.Handler = Setup(reg, exec)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("http server listen and serve error: %v", err)
		}
	}()
	return nil
}

func Close() error {
	return httpSrv.Close()
}
