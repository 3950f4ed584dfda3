package handlers

import (
	"net/http"
	"strconv"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/op"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/registry"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/server/middleware"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/server/resp"
	"github.com/gin-gonic/gin"
)

var reg *registry.Registry

func InitAdmin(r *registry.Registry) {
	reg = r
}

func RegisterAdminRoutes(r *gin.Engine) {
	api := r.Group("/api", middleware.AdminAuth())

	api.GET("/channels", listChannels)
	api.POST("/channels", upsertChannel)
	api.DELETE("/channels/:id", deleteChannel)

	api.GET("/groups", listGroups)
	api.POST("/groups", upsertGroup)
	api.DELETE("/groups/:id", deleteGroup)

	api.GET("/prices", listPrices)
	api.POST("/prices", upsertPrice)
	api.DELETE("/prices/:model", deletePrice)

	api.GET("/health", healthSnapshot)
	api.POST("/health/unban", unbanPair)

	api.GET("/logs", listLogs)
}

func listChannels(c *gin.Context) {
	resp.Success(c, reg.Channels())
}

func upsertChannel(c *gin.Context) {
	var ch model.Channel
	if err := c.ShouldBindJSON(&ch); err != nil {
		resp.Error(c, http.StatusBadRequest, resp.ErrInvalidJSON)
		return
	}
	if err := op.ChannelUpsert(reg, ch); err != nil {
		resp.Error(c, http.StatusInternalServerError, resp.ErrDatabase)
		return
	}
	resp.Success(c, ch)
}

func deleteChannel(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		resp.Error(c, http.StatusBadRequest, resp.ErrBadRequest)
		return
	}
	if err := op.ChannelDelete(reg, id); err != nil {
		resp.Error(c, http.StatusInternalServerError, resp.ErrDatabase)
		return
	}
	resp.Success(c, nil)
}

func listGroups(c *gin.Context) {
	resp.Success(c, op.GroupList())
}

func upsertGroup(c *gin.Context) {
	var g model.Group
	if err := c.ShouldBindJSON(&g); err != nil {
		resp.Error(c, http.StatusBadRequest, resp.ErrInvalidJSON)
		return
	}
	if g.ID == "" {
		resp.Error(c, http.StatusBadRequest, "group id is required")
		return
	}
	if err := op.GroupUpsert(g); err != nil {
		resp.Error(c, http.StatusInternalServerError, resp.ErrDatabase)
		return
	}
	resp.Success(c, g)
}

func deleteGroup(c *gin.Context) {
	if err := op.GroupDelete(c.Param("id")); err != nil {
		resp.Error(c, http.StatusInternalServerError, resp.ErrDatabase)
		return
	}
	resp.Success(c, nil)
}

func listPrices(c *gin.Context) {
	resp.Success(c, op.PriceList())
}

func upsertPrice(c *gin.Context) {
	var p model.Price
	if err := c.ShouldBindJSON(&p); err != nil {
		resp.Error(c, http.StatusBadRequest, resp.ErrInvalidJSON)
		return
	}
	if p.Model == "" {
		resp.Error(c, http.StatusBadRequest, "model is required")
		return
	}
	if err := op.PriceUpsert(p); err != nil {
		resp.Error(c, http.StatusInternalServerError, resp.ErrDatabase)
		return
	}
	resp.Success(c, p)
}

func deletePrice(c *gin.Context) {
	if err := op.PriceDelete(c.Param("model")); err != nil {
		resp.Error(c, http.StatusInternalServerError, resp.ErrDatabase)
		return
	}
	resp.Success(c, nil)
}

func healthSnapshot(c *gin.Context) {
	resp.Success(c, reg.Snapshot())
}

func unbanPair(c *gin.Context) {
	var req struct {
		ChannelID int    `json:"channel_id"`
		Model     string `json:"model"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, resp.ErrInvalidJSON)
		return
	}
	reg.Unban(req.ChannelID, req.Model)
	resp.Success(c, nil)
}

func listLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	logs, err := op.LogList(c.Query("group_id"), limit)
	if err != nil {
		resp.Error(c, http.StatusInternalServerError, resp.ErrDatabase)
		return
	}
	resp.Success(c, logs)
}
