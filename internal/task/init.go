package task

import (
	"time"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/conf"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/op"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/registry"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/relay"
)

const (
	TaskAutoBan     = "auto_ban"
	TaskProbeBanned = "probe_banned"
	TaskLogClean    = "log_clean"
	TaskDetectIP    = "detect_ip"
	TaskGroupSave   = "group_save"
	TaskHealthSave  = "health_save"
)

// Init 按配置注册所有后台任务
func Init(reg *registry.Registry, exec *relay.Executor) {
	rc := conf.AppConfig.Relay
	lc := conf.AppConfig.Logs

	Register(TaskAutoBan, time.Duration(rc.AutoBanIntervalSeconds)*time.Second, false, func() {
		AutoBanTick(reg)
	})
	Register(TaskProbeBanned, time.Duration(rc.ProbeIntervalSeconds)*time.Second, false, func() {
		ProbeBannedTick(reg, exec)
	})
	Register(TaskLogClean, time.Duration(lc.CleanIntervalMinutes)*time.Minute, true, LogCleanTick)
	Register(TaskDetectIP, time.Duration(lc.DetectIntervalMinutes)*time.Minute, false, DetectIPTick)
	Register(TaskGroupSave, 1*time.Minute, false, op.GroupSaveDB)
	Register(TaskHealthSave, 5*time.Minute, false, func() {
		op.HealthSaveDB(reg)
	})
}
