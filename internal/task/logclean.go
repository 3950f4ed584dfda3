package task

import (
	"time"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/conf"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/op"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/utils/log"
)

// LogCleanTick 按保留期小批量删除过期消费日志
func LogCleanTick() {
	cfg := conf.AppConfig.Logs
	if cfg.StorageHours <= 0 {
		return
	}
	olderThan := time.Now().Add(-time.Duration(cfg.StorageHours) * time.Hour)
	deleted, err := op.LogPrune(olderThan, cfg.CleanBatchSize)
	if err != nil {
		log.Errorf("log prune: %v", err)
		return
	}
	if deleted > 0 {
		log.Infof("pruned %d consumption logs older than %s", deleted, olderThan.Format(time.RFC3339))
	}
}
