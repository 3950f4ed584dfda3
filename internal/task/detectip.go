package task

import (
	"time"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/conf"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/op"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/utils/log"
)

// 检测只产出动作，封禁或通知由外部消费方决定
var anomalyCh = make(chan model.AnomalyAction, 64)

// Anomalies 返回异常动作通道
func Anomalies() <-chan model.AnomalyAction {
	return anomalyCh
}

// DetectIPTick 统计回看窗口内各分组的请求量与去重 IP 数，
// 同时超过两个阈值的分组产出一条异常动作
func DetectIPTick() {
	cfg := conf.AppConfig.Logs
	since := time.Now().Add(-time.Duration(cfg.DetectLookbackMinutes) * time.Minute)
	stats, err := op.GroupIPStats(since)
	if err != nil {
		log.Errorf("group ip stats query: %v", err)
		return
	}
	for _, s := range stats {
		// 两个阈值都是严格大于，压线不算异常
		if s.Requests <= int64(cfg.IPGroupsThreshold) {
			continue
		}
		if s.DistinctIPs <= int64(cfg.IPGroupsBanThreshold) {
			continue
		}
		action := model.AnomalyAction{
			GroupID:     s.GroupID,
			Requests:    s.Requests,
			DistinctIPs: s.DistinctIPs,
			DetectedAt:  time.Now().UnixMilli(),
		}
		select {
		case anomalyCh <- action:
			log.Warnf("group %s anomaly: %d requests from %d distinct ips",
				s.GroupID, s.Requests, s.DistinctIPs)
		default:
			log.Warnf("anomaly channel full, dropped action for group %s", s.GroupID)
		}
	}
}
