package task

import (
	"context"
	"time"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/conf"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/registry"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/relay"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/utils/log"
)

// AutoBanTick 扫描健康快照，样本量够且失败率达阈值的 (channel, model) 封禁一段时间
func AutoBanTick(reg *registry.Registry) {
	cfg := conf.AppConfig.Relay
	if !cfg.EnableModelErrorAutoBan {
		return
	}
	until := time.Now().Add(time.Duration(cfg.BanDurationSeconds) * time.Second)
	for _, s := range reg.Snapshot() {
		if s.Banned {
			continue
		}
		total := s.Success + s.Failure
		if total < int64(cfg.AutoBanMinSample) {
			continue
		}
		rate := float64(s.Failure) / float64(total)
		if rate >= cfg.ModelErrorAutoBanRate {
			log.Warnf("channel %d model %s failure rate %.2f (%d/%d), auto banning",
				s.ChannelID, s.Model, rate, s.Failure, total)
			reg.Ban(s.ChannelID, s.Model, until)
		}
	}
}

// ProbeBannedTick 对封禁中的 (channel, model) 发探测请求，
// 成功解禁并清空窗口，失败顺延封禁时间
func ProbeBannedTick(reg *registry.Registry, exec *relay.Executor) {
	cfg := conf.AppConfig.Relay
	extend := time.Duration(cfg.BanDurationSeconds) * time.Second
	for _, s := range reg.Snapshot() {
		if !s.Banned {
			continue
		}
		ch, ok := reg.Channel(s.ChannelID)
		if !ok {
			continue
		}
		if err := exec.Probe(context.Background(), &ch, s.Model); err != nil {
			log.Debugf("probe channel %d model %s still failing: %v", s.ChannelID, s.Model, err)
			reg.Ban(s.ChannelID, s.Model, time.Now().Add(extend))
			continue
		}
		reg.Unban(s.ChannelID, s.Model)
	}
}
