// Package registry holds channel definitions and per-(channel, model) health
// state. It is read by the selector on every request, written by outcome
// reporting from the relay path, and by the auto-ban loop.
package registry

import (
	"sync"
	"time"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/utils/cache"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/utils/log"
	"github.com/dlclark/regexp2"
)

// PairKey 以 (channelID, model) 为健康状态的键
type PairKey struct {
	ChannelID int
	Model     string
}

// PairStats 是自动封禁循环消费的只读快照
type PairStats struct {
	ChannelID   int
	Model       string
	Success     int64
	Failure     int64
	Banned      bool
	BannedUntil int64
}

type Registry struct {
	windowMinutes int

	channels cache.Cache[int, model.Channel]
	health   cache.Cache[PairKey, *pairHealth]
	healthMu sync.Mutex // guards pair creation only

	regexMu sync.Mutex
	regexes map[string]*regexp2.Regexp

	now func() time.Time
}

func New(windowMinutes int) *Registry {
	if windowMinutes <= 0 {
		windowMinutes = 10
	}
	return &Registry{
		windowMinutes: windowMinutes,
		channels:      cache.New[int, model.Channel](16),
		health:        cache.New[PairKey, *pairHealth](64),
		regexes:       map[string]*regexp2.Regexp{},
		now:           time.Now,
	}
}

// SetNow 仅供测试注入时钟
func (r *Registry) SetNow(now func() time.Time) {
	r.now = now
}

// SetChannels replaces the channel snapshot. Called at startup and whenever
// the admin layer reloads channel definitions.
func (r *Registry) SetChannels(channels []model.Channel) {
	r.channels.Clear()
	for _, ch := range channels {
		r.channels.Set(ch.ID, ch)
	}
}

func (r *Registry) UpsertChannel(ch model.Channel) {
	r.channels.Set(ch.ID, ch)
}

// RemoveChannel drops the channel and all of its health state.
func (r *Registry) RemoveChannel(channelID int) {
	r.channels.Del(channelID)
	r.clearHealth(channelID)
}

// ClearChannelHealth 渠道被管理端更新后，清空其累计健康状态
func (r *Registry) ClearChannelHealth(channelID int) {
	r.clearHealth(channelID)
}

func (r *Registry) clearHealth(channelID int) {
	var stale []PairKey
	r.health.Range(func(k PairKey, _ *pairHealth) bool {
		if k.ChannelID == channelID {
			stale = append(stale, k)
		}
		return true
	})
	if len(stale) > 0 {
		r.health.Del(stale...)
	}
}

func (r *Registry) Channel(id int) (model.Channel, bool) {
	return r.channels.Get(id)
}

func (r *Registry) Channels() []model.Channel {
	out := make([]model.Channel, 0, r.channels.Len())
	for _, ch := range r.channels.GetAll() {
		out = append(out, ch)
	}
	return out
}

// Supports reports whether the channel serves the model, either via its
// explicit list/mapping or via its match regex.
func (r *Registry) Supports(ch *model.Channel, modelName string) bool {
	if ch.ListsModel(modelName) {
		return true
	}
	if ch.MatchRegex == nil || *ch.MatchRegex == "" {
		return false
	}
	re, err := r.compiled(*ch.MatchRegex)
	if err != nil {
		log.Warnf("channel %d has invalid match regex: %v", ch.ID, err)
		return false
	}
	ok, err := re.MatchString(modelName)
	return err == nil && ok
}

func (r *Registry) compiled(pattern string) (*regexp2.Regexp, error) {
	r.regexMu.Lock()
	defer r.regexMu.Unlock()
	if re, ok := r.regexes[pattern]; ok {
		return re, nil
	}
	re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
	if err != nil {
		return nil, err
	}
	r.regexes[pattern] = re
	return re, nil
}

// EligibleChannels returns enabled channels that serve the model and are not
// banned for it. Order is unspecified; ranking is the selector's job.
func (r *Registry) EligibleChannels(modelName string) []model.Channel {
	var out []model.Channel
	for _, ch := range r.channels.GetAll() {
		if !ch.Enabled() {
			continue
		}
		if !r.Supports(&ch, modelName) {
			continue
		}
		if r.IsBanned(ch.ID, modelName) {
			continue
		}
		out = append(out, ch)
	}
	return out
}

func (r *Registry) pair(key PairKey) *pairHealth {
	if ph, ok := r.health.Get(key); ok {
		return ph
	}
	r.healthMu.Lock()
	defer r.healthMu.Unlock()
	if ph, ok := r.health.Get(key); ok {
		return ph
	}
	ph := newPairHealth(r.windowMinutes)
	r.health.Set(key, ph)
	return ph
}

// ReportOutcome 记录一次成功/失败，计数只增不减，顺序无关
func (r *Registry) ReportOutcome(channelID int, modelName string, success bool) {
	ph := r.pair(PairKey{ChannelID: channelID, Model: modelName})
	ph.record(r.now(), success)
}

// Counts returns the rolling success/failure counts within the window.
func (r *Registry) Counts(channelID int, modelName string) (success, failure int64) {
	ph, ok := r.health.Get(PairKey{ChannelID: channelID, Model: modelName})
	if !ok {
		return 0, 0
	}
	return ph.counts(r.now())
}

func (r *Registry) IsBanned(channelID int, modelName string) bool {
	ph, ok := r.health.Get(PairKey{ChannelID: channelID, Model: modelName})
	if !ok {
		return false
	}
	return ph.isBanned(r.now())
}

func (r *Registry) Ban(channelID int, modelName string, until time.Time) {
	ph := r.pair(PairKey{ChannelID: channelID, Model: modelName})
	ph.ban(until)
	log.Warnf("banned channel %d model %s until %s", channelID, modelName, until.Format(time.RFC3339))
}

// Unban clears the ban and resets the rolling window, so the pair starts
// from a clean slate after a successful probe.
func (r *Registry) Unban(channelID int, modelName string) {
	ph, ok := r.health.Get(PairKey{ChannelID: channelID, Model: modelName})
	if !ok {
		return
	}
	ph.unban()
	log.Infof("unbanned channel %d model %s", channelID, modelName)
}

// Snapshot 返回所有 (channel, model) 健康状态的一致性快照
func (r *Registry) Snapshot() []PairStats {
	now := r.now()
	out := make([]PairStats, 0, r.health.Len())
	r.health.Range(func(k PairKey, ph *pairHealth) bool {
		success, failure := ph.counts(now)
		out = append(out, PairStats{
			ChannelID:   k.ChannelID,
			Model:       k.Model,
			Success:     success,
			Failure:     failure,
			Banned:      ph.isBanned(now),
			BannedUntil: ph.bannedUntil.Load(),
		})
		return true
	})
	return out
}

// RestoreBans 启动时从持久化快照恢复封禁位
func (r *Registry) RestoreBans(records []model.ChannelModelHealth) {
	now := r.now()
	for _, rec := range records {
		if !rec.Banned {
			continue
		}
		if rec.BannedUntil > 0 && rec.BannedUntil <= now.Unix() {
			continue
		}
		r.Ban(rec.ChannelID, rec.Model, time.Unix(rec.BannedUntil, 0))
	}
}
