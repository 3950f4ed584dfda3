package registry

import (
	"sync"
	"sync/atomic"
	"time"
)

// pairHealth 单个 (channel, model) 的运行时健康状态。
// 计数放在按分钟滚动的环形桶里，过期历史自然失效。
type pairHealth struct {
	banned      atomic.Bool
	bannedUntil atomic.Int64 // unix 秒，0 表示无限期直到探测成功

	rotateMu sync.Mutex
	buckets  []bucket
}

type bucket struct {
	minute  atomic.Int64
	success atomic.Int64
	failure atomic.Int64
}

func newPairHealth(windowMinutes int) *pairHealth {
	return &pairHealth{buckets: make([]bucket, windowMinutes)}
}

func (ph *pairHealth) bucketFor(now time.Time) *bucket {
	minute := now.Unix() / 60
	b := &ph.buckets[minute%int64(len(ph.buckets))]
	if b.minute.Load() != minute {
		ph.rotateMu.Lock()
		if b.minute.Load() != minute {
			b.success.Store(0)
			b.failure.Store(0)
			b.minute.Store(minute)
		}
		ph.rotateMu.Unlock()
	}
	return b
}

func (ph *pairHealth) record(now time.Time, success bool) {
	b := ph.bucketFor(now)
	if success {
		b.success.Add(1)
	} else {
		b.failure.Add(1)
	}
}

func (ph *pairHealth) counts(now time.Time) (success, failure int64) {
	minute := now.Unix() / 60
	oldest := minute - int64(len(ph.buckets)) + 1
	for i := range ph.buckets {
		b := &ph.buckets[i]
		m := b.minute.Load()
		if m < oldest || m > minute {
			continue
		}
		success += b.success.Load()
		failure += b.failure.Load()
	}
	return success, failure
}

func (ph *pairHealth) isBanned(now time.Time) bool {
	if !ph.banned.Load() {
		return false
	}
	until := ph.bannedUntil.Load()
	if until > 0 && until <= now.Unix() {
		// 到期自动解除，等待探测或新结果重新评估
		ph.banned.Store(false)
		return false
	}
	return true
}

func (ph *pairHealth) ban(until time.Time) {
	ph.bannedUntil.Store(until.Unix())
	ph.banned.Store(true)
}

func (ph *pairHealth) unban() {
	ph.banned.Store(false)
	ph.bannedUntil.Store(0)
	ph.rotateMu.Lock()
	for i := range ph.buckets {
		ph.buckets[i].minute.Store(0)
		ph.buckets[i].success.Store(0)
		ph.buckets[i].failure.Store(0)
	}
	ph.rotateMu.Unlock()
}
