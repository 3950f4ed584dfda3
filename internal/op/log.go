package op

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/db"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/utils/log"
)

// LogStore 消费日志的有界异步队列。入队永不阻塞请求路径：
// 队列满时丢弃并累加计数，持久化故障只影响审计不影响中继。
type LogStore struct {
	queue    chan model.ConsumptionLog
	batch    int
	interval time.Duration

	dropped atomic.Int64
	done    chan struct{}
	wg      sync.WaitGroup
	started atomic.Bool
}

func NewLogStore(queueSize, batchSize int, flushInterval time.Duration) *LogStore {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	if flushInterval <= 0 {
		flushInterval = 10 * time.Second
	}
	return &LogStore{
		queue:    make(chan model.ConsumptionLog, queueSize),
		batch:    batchSize,
		interval: flushInterval,
		done:     make(chan struct{}),
	}
}

func (s *LogStore) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(1)
	go s.flushLoop()
}

// Enqueue 非阻塞入队，队列满时丢弃该条记录
func (s *LogStore) Enqueue(entry model.ConsumptionLog) {
	if entry.ID == 0 {
		entry.ID = NextID()
	}
	select {
	case s.queue <- entry:
	default:
		n := s.dropped.Add(1)
		log.Errorf("log queue full, dropped consumption log %s (total dropped %d)", entry.RequestID, n)
	}
}

// Dropped 返回累计丢弃条数
func (s *LogStore) Dropped() int64 {
	return s.dropped.Load()
}

// Close 停止刷写循环并把队列里剩余的记录落库
func (s *LogStore) Close() {
	if !s.started.Load() {
		return
	}
	close(s.done)
	s.wg.Wait()
}

func (s *LogStore) flushLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	buf := make([]model.ConsumptionLog, 0, s.batch)
	for {
		select {
		case entry := <-s.queue:
			buf = append(buf, entry)
			if len(buf) >= s.batch {
				s.flush(buf)
				buf = buf[:0]
			}
		case <-ticker.C:
			if len(buf) > 0 {
				s.flush(buf)
				buf = buf[:0]
			}
		case <-s.done:
			for {
				select {
				case entry := <-s.queue:
					buf = append(buf, entry)
					if len(buf) >= s.batch {
						s.flush(buf)
						buf = buf[:0]
					}
				default:
					if len(buf) > 0 {
						s.flush(buf)
					}
					return
				}
			}
		}
	}
}

func (s *LogStore) flush(buf []model.ConsumptionLog) {
	if err := db.GetDB().CreateInBatches(buf, s.batch).Error; err != nil {
		log.Errorf("flush %d consumption logs: %v", len(buf), err)
	}
}

// LogPrune 删除早于 olderThan 的日志，小批量删除避免长事务。
// 边界上等于 olderThan 的记录保留。
func LogPrune(olderThan time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	cutoff := olderThan.UnixMilli()
	var total int64
	for {
		var ids []int64
		err := db.GetDB().Model(&model.ConsumptionLog{}).
			Where("request_at < ?", cutoff).
			Order("id").Limit(batchSize).
			Pluck("id", &ids).Error
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}
		res := db.GetDB().Where("id IN ?", ids).Delete(&model.ConsumptionLog{})
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
		if len(ids) < batchSize {
			return total, nil
		}
	}
}

// LogList 按分组倒序查询最近的消费记录
func LogList(groupID string, limit int) ([]model.ConsumptionLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	q := db.GetDB().Model(&model.ConsumptionLog{}).Order("request_at DESC").Limit(limit)
	if groupID != "" {
		q = q.Where("group_id = ?", groupID)
	}
	var logs []model.ConsumptionLog
	err := q.Find(&logs).Error
	return logs, err
}

// GroupIPStats 统计窗口内各分组的请求量和去重 IP 数，供异常检测用
func GroupIPStats(since time.Time) ([]model.GroupIPStat, error) {
	var stats []model.GroupIPStat
	err := db.GetDB().Model(&model.ConsumptionLog{}).
		Select("group_id, COUNT(*) AS requests, COUNT(DISTINCT ip) AS distinct_ips").
		Where("request_at >= ? AND group_id <> '' AND ip <> ''", since.UnixMilli()).
		Group("group_id").
		Scan(&stats).Error
	return stats, err
}
