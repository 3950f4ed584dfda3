package op

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/db"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/utils/cache"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/utils/log"
	"gorm.io/gorm"
)

var (
	groupCache   = cache.New[string, model.Group](16)
	groupByToken = cache.New[string, string](16)

	groupDirtyMu sync.Mutex
	groupDirty   = map[string]groupDelta{}
)

type groupDelta struct {
	Tokens   int64
	Amount   float64
	Requests int64
}

// InitGroups 启动时全量加载分组到内存
func InitGroups() error {
	var groups []model.Group
	if err := db.GetDB().Find(&groups).Error; err != nil {
		return fmt.Errorf("load groups: %w", err)
	}
	groupCache.Clear()
	groupByToken.Clear()
	for _, g := range groups {
		groupCache.Set(g.ID, g)
		if g.Token != "" {
			groupByToken.Set(g.Token, g.ID)
		}
	}
	return nil
}

func GroupGet(id string) (model.Group, bool) {
	return groupCache.Get(id)
}

// GroupGetByToken 鉴权查找，token 不存在返回 false
func GroupGetByToken(token string) (model.Group, bool) {
	id, ok := groupByToken.Get(token)
	if !ok {
		return model.Group{}, false
	}
	return groupCache.Get(id)
}

func GroupUpsert(group model.Group) error {
	if err := db.GetDB().Save(&group).Error; err != nil {
		return fmt.Errorf("save group: %w", err)
	}
	groupCache.Set(group.ID, group)
	if group.Token != "" {
		groupByToken.Set(group.Token, group.ID)
	}
	return nil
}

func GroupDelete(id string) error {
	g, ok := groupCache.Get(id)
	if err := db.GetDB().Where("id = ?", id).Delete(&model.Group{}).Error; err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	groupCache.Del(id)
	if ok && g.Token != "" {
		groupByToken.Del(g.Token)
	}
	return nil
}

func GroupList() []model.Group {
	m := groupCache.GetAll()
	out := make([]model.Group, 0, len(m))
	for _, g := range m {
		out = append(out, g)
	}
	return out
}

// GroupAddUsage 把一次请求的用量累加到内存计数，落库由 GroupSaveDB 批量完成。
// 缓存里的计数是配额检查的依据，读改写必须和增量表在同一把锁里完成，
// 否则并发请求会互相覆盖丢计数。
func GroupAddUsage(id string, tokens int64, amount float64) {
	groupDirtyMu.Lock()
	defer groupDirtyMu.Unlock()

	if g, ok := groupCache.Get(id); ok {
		g.UsedTokenNum += tokens
		g.UsedAmount += amount
		g.RequestCount++
		groupCache.Set(id, g)
	}

	d := groupDirty[id]
	d.Tokens += tokens
	d.Amount += amount
	d.Requests++
	groupDirty[id] = d
}

// GroupSaveDB flushes the accumulated usage deltas to the database.
// Deltas are applied with expressions so concurrent writers stay correct.
func GroupSaveDB() {
	groupDirtyMu.Lock()
	dirty := groupDirty
	groupDirty = map[string]groupDelta{}
	groupDirtyMu.Unlock()

	for id, d := range dirty {
		err := db.GetDB().Model(&model.Group{}).Where("id = ?", id).
			UpdateColumns(map[string]any{
				"used_token_num": gorm.Expr("used_token_num + ?", d.Tokens),
				"used_amount":    gorm.Expr("used_amount + ?", d.Amount),
				"request_count":  gorm.Expr("request_count + ?", d.Requests),
			}).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("save group %s usage: %v", id, err)
			// 写回失败，把增量放回去下轮再试
			groupDirtyMu.Lock()
			r := groupDirty[id]
			r.Tokens += d.Tokens
			r.Amount += d.Amount
			r.Requests += d.Requests
			groupDirty[id] = r
			groupDirtyMu.Unlock()
		}
	}
}

// GroupUsageRecorder adapts the package to the relay.GroupUsage interface.
type GroupUsageRecorder struct{}

func (GroupUsageRecorder) AddUsage(groupID string, tokens int64, amount float64) {
	GroupAddUsage(groupID, tokens, amount)
}
