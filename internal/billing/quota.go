package billing

import (
	"fmt"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
)

// CheckQuota 在中继前把关：已达额度的分组直接拒绝，不发上游请求。
// defaultMax 是分组未单独配置 MaxTokenNum 时的全局默认。
func CheckQuota(group *model.Group, defaultMax int64) error {
	if group == nil {
		return nil
	}
	if !group.Enabled() {
		return fmt.Errorf("group %s is disabled: %w", group.ID, ErrQuotaExceeded)
	}
	max := group.MaxTokenNum
	if max <= 0 {
		max = defaultMax
	}
	if max <= 0 {
		return nil // 未配置额度即不限制
	}
	if group.UsedTokenNum >= max {
		return fmt.Errorf("group %s used %d of %d tokens: %w",
			group.ID, group.UsedTokenNum, max, ErrQuotaExceeded)
	}
	return nil
}
