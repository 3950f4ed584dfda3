// Package op 负责内存态与数据库之间的装载和回写
package op

import "github.com/cnmd-sb-git/aiproxy-sub001/internal/registry"

// InitCache 启动时装载渠道、分组、价格并恢复封禁位
func InitCache(reg *registry.Registry) error {
	if err := InitChannels(reg); err != nil {
		return err
	}
	if err := InitGroups(); err != nil {
		return err
	}
	if err := InitPrices(); err != nil {
		return err
	}
	return HealthRestore(reg)
}
