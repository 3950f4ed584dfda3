package op

import (
	"fmt"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/db"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/registry"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/utils/log"
	"gorm.io/gorm/clause"
)

// HealthSaveDB 把注册表健康快照落库，重启后仅恢复封禁位，计数窗口重新累计
func HealthSaveDB(reg *registry.Registry) {
	for _, s := range reg.Snapshot() {
		rec := model.ChannelModelHealth{
			ChannelID:    s.ChannelID,
			Model:        s.Model,
			SuccessCount: s.Success,
			FailureCount: s.Failure,
			Banned:       s.Banned,
			BannedUntil:  s.BannedUntil,
		}
		err := db.GetDB().Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "channel_id"}, {Name: "model"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"success_count", "failure_count", "banned", "banned_until",
			}),
		}).Create(&rec).Error
		if err != nil {
			log.Errorf("save health channel %d model %s: %v", s.ChannelID, s.Model, err)
		}
	}
}

// HealthRestore 启动时恢复未过期的封禁位
func HealthRestore(reg *registry.Registry) error {
	var records []model.ChannelModelHealth
	if err := db.GetDB().Find(&records).Error; err != nil {
		return fmt.Errorf("load health records: %w", err)
	}
	reg.RestoreBans(records)
	return nil
}
