package op

import (
	"fmt"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/db"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/registry"
)

// InitChannels 启动时全量加载渠道到注册表
func InitChannels(reg *registry.Registry) error {
	var channels []model.Channel
	if err := db.GetDB().Find(&channels).Error; err != nil {
		return fmt.Errorf("load channels: %w", err)
	}
	reg.SetChannels(channels)
	return nil
}

func ChannelUpsert(reg *registry.Registry, ch model.Channel) error {
	if err := db.GetDB().Save(&ch).Error; err != nil {
		return fmt.Errorf("save channel: %w", err)
	}
	reg.UpsertChannel(ch)
	return nil
}

func ChannelDelete(reg *registry.Registry, id int) error {
	if err := db.GetDB().Where("id = ?", id).Delete(&model.Channel{}).Error; err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	reg.RemoveChannel(id)
	return nil
}
